// Package idempotency stores replayable responses in Redis so every API replica sees them.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/studiofit/frontdesk-api/internal/ports/out/idempotency"
)

const keyPrefix = "frontdesk:idem:"

// Store is a Redis implementation of idempotency.Store. Each record lives under its own key
// and expires idempotency.Retention after CreatedAt.
type Store struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewStore(client redis.UniversalClient) *Store {
	return &Store{client: client, now: time.Now}
}

// NewClient parses a redis:// URL and pings the server.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

type storedRecord struct {
	StatusCode  int       `json:"statusCode"`
	ContentType string    `json:"contentType"`
	Body        []byte    `json:"body"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	if s.client == nil {
		return idempotency.Record{}, false, errors.New("nil redis client")
	}
	raw, err := s.client.Get(ctx, redisKey(fp)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return idempotency.Record{}, false, nil
		}
		return idempotency.Record{}, false, err
	}
	var sr storedRecord
	if err := json.Unmarshal(raw, &sr); err != nil {
		return idempotency.Record{}, false, err
	}
	return idempotency.Record{
		StatusCode:  sr.StatusCode,
		ContentType: sr.ContentType,
		Body:        sr.Body,
		CreatedAt:   sr.CreatedAt.UTC(),
	}, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if s.client == nil {
		return errors.New("nil redis client")
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	ttl := idempotency.Retention - s.now().Sub(createdAt)
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(storedRecord{
		StatusCode:  rec.StatusCode,
		ContentType: rec.ContentType,
		Body:        rec.Body,
		CreatedAt:   createdAt.UTC(),
	})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKey(fp), raw, ttl).Err()
}

// redisKey hashes the fingerprint so caller-supplied keys cannot collide across fields.
func redisKey(fp idempotency.Fingerprint) string {
	h := sha256.Sum256([]byte(strings.Join([]string{
		string(fp.Subject),
		fp.Method,
		fp.Route,
		string(fp.Key),
		fp.BodyHash,
	}, "\x00")))
	return keyPrefix + hex.EncodeToString(h[:])
}
