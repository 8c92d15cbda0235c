// Package jwks_testutil fakes the staff identity provider: an httptest JWKS endpoint
// with rotatable keys plus an RS256 token minter.
package jwks_testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Keypair struct {
	Kid     string
	Private *rsa.PrivateKey
}

func GenerateRSAKeypair(kid string) (Keypair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return Keypair{}, err
	}
	return Keypair{Kid: kid, Private: priv}, nil
}

// Provider serves a JWKS whose keys can be rotated at runtime.
type Provider struct {
	*httptest.Server

	mu      sync.RWMutex
	body    []byte
	fetches atomic.Int64
}

func NewProvider(keys ...Keypair) *Provider {
	p := &Provider{body: []byte(`{"keys":[]}`)}
	p.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		p.fetches.Add(1)
		p.mu.RLock()
		body := p.body
		p.mu.RUnlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	p.SetKeys(keys...)
	return p
}

// SetKeys replaces the published key set.
func (p *Provider) SetKeys(keys ...Keypair) {
	type jwk struct {
		Kty string `json:"kty"`
		Use string `json:"use"`
		Alg string `json:"alg"`
		Kid string `json:"kid"`
		N   string `json:"n"`
		E   string `json:"e"`
	}
	set := struct {
		Keys []jwk `json:"keys"`
	}{Keys: make([]jwk, 0, len(keys))}
	for _, kp := range keys {
		pub := kp.Private.PublicKey
		set.Keys = append(set.Keys, jwk{
			Kty: "RSA",
			Use: "sig",
			Alg: "RS256",
			Kid: kp.Kid,
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		})
	}
	b, _ := json.Marshal(set)
	p.mu.Lock()
	p.body = b
	p.mu.Unlock()
}

// Fetches is how many times the JWKS has been requested.
func (p *Provider) Fetches() int64 { return p.fetches.Load() }

// StaffToken describes a token to mint. Zero TTL means five minutes.
type StaffToken struct {
	Issuer   string
	Audience string
	Subject  string
	IssuedAt time.Time
	TTL      time.Duration
	// NotBefore offsets nbf from IssuedAt when non-nil.
	NotBefore *time.Duration
}

// Mint signs tok with kp using RS256 and sets the kid header.
func Mint(kp Keypair, tok StaffToken) (string, error) {
	ttl := tok.TTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	claims := jwt.RegisteredClaims{
		Issuer:    tok.Issuer,
		Subject:   tok.Subject,
		Audience:  jwt.ClaimStrings{tok.Audience},
		IssuedAt:  jwt.NewNumericDate(tok.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(tok.IssuedAt.Add(ttl)),
	}
	if tok.NotBefore != nil {
		claims.NotBefore = jwt.NewNumericDate(tok.IssuedAt.Add(*tok.NotBefore))
	}
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	t.Header["kid"] = kp.Kid
	return t.SignedString(kp.Private)
}
