package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/studiofit/frontdesk-api/internal/app/apperr"
	"github.com/studiofit/frontdesk-api/internal/domain"
	"github.com/studiofit/frontdesk-api/internal/ports/out/idempotency"
)

// handlerFunc returns the success status and JSON payload, or an error for writeAppError.
type handlerFunc func() (int, any, error)

// idempotent runs handle at most once per (subject, Idempotency-Key, route, request).
//
// Idempotency handling (v1):
// - Replay if same subject+key+route+bodyHash
// - Reject if same subject+key+route with different bodyHash (409)
// Requests without the header are not deduplicated. Only successful responses are stored.
func (s *Server) idempotent(w http.ResponseWriter, r *http.Request, route string, request any, handle handlerFunc) {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key == "" || s.Idem == nil {
		s.respond(w, r, handle)
		return
	}
	ctx := r.Context()

	bodyHash, err := hashRequest(request)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	subject := idempotency.AnonymousSubject
	if sub, ok := SubjectFromContext(ctx); ok {
		subject = domain.SubjectID(sub)
	}
	metaFP := idempotency.Fingerprint{
		Key:      idempotency.Key(key),
		Subject:  subject,
		Method:   r.Method,
		Route:    route,
		BodyHash: "",
	}

	meta, ok, err := s.Idem.Get(ctx, metaFP)
	if err != nil {
		s.writeAppError(w, r, apperr.StoreUnavailable(err))
		return
	}
	if ok {
		if string(meta.Body) != bodyHash {
			writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
			return
		}
	} else {
		if err := s.Idem.Put(ctx, metaFP, idempotency.Record{
			StatusCode:  0,
			ContentType: "text/plain",
			Body:        []byte(bodyHash),
			CreatedAt:   s.now().UTC(),
		}); err != nil {
			s.logIdemPutFailure(route, err)
		}
	}

	respFP := metaFP
	respFP.BodyHash = bodyHash
	rec, ok, err := s.Idem.Get(ctx, respFP)
	if err != nil {
		s.writeAppError(w, r, apperr.StoreUnavailable(err))
		return
	}
	if ok && rec.StatusCode != 0 && strings.HasPrefix(rec.ContentType, "application/json") {
		w.Header().Set("Content-Type", rec.ContentType)
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(rec.StatusCode)
		_, _ = w.Write(rec.Body)
		return
	}

	status, payload, err := handle()
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	// Store successful response for replay. A failed write only costs the replay.
	if err := s.Idem.Put(ctx, respFP, idempotency.Record{
		StatusCode:  status,
		ContentType: "application/json",
		Body:        b,
		CreatedAt:   s.now().UTC(),
	}); err != nil {
		s.logIdemPutFailure(route, err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func (s *Server) logIdemPutFailure(route string, err error) {
	s.log.Warn("idempotency store put failed", zap.String("route", route), zap.Error(err))
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, handle handlerFunc) {
	status, payload, err := handle()
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if payload == nil {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, payload)
}

func hashRequest(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
