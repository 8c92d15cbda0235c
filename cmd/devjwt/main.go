package main

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/studiofit/frontdesk-api/internal/platform/logger"
)

// devjwt mints RS256 staff tokens and serves the matching JWKS so the API can run
// with AUTH_MODE=jwt locally. It is not an identity provider.

type jwk struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

type issuer struct {
	priv     *rsa.PrivateKey
	kid      string
	issuer   string
	audience string
	ttl      time.Duration
}

func main() {
	zl, err := logger.New(logger.Config{Level: getenv("LOG_LEVEL", "info"), Format: getenv("LOG_FORMAT", "console")})
	if err != nil {
		panic(err)
	}
	defer func() { _ = zl.Sync() }()

	port := getenv("PORT", "5556")
	iss := issuer{
		kid:      getenv("KID", "dev-kid-1"),
		issuer:   getenv("ISSUER", "http://devjwt:5556"),
		audience: getenv("AUDIENCE", "frontdesk-api"),
		ttl:      getenvDuration("TTL", 8*time.Hour),
	}
	iss.priv, err = rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		zl.Fatal("generate key", zap.Error(err))
	}
	jwksJSON, err := marshalJWKS(iss.priv.PublicKey, iss.kid)
	if err != nil {
		zl.Fatal("marshal jwks", zap.Error(err))
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/.well-known/jwks.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(jwksJSON)
	})
	// GET /token?sub=staff|maria
	r.Get("/token", func(w http.ResponseWriter, r *http.Request) {
		sub := strings.TrimSpace(r.URL.Query().Get("sub"))
		if sub == "" {
			http.Error(w, "missing sub", http.StatusBadRequest)
			return
		}
		now := time.Now().UTC()
		token, err := iss.mint(sub, now)
		if err != nil {
			zl.Error("mint token", zap.Error(err))
			http.Error(w, "failed to mint token", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": token,
			"sub":   sub,
			"iss":   iss.issuer,
			"aud":   iss.audience,
			"exp":   now.Add(iss.ttl).Unix(),
		})
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	zl.Info("devjwt listening",
		zap.String("port", port),
		zap.String("iss", iss.issuer),
		zap.String("aud", iss.audience),
		zap.String("kid", iss.kid),
		zap.Duration("ttl", iss.ttl),
	)
	if err := srv.ListenAndServe(); err != nil {
		zl.Fatal("listen", zap.Error(err))
	}
}

func (i issuer) mint(sub string, now time.Time) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Issuer:    i.issuer,
		Audience:  jwt.ClaimStrings{i.audience},
		Subject:   sub,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	})
	tok.Header["kid"] = i.kid
	return tok.SignedString(i.priv)
}

func marshalJWKS(pub rsa.PublicKey, kid string) ([]byte, error) {
	enc := base64.RawURLEncoding
	return json.Marshal(jwks{Keys: []jwk{{
		Kty: "RSA",
		Use: "sig",
		Alg: "RS256",
		Kid: kid,
		N:   enc.EncodeToString(pub.N.Bytes()),
		E:   enc.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}}})
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return d
}
