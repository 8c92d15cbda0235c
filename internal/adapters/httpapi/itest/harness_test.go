package itest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/studiofit/frontdesk-api/internal/adapters/httpapi"
	memcheckinrepo "github.com/studiofit/frontdesk-api/internal/adapters/memory/checkinrepo"
	memclock "github.com/studiofit/frontdesk-api/internal/adapters/memory/clock"
	memidempotency "github.com/studiofit/frontdesk-api/internal/adapters/memory/idempotency"
	memmemberrepo "github.com/studiofit/frontdesk-api/internal/adapters/memory/memberrepo"
	memwaitlistrepo "github.com/studiofit/frontdesk-api/internal/adapters/memory/waitlistrepo"
	pgcheckinrepo "github.com/studiofit/frontdesk-api/internal/adapters/postgres/checkinrepo"
	pgidempotency "github.com/studiofit/frontdesk-api/internal/adapters/postgres/idempotency"
	pgmemberrepo "github.com/studiofit/frontdesk-api/internal/adapters/postgres/memberrepo"
	postgres_testutil "github.com/studiofit/frontdesk-api/internal/adapters/postgres/testutil"
	pgwaitlistrepo "github.com/studiofit/frontdesk-api/internal/adapters/postgres/waitlistrepo"
	"github.com/studiofit/frontdesk-api/internal/app/checkin"
	"github.com/studiofit/frontdesk-api/internal/app/members"
	"github.com/studiofit/frontdesk-api/internal/app/waitlist"
	"github.com/studiofit/frontdesk-api/internal/platform/config"
	checkinrepoport "github.com/studiofit/frontdesk-api/internal/ports/out/checkinrepo"
	idempotencyport "github.com/studiofit/frontdesk-api/internal/ports/out/idempotency"
	memberrepoport "github.com/studiofit/frontdesk-api/internal/ports/out/memberrepo"
	waitlistrepoport "github.com/studiofit/frontdesk-api/internal/ports/out/waitlistrepo"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|all)")
		return nil
	}
}

type testServer struct {
	baseURL string
	client  *http.Client
}

// studioTZ is the studio timezone used by every itest server.
var studioTZ = time.FixedZone("BRT", -3*60*60)

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	const issuer = "itest-issuer"
	// Tuesday morning in the studio.
	clk := memclock.NewManualClock(time.Date(2026, time.October, 13, 9, 0, 0, 0, studioTZ))

	var (
		memberRepo   memberrepoport.Repository
		checkinRepo  checkinrepoport.Repository
		waitlistRepo waitlistrepoport.Repository
		idemStore    idempotencyport.Store
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		memberRepo = pgmemberrepo.NewRepo(pool)
		checkinRepo = pgcheckinrepo.NewRepo(pool)
		waitlistRepo = pgwaitlistrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool, issuer)
	case backendMemory:
		memberRepo = memmemberrepo.NewRepo()
		checkinRepo = memcheckinrepo.NewRepo()
		waitlistRepo = memwaitlistrepo.NewRepo()
		idemStore = memidempotency.NewStore()
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	memberSvc := members.NewService(memberRepo, clk, studioTZ, nil)
	checkinSvc := checkin.NewService(memberRepo, checkinRepo, clk, checkin.Config{
		Location:          studioTZ,
		AssistedGraceDays: config.DefaultAssistedGraceDays,
	})
	waitlistSvc := waitlist.NewService(waitlistRepo, clk)
	api := httpapi.NewServer(memberSvc, checkinSvc, waitlistSvc, idemStore, nil)

	// No default subject: staff calls must name themselves via X-Debug-Subject.
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{
		AuthMiddleware: httpapi.NewDevAuthMiddleware(""),
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
	}
}

// callOption tweaks a request before it is sent.
type callOption func(*http.Request)

func withIdempotencyKey(key string) callOption {
	return func(r *http.Request) { r.Header.Set("Idempotency-Key", key) }
}

// doJSON sends body as JSON on behalf of subject (empty means a public caller) and
// returns the raw response.
func (s *testServer) doJSON(t *testing.T, method string, path string, subject string, body any, opts ...callOption) (int, []byte, http.Header) {
	t.Helper()

	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err, "marshal body")
		payload = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.baseURL+"/"+strings.TrimPrefix(path, "/"), payload)
	require.NoError(t, err)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if subject != "" {
		req.Header.Set("X-Debug-Subject", subject)
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out, resp.Header
}

type errorResponse struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(b, &out), "body=%s", b)
	return out
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	require.Equal(t, wantStatus, status, "body=%s", body)
	require.Equal(t, wantCode, mustUnmarshal[errorResponse](t, body).Error.Code, "body=%s", body)
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	require.NotEmpty(t, strings.TrimSpace(h.Get(key)), "header %q", key)
}
