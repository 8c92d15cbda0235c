package httpapi

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	memcheckinrepo "github.com/studiofit/frontdesk-api/internal/adapters/memory/checkinrepo"
	memclock "github.com/studiofit/frontdesk-api/internal/adapters/memory/clock"
	memidempotency "github.com/studiofit/frontdesk-api/internal/adapters/memory/idempotency"
	memmemberrepo "github.com/studiofit/frontdesk-api/internal/adapters/memory/memberrepo"
	memwaitlistrepo "github.com/studiofit/frontdesk-api/internal/adapters/memory/waitlistrepo"
	"github.com/studiofit/frontdesk-api/internal/app/checkin"
	"github.com/studiofit/frontdesk-api/internal/app/members"
	"github.com/studiofit/frontdesk-api/internal/app/waitlist"
	"github.com/studiofit/frontdesk-api/internal/platform/config"
	"github.com/studiofit/frontdesk-api/internal/ports/out/idempotency"
)

// readOnlyStore serves reads from an empty store and rejects every write.
type readOnlyStore struct {
	*memidempotency.Store
}

func (readOnlyStore) Put(context.Context, idempotency.Fingerprint, idempotency.Record) error {
	return errors.New("disk full")
}

func TestIdempotencyKey_PutFailureIsLoggedAndRequestSucceeds(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	clk := memclock.NewManualClock(time.Date(2026, time.October, 13, 9, 0, 0, 0, studioTZ))
	memberRepo := memmemberrepo.NewRepo()
	memberSvc := members.NewService(memberRepo, clk, studioTZ, nil)
	checkinSvc := checkin.NewService(memberRepo, memcheckinrepo.NewRepo(), clk, checkin.Config{
		Location:          studioTZ,
		AssistedGraceDays: config.DefaultAssistedGraceDays,
	})
	waitlistSvc := waitlist.NewService(memwaitlistrepo.NewRepo(), clk)

	srv := NewServer(memberSvc, checkinSvc, waitlistSvc, readOnlyStore{memidempotency.NewStore()}, zap.New(core))
	api := &testAPI{
		h:       NewRouterWithOptions(srv, RouterOptions{AuthMiddleware: NewDevAuthMiddleware("")}),
		members: memberRepo,
		clock:   clk,
	}

	join := map[string]any{
		"fullName":       "ana",
		"email":          "ana@example.com",
		"phone":          "+55 11 91234-5678",
		"preferredShift": "morning",
	}
	rec := api.do(t, request{method: http.MethodPost, path: "/waitlist", body: join, headers: map[string]string{"Idempotency-Key": "join-1"}})
	requireStatus(t, rec, http.StatusCreated)
	if rec.Header().Get("Idempotent-Replayed") != "" {
		t.Fatalf("unexpected replay header")
	}

	warns := logs.FilterMessage("idempotency store put failed").All()
	if len(warns) != 2 {
		t.Fatalf("warn entries: got %d want 2", len(warns))
	}
	for _, e := range warns {
		if e.Level != zapcore.WarnLevel {
			t.Fatalf("level=%s", e.Level)
		}
		if e.ContextMap()["error"] != "disk full" {
			t.Fatalf("fields=%v", e.ContextMap())
		}
	}
}
