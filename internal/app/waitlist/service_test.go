package waitlist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memclock "github.com/studiofit/frontdesk-api/internal/adapters/memory/clock"
	memevents "github.com/studiofit/frontdesk-api/internal/adapters/memory/events"
	memwaitlistrepo "github.com/studiofit/frontdesk-api/internal/adapters/memory/waitlistrepo"
	"github.com/studiofit/frontdesk-api/internal/app/apperr"
	"github.com/studiofit/frontdesk-api/internal/domain"
	"github.com/studiofit/frontdesk-api/internal/ports/out/events"
)

func newTestService(t *testing.T) (*Service, *memwaitlistrepo.Repo, *memevents.Recorder, *memclock.ManualClock) {
	t.Helper()
	repo := memwaitlistrepo.NewRepo()
	rec := memevents.NewRecorder()
	clk := memclock.NewManualClock(time.Date(2026, 10, 13, 12, 0, 0, 0, time.UTC))
	return NewService(repo, clk, WithPublisher(rec)), repo, rec, clk
}

func join(name string) JoinInput {
	return JoinInput{
		FullName:       name,
		Email:          name + "@example.com",
		Phone:          "+55 11 91234-5678",
		PreferredShift: domain.ShiftEvening,
		Goal:           "conditioning",
	}
}

func positions(t *testing.T, svc *Service) map[domain.WaitlistEntryID]int {
	t.Helper()
	es, err := svc.List(context.Background(), domain.WaitlistStatusWaiting)
	require.NoError(t, err)
	out := make(map[domain.WaitlistEntryID]int, len(es))
	for i, e := range es {
		require.Equal(t, i+1, e.Position, "positions must be 1..N in order")
		out[e.ID] = e.Position
	}
	return out
}

func TestPromote_ClosesGap(t *testing.T) {
	t.Parallel()
	svc, _, rec, clk := newTestService(t)
	ctx := context.Background()

	var ids []domain.WaitlistEntryID
	for i, name := range []string{"ana", "bruno", "carla"} {
		e, err := svc.Enqueue(ctx, join(name))
		require.NoError(t, err)
		assert.Equal(t, i+1, e.Position)
		assert.Equal(t, domain.WaitlistStatusWaiting, e.Status)
		ids = append(ids, e.ID)
		clk.Advance(time.Minute)
	}

	promoted, err := svc.Promote(ctx, ids[1], "member-42")
	require.NoError(t, err)
	assert.Equal(t, domain.WaitlistStatusEnrolled, promoted.Status)
	assert.Equal(t, 0, promoted.Position)
	require.NotNil(t, promoted.EnrolledMemberID)
	assert.Equal(t, domain.MemberID("member-42"), *promoted.EnrolledMemberID)
	require.NotNil(t, promoted.EnrolledAt)
	assert.True(t, promoted.EnrolledAt.Equal(clk.Now()))

	assert.Equal(t, map[domain.WaitlistEntryID]int{ids[0]: 1, ids[2]: 2}, positions(t, svc))

	assert.Len(t, rec.OfType(events.TypeWaitlistJoined), 3)
	enrolled := rec.OfType(events.TypeWaitlistEnrolled)
	require.Len(t, enrolled, 1)
	assert.Equal(t, ids[1], enrolled[0].Payload.(EntryPayload).EntryID)
}

func TestPromote_TwiceIsNotWaiting(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Enqueue(ctx, join("ana"))
	require.NoError(t, err)
	_, err = svc.Promote(ctx, a.ID, "m-1")
	require.NoError(t, err)

	_, err = svc.Promote(ctx, a.ID, "m-1")
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, 409, ae.Status)
	assert.Equal(t, CodeNotWaiting, ae.Code)

	err = svc.Remove(ctx, a.ID)
	ae, ok = apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, CodeNotWaiting, ae.Code)
}

func TestPromote_RequiresMemberID(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService(t)

	a, err := svc.Enqueue(context.Background(), join("ana"))
	require.NoError(t, err)
	_, err = svc.Promote(context.Background(), a.ID, " ")
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, 422, ae.Status)

	got, err := svc.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WaitlistStatusWaiting, got.Status)
}

func TestRemove_RenumbersAndRepeatIsNotWaiting(t *testing.T) {
	t.Parallel()
	svc, _, rec, _ := newTestService(t)
	ctx := context.Background()

	a, _ := svc.Enqueue(ctx, join("ana"))
	b, _ := svc.Enqueue(ctx, join("bruno"))
	c, _ := svc.Enqueue(ctx, join("carla"))

	require.NoError(t, svc.Remove(ctx, a.ID))
	assert.Equal(t, map[domain.WaitlistEntryID]int{b.ID: 1, c.ID: 2}, positions(t, svc))
	assert.Len(t, rec.OfType(events.TypeWaitlistRemoved), 1)

	err := svc.Remove(ctx, a.ID)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, 409, ae.Status)
	assert.Equal(t, CodeNotWaiting, ae.Code)

	_, err = svc.Promote(ctx, a.ID, "m-1")
	ae, ok = apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, CodeNotWaiting, ae.Code)
	assert.Len(t, rec.OfType(events.TypeWaitlistRemoved), 1)
	assert.Empty(t, rec.OfType(events.TypeWaitlistEnrolled))
	assert.Equal(t, map[domain.WaitlistEntryID]int{b.ID: 1, c.ID: 2}, positions(t, svc))

	got, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WaitlistStatusRemoved, got.Status)
	assert.Equal(t, 0, got.Position)

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2, "removed entries are listed only on request")
	gone, err := svc.List(ctx, domain.WaitlistStatusRemoved)
	require.NoError(t, err)
	require.Len(t, gone, 1)
	assert.Equal(t, a.ID, gone[0].ID)

	err = svc.Remove(ctx, "no-such-entry")
	ae, ok = apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, 404, ae.Status)
	assert.Equal(t, CodeEntryNotFound, ae.Code)
}

func TestEnqueue_Validation(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService(t)

	in := join("ana")
	in.Email = "not-an-email"
	in.PreferredShift = "night"
	_, err := svc.Enqueue(context.Background(), in)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, 422, ae.Status)
	assert.Contains(t, ae.Details, "email")
	assert.Contains(t, ae.Details, "preferredShift")

	es, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, es)
}

func TestEnqueue_NormalizesInput(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService(t)

	blank := "   "
	e, err := svc.Enqueue(context.Background(), JoinInput{
		FullName:       "  Ana   Souza ",
		Email:          " Ana@Example.COM ",
		Phone:          " 11 91234-5678 ",
		PreferredShift: " Morning ",
		HealthNotes:    &blank,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", e.FullName)
	assert.Equal(t, "ana@example.com", e.Email)
	assert.Equal(t, domain.ShiftMorning, e.PreferredShift)
	assert.Nil(t, e.HealthNotes)
}

func TestEnqueue_DuplicateEmailWhileWaiting(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Enqueue(ctx, join("ana"))
	require.NoError(t, err)

	again := join("ana")
	again.Email = "ANA@example.com"
	_, err = svc.Enqueue(ctx, again)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, CodeAlreadyOnWaitlist, ae.Code)

	// After enrolling, the same email may join again.
	_, err = svc.Promote(ctx, a.ID, "m-1")
	require.NoError(t, err)
	e, err := svc.Enqueue(ctx, join("ana"))
	require.NoError(t, err)
	assert.Equal(t, 1, e.Position)
}

func TestEnqueue_ConcurrentJoinsGetDistinctPositions(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService(t)

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := svc.Enqueue(context.Background(), join(fmt.Sprintf("p%02d", i))); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Enqueue err=%v", err)
	}
	assert.Len(t, positions(t, svc), n)
}

func TestConcurrentPromoteAndRemoveKeepQueueGapFree(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	var ids []domain.WaitlistEntryID
	for i := 0; i < 20; i++ {
		e, err := svc.Enqueue(ctx, join(fmt.Sprintf("p%02d", i)))
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}

	var wg sync.WaitGroup
	for i, id := range ids {
		if i%3 == 2 {
			continue
		}
		wg.Add(1)
		go func(i int, id domain.WaitlistEntryID) {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = svc.Promote(ctx, id, domain.MemberID(fmt.Sprintf("m-%d", i)))
				return
			}
			_ = svc.Remove(ctx, id)
		}(i, id)
	}
	wg.Wait()

	// Survivors keep their relative order.
	got := positions(t, svc)
	prev := 0
	for i, id := range ids {
		if i%3 != 2 {
			continue
		}
		p, ok := got[id]
		require.True(t, ok, "entry %d missing", i)
		assert.Greater(t, p, prev)
		prev = p
	}
	assert.Len(t, got, 6)
}

func TestStoreFailureLeavesQueueUntouched(t *testing.T) {
	t.Parallel()
	svc, repo, rec, _ := newTestService(t)
	ctx := context.Background()

	a, _ := svc.Enqueue(ctx, join("ana"))
	b, _ := svc.Enqueue(ctx, join("bruno"))
	before := len(rec.Events())

	repo.FailWith(errors.New("disk full"))
	_, err := svc.Promote(ctx, a.ID, "m-1")
	require.Error(t, err)
	assert.True(t, apperr.IsStoreUnavailable(err))
	repo.FailWith(nil)

	assert.Equal(t, map[domain.WaitlistEntryID]int{a.ID: 1, b.ID: 2}, positions(t, svc))
	assert.Len(t, rec.Events(), before)
}

func TestList_InvalidStatus(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newTestService(t)

	_, err := svc.List(context.Background(), "archived")
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, 422, ae.Status)
}
