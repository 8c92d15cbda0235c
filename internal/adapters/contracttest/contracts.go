package contracttest

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/studiofit/frontdesk-api/internal/domain"
	checkinrepoport "github.com/studiofit/frontdesk-api/internal/ports/out/checkinrepo"
	idempotencyport "github.com/studiofit/frontdesk-api/internal/ports/out/idempotency"
	memberrepoport "github.com/studiofit/frontdesk-api/internal/ports/out/memberrepo"
	waitlistrepoport "github.com/studiofit/frontdesk-api/internal/ports/out/waitlistrepo"
)

type CleanupFunc = func()

type MemberRepoFactory func(t *testing.T) (memberrepoport.Repository, CleanupFunc)
type CheckInRepoFactory func(t *testing.T) (checkinrepoport.Repository, CleanupFunc)
type WaitlistRepoFactory func(t *testing.T) (waitlistrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

// NewMember returns a valid member record with unique keys, suitable for seeding any backend.
func NewMember(feeDueDay int) memberrepoport.Member {
	id := uuid.NewString()
	now := time.Unix(1000, 0).UTC()
	return memberrepoport.Member{
		ID:         domain.MemberID(id),
		FullName:   "Member " + id[:8],
		NationalID: randomNationalID(),
		Email:      id[:8] + "@example.com",
		FeeDueDay:  feeDueDay,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func randomNationalID() string {
	return fmt.Sprintf("%011d", rand.Int63n(1e11))
}

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      idempotencyport.Key("k-" + uuid.NewString()),
		Subject:  domain.SubjectID("staff-1"),
		Method:   "POST",
		Route:    "/waitlist/{entryId}/promote",
		BodyHash: "",
	}
	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Now().UTC(),
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get(unknown) ok=%v err=%v, want miss", ok, err)
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// Body hash is part of the identity.
	other := fp
	other.BodyHash = "different"
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("Get(other body) ok=%v err=%v, want miss", ok, err)
	}
}

func RunMemberRepo(t *testing.T, newRepo MemberRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	a := NewMember(5)
	paid := domain.NewDate(2026, time.October, 5)
	a.PaidFlag = true
	a.LastPaymentDate = &paid
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create a: %v", err)
	}
	got, err := repo.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.NationalID != a.NationalID || got.FeeDueDay != 5 || !got.PaidFlag || got.LastPaymentDate == nil || *got.LastPaymentDate != paid {
		t.Fatalf("GetByID()=%+v, want %+v", got, a)
	}
	if _, err := repo.FindByNationalID(ctx, a.NationalID); err != nil {
		t.Fatalf("FindByNationalID: %v", err)
	}
	if _, err := repo.FindByEmail(ctx, a.Email); err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if _, err := repo.FindByEmail(ctx, "nobody-"+uuid.NewString()+"@example.com"); !errors.Is(err, memberrepoport.ErrNotFound) {
		t.Fatalf("FindByEmail(unknown) err=%v, want ErrNotFound", err)
	}
	if _, err := repo.GetByID(ctx, domain.MemberID(uuid.NewString())); !errors.Is(err, memberrepoport.ErrNotFound) {
		t.Fatalf("GetByID(unknown) err=%v, want ErrNotFound", err)
	}

	// Unique keys.
	dupNational := NewMember(10)
	dupNational.NationalID = a.NationalID
	if err := repo.Create(ctx, dupNational); !errors.Is(err, memberrepoport.ErrNationalIDTaken) {
		t.Fatalf("Create(dup national id) err=%v, want ErrNationalIDTaken", err)
	}
	dupEmail := NewMember(10)
	dupEmail.Email = a.Email
	if err := repo.Create(ctx, dupEmail); !errors.Is(err, memberrepoport.ErrEmailTaken) {
		t.Fatalf("Create(dup email) err=%v, want ErrEmailTaken", err)
	}

	// Update billing facts and clear the payment date.
	a.PaidFlag = false
	a.LastPaymentDate = nil
	a.UpdatedAt = time.Unix(2000, 0).UTC()
	if err := repo.Update(ctx, a); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err = repo.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID after update: %v", err)
	}
	if got.PaidFlag || got.LastPaymentDate != nil {
		t.Fatalf("after update=%+v, want unpaid with no payment date", got)
	}

	b := NewMember(20)
	if err := repo.Create(ctx, b); err != nil {
		t.Fatalf("Create b: %v", err)
	}
	b.Email = a.Email
	if err := repo.Update(ctx, b); !errors.Is(err, memberrepoport.ErrEmailTaken) {
		t.Fatalf("Update(steal email) err=%v, want ErrEmailTaken", err)
	}
}

// RunCheckInRepo exercises the daily uniqueness constraint, including the concurrent insert race.
func RunCheckInRepo(t *testing.T, newMemberRepo MemberRepoFactory, newRepo CheckInRepoFactory) {
	t.Helper()
	ctx := context.Background()

	members, mCleanup := newMemberRepo(t)
	if mCleanup != nil {
		t.Cleanup(mCleanup)
	}
	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	m := NewMember(5)
	if err := members.Create(ctx, m); err != nil {
		t.Fatalf("seed member: %v", err)
	}

	day := domain.NewDate(2026, time.October, 14)
	rec := checkinrepoport.Record{
		ID:             domain.CheckInID(uuid.NewString()),
		MemberID:       m.ID,
		VisitDate:      day,
		VisitTimestamp: time.Date(2026, 10, 14, 11, 0, 0, 0, time.UTC),
		Method:         domain.CheckInMethodEmail,
		PerformedBy:    domain.PerformedBySelf,
	}

	if ok, err := repo.ExistsForDate(ctx, m.ID, day); err != nil || ok {
		t.Fatalf("ExistsForDate(before) ok=%v err=%v", ok, err)
	}
	if _, err := repo.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if ok, err := repo.ExistsForDate(ctx, m.ID, day); err != nil || !ok {
		t.Fatalf("ExistsForDate(after) ok=%v err=%v", ok, err)
	}
	if ok, err := repo.ExistsForDate(ctx, m.ID, day.AddDays(1)); err != nil || ok {
		t.Fatalf("ExistsForDate(next day) ok=%v err=%v", ok, err)
	}

	dup := rec
	dup.ID = domain.CheckInID(uuid.NewString())
	dup.VisitTimestamp = rec.VisitTimestamp.Add(3 * time.Hour)
	if _, err := repo.Insert(ctx, dup); !errors.Is(err, checkinrepoport.ErrDuplicate) {
		t.Fatalf("Insert(dup) err=%v, want ErrDuplicate", err)
	}

	// Concurrent inserts for the same (member, date): exactly one wins.
	race := domain.NewDate(2026, time.October, 15)
	const n = 8
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		wins, dups int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Insert(ctx, checkinrepoport.Record{
				ID:             domain.CheckInID(uuid.NewString()),
				MemberID:       m.ID,
				VisitDate:      race,
				VisitTimestamp: time.Date(2026, 10, 15, 10, i, 0, 0, time.UTC),
				Method:         domain.CheckInMethodNationalID,
				PerformedBy:    domain.PerformedBySelf,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, checkinrepoport.ErrDuplicate):
				dups++
			default:
				t.Errorf("Insert(race) unexpected err=%v", err)
			}
		}(i)
	}
	wg.Wait()
	if wins != 1 || dups != n-1 {
		t.Fatalf("race wins=%d dups=%d, want 1/%d", wins, dups, n-1)
	}

	notes := "guest pass"
	later := checkinrepoport.Record{
		ID:             domain.CheckInID(uuid.NewString()),
		MemberID:       m.ID,
		VisitDate:      domain.NewDate(2026, time.October, 16),
		VisitTimestamp: time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC),
		Method:         domain.CheckInMethodNationalID,
		PerformedBy:    "staff-1",
		Notes:          &notes,
	}
	if _, err := repo.Insert(ctx, later); err != nil {
		t.Fatalf("Insert(later): %v", err)
	}

	history, err := repo.ListByMember(ctx, m.ID, domain.Date{}, domain.Date{})
	if err != nil {
		t.Fatalf("ListByMember: %v", err)
	}
	if len(history) != 3 || history[0].VisitDate != later.VisitDate {
		t.Fatalf("ListByMember()=%+v, want 3 newest first", history)
	}
	if history[0].Notes == nil || *history[0].Notes != notes || history[0].PerformedBy != "staff-1" {
		t.Fatalf("ListByMember()[0]=%+v, notes/performedBy not round-tripped", history[0])
	}

	window, err := repo.ListByMember(ctx, m.ID, day, race)
	if err != nil {
		t.Fatalf("ListByMember(window): %v", err)
	}
	if len(window) != 2 {
		t.Fatalf("ListByMember(window) len=%d, want 2", len(window))
	}

	onDay, err := repo.ListByDate(ctx, day)
	if err != nil {
		t.Fatalf("ListByDate: %v", err)
	}
	if len(onDay) != 1 || onDay[0].ID != rec.ID || onDay[0].Method != domain.CheckInMethodEmail {
		t.Fatalf("ListByDate()=%+v", onDay)
	}
}

// RunWaitlistRepo expects an empty waiting list.
func RunWaitlistRepo(t *testing.T, newRepo WaitlistRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	if max, err := repo.MaxPosition(ctx); err != nil || max != 0 {
		t.Fatalf("MaxPosition(empty)=%d err=%v, want 0", max, err)
	}

	base := time.Unix(5000, 0).UTC()
	ids := make([]domain.WaitlistEntryID, 0, 4)
	for i := 0; i < 4; i++ {
		e, err := repo.Append(ctx, newEntry(base.Add(time.Duration(i)*time.Minute)))
		if err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
		if e.Position != i+1 || e.Status != domain.WaitlistStatusWaiting {
			t.Fatalf("Append %d => position=%d status=%s", i, e.Position, e.Status)
		}
		ids = append(ids, e.ID)
	}
	if max, err := repo.MaxPosition(ctx); err != nil || max != 4 {
		t.Fatalf("MaxPosition=%d err=%v, want 4", max, err)
	}

	first, err := repo.Get(ctx, ids[0])
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := repo.Append(ctx, withEmail(newEntry(base), first.Email)); !errors.Is(err, waitlistrepoport.ErrAlreadyWaiting) {
		t.Fatalf("Append(dup email) err=%v, want ErrAlreadyWaiting", err)
	}

	// Promote position 2.
	memberID := domain.MemberID(uuid.NewString())
	enrolledAt := base.Add(time.Hour)
	promoted, err := repo.UpdateStatusAndRenumber(ctx, ids[1], waitlistrepoport.Enrollment{
		Status:     domain.WaitlistStatusEnrolled,
		EnrolledAt: enrolledAt,
		MemberID:   memberID,
	})
	if err != nil {
		t.Fatalf("UpdateStatusAndRenumber: %v", err)
	}
	if promoted.Status != domain.WaitlistStatusEnrolled || promoted.Position != 0 ||
		promoted.EnrolledMemberID == nil || *promoted.EnrolledMemberID != memberID ||
		promoted.EnrolledAt == nil || !promoted.EnrolledAt.Equal(enrolledAt) {
		t.Fatalf("promoted=%+v", promoted)
	}
	requirePositions(t, repo, ids[0], ids[2], ids[3])

	if _, err := repo.UpdateStatusAndRenumber(ctx, ids[1], waitlistrepoport.Enrollment{
		Status:     domain.WaitlistStatusEnrolled,
		EnrolledAt: enrolledAt,
		MemberID:   memberID,
	}); !errors.Is(err, waitlistrepoport.ErrNotWaiting) {
		t.Fatalf("second promote err=%v, want ErrNotWaiting", err)
	}
	if err := repo.DeleteAndRenumber(ctx, ids[1]); !errors.Is(err, waitlistrepoport.ErrNotWaiting) {
		t.Fatalf("delete enrolled err=%v, want ErrNotWaiting", err)
	}
	requirePositions(t, repo, ids[0], ids[2], ids[3])

	// Remove the head.
	if err := repo.DeleteAndRenumber(ctx, ids[0]); err != nil {
		t.Fatalf("DeleteAndRenumber: %v", err)
	}
	removed, err := repo.Get(ctx, ids[0])
	if err != nil {
		t.Fatalf("Get(removed): %v", err)
	}
	if removed.Status != domain.WaitlistStatusRemoved || removed.Position != 0 {
		t.Fatalf("removed=%+v, want status removed at position 0", removed)
	}
	if err := repo.DeleteAndRenumber(ctx, ids[0]); !errors.Is(err, waitlistrepoport.ErrNotWaiting) {
		t.Fatalf("DeleteAndRenumber(removed) err=%v, want ErrNotWaiting", err)
	}
	if _, err := repo.UpdateStatusAndRenumber(ctx, ids[0], waitlistrepoport.Enrollment{
		Status:     domain.WaitlistStatusEnrolled,
		EnrolledAt: enrolledAt,
		MemberID:   memberID,
	}); !errors.Is(err, waitlistrepoport.ErrNotWaiting) {
		t.Fatalf("promote removed err=%v, want ErrNotWaiting", err)
	}
	unknown := domain.WaitlistEntryID(uuid.NewString())
	if err := repo.DeleteAndRenumber(ctx, unknown); !errors.Is(err, waitlistrepoport.ErrNotFound) {
		t.Fatalf("DeleteAndRenumber(unknown) err=%v, want ErrNotFound", err)
	}
	if _, err := repo.Get(ctx, unknown); !errors.Is(err, waitlistrepoport.ErrNotFound) {
		t.Fatalf("Get(unknown) err=%v, want ErrNotFound", err)
	}
	requirePositions(t, repo, ids[2], ids[3])

	// A re-join goes to the back.
	again, err := repo.Append(ctx, withEmail(newEntry(base.Add(2*time.Hour)), first.Email))
	if err != nil {
		t.Fatalf("Append(rejoin): %v", err)
	}
	requirePositions(t, repo, ids[2], ids[3], again.ID)

	enrolled, err := repo.List(ctx, domain.WaitlistStatusEnrolled)
	if err != nil {
		t.Fatalf("List(enrolled): %v", err)
	}
	if len(enrolled) != 1 || enrolled[0].ID != ids[1] {
		t.Fatalf("List(enrolled)=%+v", enrolled)
	}
	all, err := repo.List(ctx, "")
	if err != nil {
		t.Fatalf("List(all): %v", err)
	}
	if len(all) != 4 || all[3].ID != ids[1] {
		t.Fatalf("List(all) should end with the enrolled entry: %+v", all)
	}
	gone, err := repo.List(ctx, domain.WaitlistStatusRemoved)
	if err != nil {
		t.Fatalf("List(removed): %v", err)
	}
	if len(gone) != 1 || gone[0].ID != ids[0] {
		t.Fatalf("List(removed)=%+v", gone)
	}
}

func newEntry(createdAt time.Time) waitlistrepoport.Entry {
	id := uuid.NewString()
	notes := "knee surgery 2024"
	return waitlistrepoport.Entry{
		ID:             domain.WaitlistEntryID(id),
		FullName:       "Prospect " + id[:8],
		Email:          "prospect-" + id[:8] + "@example.com",
		Phone:          "+55 11 91234-5678",
		PreferredShift: domain.ShiftMorning,
		Goal:           "strength",
		HealthNotes:    &notes,
		CreatedAt:      createdAt,
	}
}

func withEmail(e waitlistrepoport.Entry, email string) waitlistrepoport.Entry {
	e.Email = email
	return e
}

func requirePositions(t *testing.T, repo waitlistrepoport.Repository, want ...domain.WaitlistEntryID) {
	t.Helper()
	got, err := repo.List(context.Background(), domain.WaitlistStatusWaiting)
	if err != nil {
		t.Fatalf("List(waiting): %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("waiting len=%d, want %d (%+v)", len(got), len(want), got)
	}
	for i, e := range got {
		if e.ID != want[i] || e.Position != i+1 {
			t.Fatalf("waiting[%d]=%s@%d, want %s@%d", i, e.ID, e.Position, want[i], i+1)
		}
	}
}
