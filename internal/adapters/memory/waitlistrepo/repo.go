package waitlistrepo

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/studiofit/frontdesk-api/internal/domain"
	"github.com/studiofit/frontdesk-api/internal/ports/out/waitlistrepo"
)

// Repo is an in-memory implementation of waitlistrepo.Repository.
//
// Every mutation runs inside one critical section and builds the next state before
// swapping it in, so readers never observe a half-renumbered queue.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.WaitlistEntryID]waitlistrepo.Entry

	failWith error
}

func NewRepo() *Repo {
	return &Repo{byID: make(map[domain.WaitlistEntryID]waitlistrepo.Entry)}
}

// FailWith makes every subsequent call return err (nil restores normal behavior).
func (r *Repo) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWith = err
}

func (r *Repo) MaxPosition(ctx context.Context) (int, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.failWith != nil {
		return 0, r.failWith
	}
	return r.maxPositionLocked(), nil
}

func (r *Repo) Append(ctx context.Context, e waitlistrepo.Entry) (waitlistrepo.Entry, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return waitlistrepo.Entry{}, r.failWith
	}
	if e.ID == "" {
		return waitlistrepo.Entry{}, errors.New("waitlist entry id is required")
	}
	for _, cur := range r.byID {
		if cur.Status == domain.WaitlistStatusWaiting && cur.Email == e.Email {
			return waitlistrepo.Entry{}, waitlistrepo.ErrAlreadyWaiting
		}
	}

	e.Status = domain.WaitlistStatusWaiting
	e.Position = r.maxPositionLocked() + 1
	e.EnrolledAt = nil
	e.EnrolledMemberID = nil
	r.byID[e.ID] = cloneEntry(e)
	return cloneEntry(e), nil
}

func (r *Repo) Get(ctx context.Context, id domain.WaitlistEntryID) (waitlistrepo.Entry, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.failWith != nil {
		return waitlistrepo.Entry{}, r.failWith
	}
	e, ok := r.byID[id]
	if !ok {
		return waitlistrepo.Entry{}, waitlistrepo.ErrNotFound
	}
	return cloneEntry(e), nil
}

func (r *Repo) List(ctx context.Context, status domain.WaitlistStatus) ([]waitlistrepo.Entry, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	out := make([]waitlistrepo.Entry, 0, len(r.byID))
	for _, e := range r.byID {
		if status == "" && e.Status == domain.WaitlistStatusRemoved {
			continue
		}
		if status != "" && e.Status != status {
			continue
		}
		out = append(out, cloneEntry(e))
	}
	sortEntries(out)
	return out, nil
}

func (r *Repo) UpdateStatusAndRenumber(ctx context.Context, id domain.WaitlistEntryID, change waitlistrepo.Enrollment) (waitlistrepo.Entry, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return waitlistrepo.Entry{}, r.failWith
	}

	e, ok := r.byID[id]
	if !ok {
		return waitlistrepo.Entry{}, waitlistrepo.ErrNotFound
	}
	if e.Status != domain.WaitlistStatusWaiting {
		return waitlistrepo.Entry{}, waitlistrepo.ErrNotWaiting
	}

	next := r.renumberedLocked(e.Position)
	enrolledAt := change.EnrolledAt
	memberID := change.MemberID
	e.Status = change.Status
	e.Position = 0
	e.EnrolledAt = &enrolledAt
	e.EnrolledMemberID = &memberID
	next[id] = e

	r.byID = next
	return cloneEntry(e), nil
}

func (r *Repo) DeleteAndRenumber(ctx context.Context, id domain.WaitlistEntryID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}

	e, ok := r.byID[id]
	if !ok {
		return waitlistrepo.ErrNotFound
	}
	if e.Status != domain.WaitlistStatusWaiting {
		return waitlistrepo.ErrNotWaiting
	}

	next := r.renumberedLocked(e.Position)
	e.Status = domain.WaitlistStatusRemoved
	e.Position = 0
	next[id] = e
	r.byID = next
	return nil
}

// renumberedLocked returns a copy of the store with every waiting entry behind vacated
// moved up by one.
func (r *Repo) renumberedLocked(vacated int) map[domain.WaitlistEntryID]waitlistrepo.Entry {
	next := make(map[domain.WaitlistEntryID]waitlistrepo.Entry, len(r.byID))
	for id, e := range r.byID {
		if e.Status == domain.WaitlistStatusWaiting && e.Position > vacated {
			e.Position--
		}
		next[id] = e
	}
	return next
}

func (r *Repo) maxPositionLocked() int {
	max := 0
	for _, e := range r.byID {
		if e.Status == domain.WaitlistStatusWaiting && e.Position > max {
			max = e.Position
		}
	}
	return max
}

func sortEntries(es []waitlistrepo.Entry) {
	sort.Slice(es, func(i, j int) bool {
		a, b := es[i], es[j]
		aw := a.Status == domain.WaitlistStatusWaiting
		bw := b.Status == domain.WaitlistStatusWaiting
		if aw != bw {
			return aw
		}
		if aw {
			return a.Position < b.Position
		}
		if a.EnrolledAt != nil && b.EnrolledAt != nil && !a.EnrolledAt.Equal(*b.EnrolledAt) {
			return a.EnrolledAt.Before(*b.EnrolledAt)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

func cloneEntry(e waitlistrepo.Entry) waitlistrepo.Entry {
	out := e
	if e.HealthNotes != nil {
		v := *e.HealthNotes
		out.HealthNotes = &v
	}
	if e.EnrolledAt != nil {
		v := *e.EnrolledAt
		out.EnrolledAt = &v
	}
	if e.EnrolledMemberID != nil {
		v := *e.EnrolledMemberID
		out.EnrolledMemberID = &v
	}
	return out
}
