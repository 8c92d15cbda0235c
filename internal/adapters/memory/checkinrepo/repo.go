package checkinrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/studiofit/frontdesk-api/internal/domain"
	"github.com/studiofit/frontdesk-api/internal/ports/out/checkinrepo"
)

type key struct {
	memberID domain.MemberID
	date     domain.Date
}

// Repo is an in-memory implementation of checkinrepo.Repository.
// It is safe for concurrent use; the (member, date) map key is the uniqueness constraint.
type Repo struct {
	mu sync.RWMutex
	m  map[key]checkinrepo.Record

	failWith error
}

func NewRepo() *Repo {
	return &Repo{m: make(map[key]checkinrepo.Record)}
}

// FailWith makes every subsequent call return err (nil restores normal behavior).
func (r *Repo) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWith = err
}

func (r *Repo) ExistsForDate(ctx context.Context, memberID domain.MemberID, date domain.Date) (bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.failWith != nil {
		return false, r.failWith
	}
	_, ok := r.m[key{memberID: memberID, date: date}]
	return ok, nil
}

func (r *Repo) Insert(ctx context.Context, rec checkinrepo.Record) (checkinrepo.Record, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return checkinrepo.Record{}, r.failWith
	}
	k := key{memberID: rec.MemberID, date: rec.VisitDate}
	if _, ok := r.m[k]; ok {
		return checkinrepo.Record{}, checkinrepo.ErrDuplicate
	}
	r.m[k] = cloneRecord(rec)
	return cloneRecord(rec), nil
}

func (r *Repo) ListByMember(ctx context.Context, memberID domain.MemberID, from, to domain.Date) ([]checkinrepo.Record, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	out := make([]checkinrepo.Record, 0)
	for k, v := range r.m {
		if k.memberID != memberID {
			continue
		}
		if !from.IsZero() && k.date.Before(from) {
			continue
		}
		if !to.IsZero() && k.date.After(to) {
			continue
		}
		out = append(out, cloneRecord(v))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].VisitTimestamp.After(out[j].VisitTimestamp)
	})
	return out, nil
}

func (r *Repo) ListByDate(ctx context.Context, date domain.Date) ([]checkinrepo.Record, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	out := make([]checkinrepo.Record, 0)
	for k, v := range r.m {
		if k.date == date {
			out = append(out, cloneRecord(v))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].VisitTimestamp.Equal(out[j].VisitTimestamp) {
			return out[i].MemberID < out[j].MemberID
		}
		return out[i].VisitTimestamp.Before(out[j].VisitTimestamp)
	})
	return out, nil
}

func cloneRecord(rec checkinrepo.Record) checkinrepo.Record {
	out := rec
	if rec.Notes != nil {
		n := *rec.Notes
		out.Notes = &n
	}
	return out
}
