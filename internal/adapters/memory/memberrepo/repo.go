package memberrepo

import (
	"context"
	"sync"

	"github.com/studiofit/frontdesk-api/internal/domain"
	"github.com/studiofit/frontdesk-api/internal/ports/out/memberrepo"
)

// Repo is an in-memory implementation of memberrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID         map[domain.MemberID]memberrepo.Member
	idByNational map[string]domain.MemberID
	idByEmail    map[string]domain.MemberID

	// failWith, when set, is returned from every call. Tests use it to simulate an outage.
	failWith error
}

func NewRepo() *Repo {
	return &Repo{
		byID:         make(map[domain.MemberID]memberrepo.Member),
		idByNational: make(map[string]domain.MemberID),
		idByEmail:    make(map[string]domain.MemberID),
	}
}

// FailWith makes every subsequent call return err (nil restores normal behavior).
func (r *Repo) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWith = err
}

func (r *Repo) Create(ctx context.Context, m memberrepo.Member) error {
	_ = ctx
	if m.ID == "" {
		return memberrepo.ErrAlreadyExists // treat empty ID as invalid; app layer assigns IDs
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}

	if _, ok := r.byID[m.ID]; ok {
		return memberrepo.ErrAlreadyExists
	}
	if _, ok := r.idByNational[m.NationalID]; ok {
		return memberrepo.ErrNationalIDTaken
	}
	if _, ok := r.idByEmail[m.Email]; ok {
		return memberrepo.ErrEmailTaken
	}

	r.byID[m.ID] = cloneMember(m)
	r.idByNational[m.NationalID] = m.ID
	r.idByEmail[m.Email] = m.ID
	return nil
}

func (r *Repo) Update(ctx context.Context, m memberrepo.Member) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}

	existing, ok := r.byID[m.ID]
	if !ok {
		return memberrepo.ErrNotFound
	}
	if id, ok := r.idByNational[m.NationalID]; ok && id != m.ID {
		return memberrepo.ErrNationalIDTaken
	}
	if id, ok := r.idByEmail[m.Email]; ok && id != m.ID {
		return memberrepo.ErrEmailTaken
	}

	delete(r.idByNational, existing.NationalID)
	delete(r.idByEmail, existing.Email)
	r.byID[m.ID] = cloneMember(m)
	r.idByNational[m.NationalID] = m.ID
	r.idByEmail[m.Email] = m.ID
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.MemberID) (memberrepo.Member, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.failWith != nil {
		return memberrepo.Member{}, r.failWith
	}
	m, ok := r.byID[id]
	if !ok {
		return memberrepo.Member{}, memberrepo.ErrNotFound
	}
	return cloneMember(m), nil
}

func (r *Repo) FindByNationalID(ctx context.Context, nationalID string) (memberrepo.Member, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookupLocked(r.idByNational, nationalID)
}

func (r *Repo) FindByEmail(ctx context.Context, email string) (memberrepo.Member, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookupLocked(r.idByEmail, email)
}

func (r *Repo) lookupLocked(index map[string]domain.MemberID, key string) (memberrepo.Member, error) {
	if r.failWith != nil {
		return memberrepo.Member{}, r.failWith
	}
	id, ok := index[key]
	if !ok {
		return memberrepo.Member{}, memberrepo.ErrNotFound
	}
	m, ok := r.byID[id]
	if !ok {
		return memberrepo.Member{}, memberrepo.ErrNotFound
	}
	return cloneMember(m), nil
}

func cloneMember(m memberrepo.Member) memberrepo.Member {
	out := m
	if m.LastPaymentDate != nil {
		d := *m.LastPaymentDate
		out.LastPaymentDate = &d
	}
	return out
}
