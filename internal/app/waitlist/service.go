// Package waitlist manages the queue of prospects waiting for a free slot.
//
// Waiting positions always form 1..N in join order. Every mutation that changes the
// queue (join, promote, remove) is delegated to a single atomic repository call.
package waitlist

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/studiofit/frontdesk-api/internal/app/apperr"
	"github.com/studiofit/frontdesk-api/internal/domain"
	"github.com/studiofit/frontdesk-api/internal/platform/logger"
	"github.com/studiofit/frontdesk-api/internal/platform/metrics"
	clockport "github.com/studiofit/frontdesk-api/internal/ports/out/clock"
	"github.com/studiofit/frontdesk-api/internal/ports/out/events"
	"github.com/studiofit/frontdesk-api/internal/ports/out/waitlistrepo"
)

const (
	CodeEntryNotFound     = "WAITLIST_ENTRY_NOT_FOUND"
	CodeNotWaiting        = "NOT_WAITING"
	CodeAlreadyOnWaitlist = "ALREADY_ON_WAITLIST"
)

// JoinInput is what a prospect submits from the public form.
type JoinInput struct {
	FullName       string       `json:"fullName" validate:"required,max=200"`
	Email          string       `json:"email" validate:"required,email,max=254"`
	Phone          string       `json:"phone" validate:"required,min=8,max=32"`
	PreferredShift domain.Shift `json:"preferredShift" validate:"required,oneof=morning afternoon evening"`
	Goal           string       `json:"goal" validate:"max=500"`
	HealthNotes    *string      `json:"healthNotes" validate:"omitempty,max=2000"`
}

type Service struct {
	repo     waitlistrepo.Repository
	clk      clockport.Clock
	validate *validator.Validate

	events  events.Publisher
	log     *zap.Logger
	metrics *metrics.Metrics

	newEntryID func() domain.WaitlistEntryID
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = logger.OrNop(l) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.events = p }
}

func NewService(repo waitlistrepo.Repository, clk clockport.Clock, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		clk:      clk,
		validate: apperr.NewValidator(),
		log:      zap.NewNop(),
		newEntryID: func() domain.WaitlistEntryID {
			return domain.WaitlistEntryID(uuid.NewString())
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetNewEntryIDForTest overrides entry ID generation for deterministic tests.
func (s *Service) SetNewEntryIDForTest(fn func() domain.WaitlistEntryID) {
	if fn != nil {
		s.newEntryID = fn
	}
}

// Enqueue appends a validated entry at the back of the queue.
func (s *Service) Enqueue(ctx context.Context, in JoinInput) (domain.WaitlistEntry, error) {
	in.FullName = domain.NormalizeHumanName(in.FullName)
	in.Email = domain.NormalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Goal = strings.TrimSpace(in.Goal)
	in.PreferredShift = domain.Shift(strings.ToLower(strings.TrimSpace(string(in.PreferredShift))))
	if in.HealthNotes != nil {
		v := strings.TrimSpace(*in.HealthNotes)
		if v == "" {
			in.HealthNotes = nil
		} else {
			in.HealthNotes = &v
		}
	}
	if err := s.validate.Struct(in); err != nil {
		s.metrics.WaitlistOperation("enqueue", "invalid")
		return domain.WaitlistEntry{}, apperr.FromValidation(err)
	}

	stored, err := s.repo.Append(ctx, waitlistrepo.Entry{
		ID:             s.newEntryID(),
		FullName:       in.FullName,
		Email:          in.Email,
		Phone:          in.Phone,
		PreferredShift: in.PreferredShift,
		Goal:           in.Goal,
		HealthNotes:    in.HealthNotes,
		CreatedAt:      s.clk.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, waitlistrepo.ErrAlreadyWaiting) {
			s.metrics.WaitlistOperation("enqueue", "conflict")
			return domain.WaitlistEntry{}, apperr.Conflict(CodeAlreadyOnWaitlist, "this email is already on the waiting list")
		}
		return domain.WaitlistEntry{}, s.storeFailure("enqueue", err)
	}

	e := toDomain(stored)
	s.log.Info("waitlist entry joined", zap.String("entryId", string(e.ID)), zap.Int("position", e.Position))
	s.afterMutation(ctx, "enqueue", events.Event{
		Type:       events.TypeWaitlistJoined,
		OccurredAt: e.CreatedAt,
		Payload:    EntryPayload{EntryID: e.ID, Email: e.Email, Position: e.Position},
	})
	return e, nil
}

// Promote marks a waiting entry as enrolled under memberID and closes the gap it leaves.
func (s *Service) Promote(ctx context.Context, id domain.WaitlistEntryID, memberID domain.MemberID) (domain.WaitlistEntry, error) {
	if strings.TrimSpace(string(memberID)) == "" {
		return domain.WaitlistEntry{}, apperr.Validation("memberId", "is required")
	}
	now := s.clk.Now().UTC()
	stored, err := s.repo.UpdateStatusAndRenumber(ctx, id, waitlistrepo.Enrollment{
		Status:     domain.WaitlistStatusEnrolled,
		EnrolledAt: now,
		MemberID:   memberID,
	})
	if err != nil {
		return domain.WaitlistEntry{}, s.mutationError("promote", id, err)
	}

	e := toDomain(stored)
	s.log.Info("waitlist entry enrolled", zap.String("entryId", string(e.ID)), zap.String("memberId", string(memberID)))
	s.afterMutation(ctx, "promote", events.Event{
		Type:       events.TypeWaitlistEnrolled,
		OccurredAt: now,
		Payload:    EntryPayload{EntryID: e.ID, Email: e.Email, MemberID: &memberID},
	})
	return e, nil
}

// Remove withdraws a waiting entry and closes the gap it leaves. Removing an entry that
// was already removed or enrolled is NOT_WAITING.
func (s *Service) Remove(ctx context.Context, id domain.WaitlistEntryID) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return s.mutationError("remove", id, err)
	}
	if err := s.repo.DeleteAndRenumber(ctx, id); err != nil {
		return s.mutationError("remove", id, err)
	}

	s.log.Info("waitlist entry removed", zap.String("entryId", string(id)))
	s.afterMutation(ctx, "remove", events.Event{
		Type:       events.TypeWaitlistRemoved,
		OccurredAt: s.clk.Now().UTC(),
		Payload:    EntryPayload{EntryID: id, Email: existing.Email},
	})
	return nil
}

func (s *Service) Get(ctx context.Context, id domain.WaitlistEntryID) (domain.WaitlistEntry, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, waitlistrepo.ErrNotFound) {
			return domain.WaitlistEntry{}, apperr.NotFound(CodeEntryNotFound, "waitlist entry not found")
		}
		return domain.WaitlistEntry{}, s.storeFailure("get", err)
	}
	return toDomain(e), nil
}

// List returns entries with status. An empty status lists the waiting and enrolled entries,
// waiting first.
func (s *Service) List(ctx context.Context, status domain.WaitlistStatus) ([]domain.WaitlistEntry, error) {
	switch status {
	case "", domain.WaitlistStatusWaiting, domain.WaitlistStatusEnrolled, domain.WaitlistStatusRemoved:
	default:
		return nil, apperr.Validation("status", "must be one of: waiting, enrolled, removed")
	}
	es, err := s.repo.List(ctx, status)
	if err != nil {
		return nil, s.storeFailure("list", err)
	}
	return lo.Map(es, func(e waitlistrepo.Entry, _ int) domain.WaitlistEntry {
		return toDomain(e)
	}), nil
}

// EntryPayload is the body of waitlist.* events.
type EntryPayload struct {
	EntryID  domain.WaitlistEntryID `json:"entryId"`
	Email    string                 `json:"email"`
	Position int                    `json:"position,omitempty"`
	MemberID *domain.MemberID       `json:"memberId,omitempty"`
}

func (s *Service) mutationError(op string, id domain.WaitlistEntryID, err error) error {
	switch {
	case errors.Is(err, waitlistrepo.ErrNotFound):
		s.metrics.WaitlistOperation(op, "not_found")
		return apperr.NotFound(CodeEntryNotFound, "waitlist entry not found")
	case errors.Is(err, waitlistrepo.ErrNotWaiting):
		s.metrics.WaitlistOperation(op, "not_waiting")
		return &apperr.Error{
			Status:  409,
			Code:    CodeNotWaiting,
			Message: "waitlist entry is no longer waiting",
			Details: map[string]any{"entryId": string(id)},
		}
	default:
		return s.storeFailure(op, err)
	}
}

func (s *Service) storeFailure(op string, err error) error {
	s.metrics.WaitlistOperation(op, "error")
	s.log.Error("waitlist store failure", zap.String("op", op), zap.Error(err))
	return apperr.StoreUnavailable(err)
}

// afterMutation records the success, refreshes the waiting gauge and publishes e.
// None of these can undo the committed change.
func (s *Service) afterMutation(ctx context.Context, op string, e events.Event) {
	s.metrics.WaitlistOperation(op, "ok")
	if n, err := s.repo.MaxPosition(ctx); err == nil {
		s.metrics.SetWaitlistWaiting(n)
	}
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.Warn("publish event failed", zap.String("type", string(e.Type)), zap.Error(err))
	}
}

func toDomain(e waitlistrepo.Entry) domain.WaitlistEntry {
	out := domain.WaitlistEntry{
		ID:             e.ID,
		FullName:       e.FullName,
		Email:          e.Email,
		Phone:          e.Phone,
		PreferredShift: e.PreferredShift,
		Goal:           e.Goal,
		Position:       e.Position,
		Status:         e.Status,
		CreatedAt:      e.CreatedAt,
	}
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
