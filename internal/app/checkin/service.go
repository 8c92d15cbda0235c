// Package checkin decides whether a member may check in and records the visit when allowed.
//
// Evaluate runs four gates in order and stops at the first that denies:
// identifier resolution, the weekday rule, one visit per local day, and billing standing.
package checkin

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/studiofit/frontdesk-api/internal/app/apperr"
	"github.com/studiofit/frontdesk-api/internal/app/billing"
	"github.com/studiofit/frontdesk-api/internal/app/identify"
	"github.com/studiofit/frontdesk-api/internal/domain"
	"github.com/studiofit/frontdesk-api/internal/platform/logger"
	"github.com/studiofit/frontdesk-api/internal/platform/metrics"
	"github.com/studiofit/frontdesk-api/internal/ports/out/checkinrepo"
	clockport "github.com/studiofit/frontdesk-api/internal/ports/out/clock"
	"github.com/studiofit/frontdesk-api/internal/ports/out/events"
	"github.com/studiofit/frontdesk-api/internal/ports/out/memberrepo"
)

type Service struct {
	members  memberrepo.Repository
	resolver *identify.Resolver
	checkins checkinrepo.Repository
	clk      clockport.Clock
	cfg      Config

	events  events.Publisher
	log     *zap.Logger
	metrics *metrics.Metrics

	newCheckInID func() domain.CheckInID
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

func NewService(members memberrepo.Repository, checkins checkinrepo.Repository, clk clockport.Clock, cfg Config, opts ...Option) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	s := &Service{
		members:  members,
		resolver: identify.NewResolver(members),
		checkins: checkins,
		clk:      clk,
		cfg:      cfg,
		log:      zap.NewNop(),
		newCheckInID: func() domain.CheckInID {
			return domain.CheckInID(uuid.NewString())
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetNewCheckInIDForTest overrides check-in ID generation for deterministic tests.
func (s *Service) SetNewCheckInIDForTest(fn func() domain.CheckInID) {
	if fn != nil {
		s.newCheckInID = fn
	}
}

type EvaluateInput struct {
	Identifier string
	// At is the reference instant. Zero means the injected clock's now.
	At     time.Time
	Policy Policy
	// PerformedBy is domain.PerformedBySelf or the operator's subject.
	PerformedBy string
	Notes       *string
}

// Evaluate decides a check-in and stores the visit on allow.
//
// Denials are returned as a Decision with a nil error. A non-nil error is either a
// validation error for the input itself or a store failure (apperr.ErrStoreUnavailable);
// a store failure is never reported as a denial.
func (s *Service) Evaluate(ctx context.Context, in EvaluateInput) (Decision, error) {
	tolerance, err := s.cfg.tolerance(in.Policy)
	if err != nil {
		return Decision{}, apperr.Validation("policy", err.Error())
	}
	at := in.At
	if at.IsZero() {
		at = s.clk.Now()
	}

	res, err := s.resolver.Resolve(ctx, in.Identifier)
	switch {
	case errors.Is(err, identify.ErrInvalidFormat):
		return s.deny(in.Policy, "", Denial{Reason: ReasonIdentifierNotRecognized, Detail: DetailInvalidFormat}), nil
	case errors.Is(err, identify.ErrNotFound):
		return s.deny(in.Policy, "", Denial{Reason: ReasonIdentifierNotRecognized, Detail: DetailNotFound}), nil
	case err != nil:
		return Decision{}, s.storeFailure("resolve identifier", err)
	}
	member := res.Member

	today := domain.DateOf(at, s.cfg.Location)
	if n := daysUntilMonday(today.Weekday()); n > 0 {
		next := today.AddDays(n)
		return s.deny(in.Policy, member.ID, Denial{Reason: ReasonStudioClosedWeekend, NextOpenDate: &next}), nil
	}

	exists, err := s.checkins.ExistsForDate(ctx, member.ID, today)
	if err != nil {
		return Decision{}, s.storeFailure("check daily visit", err)
	}
	if exists {
		return s.deny(in.Policy, member.ID, Denial{Reason: ReasonAlreadyCheckedInToday}), nil
	}

	standing := billing.Compute(billing.TermsOf(toDomainMember(member)), today)
	if !withinTolerance(standing.UpToDate, standing.DaysOverdue, tolerance) {
		return s.deny(in.Policy, member.ID, Denial{Reason: ReasonPaymentOverdue, DaysOverdue: standing.DaysOverdue}), nil
	}

	performedBy := in.PerformedBy
	if performedBy == "" {
		performedBy = domain.PerformedBySelf
	}
	stored, err := s.checkins.Insert(ctx, checkinrepo.Record{
		ID:             s.newCheckInID(),
		MemberID:       member.ID,
		VisitDate:      today,
		VisitTimestamp: at.UTC(),
		Method:         res.Method,
		PerformedBy:    performedBy,
		Notes:          cloneStringPtr(in.Notes),
	})
	if err != nil {
		if errors.Is(err, checkinrepo.ErrDuplicate) {
			// A concurrent evaluation for the same member and day won the insert.
			return s.deny(in.Policy, member.ID, Denial{Reason: ReasonAlreadyCheckedInToday}), nil
		}
		return Decision{}, s.storeFailure("insert check-in", err)
	}

	rec := toDomainRecord(stored)
	s.metrics.CheckInDecision(string(in.Policy), string(OutcomeAllowed), "")
	s.log.Info("check-in allowed",
		zap.String("memberId", string(rec.MemberID)),
		zap.String("policy", string(in.Policy)),
		zap.String("visitDate", rec.VisitDate.String()),
		zap.String("performedBy", rec.PerformedBy),
		zap.Int("daysOverdue", standing.DaysOverdue),
	)
	s.publish(ctx, events.Event{
		Type:       events.TypeCheckInRecorded,
		OccurredAt: rec.VisitTimestamp,
		Payload: CheckInRecordedPayload{
			CheckInID:   rec.ID,
			MemberID:    rec.MemberID,
			VisitDate:   rec.VisitDate,
			Method:      rec.Method,
			PerformedBy: rec.PerformedBy,
		},
	})
	return allowed(rec), nil
}

// CheckInRecordedPayload is the body of a checkin.recorded event.
type CheckInRecordedPayload struct {
	CheckInID   domain.CheckInID     `json:"checkInId"`
	MemberID    domain.MemberID      `json:"memberId"`
	VisitDate   domain.Date          `json:"visitDate"`
	Method      domain.CheckInMethod `json:"method"`
	PerformedBy string               `json:"performedBy"`
}

// StandingReport answers "is this member paid up" without recording anything.
type StandingReport struct {
	Member   domain.Member
	Date     domain.Date
	Standing billing.Standing
}

// Standing resolves identifier and computes billing standing on the studio-local date of at
// (zero at means now).
func (s *Service) Standing(ctx context.Context, identifier string, at time.Time) (StandingReport, error) {
	res, err := s.resolver.Resolve(ctx, identifier)
	if err != nil {
		return StandingReport{}, s.resolveError(err)
	}
	if at.IsZero() {
		at = s.clk.Now()
	}
	return s.standingOf(res.Member, domain.DateOf(at, s.cfg.Location)), nil
}

// StandingOn is Standing for a studio-local calendar date. A zero date means today.
func (s *Service) StandingOn(ctx context.Context, identifier string, date domain.Date) (StandingReport, error) {
	if date.IsZero() {
		return s.Standing(ctx, identifier, time.Time{})
	}
	res, err := s.resolver.Resolve(ctx, identifier)
	if err != nil {
		return StandingReport{}, s.resolveError(err)
	}
	return s.standingOf(res.Member, date), nil
}

func (s *Service) standingOf(m memberrepo.Member, date domain.Date) StandingReport {
	member := toDomainMember(m)
	return StandingReport{
		Member:   member,
		Date:     date,
		Standing: billing.Compute(billing.TermsOf(member), date),
	}
}

func (s *Service) resolveError(err error) error {
	switch {
	case errors.Is(err, identify.ErrInvalidFormat):
		return apperr.Validation("identifier", "must be an 11-digit CPF or an email address")
	case errors.Is(err, identify.ErrNotFound):
		return apperr.NotFound("MEMBER_NOT_FOUND", "no member matches identifier")
	default:
		return s.storeFailure("resolve identifier", err)
	}
}

// History lists a member's visits between from and to inclusive, newest first.
// Zero bounds are open.
func (s *Service) History(ctx context.Context, memberID domain.MemberID, from, to domain.Date) ([]domain.CheckInRecord, error) {
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return nil, apperr.Validation("from", "must not be after to")
	}
	if _, err := s.members.GetByID(ctx, memberID); err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return nil, apperr.NotFound("MEMBER_NOT_FOUND", "member not found")
		}
		return nil, s.storeFailure("load member", err)
	}
	rs, err := s.checkins.ListByMember(ctx, memberID, from, to)
	if err != nil {
		return nil, s.storeFailure("list member check-ins", err)
	}
	return toDomainRecords(rs), nil
}

// Attendance lists the visits of one studio-local day in arrival order. A zero date means today.
func (s *Service) Attendance(ctx context.Context, date domain.Date) ([]domain.CheckInRecord, error) {
	if date.IsZero() {
		date = domain.DateOf(s.clk.Now(), s.cfg.Location)
	}
	rs, err := s.checkins.ListByDate(ctx, date)
	if err != nil {
		return nil, s.storeFailure("list daily check-ins", err)
	}
	return toDomainRecords(rs), nil
}

// Today is the current studio-local date.
func (s *Service) Today() domain.Date {
	return domain.DateOf(s.clk.Now(), s.cfg.Location)
}

func (s *Service) deny(policy Policy, memberID domain.MemberID, d Denial) Decision {
	s.metrics.CheckInDecision(string(policy), string(OutcomeDenied), string(d.Reason))
	fields := []zap.Field{
		zap.String("policy", string(policy)),
		zap.String("reason", string(d.Reason)),
	}
	if memberID != "" {
		fields = append(fields, zap.String("memberId", string(memberID)))
	}
	if d.Detail != "" {
		fields = append(fields, zap.String("detail", d.Detail))
	}
	if d.Reason == ReasonPaymentOverdue {
		fields = append(fields, zap.Int("daysOverdue", d.DaysOverdue))
	}
	s.log.Info("check-in denied", fields...)
	return denied(d)
}

func (s *Service) storeFailure(op string, err error) error {
	s.log.Error("check-in store failure", zap.String("op", op), zap.Error(err))
	if ae, ok := apperr.As(err); ok && apperr.IsStoreUnavailable(ae) {
		return ae
	}
	return apperr.StoreUnavailable(err)
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.Warn("publish event failed", zap.String("type", string(e.Type)), zap.Error(err))
	}
}

func toDomainMember(m memberrepo.Member) domain.Member {
	out := domain.Member{
		ID:         m.ID,
		FullName:   m.FullName,
		NationalID: m.NationalID,
		Email:      m.Email,
		FeeDueDay:  m.FeeDueDay,
		PaidFlag:   m.PaidFlag,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
	if m.LastPaymentDate != nil {
		d := *m.LastPaymentDate
		out.LastPaymentDate = &d
	}
	return out
}

func toDomainRecord(r checkinrepo.Record) domain.CheckInRecord {
	return domain.CheckInRecord{
		ID:             r.ID,
		MemberID:       r.MemberID,
		VisitDate:      r.VisitDate,
		VisitTimestamp: r.VisitTimestamp,
		Method:         r.Method,
		PerformedBy:    r.PerformedBy,
		Notes:          cloneStringPtr(r.Notes),
	}
}

func toDomainRecords(rs []checkinrepo.Record) []domain.CheckInRecord {
	return lo.Map(rs, func(r checkinrepo.Record, _ int) domain.CheckInRecord {
		return toDomainRecord(r)
	})
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
