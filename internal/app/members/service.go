package members

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studiofit/frontdesk-api/internal/app/apperr"
	"github.com/studiofit/frontdesk-api/internal/domain"
	"github.com/studiofit/frontdesk-api/internal/platform/logger"
	clockport "github.com/studiofit/frontdesk-api/internal/ports/out/clock"
	"github.com/studiofit/frontdesk-api/internal/ports/out/memberrepo"
)

const (
	CodeMemberNotFound  = "MEMBER_NOT_FOUND"
	CodeNationalIDInUse = "NATIONAL_ID_IN_USE"
	CodeEmailInUse      = "EMAIL_IN_USE"
)

type Service struct {
	repo     memberrepo.Repository
	clk      clockport.Clock
	loc      *time.Location
	validate *validator.Validate
	log      *zap.Logger

	newMemberID func() domain.MemberID
}

// NewService builds the member service. loc is the studio timezone used to date payments.
func NewService(repo memberrepo.Repository, clk clockport.Clock, loc *time.Location, log *zap.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:     repo,
		clk:      clk,
		loc:      loc,
		validate: apperr.NewValidator(),
		log:      logger.OrNop(log),
		newMemberID: func() domain.MemberID {
			return domain.MemberID(uuid.NewString())
		},
	}
}

// SetNewMemberIDForTest overrides member ID generation for deterministic tests.
func (s *Service) SetNewMemberIDForTest(fn func() domain.MemberID) {
	if fn != nil {
		s.newMemberID = fn
	}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (domain.Member, error) {
	in.FullName = domain.NormalizeHumanName(in.FullName)
	in.NationalID = domain.DigitsOnly(in.NationalID)
	in.Email = domain.NormalizeEmail(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return domain.Member{}, apperr.FromValidation(err)
	}
	if in.LastPaymentDate != nil {
		if err := s.checkPaymentDate(*in.LastPaymentDate); err != nil {
			return domain.Member{}, err
		}
	}

	now := s.clk.Now().UTC()
	m := memberrepo.Member{
		ID:              s.newMemberID(),
		FullName:        in.FullName,
		NationalID:      in.NationalID,
		Email:           in.Email,
		FeeDueDay:       in.FeeDueDay,
		PaidFlag:        in.PaidFlag,
		LastPaymentDate: cloneDate(in.LastPaymentDate),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return domain.Member{}, s.writeError("create", err)
	}
	s.log.Info("member registered", zap.String("memberId", string(m.ID)), zap.Int("feeDueDay", m.FeeDueDay))
	return toDomain(m), nil
}

func (s *Service) Get(ctx context.Context, id domain.MemberID) (domain.Member, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return domain.Member{}, err
	}
	return toDomain(m), nil
}

// memberFields carries the validated subset of a member after a patch is applied.
type memberFields struct {
	FullName   string `json:"fullName" validate:"required,max=200"`
	NationalID string `json:"nationalId" validate:"len=11,numeric"`
	Email      string `json:"email" validate:"required,email,max=254"`
	FeeDueDay  int    `json:"feeDueDay" validate:"gte=1,lte=31"`
}

func (s *Service) Update(ctx context.Context, id domain.MemberID, in UpdateInput) (domain.Member, error) {
	for field, null := range map[string]bool{
		"fullName":   in.FullName.IsNull(),
		"nationalId": in.NationalID.IsNull(),
		"email":      in.Email.IsNull(),
		"feeDueDay":  in.FeeDueDay.IsNull(),
		"paidFlag":   in.PaidFlag.IsNull(),
	} {
		if null {
			return domain.Member{}, apperr.Validation(field, "cannot be null")
		}
	}

	m, err := s.load(ctx, id)
	if err != nil {
		return domain.Member{}, err
	}

	f := memberFields{FullName: m.FullName, NationalID: m.NationalID, Email: m.Email, FeeDueDay: m.FeeDueDay}
	if in.FullName.IsSpecified() {
		f.FullName = domain.NormalizeHumanName(in.FullName.Value())
	}
	if in.NationalID.IsSpecified() {
		f.NationalID = domain.DigitsOnly(in.NationalID.Value())
	}
	if in.Email.IsSpecified() {
		f.Email = domain.NormalizeEmail(in.Email.Value())
	}
	if in.FeeDueDay.IsSpecified() {
		f.FeeDueDay = in.FeeDueDay.Value()
	}
	if err := s.validate.Struct(f); err != nil {
		return domain.Member{}, apperr.FromValidation(err)
	}
	m.FullName, m.NationalID, m.Email, m.FeeDueDay = f.FullName, f.NationalID, f.Email, f.FeeDueDay

	if in.PaidFlag.IsSpecified() {
		m.PaidFlag = in.PaidFlag.Value()
	}
	if in.LastPaymentDate.IsSpecified() {
		if in.LastPaymentDate.IsNull() {
			m.LastPaymentDate = nil
		} else {
			d := in.LastPaymentDate.Value()
			if err := s.checkPaymentDate(d); err != nil {
				return domain.Member{}, err
			}
			m.LastPaymentDate = &d
		}
	}

	m.UpdatedAt = s.clk.Now().UTC()
	if err := s.repo.Update(ctx, m); err != nil {
		return domain.Member{}, s.writeError("update", err)
	}
	return toDomain(m), nil
}

// RecordPayment marks the current cycle paid on paidOn. A zero paidOn means today in the
// studio timezone.
func (s *Service) RecordPayment(ctx context.Context, id domain.MemberID, paidOn domain.Date) (domain.Member, error) {
	if paidOn.IsZero() {
		paidOn = domain.DateOf(s.clk.Now(), s.loc)
	}
	if err := s.checkPaymentDate(paidOn); err != nil {
		return domain.Member{}, err
	}

	m, err := s.load(ctx, id)
	if err != nil {
		return domain.Member{}, err
	}
	m.PaidFlag = true
	m.LastPaymentDate = &paidOn
	m.UpdatedAt = s.clk.Now().UTC()
	if err := s.repo.Update(ctx, m); err != nil {
		return domain.Member{}, s.writeError("record payment", err)
	}
	s.log.Info("payment recorded", zap.String("memberId", string(id)), zap.String("paidOn", paidOn.String()))
	return toDomain(m), nil
}

// MarkUnpaid clears the paid flag, keeping the last payment date for history.
func (s *Service) MarkUnpaid(ctx context.Context, id domain.MemberID) (domain.Member, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return domain.Member{}, err
	}
	m.PaidFlag = false
	m.UpdatedAt = s.clk.Now().UTC()
	if err := s.repo.Update(ctx, m); err != nil {
		return domain.Member{}, s.writeError("mark unpaid", err)
	}
	s.log.Info("member marked unpaid", zap.String("memberId", string(id)))
	return toDomain(m), nil
}

func (s *Service) checkPaymentDate(d domain.Date) error {
	today := domain.DateOf(s.clk.Now(), s.loc)
	if d.After(today) {
		return apperr.Validation("lastPaymentDate", "cannot be in the future")
	}
	return nil
}

func (s *Service) load(ctx context.Context, id domain.MemberID) (memberrepo.Member, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return memberrepo.Member{}, apperr.NotFound(CodeMemberNotFound, "member not found")
		}
		s.log.Error("member store failure", zap.String("op", "get"), zap.Error(err))
		return memberrepo.Member{}, apperr.StoreUnavailable(err)
	}
	return m, nil
}

func (s *Service) writeError(op string, err error) error {
	switch {
	case errors.Is(err, memberrepo.ErrNationalIDTaken):
		return apperr.Conflict(CodeNationalIDInUse, "national id is already registered to another member")
	case errors.Is(err, memberrepo.ErrEmailTaken):
		return apperr.Conflict(CodeEmailInUse, "email address is already in use")
	case errors.Is(err, memberrepo.ErrNotFound):
		return apperr.NotFound(CodeMemberNotFound, "member not found")
	default:
		s.log.Error("member store failure", zap.String("op", op), zap.Error(err))
		return apperr.StoreUnavailable(err)
	}
}

func toDomain(m memberrepo.Member) domain.Member {
	return domain.Member{
		ID:              m.ID,
		FullName:        m.FullName,
		NationalID:      m.NationalID,
		Email:           m.Email,
		FeeDueDay:       m.FeeDueDay,
		PaidFlag:        m.PaidFlag,
		LastPaymentDate: cloneDate(m.LastPaymentDate),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func cloneDate(p *domain.Date) *domain.Date {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
