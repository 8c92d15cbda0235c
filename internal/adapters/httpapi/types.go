package httpapi

import (
	"time"

	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/samber/lo"

	"github.com/studiofit/frontdesk-api/internal/app/checkin"
	"github.com/studiofit/frontdesk-api/internal/app/members"
	"github.com/studiofit/frontdesk-api/internal/domain"
)

// --- requests ---

type CheckInRequest struct {
	Identifier string  `json:"identifier"`
	Notes      *string `json:"notes,omitempty"`
}

type RegisterMemberRequest struct {
	FullName        string              `json:"fullName"`
	NationalId      string              `json:"nationalId"`
	Email           string              `json:"email"`
	FeeDueDay       int                 `json:"feeDueDay"`
	PaidFlag        bool                `json:"paidFlag"`
	LastPaymentDate *openapi_types.Date `json:"lastPaymentDate,omitempty"`
}

// UpdateMemberRequest distinguishes absent fields from explicit nulls.
type UpdateMemberRequest struct {
	FullName        nullable.Nullable[string]             `json:"fullName,omitempty"`
	NationalId      nullable.Nullable[string]             `json:"nationalId,omitempty"`
	Email           nullable.Nullable[string]             `json:"email,omitempty"`
	FeeDueDay       nullable.Nullable[int]                `json:"feeDueDay,omitempty"`
	PaidFlag        nullable.Nullable[bool]               `json:"paidFlag,omitempty"`
	LastPaymentDate nullable.Nullable[openapi_types.Date] `json:"lastPaymentDate,omitempty"`
}

type RecordPaymentRequest struct {
	PaidOn *openapi_types.Date `json:"paidOn,omitempty"`
}

type PromoteRequest struct {
	MemberId string `json:"memberId"`
}

// --- responses ---

type CheckIn struct {
	CheckInId      string             `json:"checkInId"`
	MemberId       string             `json:"memberId"`
	VisitDate      openapi_types.Date `json:"visitDate"`
	VisitTimestamp time.Time          `json:"visitTimestamp"`
	Method         string             `json:"method"`
	PerformedBy    string             `json:"performedBy"`
	Notes          *string            `json:"notes,omitempty"`
}

// CheckInDecisionResponse is the body of both outcomes. Denial fields are omitted on allow.
type CheckInDecisionResponse struct {
	Outcome      string              `json:"outcome"`
	CheckIn      *CheckIn            `json:"checkIn,omitempty"`
	Reason       string              `json:"reason,omitempty"`
	Detail       string              `json:"detail,omitempty"`
	Message      string              `json:"message,omitempty"`
	DaysOverdue  *int                `json:"daysOverdue,omitempty"`
	NextOpenDate *openapi_types.Date `json:"nextOpenDate,omitempty"`
}

type CheckInListResponse struct {
	CheckIns []CheckIn `json:"checkIns"`
}

type DailyCheckInsResponse struct {
	Date     openapi_types.Date `json:"date"`
	CheckIns []CheckIn          `json:"checkIns"`
}

type Member struct {
	MemberId        string                                `json:"memberId"`
	FullName        string                                `json:"fullName"`
	NationalId      string                                `json:"nationalId"`
	Email           string                                `json:"email"`
	FeeDueDay       int                                   `json:"feeDueDay"`
	PaidFlag        bool                                  `json:"paidFlag"`
	LastPaymentDate nullable.Nullable[openapi_types.Date] `json:"lastPaymentDate"`
	CreatedAt       time.Time                             `json:"createdAt"`
	UpdatedAt       time.Time                             `json:"updatedAt"`
}

type MemberResponse struct {
	Member Member `json:"member"`
}

type StandingResponse struct {
	Member      Member             `json:"member"`
	Date        openapi_types.Date `json:"date"`
	UpToDate    bool               `json:"upToDate"`
	DaysOverdue int                `json:"daysOverdue"`
	DueDate     openapi_types.Date `json:"dueDate"`
}

type WaitlistEntry struct {
	EntryId          string                    `json:"entryId"`
	FullName         string                    `json:"fullName"`
	Email            string                    `json:"email"`
	Phone            string                    `json:"phone"`
	PreferredShift   string                    `json:"preferredShift"`
	Goal             string                    `json:"goal"`
	HealthNotes      nullable.Nullable[string] `json:"healthNotes"`
	Position         int                       `json:"position"`
	Status           string                    `json:"status"`
	CreatedAt        time.Time                 `json:"createdAt"`
	EnrolledAt       *time.Time                `json:"enrolledAt,omitempty"`
	EnrolledMemberId *string                   `json:"enrolledMemberId,omitempty"`
}

type WaitlistEntryResponse struct {
	Entry WaitlistEntry `json:"entry"`
}

type WaitlistResponse struct {
	Entries []WaitlistEntry `json:"entries"`
}

// --- conversions ---

func wireDate(d domain.Date) openapi_types.Date {
	return openapi_types.Date{Time: d.Time()}
}

func domainDate(d openapi_types.Date) domain.Date {
	return domain.NewDate(d.Year(), d.Month(), d.Day())
}

func nullableString(p *string) nullable.Nullable[string] {
	if p == nil {
		return nullable.NewNullNullable[string]()
	}
	return nullable.NewNullableWithValue(*p)
}

func nullableDate(p *domain.Date) nullable.Nullable[openapi_types.Date] {
	if p == nil {
		return nullable.NewNullNullable[openapi_types.Date]()
	}
	return nullable.NewNullableWithValue(wireDate(*p))
}

func checkInFromDomain(r domain.CheckInRecord) CheckIn {
	return CheckIn{
		CheckInId:      string(r.ID),
		MemberId:       string(r.MemberID),
		VisitDate:      wireDate(r.VisitDate),
		VisitTimestamp: r.VisitTimestamp.UTC(),
		Method:         string(r.Method),
		PerformedBy:    r.PerformedBy,
		Notes:          r.Notes,
	}
}

func checkInsFromDomain(rs []domain.CheckInRecord) []CheckIn {
	return lo.Map(rs, func(r domain.CheckInRecord, _ int) CheckIn {
		return checkInFromDomain(r)
	})
}

func decisionFromDomain(d checkin.Decision) CheckInDecisionResponse {
	out := CheckInDecisionResponse{Outcome: string(d.Outcome)}
	if d.Allowed() {
		ci := checkInFromDomain(*d.Record)
		out.CheckIn = &ci
		return out
	}
	den := d.Denial
	out.Reason = string(den.Reason)
	out.Detail = den.Detail
	out.Message = den.Message()
	if den.Reason == checkin.ReasonPaymentOverdue {
		out.DaysOverdue = lo.ToPtr(den.DaysOverdue)
	}
	if den.NextOpenDate != nil {
		out.NextOpenDate = lo.ToPtr(wireDate(*den.NextOpenDate))
	}
	return out
}

func memberFromDomain(m domain.Member) Member {
	return Member{
		MemberId:        string(m.ID),
		FullName:        m.FullName,
		NationalId:      m.NationalID,
		Email:           m.Email,
		FeeDueDay:       m.FeeDueDay,
		PaidFlag:        m.PaidFlag,
		LastPaymentDate: nullableDate(m.LastPaymentDate),
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
}

func standingFromDomain(rep checkin.StandingReport) StandingResponse {
	return StandingResponse{
		Member:      memberFromDomain(rep.Member),
		Date:        wireDate(rep.Date),
		UpToDate:    rep.Standing.UpToDate,
		DaysOverdue: rep.Standing.DaysOverdue,
		DueDate:     wireDate(rep.Standing.DueDate),
	}
}

func waitlistEntryFromDomain(e domain.WaitlistEntry) WaitlistEntry {
	out := WaitlistEntry{
		EntryId:        string(e.ID),
		FullName:       e.FullName,
		Email:          e.Email,
		Phone:          e.Phone,
		PreferredShift: string(e.PreferredShift),
		Goal:           e.Goal,
		HealthNotes:    nullableString(e.HealthNotes),
		Position:       e.Position,
		Status:         string(e.Status),
		CreatedAt:      e.CreatedAt.UTC(),
	}
	if e.EnrolledAt != nil {
		out.EnrolledAt = lo.ToPtr(e.EnrolledAt.UTC())
	}
	if e.EnrolledMemberID != nil {
		out.EnrolledMemberId = lo.ToPtr(string(*e.EnrolledMemberID))
	}
	return out
}

func registerInputFromWire(b RegisterMemberRequest) members.RegisterInput {
	in := members.RegisterInput{
		FullName:   b.FullName,
		NationalID: b.NationalId,
		Email:      b.Email,
		FeeDueDay:  b.FeeDueDay,
		PaidFlag:   b.PaidFlag,
	}
	if b.LastPaymentDate != nil {
		in.LastPaymentDate = lo.ToPtr(domainDate(*b.LastPaymentDate))
	}
	return in
}

func updateInputFromWire(b UpdateMemberRequest) members.UpdateInput {
	return members.UpdateInput{
		FullName:        optionalFromNullable(b.FullName, identity[string]),
		NationalID:      optionalFromNullable(b.NationalId, identity[string]),
		Email:           optionalFromNullable(b.Email, identity[string]),
		FeeDueDay:       optionalFromNullable(b.FeeDueDay, identity[int]),
		PaidFlag:        optionalFromNullable(b.PaidFlag, identity[bool]),
		LastPaymentDate: optionalFromNullable(b.LastPaymentDate, domainDate),
	}
}

func identity[T any](v T) T { return v }

func optionalFromNullable[W, T any](n nullable.Nullable[W], conv func(W) T) members.Optional[T] {
	if !n.IsSpecified() {
		return members.Unspecified[T]()
	}
	if n.IsNull() {
		return members.Null[T]()
	}
	v, err := n.Get()
	if err != nil {
		return members.Unspecified[T]()
	}
	return members.Some(conv(v))
}
