package members

import "github.com/studiofit/frontdesk-api/internal/domain"

// Optional is a tri-state field used to distinguish:
// - unspecified (omitted)
// - specified as null
// - specified with a value
type Optional[T any] struct {
	specified bool
	isNull    bool
	value     T
}

func Unspecified[T any]() Optional[T] { return Optional[T]{} }
func Null[T any]() Optional[T]        { return Optional[T]{specified: true, isNull: true} }
func Some[T any](v T) Optional[T]     { return Optional[T]{specified: true, value: v} }

func (o Optional[T]) IsSpecified() bool { return o.specified }
func (o Optional[T]) IsNull() bool      { return o.specified && o.isNull }
func (o Optional[T]) Value() T          { return o.value }

type RegisterInput struct {
	FullName string `json:"fullName" validate:"required,max=200"`
	// NationalID may carry CPF punctuation; it is reduced to digits before validation.
	NationalID string `json:"nationalId" validate:"len=11,numeric"`
	Email      string `json:"email" validate:"required,email,max=254"`
	FeeDueDay  int    `json:"feeDueDay" validate:"gte=1,lte=31"`

	PaidFlag        bool         `json:"paidFlag"`
	LastPaymentDate *domain.Date `json:"lastPaymentDate"`
}

// UpdateInput is a partial update. FullName, NationalID, Email and FeeDueDay cannot be
// null; LastPaymentDate may be cleared with null.
type UpdateInput struct {
	FullName        Optional[string]
	NationalID      Optional[string]
	Email           Optional[string]
	FeeDueDay       Optional[int]
	PaidFlag        Optional[bool]
	LastPaymentDate Optional[domain.Date]
}
