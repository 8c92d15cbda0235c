// Package identify maps what a member types at the desk to exactly one member record.
package identify

import (
	"context"
	"errors"
	"strings"

	"github.com/studiofit/frontdesk-api/internal/app/apperr"
	"github.com/studiofit/frontdesk-api/internal/domain"
	"github.com/studiofit/frontdesk-api/internal/ports/out/memberrepo"
)

// NationalIDLength is the number of digits in a CPF.
const NationalIDLength = 11

var (
	// ErrInvalidFormat means the input is neither a national id nor an email.
	ErrInvalidFormat = errors.New("identifier is neither a national id nor an email")
	// ErrNotFound means the input was well formed but matched no member.
	ErrNotFound = errors.New("no member matches identifier")
)

// Lookup is the parsed form of an identifier.
type Lookup struct {
	Method domain.CheckInMethod
	Value  string
}

// Resolution is a successfully resolved identifier.
type Resolution struct {
	Member memberrepo.Member
	Method domain.CheckInMethod
}

type Resolver struct {
	members memberrepo.Repository
}

func NewResolver(members memberrepo.Repository) *Resolver {
	return &Resolver{members: members}
}

// Parse classifies input without touching the store.
//
// An input containing "@" is an email. An input made only of digits and CPF punctuation
// ('.', '-', spaces) with exactly 11 digits is a national id. Anything else is ErrInvalidFormat.
func Parse(input string) (Lookup, error) {
	in := strings.TrimSpace(input)
	if in == "" {
		return Lookup{}, ErrInvalidFormat
	}
	if strings.Contains(in, "@") {
		email := domain.NormalizeEmail(in)
		at := strings.Index(email, "@")
		if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t") {
			return Lookup{}, ErrInvalidFormat
		}
		return Lookup{Method: domain.CheckInMethodEmail, Value: email}, nil
	}
	for _, r := range in {
		if (r < '0' || r > '9') && r != '.' && r != '-' && r != ' ' {
			return Lookup{}, ErrInvalidFormat
		}
	}
	digits := domain.DigitsOnly(in)
	if len(digits) != NationalIDLength {
		return Lookup{}, ErrInvalidFormat
	}
	return Lookup{Method: domain.CheckInMethodNationalID, Value: digits}, nil
}

// Resolve performs at most one unique-key read.
//
// Errors: ErrInvalidFormat, ErrNotFound, or an *apperr.Error wrapping apperr.ErrStoreUnavailable.
func (r *Resolver) Resolve(ctx context.Context, input string) (Resolution, error) {
	l, err := Parse(input)
	if err != nil {
		return Resolution{}, err
	}

	var m memberrepo.Member
	switch l.Method {
	case domain.CheckInMethodEmail:
		m, err = r.members.FindByEmail(ctx, l.Value)
	default:
		m, err = r.members.FindByNationalID(ctx, l.Value)
	}
	if err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return Resolution{}, ErrNotFound
		}
		return Resolution{}, apperr.StoreUnavailable(err)
	}
	return Resolution{Member: m, Method: l.Method}, nil
}
