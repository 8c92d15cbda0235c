package memberrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/studiofit/frontdesk-api/internal/adapters/postgres"
	"github.com/studiofit/frontdesk-api/internal/domain"
	"github.com/studiofit/frontdesk-api/internal/ports/out/memberrepo"
)

// Repo is a Postgres implementation of memberrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const selectMember = `
	SELECT
		id,
		full_name,
		national_id,
		email,
		fee_due_day,
		paid_flag,
		last_payment_date,
		created_at,
		updated_at
	FROM members
`

func (r *Repo) Create(ctx context.Context, m memberrepo.Member) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(m.ID))
	if err != nil {
		return fmt.Errorf("invalid member id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO members (
			id,
			full_name,
			national_id,
			email,
			fee_due_day,
			paid_flag,
			last_payment_date,
			created_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		id,
		m.FullName,
		m.NationalID,
		m.Email,
		m.FeeDueDay,
		m.PaidFlag,
		postgres.NullableDateParam(m.LastPaymentDate),
		m.CreatedAt.UTC(),
		m.UpdatedAt.UTC(),
	)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return mapped
		}
		return err
	}
	return nil
}

func (r *Repo) Update(ctx context.Context, m memberrepo.Member) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(m.ID))
	if err != nil {
		return memberrepo.ErrNotFound
	}

	ct, err := r.pool.Exec(ctx, `
		UPDATE members
		SET full_name = $2,
		    national_id = $3,
		    email = $4,
		    fee_due_day = $5,
		    paid_flag = $6,
		    last_payment_date = $7,
		    updated_at = $8
		WHERE id = $1
	`,
		id,
		m.FullName,
		m.NationalID,
		m.Email,
		m.FeeDueDay,
		m.PaidFlag,
		postgres.NullableDateParam(m.LastPaymentDate),
		m.UpdatedAt.UTC(),
	)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return mapped
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return memberrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.MemberID) (memberrepo.Member, error) {
	if r.pool == nil {
		return memberrepo.Member{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return memberrepo.Member{}, memberrepo.ErrNotFound
	}
	return scanMember(r.pool.QueryRow(ctx, selectMember+` WHERE id = $1`, uid))
}

func (r *Repo) FindByNationalID(ctx context.Context, nationalID string) (memberrepo.Member, error) {
	if r.pool == nil {
		return memberrepo.Member{}, errors.New("nil postgres pool")
	}
	return scanMember(r.pool.QueryRow(ctx, selectMember+` WHERE national_id = $1`, nationalID))
}

func (r *Repo) FindByEmail(ctx context.Context, email string) (memberrepo.Member, error) {
	if r.pool == nil {
		return memberrepo.Member{}, errors.New("nil postgres pool")
	}
	return scanMember(r.pool.QueryRow(ctx, selectMember+` WHERE email = $1`, email))
}

// --- helpers ---

func mapUniqueViolation(err error) error {
	pe, ok := postgres.AsPgError(err)
	if !ok || pe.Code != postgres.UniqueViolationCode {
		return nil
	}
	switch pe.ConstraintName {
	case "members_pkey":
		return memberrepo.ErrAlreadyExists
	case "members_national_id_unique":
		return memberrepo.ErrNationalIDTaken
	case "members_email_unique":
		return memberrepo.ErrEmailTaken
	default:
		return nil
	}
}

func scanMember(row pgx.Row) (memberrepo.Member, error) {
	var (
		id          uuid.UUID
		m           memberrepo.Member
		lastPayment *time.Time
	)
	if err := row.Scan(
		&id,
		&m.FullName,
		&m.NationalID,
		&m.Email,
		&m.FeeDueDay,
		&m.PaidFlag,
		&lastPayment,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return memberrepo.Member{}, memberrepo.ErrNotFound
		}
		return memberrepo.Member{}, err
	}
	m.ID = domain.MemberID(id.String())
	m.LastPaymentDate = postgres.NullableDateFromColumn(lastPayment)
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()
	return m, nil
}
