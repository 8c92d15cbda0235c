package checkinrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/studiofit/frontdesk-api/internal/adapters/postgres"
	"github.com/studiofit/frontdesk-api/internal/domain"
	"github.com/studiofit/frontdesk-api/internal/ports/out/checkinrepo"
)

// Repo is a Postgres implementation of checkinrepo.Repository.
// Daily uniqueness is the check_ins_member_day_unique constraint.
type Repo struct {
	pool *pgxpool.Pool
	psql sq.StatementBuilderType
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{
		pool: pool,
		psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

var recordColumns = []string{
	"id",
	"member_id",
	"visit_date",
	"visit_timestamp",
	"method",
	"performed_by",
	"notes",
}

func (r *Repo) ExistsForDate(ctx context.Context, memberID domain.MemberID, date domain.Date) (bool, error) {
	if r.pool == nil {
		return false, errors.New("nil postgres pool")
	}
	mid, err := uuid.Parse(string(memberID))
	if err != nil {
		return false, nil
	}
	var exists bool
	err = r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM check_ins WHERE member_id = $1 AND visit_date = $2
		)
	`, mid, postgres.DateParam(date)).Scan(&exists)
	return exists, err
}

func (r *Repo) Insert(ctx context.Context, rec checkinrepo.Record) (checkinrepo.Record, error) {
	if r.pool == nil {
		return checkinrepo.Record{}, errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(rec.ID))
	if err != nil {
		return checkinrepo.Record{}, fmt.Errorf("invalid check-in id: %w", err)
	}
	mid, err := uuid.Parse(string(rec.MemberID))
	if err != nil {
		return checkinrepo.Record{}, fmt.Errorf("invalid member id: %w", err)
	}

	query, args, err := r.psql.
		Insert("check_ins").
		Columns(recordColumns...).
		Values(
			id,
			mid,
			postgres.DateParam(rec.VisitDate),
			rec.VisitTimestamp.UTC(),
			string(rec.Method),
			rec.PerformedBy,
			rec.Notes,
		).
		Suffix("RETURNING " + strings.Join(recordColumns, ", ")).
		ToSql()
	if err != nil {
		return checkinrepo.Record{}, err
	}

	stored, err := scanRecord(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode && pe.ConstraintName == "check_ins_member_day_unique" {
			return checkinrepo.Record{}, checkinrepo.ErrDuplicate
		}
		return checkinrepo.Record{}, err
	}
	return stored, nil
}

func (r *Repo) ListByMember(ctx context.Context, memberID domain.MemberID, from, to domain.Date) ([]checkinrepo.Record, error) {
	mid, err := uuid.Parse(string(memberID))
	if err != nil {
		return []checkinrepo.Record{}, nil
	}
	q := r.psql.
		Select(recordColumns...).
		From("check_ins").
		Where(sq.Eq{"member_id": mid})
	if !from.IsZero() {
		q = q.Where(sq.GtOrEq{"visit_date": postgres.DateParam(from)})
	}
	if !to.IsZero() {
		q = q.Where(sq.LtOrEq{"visit_date": postgres.DateParam(to)})
	}
	return r.list(ctx, q.OrderBy("visit_date DESC", "visit_timestamp DESC"))
}

func (r *Repo) ListByDate(ctx context.Context, date domain.Date) ([]checkinrepo.Record, error) {
	q := r.psql.
		Select(recordColumns...).
		From("check_ins").
		Where(sq.Eq{"visit_date": postgres.DateParam(date)}).
		OrderBy("visit_timestamp ASC", "id ASC")
	return r.list(ctx, q)
}

func (r *Repo) list(ctx context.Context, q sq.SelectBuilder) ([]checkinrepo.Record, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]checkinrepo.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// --- helpers ---

func scanRecord(row pgx.Row) (checkinrepo.Record, error) {
	var (
		id, memberID uuid.UUID
		visitDate    time.Time
		method       string
		rec          checkinrepo.Record
	)
	if err := row.Scan(
		&id,
		&memberID,
		&visitDate,
		&rec.VisitTimestamp,
		&method,
		&rec.PerformedBy,
		&rec.Notes,
	); err != nil {
		return checkinrepo.Record{}, err
	}
	rec.ID = domain.CheckInID(id.String())
	rec.MemberID = domain.MemberID(memberID.String())
	rec.VisitDate = postgres.DateFromColumn(visitDate)
	rec.VisitTimestamp = rec.VisitTimestamp.UTC()
	rec.Method = domain.CheckInMethod(method)
	return rec, nil
}
