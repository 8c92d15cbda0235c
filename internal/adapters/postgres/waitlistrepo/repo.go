package waitlistrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/studiofit/frontdesk-api/internal/adapters/postgres"
	"github.com/studiofit/frontdesk-api/internal/domain"
	"github.com/studiofit/frontdesk-api/internal/ports/out/waitlistrepo"
)

// Repo is a Postgres implementation of waitlistrepo.Repository.
//
// Every queue mutation takes a SHARE ROW EXCLUSIVE lock on waitlist_entries, which
// conflicts with itself, so position assignment and renumbering are serialized across
// processes. Reads are not blocked.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const entryColumns = `
	id,
	full_name,
	email,
	phone,
	preferred_shift,
	goal,
	health_notes,
	position,
	status,
	created_at,
	enrolled_at,
	enrolled_member_id
`

const lockQueue = `LOCK TABLE waitlist_entries IN SHARE ROW EXCLUSIVE MODE`

func (r *Repo) MaxPosition(ctx context.Context) (int, error) {
	if r.pool == nil {
		return 0, errors.New("nil postgres pool")
	}
	var max int
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(position), 0) FROM waitlist_entries WHERE status = 'waiting'
	`).Scan(&max)
	return max, err
}

func (r *Repo) Append(ctx context.Context, e waitlistrepo.Entry) (waitlistrepo.Entry, error) {
	if r.pool == nil {
		return waitlistrepo.Entry{}, errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(e.ID))
	if err != nil {
		return waitlistrepo.Entry{}, fmt.Errorf("invalid waitlist entry id: %w", err)
	}

	var stored waitlistrepo.Entry
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, lockQueue); err != nil {
			return err
		}
		row := tx.QueryRow(ctx, `
			INSERT INTO waitlist_entries (
				id, full_name, email, phone, preferred_shift, goal, health_notes,
				position, status, created_at
			)
			SELECT $1, $2, $3, $4, $5, $6, $7,
				COALESCE(MAX(position), 0) + 1, 'waiting', $8
			FROM waitlist_entries
			WHERE status = 'waiting'
			RETURNING `+entryColumns,
			id,
			e.FullName,
			e.Email,
			e.Phone,
			string(e.PreferredShift),
			e.Goal,
			e.HealthNotes,
			e.CreatedAt.UTC(),
		)
		var err error
		stored, err = scanEntry(row)
		return err
	})
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode && pe.ConstraintName == "waitlist_waiting_email_unique" {
			return waitlistrepo.Entry{}, waitlistrepo.ErrAlreadyWaiting
		}
		return waitlistrepo.Entry{}, err
	}
	return stored, nil
}

func (r *Repo) Get(ctx context.Context, id domain.WaitlistEntryID) (waitlistrepo.Entry, error) {
	if r.pool == nil {
		return waitlistrepo.Entry{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return waitlistrepo.Entry{}, waitlistrepo.ErrNotFound
	}
	return scanEntry(r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM waitlist_entries WHERE id = $1`, uid))
}

func (r *Repo) List(ctx context.Context, status domain.WaitlistStatus) ([]waitlistrepo.Entry, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	// Waiting rows sort first; enrolled rows all sit at position 0.
	q := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select(entryColumns).
		From("waitlist_entries").
		OrderBy("(status <> 'waiting')", "position", "enrolled_at", "created_at", "id")
	if status == "" {
		q = q.Where(sq.NotEq{"status": string(domain.WaitlistStatusRemoved)})
	} else {
		q = q.Where(sq.Eq{"status": string(status)})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build waitlist query: %w", err)
	}
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]waitlistrepo.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) UpdateStatusAndRenumber(ctx context.Context, id domain.WaitlistEntryID, change waitlistrepo.Enrollment) (waitlistrepo.Entry, error) {
	if r.pool == nil {
		return waitlistrepo.Entry{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return waitlistrepo.Entry{}, waitlistrepo.ErrNotFound
	}

	var stored waitlistrepo.Entry
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		vacated, err := lockWaiting(ctx, tx, uid)
		if err != nil {
			return err
		}
		row := tx.QueryRow(ctx, `
			UPDATE waitlist_entries
			SET status = $2,
				position = 0,
				enrolled_at = $3,
				enrolled_member_id = $4
			WHERE id = $1
			RETURNING `+entryColumns,
			uid,
			string(change.Status),
			change.EnrolledAt.UTC(),
			string(change.MemberID),
		)
		if stored, err = scanEntry(row); err != nil {
			return err
		}
		return closeGap(ctx, tx, vacated)
	})
	if err != nil {
		return waitlistrepo.Entry{}, err
	}
	return stored, nil
}

func (r *Repo) DeleteAndRenumber(ctx context.Context, id domain.WaitlistEntryID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return waitlistrepo.ErrNotFound
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		vacated, err := lockWaiting(ctx, tx, uid)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE waitlist_entries SET status = 'removed', position = 0 WHERE id = $1
		`, uid); err != nil {
			return err
		}
		return closeGap(ctx, tx, vacated)
	})
}

// --- helpers ---

// lockWaiting takes the queue lock and returns the position of a waiting entry.
func lockWaiting(ctx context.Context, tx pgx.Tx, id uuid.UUID) (int, error) {
	if _, err := tx.Exec(ctx, lockQueue); err != nil {
		return 0, err
	}
	var (
		status   string
		position int
	)
	err := tx.QueryRow(ctx, `
		SELECT status, position FROM waitlist_entries WHERE id = $1 FOR UPDATE
	`, id).Scan(&status, &position)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, waitlistrepo.ErrNotFound
		}
		return 0, err
	}
	if domain.WaitlistStatus(status) != domain.WaitlistStatusWaiting {
		return 0, waitlistrepo.ErrNotWaiting
	}
	return position, nil
}

func closeGap(ctx context.Context, tx pgx.Tx, vacated int) error {
	_, err := tx.Exec(ctx, `
		UPDATE waitlist_entries
		SET position = position - 1
		WHERE status = 'waiting' AND position > $1
	`, vacated)
	return err
}

func scanEntry(row pgx.Row) (waitlistrepo.Entry, error) {
	var (
		id         uuid.UUID
		e          waitlistrepo.Entry
		shift      string
		status     string
		enrolledAt *time.Time
		memberID   *string
	)
	if err := row.Scan(
		&id,
		&e.FullName,
		&e.Email,
		&e.Phone,
		&shift,
		&e.Goal,
		&e.HealthNotes,
		&e.Position,
		&status,
		&e.CreatedAt,
		&enrolledAt,
		&memberID,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return waitlistrepo.Entry{}, waitlistrepo.ErrNotFound
		}
		return waitlistrepo.Entry{}, err
	}
	e.ID = domain.WaitlistEntryID(id.String())
	e.PreferredShift = domain.Shift(shift)
	e.Status = domain.WaitlistStatus(status)
	e.CreatedAt = e.CreatedAt.UTC()
	if enrolledAt != nil {
		v := enrolledAt.UTC()
		e.EnrolledAt = &v
	}
	if memberID != nil {
		v := domain.MemberID(*memberID)
		e.EnrolledMemberID = &v
	}
	return e, nil
}
