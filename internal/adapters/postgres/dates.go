package postgres

import (
	"time"

	"github.com/studiofit/frontdesk-api/internal/domain"
)

// DateParam encodes a civil date for a DATE column.
func DateParam(d domain.Date) time.Time {
	return d.Time()
}

// NullableDateParam encodes nil as NULL.
func NullableDateParam(d *domain.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time()
	return &t
}

// DateFromColumn decodes a DATE column scanned into time.Time.
func DateFromColumn(t time.Time) domain.Date {
	return domain.NewDate(t.Year(), t.Month(), t.Day())
}

func NullableDateFromColumn(t *time.Time) *domain.Date {
	if t == nil {
		return nil
	}
	d := DateFromColumn(*t)
	return &d
}
