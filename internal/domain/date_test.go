package domain

import (
	"testing"
	"time"
)

func TestDateOf_UsesLocationNotUTC(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("BRT", -3*60*60)
	// 01:30 UTC on Saturday is still Friday evening at the studio.
	instant := time.Date(2026, 10, 17, 1, 30, 0, 0, time.UTC)

	got := DateOf(instant, loc)
	want := Date{Year: 2026, Month: time.October, Day: 16}
	if got != want {
		t.Fatalf("DateOf()=%v, want %v", got, want)
	}
	if got.Weekday() != time.Friday {
		t.Fatalf("Weekday()=%v, want Friday", got.Weekday())
	}
}

func TestDate_AddDaysAndDaysSince(t *testing.T) {
	t.Parallel()

	d := NewDate(2024, time.February, 27)
	if got := d.AddDays(3); got != NewDate(2024, time.March, 1) {
		t.Fatalf("AddDays(3)=%v, want 2024-03-01", got)
	}
	if got := NewDate(2024, time.March, 1).DaysSince(d); got != 3 {
		t.Fatalf("DaysSince=%d, want 3", got)
	}
	if got := d.DaysSince(NewDate(2024, time.March, 1)); got != -3 {
		t.Fatalf("DaysSince(reverse)=%d, want -3", got)
	}
}

func TestDaysIn(t *testing.T) {
	t.Parallel()

	cases := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2023, time.February, 28},
		{2024, time.February, 29},
		{2024, time.April, 30},
		{2024, time.December, 31},
	}
	for _, c := range cases {
		if got := DaysIn(c.year, c.month); got != c.want {
			t.Fatalf("DaysIn(%d,%v)=%d, want %d", c.year, c.month, got, c.want)
		}
	}
}

func TestParseDate_RoundTripsString(t *testing.T) {
	t.Parallel()

	d, err := ParseDate("2026-10-05")
	if err != nil {
		t.Fatalf("ParseDate err=%v", err)
	}
	if d.String() != "2026-10-05" {
		t.Fatalf("String()=%q", d.String())
	}
	if _, err := ParseDate("05/10/2026"); err == nil {
		t.Fatalf("expected error for non-ISO date")
	}
}

func TestDigitsOnlyAndNormalizeEmail(t *testing.T) {
	t.Parallel()

	if got := DigitsOnly("123.456.789-09"); got != "12345678909" {
		t.Fatalf("DigitsOnly=%q", got)
	}
	if got := NormalizeEmail("  Ana@Example.COM "); got != "ana@example.com" {
		t.Fatalf("NormalizeEmail=%q", got)
	}
}
