package engine

import (
	"fmt"
	"time"
)

// =============================================================================
// LOCAL STAMP - Explicit pairing of an absolute instant with a zone
// =============================================================================

// LocalStamp carries a local-time projection together with the IANA zone
// name it was computed in. The UTC instant on the ClockEvent remains the
// source of truth; the stamp exists so records are self-describing and so
// naive and zone-aware times can never be confused.
type LocalStamp struct {
	Time time.Time // instant expressed in Zone
	Zone string    // IANA name, e.g. "Europe/Madrid"
}

// Localize projects a UTC instant into the given IANA zone.
// An unknown zone name fails with InvalidTimezone.
func Localize(utc time.Time, zone string) (LocalStamp, error) {
	loc, err := LoadZone(zone)
	if err != nil {
		return LocalStamp{}, err
	}
	return LocalStamp{Time: utc.In(loc), Zone: zone}, nil
}

// LoadZone resolves an IANA zone name, wrapping failures as InvalidTimezone.
func LoadZone(zone string) (*time.Location, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, &InvalidTimezoneError{Zone: zone}
	}
	return loc, nil
}

// =============================================================================
// DATE - Local calendar day (no clock, no zone)
// =============================================================================

// Date is a plain calendar date used as the aggregation bucket key.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

func (d Date) Equal(other Date) bool { return d == other }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// =============================================================================
// MONTH WINDOW - UTC range covering a local calendar month
// =============================================================================

// MonthWindow returns the half-open UTC range [start, end) covering the full
// calendar month in local time: local midnight on the 1st of the month up to
// local midnight on the 1st of the following month. DST transitions inside
// the month are absorbed by the zone conversion.
func MonthWindow(year int, month time.Month, zone string) (time.Time, time.Time, error) {
	loc, err := LoadZone(zone)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0)
	return start.UTC(), end.UTC(), nil
}

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// PreviousMonths returns the last n calendar months strictly before the
// month containing now, most recent first.
func PreviousMonths(now time.Time, n int) []YearMonth {
	months := make([]YearMonth, 0, n)
	y, m := now.Year(), now.Month()
	for i := 0; i < n; i++ {
		m--
		if m == 0 {
			m = time.December
			y--
		}
		months = append(months, YearMonth{Year: y, Month: m})
	}
	return months
}

// WholeMinutesBetween returns the whole-minute distance from entry to exit,
// truncating seconds. Negative spans fail with InvalidDuration.
func WholeMinutesBetween(entry, exit time.Time) (int64, error) {
	d := exit.Sub(entry)
	if d < 0 {
		return 0, &InvalidDurationError{Entry: entry, Exit: exit}
	}
	return int64(d / time.Minute), nil
}
