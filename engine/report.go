/*
report.go - Daily and monthly aggregation

PURPOSE:
  Turns an ordered stream of clock events into DailyBreakdowns and
  MonthlySummaries: calendar-day bucketing in a configurable IANA zone,
  entry/exit pairing into worked spans, pause derivation from the gaps
  between spans, and open-session detection.

MIDNIGHT POLICY:
  Sessions spanning midnight are NOT split. A span is attributed entirely
  to the local calendar day of its ENTRY. An exit whose entry fell before
  the queried window is attributed to the local day of its reconstructed
  entry instant (exit minus stored duration).

PAUSES:
  A pause is the gap between one span's exit and the next span's entry
  within the same local day. A day with a single span has zero pauses.

WORKED MINUTES:
  Sums the exit events' precomputed durations; recomputed defensively from
  the span endpoints when a stored duration is absent. An unmatched entry
  contributes zero worked minutes and marks its day open.

SEE ALSO:
  - clock.go: Produces the event stream
  - overtime.go: Consumes the aggregated totals
*/
package engine

import (
	"context"
	"sort"
	"time"
)

// Reporter builds derived attendance views. Read-only; safe to call
// concurrently with event writes (reports are point-in-time snapshots).
type Reporter struct {
	ledger      *EventLedger
	defaultZone string
	now         func() time.Time
}

func NewReporter(ledger *EventLedger, defaultZone string) *Reporter {
	if defaultZone == "" {
		defaultZone = "UTC"
	}
	return &Reporter{ledger: ledger, defaultZone: defaultZone, now: time.Now}
}

// =============================================================================
// SPAN PAIRING
// =============================================================================

// span is a matched entry→exit pair, or an open entry (exit == nil).
type span struct {
	entry   *ClockEvent
	exit    *ClockEvent
	minutes int64
	// entryLocal is the local instant deciding which day owns the span.
	entryLocal time.Time
	records    int
}

// pairSpans walks events chronologically, pairing each entry with the next
// exit. Events must belong to a single worker and employer and be sorted by
// UTC ascending.
func pairSpans(events []ClockEvent, loc *time.Location) []span {
	var spans []span
	var open *ClockEvent

	for i := range events {
		ev := &events[i]
		switch ev.Kind {
		case KindEntry:
			if open != nil {
				// Out-of-order data: an entry while one is open. Keep the
				// earlier entry as an open span rather than guessing a pair.
				spans = append(spans, span{entry: open, entryLocal: open.UTC.In(loc), records: 1})
			}
			open = ev

		case KindExit:
			if open != nil {
				minutes, ok := ev.Duration()
				if !ok {
					recomputed, err := WholeMinutesBetween(open.UTC, ev.UTC)
					if err != nil {
						recomputed = 0
					}
					minutes = recomputed
				}
				spans = append(spans, span{
					entry:      open,
					exit:       ev,
					minutes:    minutes,
					entryLocal: open.UTC.In(loc),
					records:    2,
				})
				open = nil
				continue
			}

			// Exit without an entry in the window (session crossed the
			// window start). Reconstruct the entry instant from the stored
			// duration so the midnight policy still holds.
			minutes, ok := ev.Duration()
			if !ok {
				minutes = 0
			}
			entryInstant := ev.UTC.Add(-time.Duration(minutes) * time.Minute)
			spans = append(spans, span{
				exit:       ev,
				minutes:    minutes,
				entryLocal: entryInstant.In(loc),
				records:    1,
			})
		}
	}

	if open != nil {
		spans = append(spans, span{entry: open, entryLocal: open.UTC.In(loc), records: 1})
	}
	return spans
}

// =============================================================================
// DAILY GROUPING
// =============================================================================

// GroupByDay buckets a single worker+employer event stream into per-day
// breakdowns using the given IANA zone, ascending by date.
func GroupByDay(events []ClockEvent, zone string) ([]DailyBreakdown, error) {
	loc, err := LoadZone(zone)
	if err != nil {
		return nil, err
	}

	buckets := make(map[Date][]span)
	for _, s := range pairSpans(events, loc) {
		d := DateOf(s.entryLocal)
		buckets[d] = append(buckets[d], s)
	}

	dates := make([]Date, 0, len(buckets))
	for d := range buckets {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	days := make([]DailyBreakdown, 0, len(dates))
	for _, d := range dates {
		days = append(days, processDaySpans(d, buckets[d]))
	}
	return days, nil
}

// processDaySpans derives one DailyBreakdown from the spans attributed to a
// single local day. Spans arrive in chronological order.
func processDaySpans(date Date, spans []span) DailyBreakdown {
	day := DailyBreakdown{Date: date}

	var prevExit *time.Time
	for _, s := range spans {
		day.RecordCount += s.records

		if s.entry != nil {
			if day.FirstEntry == nil {
				t := s.entry.UTC
				day.FirstEntry = &t
			}
			// Pause: gap between the previous span's exit and this entry.
			if prevExit != nil {
				gap := s.entry.UTC.Sub(*prevExit)
				if gap > 0 {
					day.PauseMinutes += int64(gap / time.Minute)
					day.PauseCount++
				}
			}
		}

		if s.exit != nil {
			t := s.exit.UTC
			day.LastExit = &t
			day.WorkedMinutes += s.minutes
			prevExit = &t
		} else {
			// Unmatched entry: zero worked minutes, day stays open, and no
			// pause can follow an open tail.
			day.SessionOpen = true
			prevExit = nil
		}
	}
	return day
}

// =============================================================================
// MONTHLY SUMMARY
// =============================================================================

// MonthlySummary builds the full summary for one worker at one employer
// over a local calendar month. An empty zone falls back to the configured
// default.
func (r *Reporter) MonthlySummary(ctx context.Context, worker WorkerID, employer EmployerID, year int, month time.Month, zone string) (*MonthlySummary, error) {
	if zone == "" {
		zone = r.defaultZone
	}

	events, err := r.ledger.Month(ctx, worker, employer, year, month, zone)
	if err != nil {
		return nil, err
	}

	days, err := GroupByDay(events, zone)
	if err != nil {
		return nil, err
	}

	summary := &MonthlySummary{
		WorkerID:    worker,
		EmployerID:  employer,
		Year:        year,
		Month:       month,
		Days:        days,
		GeneratedAt: r.now().UTC(),
	}

	for _, d := range days {
		summary.TotalWorkedMinutes += d.WorkedMinutes
		summary.TotalPauseMinutes += d.PauseMinutes
		if d.SessionOpen {
			summary.HasOpenSession = true
		}
		// A day counts as worked when minutes were logged, or when a session
		// is still running on it.
		if d.WorkedMinutes > 0 || (d.SessionOpen && d.FirstEntry != nil) {
			summary.DaysWorked++
		}
	}

	if len(events) > 0 {
		summary.EmployerName = events[len(events)-1].EmployerName
	}
	return summary, nil
}

// EmployerMonthly builds summaries for every worker with activity at one
// employer in the month. The worker list is derived from the event ledger
// itself; this engine owns no worker directory.
func (r *Reporter) EmployerMonthly(ctx context.Context, employer EmployerID, year int, month time.Month, zone string) ([]MonthlySummary, error) {
	if zone == "" {
		zone = r.defaultZone
	}
	workers, err := r.ledger.WorkersAt(ctx, employer, year, month, zone)
	if err != nil {
		return nil, err
	}

	summaries := make([]MonthlySummary, 0, len(workers))
	for _, w := range workers {
		s, err := r.MonthlySummary(ctx, w, employer, year, month, zone)
		if err != nil {
			return nil, err
		}
		if s.DaysWorked == 0 {
			continue
		}
		summaries = append(summaries, *s)
	}
	return summaries, nil
}
