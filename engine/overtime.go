/*
overtime.go - Overtime detection over aggregated totals

PURPOSE:
  Compares daily and monthly worked totals against a configurable
  expected-minutes threshold and emits findings for the excess. Findings
  are read-only computations; nothing is persisted and nothing is
  auto-corrected.

THRESHOLD:
  Expected minutes per day is a configuration input (default 480 = 8h),
  injected by the caller. The detector never hard-codes it. The monthly
  expectation scales with the number of days actually worked, so a
  part-month worker is not flagged for missing days.

SEE ALSO:
  - report.go: Produces the MonthlySummary input
  - config: Carries ExpectedMinutesPerDay
*/
package engine

import "time"

// DefaultExpectedMinutesPerDay is the fallback threshold: an 8-hour day.
const DefaultExpectedMinutesPerDay int64 = 480

// classifySeverity bands the excess: under an hour is minor, under two
// hours moderate, anything above severe.
func classifySeverity(excess int64) Severity {
	switch {
	case excess < 60:
		return SeverityMinor
	case excess < 120:
		return SeverityModerate
	default:
		return SeveritySevere
	}
}

// DetectDaily emits one finding per day whose worked minutes exceed the
// expected threshold. Days at or under the threshold produce nothing.
func DetectDaily(summary MonthlySummary, expectedPerDay int64) []OvertimeFinding {
	if expectedPerDay <= 0 {
		expectedPerDay = DefaultExpectedMinutesPerDay
	}

	var findings []OvertimeFinding
	for _, d := range summary.Days {
		excess := d.WorkedMinutes - expectedPerDay
		if excess <= 0 {
			continue
		}
		findings = append(findings, OvertimeFinding{
			WorkerID:        summary.WorkerID,
			EmployerID:      summary.EmployerID,
			Period:          Period{Kind: PeriodDay, Date: d.Date},
			ExpectedMinutes: expectedPerDay,
			ActualMinutes:   d.WorkedMinutes,
			ExcessMinutes:   excess,
			Severity:        classifySeverity(excess),
		})
	}
	return findings
}

// DetectMonthly emits at most one finding for the whole month. Expected
// minutes = days actually worked × the daily threshold.
func DetectMonthly(summary MonthlySummary, expectedPerDay int64) []OvertimeFinding {
	if expectedPerDay <= 0 {
		expectedPerDay = DefaultExpectedMinutesPerDay
	}

	expected := int64(summary.DaysWorked) * expectedPerDay
	excess := summary.TotalWorkedMinutes - expected
	if excess <= 0 {
		return nil
	}
	return []OvertimeFinding{{
		WorkerID:        summary.WorkerID,
		EmployerID:      summary.EmployerID,
		Period:          Period{Kind: PeriodMonth, Year: summary.Year, Month: summary.Month},
		ExpectedMinutes: expected,
		ActualMinutes:   summary.TotalWorkedMinutes,
		ExcessMinutes:   excess,
		Severity:        classifySeverity(excess),
	}}
}

// =============================================================================
// EMPLOYER-WIDE OVERTIME REPORT
// =============================================================================

// WorkerOvertime is one worker's line in an employer overtime report.
type WorkerOvertime struct {
	WorkerID           WorkerID
	TotalWorkedMinutes int64
	ExpectedMinutes    int64
	OvertimeMinutes    int64
	DaysWithOvertime   int
	Severity           Severity
}

// OvertimeReport covers all workers with overtime at one employer for one
// month. Workers at or under their expectation are excluded.
type OvertimeReport struct {
	EmployerID     EmployerID
	Year           int
	Month          time.Month
	ExpectedPerDay int64
	Workers        []WorkerOvertime
	GeneratedAt    time.Time
}

// BuildOvertimeReport derives the employer report from per-worker monthly
// summaries (typically Reporter.EmployerMonthly output).
func BuildOvertimeReport(employer EmployerID, year int, month time.Month, summaries []MonthlySummary, expectedPerDay int64, generatedAt time.Time) OvertimeReport {
	if expectedPerDay <= 0 {
		expectedPerDay = DefaultExpectedMinutesPerDay
	}

	report := OvertimeReport{
		EmployerID:     employer,
		Year:           year,
		Month:          month,
		ExpectedPerDay: expectedPerDay,
		GeneratedAt:    generatedAt.UTC(),
	}

	for _, s := range summaries {
		findings := DetectMonthly(s, expectedPerDay)
		if len(findings) == 0 {
			continue
		}
		f := findings[0]

		daysOver := 0
		for _, d := range s.Days {
			if d.WorkedMinutes > expectedPerDay {
				daysOver++
			}
		}

		report.Workers = append(report.Workers, WorkerOvertime{
			WorkerID:           s.WorkerID,
			TotalWorkedMinutes: s.TotalWorkedMinutes,
			ExpectedMinutes:    f.ExpectedMinutes,
			OvertimeMinutes:    f.ExcessMinutes,
			DaysWithOvertime:   daysOver,
			Severity:           f.Severity,
		})
	}
	return report
}
