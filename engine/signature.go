/*
signature.go - Monthly signature ledger

PURPOSE:
  Records a worker's one-time attestation over a finalized monthly summary
  at one employer. A signature means "I acknowledge this month's recorded
  hours as accurate" - so a month can only be signed once, only when no
  session is still open in it, and (by policy) only once the month is over.

UNIQUENESS:
  Exactly one signature per (worker, employer, year, month). The store's
  InsertSignature is atomic insert-iff-absent; two racing sign attempts
  yield one row and one AlreadySigned rejection.

SEE ALSO:
  - store.go: InsertSignature contract
  - report.go: Supplies the summary whose open-session flag gates signing
*/
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SignaturePolicy configures when a month becomes signable.
type SignaturePolicy struct {
	// PastMonthsOnly restricts signing to months strictly before the
	// current one (in the worker's zone). When false, any month with a
	// closed summary may be signed.
	PastMonthsOnly bool
}

// SignatureLedger owns MonthlySignature rows and their uniqueness invariant.
type SignatureLedger struct {
	store       Store
	reporter    *Reporter
	policy      SignaturePolicy
	defaultZone string
	now         func() time.Time
}

func NewSignatureLedger(store Store, reporter *Reporter, policy SignaturePolicy, defaultZone string) *SignatureLedger {
	if defaultZone == "" {
		defaultZone = "UTC"
	}
	return &SignatureLedger{
		store:       store,
		reporter:    reporter,
		policy:      policy,
		defaultZone: defaultZone,
		now:         time.Now,
	}
}

// SignMonth records the worker's attestation over the month's summary.
//
// Preconditions, checked in order:
//  1. Policy: when PastMonthsOnly is set, the target month must be over
//     (ErrMonthNotClosed).
//  2. The month's summary must have no open session (ErrOpenSessionPresent).
//  3. No signature may exist for the key (AlreadySignedError; the final
//     check-and-insert is atomic in the store).
func (l *SignatureLedger) SignMonth(ctx context.Context, worker WorkerID, employer EmployerID, year int, month time.Month, zone string) (*MonthlySignature, error) {
	if zone == "" {
		zone = l.defaultZone
	}
	loc, err := LoadZone(zone)
	if err != nil {
		return nil, err
	}

	if l.policy.PastMonthsOnly {
		nowLocal := l.now().In(loc)
		current := YearMonth{Year: nowLocal.Year(), Month: nowLocal.Month()}
		if !(YearMonth{Year: year, Month: month}).Before(current) {
			return nil, ErrMonthNotClosed
		}
	}

	summary, err := l.reporter.MonthlySummary(ctx, worker, employer, year, month, zone)
	if err != nil {
		return nil, err
	}
	if summary.HasOpenSession {
		return nil, ErrOpenSessionPresent
	}

	sig := MonthlySignature{
		ID:         SignatureID(uuid.NewString()),
		WorkerID:   worker,
		EmployerID: employer,
		Year:       year,
		Month:      month,
		SignedAt:   l.now().UTC(),
	}
	if err := l.store.InsertSignature(ctx, sig); err != nil {
		return nil, err
	}
	return &sig, nil
}

// Status reports, for each of the last `months` calendar months (default
// 12, excluding the current one), whether a signature exists. Months with
// neither events nor a signature are omitted; months with events but no
// signature show as pending. A pure read.
func (l *SignatureLedger) Status(ctx context.Context, worker WorkerID, employer EmployerID, months int) ([]MonthSignatureStatus, error) {
	if months <= 0 {
		months = 12
	}

	candidates := PreviousMonths(l.now().UTC(), months)
	oldest := candidates[len(candidates)-1]
	sinceUTC := time.Date(oldest.Year, oldest.Month, 1, 0, 0, 0, 0, time.UTC)

	withEvents, err := l.store.MonthsWithEvents(ctx, worker, employer, sinceUTC)
	if err != nil {
		return nil, err
	}
	eventMonths := make(map[YearMonth]bool, len(withEvents))
	for _, ym := range withEvents {
		eventMonths[ym] = true
	}

	signatures, err := l.store.SignaturesSince(ctx, worker, employer, oldest.Year)
	if err != nil {
		return nil, err
	}
	signedAt := make(map[YearMonth]time.Time, len(signatures))
	for _, sig := range signatures {
		signedAt[YearMonth{Year: sig.Year, Month: sig.Month}] = sig.SignedAt
	}

	var statuses []MonthSignatureStatus
	for _, ym := range candidates {
		if at, ok := signedAt[ym]; ok {
			t := at
			statuses = append(statuses, MonthSignatureStatus{
				Year:     ym.Year,
				Month:    ym.Month,
				State:    SignatureSigned,
				SignedAt: &t,
			})
			continue
		}
		if eventMonths[ym] {
			statuses = append(statuses, MonthSignatureStatus{
				Year:  ym.Year,
				Month: ym.Month,
				State: SignaturePending,
			})
		}
	}
	return statuses, nil
}
