package ingest

import (
	"math"

	"github.com/spendlens/spendlens/internal/expense"
)

// MarkDuplicates compares candidates against the month's already-persisted
// expenses and flags exact matches. It is a pure function: inputs are not
// mutated, the annotated copy is returned.
//
// The rule is deliberately conservative. A timed candidate matches only on
// exact date, minute and amount; a time-less candidate matches only records
// that are themselves time-less (stored at midnight). A missed duplicate is
// cheaper than silently flagging a legitimate second purchase of the same
// amount, so duplicates are surfaced for confirmation, never auto-excluded:
// Selected defaults to the inverse of IsDuplicated and stays user-editable.
func MarkDuplicates(candidates []Candidate, existing []*expense.Expense) []Candidate {
	marked := make([]Candidate, len(candidates))
	copy(marked, candidates)

	for i := range marked {
		marked[i].IsDuplicated = matchesAny(marked[i], existing)
		marked[i].Selected = !marked[i].IsDuplicated
	}
	return marked
}

// markAllNew is the degraded path when the dedup context could not be
// fetched: extraction results are never discarded over a failed secondary
// lookup, so every candidate passes through as new and selected.
func markAllNew(candidates []Candidate) []Candidate {
	marked := make([]Candidate, len(candidates))
	copy(marked, candidates)
	for i := range marked {
		marked[i].IsDuplicated = false
		marked[i].Selected = true
	}
	return marked
}

func matchesAny(c Candidate, existing []*expense.Expense) bool {
	for _, e := range existing {
		if matches(c, e) {
			return true
		}
	}
	return false
}

func matches(c Candidate, e *expense.Expense) bool {
	if c.Date != e.TransactionDatetime.Format("2006-01-02") {
		return false
	}
	if !amountsEqual(c.Amount, e.Amount) {
		return false
	}
	if c.Time != nil {
		return e.HasTimeOfDay() && e.TransactionDatetime.Format("15:04") == *c.Time
	}
	return !e.HasTimeOfDay()
}

// amountsEqual compares amounts to the cent, sidestepping float drift from
// coercion and storage round trips.
func amountsEqual(a, b float64) bool {
	return math.Round(a*100) == math.Round(b*100)
}
