package ingest

import (
	"errors"
	"fmt"

	"github.com/spendlens/spendlens/internal/expense"
)

// ErrNothingSelected reports a commit attempt with no selected candidates.
// It is a validation error: no persistence call is made.
var ErrNothingSelected = errors.New("select at least one record")

// ExpenseCreator persists one expense record.
type ExpenseCreator interface {
	CreateExpense(n expense.NewExpense) (*expense.Expense, error)
}

// Committer translates a confirmed candidate batch into persistence calls.
type Committer struct {
	store ExpenseCreator
}

// NewCommitter creates a new Committer
func NewCommitter(store ExpenseCreator) *Committer {
	return &Committer{store: store}
}

// CommitError reports a commit that failed partway. Records persisted before
// the failure stay persisted; there is no rollback. A rerun may re-introduce
// duplicates, which the matcher flags on the next ingestion pass.
type CommitError struct {
	Persisted int
	Selected  int
	Err       error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("persisted %d of %d selected record(s) before failing: %v", e.Persisted, e.Selected, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// Commit persists each selected candidate independently, in order, and
// returns how many were persisted.
func (c *Committer) Commit(candidates []Candidate) (int, error) {
	selected := make([]Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.Selected {
			selected = append(selected, candidate)
		}
	}
	if len(selected) == 0 {
		return 0, ErrNothingSelected
	}

	for i, candidate := range selected {
		_, err := c.store.CreateExpense(expense.NewExpense{
			Date:        candidate.Date,
			Time:        candidate.Time,
			Amount:      candidate.Amount,
			CategoryID:  candidate.CategoryID,
			Note:        candidate.Description,
			IsEssential: candidate.IsEssential,
		})
		if err != nil {
			return i, &CommitError{Persisted: i, Selected: len(selected), Err: err}
		}
	}
	return len(selected), nil
}
