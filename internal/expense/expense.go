package expense

import (
	"fmt"
	"time"
)

// Expense is one persisted ledger record.
type Expense struct {
	ID                  string    `json:"id"`
	TransactionDatetime time.Time `json:"transaction_datetime"`
	Amount              float64   `json:"amount"`
	CategoryID          *string   `json:"category_id,omitempty"`
	Note                string    `json:"note"`
	IsEssential         bool      `json:"is_essential"`
	CreatedAt           time.Time `json:"created_at"`
}

// NewExpense carries the fields needed to create an expense. Time is
// optional; a record without a time-of-day is stored at midnight.
type NewExpense struct {
	Date        string  `json:"date"` // YYYY-MM-DD
	Time        *string `json:"time"` // HH:mm
	Amount      float64 `json:"amount"`
	CategoryID  *string `json:"category_id"`
	Note        string  `json:"note"`
	IsEssential bool    `json:"is_essential"`
}

// TransactionTime composes the stored timestamp from a calendar date and an
// optional HH:mm time-of-day.
func (n NewExpense) TransactionTime() (time.Time, error) {
	date, err := time.ParseInLocation("2006-01-02", n.Date, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", n.Date, err)
	}
	if n.Time == nil {
		return date, nil
	}
	clock, err := time.Parse("15:04", *n.Time)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time %q: %w", *n.Time, err)
	}
	return date.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute), nil
}

// HasTimeOfDay reports whether the record carries a discernible time-of-day.
// A midnight timestamp means the time was never known.
func (e *Expense) HasTimeOfDay() bool {
	return e.TransactionDatetime.Hour() != 0 || e.TransactionDatetime.Minute() != 0
}
