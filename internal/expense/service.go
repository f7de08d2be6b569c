package expense

import (
	"fmt"
	"math"
	"time"
)

// Service handles expense operations on top of a Store.
type Service struct {
	store Store
}

// NewService creates a new Service
func NewService(store Store) *Service {
	return &Service{store: store}
}

// CreateExpense validates and persists a new expense
func (s *Service) CreateExpense(n NewExpense) (*Expense, error) {
	if math.IsNaN(n.Amount) || math.IsInf(n.Amount, 0) || n.Amount < 0 {
		return nil, fmt.Errorf("amount must be a non-negative number")
	}
	if _, err := n.TransactionTime(); err != nil {
		return nil, err
	}
	created, err := s.store.CreateExpense(n)
	if err != nil {
		return nil, fmt.Errorf("creating expense: %w", err)
	}
	return created, nil
}

// ListExpenses returns all expenses for a calendar month
func (s *Service) ListExpenses(year int, month time.Month) ([]*Expense, error) {
	expenses, err := s.store.ListExpenses(year, month)
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	return expenses, nil
}

// DeleteExpense removes an expense by ID
func (s *Service) DeleteExpense(id string) error {
	if err := s.store.DeleteExpense(id); err != nil {
		return fmt.Errorf("deleting expense: %w", err)
	}
	return nil
}

// MonthlySummary is the dashboard's view of one month of spending.
type MonthlySummary struct {
	Year           int       `json:"year"`
	Month          int       `json:"month"`
	Total          float64   `json:"total"`
	EssentialTotal float64   `json:"essential_total"`
	PerDay         []float64 `json:"per_day"` // index 0 is the 1st of the month
	DailyBudget    float64   `json:"daily_budget"`
	Remaining      float64   `json:"remaining"`
}

// Summarize computes the monthly spending summary against a monthly budget.
// The daily budget is the monthly budget spread evenly across the month's
// calendar days.
func (s *Service) Summarize(year int, month time.Month, monthlyBudget float64) (*MonthlySummary, error) {
	expenses, err := s.store.ListExpenses(year, month)
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}

	days := time.Date(year, month+1, 0, 0, 0, 0, 0, time.Local).Day()
	summary := &MonthlySummary{
		Year:   year,
		Month:  int(month),
		PerDay: make([]float64, days),
	}

	for _, e := range expenses {
		summary.Total += e.Amount
		if e.IsEssential {
			summary.EssentialTotal += e.Amount
		}
		day := e.TransactionDatetime.Day()
		if day >= 1 && day <= days {
			summary.PerDay[day-1] += e.Amount
		}
	}

	if monthlyBudget > 0 {
		summary.DailyBudget = monthlyBudget / float64(days)
		summary.Remaining = monthlyBudget - summary.Total
	}
	return summary, nil
}
