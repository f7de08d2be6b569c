package expense

import (
	"errors"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// mockStore is a mock implementation of Store
type mockStore struct {
	expenses  []*Expense
	createErr error
	listErr   error
	deleteErr error
}

func (m *mockStore) ListExpenses(year int, month time.Month) ([]*Expense, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.expenses, nil
}

func (m *mockStore) CreateExpense(n NewExpense) (*Expense, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	transactionTime, err := n.TransactionTime()
	if err != nil {
		return nil, err
	}
	e := &Expense{
		ID:                  "mock-id",
		TransactionDatetime: transactionTime,
		Amount:              n.Amount,
		IsEssential:         n.IsEssential,
	}
	m.expenses = append(m.expenses, e)
	return e, nil
}

func (m *mockStore) DeleteExpense(id string) error {
	return m.deleteErr
}

func (m *mockStore) Close() error {
	return nil
}

var _ = Describe("Service", func() {
	var (
		store   *mockStore
		service *Service
	)

	BeforeEach(func() {
		store = &mockStore{}
		service = NewService(store)
	})

	Describe("CreateExpense", func() {
		var (
			input   NewExpense
			created *Expense
			err     error
		)

		BeforeEach(func() {
			input = NewExpense{Date: "2026-03-05", Amount: 10}
		})

		JustBeforeEach(func() {
			created, err = service.CreateExpense(input)
		})

		When("the input is valid", func() {
			It("persists the expense", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(created.ID).To(Equal("mock-id"))
			})
		})

		When("the amount is negative", func() {
			BeforeEach(func() {
				input.Amount = -1
			})

			It("returns an error without persisting", func() {
				Expect(err).To(HaveOccurred())
				Expect(store.expenses).To(BeEmpty())
			})
		})

		When("the amount is not finite", func() {
			BeforeEach(func() {
				input.Amount = math.NaN()
			})

			It("returns an error", func() {
				Expect(err).To(HaveOccurred())
			})
		})

		When("the store fails", func() {
			BeforeEach(func() {
				store.createErr = errors.New("store error")
			})

			It("returns the error", func() {
				Expect(err).To(MatchError(store.createErr))
			})
		})
	})

	Describe("Summarize", func() {
		var (
			summary *MonthlySummary
			err     error
		)

		BeforeEach(func() {
			store.expenses = []*Expense{
				{TransactionDatetime: time.Date(2026, 3, 5, 12, 30, 0, 0, time.Local), Amount: 45, IsEssential: true},
				{TransactionDatetime: time.Date(2026, 3, 5, 19, 0, 0, 0, time.Local), Amount: 20},
				{TransactionDatetime: time.Date(2026, 3, 20, 0, 0, 0, 0, time.Local), Amount: 35},
			}
		})

		JustBeforeEach(func() {
			summary, err = service.Summarize(2026, time.March, 620)
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("totals all expenses", func() {
			Expect(summary.Total).To(Equal(100.0))
		})

		It("totals essential expenses separately", func() {
			Expect(summary.EssentialTotal).To(Equal(45.0))
		})

		It("buckets spending per calendar day", func() {
			Expect(summary.PerDay).To(HaveLen(31))
			Expect(summary.PerDay[4]).To(Equal(65.0))
			Expect(summary.PerDay[19]).To(Equal(35.0))
		})

		It("computes the daily budget across the month's days", func() {
			Expect(summary.DailyBudget).To(Equal(20.0))
		})

		It("computes the remaining budget", func() {
			Expect(summary.Remaining).To(Equal(520.0))
		})

		When("the store fails", func() {
			BeforeEach(func() {
				store.listErr = errors.New("list error")
			})

			It("returns the error", func() {
				Expect(err).To(MatchError(store.listErr))
			})
		})
	})
})
