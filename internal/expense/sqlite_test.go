package expense

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SQLiteStore", func() {
	var store *SQLiteStore

	BeforeEach(func() {
		var err error
		store, err = NewSQLiteStore(filepath.Join(GinkgoT().TempDir(), "expenses.sqlite"))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if store != nil {
			store.Close()
		}
	})

	It("round-trips an expense through create and list", func() {
		created, err := store.CreateExpense(NewExpense{
			Date:        "2026-03-05",
			Time:        timePtr("12:30"),
			Amount:      45,
			Note:        "Lunch",
			IsEssential: true,
		})
		Expect(err).NotTo(HaveOccurred())

		expenses, err := store.ListExpenses(2026, time.March)
		Expect(err).NotTo(HaveOccurred())
		Expect(expenses).To(HaveLen(1))
		Expect(expenses[0].ID).To(Equal(created.ID))
		Expect(expenses[0].Amount).To(Equal(45.0))
		Expect(expenses[0].Note).To(Equal("Lunch"))
		Expect(expenses[0].IsEssential).To(BeTrue())
		Expect(expenses[0].TransactionDatetime.Hour()).To(Equal(12))
	})

	It("filters list results to the requested month", func() {
		_, err := store.CreateExpense(NewExpense{Date: "2026-03-05", Amount: 1})
		Expect(err).NotTo(HaveOccurred())
		_, err = store.CreateExpense(NewExpense{Date: "2026-04-05", Amount: 2})
		Expect(err).NotTo(HaveOccurred())

		expenses, err := store.ListExpenses(2026, time.March)
		Expect(err).NotTo(HaveOccurred())
		Expect(expenses).To(HaveLen(1))
		Expect(expenses[0].Amount).To(Equal(1.0))
	})

	It("preserves a nil category ID", func() {
		_, err := store.CreateExpense(NewExpense{Date: "2026-03-05", Amount: 1})
		Expect(err).NotTo(HaveOccurred())

		expenses, err := store.ListExpenses(2026, time.March)
		Expect(err).NotTo(HaveOccurred())
		Expect(expenses[0].CategoryID).To(BeNil())
	})

	It("deletes an existing expense and rejects an unknown ID", func() {
		created, err := store.CreateExpense(NewExpense{Date: "2026-03-05", Amount: 1})
		Expect(err).NotTo(HaveOccurred())

		Expect(store.DeleteExpense(created.ID)).To(Succeed())
		Expect(store.DeleteExpense(created.ID)).NotTo(Succeed())
	})
})
