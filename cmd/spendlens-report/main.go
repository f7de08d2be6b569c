package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/spendlens/spendlens/internal/expense"
)

// spendlens-report prints a month's spending summary from the command line,
// for checking the numbers without starting the server.
func main() {
	now := time.Now()

	fs := ff.NewFlagSet("spendlens-report")
	var (
		dataDir       = fs.StringLong("data", "./data", "Data directory")
		storeType     = fs.StringLong("store", "bolt", "Expense store backend: 'bolt' or 'sqlite'")
		year          = fs.IntLong("year", now.Year(), "Report year")
		month         = fs.IntLong("month", int(now.Month()), "Report month (1-12)")
		monthlyBudget = fs.Float64Long("monthly-budget", 0, "Monthly spending budget (0 disables)")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("SPENDLENS"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *month < 1 || *month > 12 {
		slog.Error("Invalid month", "month", *month)
		os.Exit(1)
	}

	var store expense.Store
	var err error
	switch *storeType {
	case "bolt":
		store, err = expense.NewBoltStore(filepath.Join(*dataDir, "expenses.db"))
	case "sqlite":
		store, err = expense.NewSQLiteStore(filepath.Join(*dataDir, "expenses.sqlite"))
	default:
		slog.Error("Invalid store type", "type", *storeType, "valid", "bolt or sqlite")
		os.Exit(1)
	}
	if err != nil {
		slog.Error("Failed to open expense store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	service := expense.NewService(store)

	expenses, err := service.ListExpenses(*year, time.Month(*month))
	if err != nil {
		slog.Error("Failed to list expenses", "error", err)
		os.Exit(1)
	}

	summary, err := service.Summarize(*year, time.Month(*month), *monthlyBudget)
	if err != nil {
		slog.Error("Failed to summarize month", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%s %d\n\n", time.Month(*month), *year)
	for _, e := range expenses {
		marker := " "
		if e.IsEssential {
			marker = "*"
		}
		if e.HasTimeOfDay() {
			fmt.Printf("%s %s  %8.2f  %s\n", marker, e.TransactionDatetime.Format("Jan 02 15:04"), e.Amount, e.Note)
		} else {
			fmt.Printf("%s %s  %8.2f  %s\n", marker, e.TransactionDatetime.Format("Jan 02      "), e.Amount, e.Note)
		}
	}

	fmt.Printf("\nTotal:     %8.2f\n", summary.Total)
	fmt.Printf("Essential: %8.2f\n", summary.EssentialTotal)
	if *monthlyBudget > 0 {
		fmt.Printf("Budget:    %8.2f\n", *monthlyBudget)
		fmt.Printf("Remaining: %8.2f\n", summary.Remaining)
	}
}
