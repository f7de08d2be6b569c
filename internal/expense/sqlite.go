package expense

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS expenses (
	id TEXT PRIMARY KEY,
	transaction_datetime TEXT NOT NULL,
	amount REAL NOT NULL,
	category_id TEXT,
	note TEXT NOT NULL DEFAULT '',
	is_essential INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_expenses_datetime ON expenses(transaction_datetime);
`

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite expense database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// ListExpenses returns all expenses for the given calendar month
func (s *SQLiteStore) ListExpenses(year int, month time.Month) ([]*Expense, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 1, 0)

	rows, err := s.db.Query(
		`SELECT id, transaction_datetime, amount, category_id, note, is_essential, created_at
		 FROM expenses
		 WHERE transaction_datetime >= ? AND transaction_datetime < ?
		 ORDER BY transaction_datetime`,
		start.Format(time.RFC3339), end.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("querying expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]*Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func scanExpense(rows *sql.Rows) (*Expense, error) {
	var (
		e                    Expense
		transactionDatetime  string
		categoryID           sql.NullString
		isEssential          int
		createdAt            string
	)
	if err := rows.Scan(&e.ID, &transactionDatetime, &e.Amount, &categoryID, &e.Note, &isEssential, &createdAt); err != nil {
		return nil, fmt.Errorf("scanning expense: %w", err)
	}

	parsed, err := time.ParseInLocation(time.RFC3339, transactionDatetime, time.Local)
	if err != nil {
		return nil, fmt.Errorf("parsing transaction datetime: %w", err)
	}
	e.TransactionDatetime = parsed

	if created, err := time.Parse(time.RFC3339, createdAt); err == nil {
		e.CreatedAt = created
	}
	if categoryID.Valid {
		e.CategoryID = &categoryID.String
	}
	e.IsEssential = isEssential != 0
	return &e, nil
}

// CreateExpense persists a new expense and returns the stored record
func (s *SQLiteStore) CreateExpense(n NewExpense) (*Expense, error) {
	transactionTime, err := n.TransactionTime()
	if err != nil {
		return nil, err
	}

	e := &Expense{
		ID:                  uuid.NewString(),
		TransactionDatetime: transactionTime,
		Amount:              n.Amount,
		CategoryID:          n.CategoryID,
		Note:                n.Note,
		IsEssential:         n.IsEssential,
		CreatedAt:           time.Now(),
	}

	var categoryID sql.NullString
	if e.CategoryID != nil {
		categoryID = sql.NullString{String: *e.CategoryID, Valid: true}
	}
	essential := 0
	if e.IsEssential {
		essential = 1
	}

	_, err = s.db.Exec(
		`INSERT INTO expenses (id, transaction_datetime, amount, category_id, note, is_essential, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TransactionDatetime.Format(time.RFC3339), e.Amount, categoryID, e.Note, essential,
		e.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting expense: %w", err)
	}
	return e, nil
}

// DeleteExpense removes an expense by ID
func (s *SQLiteStore) DeleteExpense(id string) error {
	result, err := s.db.Exec(`DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting expense: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("expense not found: %s", id)
	}
	return nil
}

// Close closes the store
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
