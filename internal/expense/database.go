package expense

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const bucketName = "expenses"

// Store defines the interface for expense persistence.
type Store interface {
	// ListExpenses returns all expenses whose transaction falls in the
	// given calendar month, ordered by transaction time
	ListExpenses(year int, month time.Month) ([]*Expense, error)

	// CreateExpense persists a new expense and returns the stored record
	CreateExpense(n NewExpense) (*Expense, error)

	// DeleteExpense removes an expense by ID
	DeleteExpense(id string) error

	// Close closes the store
	Close() error
}

// BoltStore implements the Store interface using BoltDB.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore creates a new BoltStore instance
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// ListExpenses returns all expenses for the given calendar month
func (b *BoltStore) ListExpenses(year int, month time.Month) ([]*Expense, error) {
	expenses := make([]*Expense, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var e Expense
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("unmarshaling expense: %w", err)
			}
			if e.TransactionDatetime.Year() == year && e.TransactionDatetime.Month() == month {
				expenses = append(expenses, &e)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(expenses, func(i, j int) bool {
		return expenses[i].TransactionDatetime.Before(expenses[j].TransactionDatetime)
	})
	return expenses, nil
}

// CreateExpense persists a new expense and returns the stored record
func (b *BoltStore) CreateExpense(n NewExpense) (*Expense, error) {
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

	err = b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshaling expense: %w", err)
		}
		return bucket.Put([]byte(e.ID), data)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// DeleteExpense removes an expense by ID
func (b *BoltStore) DeleteExpense(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket.Get([]byte(id)) == nil {
			return fmt.Errorf("expense not found: %s", id)
		}
		return bucket.Delete([]byte(id))
	})
}

// Close closes the store
func (b *BoltStore) Close() error {
	return b.db.Close()
}
