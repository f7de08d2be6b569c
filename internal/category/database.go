package category

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const bucketName = "categories"

// DefaultNames seeds a fresh database so extraction always has somewhere to
// file a candidate.
var DefaultNames = []string{
	"Food",
	"Transport",
	"Shopping",
	"Entertainment",
	"Health",
	"Utilities",
	"Other",
}

// Store defines the interface for category persistence.
type Store interface {
	// ListCategories returns all categories in insertion order
	ListCategories() ([]Category, error)

	// CreateCategory adds a new category and returns it with its generated ID
	CreateCategory(name string) (*Category, error)

	// Close closes the store
	Close() error
}

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) a category database and seeds the default
// categories when the bucket is empty.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening category db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		if err != nil {
			return err
		}
		if bucket.Stats().KeyN > 0 {
			return nil
		}
		for _, name := range DefaultNames {
			c := Category{ID: uuid.NewString(), Name: name}
			data, err := json.Marshal(c)
			if err != nil {
				return fmt.Errorf("marshaling category: %w", err)
			}
			key, err := bucket.NextSequence()
			if err != nil {
				return err
			}
			if err := bucket.Put(sequenceKey(key), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("seeding categories: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// sequenceKey renders a bucket sequence number as a sortable fixed-width key
// so ForEach yields categories in insertion order.
func sequenceKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%016d", seq))
}

// ListCategories returns all categories in insertion order
func (b *BoltStore) ListCategories() ([]Category, error) {
	categories := make([]Category, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var c Category
			if err := json.Unmarshal(v, &c); err != nil {
				return fmt.Errorf("unmarshaling category: %w", err)
			}
			categories = append(categories, c)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// CreateCategory adds a new category and returns it with its generated ID
func (b *BoltStore) CreateCategory(name string) (*Category, error) {
	c := &Category{ID: uuid.NewString(), Name: name}
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshaling category: %w", err)
		}
		key, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		return bucket.Put(sequenceKey(key), data)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Close closes the store
func (b *BoltStore) Close() error {
	return b.db.Close()
}
