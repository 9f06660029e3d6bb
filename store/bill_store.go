package store

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/dto"
)

const billsBucket = "bills"

// BillStore persists parsed bills keyed by ID.
type BillStore interface {
	// Save inserts the bill or overwrites the one with the same ID.
	Save(bill *dto.StoredBill) error

	// Get retrieves a bill by ID.
	Get(id string) (*dto.StoredBill, error)

	// List returns every stored bill in key order.
	List() ([]*dto.StoredBill, error)

	// Clear removes every stored bill.
	Clear() error

	// Close closes the underlying database.
	Close() error
}

// BoltStore implements BillStore on a bbolt file.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) the database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(billsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Save(bill *dto.StoredBill) error {
	if bill.ID == "" {
		return fmt.Errorf("saving bill: id is required")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(bill)
		if err != nil {
			return fmt.Errorf("marshaling bill: %w", err)
		}
		return tx.Bucket([]byte(billsBucket)).Put([]byte(bill.ID), data)
	})
}

func (s *BoltStore) Get(id string) (*dto.StoredBill, error) {
	var bill *dto.StoredBill
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(billsBucket)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", dto.ErrBillNotFound, id)
		}
		return json.Unmarshal(data, &bill)
	})
	if err != nil {
		return nil, err
	}
	return bill, nil
}

func (s *BoltStore) List() ([]*dto.StoredBill, error) {
	bills := make([]*dto.StoredBill, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(billsBucket)).ForEach(func(k, v []byte) error {
			var bill dto.StoredBill
			if err := json.Unmarshal(v, &bill); err != nil {
				return fmt.Errorf("unmarshaling bill %s: %w", k, err)
			}
			bills = append(bills, &bill)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return bills, nil
}

// Clear drops and recreates the bills bucket in one transaction.
func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(billsBucket)); err != nil && err != bbolt.ErrBucketNotFound {
			return fmt.Errorf("deleting bucket: %w", err)
		}
		_, err := tx.CreateBucket([]byte(billsBucket))
		return err
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
