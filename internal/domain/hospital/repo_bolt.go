package hospital

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
)

var boltBucket = []byte("hospital")

// BoltRepository stores the two collections as JSON values in a single
// bolt bucket.
type BoltRepository struct {
	db *bolt.DB
}

func NewBoltRepository(path string) (*BoltRepository, error) {
	if path == "" {
		path = "hsm.bolt"
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &BoltRepository{db: db}, nil
}

func (r *BoltRepository) LoadDoctors(_ context.Context) ([]Doctor, error) {
	var doctors []Doctor
	if err := r.get(bucketDoctors, &doctors); err != nil {
		return nil, err
	}
	return nonNilDoctors(doctors), nil
}

func (r *BoltRepository) LoadPatients(_ context.Context) ([]Patient, error) {
	var patients []Patient
	if err := r.get(bucketPatients, &patients); err != nil {
		return nil, err
	}
	return nonNilPatients(patients), nil
}

func (r *BoltRepository) get(key string, v interface{}) error {
	return r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(boltBucket)
		if b == nil {
			return ErrSnapshotNotFound
		}
		raw := b.Get([]byte(key))
		if raw == nil {
			return ErrSnapshotNotFound
		}
		if err := json.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		return nil
	})
}

func (r *BoltRepository) Save(_ context.Context, doctors []Doctor, patients []Patient) error {
	docs, err := json.Marshal(nonNilDoctors(doctors))
	if err != nil {
		return fmt.Errorf("encode doctors: %w", err)
	}
	pats, err := json.Marshal(nonNilPatients(patients))
	if err != nil {
		return fmt.Errorf("encode patients: %w", err)
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(boltBucket)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(bucketDoctors), docs); err != nil {
			return err
		}
		return b.Put([]byte(bucketPatients), pats)
	})
}

// Close the database and release the file lock.
func (r *BoltRepository) Close() error {
	return r.db.Close()
}
