package hospital

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const (
	bucketDoctors  = "doctors"
	bucketPatients = "patients"
)

// SQLiteRepository keeps each collection as a JSON blob in a single
// state(bucket, payload) table and replaces both rows per save.
type SQLiteRepository struct {
	db   *sql.DB
	path string
}

func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	if path == "" {
		path = "hsm.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &SQLiteRepository{db: db, path: path}, nil
}

func (r *SQLiteRepository) LoadDoctors(ctx context.Context) ([]Doctor, error) {
	var doctors []Doctor
	if err := r.load(ctx, bucketDoctors, &doctors); err != nil {
		return nil, err
	}
	return nonNilDoctors(doctors), nil
}

func (r *SQLiteRepository) LoadPatients(ctx context.Context) ([]Patient, error) {
	var patients []Patient
	if err := r.load(ctx, bucketPatients, &patients); err != nil {
		return nil, err
	}
	return nonNilPatients(patients), nil
}

func (r *SQLiteRepository) load(ctx context.Context, bucket string, v interface{}) error {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM state WHERE bucket = ?`, bucket).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSnapshotNotFound
	}
	if err != nil {
		return fmt.Errorf("select %s: %w", bucket, err)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode %s: %w", bucket, err)
	}
	return nil
}

func (r *SQLiteRepository) Save(ctx context.Context, doctors []Doctor, patients []Patient) (retErr error) {
	docs, err := json.Marshal(nonNilDoctors(doctors))
	if err != nil {
		return fmt.Errorf("encode doctors: %w", err)
	}
	pats, err := json.Marshal(nonNilPatients(patients))
	if err != nil {
		return fmt.Errorf("encode patients: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, row := range []struct {
		bucket  string
		payload []byte
	}{{bucketDoctors, docs}, {bucketPatients, pats}} {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`,
			row.bucket, row.payload); err != nil {
			return fmt.Errorf("upsert %s: %w", row.bucket, err)
		}
	}
	return tx.Commit()
}

// Close releases the database handle.
func (r *SQLiteRepository) Close() error { return r.db.Close() }

// Path returns the configured database path.
func (r *SQLiteRepository) Path() string { return r.path }
