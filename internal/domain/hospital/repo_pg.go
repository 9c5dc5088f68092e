package hospital

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type snapshotRepoPG struct{ pool *pgxpool.Pool }

// NewSnapshotRepoPG stores the roster in the doctor and patient tables
// created by migrations/001_hospital.sql. Row order is kept in the
// position column because matching depends on it.
func NewSnapshotRepoPG(pool *pgxpool.Pool) SnapshotRepository {
	return &snapshotRepoPG{pool: pool}
}

func (r *snapshotRepoPG) saved(ctx context.Context, collection string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM snapshot_meta WHERE collection = $1)`, collection).Scan(&exists); err != nil {
		return fmt.Errorf("check %s snapshot: %w", collection, err)
	}
	if !exists {
		return ErrSnapshotNotFound
	}
	return nil
}

func (r *snapshotRepoPG) LoadDoctors(ctx context.Context) ([]Doctor, error) {
	if err := r.saved(ctx, bucketDoctors); err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, name, specialization, status FROM doctor ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query doctors: %w", err)
	}
	defer rows.Close()
	doctors := []Doctor{}
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.Name, &d.Specialization, &d.Status); err != nil {
			return nil, fmt.Errorf("scan doctor: %w", err)
		}
		doctors = append(doctors, d)
	}
	return doctors, rows.Err()
}

func (r *snapshotRepoPG) LoadPatients(ctx context.Context) ([]Patient, error) {
	if err := r.saved(ctx, bucketPatients); err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, name, age, ailment, doctor FROM patient ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query patients: %w", err)
	}
	defer rows.Close()
	patients := []Patient{}
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.Name, &p.Age, &p.Ailment, &p.Doctor); err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

// Save replaces both tables in one transaction.
func (r *snapshotRepoPG) Save(ctx context.Context, doctors []Doctor, patients []Patient) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM doctor`); err != nil {
		return fmt.Errorf("clear doctors: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM patient`); err != nil {
		return fmt.Errorf("clear patients: %w", err)
	}

	docRows := make([][]interface{}, len(doctors))
	for i, d := range doctors {
		docRows[i] = []interface{}{i, d.ID, d.Name, d.Specialization, string(d.Status)}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"doctor"},
		[]string{"position", "id", "name", "specialization", "status"},
		pgx.CopyFromRows(docRows)); err != nil {
		return fmt.Errorf("copy doctors: %w", err)
	}

	patRows := make([][]interface{}, len(patients))
	for i, p := range patients {
		patRows[i] = []interface{}{i, p.ID, p.Name, p.Age, p.Ailment, p.Doctor}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"patient"},
		[]string{"position", "id", "name", "age", "ailment", "doctor"},
		pgx.CopyFromRows(patRows)); err != nil {
		return fmt.Errorf("copy patients: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO snapshot_meta (collection, saved_at) VALUES ($1, NOW()), ($2, NOW())
		ON CONFLICT (collection) DO UPDATE SET saved_at = EXCLUDED.saved_at`,
		bucketDoctors, bucketPatients); err != nil {
		return fmt.Errorf("record snapshot: %w", err)
	}

	return tx.Commit(ctx)
}
