package hospital

import (
	"context"
	"sync"
)

// SnapshotRepository persists the doctor and patient collections. Loads
// return ErrSnapshotNotFound for a collection that was never saved. Save
// always writes both collections in full.
type SnapshotRepository interface {
	LoadDoctors(ctx context.Context) ([]Doctor, error)
	LoadPatients(ctx context.Context) ([]Patient, error)
	Save(ctx context.Context, doctors []Doctor, patients []Patient) error
}

// MemoryRepository keeps the last saved snapshot in process memory.
type MemoryRepository struct {
	mu       sync.Mutex
	doctors  []Doctor
	patients []Patient
	saved    bool
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) LoadDoctors(_ context.Context) ([]Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.saved {
		return nil, ErrSnapshotNotFound
	}
	return cloneDoctors(r.doctors), nil
}

func (r *MemoryRepository) LoadPatients(_ context.Context) ([]Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.saved {
		return nil, ErrSnapshotNotFound
	}
	return clonePatients(r.patients), nil
}

func (r *MemoryRepository) Save(_ context.Context, doctors []Doctor, patients []Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doctors = cloneDoctors(doctors)
	r.patients = clonePatients(patients)
	r.saved = true
	return nil
}
