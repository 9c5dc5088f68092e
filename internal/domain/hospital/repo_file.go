package hospital

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	doctorsFile  = "doctors.json"
	patientsFile = "patients.json"
)

type fileRepo struct {
	dir string
}

// NewFileRepository stores doctors.json and patients.json under dir as
// 4-space indented JSON arrays.
func NewFileRepository(dir string) (SnapshotRepository, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &fileRepo{dir: dir}, nil
}

func (r *fileRepo) LoadDoctors(_ context.Context) ([]Doctor, error) {
	var doctors []Doctor
	if err := r.read(doctorsFile, &doctors); err != nil {
		return nil, err
	}
	if doctors == nil {
		doctors = []Doctor{}
	}
	return doctors, nil
}

func (r *fileRepo) LoadPatients(_ context.Context) ([]Patient, error) {
	var patients []Patient
	if err := r.read(patientsFile, &patients); err != nil {
		return nil, err
	}
	if patients == nil {
		patients = []Patient{}
	}
	return patients, nil
}

func (r *fileRepo) Save(_ context.Context, doctors []Doctor, patients []Patient) error {
	if err := r.write(doctorsFile, nonNilDoctors(doctors)); err != nil {
		return err
	}
	return r.write(patientsFile, nonNilPatients(patients))
}

func (r *fileRepo) read(name string, v interface{}) error {
	data, err := os.ReadFile(filepath.Join(r.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrSnapshotNotFound
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// write replaces name atomically so a crash never leaves half a file.
func (r *fileRepo) write(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(r.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(r.dir, name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func nonNilDoctors(d []Doctor) []Doctor {
	if d == nil {
		return []Doctor{}
	}
	return d
}

func nonNilPatients(p []Patient) []Patient {
	if p == nil {
		return []Patient{}
	}
	return p
}
