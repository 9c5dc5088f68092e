package hospital

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// Observer receives registration and roster events, typically to feed
// metrics.
type Observer interface {
	Registered(outcome Outcome)
	Roster(available, assigned, waiting int)
	SaveFailed()
}

type nopObserver struct{}

func (nopObserver) Registered(Outcome)   {}
func (nopObserver) Roster(int, int, int) {}
func (nopObserver) SaveFailed()          {}

// Bootstrap loads the persisted roster and builds a Store. A missing or
// unreadable doctors collection falls back to DefaultDoctors, a missing or
// unreadable patients collection to an empty list; neither stops startup.
// Every doctor starts Available regardless of the persisted status.
func Bootstrap(ctx context.Context, repo SnapshotRepository, logger zerolog.Logger) *Store {
	doctors, err := repo.LoadDoctors(ctx)
	if err != nil {
		evt := logger.Warn()
		if !errors.Is(err, ErrSnapshotNotFound) {
			evt = evt.Err(err)
		}
		evt.Msg("no usable doctors snapshot, seeding default roster")
		doctors = DefaultDoctors()
	}

	patients, err := repo.LoadPatients(ctx)
	if err != nil {
		evt := logger.Warn()
		if !errors.Is(err, ErrSnapshotNotFound) {
			evt = evt.Err(err)
		}
		evt.Msg("no usable patients snapshot, starting empty")
		patients = []Patient{}
	}

	logger.Info().
		Int("doctors", len(doctors)).
		Int("patients", len(patients)).
		Msg("roster loaded")

	return NewStore(ResetAll(doctors), patients)
}

// Service runs Store operations and flushes the full doctors and patients
// collections to the repository after every mutation. Mutation, snapshot
// and save happen under one lock so saves never land out of order.
type Service struct {
	store  *Store
	repo   SnapshotRepository
	logger zerolog.Logger
	obs    Observer

	writeMu sync.Mutex
}

func NewService(store *Store, repo SnapshotRepository, logger zerolog.Logger) *Service {
	s := &Service{store: store, repo: repo, logger: logger, obs: nopObserver{}}
	s.observeRoster()
	return s
}

// SetObserver attaches an Observer to the service. The observer is only
// called with the write lock held.
func (s *Service) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.obs = o
	s.observeRoster()
}

func (s *Service) Store() *Store { return s.store }

func (s *Service) AddDoctor(ctx context.Context, req AddDoctorRequest) (Doctor, error) {
	var d Doctor
	err := s.mutate(ctx, "add doctor", func() (err error) {
		d, err = s.store.AddDoctor(req)
		return err
	})
	if err != nil {
		return Doctor{}, err
	}
	s.logger.Info().Str("doctor_id", d.ID).Str("specialization", d.Specialization).Msg("doctor added")
	return d, nil
}

func (s *Service) AddPatient(ctx context.Context, req AddPatientRequest) (Assignment, error) {
	var a Assignment
	err := s.mutate(ctx, "add patient", func() (err error) {
		if a, err = s.store.AddPatient(req); err != nil {
			return err
		}
		s.obs.Registered(a.Outcome)
		return nil
	})
	if err != nil {
		return Assignment{}, err
	}

	evt := s.logger.Info().Str("patient_id", a.Patient.ID).Str("outcome", string(a.Outcome))
	if a.Outcome == OutcomeAssigned {
		evt.Str("doctor_id", a.DoctorID).Msg("patient assigned")
	} else {
		evt.Msg("patient added to waiting list")
	}
	return a, nil
}

func (s *Service) EditPatient(ctx context.Context, req EditPatientRequest) (Patient, error) {
	var p Patient
	err := s.mutate(ctx, "edit patient", func() (err error) {
		p, err = s.store.EditPatient(req)
		return err
	})
	if err != nil {
		return Patient{}, err
	}
	s.logger.Info().Str("patient_id", p.ID).Msg("patient updated")
	return p, nil
}

func (s *Service) DeletePatient(ctx context.Context, id string) (Patient, error) {
	var p Patient
	err := s.mutate(ctx, "delete patient", func() (err error) {
		p, err = s.store.DeletePatient(id)
		return err
	})
	if err != nil {
		return Patient{}, err
	}
	s.logger.Info().Str("patient_id", p.ID).Str("doctor", p.Doctor).Msg("patient deleted")
	return p, nil
}

func (s *Service) ReleaseDoctor(ctx context.Context, id string) (Doctor, error) {
	var d Doctor
	err := s.mutate(ctx, "release doctor", func() (err error) {
		d, err = s.store.ReleaseDoctor(id)
		return err
	})
	if err != nil {
		return Doctor{}, err
	}
	s.logger.Info().Str("doctor_id", d.ID).Msg("doctor released")
	return d, nil
}

// ResetDoctorStatuses marks every doctor Available and persists the roster.
// Patient records keep the doctor names they were assigned.
func (s *Service) ResetDoctorStatuses(ctx context.Context) ([]Doctor, error) {
	var doctors []Doctor
	err := s.mutate(ctx, "reset doctors", func() error {
		s.store.ResetDoctorStatuses()
		doctors = s.store.Doctors()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("doctors", len(doctors)).Msg("doctor statuses reset")
	return doctors, nil
}

// ReconcileWaitingList retries the waiting list once. The roster is only
// saved when at least one patient was assigned.
func (s *Service) ReconcileWaitingList(ctx context.Context) ReconcileResult {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res := s.store.ReconcileWaitingList()
	if res.Changed() {
		s.persist(ctx, "reconcile waiting list")
	}
	for _, a := range res.Assigned {
		s.obs.Registered(a.Outcome)
	}
	s.observeRoster()

	s.logger.Info().
		Int("assigned", len(res.Assigned)).
		Int("waiting", len(res.Waiting)).
		Int("dropped", len(res.Dropped)).
		Msg("waiting list reconciled")
	return res
}

func (s *Service) ListDoctors(_ context.Context) []Doctor {
	return s.store.Doctors()
}

func (s *Service) GetDoctor(_ context.Context, id string) (Doctor, error) {
	return s.store.Doctor(id)
}

func (s *Service) ListPatients(_ context.Context) []Patient {
	return s.store.Patients()
}

func (s *Service) GetPatient(_ context.Context, id string) (Patient, error) {
	return s.store.Patient(id)
}

func (s *Service) WaitingList(_ context.Context) []WaitingListEntry {
	return s.store.WaitingList()
}

func (s *Service) mutate(ctx context.Context, op string, fn func() error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := fn(); err != nil {
		return err
	}
	s.persist(ctx, op)
	s.observeRoster()
	return nil
}

// persist saves the current snapshot. The in-memory change stands even if
// the save fails; the next successful save brings storage back in line.
func (s *Service) persist(ctx context.Context, op string) {
	snap := s.store.Snapshot()
	if err := s.repo.Save(ctx, snap.Doctors, snap.Patients); err != nil {
		s.obs.SaveFailed()
		s.logger.Error().Err(err).Str("op", op).Msg("failed to persist roster")
	}
}

func (s *Service) observeRoster() {
	s.obs.Roster(s.store.Counts())
}
