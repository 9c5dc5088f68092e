package hospital

import "sync"

// state holds the three collections. All access goes through Store, which
// owns the lock.
type state struct {
	doctors  []Doctor
	patients []Patient
	waiting  []WaitingListEntry
}

func (st *state) doctorIndex(id string) int {
	for i, d := range st.doctors {
		if d.ID == id {
			return i
		}
	}
	return -1
}

func (st *state) patientIndex(id string) int {
	for i, p := range st.patients {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Store is the in-memory record store and the only place doctors,
// patients and the waiting list are mutated. A single mutex covers all
// three collections so that registration reads availability and writes
// doctor, patient and waiting list as one unit.
type Store struct {
	mu sync.Mutex
	st state
}

// NewStore builds a store over copies of doctors and patients. The waiting
// list always starts empty.
func NewStore(doctors []Doctor, patients []Patient) *Store {
	return &Store{st: state{
		doctors:  cloneDoctors(doctors),
		patients: clonePatients(patients),
		waiting:  []WaitingListEntry{},
	}}
}

func (s *Store) AddDoctor(req AddDoctorRequest) (Doctor, error) {
	if err := req.Validate(); err != nil {
		return Doctor{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.st.doctorIndex(req.ID) >= 0 {
		return Doctor{}, &ValidationError{Op: "add doctor", Fields: []string{"id"}, Reason: "already exists"}
	}
	d := Doctor{ID: req.ID, Name: req.Name, Specialization: req.Specialization, Status: StatusAvailable}
	s.st.doctors = append(s.st.doctors, d)
	return d, nil
}

// AddPatient validates req and hands it to the matching engine. A patient
// that lands on the waiting list is a successful registration.
func (s *Store) AddPatient(req AddPatientRequest) (Assignment, error) {
	if err := req.Validate(); err != nil {
		return Assignment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.st.patientIndex(req.ID) >= 0 {
		return Assignment{}, &ValidationError{Op: "add patient", Fields: []string{"id"}, Reason: "already exists"}
	}
	return s.st.assign(req), nil
}

// EditPatient overwrites name, age and ailment. The assigned doctor is
// fixed at registration and is not re-matched, even if the new ailment
// would match a different specialization.
func (s *Store) EditPatient(req EditPatientRequest) (Patient, error) {
	if err := req.Validate(); err != nil {
		return Patient{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.st.patientIndex(req.ID)
	if i < 0 {
		return Patient{}, &NotFoundError{Kind: "patient", ID: req.ID}
	}
	p := &s.st.patients[i]
	p.Name = req.Name
	p.Age = req.Age
	p.Ailment = req.Ailment
	return *p, nil
}

// DeletePatient removes the patient. The assigned doctor keeps its
// Assigned status and any waiting-list entry stays in place.
func (s *Store) DeletePatient(id string) (Patient, error) {
	if blank(id) {
		return Patient{}, &NoSelectionError{Op: "delete patient"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.st.patientIndex(id)
	if i < 0 {
		return Patient{}, &NotFoundError{Kind: "patient", ID: id}
	}
	removed := s.st.patients[i]
	s.st.patients = append(s.st.patients[:i:i], s.st.patients[i+1:]...)
	return removed, nil
}

// ResetDoctorStatuses marks every doctor Available.
func (s *Store) ResetDoctorStatuses() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.doctors = ResetAll(s.st.doctors)
}

// ReleaseDoctor marks one doctor Available. Patient records that name the
// doctor are left unchanged.
func (s *Store) ReleaseDoctor(id string) (Doctor, error) {
	if blank(id) {
		return Doctor{}, &NoSelectionError{Op: "release doctor"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.st.doctorIndex(id)
	if i < 0 {
		return Doctor{}, &NotFoundError{Kind: "doctor", ID: id}
	}
	s.st.doctors[i].Status = StatusAvailable
	return s.st.doctors[i], nil
}

// ReconcileWaitingList retries waiting-list entries against the current
// roster. It only runs when called.
func (s *Store) ReconcileWaitingList() ReconcileResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.reconcile()
}

func (s *Store) Doctors() []Doctor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneDoctors(s.st.doctors)
}

func (s *Store) Patients() []Patient {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePatients(s.st.patients)
}

func (s *Store) WaitingList() []WaitingListEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneWaiting(s.st.waiting)
}

func (s *Store) Doctor(id string) (Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.st.doctorIndex(id)
	if i < 0 {
		return Doctor{}, &NotFoundError{Kind: "doctor", ID: id}
	}
	return s.st.doctors[i], nil
}

func (s *Store) Patient(id string) (Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.st.patientIndex(id)
	if i < 0 {
		return Patient{}, &NotFoundError{Kind: "patient", ID: id}
	}
	return s.st.patients[i], nil
}

// Snapshot returns copies of the persisted collections.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Doctors:  cloneDoctors(s.st.doctors),
		Patients: clonePatients(s.st.patients),
	}
}

// Counts returns the roster gauges in one consistent read.
func (s *Store) Counts() (available, assigned, waiting int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.st.doctors {
		if d.Available() {
			available++
		} else {
			assigned++
		}
	}
	return available, assigned, len(s.st.waiting)
}
