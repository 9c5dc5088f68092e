package hospital

// DoctorStatus is the availability flag on a Doctor. It is a single flag,
// not a count: one doctor can be named by many historical Patient records.
type DoctorStatus string

const (
	StatusAvailable DoctorStatus = "Available"
	StatusAssigned  DoctorStatus = "Assigned"
)

// WaitingListDoctor is stored in Patient.Doctor when registration found no
// matching Available doctor.
const WaitingListDoctor = "Waiting List"

// Doctor is a roster entry. JSON field names are kept verbatim so that
// snapshots stay readable by older doctors.json consumers.
type Doctor struct {
	ID             string       `json:"ID"`
	Name           string       `json:"Name"`
	Specialization string       `json:"Specialization"`
	Status         DoctorStatus `json:"Status"`
}

// Available reports whether the doctor can take a new patient.
func (d Doctor) Available() bool { return d.Status == StatusAvailable }

// Patient is a registered patient.
//
// Doctor holds the assigned doctor's Name (not ID) as it was at
// registration time, or WaitingListDoctor. It is never refreshed: renaming
// a doctor, releasing it, or restarting the process leaves the value as-is,
// so it may name a doctor who is Available again.
type Patient struct {
	ID      string `json:"ID"`
	Name    string `json:"Name"`
	Age     string `json:"Age"`
	Ailment string `json:"Ailment"`
	Doctor  string `json:"Doctor"`
}

// OnWaitingList reports whether the patient was not matched at registration.
func (p Patient) OnWaitingList() bool { return p.Doctor == WaitingListDoctor }

// WaitingListEntry is a patient that failed to match at registration time.
// Waiting-list entries live in memory only.
type WaitingListEntry struct {
	ID      string `json:"ID"`
	Name    string `json:"Name"`
	Age     string `json:"Age"`
	Ailment string `json:"Ailment"`
}

// Snapshot is the persisted part of the store. The waiting list is
// deliberately absent.
type Snapshot struct {
	Doctors  []Doctor  `json:"doctors"`
	Patients []Patient `json:"patients"`
}

// DefaultDoctors is the seed roster used when no doctors could be loaded.
func DefaultDoctors() []Doctor {
	return []Doctor{
		{ID: "D001", Name: "Dr. John Doe", Specialization: "Cardiology", Status: StatusAvailable},
		{ID: "D002", Name: "Dr. Jane Smith", Specialization: "Neurology", Status: StatusAvailable},
		{ID: "D003", Name: "Dr. Mark Johnson", Specialization: "Orthopedics", Status: StatusAvailable},
	}
}

// ResetAll returns a copy of doctors with every Status set to Available.
// It is applied once at startup: assignment state is not trusted across
// restarts.
func ResetAll(doctors []Doctor) []Doctor {
	out := make([]Doctor, len(doctors))
	for i, d := range doctors {
		d.Status = StatusAvailable
		out[i] = d
	}
	return out
}

func cloneDoctors(in []Doctor) []Doctor {
	out := make([]Doctor, len(in))
	copy(out, in)
	return out
}

func clonePatients(in []Patient) []Patient {
	out := make([]Patient, len(in))
	copy(out, in)
	return out
}

func cloneWaiting(in []WaitingListEntry) []WaitingListEntry {
	out := make([]WaitingListEntry, len(in))
	copy(out, in)
	return out
}
