package hospital

import "strings"

// Outcome is the terminal state of a registration.
type Outcome string

const (
	OutcomeAssigned    Outcome = "assigned"
	OutcomeWaitingList Outcome = "waiting_list"
)

// Assignment is the result of registering one patient.
type Assignment struct {
	Outcome  Outcome `json:"outcome"`
	Patient  Patient `json:"patient"`
	DoctorID string  `json:"doctor_id,omitempty"`
}

// Match returns the index of the first doctor, in slice order, that is
// Available and whose specialization appears in ailment ignoring case.
// Ties are broken by order only; there is no scoring.
func Match(doctors []Doctor, ailment string) (int, bool) {
	a := strings.ToLower(ailment)
	for i, d := range doctors {
		if !d.Available() {
			continue
		}
		if strings.Contains(a, strings.ToLower(d.Specialization)) {
			return i, true
		}
	}
	return -1, false
}

// assign runs the matching policy against st and records the patient.
// Exactly one patient is appended; at most one doctor changes. The caller
// holds the store lock and has validated req.
func (st *state) assign(req AddPatientRequest) Assignment {
	p := Patient{ID: req.ID, Name: req.Name, Age: req.Age, Ailment: req.Ailment}

	if i, ok := Match(st.doctors, req.Ailment); ok {
		st.doctors[i].Status = StatusAssigned
		p.Doctor = st.doctors[i].Name
		st.patients = append(st.patients, p)
		return Assignment{Outcome: OutcomeAssigned, Patient: p, DoctorID: st.doctors[i].ID}
	}

	st.waiting = append(st.waiting, WaitingListEntry{
		ID: req.ID, Name: req.Name, Age: req.Age, Ailment: req.Ailment,
	})
	p.Doctor = WaitingListDoctor
	st.patients = append(st.patients, p)
	return Assignment{Outcome: OutcomeWaitingList, Patient: p}
}

// ReconcileResult summarises one pass over the waiting list.
type ReconcileResult struct {
	Assigned []Assignment      `json:"assigned"`
	Waiting  []WaitingListEntry `json:"waiting"`
	Dropped  []string          `json:"dropped,omitempty"`
}

// Changed reports whether the pass mutated any persisted collection.
// Dropping entries only touches the waiting list, which is not persisted.
func (r ReconcileResult) Changed() bool { return len(r.Assigned) > 0 }

// reconcile retries every waiting-list entry in order, matching on the
// patient record's current ailment. An entry is dropped when its patient
// record is gone, no longer waiting, or already handled earlier in the
// pass, so one patient consumes at most one doctor.
func (st *state) reconcile() ReconcileResult {
	res := ReconcileResult{Waiting: []WaitingListEntry{}}
	remaining := st.waiting[:0:0]
	seen := make(map[string]bool, len(st.waiting))

	for _, w := range st.waiting {
		pi := st.patientIndex(w.ID)
		if pi < 0 || seen[w.ID] || !st.patients[pi].OnWaitingList() {
			res.Dropped = append(res.Dropped, w.ID)
			continue
		}
		seen[w.ID] = true

		p := &st.patients[pi]
		di, ok := Match(st.doctors, p.Ailment)
		if !ok {
			w = WaitingListEntry{ID: p.ID, Name: p.Name, Age: p.Age, Ailment: p.Ailment}
			remaining = append(remaining, w)
			res.Waiting = append(res.Waiting, w)
			continue
		}
		st.doctors[di].Status = StatusAssigned
		p.Doctor = st.doctors[di].Name
		res.Assigned = append(res.Assigned, Assignment{
			Outcome:  OutcomeAssigned,
			Patient:  *p,
			DoctorID: st.doctors[di].ID,
		})
	}
	st.waiting = remaining
	return res
}
