package hospital

import "strings"

type AddDoctorRequest struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
}

func (r AddDoctorRequest) Validate() error {
	return requireFields("add doctor",
		field{"id", r.ID},
		field{"name", r.Name},
		field{"specialization", r.Specialization},
	)
}

type AddPatientRequest struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Age     string `json:"age"`
	Ailment string `json:"ailment"`
}

func (r AddPatientRequest) Validate() error {
	return requireFields("add patient",
		field{"id", r.ID},
		field{"name", r.Name},
		field{"age", r.Age},
		field{"ailment", r.Ailment},
	)
}

// EditPatientRequest targets the patient selected by ID. The ID itself is
// never changed.
type EditPatientRequest struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Age     string `json:"age"`
	Ailment string `json:"ailment"`
}

func (r EditPatientRequest) Validate() error {
	if blank(r.ID) {
		return &NoSelectionError{Op: "edit patient"}
	}
	return requireFields("edit patient",
		field{"name", r.Name},
		field{"age", r.Age},
		field{"ailment", r.Ailment},
	)
}

type field struct {
	name  string
	value string
}

func requireFields(op string, fields ...field) error {
	var missing []string
	for _, f := range fields {
		if blank(f.value) {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Op: op, Fields: missing}
	}
	return nil
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
