package hospital

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSnapshotNotFound is returned by a SnapshotRepository when a collection
// has never been saved.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ValidationError reports missing or conflicting input. No state was
// changed when it is returned.
type ValidationError struct {
	Op     string
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "required"
	}
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s: %s", e.Op, reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, strings.Join(e.Fields, ", "), reason)
}

// NotFoundError reports an identifier that is not present in the target
// collection.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// NoSelectionError reports an operation that needs a target identifier but
// was called without one.
type NoSelectionError struct {
	Op string
}

func (e *NoSelectionError) Error() string {
	return fmt.Sprintf("%s: no record selected", e.Op)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsNoSelection(err error) bool {
	var ns *NoSelectionError
	return errors.As(err, &ns)
}
