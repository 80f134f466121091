package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/example/studio-scheduler/internal/calendar"
	"github.com/example/studio-scheduler/internal/persistence"
)

var (
	// ErrNotFound is returned when a session or a referenced directory entry does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrEditorNotFound is returned when an attendance editor id is unknown or has expired.
	ErrEditorNotFound = errors.New("application: attendance editor not found")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(v.Fields(), ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// Fields returns the offending field names in sorted order.
func (v *ValidationError) Fields() []string {
	if v == nil {
		return nil
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// add records a field level validation error. The first message per field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

func newFieldError(field, message string) *ValidationError {
	vErr := &ValidationError{}
	vErr.add(field, message)
	return vErr
}

// PersistenceError reports a failed write or read against the session store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// PartialBatchFailure reports a recurring batch that stopped after at least
// one occurrence was stored. Created sessions are not rolled back.
type PartialBatchFailure struct {
	Created     []Session
	FailedIndex int
	FailedDate  calendar.Date
	Total       int
	Err         error
}

func (e *PartialBatchFailure) Error() string {
	return fmt.Sprintf("created %d of %d sessions; occurrence %d on %s failed: %v",
		len(e.Created), e.Total, e.FailedIndex+1, e.FailedDate, e.Err)
}

func (e *PartialBatchFailure) Unwrap() error {
	return e.Err
}

// CreatedIDs lists the ids of the sessions stored before the failure.
func (e *PartialBatchFailure) CreatedIDs() []string {
	ids := make([]string, len(e.Created))
	for i, session := range e.Created {
		ids[i] = session.ID
	}
	return ids
}

func isNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}

// mapSessionRepoError turns store failures into NotFound or PersistenceError.
func mapSessionRepoError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isNotFoundError(err) {
		return fmt.Errorf("%w: session", ErrNotFound)
	}
	return &PersistenceError{Op: op, Err: err}
}
