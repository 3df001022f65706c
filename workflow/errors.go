package workflow

import (
	"errors"
	"fmt"
)

// ErrDecisionNotFound is returned by Confirm/Cancel when the token is
// unknown, already settled, or expired.
var ErrDecisionNotFound = errors.New("decision not found or expired")

// PersistenceError wraps a collaborator I/O failure caught at the pipeline
// boundary. The save it interrupted left no partial state; the caller may
// retry the whole operation.
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

func persistenceErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// ValidationError is a hard, field-pinpointed input failure. It blocks the
// save; the form stays open with Message attached to the offending field.
type ValidationError struct {
	Reason  RuleReason
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
