package pipeline

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig marks configuration problems caught before any document
// is submitted. It is the only error class that aborts a run.
var ErrInvalidConfig = errors.New("invalid pipeline configuration")

// Stage identifies which step of the per-document chain failed
type Stage string

const (
	StageInvoke    Stage = "invoke"
	StageTransform Stage = "transform"
	StagePersist   Stage = "persist"
)

// InferenceError wraps a failed call to the inference service. Transient
// marks failures worth retrying (timeouts, rate limiting, 5xx); the pipeline
// itself does not retry, but callers layering a retry policy branch on it.
type InferenceError struct {
	Transient bool
	Err       error
}

func (e *InferenceError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("inference failed (%s): %v", kind, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// MalformedResponseError means the invocation succeeded but its payload did
// not parse into the expected record shape.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// PersistError means writing one document's record failed. It is isolated to
// that document and never undoes earlier successful writes.
type PersistError struct {
	DocumentID string
	Err        error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persisting record for %s: %v", e.DocumentID, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a transient inference failure
func IsTransient(err error) bool {
	var ie *InferenceError
	return errors.As(err, &ie) && ie.Transient
}
