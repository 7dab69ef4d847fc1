// Package errs defines the error taxonomy of spec.md §7 as small typed
// values, mirroring the connectivity package's style: one struct per kind,
// each implementing error. The stage and storage kinds wrap a cause and
// expose it via Unwrap; InvalidInputErr, NotFoundErr and CancelledErr
// carry no cause.
package errs

import (
	"errors"
	"fmt"
)

// InvalidInputErr means a request failed a data-model invariant (spec §3).
// The REST boundary surfaces it as 400 and never logs it as an incident.
type InvalidInputErr struct {
	Field   string
	Message string
}

func (e *InvalidInputErr) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// InvalidInput constructs an InvalidInputErr.
func InvalidInput(field, message string) error {
	return &InvalidInputErr{Field: field, Message: message}
}

// NotFoundErr means an id did not resolve to an entity.
type NotFoundErr struct {
	Kind string
	ID   string
}

func (e *NotFoundErr) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// NotFound constructs a NotFoundErr.
func NotFound(kind, id string) error {
	return &NotFoundErr{Kind: kind, ID: id}
}

// StageTransientErr wraps a recoverable stage I/O failure (navigation
// timeout, fetch error). The stage's slot is marked unavailable; the run
// continues.
type StageTransientErr struct {
	Stage string
	Cause error
}

func (e *StageTransientErr) Error() string {
	return fmt.Sprintf("stage %s: transient failure: %v", e.Stage, e.Cause)
}

func (e *StageTransientErr) Unwrap() error { return e.Cause }

// StageTransient constructs a StageTransientErr.
func StageTransient(stage string, cause error) error {
	return &StageTransientErr{Stage: stage, Cause: cause}
}

// StageFatalErr means Crawl/Capture/Report failed hard; the run ends
// failed and no subsequent stage runs.
type StageFatalErr struct {
	Stage string
	Cause error
}

func (e *StageFatalErr) Error() string {
	return fmt.Sprintf("stage %s: fatal failure: %v", e.Stage, e.Cause)
}

func (e *StageFatalErr) Unwrap() error { return e.Cause }

// StageFatal constructs a StageFatalErr.
func StageFatal(stage string, cause error) error {
	return &StageFatalErr{Stage: stage, Cause: cause}
}

// StorageCorruptionErr means the snapshot could not be parsed or migrated.
// The process must refuse to start rather than write a partial snapshot.
type StorageCorruptionErr struct {
	Path  string
	Cause error
}

func (e *StorageCorruptionErr) Error() string {
	return fmt.Sprintf("storage corruption at %s: %v", e.Path, e.Cause)
}

func (e *StorageCorruptionErr) Unwrap() error { return e.Cause }

// StorageCorruption constructs a StorageCorruptionErr.
func StorageCorruption(path string, cause error) error {
	return &StorageCorruptionErr{Path: path, Cause: cause}
}

// CancelledErr means the run was cancelled explicitly or timed out; it
// follows the same terminal path as StageFatal with the reason recorded.
type CancelledErr struct {
	Reason string
}

func (e *CancelledErr) Error() string {
	return fmt.Sprintf("cancelled: %s", e.Reason)
}

// Cancelled constructs a CancelledErr.
func Cancelled(reason string) error {
	return &CancelledErr{Reason: reason}
}

// IsNotFound reports whether err (or something it wraps) is a NotFoundErr.
func IsNotFound(err error) bool {
	var nf *NotFoundErr
	return errors.As(err, &nf)
}

// IsInvalidInput reports whether err is an InvalidInputErr.
func IsInvalidInput(err error) bool {
	_, ok := err.(*InvalidInputErr)
	return ok
}
