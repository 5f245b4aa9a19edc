package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrIntakeNotFound = errors.New("intake record not found")
	ErrCaseNotFound   = errors.New("case not found")
	ErrSetNotFound    = errors.New("no generated document set for case")
	ErrNoPlaintiffs   = errors.New("case has no plaintiff parties")
)

// ValidationError rejects malformed or incomplete input before any side
// effect has taken place.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed on %q: %s", e.Field, e.Message)
}

// PersistenceError is a file or database write failure. Whether it aborts
// the submission is a policy decision of the orchestrator.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// PipelineError is a failure or timeout of the external normalization
// pipeline. Single attempt; the orchestrator decides degrade vs abort.
type PipelineError struct {
	StatusCode int
	TimedOut   bool
	Err        error
}

func (e *PipelineError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("pipeline call timed out: %v", e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("pipeline returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("pipeline call failed: %v", e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// RenderError is one plaintiff's document generation failure. Always
// isolated to its fan-out item; never aborts sibling renders.
type RenderError struct {
	PlaintiffID uuid.UUID
	Err         error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render failed for plaintiff %s: %v", e.PlaintiffID, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// DeliveryError is one artifact's delivery failure. Always isolated;
// never escalated to overall submission failure.
type DeliveryError struct {
	Filename string
	Channel  string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s delivery failed for %s: %v", e.Channel, e.Filename, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
