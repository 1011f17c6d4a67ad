package types

import (
	"errors"
	"fmt"
)

// InputError rejects a malformed request before any external call is made.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid input for %s: %s", e.Field, e.Reason)
}

func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// PlanGenerationError means the planning collaborator returned no plan or a
// malformed plan. Planning aborts; execution never starts on a partial plan.
type PlanGenerationError struct {
	Err error
}

func (e *PlanGenerationError) Error() string {
	return fmt.Sprintf("plan generation failed: %v", e.Err)
}

func (e *PlanGenerationError) Unwrap() error { return e.Err }

func IsPlanGenerationError(err error) bool {
	var pe *PlanGenerationError
	return errors.As(err, &pe)
}

// FileOperationError is a per-instruction failure. The executor records it
// and continues with the next instruction.
type FileOperationError struct {
	Path string
	Err  error
}

func (e *FileOperationError) Error() string {
	return fmt.Sprintf("file operation failed for %s: %v", e.Path, e.Err)
}

func (e *FileOperationError) Unwrap() error { return e.Err }

// PublicationError is a branch/commit/push/PR failure. It is surfaced as a
// distinct field so callers can tell "edits applied, publication failed"
// from "edits failed".
type PublicationError struct {
	Stage string
	Err   error
}

func (e *PublicationError) Error() string {
	return fmt.Sprintf("publication failed during %s: %v", e.Stage, e.Err)
}

func (e *PublicationError) Unwrap() error { return e.Err }

func IsPublicationError(err error) bool {
	var pe *PublicationError
	return errors.As(err, &pe)
}
