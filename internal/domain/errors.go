package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTreeExists indicates a schedule already has a current decision tree.
	ErrTreeExists = errors.New("decision tree already exists for schedule")

	// ErrStaleTree indicates a commit expected a tree version that is no
	// longer the current one.
	ErrStaleTree = errors.New("decision tree version superseded")

	// ErrAlreadyCommitted indicates a payment with the same reference exists.
	ErrAlreadyCommitted = errors.New("payment already committed")
)

// ValidationError reports a missing or invalid input: unknown member or
// schedule, or a malformed top-level structure. It is raised before any write.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// LockedResourceError reports an attempt to mutate a locked tree. Duplicate
// the tree to get an editable version.
type LockedResourceError struct {
	Resource string
	ID       string
	LockedAt *time.Time
}

func (e *LockedResourceError) Error() string {
	if e.LockedAt != nil {
		return fmt.Sprintf("%s %s is locked since %s", e.Resource, e.ID, e.LockedAt.Format(time.RFC3339))
	}
	return fmt.Sprintf("%s %s is locked", e.Resource, e.ID)
}

// NotApplicableError means the schedule cannot price this member, as opposed
// to a valid price with zero reduction.
type NotApplicableError struct {
	Reason string
}

func (e *NotApplicableError) Error() string {
	return "not applicable: " + e.Reason
}

// MatcherError reports a malformed branch or rule condition. It is recorded
// in the trace and treated as a non-match for that branch only.
type MatcherError struct {
	BranchID string
	Kind     ConditionKind
	Err      error
}

func (e *MatcherError) Error() string {
	return fmt.Sprintf("branch %s (%s): %v", e.BranchID, e.Kind, e.Err)
}

func (e *MatcherError) Unwrap() error { return e.Err }

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsLocked reports whether err is, or wraps, a LockedResourceError.
func IsLocked(err error) bool {
	var le *LockedResourceError
	return errors.As(err, &le)
}

// IsNotApplicable reports whether err is, or wraps, a NotApplicableError.
func IsNotApplicable(err error) bool {
	var ne *NotApplicableError
	return errors.As(err, &ne)
}
