package dragdrop

import (
	"errors"
	"fmt"
)

// Code classifies a rejected drop.
type Code string

const (
	SelfParent       Code = "self-parent"
	CycleDetected    Code = "cycle-detected"
	InvalidHierarchy Code = "invalid-hierarchy"
	UnknownBean      Code = "unknown-bean"
)

// ValidationError explains why a drop was refused. It never comes with an intent.
type ValidationError struct {
	Code      Code
	DraggedID string
	TargetID  string
	Detail    string
}

func (e *ValidationError) Error() string {
	switch e.Code {
	case SelfParent:
		return fmt.Sprintf("cannot make %s its own parent", e.DraggedID)
	case CycleDetected:
		return fmt.Sprintf("cannot move %s under %s: %s is one of its descendants", e.DraggedID, e.TargetID, e.TargetID)
	case InvalidHierarchy:
		if e.Detail != "" {
			return fmt.Sprintf("cannot move %s under %s: %s", e.DraggedID, e.TargetID, e.Detail)
		}
		return fmt.Sprintf("cannot move %s under %s", e.DraggedID, e.TargetID)
	case UnknownBean:
		return fmt.Sprintf("unknown bean %s", e.Detail)
	default:
		return fmt.Sprintf("drop of %s rejected (%s)", e.DraggedID, e.Code)
	}
}

// Is matches another *ValidationError with the same code, so
// errors.Is(err, dragdrop.ErrCycle) works without caring about ids.
func (e *ValidationError) Is(target error) bool {
	other, ok := target.(*ValidationError)
	return ok && other.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrSelfParent       = &ValidationError{Code: SelfParent}
	ErrCycle            = &ValidationError{Code: CycleDetected}
	ErrInvalidHierarchy = &ValidationError{Code: InvalidHierarchy}
	ErrUnknownBean      = &ValidationError{Code: UnknownBean}

	// ErrInvalidTransition is returned by Session methods called out of order.
	ErrInvalidTransition = errors.New("invalid drag state transition")
)
