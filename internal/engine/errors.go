package engine

import "fmt"

// ValidationError reports input the caller can fix.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ConflictError reports a state-machine precondition that did not hold, such
// as declining an assignment that was already accepted.
type ConflictError struct {
	Entity string
	Reason string
}

func (e ConflictError) Error() string {
	if e.Entity == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Entity, e.Reason)
}
