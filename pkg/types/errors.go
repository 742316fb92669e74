package types

import (
	"errors"
	"fmt"
)

// Sentinel kinds for collaborator failures; match them with errors.Is
var (
	ErrUnreachable = errors.New("collaborator unreachable")
	ErrMalformed   = errors.New("collaborator response malformed")
)

// Collaborator names used in CollaboratorError
const (
	CollaboratorRenderer = "renderer"
	CollaboratorVision   = "vision"
)

// CollaboratorError is the failed branch of a collaborator call.
// Kind is either ErrUnreachable or ErrMalformed.
type CollaboratorError struct {
	Collaborator string
	Kind         error
	Err          error
}

// Unreachable wraps err as a transport failure of the named collaborator
func Unreachable(collaborator string, err error) *CollaboratorError {
	return &CollaboratorError{Collaborator: collaborator, Kind: ErrUnreachable, Err: err}
}

// Malformed wraps err as a decoding failure of the named collaborator
func Malformed(collaborator string, err error) *CollaboratorError {
	return &CollaboratorError{Collaborator: collaborator, Kind: ErrMalformed, Err: err}
}

func (e *CollaboratorError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Collaborator, e.Kind)
	}
	return fmt.Sprintf("%s: %v; %v", e.Collaborator, e.Kind, e.Err)
}

// Is reports whether target is the error's kind
func (e *CollaboratorError) Is(target error) bool {
	return target == e.Kind
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}
