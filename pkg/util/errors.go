// Package util provides logging helpers and the phase error types that
// map a failed run onto a process exit status.
package util

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per failure phase of a run.
var (
	ErrInputParse       = errors.New("malformed input")
	ErrCredentialPrompt = errors.New("credential prompt failed")
	ErrSessionOpen      = errors.New("session open failed")
	ErrConfigApply      = errors.New("configuration apply failed")
)

// ErrNotConnected is returned by device operations on a closed session.
var ErrNotConnected = errors.New("device not connected")

// Phase identifies the stage of a run in which an error occurred.
type Phase int

const (
	PhaseInput Phase = iota + 1
	PhaseCredentials
	PhaseSession
	PhaseApply
)

// String returns the phase name used in log fields.
func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseCredentials:
		return "credentials"
	case PhaseSession:
		return "session"
	case PhaseApply:
		return "apply"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// ExitCode is the process exit status reported for a failure in this phase.
func (p Phase) ExitCode() int {
	switch p {
	case PhaseInput:
		return 1
	case PhaseCredentials:
		return 2
	case PhaseSession:
		return 3
	}
	return 4
}

func (p Phase) sentinel() error {
	switch p {
	case PhaseInput:
		return ErrInputParse
	case PhaseCredentials:
		return ErrCredentialPrompt
	case PhaseSession:
		return ErrSessionOpen
	}
	return ErrConfigApply
}

// PhaseError tags an error with the phase it occurred in.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	if e.Err == nil {
		return e.Phase.sentinel().Error()
	}
	return e.Err.Error()
}

// Unwrap exposes both the phase sentinel and the underlying cause, so
// errors.Is matches either.
func (e *PhaseError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Phase.sentinel()}
	}
	return []error{e.Phase.sentinel(), e.Err}
}

// NewPhaseError wraps err in the given phase. A nil err stays nil, and an
// err that already carries a phase keeps it.
func NewPhaseError(phase Phase, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := asPhaseError(err); ok {
		return err
	}
	return &PhaseError{Phase: phase, Err: err}
}

// ExitCode maps an error returned by a run onto the process exit status.
// Errors without a phase are treated as apply-phase failures.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if pe, ok := asPhaseError(err); ok {
		return pe.Phase.ExitCode()
	}
	return PhaseApply.ExitCode()
}

func asPhaseError(err error) (*PhaseError, bool) {
	var pe *PhaseError
	ok := errors.As(err, &pe)
	return pe, ok
}
