package controller

import (
	"errors"
	"fmt"

	"svccore/internal/service"
)

// errModeIsTerminal is returned by SetMode once a controller's mode has
// reached REMOVE; no further mode change is accepted.
var errModeIsTerminal = errors.New("controller: mode is REMOVE, no further mode change accepted")

// ErrModeIsTerminal reports whether err (or any error it wraps) is the
// rejection returned when SetMode is called after a controller has already
// entered REMOVE.
func ErrModeIsTerminal(err error) bool {
	return errors.Is(err, errModeIsTerminal)
}

// errNotInStartFailed is returned by Retry when called on a controller
// that is not currently in START_FAILED.
var errNotInStartFailed = errors.New("controller: not in START_FAILED, nothing to retry")

// ErrNotInStartFailed reports whether err is the rejection Retry returns
// when the controller is not currently in START_FAILED.
func ErrNotInStartFailed(err error) bool {
	return errors.Is(err, errNotInStartFailed)
}

// NotFoundError is returned when a lookup by service name fails to resolve
// against the registry.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("controller: service %q not found", e.Name)
}

// IsNotFound reports whether err is a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ShutdownError is returned by SetMode when a non-REMOVE mode change is
// attempted while the owning container has begun shutting down.
type ShutdownError struct {
	Name string
}

func (e *ShutdownError) Error() string {
	return fmt.Sprintf("controller: service %q: container is shutting down, only REMOVE is accepted", e.Name)
}

// IsShutdown reports whether err is a *ShutdownError.
func IsShutdown(err error) bool {
	var se *ShutdownError
	return errors.As(err, &se)
}

// ProtocolViolationError is returned by a StartContext or StopContext when
// Complete or Failed is called outside the ASYNC protocol state (spec §7
// item 5): before Asynchronous(), or more than once. Defined in the
// service package, where the violation is actually detected, and aliased
// here since callers reason about it alongside this package's other
// typed errors.
type ProtocolViolationError = service.ProtocolViolationError

// IsProtocolViolation reports whether err is a *ProtocolViolationError.
func IsProtocolViolation(err error) bool {
	var pv *ProtocolViolationError
	return errors.As(err, &pv)
}

// DuplicateNameError is returned by a Builder when installing a service
// under a name already present in the target Registry.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("controller: service %q already installed", e.Name)
}

// IsDuplicateName reports whether err is a *DuplicateNameError.
func IsDuplicateName(err error) bool {
	var dn *DuplicateNameError
	return errors.As(err, &dn)
}
