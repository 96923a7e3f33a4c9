package notificare

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured indicates an operation that requires Configure to have
	// completed first.
	ErrNotConfigured = errors.New("notificare: not configured")

	// ErrNotReady indicates an operation that requires a completed launch.
	ErrNotReady = errors.New("notificare: not ready")

	// ErrLaunchInProgress indicates a Launch call while another launch is
	// still running.
	ErrLaunchInProgress = errors.New("notificare: cannot launch again while launching")

	// ErrDeviceUnavailable indicates no device has been registered yet.
	ErrDeviceUnavailable = errors.New("notificare: device unavailable")

	// ErrApplicationUnavailable indicates the application snapshot has not
	// been fetched or cached yet.
	ErrApplicationUnavailable = errors.New("notificare: application unavailable")
)

// ServiceUnavailableError indicates a backend-advertised capability is
// disabled for the current application.
type ServiceUnavailableError struct {
	Service string
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("notificare: service %q is not available", e.Service)
}

// IsServiceUnavailable reports whether err indicates a disabled service.
func IsServiceUnavailable(err error) bool {
	var se *ServiceUnavailableError
	return errors.As(err, &se)
}
