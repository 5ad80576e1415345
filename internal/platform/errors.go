// Package platform holds the error taxonomy shared by the protocol drivers
// that talk to the platform under test. Each driver package returns these
// types so the orchestrator can make propagation decisions (abort, retry,
// downgrade to warning) without knowing transport details.
package platform

import (
	"errors"
	"fmt"
	"net/http"
)

// ControlPlaneError is returned when the control plane answers a request
// with a non-success status. It is not retryable by default; callers decide
// based on the status code.
type ControlPlaneError struct {
	Operation  string // e.g., "createUser"
	StatusCode int
	Reason     string // reason text surfaced from the response
}

func (e *ControlPlaneError) Error() string {
	return fmt.Sprintf("control plane %s failed: status %d: %s", e.Operation, e.StatusCode, e.Reason)
}

// NotFound reports whether the control plane answered 404. Teardown treats
// not-found deletes as already-gone rather than failures.
func (e *ControlPlaneError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// TransportError wraps a connection-level failure on any of the three
// channels. It is considered transient: a caller may retry or continue.
type TransportError struct {
	Op  string // e.g., "mqtt publish", "websocket dial"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError indicates a contract violation: a malformed response, an
// unexpected payload shape, or a payload we failed to serialize. It is fatal
// for the channel it occurred on.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol violation during %s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a ControlPlaneError with status 404.
func IsNotFound(err error) bool {
	var cpErr *ControlPlaneError
	return errors.As(err, &cpErr) && cpErr.NotFound()
}

// IsProtocol reports whether err is (or wraps) a ProtocolError.
func IsProtocol(err error) bool {
	var pErr *ProtocolError
	return errors.As(err, &pErr)
}

// IsTransient reports whether err is (or wraps) a TransportError.
func IsTransient(err error) bool {
	var tErr *TransportError
	return errors.As(err, &tErr)
}
