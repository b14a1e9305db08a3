// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package unitrad

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedBody is wrapped by a TransportError when a 2xx body is not JSON.
	ErrMalformedBody = errors.New("response body is not valid JSON")

	// ErrIndexOutOfRange is wrapped by a ProtocolError when an update
	// addresses a book that does not exist in the current snapshot.
	ErrIndexOutOfRange = errors.New("update index out of range")

	// ErrBadIndex is wrapped by a ProtocolError when an update has no
	// usable "_idx".
	ErrBadIndex = errors.New("update index missing or not an integer")

	// ErrKindMismatch is wrapped by a ProtocolError when a sequence or
	// mapping patch targets a field of a different kind.
	ErrKindMismatch = errors.New("patch kind does not match target field")

	// ErrRetriesExhausted is returned when an opt-in retry cap is reached.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrCancelled is the terminal error of a session stopped by Cancel or by
	// its context.
	ErrCancelled = errors.New("session cancelled")

	// ErrAlreadyStarted is returned by Start on a session that has already run.
	ErrAlreadyStarted = errors.New("session already started")

	// ErrNilCallback is returned by Start when no snapshot callback is given.
	ErrNilCallback = errors.New("snapshot callback required")

	// ErrRequesterRequired is returned when no Requester is provided.
	ErrRequesterRequired = errors.New("requester required")
)

// TransportError reports a request that did not produce an HTTP response
// or whose body could not be read.
type TransportError struct {
	Command string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("unitrad %s request: %v", e.Command, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a non-success HTTP status.
type StatusError struct {
	Command    string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unitrad %s returned HTTP %d", e.Command, e.StatusCode)
}

// ProtocolError reports a response the client cannot apply to its snapshot.
// It ends the session.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err == nil {
		return "unitrad protocol error: " + e.Reason
	}
	return fmt.Sprintf("unitrad protocol error: %s: %v", e.Reason, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }
