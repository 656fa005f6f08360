/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2025 Tejus Pratap <tejzpr@gmail.com>
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package ctisdk

import "fmt"

// The connector never lets an error escape its API boundary: every failure is
// mapped to an ERROR or INFO event. The types below classify failures so the
// mapping (and the fail-soft rules that go with it) stays mechanical.

// UsageError reports a caller mistake: bad arguments, an operation attempted
// while not connected, a call that does not exist, or a call in the wrong
// status for the requested operation.
type UsageError struct {
	// Op is the operation that was attempted (e.g. "call", "transfer").
	Op string

	// Reason is the consumer-facing description of the mistake.
	Reason string
}

// Error implements the error interface.
func (e *UsageError) Error() string {
	if e.Op == "" {
		return e.Reason
	}
	return e.Op + ": " + e.Reason
}

// NewUsageError builds a UsageError for the given operation.
func NewUsageError(op, format string, v ...any) *UsageError {
	return &UsageError{Op: op, Reason: fmt.Sprintf(format, v...)}
}

// ProtocolError reports a malformed or unexpected signal: a referral token
// without the correlation prefix, an unexpected acceptance code, or a wire
// payload that does not parse. The offending signal is dropped; the call
// store is never mutated on a ProtocolError.
type ProtocolError struct {
	// Source identifies the signal origin (adapter name or field).
	Source string

	// Reason describes what was malformed.
	Reason string
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Source == "" {
		return e.Reason
	}
	return e.Source + ": " + e.Reason
}

// NewProtocolError builds a ProtocolError for the given signal source.
func NewProtocolError(source, format string, v ...any) *ProtocolError {
	return &ProtocolError{Source: source, Reason: fmt.Sprintf(format, v...)}
}

// RemoteRejection reports that the far side declined or rejected a call.
// It surfaces to the consumer as a CANCEL event with the cause populated.
type RemoteRejection struct {
	// Cause is the termination reason reported by the backend.
	Cause string
}

// Error implements the error interface.
func (e *RemoteRejection) Error() string {
	return "call rejected: " + e.Cause
}

// SessionError reports an authentication failure or session expiry. It
// surfaces as ERROR or LOGGED_OUT and always triggers a call store reset.
type SessionError struct {
	// Reason is the consumer-facing description.
	Reason string

	// Err is an optional wrapped error for errors.Unwrap support.
	Err error
}

// Error implements the error interface.
func (e *SessionError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

// Unwrap returns the wrapped error, if any.
func (e *SessionError) Unwrap() error {
	return e.Err
}
