/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2025 Tejus Pratap <tejzpr@gmail.com>
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package callstate

import "strings"

// Role classifies what a signal describes: the call itself, one physical
// softphone endpoint during setup fan-out, or a correlated error payload.
type Role string

const (
	RoleCall     Role = "CALL"
	RoleEndpoint Role = "ENDPOINT"
	RoleError    Role = "ERROR"
)

// CorrelationPrefix marks identifiers minted by this client. Outbound
// commands carry it; endpoint signals, referral tokens and error payloads
// echo it back. A token expected to carry the prefix but lacking it is
// malformed and the signal is dropped.
const CorrelationPrefix = "c2c"

// AcceptedCauseCode is the only cause code that makes an endpoint ACCEPTED
// signal valid.
const AcceptedCauseCode = "200"

// Signal is the adapter-neutral record every signaling adapter produces.
// Field presence varies by backend generation; absent optional fields are
// zero values and mean "unknown", never an error.
type Signal struct {
	Role Role

	// CorrelationID is the signaling source's identifier for the event:
	// either a token minted by this client (with CorrelationPrefix) or the
	// backend's own call identifier.
	CorrelationID string

	// ReferredBy is the referral/thread token some backends report for
	// outbound calls instead of echoing the correlation token directly.
	ReferredBy string

	// EndpointID identifies the physical softphone registration a
	// RoleEndpoint signal describes.
	EndpointID string

	// Direction is set only when the backend reports it explicitly;
	// otherwise the reconciler resolves it from the party identifiers.
	Direction Direction

	RawStatus Status

	// Context is the backend-supplied classification of why the call
	// exists (LOCAL_USER, Queue, IVR, ...). It decides implicit-creation
	// semantics for unknown call identifiers.
	Context string

	CauseCode string
	CauseText string

	// SignalingRef is the backend identifier to address further commands
	// at; learned from the first signal on some backends and updated
	// thereafter.
	SignalingRef string

	Source          string
	SourceID        string
	SourceName      string
	Destination     string
	DestinationID   string
	DestinationName string

	// Snapshot marks signals produced from a GET-style state snapshot
	// during store rebuild; they may create records in any reported
	// non-terminal state.
	Snapshot bool
}

// StripCorrelationPrefix returns the call id embedded in a correlation token
// and whether the token carried the expected prefix.
func StripCorrelationPrefix(token string) (string, bool) {
	if !strings.HasPrefix(token, CorrelationPrefix) {
		return "", false
	}
	return token[len(CorrelationPrefix):], true
}

// ContextLocalUser is the only context in which inbound role=CALL signals
// are authoritative for this client.
const ContextLocalUser = "LOCAL_USER"

// warmStartStatus maps the context tags allowed to create a call implicitly
// ("born already connected or held") to the status the new record anchors
// at. Contexts absent from the map never create records.
var warmStartStatus = map[string]Status{
	"IVR":           StatusConnected,
	"TEST_CALL":     StatusConnected,
	"CONF":          StatusConnected,
	"VM":            StatusConnected,
	"VM_MAIN":       StatusConnected,
	"PICKUP_PARKED": StatusConnected,
	"Queue":         StatusOnHold,
}
