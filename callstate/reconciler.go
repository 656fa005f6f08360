/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2025 Tejus Pratap <tejzpr@gmail.com>
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package callstate

import (
	"fmt"

	"github.com/voipstudio/cti-go-sdk/ctisdk"
)

// Reconciler is the call-state state machine. It takes one neutral signal at
// a time, decides whether a call exists or should be created, applies the
// lattice transition, and emits the normalized lifecycle event. It is the
// only writer of the Store and must run on the connector's processing queue.
type Reconciler struct {
	store   *Store
	emitter *Emitter
	log     ctisdk.Logger

	// local is the authenticated local address, used to resolve call
	// direction when the backend does not report it.
	local string
}

// NewReconciler creates a Reconciler over the given store and emitter.
func NewReconciler(store *Store, emitter *Emitter, logger ctisdk.Logger) *Reconciler {
	return &Reconciler{store: store, emitter: emitter, log: logger}
}

// SetLocalAddress sets the authenticated local address after login.
func (r *Reconciler) SetLocalAddress(addr string) {
	r.local = addr
}

// Apply reconciles one signal against the store. Malformed or
// non-authoritative signals are dropped with a diagnostic; the store is
// never left with a half-applied mutation.
func (r *Reconciler) Apply(sig Signal) {
	switch sig.Role {
	case RoleEndpoint:
		r.applyEndpoint(sig)
	case RoleError:
		r.applyError(sig)
	case RoleCall:
		r.applyCall(sig)
	default:
		r.drop(ctisdk.NewProtocolError("signal", "unknown role %q", sig.Role))
	}
}

// ApplySnapshot rebuilds the store from a GET-style state snapshot after a
// reconnect. Snapshot signals may create records in any reported
// non-terminal state; identifiers already present are left untouched.
func (r *Reconciler) ApplySnapshot(sigs []Signal) {
	for _, sig := range sigs {
		if sig.RawStatus == StatusHangup || sig.RawStatus == "" {
			continue
		}
		if r.store.Get(sig.CorrelationID) != nil {
			continue
		}
		call := NewCall(sig.CorrelationID, r.resolveDirection(sig), sig.RawStatus)
		mergeParties(call, sig)
		if sig.SignalingRef != "" {
			call.SignalingRef = sig.SignalingRef
		}
		r.store.Put(call)
		r.emitCall(eventForStatus(call.Status), call)
	}
}

// CancelLocal cancels a locally-known call with the given cause: the record
// is advanced to HANGUP, a CANCEL event fires, and the record is removed.
// Used when an outbound command is rejected before any signal arrives.
func (r *Reconciler) CancelLocal(id, cause string) {
	call := r.store.Get(id)
	if call == nil {
		return
	}
	call.Cause = cause
	r.cancel(call)
}

// ---- endpoint fan-out ----

func (r *Reconciler) applyEndpoint(sig Signal) {
	id, ok := StripCorrelationPrefix(sig.CorrelationID)
	if !ok {
		r.drop(ctisdk.NewProtocolError("endpoint", "invalid id: %s", sig.CorrelationID))
		return
	}
	call := r.store.Get(id)
	if call == nil {
		// A late endpoint report for a call this client no longer tracks.
		return
	}

	switch sig.RawStatus {
	case StatusInitial:
		call.AddEndpoint(sig.EndpointID)
		mergeParties(call, sig)

	case StatusAccepted:
		if sig.CauseCode != AcceptedCauseCode {
			r.emitter.Emit(Event{
				Name:    EventError,
				Message: "Unexpected endpoint status: " + sig.CauseCode,
			})
			return
		}
		if err := call.Advance(StatusAccepted); err != nil {
			r.drop(ctisdk.NewProtocolError("endpoint", "late acceptance for call %s in status %s", call.ID, call.Status))
			return
		}
		// First-to-answer wins: competing registrations are discarded.
		call.KeepOnlyEndpoint(sig.EndpointID)
		mergeParties(call, sig)
		r.emitCall(EventAccepted, call)

	default:
		// Declined, failed or timed out on this endpoint.
		call.RemoveEndpoint(sig.EndpointID)
		if len(call.Endpoints) > 0 {
			// Still ringing elsewhere.
			return
		}
		call.Cause = fmt.Sprintf("SIP Endpoint returned %q (%s)", sig.CauseText, sig.CauseCode)
		r.cancel(call)
	}
}

// ---- correlated error payloads ----

func (r *Reconciler) applyError(sig Signal) {
	id, ok := StripCorrelationPrefix(sig.CorrelationID)
	if !ok {
		r.drop(ctisdk.NewProtocolError("error-signal", "invalid id: %s", sig.CorrelationID))
		return
	}
	call := r.store.Get(id)
	if call == nil {
		return
	}
	call.Cause = sig.CauseText
	r.cancel(call)
}

// ---- call-level transitions ----

func (r *Reconciler) applyCall(sig Signal) {
	dir := r.resolveDirection(sig)
	if dir == DirectionInbound {
		r.applyInbound(sig)
		return
	}
	r.applyOutbound(sig)
}

func (r *Reconciler) applyInbound(sig Signal) {
	// Only signals about calls terminating at this user are authoritative.
	if sig.Context != ContextLocalUser {
		return
	}
	id := sig.CorrelationID

	switch sig.RawStatus {
	case StatusRinging:
		call := r.store.Get(id)
		if call == nil {
			// The direct-to-RINGING path: a new incoming call.
			call = NewCall(id, DirectionInbound, StatusRinging)
			call.SignalingRef = id
			if sig.SignalingRef != "" {
				call.SignalingRef = sig.SignalingRef
			}
			mergeParties(call, sig)
			r.store.Put(call)
		} else {
			if err := call.Advance(StatusRinging); err != nil {
				r.dropTransition(call, sig)
				return
			}
			r.updateRef(call, sig)
			mergeParties(call, sig)
		}
		r.emitCall(EventRinging, call)

	case StatusConnected, StatusOnHold:
		call := r.store.Get(id)
		if call == nil {
			return
		}
		if err := call.Advance(sig.RawStatus); err != nil {
			r.dropTransition(call, sig)
			return
		}
		r.updateRef(call, sig)
		mergeParties(call, sig)
		r.emitCall(eventForStatus(sig.RawStatus), call)

	case StatusHangup:
		r.applyHangup(id, sig)

	default:
		r.drop(ctisdk.NewProtocolError("call", "unexpected inbound status %q", sig.RawStatus))
	}
}

func (r *Reconciler) applyOutbound(sig Signal) {
	id := sig.CorrelationID
	if sig.ReferredBy != "" {
		stripped, ok := StripCorrelationPrefix(sig.ReferredBy)
		if !ok {
			r.drop(ctisdk.NewProtocolError("call", "invalid thread: %s", sig.ReferredBy))
			return
		}
		id = stripped
	}

	switch sig.RawStatus {
	case StatusRinging:
		call := r.store.Get(id)
		if call == nil {
			// Softphone-originated outbound call, first seen ringing.
			call = NewCall(id, DirectionOutbound, StatusRinging)
			r.updateRef(call, sig)
			mergeParties(call, sig)
			r.store.Put(call)
		} else {
			if err := call.Advance(StatusRinging); err != nil {
				r.dropTransition(call, sig)
				return
			}
			r.updateRef(call, sig)
			mergeParties(call, sig)
		}
		r.emitCall(EventRinging, call)

	case StatusConnected, StatusOnHold:
		call := r.store.Get(id)
		if call == nil {
			st, ok := warmStart(sig)
			if !ok {
				// Not a context this client is authoritative for.
				return
			}
			call = NewCall(id, DirectionOutbound, st)
			r.updateRef(call, sig)
			mergeParties(call, sig)
			r.store.Put(call)
			r.emitCall(eventForStatus(st), call)
			return
		}
		if err := call.Advance(sig.RawStatus); err != nil {
			r.dropTransition(call, sig)
			return
		}
		r.updateRef(call, sig)
		mergeParties(call, sig)
		r.emitCall(eventForStatus(sig.RawStatus), call)

	case StatusHangup:
		r.applyHangup(id, sig)

	default:
		r.drop(ctisdk.NewProtocolError("call", "unexpected outbound status %q", sig.RawStatus))
	}
}

// applyHangup handles a terminal role=CALL signal: cause is recorded, the
// HANGUP event fires, and the record is deleted. A hangup for an unknown id
// is a no-op.
func (r *Reconciler) applyHangup(id string, sig Signal) {
	call := r.store.Get(id)
	if call == nil {
		return
	}
	if sig.CauseText != "" || sig.CauseCode != "" {
		call.Cause = fmt.Sprintf("%s (%s)", sig.CauseText, sig.CauseCode)
	}
	if err := call.Advance(StatusHangup); err != nil {
		r.dropTransition(call, sig)
		return
	}
	r.emitCall(EventHangup, call)
	r.store.Remove(call.ID)
}

// cancel runs the cancel sequence: the record is forced terminal, a CANCEL
// event carrying the full record fires, and the record is removed. This and
// applyHangup are the only two removal paths.
func (r *Reconciler) cancel(call *Call) {
	_ = call.Advance(StatusHangup)
	r.emitCall(EventCancel, call)
	r.store.Remove(call.ID)
}

// resolveDirection decides the call direction for a signal that does not
// carry one: a signal without a source-party identifier describes an
// inbound call, one without a destination-party identifier an outbound
// call; otherwise the call is outbound iff the source party is the
// authenticated local address. The result is cached on the record at
// creation and never changes afterwards.
func (r *Reconciler) resolveDirection(sig Signal) Direction {
	if sig.Direction != "" {
		return sig.Direction
	}
	if sig.SourceID == "" {
		return DirectionInbound
	}
	if sig.DestinationID == "" {
		return DirectionOutbound
	}
	if sig.SourceID == r.local {
		return DirectionOutbound
	}
	return DirectionInbound
}

// warmStart decides the implicit-creation status for an unknown call id:
// allowed contexts create the record "warm", anchored at CONNECTED or
// ON_HOLD, never passing through RINGING. Queue calls always anchor ON_HOLD
// regardless of the reported status.
func warmStart(sig Signal) (Status, bool) {
	st, ok := warmStartStatus[sig.Context]
	if !ok {
		return "", false
	}
	if sig.RawStatus == StatusOnHold {
		return StatusOnHold, true
	}
	return st, true
}

func (r *Reconciler) updateRef(call *Call, sig Signal) {
	if sig.SignalingRef != "" {
		call.SignalingRef = sig.SignalingRef
	}
}

func mergeParties(call *Call, sig Signal) {
	if sig.Source != "" {
		call.Source = sig.Source
	}
	if sig.SourceName != "" {
		call.SourceName = sig.SourceName
	}
	if sig.Destination != "" {
		call.Destination = sig.Destination
	}
	if sig.DestinationName != "" {
		call.DestinationName = sig.DestinationName
	}
}

func (r *Reconciler) emitCall(name EventName, call *Call) {
	r.emitter.Emit(Event{Name: name, Call: call.Clone()})
}

func (r *Reconciler) drop(err error) {
	if r.log != nil {
		r.log.Printf("dropping signal: %v", err)
	}
}

func (r *Reconciler) dropTransition(call *Call, sig Signal) {
	r.drop(ctisdk.NewProtocolError("call", "cannot move call %s from %s to %s", call.ID, call.Status, sig.RawStatus))
}
