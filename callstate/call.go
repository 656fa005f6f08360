/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2025 Tejus Pratap <tejzpr@gmail.com>
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

// Package callstate derives one canonical, monotonically-progressing
// lifecycle per telephone call from heterogeneous, partially-redundant
// signaling notifications. The Reconciler consumes adapter-neutral signals,
// mutates the single-writer call Store, and emits normalized events.
package callstate

import (
	"context"

	"github.com/looplab/fsm"
)

// Status is the canonical call lifecycle status.
type Status string

const (
	StatusInitial   Status = "INITIAL"
	StatusAccepted  Status = "ACCEPTED"
	StatusRinging   Status = "RINGING"
	StatusOnHold    Status = "ON_HOLD"
	StatusConnected Status = "CONNECTED"
	StatusHangup    Status = "HANGUP"
)

// Direction is the call direction, decided once from the first signal that
// establishes the call and immutable afterwards.
type Direction string

const (
	DirectionInbound  Direction = "INBOUND"
	DirectionOutbound Direction = "OUTBOUND"
)

// Call is the canonical record for one active call.
type Call struct {
	// ID is the stable correlation identifier. Locally assigned
	// (epoch-millisecond, monotonic) for UI-originated outbound calls,
	// derived from the signaling source otherwise.
	ID string

	// SignalingRef is the signaling-source-local identifier used to address
	// terminate/transfer/answer commands at the transport. Some backends
	// only reveal it in the first signal; it is overwritten as signals
	// provide it.
	SignalingRef string

	Direction Direction
	Status    Status

	// Cause is the free-text termination or error reason, set only on
	// terminal or error transitions.
	Cause string

	Source          string
	SourceName      string
	Destination     string
	DestinationName string

	// Endpoints is the set of physical softphone registrations still
	// ringing or considering this call during inbound fan-out. Only
	// meaningful before acceptance.
	Endpoints []string

	lifecycle *fsm.FSM
}

// Lifecycle transition names. Each targets the like-named status; the source
// lists encode the status lattice
// INITIAL → ACCEPTED → RINGING → CONNECTED ⇄ ON_HOLD → HANGUP, with hangup
// reachable from every non-terminal state. A transition whose target equals
// the current status is a no-op, not a violation.
const (
	transitionAccept  = "accept"
	transitionRing    = "ring"
	transitionConnect = "connect"
	transitionHold    = "hold"
	transitionHangup  = "hangup"
)

var transitionForStatus = map[Status]string{
	StatusAccepted:  transitionAccept,
	StatusRinging:   transitionRing,
	StatusConnected: transitionConnect,
	StatusOnHold:    transitionHold,
	StatusHangup:    transitionHangup,
}

func newLifecycle(initial Status) *fsm.FSM {
	return fsm.NewFSM(
		string(initial),
		fsm.Events{
			{Name: transitionAccept, Src: []string{"INITIAL", "ACCEPTED"}, Dst: "ACCEPTED"},
			{Name: transitionRing, Src: []string{"INITIAL", "ACCEPTED", "RINGING"}, Dst: "RINGING"},
			{Name: transitionConnect, Src: []string{"INITIAL", "ACCEPTED", "RINGING", "ON_HOLD", "CONNECTED"}, Dst: "CONNECTED"},
			{Name: transitionHold, Src: []string{"CONNECTED", "ON_HOLD"}, Dst: "ON_HOLD"},
			{Name: transitionHangup, Src: []string{"INITIAL", "ACCEPTED", "RINGING", "CONNECTED", "ON_HOLD"}, Dst: "HANGUP"},
		},
		nil,
	)
}

// NewCall creates a Call with its lifecycle anchored at the given status.
// Warm-start contexts anchor directly at CONNECTED or ON_HOLD without ever
// passing through RINGING.
func NewCall(id string, direction Direction, status Status) *Call {
	return &Call{
		ID:        id,
		Direction: direction,
		Status:    status,
		lifecycle: newLifecycle(status),
	}
}

// Advance moves the call to the target status along the lattice. It returns
// an error when the transition would regress the lifecycle; the call is left
// untouched in that case. Advancing to the current status is a successful
// no-op.
func (c *Call) Advance(target Status) error {
	name, ok := transitionForStatus[target]
	if !ok {
		return fsm.InvalidEventError{Event: string(target), State: string(c.Status)}
	}
	if err := c.lifecycle.Event(context.Background(), name); err != nil {
		if _, same := err.(fsm.NoTransitionError); !same {
			return err
		}
	}
	c.Status = Status(c.lifecycle.Current())
	return nil
}

// IsTerminal reports whether the call has reached HANGUP.
func (c *Call) IsTerminal() bool {
	return c.Status == StatusHangup
}

// HasEndpoint reports whether the endpoint is registered for this call.
func (c *Call) HasEndpoint(id string) bool {
	for _, e := range c.Endpoints {
		if e == id {
			return true
		}
	}
	return false
}

// AddEndpoint registers an endpoint; duplicates are no-ops.
func (c *Call) AddEndpoint(id string) {
	if id == "" || c.HasEndpoint(id) {
		return
	}
	c.Endpoints = append(c.Endpoints, id)
}

// RemoveEndpoint drops an endpoint from the set if present.
func (c *Call) RemoveEndpoint(id string) {
	for i, e := range c.Endpoints {
		if e == id {
			c.Endpoints = append(c.Endpoints[:i], c.Endpoints[i+1:]...)
			return
		}
	}
}

// KeepOnlyEndpoint discards every registered endpoint except the winner.
func (c *Call) KeepOnlyEndpoint(winner string) {
	c.Endpoints = []string{winner}
}

// Clone returns a detached copy of the record for event delivery. The copy
// shares no state with the live record and has no lifecycle machine.
func (c *Call) Clone() *Call {
	dup := *c
	dup.lifecycle = nil
	dup.Endpoints = append([]string(nil), c.Endpoints...)
	return &dup
}
