/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2025 Tejus Pratap <tejzpr@gmail.com>
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package callstate

// EventName identifies a normalized lifecycle or session event delivered to
// the consumer.
type EventName string

const (
	EventReady     EventName = "READY"
	EventLoggedIn  EventName = "LOGGED_IN"
	EventLoggedOut EventName = "LOGGED_OUT"
	EventInitial   EventName = "INITIAL"
	EventAccepted  EventName = "ACCEPTED"
	EventRinging   EventName = "RINGING"
	EventConnected EventName = "CONNECTED"
	EventOnHold    EventName = "ON_HOLD"
	EventHangup    EventName = "HANGUP"
	EventCancel    EventName = "CANCEL"
	EventInfo      EventName = "INFO"
	EventError     EventName = "ERROR"
)

// Event is the single payload shape exposed to the consumer. Call is set on
// lifecycle events and carries a detached copy of the record; Message is set
// on session, INFO and ERROR events.
type Event struct {
	Name    EventName
	Call    *Call
	Message string
}

// Handler is the consumer callback. It is invoked synchronously, in arrival
// order, on the connector's processing goroutine.
type Handler func(Event)

// Emitter delivers normalized events to the single registered consumer
// callback. Events emitted before a handler is registered are dropped.
type Emitter struct {
	handler Handler
}

// NewEmitter creates an Emitter with no handler registered.
func NewEmitter() *Emitter {
	return &Emitter{}
}

// SetHandler registers the consumer callback, replacing any previous one.
func (e *Emitter) SetHandler(h Handler) {
	e.handler = h
}

// Emit invokes the registered handler with the event.
func (e *Emitter) Emit(ev Event) {
	if e.handler == nil {
		return
	}
	e.handler(ev)
}

// eventForStatus maps a call status to the lifecycle event of the same name.
func eventForStatus(s Status) EventName {
	switch s {
	case StatusInitial:
		return EventInitial
	case StatusAccepted:
		return EventAccepted
	case StatusRinging:
		return EventRinging
	case StatusConnected:
		return EventConnected
	case StatusOnHold:
		return EventOnHold
	case StatusHangup:
		return EventHangup
	}
	return EventError
}
