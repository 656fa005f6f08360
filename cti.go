/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2025 Tejus Pratap <tejzpr@gmail.com>
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

// Package cti is a client-side call-state reconciliation engine: it
// consumes signaling notifications from a pluggable transport, derives one
// canonical monotonic lifecycle per call and delivers normalized events to
// a single consumer callback.
//
// Every operation is asynchronous and fail-soft: failures surface as ERROR
// or INFO events, never as panics or returned errors.
package cti

import (
	"context"
	"strconv"
	"time"

	"github.com/voipstudio/cti-go-sdk/callstate"
	"github.com/voipstudio/cti-go-sdk/ctisdk"
	"github.com/voipstudio/cti-go-sdk/dialstring"
	"github.com/voipstudio/cti-go-sdk/session"
	"github.com/voipstudio/cti-go-sdk/signaling"
	"github.com/voipstudio/cti-go-sdk/taskqueue"
)

// fastRejectWindow separates "no endpoint found" (the backend rejected the
// call almost immediately, typically because no softphone is registered)
// from "rejected by remote endpoint" (a real endpoint declined).
const fastRejectWindow = 2 * time.Second

// Connector is the public facade. All state lives behind a single task
// queue: signals, session callbacks, user operations and I/O completions
// are serialized, so the reconciler and store never need locking.
type Connector struct {
	config  *ctisdk.Config
	log     ctisdk.Logger
	queue   *taskqueue.Queue
	store   *callstate.Store
	emitter *callstate.Emitter
	rec     *callstate.Reconciler
	sess    *session.Controller
	adapter signaling.Adapter

	lastCallID int64
}

// NewConnector wires a Connector from its collaborators. The transport is
// the signaling channel (see the feed package for the default websocket
// implementation); the authenticator exchanges credentials for a session
// ticket.
func NewConnector(config *ctisdk.Config, transport ctisdk.Transport, auth session.Authenticator) (*Connector, error) {
	if config == nil {
		config = ctisdk.DefaultConfig()
	}
	adapter, err := signaling.ForGeneration(config.Generation)
	if err != nil {
		return nil, err
	}

	log := config.EffectiveLogger()
	store := callstate.NewStore()
	emitter := callstate.NewEmitter()

	c := &Connector{
		config:  config,
		log:     log,
		queue:   taskqueue.New(),
		store:   store,
		emitter: emitter,
		rec:     callstate.NewReconciler(store, emitter, log),
		adapter: adapter,
	}
	c.sess = session.NewController(transport, auth,
		session.NewStorage(config.SessionFile),
		config.KeepAliveInterval, log, session.Callbacks{
			OnConnected:      c.onConnected,
			OnDisconnected:   c.onDisconnected,
			OnSessionExpired: c.onSessionExpired,
		})
	return c, nil
}

// OnEvent registers the consumer callback. Must be called before Login;
// events emitted without a handler are dropped.
func (c *Connector) OnEvent(handler callstate.Handler) {
	c.emitter.SetHandler(handler)
}

// IsConnected reports whether a session is established.
func (c *Connector) IsConnected() bool {
	return c.sess.Connected()
}

// Login authenticates and brings the signaling channel up. The result
// arrives as events: LOGGED_IN and READY on success, ERROR on failure.
func (c *Connector) Login(creds session.Credentials) {
	go func() {
		ctx, cancel := c.opContext()
		defer cancel()
		if err := c.sess.Login(ctx, creds); err != nil {
			c.dispatchError(err.Error())
		}
	}()
}

// Resume re-attaches to a session persisted by a previous process. Failures
// surface as an ERROR event; the consumer then falls back to Login.
func (c *Connector) Resume() {
	go func() {
		ctx, cancel := c.opContext()
		defer cancel()
		if err := c.sess.Resume(ctx); err != nil {
			c.dispatchError(err.Error())
		}
	}()
}

// Logout tears the session down. The call store is cleared and LOGGED_OUT
// emitted once the channel is closed.
func (c *Connector) Logout() {
	if !c.sess.Connected() {
		c.dispatchError("Connector is not connected.")
		return
	}
	go func() {
		_ = c.sess.Logout()
	}()
}

// Call places an outbound call. A provisional INITIAL record is created and
// emitted synchronously on the queue, before any network round trip, so the
// consumer can render the attempt immediately.
func (c *Connector) Call(destination string) {
	c.queue.Dispatch(func() {
		if !c.sess.Connected() {
			c.emitError("Connector need to be connected first.")
			return
		}
		if destination == "" {
			c.emitError("Destination number is empty")
			return
		}

		if dialstring.IsPhoneNumber(destination) {
			destination = dialstring.NormalizePhoneNumber(destination)
			if !dialstring.IsValidPhoneNumber(destination) {
				c.emitError("Phone number: " + destination + " has invalid format")
				return
			}
		} else if c.localAddress() == destination {
			c.emitError("You are unable to call to yourself.")
			return
		}

		id := c.nextCallID()
		call := callstate.NewCall(id, callstate.DirectionOutbound, callstate.StatusInitial)
		call.Destination = destination
		c.store.Put(call)
		c.emitCall(callstate.EventInitial, call)

		c.sendCommand(ctisdk.Command{
			ID:   callstate.CorrelationPrefix + id,
			Verb: ctisdk.CommandCall,
			Args: []string{destination},
		}, c.rejectProvisional(id, time.Now()))
	})
}

// Terminate hangs up an established call. Only calls in CONNECTED or
// ON_HOLD can be terminated; anything else yields an INFO event.
func (c *Connector) Terminate(callID string) {
	c.queue.Dispatch(func() {
		if !c.sess.Connected() {
			c.emitError("Connector need to be connected first.")
			return
		}
		call := c.store.Get(callID)
		if call == nil {
			c.emitError("Call with ID: " + callID + " could not be found.")
			return
		}
		if call.Status != callstate.StatusConnected && call.Status != callstate.StatusOnHold {
			c.emitInfo("Call with STATUS: " + string(call.Status) + " cannot be terminated.")
			return
		}

		c.sendCommand(ctisdk.Command{
			ID:   call.SignalingRef,
			Verb: ctisdk.CommandTerminate,
		}, nil)
	})
}

// Transfer moves an established call to a new destination. Only calls in
// CONNECTED can be transferred. The local destination field is updated
// optimistically; the backend confirms through ordinary signals.
func (c *Connector) Transfer(callID, destination string) {
	c.queue.Dispatch(func() {
		if !c.sess.Connected() {
			c.emitError("Connector need to be connected first.")
			return
		}
		call := c.store.Get(callID)
		if call == nil {
			c.emitError("Call with ID: " + callID + " could not be found.")
			return
		}
		if call.Status != callstate.StatusConnected {
			c.emitInfo("Call with STATUS: " + string(call.Status) + " cannot be transfered.")
			return
		}
		if destination == "" {
			c.emitError("Destination number is empty")
			return
		}

		if dialstring.IsPhoneNumber(destination) {
			destination = dialstring.NormalizePhoneNumber(destination)
			if !dialstring.IsValidPhoneNumber(destination) {
				c.emitError("Phone number: " + destination + " has invalid format")
				return
			}
		} else {
			if !dialstring.IsValidExtension(destination) {
				c.emitError("Extension number: " + destination + " has invalid format")
				return
			}
			if c.localAddress() == destination {
				c.emitError("You are unable to transfer call to yourself.")
				return
			}
		}

		call.Destination = destination

		c.sendCommand(ctisdk.Command{
			ID:   call.SignalingRef,
			Verb: ctisdk.CommandTransfer,
			Args: []string{destination},
		}, nil)
	})
}

// Answer picks up the single inbound ringing call. With no ringing call, or
// more than one, the operation fails with an ERROR event.
func (c *Connector) Answer() {
	c.queue.Dispatch(func() {
		if !c.sess.Connected() {
			c.emitError("Connector need to be connected first.")
			return
		}

		var ringing *callstate.Call
		for _, call := range c.store.All() {
			if call.Direction != callstate.DirectionInbound || call.Status != callstate.StatusRinging {
				continue
			}
			if ringing != nil {
				c.emitError("More than one ringing call found.")
				return
			}
			ringing = call
		}
		if ringing == nil {
			c.emitError("There is no ringing call to answer.")
			return
		}

		c.sendCommand(ctisdk.Command{
			ID:   ringing.SignalingRef,
			Verb: ctisdk.CommandAnswer,
		}, nil)
	})
}

// Subscribe registers interest in an additional notification node, beyond
// the per-user node subscribed at login.
func (c *Connector) Subscribe(node string) {
	c.queue.Dispatch(func() {
		if !c.sess.Connected() {
			c.emitError("Connector need to be connected first.")
			return
		}
		go func() {
			ctx, cancel := c.opContext()
			defer cancel()
			if err := c.sess.Subscribe(ctx, node); err != nil {
				c.dispatchError(err.Error())
			}
		}()
	})
}

// HandleNotification ingests one raw notification from the signaling
// channel. Safe to call from any goroutine; processing happens on the
// queue. Wire this as the transport's raw frame handler.
func (c *Connector) HandleNotification(raw []byte) {
	data := make([]byte, len(raw))
	copy(data, raw)
	c.queue.Dispatch(func() {
		if !c.sess.Connected() {
			return
		}
		sigs, err := c.adapter.Parse(data)
		if err != nil {
			c.log.Printf("cannot parse notification: %v", err)
			return
		}
		var snapshot []callstate.Signal
		for _, sig := range sigs {
			if sig.Snapshot {
				snapshot = append(snapshot, sig)
				continue
			}
			c.rec.Apply(sig)
		}
		if len(snapshot) > 0 {
			c.rec.ApplySnapshot(snapshot)
		}
	})
}

// FeedCredentials exposes the session bearer token and channel address for
// transports that authenticate per connection (feed.Client.SetTokenSource).
func (c *Connector) FeedCredentials() (token string, address string, err error) {
	ticket := c.sess.Ticket()
	if ticket == nil {
		return "", "", &ctisdk.SessionError{Reason: "not logged in"}
	}
	return ticket.Token, ticket.Address, nil
}

// Flush blocks until every queued task has run. Intended for tests and
// orderly shutdown.
func (c *Connector) Flush() {
	c.queue.Flush()
}

// Close logs out if needed and stops the processing queue.
func (c *Connector) Close() {
	if c.sess.Connected() {
		_ = c.sess.Logout()
	}
	c.queue.Flush()
	c.queue.Close()
}

// ---- session callbacks, re-dispatched onto the queue ----

func (c *Connector) onConnected(ticket *session.Ticket) {
	username := ticket.Username
	c.queue.Dispatch(func() {
		c.rec.SetLocalAddress(username)
		c.emitter.Emit(callstate.Event{
			Name:    callstate.EventLoggedIn,
			Message: "User has been successfully authenticated.",
		})

		go func() {
			ctx, cancel := c.opContext()
			defer cancel()
			if err := c.sess.Subscribe(ctx, "user:"+username); err != nil {
				c.dispatchError(err.Error())
				return
			}
			c.queue.Dispatch(func() {
				c.emitter.Emit(callstate.Event{
					Name:    callstate.EventReady,
					Message: "Connection with signaling server has been successfully established.",
				})
			})
		}()
	})
}

func (c *Connector) onDisconnected(err error) {
	c.queue.Dispatch(func() {
		if err != nil {
			c.log.Printf("signaling channel closed with error: %v", err)
		}
		c.store.Clear()
		c.emitter.Emit(callstate.Event{
			Name:    callstate.EventLoggedOut,
			Message: "User has been successfully logged out.",
		})
	})
}

func (c *Connector) onSessionExpired() {
	c.queue.Dispatch(func() {
		c.store.Clear()
		c.emitter.Emit(callstate.Event{
			Name:    callstate.EventLoggedOut,
			Message: "Session has expired.",
		})
	})
}

// ---- internals (queue goroutine only) ----

// nextCallID mints a strictly monotonic epoch-millisecond identifier.
func (c *Connector) nextCallID() string {
	id := time.Now().UnixMilli()
	if id <= c.lastCallID {
		id = c.lastCallID + 1
	}
	c.lastCallID = id
	return strconv.FormatInt(id, 10)
}

// sendCommand issues a command off-queue. onRejected, when set, runs on the
// queue if the backend rejects the command.
func (c *Connector) sendCommand(cmd ctisdk.Command, onRejected func()) {
	go func() {
		ctx, cancel := c.opContext()
		defer cancel()
		if err := c.sess.Send(ctx, cmd); err != nil {
			c.log.Printf("command %s rejected: %v", cmd.Verb, err)
			if onRejected != nil {
				c.queue.Dispatch(onRejected)
			}
		}
	}()
}

// rejectProvisional converts a provisional outbound record into a CANCEL
// when the call command is rejected before any signal arrives.
func (c *Connector) rejectProvisional(id string, started time.Time) func() {
	return func() {
		cause := "rejected by remote endpoint"
		if time.Since(started) < fastRejectWindow {
			cause = "no endpoint found"
		}
		c.rec.CancelLocal(id, cause)
	}
}

func (c *Connector) localAddress() string {
	if ticket := c.sess.Ticket(); ticket != nil {
		return ticket.Username
	}
	return ""
}

func (c *Connector) opContext() (context.Context, context.CancelFunc) {
	timeout := c.config.CommandTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

func (c *Connector) emitCall(name callstate.EventName, call *callstate.Call) {
	c.emitter.Emit(callstate.Event{Name: name, Call: call.Clone()})
}

func (c *Connector) emitError(message string) {
	c.emitter.Emit(callstate.Event{Name: callstate.EventError, Message: message})
}

func (c *Connector) emitInfo(message string) {
	c.emitter.Emit(callstate.Event{Name: callstate.EventInfo, Message: message})
}

// dispatchError emits an ERROR event from outside the queue goroutine.
func (c *Connector) dispatchError(message string) {
	c.queue.Dispatch(func() { c.emitError(message) })
}
