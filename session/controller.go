/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2025 Tejus Pratap <tejzpr@gmail.com>
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

// Package session owns connectivity: authentication, the signaling channel
// lifecycle, keep-alive probing and session persistence. It knows nothing
// about calls; the connector reacts to its callbacks.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/voipstudio/cti-go-sdk/ctisdk"
)

// Credentials identify the user to the authentication backend.
type Credentials struct {
	Username string
	Password string
}

// Ticket is the authenticated session state: the bearer token, the signaling
// backend address and the identity the backend assigned. It is the unit of
// session persistence.
type Ticket struct {
	Token    string
	Address  string
	Domain   string
	Username string
	StreamID string
}

// Authenticator exchanges credentials for a session ticket. The concrete
// HTTP (or other) mechanics live outside this module.
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (*Ticket, error)
}

// Callbacks are the connectivity notifications the controller delivers.
// OnSessionExpired may fire from the keep-alive goroutine; the consumer is
// expected to re-dispatch onto its own serialization point.
type Callbacks struct {
	OnConnected      func(*Ticket)
	OnDisconnected   func(error)
	OnSessionExpired func()
}

// Controller drives the session state machine: logged out, logging in,
// connected, expired. All methods are safe for use from a single goroutine;
// only the keep-alive loop runs concurrently.
type Controller struct {
	transport ctisdk.Transport
	auth      Authenticator
	storage   *Storage
	log       ctisdk.Logger
	keepAlive time.Duration
	cb        Callbacks

	mu            sync.Mutex
	ticket        *Ticket
	connected     bool
	stopKeepAlive context.CancelFunc
}

// NewController wires a Controller from its collaborators. keepAlive <= 0
// disables the keep-alive loop.
func NewController(transport ctisdk.Transport, auth Authenticator, storage *Storage, keepAlive time.Duration, logger ctisdk.Logger, cb Callbacks) *Controller {
	return &Controller{
		transport: transport,
		auth:      auth,
		storage:   storage,
		log:       logger,
		keepAlive: keepAlive,
		cb:        cb,
	}
}

// Login authenticates, persists the ticket and brings the signaling channel
// up. On success the OnConnected callback fires before Login returns.
func (c *Controller) Login(ctx context.Context, creds Credentials) error {
	if c.Connected() {
		return &ctisdk.SessionError{Reason: "already logged in"}
	}
	ticket, err := c.auth.Authenticate(ctx, creds)
	if err != nil {
		return &ctisdk.SessionError{Reason: "authentication failed", Err: err}
	}
	return c.establish(ctx, ticket)
}

// Resume re-attaches to a persisted session without going through the
// authenticator. It fails with a SessionError when no usable session is on
// disk or the persisted token has expired.
func (c *Controller) Resume(ctx context.Context) error {
	if c.Connected() {
		return &ctisdk.SessionError{Reason: "already logged in"}
	}
	ticket, err := c.storage.Load()
	if err != nil {
		return &ctisdk.SessionError{Reason: "cannot read persisted session", Err: err}
	}
	if ticket == nil {
		return &ctisdk.SessionError{Reason: "no persisted session"}
	}
	if tokenExpired(ticket.Token, time.Now()) {
		_ = c.storage.Clear()
		return &ctisdk.SessionError{Reason: "persisted session has expired"}
	}
	return c.establish(ctx, ticket)
}

func (c *Controller) establish(ctx context.Context, ticket *Ticket) error {
	if err := c.storage.Save(ticket); err != nil {
		// Persistence is best effort; the session itself still works.
		c.log.Printf("cannot persist session: %v", err)
	}
	// The ticket must be visible before Connect: transports read the bearer
	// token and channel address through Ticket().
	c.mu.Lock()
	c.ticket = ticket
	c.mu.Unlock()

	if err := c.transport.Connect(ctx); err != nil {
		c.mu.Lock()
		c.ticket = nil
		c.mu.Unlock()
		return &ctisdk.SessionError{Reason: "signaling channel failed", Err: err}
	}

	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	c.startKeepAlive()
	if c.cb.OnConnected != nil {
		c.cb.OnConnected(ticket)
	}
	return nil
}

// Logout tears the session down: keep-alive stops, the channel closes and
// the persisted state is removed. Safe to call when already logged out.
func (c *Controller) Logout() error {
	c.mu.Lock()
	wasConnected := c.connected
	c.connected = false
	c.ticket = nil
	stop := c.stopKeepAlive
	c.stopKeepAlive = nil
	c.mu.Unlock()

	if stop != nil {
		stop()
	}
	if !wasConnected {
		return nil
	}
	err := c.transport.Close()
	if cerr := c.storage.Clear(); cerr != nil {
		c.log.Printf("cannot clear persisted session: %v", cerr)
	}
	if c.cb.OnDisconnected != nil {
		c.cb.OnDisconnected(err)
	}
	return err
}

// Connected reports whether a session is established.
func (c *Controller) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Ticket returns the current session ticket, or nil when logged out.
func (c *Controller) Ticket() *Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticket
}

// Send issues an outbound command over the signaling channel.
func (c *Controller) Send(ctx context.Context, cmd ctisdk.Command) error {
	if !c.Connected() {
		return &ctisdk.SessionError{Reason: "not connected"}
	}
	return c.transport.Send(ctx, cmd)
}

// Subscribe registers interest in a notification node.
func (c *Controller) Subscribe(ctx context.Context, node string) error {
	if !c.Connected() {
		return &ctisdk.SessionError{Reason: "not connected"}
	}
	return c.transport.Subscribe(ctx, node)
}

func (c *Controller) startKeepAlive() {
	if c.keepAlive <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.stopKeepAlive = cancel
	c.mu.Unlock()
	go c.keepAliveLoop(ctx)
}

// keepAliveLoop probes the channel and watches the token expiry. Any
// failure is session expiry: an expired session is an implicit logout, not
// an error the consumer has to handle.
func (c *Controller) keepAliveLoop(ctx context.Context) {
	ticker := time.NewTicker(c.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		ticket := c.Ticket()
		if ticket == nil {
			return
		}
		if tokenExpired(ticket.Token, time.Now()) {
			c.expire("session token expired")
			return
		}
		pingCtx, cancel := context.WithTimeout(ctx, c.keepAlive/2)
		err := c.transport.Ping(pingCtx)
		cancel()
		if err != nil && ctx.Err() == nil {
			c.expire("keep-alive failed: " + err.Error())
			return
		}
	}
}

func (c *Controller) expire(reason string) {
	c.log.Printf("session expired: %s", reason)

	c.mu.Lock()
	c.connected = false
	c.ticket = nil
	c.stopKeepAlive = nil
	c.mu.Unlock()

	_ = c.transport.Close()
	if err := c.storage.Clear(); err != nil {
		c.log.Printf("cannot clear persisted session: %v", err)
	}
	if c.cb.OnSessionExpired != nil {
		c.cb.OnSessionExpired()
	}
}
