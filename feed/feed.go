/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2025 Tejus Pratap <tejzpr@gmail.com>
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

// Package feed is the default websocket signaling channel. It implements
// ctisdk.Transport: it dials the backend with the session bearer token,
// delivers raw notification frames to a registered handler and keeps the
// connection alive with ping/pong and exponential-backoff reconnects.
// Deployments speaking BOSH, SIP or plain REST polling supply their own
// Transport instead.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/voipstudio/cti-go-sdk/ctisdk"
)

// Config holds the configuration for the websocket feed.
type Config struct {
	URL              string        // Feed endpoint; a TokenSource address takes precedence
	HandshakeTimeout time.Duration // Timeout for the websocket handshake
	PingInterval     time.Duration // Interval between ping frames
	PongTimeout      time.Duration // Timeout for receiving a pong response
	BackoffTimeMax   time.Duration // Maximum time between connection attempts
	BackoffTimeReset time.Duration // Initial time before the first retry
	MaxRetries       int           // Number of times to retry before giving up
}

// DefaultConfig returns the default configuration for the websocket feed.
func DefaultConfig() *Config {
	return &Config{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		PongTimeout:      10 * time.Second,
		BackoffTimeMax:   32 * time.Second,
		BackoffTimeReset: 1 * time.Second,
		MaxRetries:       3,
	}
}

// TokenSource supplies the bearer token and, optionally, the channel
// address for the current session. The session controller's ticket is the
// usual backing store.
type TokenSource func() (token string, address string, err error)

// RawHandler receives every inbound notification frame. Frames are
// delivered in arrival order from the read goroutine; handlers are expected
// to re-dispatch onto their own serialization point.
type RawHandler func(raw []byte)

// Client is a websocket implementation of ctisdk.Transport.
type Client struct {
	config  *Config
	log     ctisdk.Logger
	tokens  TokenSource
	handler RawHandler

	mu             sync.Mutex
	conn           *websocket.Conn
	connected      bool
	connecting     bool
	closeCh        chan struct{}
	done           chan struct{}
	retryCount     int
	currentBackoff time.Duration
}

// New creates a websocket feed client. A nil config uses DefaultConfig.
func New(config *Config, logger ctisdk.Logger) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	return &Client{
		config:         config,
		log:            logger,
		closeCh:        make(chan struct{}),
		done:           make(chan struct{}),
		currentBackoff: config.BackoffTimeReset,
	}
}

// SetTokenSource wires the session token provider. Must be set before
// Connect.
func (c *Client) SetTokenSource(source TokenSource) {
	c.mu.Lock()
	c.tokens = source
	c.mu.Unlock()
}

// SetRawHandler registers the inbound frame handler.
func (c *Client) SetRawHandler(handler RawHandler) {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()
}

// Connect establishes the websocket connection, retrying with exponential
// backoff up to the configured retry limit.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	if c.connecting {
		c.mu.Unlock()
		return fmt.Errorf("connection attempt already in progress")
	}
	c.connecting = true
	c.mu.Unlock()

	return c.connectWithBackoff(ctx)
}

// Close tears the connection down. Safe to call on a closed client.
func (c *Client) Close() error {
	c.mu.Lock()
	if !c.connected && !c.connecting {
		c.mu.Unlock()
		return nil
	}

	close(c.closeCh)
	c.closeCh = make(chan struct{})
	c.done = make(chan struct{})

	conn := c.conn
	c.conn = nil
	c.connected = false
	c.connecting = false
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closed by client"))
		_ = conn.Close()
	}
	return nil
}

// commandFrame is the wire shape of an outbound command.
type commandFrame struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	Verb       string   `json:"verb,omitempty"`
	CallID     string   `json:"call_id,omitempty"`
	Args       []string `json:"args,omitempty"`
	Node       string   `json:"node,omitempty"`
	TrackingID string   `json:"trackingId"`
}

// Send issues a call-control command as a JSON frame.
func (c *Client) Send(ctx context.Context, cmd ctisdk.Command) error {
	return c.writeFrame(ctx, commandFrame{
		ID:         uuid.NewString(),
		Type:       "command",
		Verb:       cmd.Verb,
		CallID:     cmd.ID,
		Args:       cmd.Args,
		TrackingID: trackingID(),
	})
}

// Subscribe registers interest in a notification node.
func (c *Client) Subscribe(ctx context.Context, node string) error {
	return c.writeFrame(ctx, commandFrame{
		ID:         uuid.NewString(),
		Type:       "subscribe",
		Node:       node,
		TrackingID: trackingID(),
	})
}

// Ping probes connection liveness with a websocket ping frame. The pong is
// enforced by the read deadline set here and cleared by the pong handler.
func (c *Client) Ping(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("websocket connection is nil")
	}
	if err := conn.SetReadDeadline(time.Now().Add(c.config.PongTimeout)); err != nil {
		return err
	}
	deadline := time.Now().Add(c.config.PongTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return conn.WriteControl(websocket.PingMessage,
		[]byte(fmt.Sprintf("%d", time.Now().UnixMilli())), deadline)
}

func (c *Client) writeFrame(ctx context.Context, frame commandFrame) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("websocket connection is nil")
	}

	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %v", err)
	}
	if d, ok := ctx.Deadline(); ok {
		if err := conn.SetWriteDeadline(d); err != nil {
			return err
		}
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// connectWithBackoff attempts to connect with exponential backoff.
func (c *Client) connectWithBackoff(ctx context.Context) error {
	c.retryCount = 0
	c.currentBackoff = c.config.BackoffTimeReset

	var err error
	for c.retryCount <= c.config.MaxRetries {
		err = c.attemptConnection(ctx)
		if err == nil {
			return nil
		}

		c.retryCount++
		if c.retryCount > c.config.MaxRetries {
			break
		}

		select {
		case <-time.After(c.currentBackoff):
			c.currentBackoff *= 2
			if c.currentBackoff > c.config.BackoffTimeMax {
				c.currentBackoff = c.config.BackoffTimeMax
			}
		case <-ctx.Done():
			c.setDisconnected()
			return ctx.Err()
		case <-c.closeCh:
			return nil
		}
	}

	c.setDisconnected()
	return fmt.Errorf("failed to connect after %d attempts: %v", c.retryCount, err)
}

// attemptConnection makes a single dial attempt.
func (c *Client) attemptConnection(ctx context.Context) error {
	c.mu.Lock()
	tokens := c.tokens
	c.mu.Unlock()
	if tokens == nil {
		return fmt.Errorf("no token source configured")
	}

	token, address, err := tokens()
	if err != nil {
		return fmt.Errorf("failed to resolve feed credentials: %v", err)
	}
	if address == "" {
		address = c.config.URL
	}
	if address == "" {
		return fmt.Errorf("no feed address configured")
	}

	headers := make(map[string][]string)
	headers["Authorization"] = []string{"Bearer " + token}
	headers["TrackingID"] = []string{trackingID()}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, address, headers)
	if err != nil {
		return fmt.Errorf("failed to connect to feed: %v", err)
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Time{})
	})

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.connecting = false
	done := c.done
	c.mu.Unlock()

	go c.readLoop(conn, done)
	go c.pingLoop(done)
	return nil
}

// readLoop delivers every inbound frame to the registered handler until the
// connection drops.
func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			c.handleConnectionError(err)
			return
		}

		c.mu.Lock()
		handler := c.handler
		c.mu.Unlock()
		if handler != nil {
			handler(message)
		}
	}
}

func (c *Client) pingLoop(done chan struct{}) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.Ping(context.Background()); err != nil {
				return
			}
		case <-c.closeCh:
			return
		case <-done:
			return
		}
	}
}

// handleConnectionError marks the client disconnected and triggers a
// reconnect unless the client was deliberately closed.
func (c *Client) handleConnectionError(err error) {
	c.mu.Lock()
	wasConnected := c.connected
	c.connected = false
	conn := c.conn
	c.conn = nil
	closeCh := c.closeCh
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if !wasConnected {
		return
	}

	select {
	case <-closeCh:
		// Deliberate close, stay down.
	default:
		if c.log != nil {
			c.log.Printf("feed connection lost, reconnecting: %v", err)
		}
		c.mu.Lock()
		c.connecting = true
		c.done = make(chan struct{})
		c.mu.Unlock()
		go func() {
			_ = c.connectWithBackoff(context.Background())
		}()
	}
}

func (c *Client) setDisconnected() {
	c.mu.Lock()
	c.connected = false
	c.connecting = false
	c.mu.Unlock()
}

// IsConnected reports whether the feed is up.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func trackingID() string {
	return "cti-go-sdk_" + uuid.NewString()
}
