/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2025 Tejus Pratap <tejzpr@gmail.com>
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package ctisdk

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger is the interface for SDK logging. Any logger that implements Printf
// (such as the standard library's *log.Logger or a *logrus.Logger) can be used.
type Logger interface {
	Printf(format string, v ...any)
}

// Generation selects which backend signaling dialect the connector consumes.
// Each generation has its own notification wire format; the reconciliation
// engine itself is generation-agnostic.
type Generation string

const (
	// GenerationPubSub is the XMPP publish/subscribe feed (first generation).
	GenerationPubSub Generation = "pubsub"

	// GenerationDialogInfo is the SIP dialog-event NOTIFY body (second generation).
	GenerationDialogInfo Generation = "dialoginfo"

	// GenerationREST is the REST polling/webhook channel (third generation).
	GenerationREST Generation = "rest"
)

// Config holds the configuration for the CTI connector.
type Config struct {
	// BackendURL is the signaling channel endpoint (e.g. a wss:// URL for the
	// default websocket feed).
	BackendURL string

	// Generation selects the signaling adapter for inbound notifications.
	Generation Generation

	// SessionFile is the path of the persisted session state file. Empty
	// disables persistence (sessions then never survive a process restart).
	SessionFile string

	// KeepAliveInterval is the period between session keep-alive probes.
	// Keep-alive failure is treated as session expiry.
	KeepAliveInterval time.Duration

	// CommandTimeout bounds a single outbound command round trip.
	CommandTimeout time.Duration

	// Logger is the logger for SDK operations. If nil, the logrus standard
	// logger is used.
	Logger Logger
}

// DefaultConfig returns a default configuration for the CTI connector.
func DefaultConfig() *Config {
	return &Config{
		Generation:        GenerationPubSub,
		KeepAliveInterval: 30 * time.Second,
		CommandTimeout:    10 * time.Second,
	}
}

// EffectiveLogger returns the configured logger, or the logrus standard
// logger when none is set.
func (c *Config) EffectiveLogger() Logger {
	if c != nil && c.Logger != nil {
		return c.Logger
	}
	return logrus.StandardLogger()
}

// Command is an outbound call-control command addressed at the signaling
// backend. ID carries the correlation token for commands that establish a
// new call, or the signaling reference of an existing call otherwise.
type Command struct {
	ID   string
	Verb string
	Args []string
}

// Command verbs understood by every backend generation.
const (
	CommandCall      = "call"
	CommandTerminate = "terminate"
	CommandTransfer  = "transfer"
	CommandAnswer    = "answer"
)

// Transport is the authenticated signaling channel handle owned by the
// session controller. Implementations deliver raw inbound notifications to a
// handler registered out of band (see the feed package for the default
// websocket implementation); the connector never depends on a concrete wire
// protocol.
type Transport interface {
	// Connect establishes the signaling channel.
	Connect(ctx context.Context) error

	// Close tears the channel down. Safe to call on a closed transport.
	Close() error

	// Send issues an outbound command. A returned error means the backend
	// rejected the command or the channel failed; it never implies anything
	// about the eventual call state, which arrives as ordinary signals.
	Send(ctx context.Context, cmd Command) error

	// Subscribe registers interest in a notification node (e.g. the
	// pub-sub node of the authenticated user).
	Subscribe(ctx context.Context, node string) error

	// Ping probes channel liveness. Used by the session keep-alive loop.
	Ping(ctx context.Context) error
}
