/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2025 Tejus Pratap <tejzpr@gmail.com>
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voipstudio/cti-go-sdk/ctisdk"
)

type fakeTransport struct {
	mu         sync.Mutex
	connected  bool
	closed     int
	sent       []ctisdk.Command
	subscribed []string
	connectErr error
	pingErr    error
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.closed++
	return nil
}

func (f *fakeTransport) Send(ctx context.Context, cmd ctisdk.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, cmd)
	return nil
}

func (f *fakeTransport) Subscribe(ctx context.Context, node string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, node)
	return nil
}

func (f *fakeTransport) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

type fakeAuth struct {
	ticket *Ticket
	err    error
	calls  int
}

func (f *fakeAuth) Authenticate(ctx context.Context, creds Credentials) (*Ticket, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.ticket, nil
}

type nopLogger struct{}

func (nopLogger) Printf(format string, v ...any) {}

func TestLoginLogout(t *testing.T) {
	transport := &fakeTransport{}
	auth := &fakeAuth{ticket: &Ticket{Token: "tok-1", Username: "1001"}}
	storage := NewStorage(filepath.Join(t.TempDir(), "session.ini"))

	var connected *Ticket
	var disconnected int
	c := NewController(transport, auth, storage, 0, nopLogger{}, Callbacks{
		OnConnected:    func(tk *Ticket) { connected = tk },
		OnDisconnected: func(err error) { disconnected++ },
	})

	require.NoError(t, c.Login(context.Background(), Credentials{Username: "1001", Password: "pw"}))
	assert.True(t, c.Connected())
	require.NotNil(t, connected)
	assert.Equal(t, "1001", connected.Username)
	assert.Equal(t, "1001", c.Ticket().Username)

	persisted, err := storage.Load()
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, "tok-1", persisted.Token)

	// A second login on a live session is a usage mistake.
	err = c.Login(context.Background(), Credentials{})
	var serr *ctisdk.SessionError
	require.ErrorAs(t, err, &serr)

	require.NoError(t, c.Logout())
	assert.False(t, c.Connected())
	assert.Nil(t, c.Ticket())
	assert.Equal(t, 1, disconnected)

	persisted, err = storage.Load()
	require.NoError(t, err)
	assert.Nil(t, persisted, "logout clears the persisted session")

	// Logout when already logged out is a no-op.
	require.NoError(t, c.Logout())
	assert.Equal(t, 1, disconnected)
}

func TestLoginAuthFailure(t *testing.T) {
	transport := &fakeTransport{}
	auth := &fakeAuth{err: errors.New("bad credentials")}
	c := NewController(transport, auth, NewStorage(""), 0, nopLogger{}, Callbacks{})

	err := c.Login(context.Background(), Credentials{Username: "1001"})
	var serr *ctisdk.SessionError
	require.ErrorAs(t, err, &serr)
	assert.ErrorContains(t, err, "bad credentials")
	assert.False(t, c.Connected())
}

func TestLoginChannelFailure(t *testing.T) {
	transport := &fakeTransport{connectErr: errors.New("dial refused")}
	auth := &fakeAuth{ticket: &Ticket{Token: "tok-1"}}
	c := NewController(transport, auth, NewStorage(""), 0, nopLogger{}, Callbacks{})

	err := c.Login(context.Background(), Credentials{})
	require.Error(t, err)
	assert.False(t, c.Connected())
}

func TestResume(t *testing.T) {
	storage := NewStorage(filepath.Join(t.TempDir(), "session.ini"))
	require.NoError(t, storage.Save(&Ticket{Token: "opaque-tok", Username: "1001"}))

	transport := &fakeTransport{}
	auth := &fakeAuth{}
	c := NewController(transport, auth, storage, 0, nopLogger{}, Callbacks{})

	require.NoError(t, c.Resume(context.Background()))
	assert.True(t, c.Connected())
	assert.Equal(t, 0, auth.calls, "resume must not re-authenticate")
}

func TestResumeWithoutPersistedSession(t *testing.T) {
	c := NewController(&fakeTransport{}, &fakeAuth{}, NewStorage(""), 0, nopLogger{}, Callbacks{})

	err := c.Resume(context.Background())
	var serr *ctisdk.SessionError
	require.ErrorAs(t, err, &serr)
}

func TestSendRequiresSession(t *testing.T) {
	transport := &fakeTransport{}
	c := NewController(transport, &fakeAuth{ticket: &Ticket{Token: "tok"}}, NewStorage(""), 0, nopLogger{}, Callbacks{})

	err := c.Send(context.Background(), ctisdk.Command{Verb: ctisdk.CommandCall})
	require.Error(t, err)

	require.NoError(t, c.Login(context.Background(), Credentials{}))
	require.NoError(t, c.Send(context.Background(), ctisdk.Command{ID: "c2c77", Verb: ctisdk.CommandCall}))
	require.NoError(t, c.Subscribe(context.Background(), "user:1001"))
	assert.Len(t, transport.sent, 1)
	assert.Equal(t, []string{"user:1001"}, transport.subscribed)
}

func TestKeepAliveFailureExpiresSession(t *testing.T) {
	transport := &fakeTransport{pingErr: errors.New("broken pipe")}
	auth := &fakeAuth{ticket: &Ticket{Token: "tok-1"}}
	storage := NewStorage(filepath.Join(t.TempDir(), "session.ini"))

	expired := make(chan struct{})
	c := NewController(transport, auth, storage, 10*time.Millisecond, nopLogger{}, Callbacks{
		OnSessionExpired: func() { close(expired) },
	})

	require.NoError(t, c.Login(context.Background(), Credentials{}))

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not expire on keep-alive failure")
	}
	assert.False(t, c.Connected())

	persisted, err := storage.Load()
	require.NoError(t, err)
	assert.Nil(t, persisted, "expiry clears the persisted session")
}
