/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2025 Tejus Pratap <tejzpr@gmail.com>
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.ini")
	s := NewStorage(path)

	ticket := &Ticket{
		Token:    "tok-1",
		Address:  "wss://signal.example.com",
		Domain:   "example.com",
		Username: "1001",
		StreamID: "s-9",
	}
	require.NoError(t, s.Save(ticket))

	loaded, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, ticket, loaded)
}

func TestStorageLoadMissingFile(t *testing.T) {
	s := NewStorage(filepath.Join(t.TempDir(), "absent.ini"))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStorageClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.ini")
	s := NewStorage(path)
	require.NoError(t, s.Save(&Ticket{Token: "tok-1"}))

	require.NoError(t, s.Clear())
	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// Clearing twice is fine.
	require.NoError(t, s.Clear())
}

func TestStorageDisabled(t *testing.T) {
	s := NewStorage("")

	require.NoError(t, s.Save(&Ticket{Token: "tok-1"}))
	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
	require.NoError(t, s.Clear())
}
