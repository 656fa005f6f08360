/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2025 Tejus Pratap <tejzpr@gmail.com>
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package callstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceFollowsLattice(t *testing.T) {
	call := NewCall("1", DirectionOutbound, StatusInitial)

	require.NoError(t, call.Advance(StatusAccepted))
	require.NoError(t, call.Advance(StatusRinging))
	require.NoError(t, call.Advance(StatusConnected))
	require.NoError(t, call.Advance(StatusOnHold))
	require.NoError(t, call.Advance(StatusConnected))
	require.NoError(t, call.Advance(StatusHangup))
	assert.True(t, call.IsTerminal())
}

func TestAdvanceRejectsRegressions(t *testing.T) {
	call := NewCall("1", DirectionInbound, StatusConnected)

	assert.Error(t, call.Advance(StatusRinging))
	assert.Error(t, call.Advance(StatusAccepted))
	assert.Equal(t, StatusConnected, call.Status, "failed transitions leave the status unchanged")
}

func TestAdvanceSameStateIsNoOp(t *testing.T) {
	call := NewCall("1", DirectionInbound, StatusRinging)

	require.NoError(t, call.Advance(StatusRinging))
	assert.Equal(t, StatusRinging, call.Status)
}

func TestHoldRequiresConnected(t *testing.T) {
	call := NewCall("1", DirectionInbound, StatusRinging)

	assert.Error(t, call.Advance(StatusOnHold))
}

func TestTerminalIsAbsorbing(t *testing.T) {
	call := NewCall("1", DirectionInbound, StatusConnected)
	require.NoError(t, call.Advance(StatusHangup))

	assert.Error(t, call.Advance(StatusConnected))
	assert.Equal(t, StatusHangup, call.Status)
}

func TestEndpointSet(t *testing.T) {
	call := NewCall("1", DirectionOutbound, StatusInitial)

	call.AddEndpoint("a")
	call.AddEndpoint("b")
	call.AddEndpoint("a")
	assert.Equal(t, []string{"a", "b"}, call.Endpoints, "registration is idempotent")
	assert.True(t, call.HasEndpoint("b"))

	call.KeepOnlyEndpoint("b")
	assert.Equal(t, []string{"b"}, call.Endpoints)

	call.RemoveEndpoint("b")
	assert.Empty(t, call.Endpoints)
	assert.False(t, call.HasEndpoint("b"))
}

func TestCloneIsDetached(t *testing.T) {
	call := NewCall("1", DirectionInbound, StatusRinging)
	call.Source = "+442079460000"
	call.AddEndpoint("a")

	snap := call.Clone()
	require.NoError(t, call.Advance(StatusConnected))
	call.Endpoints[0] = "mutated"

	assert.Equal(t, StatusRinging, snap.Status)
	assert.Equal(t, []string{"a"}, snap.Endpoints)
	assert.Equal(t, "+442079460000", snap.Source)
}
