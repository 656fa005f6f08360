/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2025 Tejus Pratap <tejzpr@gmail.com>
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package session

import (
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	signer, err := jose.NewSigner(jose.SigningKey{
		Algorithm: jose.HS256,
		Key:       []byte("0123456789abcdef0123456789abcdef"),
	}, nil)
	require.NoError(t, err)
	token, err := jwt.Signed(signer).Claims(claims).Serialize()
	require.NoError(t, err)
	return token
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signedToken(t, jwt.Claims{Subject: "1001", Expiry: jwt.NewNumericDate(exp)})

	got, err := TokenExpiry(token)
	require.NoError(t, err)
	assert.True(t, got.Equal(exp), "expiry = %v, want %v", got, exp)
}

func TestTokenExpiryWithoutClaim(t *testing.T) {
	token := signedToken(t, jwt.Claims{Subject: "1001"})

	got, err := TokenExpiry(token)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestTokenExpiryOpaqueToken(t *testing.T) {
	_, err := TokenExpiry("not-a-jwt")
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()

	live := signedToken(t, jwt.Claims{Expiry: jwt.NewNumericDate(now.Add(time.Hour))})
	dead := signedToken(t, jwt.Claims{Expiry: jwt.NewNumericDate(now.Add(-time.Hour))})

	assert.False(t, tokenExpired(live, now))
	assert.True(t, tokenExpired(dead, now))
	assert.False(t, tokenExpired("opaque-session-token", now), "opaque tokens never expire client-side")
}
