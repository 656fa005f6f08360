/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2025 Tejus Pratap <tejzpr@gmail.com>
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package session

import (
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

// tokenSignatureAlgorithms lists the JWS algorithms backend tokens are
// known to use. Parsing rejects anything else outright.
var tokenSignatureAlgorithms = []jose.SignatureAlgorithm{
	jose.HS256, jose.RS256, jose.ES256,
}

// TokenExpiry reads the expiry claim out of a session token. The signature
// is not verified; the backend is the authority on token validity and this
// client only needs the expiry to log itself out proactively. A token
// without an expiry claim reports the zero time and no error.
func TokenExpiry(token string) (time.Time, error) {
	parsed, err := jwt.ParseSigned(token, tokenSignatureAlgorithms)
	if err != nil {
		return time.Time{}, err
	}
	var claims jwt.Claims
	if err := parsed.UnsafeClaimsWithoutVerification(&claims); err != nil {
		return time.Time{}, err
	}
	if claims.Expiry == nil {
		return time.Time{}, nil
	}
	return claims.Expiry.Time(), nil
}

// tokenExpired reports whether the token has an expiry claim in the past.
// Opaque (non-JWT) tokens never expire client-side.
func tokenExpired(token string, now time.Time) bool {
	exp, err := TokenExpiry(token)
	if err != nil || exp.IsZero() {
		return false
	}
	return now.After(exp)
}
