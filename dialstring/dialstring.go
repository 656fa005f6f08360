/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2025 Tejus Pratap <tejzpr@gmail.com>
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

// Package dialstring normalizes and validates dial strings: E.164 phone
// numbers and short internal extensions.
package dialstring

import "regexp"

var (
	strippedRunes = regexp.MustCompile(`[+\-.() ]`)
	leadingZeros  = regexp.MustCompile(`^0{1,2}`)
	phoneNumberRe = regexp.MustCompile(`^\+[1-9][0-9]{5,16}$`)
	extensionRe   = regexp.MustCompile(`^[1-9][0-9]{3,4}$`)
)

// extensionMaxLen is the classification boundary: anything longer is treated
// as a phone number, anything up to it as an extension or special internal
// address.
const extensionMaxLen = 5

// NormalizePhoneNumber converts a free-form phone number to E.164 shape: it
// strips "+", "-", ".", parentheses and spaces, strips up to two leading
// zeros, and prefixes "+". It is pure and total; the result may still fail
// IsValidPhoneNumber.
func NormalizePhoneNumber(raw string) string {
	s := strippedRunes.ReplaceAllString(raw, "")
	s = leadingZeros.ReplaceAllString(s, "")
	return "+" + s
}

// IsValidPhoneNumber reports whether s is a normalized E.164 number:
// "+" followed by 6 to 17 digits not starting with zero.
func IsValidPhoneNumber(s string) bool {
	return phoneNumberRe.MatchString(s)
}

// IsValidExtension reports whether s is a 4- or 5-digit internal extension
// not starting with zero.
func IsValidExtension(s string) bool {
	return extensionRe.MatchString(s)
}

// IsPhoneNumber classifies a destination string: destinations longer than
// five characters are phone numbers, shorter ones are extensions or special
// internal addresses.
func IsPhoneNumber(destination string) bool {
	return len(destination) > extensionMaxLen
}
