// Package shared provides small helpers used across the pipeline stages:
// content fingerprinting and bounded text for audit columns.
package shared

import (
	"crypto/md5"
	"encoding/hex"
	"unicode/utf8"
)

// MaxLogText bounds transcript and error text written to usage logs.
const MaxLogText = 8096

// HashContent returns the lowercase hex MD5 digest of b. It identifies
// byte-identical uploads and is not used for any security purpose.
//
// Example:
//
//	HashContent([]byte("abc")) // "900150983cd24fb0d6963f7d28e17f72"
func HashContent(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

// Truncate returns at most max bytes of s without splitting a UTF-8 rune.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// TruncatePtr is Truncate for optional columns; nil stays nil.
func TruncatePtr(s *string, max int) *string {
	if s == nil {
		return nil
	}
	t := Truncate(*s, max)
	return &t
}
