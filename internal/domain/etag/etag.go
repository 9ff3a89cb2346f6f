// Package etag computes content fingerprints used as optimistic
// concurrency precondition tokens. A fingerprint is the lowercase hex MD5
// of a value's canonical JSON form; struct field order fixes the byte
// layout, so the same logical content always yields the same token.
package etag

import (
	"crypto/md5" //nolint:gosec // fingerprint, not a security boundary
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Wildcard matches any current fingerprint on the read side.
const Wildcard = "*"

// Of returns the fingerprint for v.
func Of(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := md5.Sum(b) //nolint:gosec
	return hex.EncodeToString(sum[:]), nil
}

// Match reports whether any supplied read-side token matches the current
// fingerprint. Tokens may be quoted and comma separated as on the wire.
func Match(current string, supplied []string) bool {
	for _, t := range supplied {
		t = Normalize(t)
		if t == Wildcard || t == current {
			return true
		}
	}
	return false
}

// Admit performs the write-side check: the supplied token must byte-equal
// the fingerprint of the stored state. There is no wildcard on writes.
func Admit(current, supplied string) bool {
	return supplied != "" && Normalize(supplied) == current
}

// Normalize strips surrounding whitespace and optional quoting from a
// wire token.
func Normalize(token string) string {
	token = strings.TrimSpace(token)
	token = strings.TrimPrefix(token, "W/")
	return strings.Trim(token, `"`)
}

// ParseHeader splits a conditional header value into individual tokens.
func ParseHeader(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := Normalize(p); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}
