// Package authz decides whether a caller may act on a resource owned by a
// given user. It is a pure decision function; it touches no storage.
package authz

import (
	"strings"

	"github.com/okian/tally/internal/domain/model"
)

// Authorize fails closed: an unauthenticated caller is rejected before any
// ownership comparison runs. Callers holding the elevated role may act on
// anything; everyone else only on resources whose owner email matches
// their own, compared case-insensitively.
func Authorize(caller model.Caller, ownerEmail string) error {
	if !caller.Authenticated() {
		return ErrUnauthenticated
	}
	if caller.IsAdmin() {
		return nil
	}
	// Normalized-key comparison, not locale-sensitive collation.
	if strings.ToLower(caller.Email) == strings.ToLower(ownerEmail) {
		return nil
	}
	return ErrForbidden
}

// OwnerForCreate resolves the owner a create operation targets: the owner
// requested in the payload, defaulting to the caller itself when absent.
func OwnerForCreate(caller model.Caller, payload map[string]any) string {
	if raw, ok := payload[model.AttrUser]; ok {
		if email, ok := raw.(string); ok {
			return email
		}
	}
	return caller.Email
}
