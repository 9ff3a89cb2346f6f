// Package repository defines the persistence contract for results and
// users, plus the sort allow-list shared by every implementation.
package repository

import (
	"context"
	"strings"

	"github.com/okian/tally/internal/domain/model"
)

// Sort defaults applied whenever a requested field or direction is not in
// the allow-list. Unrecognized values fall back; they never error.
const (
	DefaultSortField = "id"
	DefaultSortOrder = "asc"
)

// Store provides durable access to results and users. Implementations
// must serialize conflicting writes at the storage layer; this interface
// carries no locking semantics of its own.
type Store interface {
	// FindByID returns ErrResultNotFound when id is unknown.
	FindByID(ctx context.Context, id int64) (model.Result, error)

	// FindAllSorted returns every result ordered by the normalized sort.
	FindAllSorted(ctx context.Context, field, order string) ([]model.Result, error)

	// FindOwnedBySorted returns the results owned by the user with the
	// given email (case-insensitive), ordered by the normalized sort.
	FindOwnedBySorted(ctx context.Context, ownerEmail, field, order string) ([]model.Result, error)

	// Save inserts r when its ID is zero, assigning a new one, and
	// replaces the stored row otherwise.
	Save(ctx context.Context, r *model.Result) error

	// Remove deletes the result. Unknown ids return ErrResultNotFound.
	Remove(ctx context.Context, id int64) error

	// FindUserByEmail matches case-insensitively and returns
	// ErrUserNotFound on a miss.
	FindUserByEmail(ctx context.Context, email string) (model.User, error)

	// FindUserByID returns ErrUserNotFound on a miss.
	FindUserByID(ctx context.Context, id int64) (model.User, error)

	// FindUsersSorted returns every user ordered ascending by field,
	// restricted to the user sort allow-list {id, email}.
	FindUsersSorted(ctx context.Context, field string) ([]model.User, error)

	// AddUser inserts a user, assigning an ID when zero.
	AddUser(ctx context.Context, u *model.User) error

	// CountResults reports the number of stored results, for gauges.
	CountResults(ctx context.Context) int
}

// NormalizeSort maps a requested sort onto the allow-list
// {id, time, result} x {asc, desc}, falling back to id asc.
func NormalizeSort(field, order string) (string, string) {
	switch strings.ToLower(field) {
	case "id", "time", "result":
		field = strings.ToLower(field)
	default:
		field = DefaultSortField
	}
	switch strings.ToLower(order) {
	case "asc", "desc":
		order = strings.ToLower(order)
	default:
		order = DefaultSortOrder
	}
	return field, order
}

// NormalizeUserSort maps a requested user sort onto {id, email}.
func NormalizeUserSort(field string) string {
	switch strings.ToLower(field) {
	case "id", "email":
		return strings.ToLower(field)
	default:
		return DefaultSortField
	}
}
