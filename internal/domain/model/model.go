// Package model contains domain values passed between layers.
package model

import (
	"encoding/xml"
	"time"
)

// TimeLayout is the wire layout for result timestamps.
const TimeLayout = "2006-01-02 15:04:05"

// RoleAdmin grants access to every result regardless of ownership.
const RoleAdmin = "ROLE_ADMIN"

// Payload field names accepted by create and replace operations.
const (
	AttrScore = "result"
	AttrUser  = "user"
	AttrTime  = "time"
)

// User is an account that owns results. This service treats users as
// read-only except for identity lookup.
type User struct {
	ID    int64
	Email string
	Roles []string
}

// Result is a single scored entry owned by exactly one user.
type Result struct {
	ID    int64
	Score int
	Time  time.Time
	User  User
}

// Caller is the authenticated identity for the current request, produced
// by the identity boundary. The zero value means unauthenticated.
type Caller struct {
	Email string
	Roles []string
}

// Authenticated reports whether an identity was resolved at all.
func (c Caller) Authenticated() bool {
	return c.Email != ""
}

// IsAdmin reports whether the caller holds the elevated role.
func (c Caller) IsAdmin() bool {
	for _, r := range c.Roles {
		if r == RoleAdmin {
			return true
		}
	}
	return false
}

// UserWire is the serialized form of a user.
type UserWire struct {
	XMLName xml.Name `json:"-" xml:"user"`
	ID      int64    `json:"id" xml:"id,attr"`
	Email   string   `json:"email" xml:"email"`
	Roles   []string `json:"roles" xml:"roles>role"`
}

// ResultWire is the serialized form of a result. Field order is fixed;
// fingerprints are computed over this exact shape, so any change to a
// field (including the owner) changes the fingerprint.
type ResultWire struct {
	XMLName xml.Name `json:"-" xml:"result"`
	ID      int64    `json:"id" xml:"id,attr"`
	User    UserWire `json:"user" xml:"user"`
	Score   int      `json:"result" xml:"score"`
	Time    string   `json:"time" xml:"time"`
}

// Wire converts a user to its serialized form.
func (u User) Wire() UserWire {
	return UserWire{ID: u.ID, Email: u.Email, Roles: u.Roles}
}

// Wire converts a result to its serialized form.
func (r Result) Wire() ResultWire {
	return ResultWire{
		ID:    r.ID,
		User:  r.User.Wire(),
		Score: r.Score,
		Time:  r.Time.Format(TimeLayout),
	}
}

// WireAll converts a collection preserving order.
func WireAll(rs []Result) []ResultWire {
	out := make([]ResultWire, len(rs))
	for i, r := range rs {
		out[i] = r.Wire()
	}
	return out
}

// WireUsers converts a user collection preserving order.
func WireUsers(us []User) []UserWire {
	out := make([]UserWire, len(us))
	for i, u := range us {
		out[i] = u.Wire()
	}
	return out
}
