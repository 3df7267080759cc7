// Package models defines the core data structures for users and connection
// tokens.
package models

import "time"

// User represents a gateway account.
type User struct {
	// Login is the name the user authenticates with.
	Login string
	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash []byte
}

// Token is a single-use ticket that admits one websocket connection.
type Token struct {
	// Value is the opaque token string handed to the client.
	Value string `json:"token"`
	// Login is the user the token was issued to.
	Login string `json:"-"`
	// ExpiresAt is the moment after which the token is rejected.
	ExpiresAt time.Time `json:"-"`
}

// Expired reports whether the token is no longer valid at now.
func (t Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
