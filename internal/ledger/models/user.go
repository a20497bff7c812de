// Package models defines the rows stored in the entitlement ledger.
package models

import "time"

// User is one tenant account. Exactly one row exists per OS account name;
// username uniqueness is enforced by the store.
type User struct {
	// ID is the store-assigned surrogate key.
	ID int64

	// Username mirrors the OS account name and is immutable once created.
	Username string

	// PasswordHash is the argon2id digest of the current secret.
	// Plaintext is never stored.
	PasswordHash string

	// Email is an optional contact address.
	Email string

	// Role is either "user" or "admin".
	Role string

	// IsActive marks the account as enabled. Stored for parity with the
	// admin API; deactivation is not yet acted upon by provisioning.
	IsActive bool

	// CreatedAt is the row creation time in UTC.
	CreatedAt time.Time

	// LastLogin is the time of the last successful API login, if any.
	LastLogin *time.Time
}
