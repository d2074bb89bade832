package model

import "time"

// User represents an application user record as stored in the `users`
// table.  The numeric ID doubles as the lock-owner value written into
// the ephemeral lock store, so it must be stable for the lifetime of
// the account.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – role name (currently always CUSTOMER).
//  CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	CreatedAt    time.Time // users.created_at
}
