package model

import "time"

// Operator roles.  ADMIN manages the full dashboard; STAFF may only
// look up and claim bookings at the gate.
const (
	RoleAdmin = "ADMIN"
	RoleStaff = "STAFF"
)

// User is a dashboard operator account as stored in the `users` table.
// Visitors never authenticate; only administrators and gate staff do.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
