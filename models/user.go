package models

import "time"

// LoginRequest carries the dashboard login form. Empty fields are rejected by
// the session controller rather than the binder so the client gets the same
// notice the form shows.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type OperatorSignupRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// Operator is a dashboard account, only used when AUTH_MODE=postgres.
type Operator struct {
	ID             int       `json:"id"`
	Username       string    `json:"username"`
	HashedPassword []byte    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
