package model

import "time"

// TokenData contains the data stored with an admin session token.
type TokenData struct {
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Admin is a stored administrator account.
type Admin struct {
	Email        string
	PasswordHash []byte
	UpdatedAt    time.Time
}
