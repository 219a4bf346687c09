package model

import (
	"time"
)

// User is an account created on first sign-in.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"timestamp"`
}

// SyncUserRequest carries provider profile fields. Empty fields fall back to session claims.
type SyncUserRequest struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}
