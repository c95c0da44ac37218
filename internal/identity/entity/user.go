package entity

import "time"

// User is a registered account. Email is the identity key, stored as given.
type User struct {
	ID           int64
	Email        string
	FullName     string
	PasswordHash string
	CreatedAt    time.Time
}

// NewUser is the row inserted at the end of a verified registration.
type NewUser struct {
	ID           int64
	Email        string
	FullName     string
	PasswordHash string
}
