// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an identity record. PasswordHash is a bcrypt hash; the plaintext
// never reaches this struct.
type User struct {
	ID           string
	Email        string
	UserName     string
	PasswordHash string
	Admin        bool
	RegisteredOn time.Time
}
