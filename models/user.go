package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a firm staff account
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize password hash
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Attorney is one entry of the firm's read-only attorney directory.
// The directory is injected wherever it is needed; call sites never
// duplicate these records as literals.
type Attorney struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	BarNumber string `json:"bar_number"`
	FirmName  string `json:"firm_name"`
	Email     string `json:"email"`
}
