package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	FirstName    string
	LastName     string
	Email        string
	DOB          *time.Time
	PassHash     []byte
	IsVerified   bool
	OTPHash      []byte
	OTPExpiresAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPendingCode reports whether a one-time code is waiting to be consumed.
func (u *User) HasPendingCode() bool {
	return len(u.OTPHash) > 0 && u.OTPExpiresAt != nil
}

// CodeExpired reports whether the pending code is past its expiry at now.
func (u *User) CodeExpired(now time.Time) bool {
	return u.OTPExpiresAt == nil || now.After(*u.OTPExpiresAt)
}

// Public returns the view of the user that is safe to send to clients.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:              u.ID.String(),
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Email:           u.Email,
		IsEmailVerified: u.IsVerified,
		CreatedAt:       u.CreatedAt,
	}
}

type PublicUser struct {
	ID              string    `json:"id"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	Email           string    `json:"email"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	CreatedAt       time.Time `json:"createdAt"`
}

type Note struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message is the payload queued for the mail sender.
type Message struct {
	Email   string `json:"to"`
	Code    string `json:"code"`
	Purpose string `json:"purpose"`
}
