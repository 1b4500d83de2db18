package models

import "time"

type User struct {
	UserID           string     `json:"userId"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Password         string     `json:"-"` // Don't return password in JSON
	Activated        bool       `json:"activated"`
	Deactivated      bool       `json:"deactivated"`
	DeactivationDate *time.Time `json:"deactivationDate"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// UserWithDevices adds the ids of the devices a user owns
type UserWithDevices struct {
	User
	Devices []string `json:"devices"`
}

// UserUpdate is a partial credential update; Password holds the new plaintext
// until the service replaces it with its hash
type UserUpdate struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
}

// TemporaryUser is a signup awaiting email verification. It only lives in the
// cache and is never written to a response.
type TemporaryUser struct {
	UserID       string `json:"userId"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
}
