package types

import "time"

// User represents an account in the system.
// It contains identity, credentials, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// Email is the user's email address.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UserProfile holds the optional profile data attached to a user.
//
// Every user has exactly one profile; it is created in the same transaction
// as the user account itself, so the pair is never observable in a
// half-created state.
type UserProfile struct {
	// ID is the unique identifier of the profile.
	ID int `json:"id" db:"id"`

	// UserID identifies the user this profile belongs to.
	UserID int `json:"user_id" db:"user_id"`

	// Bio is a free-form self description. May be empty.
	Bio string `json:"bio" db:"bio"`

	// Picture is the object storage name of the profile picture
	// (e.g. a MinIO object key). Empty when no picture has been uploaded.
	// Clients fetch the bytes through the image proxy endpoint, never
	// directly from object storage.
	Picture string `json:"picture" db:"picture"`

	// DateOfBirth is the user's birth date. Nil when not provided.
	DateOfBirth *time.Time `json:"date_of_birth" db:"date_of_birth"`

	// CreatedAt is the timestamp when the profile was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent profile update.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
