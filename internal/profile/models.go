package profile

import "time"

// User is an authenticated account. A user may hold both roles; the
// primary role is the one the account signed up with.
type User struct {
	ID           string   `json:"id" db:"id"`
	Email        string   `json:"email" db:"email"`
	PasswordHash string   `json:"-" db:"password_hash"`
	PrimaryRole  string   `json:"primary_role" db:"primary_role"`
	Roles        []string `json:"roles"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DeveloperProfile is the public listing a customer books against.
// HourlyRateMinor is the source of truth for booking amounts; the booking
// fixes its amount from this rate at creation time.
type DeveloperProfile struct {
	UserID   string `json:"user_id" db:"user_id"`
	FullName string `json:"full_name" db:"full_name"`
	Bio      string `json:"bio,omitempty" db:"bio"`

	HourlyRateMinor int64  `json:"hourly_rate_minor" db:"hourly_rate_minor"`
	Currency        string `json:"currency" db:"currency"`

	Location  string `json:"location,omitempty" db:"location"`
	Education string `json:"education,omitempty" db:"education"`
	GitHub    string `json:"github,omitempty" db:"github_url"`
	LinkedIn  string `json:"linkedin,omitempty" db:"linkedin_url"`

	// WalletAddress receives session payments.
	WalletAddress  string `json:"wallet_address,omitempty" db:"wallet_address"`
	ProfilePicture string `json:"profile_picture,omitempty" db:"profile_picture"`

	IsAvailable bool     `json:"is_available" db:"is_available"`
	Skills      []string `json:"skills"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type CustomerProfile struct {
	UserID       string `json:"user_id" db:"user_id"`
	FullName     string `json:"full_name" db:"full_name"`
	Organization string `json:"organization,omitempty" db:"organization"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
