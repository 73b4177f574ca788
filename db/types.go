package db

import (
	"time"
)

// Auth provider tags stored with every user.
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

// User represents a user from the database.
// Timestamps use RFC3339 format in UTC timezone.
// Example: "2024-03-07T15:04:05Z"
type User struct {
	ID       string
	Email    string
	FullName string
	// Password is the bcrypt hash. Empty for accounts created through OAuth2.
	Password   string
	ProfilePic string
	// AuthProvider is one of ProviderLocal, ProviderGoogle, ProviderGitHub.
	AuthProvider string
	Verified     bool
	// VerificationToken and VerificationExpires are set on signup and both
	// cleared once the email is verified.
	VerificationToken   string
	VerificationExpires time.Time
	Sessions            []Session
	Created             time.Time
	Updated             time.Time
}

// HasPassword reports whether password login is possible for the user.
func (u *User) HasPassword() bool {
	return u.Password != ""
}

// Session is one device that logged in and has not logged out since.
type Session struct {
	ID         string    `json:"id"`
	DeviceInfo string    `json:"deviceInfo"`
	IPAddress  string    `json:"ipAddress"`
	LastActive time.Time `json:"lastActive"`
}

// RefreshToken is an opaque long lived token persisted server side.
type RefreshToken struct {
	ID         string
	Token      string
	UserID     string
	DeviceInfo string
	IPAddress  string
	ExpiresAt  time.Time
	Created    time.Time
}

// Expired reports whether the token is no longer usable at now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// TimeFormat formats a time in the storage layout, always UTC.
func TimeFormat(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// TimeParse parses a stored RFC3339 timestamp. The empty string is the zero time.
func TimeParse(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
