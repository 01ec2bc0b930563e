package domain

import "time"

// ============================================================
// Auth session
// ============================================================

// UserMetadata is the profile seed the auth provider keeps for a user.
type UserMetadata struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Identity is an authenticated user as reported by the auth provider.
type Identity struct {
	ID        string       `json:"id"`
	Email     string       `json:"email,omitempty"`
	Metadata  UserMetadata `json:"user_metadata"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Expired reports whether the session behind the identity has lapsed at now.
func (i *Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// AuthEventType names an auth session transition.
type AuthEventType string

const (
	SignedIn       AuthEventType = "SIGNED_IN"
	SignedOut      AuthEventType = "SIGNED_OUT"
	TokenRefreshed AuthEventType = "TOKEN_REFRESHED"
)

// AuthEvent is emitted by the session provider on every transition.
// User is nil for SignedOut.
type AuthEvent struct {
	Type AuthEventType
	User *Identity
}

// SessionRequest is the body for POST /v1/session and POST /v1/session/refresh.
type SessionRequest struct {
	AccessToken string `json:"access_token"`
}

// SessionResponse is returned when a session is opened or refreshed.
// UserID is empty while the session is signed out.
type SessionResponse struct {
	SessionID string     `json:"session_id"`
	UserID    string     `json:"user_id,omitempty"`
	Email     string     `json:"email,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Refreshed bool       `json:"refreshed,omitempty"`
}
