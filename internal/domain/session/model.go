package session

import "time"

// Session is an authenticated browser session. It is valid while
// now < ExpiresAt.
type Session struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	LastSeen  time.Time `json:"last_seen"`
}

// Authenticated reports whether the session is still valid at now.
func (s *Session) Authenticated(now time.Time) bool {
	return s != nil && now.Before(s.ExpiresAt)
}

// Identity is the provider-verified user a session is created for.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}
