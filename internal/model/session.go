package model

import "time"

// Session is the authenticated identity read back from a session token. ID is
// kept untyped because tokens are decoded from client-supplied bytes and the
// handlers must reject a non-string id rather than fail to decode.
type Session struct {
	ID        any       `json:"id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires"`
}

// UserID returns the session's user id and whether it is a non-empty string.
func (s *Session) UserID() (string, bool) {
	id, ok := s.ID.(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
