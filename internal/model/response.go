package model

// ErrorResponse is the flat error envelope returned by every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}

// APIKeyListResponse is the success body of GET /api/apikeys.
type APIKeyListResponse struct {
	Success bool     `json:"success"`
	APIKeys []APIKey `json:"apikeys"`
}

// SessionResponse is returned after a successful sign-in.
type SessionResponse struct {
	Token     string   `json:"token"`
	TokenType string   `json:"token_type"`
	ExpiresIn int      `json:"expires_in"`
	User      Identity `json:"user"`
}

// SessionInfo describes the current session, mirroring what a client reads
// back from its token.
type SessionInfo struct {
	User    *Identity `json:"user,omitempty"`
	Expires string    `json:"expires,omitempty"`
}
