package model

// APIKey is a per-user credential entry as exposed by the listing endpoint.
// CreatedAt is passed through exactly as stored.
type APIKey struct {
	ID        string `json:"id"`
	Key       string `json:"key"`
	CreatedAt any    `json:"createdAt"`
	Active    bool   `json:"active"`
}

// StoredAPIKey is the document persisted at <namespace>/admin/<userId>/apikeys/<keyId>.
// Active is a pointer so that an absent field can be told apart from false.
type StoredAPIKey struct {
	Key       string `json:"key"`
	CreatedAt any    `json:"createdAt,omitempty"`
	Active    *bool  `json:"active,omitempty"`
}

// ToAPIKey projects a stored record into its listing form. A record without an
// active field is treated as active.
func (s StoredAPIKey) ToAPIKey(id string) APIKey {
	active := true
	if s.Active != nil {
		active = *s.Active
	}
	return APIKey{
		ID:        id,
		Key:       s.Key,
		CreatedAt: s.CreatedAt,
		Active:    active,
	}
}
