package model

import (
	"encoding/json"
	"testing"
)

func TestStoredAPIKeyActiveDefault(t *testing.T) {
	inactive := false

	tests := []struct {
		name   string
		stored StoredAPIKey
		want   bool
	}{
		{"absent defaults to true", StoredAPIKey{Key: "sk_a"}, true},
		{"explicit false kept", StoredAPIKey{Key: "sk_b", Active: &inactive}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.stored.ToAPIKey("k1")
			if got.Active != tt.want {
				t.Errorf("Active = %v, want %v", got.Active, tt.want)
			}
			if got.ID != "k1" || got.Key != tt.stored.Key {
				t.Errorf("got %+v", got)
			}
		})
	}
}

func TestStoredAPIKeyDecodeMissingActive(t *testing.T) {
	var s StoredAPIKey
	if err := json.Unmarshal([]byte(`{"key":"sk_x","createdAt":"2024-05-01T10:00:00Z"}`), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s.Active != nil {
		t.Fatalf("expected nil Active, got %v", *s.Active)
	}
	k := s.ToAPIKey("id")
	if !k.Active {
		t.Error("expected Active to default to true")
	}
	if k.CreatedAt != "2024-05-01T10:00:00Z" {
		t.Errorf("CreatedAt = %v", k.CreatedAt)
	}
}

func TestAdminJSONOmitsID(t *testing.T) {
	a := Admin{ID: "a1", Username: "alice", PasswordHash: "$2a$10$x"}
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var m map[string]any
	json.Unmarshal(data, &m)
	if _, ok := m["id"]; ok {
		t.Error("id must not be stored inside the admin document")
	}
	if m["username"] != "alice" {
		t.Errorf("username = %v", m["username"])
	}
}

func TestSessionUserID(t *testing.T) {
	tests := []struct {
		name string
		id   any
		ok   bool
	}{
		{"string", "u1", true},
		{"empty", "", false},
		{"number", float64(42), false},
		{"missing", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Session{ID: tt.id}
			_, ok := s.UserID()
			if ok != tt.ok {
				t.Errorf("UserID ok = %v, want %v", ok, tt.ok)
			}
		})
	}
}
