package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOfWrapped(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("read admins: %w", Wrap(Internal, "server error", cause))

	if got := KindOf(err); got != Internal {
		t.Errorf("KindOf: got %v, want %v", got, Internal)
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable through Unwrap")
	}
	if got := Message(err, "fallback"); got != "server error" {
		t.Errorf("Message: got %q, want %q", got, "server error")
	}
}

func TestKindOfPlainError(t *testing.T) {
	err := errors.New("boom")
	if got := KindOf(err); got != Internal {
		t.Errorf("KindOf: got %v, want %v", got, Internal)
	}
	if got := Message(err, "fallback"); got != "fallback" {
		t.Errorf("Message: got %q, want %q", got, "fallback")
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{Configuration, http.StatusInternalServerError},
		{Validation, http.StatusBadRequest},
		{Authentication, http.StatusUnauthorized},
		{Internal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := Status(tt.kind); got != tt.want {
			t.Errorf("Status(%v): got %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestIs(t *testing.T) {
	err := New(Authentication, "username or password incorrect")
	if !Is(err, Authentication) {
		t.Error("expected Is(Authentication) to be true")
	}
	if Is(err, Validation) {
		t.Error("expected Is(Validation) to be false")
	}
}
