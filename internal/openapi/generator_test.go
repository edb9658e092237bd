package openapi

import (
	"encoding/json"
	"testing"
)

func TestGeneratePaths(t *testing.T) {
	doc := Generate("http://localhost:8080", "1.0.0")

	apikeys := doc.Paths.Find("/api/apikeys")
	if apikeys == nil || apikeys.Get == nil {
		t.Fatal("expected GET /api/apikeys")
	}
	for _, status := range []int{200, 400, 401, 500} {
		if apikeys.Get.Responses.Status(status) == nil {
			t.Errorf("GET /api/apikeys: missing %d response", status)
		}
	}

	session := doc.Paths.Find("/api/auth/session")
	if session == nil || session.Post == nil || session.Get == nil || session.Delete == nil {
		t.Fatal("expected POST, GET and DELETE /api/auth/session")
	}
	if session.Post.Security != nil {
		t.Error("sign-in must not require a session")
	}
}

func TestGenerateComponents(t *testing.T) {
	doc := Generate("http://localhost:8080", "1.0.0")

	for _, name := range []string{"ErrorResponse", "Identity", "APIKey"} {
		if doc.Components.Schemas[name] == nil {
			t.Errorf("missing schema %s", name)
		}
	}
	if doc.Components.SecuritySchemes["bearerAuth"] == nil {
		t.Error("missing bearerAuth security scheme")
	}
}

func TestGenerateMarshalsJSON(t *testing.T) {
	data, err := json.Marshal(Generate("https://dash.example.com", "v1.2.3"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out["openapi"] != "3.1.0" {
		t.Errorf("openapi = %v", out["openapi"])
	}
	servers, _ := out["servers"].([]any)
	if len(servers) != 1 {
		t.Fatalf("servers = %v", out["servers"])
	}
}
