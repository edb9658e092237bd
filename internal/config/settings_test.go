package config

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/keydash/keydash/internal/apperr"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	s := Load(newTestViper(t))

	if s.Auth.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, want 24h", s.Auth.SessionTTL)
	}
	if s.Store.Namespace != "admin-dashboard" {
		t.Errorf("Namespace = %q", s.Store.Namespace)
	}
	if s.Store.ReadTimeout != 10*time.Second {
		t.Errorf("ReadTimeout = %v", s.Store.ReadTimeout)
	}
	if s.Server.Port != 8080 {
		t.Errorf("Port = %d", s.Server.Port)
	}
}

func TestLoadEnvAliases(t *testing.T) {
	t.Setenv("NEXTAUTH_SECRET", "legacy-secret")
	t.Setenv("NEXT_PUBLIC_FIREBASE_API_KEY", "legacy-key")
	t.Setenv("VERCEL_URL", "dash.example.vercel.app")

	s := Load(newTestViper(t))
	if s.Auth.Secret != "legacy-secret" {
		t.Errorf("Secret = %q", s.Auth.Secret)
	}
	if s.Firebase.APIKey != "legacy-key" {
		t.Errorf("APIKey = %q", s.Firebase.APIKey)
	}
	if s.Server.BaseURL != "https://dash.example.vercel.app" {
		t.Errorf("BaseURL = %q", s.Server.BaseURL)
	}
}

func TestLoadPrefixedEnvWins(t *testing.T) {
	t.Setenv("NEXTAUTH_SECRET", "legacy-secret")
	t.Setenv("KEYDASH_AUTH_SECRET", "new-secret")

	s := Load(newTestViper(t))
	if s.Auth.Secret != "new-secret" {
		t.Errorf("Secret = %q, want new-secret", s.Auth.Secret)
	}
}

func TestLoadPrefixedEnvWithoutAlias(t *testing.T) {
	t.Setenv("KEYDASH_STORE_DRIVER", "sqlite")
	t.Setenv("KEYDASH_STORE_DSN", ":memory:")
	t.Setenv("KEYDASH_STORE_READ_TIMEOUT", "3s")
	t.Setenv("KEYDASH_LOG_LEVEL", "debug")
	t.Setenv("KEYDASH_SERVER_PORT", "9090")

	s := Load(newTestViper(t))
	if s.Store.Driver != "sqlite" || s.Store.DSN != ":memory:" {
		t.Errorf("store = %+v", s.Store)
	}
	if s.Store.ReadTimeout != 3*time.Second {
		t.Errorf("ReadTimeout = %v, want 3s", s.Store.ReadTimeout)
	}
	if s.LogLevel() != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", s.LogLevel())
	}
	if s.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", s.Server.Port)
	}
	if err := s.ValidateStore(); err != nil {
		t.Errorf("ValidateStore: %v", err)
	}
}

func TestValidateMissingSecret(t *testing.T) {
	s := Load(newTestViper(t))
	s.Store.Driver = "sqlite"
	s.Store.DSN = ":memory:"

	err := s.Validate(discard)
	if !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
	if !apperr.Is(err, apperr.Configuration) {
		t.Error("expected a configuration error")
	}
}

func TestValidateFallsBackBaseURL(t *testing.T) {
	s := Load(newTestViper(t))
	s.Auth.Secret = "secret"
	s.Store.Driver = "sqlite"
	s.Store.DSN = ":memory:"
	s.Server.Host = "127.0.0.1"
	s.Server.Port = 9000

	if err := s.Validate(discard); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if s.Server.BaseURL != "http://127.0.0.1:9000" {
		t.Errorf("BaseURL = %q", s.Server.BaseURL)
	}
}

func TestValidateStoreDriver(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		dsn     string
		dbURL   string
		wantErr bool
	}{
		{"firebase ok", "firebase", "", "https://x.firebaseio.com", false},
		{"firebase no url", "firebase", "", "", true},
		{"sqlite ok", "sqlite", "file.db", "", false},
		{"postgres no dsn", "postgres", "", "", true},
		{"unknown", "oracle", "x", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Load(newTestViper(t))
			s.Auth.Secret = "secret"
			s.Store.Driver = tt.driver
			s.Store.DSN = tt.dsn
			s.Firebase.DatabaseURL = tt.dbURL
			err := s.Validate(discard)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateStoreIgnoresSecret(t *testing.T) {
	s := Load(newTestViper(t))
	s.Store.Driver = "sqlite"
	s.Store.DSN = ":memory:"

	if err := s.ValidateStore(); err != nil {
		t.Errorf("ValidateStore: %v", err)
	}
}

func TestLogLevel(t *testing.T) {
	s := &Settings{Log: LogSettings{Level: "debug"}}
	if s.LogLevel() != slog.LevelDebug {
		t.Errorf("LogLevel = %v", s.LogLevel())
	}
	s.Log.Level = "nonsense"
	if s.LogLevel() != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", s.LogLevel())
	}
}

func TestDefaultFileRoundTripsThroughViper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keydash.yaml")
	if err := WriteDefaultFile(path); err != nil {
		t.Fatalf("WriteDefaultFile: %v", err)
	}

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig: %v", err)
	}
	s := Load(v)
	if s.Store.Driver != "firebase" || s.Store.Namespace != DefaultNamespace {
		t.Errorf("store = %+v", s.Store)
	}
	if s.Auth.SessionTTL != DefaultSessionTTL {
		t.Errorf("SessionTTL = %v", s.Auth.SessionTTL)
	}
}

func TestFileFromSettingsMasksSecrets(t *testing.T) {
	s := &Settings{
		Auth:     AuthSettings{Secret: "top-secret"},
		Firebase: FirebaseSettings{APIKey: "AIza"},
	}
	data, err := FileFromSettings(s, false).Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if f.Auth.Secret != "********" || f.Firebase.APIKey != "********" {
		t.Errorf("secrets not masked: %+v %+v", f.Auth, f.Firebase)
	}

	if got := FileFromSettings(s, true).Auth.Secret; got != "top-secret" {
		t.Errorf("reveal: got %q", got)
	}
}
