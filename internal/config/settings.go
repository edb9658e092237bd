// Package config loads keydash settings from flags, environment and an
// optional YAML file, and validates the ones the server cannot start without.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultNamespace is the datastore path prefix used when none is configured.
const DefaultNamespace = "admin-dashboard"

// DefaultSessionTTL is the fixed validity window of a session token.
const DefaultSessionTTL = 24 * time.Hour

// Settings is the effective configuration of a keydash process.
type Settings struct {
	Server   ServerSettings
	Auth     AuthSettings
	Firebase FirebaseSettings
	Store    StoreSettings
	Log      LogSettings
}

// ServerSettings controls the HTTP listener.
type ServerSettings struct {
	Host            string
	Port            int
	BaseURL         string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
}

// AuthSettings controls session signing and sign-in throttling.
type AuthSettings struct {
	Secret         string
	SessionTTL     time.Duration
	LoginRateLimit int // sign-in attempts per IP per minute
}

// FirebaseSettings identifies the Realtime Database project.
type FirebaseSettings struct {
	APIKey          string
	DatabaseURL     string
	CredentialsFile string
}

// StoreSettings selects the datastore backend.
type StoreSettings struct {
	Driver      string // firebase, sqlite, postgres or mysql
	DSN         string
	Namespace   string
	ReadTimeout time.Duration
}

// LogSettings controls log output.
type LogSettings struct {
	Level  string
	Format string
}

// envAliases maps setting keys to the environment variables read for them,
// in priority order. The unprefixed names are the ones used by existing
// dashboard deployments.
var envAliases = map[string][]string{
	"auth.secret":               {"KEYDASH_AUTH_SECRET", "NEXTAUTH_SECRET"},
	"firebase.api_key":          {"KEYDASH_FIREBASE_API_KEY", "NEXT_PUBLIC_FIREBASE_API_KEY"},
	"firebase.database_url":     {"KEYDASH_FIREBASE_DATABASE_URL", "NEXT_PUBLIC_FIREBASE_DATABASE_URL"},
	"firebase.credentials_file": {"KEYDASH_FIREBASE_CREDENTIALS_FILE", "GOOGLE_APPLICATION_CREDENTIALS"},
	"server.base_url":           {"KEYDASH_SERVER_BASE_URL", "NEXTAUTH_URL"},
	"platform.url":              {"VERCEL_URL"},
}

// EnvPrefix is the prefix of the environment variables read for every
// setting: store.dsn is read from KEYDASH_STORE_DSN.
const EnvPrefix = "KEYDASH"

// SetDefaults registers default values and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("auth.session_ttl", DefaultSessionTTL.String())
	v.SetDefault("auth.login_rate_limit", 10)
	v.SetDefault("store.driver", "firebase")
	v.SetDefault("store.namespace", DefaultNamespace)
	v.SetDefault("store.read_timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		v.BindEnv(append([]string{key}, names...)...)
	}
}

// Load reads Settings from v. It does not validate them; call Validate once
// at startup.
func Load(v *viper.Viper) *Settings {
	s := &Settings{
		Server: ServerSettings{
			Host:            v.GetString("server.host"),
			Port:            v.GetInt("server.port"),
			BaseURL:         v.GetString("server.base_url"),
			CORSOrigins:     v.GetStringSlice("server.cors_origins"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Auth: AuthSettings{
			Secret:         v.GetString("auth.secret"),
			SessionTTL:     v.GetDuration("auth.session_ttl"),
			LoginRateLimit: v.GetInt("auth.login_rate_limit"),
		},
		Firebase: FirebaseSettings{
			APIKey:          v.GetString("firebase.api_key"),
			DatabaseURL:     v.GetString("firebase.database_url"),
			CredentialsFile: v.GetString("firebase.credentials_file"),
		},
		Store: StoreSettings{
			Driver:      v.GetString("store.driver"),
			DSN:         v.GetString("store.dsn"),
			Namespace:   v.GetString("store.namespace"),
			ReadTimeout: v.GetDuration("store.read_timeout"),
		},
		Log: LogSettings{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if s.Server.BaseURL == "" {
		if platform := v.GetString("platform.url"); platform != "" {
			s.Server.BaseURL = "https://" + platform
		}
	}
	if s.Auth.SessionTTL <= 0 {
		s.Auth.SessionTTL = DefaultSessionTTL
	}
	if s.Store.Namespace == "" {
		s.Store.Namespace = DefaultNamespace
	}
	return s
}

// Validate checks the settings a server needs before it accepts traffic. A
// missing signing secret is fatal. A missing base URL or database API key is
// logged; the latter makes every API key listing fail with a configuration
// error.
func (s *Settings) Validate(logger *slog.Logger) error {
	if s.Auth.Secret == "" {
		return ErrMissingSecret
	}

	if s.Server.BaseURL == "" {
		s.Server.BaseURL = fmt.Sprintf("http://%s:%d", s.Server.Host, s.Server.Port)
		logger.Warn("base URL is not configured, falling back to listen address",
			"base_url", s.Server.BaseURL)
	}
	if s.Firebase.APIKey == "" {
		logger.Warn("firebase api key is not configured, API key listing will fail")
	}

	return s.ValidateStore()
}

// ValidateStore checks that the selected datastore backend has the settings
// it needs to connect.
func (s *Settings) ValidateStore() error {
	switch s.Store.Driver {
	case "firebase":
		if s.Firebase.DatabaseURL == "" {
			return fmt.Errorf("store.driver is firebase but firebase.database_url is empty")
		}
	case "sqlite", "postgres", "pgx", "mysql":
		if s.Store.DSN == "" {
			return fmt.Errorf("store.driver is %s but store.dsn is empty", s.Store.Driver)
		}
	default:
		return fmt.Errorf("unsupported store.driver %q", s.Store.Driver)
	}
	return nil
}

// LogLevel parses Log.Level, defaulting to info.
func (s *Settings) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}
