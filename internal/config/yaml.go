package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of keydash.yaml. Its keys match the viper keys
// read by Load.
type File struct {
	Server   ServerFile   `yaml:"server"`
	Auth     AuthFile     `yaml:"auth"`
	Firebase FirebaseFile `yaml:"firebase"`
	Store    StoreFile    `yaml:"store"`
	Log      LogFile      `yaml:"log"`
}

type ServerFile struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	BaseURL         string   `yaml:"base_url"`
	CORSOrigins     []string `yaml:"cors_origins"`
	ShutdownTimeout string   `yaml:"shutdown_timeout"`
}

type AuthFile struct {
	Secret         string `yaml:"secret"`
	SessionTTL     string `yaml:"session_ttl"`
	LoginRateLimit int    `yaml:"login_rate_limit"`
}

type FirebaseFile struct {
	APIKey          string `yaml:"api_key"`
	DatabaseURL     string `yaml:"database_url"`
	CredentialsFile string `yaml:"credentials_file"`
}

type StoreFile struct {
	Driver      string `yaml:"driver"`
	DSN         string `yaml:"dsn"`
	Namespace   string `yaml:"namespace"`
	ReadTimeout string `yaml:"read_timeout"`
}

type LogFile struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const fileHeader = `# keydash configuration
# Secrets are better supplied through the environment:
#   KEYDASH_AUTH_SECRET (or NEXTAUTH_SECRET)
#   KEYDASH_FIREBASE_API_KEY (or NEXT_PUBLIC_FIREBASE_API_KEY)
`

// DefaultFile returns a File pre-filled with the defaults SetDefaults
// registers.
func DefaultFile() *File {
	return &File{
		Server: ServerFile{
			Host:            "0.0.0.0",
			Port:            8080,
			CORSOrigins:     []string{},
			ShutdownTimeout: "30s",
		},
		Auth: AuthFile{
			SessionTTL:     DefaultSessionTTL.String(),
			LoginRateLimit: 10,
		},
		Store: StoreFile{
			Driver:      "firebase",
			Namespace:   DefaultNamespace,
			ReadTimeout: "10s",
		},
		Log: LogFile{
			Level:  "info",
			Format: "text",
		},
	}
}

// FileFromSettings converts effective settings back into file form. Secrets
// are masked unless reveal is set.
func FileFromSettings(s *Settings, reveal bool) *File {
	mask := func(v string) string {
		if v == "" || reveal {
			return v
		}
		return "********"
	}
	return &File{
		Server: ServerFile{
			Host:            s.Server.Host,
			Port:            s.Server.Port,
			BaseURL:         s.Server.BaseURL,
			CORSOrigins:     s.Server.CORSOrigins,
			ShutdownTimeout: s.Server.ShutdownTimeout.String(),
		},
		Auth: AuthFile{
			Secret:         mask(s.Auth.Secret),
			SessionTTL:     s.Auth.SessionTTL.String(),
			LoginRateLimit: s.Auth.LoginRateLimit,
		},
		Firebase: FirebaseFile{
			APIKey:          mask(s.Firebase.APIKey),
			DatabaseURL:     s.Firebase.DatabaseURL,
			CredentialsFile: s.Firebase.CredentialsFile,
		},
		Store: StoreFile{
			Driver:      s.Store.Driver,
			DSN:         mask(s.Store.DSN),
			Namespace:   s.Store.Namespace,
			ReadTimeout: s.Store.ReadTimeout.String(),
		},
		Log: LogFile{
			Level:  s.Log.Level,
			Format: s.Log.Format,
		},
	}
}

// Marshal renders f as YAML.
func (f *File) Marshal() ([]byte, error) {
	return yaml.Marshal(f)
}

// WriteDefaultFile writes the default configuration to path.
func WriteDefaultFile(path string) error {
	data, err := DefaultFile().Marshal()
	if err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}
	return os.WriteFile(path, append([]byte(fileHeader), data...), 0644)
}
