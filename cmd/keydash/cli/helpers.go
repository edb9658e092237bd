package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/keydash/keydash/internal/config"
	"github.com/keydash/keydash/internal/datastore"
	"github.com/keydash/keydash/internal/service"
)

// loadSettings reads the effective settings from viper.
func loadSettings() *config.Settings {
	return config.Load(viper.GetViper())
}

// newLogger builds the process logger from the log settings.
func newLogger(w io.Writer, s *config.Settings, dev bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: s.LogLevel()}
	if dev {
		opts.Level = slog.LevelDebug
	}
	if s.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openTree connects to the datastore selected by store.driver.
func openTree(ctx context.Context, s *config.Settings) (datastore.Tree, error) {
	if err := s.ValidateStore(); err != nil {
		return nil, err
	}
	if s.Store.Driver == "firebase" {
		return datastore.NewFirebase(ctx, datastore.FirebaseConfig{
			DatabaseURL:     s.Firebase.DatabaseURL,
			CredentialsFile: s.Firebase.CredentialsFile,
		})
	}
	return datastore.OpenSQL(s.Store.Driver, s.Store.DSN)
}

// openServices opens the datastore and the services the admin and key
// commands share. The caller closes the returned tree.
func openServices(ctx context.Context) (datastore.Tree, *service.AuthService, *service.APIKeyService, error) {
	s := loadSettings()
	logger := newLogger(os.Stderr, s, false)

	tree, err := openTree(ctx, s)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open datastore: %w", err)
	}
	authSvc := service.NewAuthService(tree, s.Store.Namespace, s.Auth.Secret, s.Auth.SessionTTL, logger).
		WithReadTimeout(s.Store.ReadTimeout)
	keySvc := service.NewAPIKeyService(tree, s.Store.Namespace, s.Store.ReadTimeout, logger)
	return tree, authSvc, keySvc, nil
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
