package datastore

import (
	"context"
	"encoding/json"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"
)

// FirebaseConfig holds the settings needed to reach a Firebase Realtime
// Database instance.
type FirebaseConfig struct {
	DatabaseURL     string
	CredentialsFile string
}

// FirebaseTree is a Tree backed by the Firebase Realtime Database.
type FirebaseTree struct {
	client *db.Client
}

// NewFirebase connects to the Realtime Database at cfg.DatabaseURL. When no
// credentials file is configured the client runs unauthenticated and relies on
// the database's security rules.
func NewFirebase(ctx context.Context, cfg FirebaseConfig) (*FirebaseTree, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("firebase: database url is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	} else {
		opts = append(opts, option.WithoutAuthentication())
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{DatabaseURL: cfg.DatabaseURL}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase database client: %w", err)
	}
	return &FirebaseTree{client: client}, nil
}

// Get reads the subtree at path. The Realtime Database answers "null" for
// missing paths, which is reported as ErrNotFound.
func (t *FirebaseTree) Get(ctx context.Context, path string, v any) error {
	var raw json.RawMessage
	if err := t.client.NewRef(path).Get(ctx, &raw); err != nil {
		return fmt.Errorf("firebase get %s: %w", path, err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return ErrNotFound
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (t *FirebaseTree) Set(ctx context.Context, path string, v any) error {
	ref := t.client.NewRef(path)
	if v == nil {
		if err := ref.Delete(ctx); err != nil {
			return fmt.Errorf("firebase delete %s: %w", path, err)
		}
		return nil
	}
	if err := ref.Set(ctx, v); err != nil {
		return fmt.Errorf("firebase set %s: %w", path, err)
	}
	return nil
}

func (t *FirebaseTree) Update(ctx context.Context, path string, fields map[string]any) error {
	if err := t.client.NewRef(path).Update(ctx, fields); err != nil {
		return fmt.Errorf("firebase update %s: %w", path, err)
	}
	return nil
}

// Ping performs a shallow read of the root.
func (t *FirebaseTree) Ping(ctx context.Context) error {
	var keys map[string]any
	if err := t.client.NewRef("/").GetShallow(ctx, &keys); err != nil {
		return fmt.Errorf("firebase ping: %w", err)
	}
	return nil
}

// Close is a no-op; the Firebase client holds no resources that need
// releasing.
func (t *FirebaseTree) Close() error { return nil }
