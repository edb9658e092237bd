package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/keydash/keydash/internal/datastore"
	"github.com/keydash/keydash/internal/model"
)

// ErrUnknownAdmin is returned when writing keys for an id with no admin record.
var ErrUnknownAdmin = errors.New("admin not found")

// DefaultReadTimeout bounds a single datastore read when none is configured.
const DefaultReadTimeout = 10 * time.Second

// APIKeyService reads and writes the API keys stored under each admin.
type APIKeyService struct {
	tree        datastore.Tree
	namespace   string
	readTimeout time.Duration
	logger      *slog.Logger
}

func NewAPIKeyService(tree datastore.Tree, namespace string, readTimeout time.Duration, logger *slog.Logger) *APIKeyService {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	return &APIKeyService{
		tree:        tree,
		namespace:   namespace,
		readTimeout: readTimeout,
		logger:      logger,
	}
}

func (s *APIKeyService) keysPath(userID string) string {
	return datastore.Join(s.namespace, "admin", userID, "apikeys")
}

// List returns the API keys of userID sorted by id. A user with no keys gets
// an empty, non-nil slice.
func (s *APIKeyService) List(ctx context.Context, userID string) ([]model.APIKey, error) {
	ctx, cancel := context.WithTimeout(ctx, s.readTimeout)
	defer cancel()

	var node json.RawMessage
	if err := s.tree.Get(ctx, s.keysPath(userID), &node); err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return []model.APIKey{}, nil
		}
		return nil, fmt.Errorf("read api keys of %s: %w", userID, err)
	}
	raw, err := datastore.Children(node)
	if err != nil {
		return nil, fmt.Errorf("read api keys of %s: %w", userID, err)
	}

	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	keys := make([]model.APIKey, 0, len(ids))
	for _, id := range ids {
		var stored model.StoredAPIKey
		if err := json.Unmarshal(raw[id], &stored); err != nil {
			s.logger.Warn("skipping malformed api key record", "user_id", userID, "key_id", id, "error", err)
			continue
		}
		keys = append(keys, stored.ToAPIKey(id))
	}
	return keys, nil
}

// Create generates a new random key for userID and stores it as active.
func (s *APIKeyService) Create(ctx context.Context, userID string) (*model.APIKey, error) {
	var admin model.Admin
	if err := s.tree.Get(ctx, datastore.Join(s.namespace, "admin", userID), &admin); err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return nil, ErrUnknownAdmin
		}
		return nil, fmt.Errorf("read admin %s: %w", userID, err)
	}

	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return nil, fmt.Errorf("generate random key: %w", err)
	}

	active := true
	id := uuid.Must(uuid.NewV7()).String()
	stored := model.StoredAPIKey{
		Key:       "sk_" + hex.EncodeToString(randomBytes),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Active:    &active,
	}
	if err := s.tree.Set(ctx, datastore.Join(s.keysPath(userID), id), stored); err != nil {
		return nil, fmt.Errorf("store api key: %w", err)
	}

	key := stored.ToAPIKey(id)
	return &key, nil
}

// SetActive flips the active flag of one key.
func (s *APIKeyService) SetActive(ctx context.Context, userID, keyID string, active bool) error {
	path := datastore.Join(s.keysPath(userID), keyID)

	var stored model.StoredAPIKey
	if err := s.tree.Get(ctx, path, &stored); err != nil {
		return fmt.Errorf("read api key %s: %w", keyID, err)
	}
	if err := s.tree.Update(ctx, path, map[string]any{"active": active}); err != nil {
		return fmt.Errorf("update api key %s: %w", keyID, err)
	}
	return nil
}
