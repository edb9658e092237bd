package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/keydash/keydash/internal/apperr"
	"github.com/keydash/keydash/internal/datastore"
	"github.com/keydash/keydash/internal/model"
)

// User-facing messages. Unknown usernames and wrong passwords share one
// message so the response does not reveal which of the two was wrong.
const (
	MsgCredentialsRequired = "username and password are required"
	MsgNoAdminData         = "no such admin data"
	MsgInvalidCredentials  = "username or password incorrect"
	MsgServerError         = "server error, please try again"
)

var (
	ErrInvalidToken  = errors.New("invalid session token")
	ErrUsernameTaken = errors.New("username already exists")
)

// Credentials is the sign-in payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthService validates admin credentials against the datastore and issues
// and verifies signed session tokens.
type AuthService struct {
	tree        datastore.Tree
	namespace   string
	secret      []byte
	ttl         time.Duration
	readTimeout time.Duration
	logger      *slog.Logger
}

func NewAuthService(tree datastore.Tree, namespace, secret string, ttl time.Duration, logger *slog.Logger) *AuthService {
	return &AuthService{
		tree:        tree,
		namespace:   namespace,
		secret:      []byte(secret),
		ttl:         ttl,
		readTimeout: DefaultReadTimeout,
		logger:      logger,
	}
}

// WithReadTimeout sets the bound on each admin read and returns s. Values
// <= 0 keep the default.
func (s *AuthService) WithReadTimeout(d time.Duration) *AuthService {
	if d > 0 {
		s.readTimeout = d
	}
	return s
}

// TTL returns the validity window of issued tokens.
func (s *AuthService) TTL() time.Duration { return s.ttl }

func (s *AuthService) adminsPath() string {
	return datastore.Join(s.namespace, "admin")
}

// Authorize checks creds against the stored admin records and returns the
// matching identity.
//
// Admin records are scanned linearly, O(n) in the number of admins. Records
// are visited in ascending id order and the first username match wins, so
// duplicate usernames resolve to the lowest id.
func (s *AuthService) Authorize(ctx context.Context, creds Credentials) (*model.Identity, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, apperr.New(apperr.Validation, MsgCredentialsRequired)
	}

	admins, err := s.ListAdmins(ctx)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return nil, apperr.New(apperr.Authentication, MsgNoAdminData)
		}
		s.logger.Error("auth error", "error", err)
		return nil, apperr.Wrap(apperr.Internal, MsgServerError, err)
	}

	var match *model.Admin
	for i := range admins {
		if admins[i].Username == creds.Username {
			match = &admins[i]
			break
		}
	}
	if match == nil {
		return nil, apperr.New(apperr.Authentication, MsgInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(match.PasswordHash), []byte(creds.Password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.Warn("stored password hash is unusable", "admin_id", match.ID, "error", err)
		}
		return nil, apperr.New(apperr.Authentication, MsgInvalidCredentials)
	}

	return &model.Identity{ID: match.ID, Username: match.Username}, nil
}

// ListAdmins returns every admin record sorted by id. Entries that are not
// admin documents are skipped. It returns datastore.ErrNotFound when no admin
// data exists at all.
func (s *AuthService) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	ctx, cancel := context.WithTimeout(ctx, s.readTimeout)
	defer cancel()

	var node json.RawMessage
	if err := s.tree.Get(ctx, s.adminsPath(), &node); err != nil {
		return nil, err
	}
	raw, err := datastore.Children(node)
	if err != nil {
		return nil, fmt.Errorf("read admins: %w", err)
	}

	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	admins := make([]model.Admin, 0, len(ids))
	for _, id := range ids {
		var a model.Admin
		if err := json.Unmarshal(raw[id], &a); err != nil {
			s.logger.Debug("skipping malformed admin record", "admin_id", id, "error", err)
			continue
		}
		a.ID = id
		admins = append(admins, a)
	}
	return admins, nil
}

// CreateAdmin stores a new admin with a bcrypt hash of password. Usernames are
// checked for uniqueness here, at write time.
func (s *AuthService) CreateAdmin(ctx context.Context, username, password string) (*model.Admin, error) {
	if username == "" || password == "" {
		return nil, apperr.New(apperr.Validation, MsgCredentialsRequired)
	}

	admins, err := s.ListAdmins(ctx)
	if err != nil && !errors.Is(err, datastore.ErrNotFound) {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	for _, a := range admins {
		if a.Username == username {
			return nil, ErrUsernameTaken
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	admin := &model.Admin{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Username:     username,
		PasswordHash: string(hash),
	}
	if err := s.tree.Set(ctx, datastore.Join(s.adminsPath(), admin.ID), admin); err != nil {
		return nil, fmt.Errorf("store admin: %w", err)
	}
	return admin, nil
}

// IssueToken signs a session token carrying id and returns it with its expiry.
func (s *AuthService) IssueToken(ctx context.Context, id model.Identity) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(s.ttl)
	claims := sessionClaims{
		UserID:   id.ID,
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			Issuer:    "keydash",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expires, nil
}

// ParseToken verifies a session token and projects its claims back into a
// Session. The id claim is returned as decoded, whatever its JSON type.
func (s *AuthService) ParseToken(ctx context.Context, tokenStr string) (*model.Session, error) {
	claims := &sessionClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	sess := &model.Session{
		ID:       claims.UserID,
		Username: claims.Username,
	}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}

type sessionClaims struct {
	UserID   any    `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}
