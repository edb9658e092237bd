package handler

import (
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/keydash/keydash/internal/apperr"
	"github.com/keydash/keydash/internal/model"
	"github.com/keydash/keydash/internal/server/middleware"
	"github.com/keydash/keydash/internal/service"
)

// SessionHandler serves credential sign-in and the stateless session
// endpoints built on top of it.
type SessionHandler struct {
	authSvc      *service.AuthService
	secureCookie bool
	logger       *slog.Logger
}

// NewSessionHandler creates a SessionHandler. secureCookie marks the session
// cookie Secure and should be set when the public base URL is https.
func NewSessionHandler(authSvc *service.AuthService, secureCookie bool, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		authSvc:      authSvc,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// Login validates a username/password pair and issues a session token, both
// in the body and as an HttpOnly cookie. JSON and form-encoded bodies are
// accepted.
// POST /api/auth/session
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	creds, err := readCredentials(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	identity, err := h.authSvc.Authorize(r.Context(), creds)
	if err != nil {
		kind := apperr.KindOf(err)
		if kind == apperr.Internal {
			h.logger.Error("sign-in failed", "error", err, "request_id", middleware.GetRequestID(r.Context()))
		}
		writeError(w, apperr.Status(kind), apperr.Message(err, service.MsgServerError))
		return
	}

	token, expires, err := h.authSvc.IssueToken(r.Context(), *identity)
	if err != nil {
		h.logger.Error("issue session token", "error", err, "request_id", middleware.GetRequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, service.MsgServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(h.authSvc.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, model.SessionResponse{
		Token:     token,
		TokenType: "bearer",
		ExpiresIn: int(h.authSvc.TTL().Seconds()),
		User:      *identity,
	})
}

// Session reports the identity carried by the caller's token. A caller
// without a valid session gets an empty object.
// GET /api/auth/session
func (h *SessionHandler) Session(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())
	if sess == nil {
		writeJSON(w, http.StatusOK, model.SessionInfo{})
		return
	}

	id, _ := sess.UserID()
	writeJSON(w, http.StatusOK, model.SessionInfo{
		User:    &model.Identity{ID: id, Username: sess.Username},
		Expires: sess.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Logout clears the session cookie. Tokens are stateless, so a copy held
// elsewhere stays valid until it expires.
// DELETE /api/auth/session
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// maxCredentialsBody caps the sign-in request body.
const maxCredentialsBody = 64 << 10

func readCredentials(w http.ResponseWriter, r *http.Request) (service.Credentials, error) {
	var creds service.Credentials
	r.Body = http.MaxBytesReader(w, r.Body, maxCredentialsBody)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data" {
		if err := r.ParseForm(); err != nil {
			return creds, err
		}
		creds.Username = r.PostForm.Get("username")
		creds.Password = r.PostForm.Get("password")
		return creds, nil
	}
	err := readJSON(r, &creds)
	return creds, err
}
