package handler

import (
	"log/slog"
	"net/http"

	"github.com/keydash/keydash/internal/model"
	"github.com/keydash/keydash/internal/server/middleware"
	"github.com/keydash/keydash/internal/service"
)

// Response messages of the API key listing endpoint.
const (
	MsgConfigMissing = "Firebase configuration missing"
	MsgUnauthorized  = "Unauthorized"
	MsgInvalidUserID = "Invalid user ID"
	MsgLoadFailed    = "Gagal memuat API keys"
)

// APIKeyHandler lists the API keys of the signed-in admin.
type APIKeyHandler struct {
	keys       *service.APIKeyService
	configured bool
	logger     *slog.Logger
}

// NewAPIKeyHandler creates an APIKeyHandler. The database API key is checked
// here, once; when it is empty every request fails with a configuration
// error.
func NewAPIKeyHandler(keys *service.APIKeyService, firebaseAPIKey string, logger *slog.Logger) *APIKeyHandler {
	return &APIKeyHandler{
		keys:       keys,
		configured: firebaseAPIKey != "",
		logger:     logger,
	}
}

// List returns the caller's API keys. The datastore path is built from the
// session's user id only.
// GET /api/apikeys
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	if !h.configured {
		h.logger.Error("missing firebase api key", "request_id", reqID)
		writeError(w, http.StatusInternalServerError, MsgConfigMissing)
		return
	}

	sess := middleware.GetSession(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, MsgUnauthorized)
		return
	}

	userID, ok := sess.UserID()
	if !ok {
		h.logger.Warn("invalid user id in session", "user_id", sess.ID, "request_id", reqID)
		writeError(w, http.StatusBadRequest, MsgInvalidUserID)
		return
	}

	h.logger.Debug("fetching api keys", "user_id", userID, "request_id", reqID)
	keys, err := h.keys.List(r.Context(), userID)
	if err != nil {
		h.logger.Error("error fetching api keys", "user_id", userID, "error", err, "request_id", reqID)
		writeError(w, http.StatusInternalServerError, MsgLoadFailed)
		return
	}

	writeJSON(w, http.StatusOK, model.APIKeyListResponse{
		Success: true,
		APIKeys: keys,
	})
}
