package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/metagrid-dev/metagrid/internal/storage/postgres"
)

// UserStore defines the user metadata operations required by UserHandler.
type UserStore interface {
	SetAvatar(ctx context.Context, accountID, avatarID string) error
	MetadataBulk(ctx context.Context, userIDs []string) ([]postgres.UserMetadata, error)
	ListAvatars(ctx context.Context) ([]postgres.Avatar, error)
}

// UserHandler serves avatar selection and metadata lookups.
type UserHandler struct {
	users  UserStore
	logger *zap.Logger
}

// NewUserHandler creates a UserHandler backed by the given store.
func NewUserHandler(users UserStore, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type setAvatarRequest struct {
	AvatarID string `json:"avatarId"`
}

// SetAvatar handles POST /user/metadata. Unknown avatars get 400.
func (h *UserHandler) SetAvatar(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req setAvatarRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.AvatarID == "" {
		writeError(w, http.StatusBadRequest, "avatarId is required")
		return
	}

	err := h.users.SetAvatar(r.Context(), identity.UserID, req.AvatarID)
	if err != nil {
		if errors.Is(err, postgres.ErrAvatarNotFound) {
			writeError(w, http.StatusBadRequest, "unknown avatar")
			return
		}
		h.logger.Error("setting avatar", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "updated"})
}

type avatarView struct {
	ID       string `json:"id"`
	ImageURL string `json:"imageUrl"`
	Name     string `json:"name"`
}

// ListAvatars handles GET /avatars.
func (h *UserHandler) ListAvatars(w http.ResponseWriter, r *http.Request) {
	avatars, err := h.users.ListAvatars(r.Context())
	if err != nil {
		h.logger.Error("listing avatars", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]avatarView, 0, len(avatars))
	for _, a := range avatars {
		out = append(out, avatarView{ID: a.ID, ImageURL: a.ImageURL, Name: a.Name})
	}
	writeJSON(w, http.StatusOK, map[string]any{"avatars": out})
}

type metadataView struct {
	UserID   string `json:"userId"`
	AvatarID string `json:"avatarId"`
	ImageURL string `json:"imageUrl"`
}

// MetadataBulk handles GET /user/metadata/bulk?ids=["a","b"]. The ids
// parameter is a JSON array of user ids.
func (h *UserHandler) MetadataBulk(w http.ResponseWriter, r *http.Request) {
	ids, err := parseIDList(r.URL.Query().Get("ids"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ids parameter")
		return
	}

	metadata, err := h.users.MetadataBulk(r.Context(), ids)
	if err != nil {
		h.logger.Error("loading metadata", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]metadataView, 0, len(metadata))
	for _, m := range metadata {
		out = append(out, metadataView{UserID: m.UserID, AvatarID: m.AvatarID, ImageURL: m.ImageURL})
	}
	writeJSON(w, http.StatusOK, map[string]any{"avatars": out})
}

// parseIDList parses the bulk ids query parameter, accepting either a
// JSON array or a comma-separated list.
func parseIDList(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if strings.HasPrefix(raw, "[") {
		var ids []string
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			return nil, err
		}
		return ids, nil
	}
	return strings.Split(raw, ","), nil
}
