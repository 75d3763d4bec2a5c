package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/metagrid-dev/metagrid/internal/game/space"
	"github.com/metagrid-dev/metagrid/internal/storage/postgres"
)

// CatalogStore defines the catalog persistence operations required by AdminHandler.
type CatalogStore interface {
	CreateAvatar(ctx context.Context, name, imageURL string) (string, error)
	CreateElement(ctx context.Context, e postgres.Element) (string, error)
	UpdateElement(ctx context.Context, id, imageURL string) error
	CreateMap(ctx context.Context, m postgres.MapTemplate, placements []postgres.MapElement) (string, error)
}

// AdminHandler serves the admin-only catalog endpoints.
type AdminHandler struct {
	catalog CatalogStore
	logger  *zap.Logger
}

// NewAdminHandler creates an AdminHandler backed by the given catalog store.
func NewAdminHandler(catalog CatalogStore, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{catalog: catalog, logger: logger}
}

type createElementRequest struct {
	ImageURL string `json:"imageUrl"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Static   bool   `json:"static"`
}

// CreateElement handles POST /admin/element.
func (h *AdminHandler) CreateElement(w http.ResponseWriter, r *http.Request) {
	var req createElementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ImageURL == "" || req.Width <= 0 || req.Height <= 0 {
		writeError(w, http.StatusBadRequest, "imageUrl and positive dimensions are required")
		return
	}

	id, err := h.catalog.CreateElement(r.Context(), postgres.Element{
		ImageURL: req.ImageURL,
		Width:    req.Width,
		Height:   req.Height,
		Static:   req.Static,
	})
	if err != nil {
		h.logger.Error("creating element", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

type updateElementRequest struct {
	ImageURL string `json:"imageUrl"`
}

// UpdateElement handles PUT /admin/element/{id}.
func (h *AdminHandler) UpdateElement(w http.ResponseWriter, r *http.Request) {
	var req updateElementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ImageURL == "" {
		writeError(w, http.StatusBadRequest, "imageUrl is required")
		return
	}

	err := h.catalog.UpdateElement(r.Context(), r.PathValue("id"), req.ImageURL)
	if err != nil {
		if errors.Is(err, postgres.ErrElementNotFound) {
			writeError(w, http.StatusBadRequest, "unknown element")
			return
		}
		h.logger.Error("updating element", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "updated"})
}

type createAvatarRequest struct {
	ImageURL string `json:"imageUrl"`
	Name     string `json:"name"`
}

// CreateAvatar handles POST /admin/avatar.
func (h *AdminHandler) CreateAvatar(w http.ResponseWriter, r *http.Request) {
	var req createAvatarRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" || req.ImageURL == "" {
		writeError(w, http.StatusBadRequest, "name and imageUrl are required")
		return
	}

	id, err := h.catalog.CreateAvatar(r.Context(), req.Name, req.ImageURL)
	if err != nil {
		h.logger.Error("creating avatar", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"avatarId": id})
}

type createMapRequest struct {
	Thumbnail       string `json:"thumbnail"`
	Dimensions      string `json:"dimensions"`
	Name            string `json:"name"`
	DefaultElements []struct {
		ElementID string `json:"elementId"`
		X         int    `json:"x"`
		Y         int    `json:"y"`
	} `json:"defaultElements"`
}

// CreateMap handles POST /admin/map.
func (h *AdminHandler) CreateMap(w http.ResponseWriter, r *http.Request) {
	var req createMapRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	dim, err := space.ParseDimensions(req.Dimensions)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dimensions")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	placements := make([]postgres.MapElement, 0, len(req.DefaultElements))
	for _, e := range req.DefaultElements {
		placements = append(placements, postgres.MapElement{
			ElementID: e.ElementID,
			X:         e.X,
			Y:         e.Y,
		})
	}

	id, err := h.catalog.CreateMap(r.Context(), postgres.MapTemplate{
		Name:      req.Name,
		Thumbnail: req.Thumbnail,
		Width:     dim.Width,
		Height:    dim.Height,
	}, placements)
	if err != nil {
		if errors.Is(err, postgres.ErrElementNotFound) {
			writeError(w, http.StatusBadRequest, "unknown element")
			return
		}
		h.logger.Error("creating map", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}
