package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/metagrid-dev/metagrid/internal/game/space"
	"github.com/metagrid-dev/metagrid/internal/storage/postgres"
)

// SpaceStore defines the space persistence operations required by SpaceHandler.
type SpaceStore interface {
	CreateSpace(ctx context.Context, ownerID, name string, dim space.Dimensions) (string, error)
	CreateSpaceFromMap(ctx context.Context, ownerID, name, mapID string) (string, error)
	DeleteSpace(ctx context.Context, spaceID, callerID string) error
	ListByOwner(ctx context.Context, ownerID string) ([]postgres.SpaceRecord, error)
	GetSpaceDetail(ctx context.Context, spaceID string) (postgres.SpaceRecord, []postgres.SpaceElement, error)
}

// SpaceHandler serves the space CRUD endpoints.
type SpaceHandler struct {
	spaces SpaceStore
	logger *zap.Logger
}

// NewSpaceHandler creates a SpaceHandler backed by the given space store.
func NewSpaceHandler(spaces SpaceStore, logger *zap.Logger) *SpaceHandler {
	return &SpaceHandler{spaces: spaces, logger: logger}
}

type createSpaceRequest struct {
	Name       string `json:"name"`
	Dimensions string `json:"dimensions"`
	MapID      string `json:"mapId"`
}

// CreateSpace handles POST /space. With a mapId the space inherits the
// map's dimensions and default elements; otherwise dimensions are
// required and the space starts empty.
func (h *SpaceHandler) CreateSpace(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req createSpaceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	var (
		id  string
		err error
	)
	if req.MapID != "" {
		id, err = h.spaces.CreateSpaceFromMap(r.Context(), identity.UserID, req.Name, req.MapID)
	} else {
		var dim space.Dimensions
		dim, err = space.ParseDimensions(req.Dimensions)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid dimensions")
			return
		}
		id, err = h.spaces.CreateSpace(r.Context(), identity.UserID, req.Name, dim)
	}
	if err != nil {
		if errors.Is(err, postgres.ErrMapNotFound) {
			writeError(w, http.StatusBadRequest, "unknown map")
			return
		}
		h.logger.Error("creating space", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Info("space created",
		zap.String("space_id", id),
		zap.String("owner_id", identity.UserID),
	)
	writeJSON(w, http.StatusOK, map[string]string{"spaceId": id})
}

// DeleteSpace handles DELETE /space/{id}. Only the owner may delete.
func (h *SpaceHandler) DeleteSpace(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	err := h.spaces.DeleteSpace(r.Context(), r.PathValue("id"), identity.UserID)
	if err != nil {
		switch {
		case errors.Is(err, space.ErrSpaceNotFound):
			writeError(w, http.StatusBadRequest, "unknown space")
		case errors.Is(err, postgres.ErrNotOwner):
			writeError(w, http.StatusForbidden, "not the space owner")
		default:
			h.logger.Error("deleting space", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

type spaceSummary struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Dimensions string  `json:"dimensions"`
	Thumbnail  *string `json:"thumbnail"`
}

// ListSpaces handles GET /space/all, returning the caller's spaces.
func (h *SpaceHandler) ListSpaces(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	records, err := h.spaces.ListByOwner(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("listing spaces", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]spaceSummary, 0, len(records))
	for _, rec := range records {
		out = append(out, spaceSummary{
			ID:         rec.ID,
			Name:       rec.Name,
			Dimensions: fmt.Sprintf("%dx%d", rec.Width, rec.Height),
			Thumbnail:  rec.Thumbnail,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"spaces": out})
}

type spaceElementView struct {
	ID      string `json:"id"`
	Element struct {
		ID       string `json:"id"`
		ImageURL string `json:"imageUrl"`
		Width    int    `json:"width"`
		Height   int    `json:"height"`
		Static   bool   `json:"static"`
	} `json:"element"`
	X int `json:"x"`
	Y int `json:"y"`
}

// GetSpace handles GET /space/{id}, returning dimensions and placed
// elements. Unknown ids get 400.
func (h *SpaceHandler) GetSpace(w http.ResponseWriter, r *http.Request) {
	rec, elements, err := h.spaces.GetSpaceDetail(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, space.ErrSpaceNotFound) {
			writeError(w, http.StatusBadRequest, "unknown space")
			return
		}
		h.logger.Error("loading space", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	views := make([]spaceElementView, 0, len(elements))
	for _, e := range elements {
		var v spaceElementView
		v.ID = e.ID
		v.Element.ID = e.ElementID
		v.Element.ImageURL = e.ImageURL
		v.Element.Width = e.Width
		v.Element.Height = e.Height
		v.Element.Static = e.Static
		v.X = e.X
		v.Y = e.Y
		views = append(views, v)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"dimensions": fmt.Sprintf("%dx%d", rec.Width, rec.Height),
		"elements":   views,
	})
}
