package handlers

import (
	"net/http"

	"github.com/metagrid-dev/metagrid/internal/auth"
)

// NewRouter assembles the /api/v1 HTTP API from the individual
// handlers, applying auth and admin middleware per route.
func NewRouter(
	verifier auth.TokenVerifier,
	authH *AuthHandler,
	adminH *AdminHandler,
	spaceH *SpaceHandler,
	userH *UserHandler,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/signup", authH.Signup)
	mux.HandleFunc("POST /api/v1/signin", authH.Signin)

	mux.HandleFunc("GET /api/v1/avatars", userH.ListAvatars)
	mux.HandleFunc("GET /api/v1/user/metadata/bulk", userH.MetadataBulk)
	mux.HandleFunc("POST /api/v1/user/metadata", requireAuth(verifier, userH.SetAvatar))

	mux.HandleFunc("POST /api/v1/admin/element", requireAuth(verifier, requireAdmin(adminH.CreateElement)))
	mux.HandleFunc("PUT /api/v1/admin/element/{id}", requireAuth(verifier, requireAdmin(adminH.UpdateElement)))
	mux.HandleFunc("POST /api/v1/admin/avatar", requireAuth(verifier, requireAdmin(adminH.CreateAvatar)))
	mux.HandleFunc("POST /api/v1/admin/map", requireAuth(verifier, requireAdmin(adminH.CreateMap)))

	mux.HandleFunc("POST /api/v1/space", requireAuth(verifier, spaceH.CreateSpace))
	mux.HandleFunc("GET /api/v1/space/all", requireAuth(verifier, spaceH.ListSpaces))
	mux.HandleFunc("GET /api/v1/space/{id}", requireAuth(verifier, spaceH.GetSpace))
	mux.HandleFunc("DELETE /api/v1/space/{id}", requireAuth(verifier, spaceH.DeleteSpace))

	return mux
}
