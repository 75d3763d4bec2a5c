package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/metagrid-dev/metagrid/internal/storage/postgres"
)

// AccountStore defines the account persistence operations required by AuthHandler.
type AccountStore interface {
	Create(ctx context.Context, username, password, role string) (postgres.Account, error)
	Authenticate(ctx context.Context, username, password string) (postgres.Account, error)
}

// TokenIssuer mints signed tokens for authenticated accounts.
type TokenIssuer interface {
	Issue(userID, role string) (string, error)
}

// AuthHandler serves signup and signin.
type AuthHandler struct {
	accounts AccountStore
	tokens   TokenIssuer
	logger   *zap.Logger
}

// NewAuthHandler creates an AuthHandler backed by the given account store.
//
// Precondition: accounts, tokens, and logger must be non-nil.
func NewAuthHandler(accounts AccountStore, tokens TokenIssuer, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		tokens:   tokens,
		logger:   logger,
	}
}

type signupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"type"`
}

// Signup handles POST /signup. Creates an account and returns its id.
// Duplicate usernames get 409.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	role := req.Role
	if role == "" {
		role = postgres.RoleUser
	}
	if !postgres.ValidRole(role) {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}

	acct, err := h.accounts.Create(r.Context(), req.Username, req.Password, role)
	if err != nil {
		if errors.Is(err, postgres.ErrAccountExists) {
			writeError(w, http.StatusConflict, "username already taken")
			return
		}
		h.logger.Error("creating account", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Info("account created",
		zap.String("user_id", acct.ID),
		zap.String("username", acct.Username),
		zap.String("role", acct.Role),
	)
	writeJSON(w, http.StatusOK, map[string]string{"userId": acct.ID})
}

type signinRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signin handles POST /signin. Verifies credentials and returns a
// signed token. Bad credentials get 403.
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	acct, err := h.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, postgres.ErrAccountNotFound) || errors.Is(err, postgres.ErrInvalidCredentials) {
			writeError(w, http.StatusForbidden, "invalid credentials")
			return
		}
		h.logger.Error("authenticating account", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := h.tokens.Issue(acct.ID, acct.Role)
	if err != nil {
		h.logger.Error("issuing token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
