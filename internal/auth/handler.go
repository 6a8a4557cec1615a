package auth

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Handler serves the login endpoint and supplies the auth middleware.
type Handler struct {
	tokens       *TokenService
	operator     string
	passwordHash []byte
	logger       *zap.Logger
}

// NewHandler creates an auth handler for the configured operator account.
// The password hash must be a bcrypt hash.
func NewHandler(tokens *TokenService, operator string, passwordHash []byte, logger *zap.Logger) *Handler {
	return &Handler{
		tokens:       tokens,
		operator:     operator,
		passwordHash: passwordHash,
		logger:       logger,
	}
}

// RegisterRoutes registers auth routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/auth/login", h.handleLogin)
	mux.HandleFunc("GET /api/v1/auth/session", h.handleSession)
}

// Middleware returns the JWT validation middleware for API routes.
func (h *Handler) Middleware() func(http.Handler) http.Handler {
	return AuthMiddleware(h.tokens)
}

// Tokens exposes the token service so the WebSocket handler can validate
// query-parameter tokens.
func (h *Handler) Tokens() *TokenService {
	return h.tokens
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// handleLogin verifies operator credentials and issues an access token.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAuthError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Compare the hash even on a username mismatch so both failure modes
	// take the same time.
	err := bcrypt.CompareHashAndPassword(h.passwordHash, []byte(req.Password))
	if req.Username != h.operator || err != nil {
		h.logger.Warn("failed login attempt",
			zap.String("username", req.Username),
			zap.String("remote", r.RemoteAddr),
		)
		writeAuthError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.tokens.IssueAccessToken(req.Username)
	if err != nil {
		h.logger.Error("failed to issue access token", zap.Error(err))
		writeAuthError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.tokens.AccessTokenTTL().Seconds()),
	})
}

// handleSession returns the authenticated operator's claims.
func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		writeAuthError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"username":   claims.Username,
		"expires_at": claims.ExpiresAt,
	})
}
