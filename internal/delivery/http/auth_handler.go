package http

import (
	"context"
	"net/http"

	"github.com/frontandrew/parkpos/internal/delivery/http/middleware"
	"github.com/frontandrew/parkpos/internal/pkg/logger"
	"github.com/frontandrew/parkpos/internal/usecase/auth"
)

// AuthService определяет интерфейс для сервиса аутентификации
type AuthService interface {
	Login(ctx context.Context, req *auth.LoginRequest) (*auth.LoginResponse, error)
	Refresh(ctx context.Context, req *auth.RefreshRequest) (*auth.LoginResponse, error)
}

// AuthHandler обрабатывает запросы аутентификации
type AuthHandler struct {
	authService AuthService
	logger      logger.Logger
}

// NewAuthHandler создает новый handler
func NewAuthHandler(authService AuthService, logger logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Login обрабатывает вход оператора
// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	response, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		respondDomainError(w, h.logger, err, "Failed to login")
		return
	}

	respondData(w, http.StatusOK, response)
}

// Refresh обновляет access token используя refresh token
// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req auth.RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	response, err := h.authService.Refresh(r.Context(), &req)
	if err != nil {
		respondDomainError(w, h.logger, err, "Failed to refresh token")
		return
	}

	respondData(w, http.StatusOK, response)
}

// Me возвращает текущего оператора
// GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetOperatorClaims(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"username": claims.Username,
		"role":     claims.Role,
	})
}
