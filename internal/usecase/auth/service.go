package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/frontandrew/parkpos/internal/domain"
	"github.com/frontandrew/parkpos/internal/pkg/hash"
	"github.com/frontandrew/parkpos/internal/pkg/jwt"
	"github.com/frontandrew/parkpos/internal/pkg/logger"
)

// LoginRequest - запрос на вход
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest - запрос на обновление токенов
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LoginResponse - ответ на вход
type LoginResponse struct {
	Operator     *domain.Operator `json:"operator"`
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	ExpiresAt    string           `json:"expires_at"`
}

// Service содержит бизнес-логику аутентификации оператора
// Учетная запись одна и задается конфигурацией.
type Service struct {
	operator     domain.Operator
	tokenService *jwt.TokenService
	logger       logger.Logger
}

// NewService создает новый экземпляр AuthService
func NewService(
	operator domain.Operator,
	tokenService *jwt.TokenService,
	logger logger.Logger,
) *Service {
	return &Service{
		operator:     operator,
		tokenService: tokenService,
		logger:       logger,
	}
}

// Enabled проверяет, задан ли пароль оператора
// Без пароля API работает без аутентификации.
func (s *Service) Enabled() bool {
	return s.operator.PasswordHash != ""
}

// Login проверяет учетные данные и возвращает JWT токены
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	if !s.Enabled() {
		return nil, domain.ErrInvalidCredentials
	}

	s.logger.Info("Operator login attempt", map[string]interface{}{
		"username": req.Username,
	})

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.operator.Username)) == 1
	// bcrypt проверяем всегда, чтобы время ответа не выдавало имя
	passOK := hash.CheckPassword(s.operator.PasswordHash, req.Password)

	if !userOK || !passOK {
		s.logger.Warn("Login failed: invalid credentials", map[string]interface{}{
			"username": req.Username,
		})
		return nil, domain.ErrInvalidCredentials
	}

	return s.issue(&s.operator)
}

// Refresh выдает новую пару токенов по refresh токену
func (s *Service) Refresh(ctx context.Context, req *RefreshRequest) (*LoginResponse, error) {
	claims, err := s.tokenService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, err
	}

	// Токен выдан другой учетной записи (конфигурация сменилась)
	if claims.Username != s.operator.Username {
		return nil, domain.ErrInvalidToken
	}

	return s.issue(&s.operator)
}

// ValidateToken валидирует access токен и возвращает claims
func (s *Service) ValidateToken(tokenString string) (*jwt.Claims, error) {
	return s.tokenService.ValidateToken(tokenString)
}

func (s *Service) issue(op *domain.Operator) (*LoginResponse, error) {
	pair, err := s.tokenService.GenerateTokenPair(op)
	if err != nil {
		s.logger.Error("Failed to generate tokens", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	s.logger.Info("Operator logged in", map[string]interface{}{
		"username": op.Username,
		"role":     op.Role,
	})

	out := *op
	out.PasswordHash = ""

	return &LoginResponse{
		Operator:     &out,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt.Format(time.RFC3339),
	}, nil
}
