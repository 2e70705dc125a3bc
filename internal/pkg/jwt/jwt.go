package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/frontandrew/parkpos/internal/domain"
)

// issuer - издатель токенов кассы
const issuer = "parkpos"

// TokenType различает access и refresh токены
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// Claims содержит payload JWT токена оператора
type Claims struct {
	Username string              `json:"username"`
	Role     domain.OperatorRole `json:"role"`
	Type     TokenType           `json:"typ"`
	jwt.RegisteredClaims
}

// TokenService управляет созданием и валидацией JWT токенов
type TokenService struct {
	secretKey     string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	now           func() time.Time
}

// TokenPair содержит access и refresh токены
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// NewTokenService создает новый сервис для работы с токенами
func NewTokenService(secretKey string, accessExpiry, refreshExpiry time.Duration) *TokenService {
	return &TokenService{
		secretKey:     secretKey,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		now:           time.Now,
	}
}

// GenerateTokenPair генерирует пару access и refresh токенов для оператора
func (ts *TokenService) GenerateTokenPair(op *domain.Operator) (*TokenPair, error) {
	accessToken, expiresAt, err := ts.generateToken(op, AccessToken, ts.accessExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, _, err := ts.generateToken(op, RefreshToken, ts.refreshExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

func (ts *TokenService) generateToken(op *domain.Operator, typ TokenType, expiry time.Duration) (string, time.Time, error) {
	now := ts.now()
	expiresAt := now.Add(expiry)

	claims := &Claims{
		Username: op.Username,
		Role:     op.Role,
		Type:     typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   op.Username,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(ts.secretKey))
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// ValidateToken валидирует access токен и возвращает claims
func (ts *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	return ts.validate(tokenString, AccessToken)
}

// ValidateRefreshToken валидирует refresh токен
func (ts *TokenService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return ts.validate(tokenString, RefreshToken)
}

func (ts *TokenService) validate(tokenString string, want TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(ts.secretKey), nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(ts.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}

	// refresh токен не принимается вместо access и наоборот
	if claims.Type != want {
		return nil, domain.ErrInvalidToken
	}

	return claims, nil
}
