package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidClaims = errors.New("invalid token claims")
)

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret        string
	Expiry        time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

// Claims represents JWT claims
type Claims struct {
	UserID       uint   `json:"user_id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	TokenType    string `json:"token_type"`    // "access" or "refresh"
	TokenVersion int    `json:"token_version"` // For invalidating all tokens
	SessionID    string `json:"sid,omitempty"` // Shared by every token of one login
	jwt.RegisteredClaims
}

// JWTManager handles JWT token operations
type JWTManager struct {
	config JWTConfig
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(config JWTConfig) *JWTManager {
	return &JWTManager{
		config: config,
	}
}

// Token types carried in Claims.TokenType
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenPair is what login, registration and refresh hand back to clients
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"` // seconds until the access token expires
}

// RefreshExpiry is the lifetime of refresh tokens. No token of a session
// outlives the session's last refresh by more than this.
func (j *JWTManager) RefreshExpiry() time.Duration {
	return j.config.RefreshExpiry
}

// GeneratePair issues a fresh access/refresh pair for a new session
func (j *JWTManager) GeneratePair(userID uint, email string, role string, tokenVersion int) (*TokenPair, error) {
	return j.GenerateSessionPair(uuid.New().String(), userID, email, role, tokenVersion)
}

// GenerateSessionPair issues a pair that belongs to an existing session, so
// revoking the session id revokes both tokens.
func (j *JWTManager) GenerateSessionPair(sessionID string, userID uint, email string, role string, tokenVersion int) (*TokenPair, error) {
	access, err := j.generate(TokenTypeAccess, j.config.Expiry, sessionID, userID, email, role, tokenVersion)
	if err != nil {
		return nil, err
	}
	refresh, err := j.generate(TokenTypeRefresh, j.config.RefreshExpiry, sessionID, userID, email, role, tokenVersion)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(j.config.Expiry.Seconds()),
	}, nil
}

func (j *JWTManager) generate(tokenType string, ttl time.Duration, sessionID string, userID uint, email string, role string, tokenVersion int) (string, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		UserID:       userID,
		Email:        email,
		Role:         role,
		TokenType:    tokenType,
		TokenVersion: tokenVersion,
		SessionID:    sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    j.config.Issuer,
			Subject:   email,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.config.Secret))
}

// ValidateToken validates a JWT token and returns claims
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(j.config.Secret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}

	return claims, nil
}
