package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	apperrors "github.com/24HeuresINSA/OverRun-backend/common/errors"
	"github.com/24HeuresINSA/OverRun-backend/models"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// IssuedTokens is a freshly signed token pair plus the refresh token record
// to persist.
type IssuedTokens struct {
	Pair    *models.TokenPair
	Refresh *models.RefreshToken
}

// ITokenService creates and validates JWTs.
type ITokenService interface {
	GenerateTokenPair(user *models.User) (*IssuedTokens, error)
	ValidateToken(tokenStr, expectedType string) (jwt.MapClaims, error)
}

// TokenService signs access and refresh tokens with separate HS256 secrets.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// GenerateTokenPair creates a new access and refresh token pair for user.
// The Athlete and Admin associations are read when loaded.
func (s *TokenService) GenerateTokenPair(user *models.User) (*IssuedTokens, error) {
	now := time.Now()
	pair := &models.TokenPair{UserID: user.ID.String()}

	access := jwt.MapClaims{
		"sub":      user.ID.String(),
		"username": user.Username,
		"role":     models.RoleAuthenticatedUser,
		"typ":      TokenTypeAccess,
		"iat":      now.Unix(),
		"exp":      now.Add(s.accessTTL).Unix(),
	}
	if user.Athlete != nil {
		pair.AthleteID = user.Athlete.ID.String()
		access["athlete_id"] = pair.AthleteID
	}
	if user.Admin != nil {
		pair.AdminID = user.Admin.ID.String()
		access["admin_id"] = pair.AdminID
		access["role"] = models.RoleAdmin
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, access).SignedString(s.accessSecret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	tokenID := uuid.NewString()
	expiresAt := now.Add(s.refreshTTL)
	refresh := jwt.MapClaims{
		"sub": user.ID.String(),
		"typ": TokenTypeRefresh,
		"jti": tokenID,
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refresh).SignedString(s.refreshSecret)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	pair.AccessToken = accessToken
	pair.RefreshToken = refreshToken
	return &IssuedTokens{
		Pair: pair,
		Refresh: &models.RefreshToken{
			TokenID:   tokenID,
			UserID:    user.ID,
			ExpiresAt: expiresAt,
		},
	}, nil
}

// ValidateToken parses tokenStr with the secret of expectedType and checks
// its typ claim. Failures wrap ErrTokenExpired or ErrInvalidToken.
func (s *TokenService) ValidateToken(tokenStr, expectedType string) (jwt.MapClaims, error) {
	secret := s.accessSecret
	if expectedType == TokenTypeRefresh {
		secret = s.refreshSecret
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.Wrap(apperrors.ErrTokenExpired, err)
		}
		return nil, apperrors.Wrap(apperrors.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, apperrors.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperrors.Wrap(apperrors.ErrInvalidToken, fmt.Errorf("unexpected claims type"))
	}
	if typ, ok := claims["typ"].(string); !ok || typ != expectedType {
		return nil, apperrors.Wrap(apperrors.ErrInvalidToken, fmt.Errorf("token type %q, want %q", typ, expectedType))
	}
	return claims, nil
}

// SubjectID extracts the user ID from the sub claim.
func SubjectID(claims jwt.MapClaims) (uuid.UUID, error) {
	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("sub claim is missing")
	}
	return uuid.Parse(sub)
}
