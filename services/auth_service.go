package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/24HeuresINSA/OverRun-backend/common/errors"
	"github.com/24HeuresINSA/OverRun-backend/models"
	"github.com/24HeuresINSA/OverRun-backend/repository"
)

// AuthService handles login, token rotation and request authentication.
type AuthService interface {
	Login(ctx context.Context, req *models.LoginRequest) (*models.TokenPair, *ServiceError)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, *ServiceError)
	Logout(ctx context.Context, refreshToken string) *ServiceError
	Me(ctx context.Context, principal *models.Principal) (*models.User, *ServiceError)
	Authenticate(ctx context.Context, accessToken string) (*models.Principal, *ServiceError)
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

type authServiceImpl struct {
	users  repository.UserRepository
	tokens ITokenService
	logger *zap.Logger
}

func NewAuthService(users repository.UserRepository, tokens ITokenService, logger *zap.Logger) AuthService {
	return &authServiceImpl{users: users, tokens: tokens, logger: logger}
}

func (s *authServiceImpl) Login(ctx context.Context, req *models.LoginRequest) (*models.TokenPair, *ServiceError) {
	user, err := s.users.FindByLogin(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, fromApp(apperrors.ErrInvalidCredentials)
		}
		s.logger.Error("Failed to load user", zap.Error(err))
		return nil, internal()
	}
	if !checkPassword(user.Password, req.Password) {
		return nil, fromApp(apperrors.ErrInvalidCredentials)
	}

	issued, err := s.tokens.GenerateTokenPair(user)
	if err != nil {
		s.logger.Error("Failed to sign tokens", zap.Error(err))
		return nil, internal()
	}
	if err := s.users.SaveRefreshToken(ctx, issued.Refresh); err != nil {
		s.logger.Error("Failed to store refresh token", zap.Error(err))
		return nil, internal()
	}

	s.logger.Info("User logged in", zap.String("user_id", user.ID.String()))
	return issued.Pair, nil
}

// Refresh exchanges a refresh token for a new pair. The old refresh token
// is consumed, so replaying it fails.
func (s *authServiceImpl) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, *ServiceError) {
	claims, err := s.tokens.ValidateToken(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, newError(http.StatusUnauthorized, "Invalid refresh token.")
	}
	userID, err := SubjectID(claims)
	if err != nil {
		return nil, newError(http.StatusUnauthorized, "Invalid refresh token.")
	}
	tokenID, _ := claims["jti"].(string)
	if tokenID == "" {
		return nil, newError(http.StatusUnauthorized, "Invalid refresh token.")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, newError(http.StatusUnauthorized, "Invalid refresh token.")
		}
		s.logger.Error("Failed to load user", zap.Error(err))
		return nil, internal()
	}

	issued, err := s.tokens.GenerateTokenPair(user)
	if err != nil {
		s.logger.Error("Failed to sign tokens", zap.Error(err))
		return nil, internal()
	}
	if err := s.users.RotateRefreshToken(ctx, tokenID, issued.Refresh); err != nil {
		if apperrors.IsNotFound(err) {
			s.logger.Warn("Refresh token reused or revoked", zap.String("user_id", userID.String()))
			return nil, newError(http.StatusUnauthorized, "Invalid refresh token.")
		}
		s.logger.Error("Failed to rotate refresh token", zap.Error(err))
		return nil, internal()
	}
	return issued.Pair, nil
}

func (s *authServiceImpl) Logout(ctx context.Context, refreshToken string) *ServiceError {
	claims, err := s.tokens.ValidateToken(refreshToken, TokenTypeRefresh)
	if err != nil {
		return newError(http.StatusUnauthorized, "Invalid refresh token.")
	}
	tokenID, _ := claims["jti"].(string)
	if err := s.users.DeleteRefreshToken(ctx, tokenID); err != nil {
		if apperrors.IsNotFound(err) {
			return newError(http.StatusUnauthorized, "Invalid refresh token.")
		}
		s.logger.Error("Failed to delete refresh token", zap.Error(err))
		return internal()
	}
	return nil
}

func (s *authServiceImpl) Me(ctx context.Context, principal *models.Principal) (*models.User, *ServiceError) {
	user, err := s.users.FindByID(ctx, principal.UserID)
	if err != nil {
		return nil, dbError(err, "User not found.", "")
	}
	return user, nil
}

// Authenticate validates an access token and resolves the caller's roles
// from the database, so revoked admins lose access immediately.
func (s *authServiceImpl) Authenticate(ctx context.Context, accessToken string) (*models.Principal, *ServiceError) {
	claims, err := s.tokens.ValidateToken(accessToken, TokenTypeAccess)
	if err != nil {
		s.logger.Debug("Access token rejected",
			zap.Bool("expired", errors.Is(err, apperrors.ErrTokenExpired)),
			zap.Error(err),
		)
		return nil, forbidden()
	}
	userID, err := SubjectID(claims)
	if err != nil {
		return nil, forbidden()
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, forbidden()
		}
		s.logger.Error("Failed to resolve principal", zap.Error(err))
		return nil, internal()
	}
	return principalOf(user), nil
}

func (s *authServiceImpl) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.users.DeleteExpiredRefreshTokens(ctx, time.Now())
}

func principalOf(user *models.User) *models.Principal {
	p := &models.Principal{UserID: user.ID, Roles: []string{models.RoleAuthenticatedUser}}
	if user.Athlete != nil {
		id := user.Athlete.ID
		p.AthleteID = &id
	}
	if user.Admin != nil {
		id := user.Admin.ID
		p.AdminID = &id
		p.Roles = append(p.Roles, models.RoleAdmin)
		if user.Admin.Active {
			p.Roles = append(p.Roles, models.RoleActiveAdmin)
		}
	}
	return p
}

// hashPassword is shared by user and team passwords.
func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
