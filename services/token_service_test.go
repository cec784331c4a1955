package services_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/24HeuresINSA/OverRun-backend/common/errors"
	"github.com/24HeuresINSA/OverRun-backend/models"
	"github.com/24HeuresINSA/OverRun-backend/services"
)

func TestGenerateTokenPair_Claims(t *testing.T) {
	tokens := testTokens()
	user := &models.User{
		ID:       uuid.New(),
		Username: "orga",
		Admin:    &models.Admin{ID: uuid.New(), Active: true},
	}

	issued, err := tokens.GenerateTokenPair(user)
	require.NoError(t, err)

	claims, err := tokens.ValidateToken(issued.Pair.AccessToken, services.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims["sub"])
	assert.Equal(t, "orga", claims["username"])
	assert.Equal(t, models.RoleAdmin, claims["role"])
	assert.Equal(t, user.Admin.ID.String(), claims["admin_id"])
	assert.NotContains(t, claims, "athlete_id")

	refresh, err := tokens.ValidateToken(issued.Pair.RefreshToken, services.TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, issued.Refresh.TokenID, refresh["jti"])
	assert.Equal(t, user.ID, issued.Refresh.UserID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), issued.Refresh.ExpiresAt, 5*time.Second)

	id, err := services.SubjectID(claims)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
}

func TestValidateToken_Rejects(t *testing.T) {
	tokens := testTokens()
	issued, err := tokens.GenerateTokenPair(&models.User{ID: uuid.New(), Username: "a"})
	require.NoError(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": uuid.NewString(),
		"typ": services.TokenTypeAccess,
		"exp": time.Now().Add(-time.Minute).Unix(),
	})
	expiredStr, err := expired.SignedString([]byte("access-secret"))
	require.NoError(t, err)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": uuid.NewString(),
		"typ": services.TokenTypeAccess,
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	forgedStr, err := forged.SignedString([]byte("someone-else"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		typ   string
		want  *apperrors.Error
	}{
		{"refresh used as access", issued.Pair.RefreshToken, services.TokenTypeAccess, apperrors.ErrInvalidToken},
		{"access used as refresh", issued.Pair.AccessToken, services.TokenTypeRefresh, apperrors.ErrInvalidToken},
		{"expired", expiredStr, services.TokenTypeAccess, apperrors.ErrTokenExpired},
		{"wrong secret", forgedStr, services.TokenTypeAccess, apperrors.ErrInvalidToken},
		{"garbage", "abc.def.ghi", services.TokenTypeAccess, apperrors.ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tokens.ValidateToken(tt.token, tt.typ)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
