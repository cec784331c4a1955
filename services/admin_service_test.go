package services_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/24HeuresINSA/OverRun-backend/models"
	"github.com/24HeuresINSA/OverRun-backend/services"
)

func TestCreateAdmin(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByID", ctx, userID).Return(&models.User{ID: userID}, nil).Once()
		mockRepo.On("FindAdminByUserID", ctx, userID).Return(nil, gorm.ErrRecordNotFound).Once()
		mockRepo.On("CreateAdmin", ctx, mock.MatchedBy(func(a *models.Admin) bool {
			return a.UserID == userID && a.Active
		})).Return(nil).Once()
		svc := services.NewAdminService(mockRepo, nil, "", 0, zap.NewNop())

		admin, svcErr := svc.CreateAdmin(ctx, &models.CreateAdminRequest{UserID: userID, Active: true})

		require.Nil(t, svcErr)
		assert.Equal(t, userID, admin.UserID)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Already Admin", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByID", ctx, userID).Return(&models.User{ID: userID}, nil).Once()
		mockRepo.On("FindAdminByUserID", ctx, userID).Return(&models.Admin{UserID: userID}, nil).Once()
		svc := services.NewAdminService(mockRepo, nil, "", 0, zap.NewNop())

		_, svcErr := svc.CreateAdmin(ctx, &models.CreateAdminRequest{UserID: userID})

		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusConflict, svcErr.StatusCode)
		mockRepo.AssertNotCalled(t, "CreateAdmin", mock.Anything, mock.Anything)
	})

	t.Run("Unknown User", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByID", ctx, userID).Return(nil, gorm.ErrRecordNotFound).Once()
		svc := services.NewAdminService(mockRepo, nil, "", 0, zap.NewNop())

		_, svcErr := svc.CreateAdmin(ctx, &models.CreateAdminRequest{UserID: userID})

		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusNotFound, svcErr.StatusCode)
	})
}

func TestActivateAdmin(t *testing.T) {
	ctx := context.Background()
	yes, no := true, false

	tests := []struct {
		name    string
		current bool
		active  *bool
		want    bool
	}{
		{"toggle on", false, nil, true},
		{"toggle off", true, nil, false},
		{"explicit on", true, &yes, true},
		{"explicit off", true, &no, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adminID := uuid.New()
			mockRepo := new(MockUserRepository)
			mockRepo.On("FindAdminByID", ctx, adminID).Return(&models.Admin{ID: adminID, Active: tt.current}, nil).Once()
			mockRepo.On("SetAdminActive", ctx, adminID, tt.want).Return(nil).Once()
			svc := services.NewAdminService(mockRepo, nil, "", 0, zap.NewNop())

			admin, svcErr := svc.ActivateAdmin(ctx, adminPrincipal(), adminID, tt.active)

			require.Nil(t, svcErr)
			assert.Equal(t, tt.want, admin.Active)
			mockRepo.AssertExpectations(t)
		})
	}

	t.Run("cannot deactivate self", func(t *testing.T) {
		caller := adminPrincipal()
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindAdminByID", ctx, *caller.AdminID).Return(&models.Admin{ID: *caller.AdminID, Active: true}, nil).Once()
		svc := services.NewAdminService(mockRepo, nil, "", 0, zap.NewNop())

		_, svcErr := svc.ActivateAdmin(ctx, caller, *caller.AdminID, nil)

		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
		mockRepo.AssertNotCalled(t, "SetAdminActive", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestBootstrapAdmin(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	mockRepo.On("CreateWithAdmin", ctx, mock.MatchedBy(func(u *models.User) bool {
		return u.Username == "orga" && u.Email == "orga@example.com" &&
			bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("changeme")) == nil
	}), mock.MatchedBy(func(a *models.Admin) bool { return a.Active })).Return(nil).Once()
	svc := services.NewAdminService(mockRepo, nil, "", 0, zap.NewNop())

	admin, err := svc.Bootstrap(ctx, "orga", " Orga@Example.com ", "changeme")

	require.NoError(t, err)
	assert.True(t, admin.Active)
	assert.Equal(t, "orga", admin.User.Username)
	mockRepo.AssertExpectations(t)
}

func TestDeleteAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("cannot delete self", func(t *testing.T) {
		caller := adminPrincipal()
		mockRepo := new(MockUserRepository)
		svc := services.NewAdminService(mockRepo, nil, "", 0, zap.NewNop())

		svcErr := svc.DeleteAdmin(ctx, caller, *caller.AdminID)

		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
		mockRepo.AssertNotCalled(t, "DeleteAdmin", mock.Anything, mock.Anything)
	})

	t.Run("Success", func(t *testing.T) {
		id := uuid.New()
		mockRepo := new(MockUserRepository)
		mockRepo.On("DeleteAdmin", ctx, id).Return(nil).Once()
		svc := services.NewAdminService(mockRepo, nil, "", 0, zap.NewNop())

		assert.Nil(t, svc.DeleteAdmin(ctx, adminPrincipal(), id))
		mockRepo.AssertExpectations(t)
	})

	t.Run("NotFound", func(t *testing.T) {
		id := uuid.New()
		mockRepo := new(MockUserRepository)
		mockRepo.On("DeleteAdmin", ctx, id).Return(gorm.ErrRecordNotFound).Once()
		svc := services.NewAdminService(mockRepo, nil, "", 0, zap.NewNop())

		svcErr := svc.DeleteAdmin(ctx, adminPrincipal(), id)

		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusNotFound, svcErr.StatusCode)
	})
}

type inviteMailer struct {
	to, subject, body string
	err               error
}

func (m *inviteMailer) SendEmail(_ context.Context, to, subject, body string) error {
	m.to, m.subject, m.body = to, subject, body
	return m.err
}

func TestCreateInvitation(t *testing.T) {
	ctx := context.Background()
	invID := uuid.New()
	assignID := func(args mock.Arguments) { args.Get(1).(*models.AdminInvitation).ID = invID }

	t.Run("existing admin", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByLogin", ctx, "orga@example.com").
			Return(&models.User{ID: uuid.New(), Email: "orga@example.com", Admin: &models.Admin{ID: uuid.New()}}, nil).Once()
		svc := services.NewAdminService(mockRepo, &inviteMailer{}, "https://overrun.example", time.Hour, zap.NewNop())

		_, svcErr := svc.CreateInvitation(ctx, &models.CreateAdminInvitationRequest{Email: "Orga@Example.com"})

		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusConflict, svcErr.StatusCode)
		mockRepo.AssertNotCalled(t, "CreateAdminInvitation", mock.Anything, mock.Anything)
	})

	t.Run("new email gets a link", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByLogin", ctx, "marie@example.com").Return(nil, gorm.ErrRecordNotFound).Once()
		mockRepo.On("CreateAdminInvitation", ctx, mock.MatchedBy(func(inv *models.AdminInvitation) bool {
			return inv.Email == "marie@example.com" && inv.TokenHash != "" && inv.UserID == nil
		})).Run(assignID).Return(nil).Once()
		mailer := &inviteMailer{}
		svc := services.NewAdminService(mockRepo, mailer, "https://overrun.example", time.Hour, zap.NewNop())

		inv, svcErr := svc.CreateInvitation(ctx, &models.CreateAdminInvitationRequest{Email: "marie@example.com"})

		require.Nil(t, svcErr)
		assert.Equal(t, "marie@example.com", mailer.to)
		assert.Contains(t, mailer.body, "https://overrun.example/admin/invitation/"+invID.String()+"?token=")
		token := mailer.body[strings.Index(mailer.body, "?token=")+len("?token="):][:64]
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(inv.TokenHash), []byte(token)))
		assert.WithinDuration(t, time.Now().Add(time.Hour), inv.ExpiresAt, time.Minute)
		mockRepo.AssertExpectations(t)
	})

	t.Run("existing user is linked", func(t *testing.T) {
		userID := uuid.New()
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByLogin", ctx, "jeanne@example.com").Return(&models.User{ID: userID, Email: "jeanne@example.com"}, nil).Once()
		mockRepo.On("CreateAdminInvitation", ctx, mock.MatchedBy(func(inv *models.AdminInvitation) bool {
			return inv.UserID != nil && *inv.UserID == userID
		})).Run(assignID).Return(nil).Once()
		svc := services.NewAdminService(mockRepo, &inviteMailer{}, "https://overrun.example", time.Hour, zap.NewNop())

		_, svcErr := svc.CreateInvitation(ctx, &models.CreateAdminInvitationRequest{Email: "jeanne@example.com"})

		require.Nil(t, svcErr)
		mockRepo.AssertExpectations(t)
	})

	t.Run("unsent invitation is dropped", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByLogin", ctx, "marie@example.com").Return(nil, gorm.ErrRecordNotFound).Once()
		mockRepo.On("CreateAdminInvitation", ctx, mock.Anything).Run(assignID).Return(nil).Once()
		mockRepo.On("DeleteAdminInvitation", ctx, invID).Return(nil).Once()
		svc := services.NewAdminService(mockRepo, &inviteMailer{err: errors.New("smtp down")}, "https://overrun.example", time.Hour, zap.NewNop())

		_, svcErr := svc.CreateInvitation(ctx, &models.CreateAdminInvitationRequest{Email: "marie@example.com"})

		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusInternalServerError, svcErr.StatusCode)
		mockRepo.AssertExpectations(t)
	})

	t.Run("duplicate invitation", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByLogin", ctx, "marie@example.com").Return(nil, gorm.ErrRecordNotFound).Once()
		mockRepo.On("CreateAdminInvitation", ctx, mock.Anything).Return(gorm.ErrDuplicatedKey).Once()
		mailer := &inviteMailer{}
		svc := services.NewAdminService(mockRepo, mailer, "https://overrun.example", time.Hour, zap.NewNop())

		_, svcErr := svc.CreateInvitation(ctx, &models.CreateAdminInvitationRequest{Email: "marie@example.com"})

		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusConflict, svcErr.StatusCode)
		assert.Empty(t, mailer.to)
	})
}

func TestAcceptInvitation(t *testing.T) {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("the-token"), bcrypt.MinCost)
	require.NoError(t, err)
	invitation := func(userID *uuid.UUID, expires time.Time) *models.AdminInvitation {
		return &models.AdminInvitation{ID: uuid.New(), Email: "marie@example.com", TokenHash: string(hash), ExpiresAt: expires, UserID: userID}
	}

	t.Run("invalid token", func(t *testing.T) {
		inv := invitation(nil, time.Now().Add(time.Hour))
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindAdminInvitation", ctx, inv.ID).Return(inv, nil).Once()
		svc := services.NewAdminService(mockRepo, nil, "", 0, zap.NewNop())

		_, svcErr := svc.AcceptInvitation(ctx, inv.ID, &models.AcceptAdminInvitationRequest{Token: "wrong"})

		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusForbidden, svcErr.StatusCode)
	})

	t.Run("expired", func(t *testing.T) {
		inv := invitation(nil, time.Now().Add(-time.Minute))
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindAdminInvitation", ctx, inv.ID).Return(inv, nil).Once()
		svc := services.NewAdminService(mockRepo, nil, "", 0, zap.NewNop())

		_, svcErr := svc.AcceptInvitation(ctx, inv.ID, &models.AcceptAdminInvitationRequest{Token: "the-token"})

		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
		assert.Equal(t, "Token has expired.", svcErr.Message)
	})

	t.Run("existing user", func(t *testing.T) {
		userID := uuid.New()
		inv := invitation(&userID, time.Now().Add(time.Hour))
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindAdminInvitation", ctx, inv.ID).Return(inv, nil).Once()
		mockRepo.On("AcceptAdminInvitation", ctx, inv.ID, (*models.User)(nil), mock.MatchedBy(func(a *models.Admin) bool {
			return a.UserID == userID && a.Active
		})).Return(nil).Once()
		svc := services.NewAdminService(mockRepo, nil, "", 0, zap.NewNop())

		admin, svcErr := svc.AcceptInvitation(ctx, inv.ID, &models.AcceptAdminInvitationRequest{Token: "the-token"})

		require.Nil(t, svcErr)
		assert.True(t, admin.Active)
		mockRepo.AssertExpectations(t)
	})

	t.Run("new user needs credentials", func(t *testing.T) {
		inv := invitation(nil, time.Now().Add(time.Hour))
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindAdminInvitation", ctx, inv.ID).Return(inv, nil).Once()
		svc := services.NewAdminService(mockRepo, nil, "", 0, zap.NewNop())

		_, svcErr := svc.AcceptInvitation(ctx, inv.ID, &models.AcceptAdminInvitationRequest{Token: "the-token"})

		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
		mockRepo.AssertNotCalled(t, "AcceptAdminInvitation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("new user", func(t *testing.T) {
		inv := invitation(nil, time.Now().Add(time.Hour))
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindAdminInvitation", ctx, inv.ID).Return(inv, nil).Once()
		mockRepo.On("AcceptAdminInvitation", ctx, inv.ID, mock.MatchedBy(func(u *models.User) bool {
			return u != nil && u.Username == "marie" && u.Email == "marie@example.com" &&
				bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("long enough")) == nil
		}), mock.Anything).Return(nil).Once()
		svc := services.NewAdminService(mockRepo, nil, "", 0, zap.NewNop())

		admin, svcErr := svc.AcceptInvitation(ctx, inv.ID, &models.AcceptAdminInvitationRequest{
			Token: "the-token", Username: " marie ", Password: "long enough",
		})

		require.Nil(t, svcErr)
		require.NotNil(t, admin.User)
		assert.Equal(t, "marie", admin.User.Username)
		mockRepo.AssertExpectations(t)
	})

	t.Run("already used", func(t *testing.T) {
		id := uuid.New()
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindAdminInvitation", ctx, id).Return(nil, gorm.ErrRecordNotFound).Once()
		svc := services.NewAdminService(mockRepo, nil, "", 0, zap.NewNop())

		_, svcErr := svc.AcceptInvitation(ctx, id, &models.AcceptAdminInvitationRequest{Token: "the-token"})

		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusNotFound, svcErr.StatusCode)
	})
}
