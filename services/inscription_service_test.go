package services_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/24HeuresINSA/OverRun-backend/models"
	"github.com/24HeuresINSA/OverRun-backend/services"
)

func TestCreateInscription(t *testing.T) {
	athleteID := uuid.New()
	race := &models.Race{ID: uuid.New(), Name: "10km"}

	t.Run("creates a pending inscription", func(t *testing.T) {
		eds := newMockEditionRepo(race)
		svc := services.NewInscriptionService(&mockInscriptionRepo{findErr: gorm.ErrRecordNotFound}, eds, zap.NewNop())

		ins, svcErr := svc.CreateInscription(context.Background(), athletePrincipal(athleteID),
			&models.CreateInscriptionRequest{RaceID: race.ID})

		require.Nil(t, svcErr)
		assert.Equal(t, models.InscriptionStatusPending, ins.Status)
		assert.Equal(t, eds.edition.ID, ins.EditionID)
		assert.Equal(t, athleteID, ins.AthleteID)
	})

	t.Run("already registered", func(t *testing.T) {
		existing := &models.Inscription{ID: uuid.New(), AthleteID: athleteID}
		svc := services.NewInscriptionService(&mockInscriptionRepo{inscription: existing}, newMockEditionRepo(race), zap.NewNop())

		_, svcErr := svc.CreateInscription(context.Background(), athletePrincipal(athleteID),
			&models.CreateInscriptionRequest{RaceID: race.ID})

		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusConflict, svcErr.StatusCode)
	})

	t.Run("registrations closed", func(t *testing.T) {
		eds := newMockEditionRepo(race)
		eds.edition.RegistrationEndDate = time.Now().Add(-time.Hour)
		svc := services.NewInscriptionService(&mockInscriptionRepo{findErr: gorm.ErrRecordNotFound}, eds, zap.NewNop())

		_, svcErr := svc.CreateInscription(context.Background(), athletePrincipal(athleteID),
			&models.CreateInscriptionRequest{RaceID: race.ID})

		require.NotNil(t, svcErr)
		assert.Equal(t, "Registrations are closed.", svcErr.Message)
	})

	t.Run("no active edition", func(t *testing.T) {
		eds := newMockEditionRepo(race)
		eds.edition = nil
		svc := services.NewInscriptionService(&mockInscriptionRepo{}, eds, zap.NewNop())

		_, svcErr := svc.CreateInscription(context.Background(), athletePrincipal(athleteID),
			&models.CreateInscriptionRequest{RaceID: race.ID})

		require.NotNil(t, svcErr)
		assert.Equal(t, "Edition is not active.", svcErr.Message)
	})

	t.Run("admin without athlete profile", func(t *testing.T) {
		svc := services.NewInscriptionService(&mockInscriptionRepo{}, newMockEditionRepo(race), zap.NewNop())

		_, svcErr := svc.CreateInscription(context.Background(), adminPrincipal(),
			&models.CreateInscriptionRequest{RaceID: race.ID})

		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
	})
}

func TestCancelInscription(t *testing.T) {
	owner := uuid.New()
	teamID := uuid.New()

	tests := []struct {
		name        string
		inscription *models.Inscription
		principal   *models.Principal
		status      int
	}{
		{
			name:        "stranger",
			inscription: &models.Inscription{ID: uuid.New(), AthleteID: owner, Status: models.InscriptionStatusPending},
			principal:   athletePrincipal(uuid.New()),
			status:      http.StatusForbidden,
		},
		{
			name:        "still in a team",
			inscription: &models.Inscription{ID: uuid.New(), AthleteID: owner, TeamID: &teamID, Status: models.InscriptionStatusPending},
			principal:   athletePrincipal(owner),
			status:      http.StatusConflict,
		},
		{
			name: "already paid",
			inscription: &models.Inscription{ID: uuid.New(), AthleteID: owner, Status: models.InscriptionStatusValidated,
				Payment: &models.Payment{Status: models.PaymentStatusValidated}},
			principal: athletePrincipal(owner),
			status:    http.StatusConflict,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := services.NewInscriptionService(&mockInscriptionRepo{inscription: tt.inscription}, newMockEditionRepo(), zap.NewNop())

			_, svcErr := svc.CancelInscription(context.Background(), tt.principal, tt.inscription.ID)

			require.NotNil(t, svcErr)
			assert.Equal(t, tt.status, svcErr.StatusCode)
		})
	}

	t.Run("owner cancels", func(t *testing.T) {
		ins := &models.Inscription{ID: uuid.New(), AthleteID: owner, Status: models.InscriptionStatusPending}
		svc := services.NewInscriptionService(&mockInscriptionRepo{inscription: ins}, newMockEditionRepo(), zap.NewNop())

		got, svcErr := svc.CancelInscription(context.Background(), athletePrincipal(owner), ins.ID)

		require.Nil(t, svcErr)
		assert.Equal(t, models.InscriptionStatusCancelled, got.Status)
	})
}

func TestValidateInscription(t *testing.T) {
	ins := &models.Inscription{ID: uuid.New(), Status: models.InscriptionStatusPending}
	svc := services.NewInscriptionService(&mockInscriptionRepo{inscription: ins}, newMockEditionRepo(), zap.NewNop())

	got, svcErr := svc.ValidateInscription(context.Background(), ins.ID, true)

	require.Nil(t, svcErr)
	assert.Equal(t, models.InscriptionStatusValidated, got.Status)
	assert.True(t, got.Validated)
}
