package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/24HeuresINSA/OverRun-backend/common/errors"
	"github.com/24HeuresINSA/OverRun-backend/models"
	"github.com/24HeuresINSA/OverRun-backend/repository"
)

// InscriptionService manages race registrations.
type InscriptionService interface {
	CreateInscription(ctx context.Context, principal *models.Principal, req *models.CreateInscriptionRequest) (*models.Inscription, *ServiceError)
	GetInscription(ctx context.Context, id uuid.UUID) (*models.Inscription, *ServiceError)
	ListInscriptions(ctx context.Context, q repository.ListQuery) (*models.Page[models.Inscription], *ServiceError)
	MyInscriptions(ctx context.Context, principal *models.Principal) ([]models.Inscription, *ServiceError)
	ValidateInscription(ctx context.Context, id uuid.UUID, validated bool) (*models.Inscription, *ServiceError)
	CancelInscription(ctx context.Context, principal *models.Principal, id uuid.UUID) (*models.Inscription, *ServiceError)
}

type inscriptionServiceImpl struct {
	repo     repository.InscriptionRepository
	editions repository.EditionRepository
	logger   *zap.Logger
}

func NewInscriptionService(repo repository.InscriptionRepository, editions repository.EditionRepository, logger *zap.Logger) InscriptionService {
	return &inscriptionServiceImpl{repo: repo, editions: editions, logger: logger}
}

// openRace loads the active edition and checks raceID belongs to it and
// registrations are open.
func openRace(ctx context.Context, editions repository.EditionRepository, raceID uuid.UUID) (*models.Edition, *models.Race, *ServiceError) {
	edition, err := editions.FindActive(ctx)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil, badRequest("Edition is not active.")
		}
		return nil, nil, internal()
	}
	now := time.Now()
	if now.Before(edition.RegistrationStartDate) || now.After(edition.RegistrationEndDate) {
		return nil, nil, badRequest("Registrations are closed.")
	}

	race, err := editions.FindRaceByID(ctx, raceID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil, badRequest("Wrong race selection.")
		}
		return nil, nil, internal()
	}
	if race.EditionID != edition.ID {
		return nil, nil, badRequest("Wrong race selection.")
	}
	return edition, race, nil
}

func (s *inscriptionServiceImpl) CreateInscription(ctx context.Context, principal *models.Principal, req *models.CreateInscriptionRequest) (*models.Inscription, *ServiceError) {
	if principal.AthleteID == nil {
		return nil, badRequest("Only athletes can register.")
	}
	edition, race, svcErr := openRace(ctx, s.editions, req.RaceID)
	if svcErr != nil {
		return nil, svcErr
	}

	if _, err := s.repo.FindActive(ctx, *principal.AthleteID, edition.ID); err == nil {
		return nil, conflict("Athlete already registered for this edition.")
	} else if !apperrors.IsNotFound(err) {
		s.logger.Error("Failed to check existing inscription", zap.Error(err))
		return nil, internal()
	}

	if race.MaxParticipants > 0 {
		count, err := s.repo.CountActiveByRace(ctx, race.ID)
		if err != nil {
			s.logger.Error("Failed to count race inscriptions", zap.Error(err))
			return nil, internal()
		}
		if count >= int64(race.MaxParticipants) {
			return nil, conflict("Race is full.")
		}
	}

	inscription := &models.Inscription{
		AthleteID: *principal.AthleteID,
		EditionID: edition.ID,
		RaceID:    race.ID,
		Status:    models.InscriptionStatusPending,
	}
	if err := s.repo.Create(ctx, inscription); err != nil {
		return nil, dbError(err, "", "Athlete already registered for this edition.")
	}

	s.logger.Info("Inscription created",
		zap.String("inscription_id", inscription.ID.String()),
		zap.String("race_id", race.ID.String()),
	)
	inscription.Race = race
	return inscription, nil
}

func (s *inscriptionServiceImpl) GetInscription(ctx context.Context, id uuid.UUID) (*models.Inscription, *ServiceError) {
	inscription, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, dbError(err, "Inscription not found", "")
	}
	return inscription, nil
}

func (s *inscriptionServiceImpl) ListInscriptions(ctx context.Context, q repository.ListQuery) (*models.Page[models.Inscription], *ServiceError) {
	inscriptions, err := s.repo.List(ctx, q)
	if err != nil {
		s.logger.Error("Failed to list inscriptions", zap.Error(err))
		return nil, internal()
	}
	page := repository.NewPage(inscriptions, q)
	return &page, nil
}

func (s *inscriptionServiceImpl) MyInscriptions(ctx context.Context, principal *models.Principal) ([]models.Inscription, *ServiceError) {
	if principal.AthleteID == nil {
		return nil, notFound("Athlete not found.")
	}
	inscriptions, err := s.repo.ListByAthlete(ctx, *principal.AthleteID)
	if err != nil {
		s.logger.Error("Failed to list athlete inscriptions", zap.Error(err))
		return nil, internal()
	}
	if inscriptions == nil {
		inscriptions = []models.Inscription{}
	}
	return inscriptions, nil
}

func (s *inscriptionServiceImpl) ValidateInscription(ctx context.Context, id uuid.UUID, validated bool) (*models.Inscription, *ServiceError) {
	inscription, svcErr := s.GetInscription(ctx, id)
	if svcErr != nil {
		return nil, svcErr
	}
	if inscription.Status == models.InscriptionStatusCancelled {
		return nil, conflict("Inscription is cancelled.")
	}

	status := models.InscriptionStatusPending
	if validated {
		status = models.InscriptionStatusValidated
	}
	if err := s.repo.UpdateStatus(ctx, id, status, validated); err != nil {
		return nil, dbError(err, "Inscription not found", "")
	}
	inscription.Status = status
	inscription.Validated = validated
	return inscription, nil
}

// CancelInscription cancels the caller's own inscription. Team members must
// leave their team first.
func (s *inscriptionServiceImpl) CancelInscription(ctx context.Context, principal *models.Principal, id uuid.UUID) (*models.Inscription, *ServiceError) {
	inscription, svcErr := s.GetInscription(ctx, id)
	if svcErr != nil {
		return nil, svcErr
	}
	if !principal.IsAdmin() && !principal.Owns(inscription.AthleteID) {
		return nil, forbidden()
	}
	if inscription.Status == models.InscriptionStatusCancelled {
		return inscription, nil
	}
	if inscription.TeamID != nil {
		return nil, conflict("Leave your team before cancelling.")
	}
	if inscription.Payment != nil && inscription.Payment.Status == models.PaymentStatusValidated {
		return nil, conflict("Inscription is already paid, contact an admin for a refund.")
	}

	if err := s.repo.UpdateStatus(ctx, id, models.InscriptionStatusCancelled, false); err != nil {
		return nil, dbError(err, "Inscription not found", "")
	}
	inscription.Status = models.InscriptionStatusCancelled
	inscription.Validated = false
	return inscription, nil
}
