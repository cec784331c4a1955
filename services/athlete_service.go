package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/24HeuresINSA/OverRun-backend/models"
	"github.com/24HeuresINSA/OverRun-backend/repository"
)

const dateLayout = "2006-01-02"

// AthleteService manages athlete accounts and profiles.
type AthleteService interface {
	Signup(ctx context.Context, req *models.SignupRequest) (*models.Athlete, *ServiceError)
	GetMe(ctx context.Context, principal *models.Principal) (*models.Athlete, *ServiceError)
	UpdateMe(ctx context.Context, principal *models.Principal, req *models.UpdateAthleteRequest) (*models.Athlete, *ServiceError)
	ListAthletes(ctx context.Context, q repository.ListQuery) (*models.Page[models.Athlete], *ServiceError)
	GetAthlete(ctx context.Context, id uuid.UUID) (*models.Athlete, *ServiceError)
	UpdateAthlete(ctx context.Context, principal *models.Principal, id uuid.UUID, req *models.UpdateAthleteRequest) (*models.Athlete, *ServiceError)
	DeleteAthlete(ctx context.Context, id uuid.UUID) *ServiceError
}

type athleteServiceImpl struct {
	users  repository.UserRepository
	logger *zap.Logger
}

func NewAthleteService(users repository.UserRepository, logger *zap.Logger) AthleteService {
	return &athleteServiceImpl{users: users, logger: logger}
}

// Signup creates the user and its athlete profile together.
func (s *athleteServiceImpl) Signup(ctx context.Context, req *models.SignupRequest) (*models.Athlete, *ServiceError) {
	dob, err := time.Parse(dateLayout, req.DateOfBirth)
	if err != nil {
		return nil, badRequest("dateOfBirth must be formatted as YYYY-MM-DD")
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		return nil, internal()
	}

	user := &models.User{
		Username: strings.TrimSpace(req.Username),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Password: hash,
	}
	athlete := &models.Athlete{
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		DateOfBirth: dob,
		Sex:         req.Sex,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
		ZipCode:     req.ZipCode,
		City:        req.City,
		Country:     req.Country,
	}
	if err := s.users.CreateWithAthlete(ctx, user, athlete); err != nil {
		return nil, dbError(err, "", "Email or username already exists.")
	}

	athlete.User = user
	s.logger.Info("Athlete signed up", zap.String("user_id", user.ID.String()))
	return athlete, nil
}

func (s *athleteServiceImpl) GetMe(ctx context.Context, principal *models.Principal) (*models.Athlete, *ServiceError) {
	athlete, err := s.users.FindAthleteByUserID(ctx, principal.UserID)
	if err != nil {
		return nil, dbError(err, "Athlete not found.", "")
	}
	return athlete, nil
}

func (s *athleteServiceImpl) UpdateMe(ctx context.Context, principal *models.Principal, req *models.UpdateAthleteRequest) (*models.Athlete, *ServiceError) {
	athlete, svcErr := s.GetMe(ctx, principal)
	if svcErr != nil {
		return nil, svcErr
	}
	return s.update(ctx, athlete, req)
}

// UpdateAthlete lets admins edit any profile and athletes only their own.
func (s *athleteServiceImpl) UpdateAthlete(ctx context.Context, principal *models.Principal, id uuid.UUID, req *models.UpdateAthleteRequest) (*models.Athlete, *ServiceError) {
	if !principal.IsAdmin() && !principal.Owns(id) {
		return nil, forbidden()
	}
	athlete, svcErr := s.GetAthlete(ctx, id)
	if svcErr != nil {
		return nil, svcErr
	}
	return s.update(ctx, athlete, req)
}

func (s *athleteServiceImpl) update(ctx context.Context, athlete *models.Athlete, req *models.UpdateAthleteRequest) (*models.Athlete, *ServiceError) {
	if req.DateOfBirth != nil {
		dob, err := time.Parse(dateLayout, *req.DateOfBirth)
		if err != nil {
			return nil, badRequest("dateOfBirth must be formatted as YYYY-MM-DD")
		}
		athlete.DateOfBirth = dob
	}
	setString(&athlete.FirstName, req.FirstName)
	setString(&athlete.LastName, req.LastName)
	setString(&athlete.Sex, req.Sex)
	setString(&athlete.PhoneNumber, req.PhoneNumber)
	setString(&athlete.Address, req.Address)
	setString(&athlete.ZipCode, req.ZipCode)
	setString(&athlete.City, req.City)
	setString(&athlete.Country, req.Country)

	if err := s.users.UpdateAthlete(ctx, athlete); err != nil {
		s.logger.Error("Failed to update athlete", zap.String("athlete_id", athlete.ID.String()), zap.Error(err))
		return nil, internal()
	}
	return athlete, nil
}

func (s *athleteServiceImpl) ListAthletes(ctx context.Context, q repository.ListQuery) (*models.Page[models.Athlete], *ServiceError) {
	athletes, err := s.users.ListAthletes(ctx, q)
	if err != nil {
		s.logger.Error("Failed to list athletes", zap.Error(err))
		return nil, internal()
	}
	page := repository.NewPage(athletes, q)
	return &page, nil
}

func (s *athleteServiceImpl) GetAthlete(ctx context.Context, id uuid.UUID) (*models.Athlete, *ServiceError) {
	athlete, err := s.users.FindAthleteByID(ctx, id)
	if err != nil {
		return nil, dbError(err, "Athlete not found.", "")
	}
	return athlete, nil
}

// DeleteAthlete removes the profile and, unless it is also an admin, the
// user account behind it. Athletes with inscriptions cannot be deleted.
func (s *athleteServiceImpl) DeleteAthlete(ctx context.Context, id uuid.UUID) *ServiceError {
	if err := s.users.DeleteAthlete(ctx, id); err != nil {
		return dbError(err, "Athlete not found.", "Athlete still has inscriptions.")
	}
	s.logger.Info("Athlete deleted", zap.String("athlete_id", id.String()))
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
