package services

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/24HeuresINSA/OverRun-backend/common/errors"
	"github.com/24HeuresINSA/OverRun-backend/models"
	"github.com/24HeuresINSA/OverRun-backend/repository"
)

// TeamService manages teams, their members and their admins.
type TeamService interface {
	CreateTeam(ctx context.Context, principal *models.Principal, req *models.CreateTeamRequest) (*models.Team, *ServiceError)
	JoinTeam(ctx context.Context, principal *models.Principal, teamID uuid.UUID, req *models.JoinTeamRequest) (*models.Inscription, *ServiceError)
	LeaveTeam(ctx context.Context, principal *models.Principal, teamID uuid.UUID) *ServiceError
	AddTeamAdmin(ctx context.Context, principal *models.Principal, teamID, inscriptionID uuid.UUID) *ServiceError
	RemoveTeamAdmin(ctx context.Context, principal *models.Principal, teamID, inscriptionID uuid.UUID) *ServiceError
	RemoveTeamMember(ctx context.Context, principal *models.Principal, teamID, inscriptionID uuid.UUID) *ServiceError
	UpdateTeamPassword(ctx context.Context, principal *models.Principal, teamID uuid.UUID, req *models.UpdateTeamPasswordRequest) *ServiceError
	GetTeam(ctx context.Context, teamID uuid.UUID) (*models.Team, *ServiceError)
	ListTeams(ctx context.Context, q repository.ListQuery) (*models.Page[models.Team], *ServiceError)
	ListTeamsLight(ctx context.Context, q repository.ListQuery) (*models.Page[models.TeamLight], *ServiceError)
	DeleteTeam(ctx context.Context, teamID uuid.UUID) *ServiceError
}

type teamServiceImpl struct {
	repo         repository.TeamRepository
	inscriptions repository.InscriptionRepository
	editions     repository.EditionRepository
	logger       *zap.Logger
}

func NewTeamService(repo repository.TeamRepository, inscriptions repository.InscriptionRepository, editions repository.EditionRepository, logger *zap.Logger) TeamService {
	return &teamServiceImpl{repo: repo, inscriptions: inscriptions, editions: editions, logger: logger}
}

// activeInscription returns the caller's non-cancelled inscription in the
// edition, or nil when there is none.
func (s *teamServiceImpl) activeInscription(ctx context.Context, athleteID, editionID uuid.UUID) (*models.Inscription, *ServiceError) {
	inscription, err := s.inscriptions.FindActive(ctx, athleteID, editionID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil
		}
		s.logger.Error("Failed to load inscription", zap.Error(err))
		return nil, internal()
	}
	return inscription, nil
}

func (s *teamServiceImpl) CreateTeam(ctx context.Context, principal *models.Principal, req *models.CreateTeamRequest) (*models.Team, *ServiceError) {
	if principal.AthleteID == nil {
		return nil, badRequest("Only athletes can create a team.")
	}
	edition, race, svcErr := openRace(ctx, s.editions, req.RaceID)
	if svcErr != nil {
		return nil, svcErr
	}

	if race.MaxTeams > 0 {
		count, err := s.repo.CountByRace(ctx, race.ID)
		if err != nil {
			s.logger.Error("Failed to count race teams", zap.Error(err))
			return nil, internal()
		}
		if count >= int64(race.MaxTeams) {
			return nil, conflict("Race full.")
		}
	}

	inscription, svcErr := s.activeInscription(ctx, *principal.AthleteID, edition.ID)
	if svcErr != nil {
		return nil, svcErr
	}
	if inscription != nil {
		if inscription.TeamID != nil {
			return nil, conflict("Athlete is already a team member.")
		}
		if inscription.RaceID != race.ID {
			return nil, badRequest("Athlete is registered in another race.")
		}
	} else {
		inscription = &models.Inscription{
			AthleteID: *principal.AthleteID,
			EditionID: edition.ID,
			RaceID:    race.ID,
			Status:    models.InscriptionStatusPending,
		}
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		s.logger.Error("Failed to hash team password", zap.Error(err))
		return nil, internal()
	}
	team := &models.Team{
		Name:      req.Name,
		Password:  hash,
		RaceID:    race.ID,
		EditionID: edition.ID,
	}
	if err := s.repo.CreateWithAdmin(ctx, team, inscription); err != nil {
		return nil, dbError(err, "", "Team name already taken.")
	}

	s.logger.Info("Team created",
		zap.String("team_id", team.ID.String()),
		zap.String("race_id", race.ID.String()),
	)
	team.Race = race
	return team, nil
}

func (s *teamServiceImpl) JoinTeam(ctx context.Context, principal *models.Principal, teamID uuid.UUID, req *models.JoinTeamRequest) (*models.Inscription, *ServiceError) {
	if principal.AthleteID == nil {
		return nil, badRequest("Only athletes can join a team.")
	}
	team, err := s.repo.FindByID(ctx, teamID)
	if err != nil {
		return nil, dbError(err, "Team doesn't exist.", "")
	}
	edition, _, svcErr := openRace(ctx, s.editions, team.RaceID)
	if svcErr != nil {
		return nil, svcErr
	}

	if team.Race != nil && team.Race.Category != nil {
		count, err := s.repo.CountMembers(ctx, team.ID)
		if err != nil {
			s.logger.Error("Failed to count team members", zap.Error(err))
			return nil, internal()
		}
		if count >= int64(team.Race.Category.MaxTeamMembers) {
			return nil, conflict("Team is full.")
		}
	}

	if !checkPassword(team.Password, req.Password) {
		return nil, badRequest("Wrong password!")
	}

	inscription, svcErr := s.activeInscription(ctx, *principal.AthleteID, edition.ID)
	if svcErr != nil {
		return nil, svcErr
	}
	if inscription != nil {
		if inscription.TeamID != nil {
			return nil, conflict("Athlete is already in a team")
		}
		if inscription.RaceID != team.RaceID {
			return nil, badRequest("Wrong race. Team race doesn't match athlete race inscription.")
		}
	} else {
		inscription = &models.Inscription{
			AthleteID: *principal.AthleteID,
			EditionID: edition.ID,
			RaceID:    team.RaceID,
			Status:    models.InscriptionStatusPending,
		}
	}

	if err := s.repo.AddMember(ctx, team.ID, inscription); err != nil {
		return nil, dbError(err, "Team doesn't exist.", "Athlete already registered for this edition.")
	}
	s.logger.Info("Athlete joined team",
		zap.String("team_id", team.ID.String()),
		zap.String("inscription_id", inscription.ID.String()),
	)
	return inscription, nil
}

// membership loads the team and the caller's member inscription in it.
func (s *teamServiceImpl) membership(ctx context.Context, principal *models.Principal, teamID uuid.UUID) (*models.Team, *models.Inscription, *ServiceError) {
	team, err := s.repo.FindByID(ctx, teamID)
	if err != nil {
		return nil, nil, dbError(err, "Team doesn't exist.", "")
	}
	if principal.AthleteID == nil {
		return nil, nil, badRequest("Athlete is not a team member")
	}
	for i := range team.Members {
		if team.Members[i].AthleteID == *principal.AthleteID {
			return team, &team.Members[i], nil
		}
	}
	return nil, nil, badRequest("Athlete is not a team member")
}

// teamAdmin loads the team and checks the caller administers it.
func (s *teamServiceImpl) teamAdmin(ctx context.Context, principal *models.Principal, teamID uuid.UUID) (*models.Team, *models.Inscription, *ServiceError) {
	team, self, svcErr := s.membership(ctx, principal, teamID)
	if svcErr != nil {
		return nil, nil, svcErr
	}
	if !isTeamAdmin(team, self.ID) {
		return nil, nil, newError(http.StatusForbidden, "Athlete must be a team admin.")
	}
	return team, self, nil
}

func isTeamAdmin(team *models.Team, inscriptionID uuid.UUID) bool {
	for _, a := range team.Admins {
		if a.InscriptionID == inscriptionID {
			return true
		}
	}
	return false
}

func isTeamMember(team *models.Team, inscriptionID uuid.UUID) bool {
	for _, m := range team.Members {
		if m.ID == inscriptionID {
			return true
		}
	}
	return false
}

// LeaveTeam detaches the caller. When the last admin leaves, the first
// remaining member is promoted; an emptied team is deleted.
func (s *teamServiceImpl) LeaveTeam(ctx context.Context, principal *models.Principal, teamID uuid.UUID) *ServiceError {
	team, self, svcErr := s.membership(ctx, principal, teamID)
	if svcErr != nil {
		return svcErr
	}
	if err := s.repo.RemoveMember(ctx, team.ID, self.ID); err != nil {
		return dbError(err, "Athlete is not a team member", "")
	}

	var remaining []models.Inscription
	for _, m := range team.Members {
		if m.ID != self.ID {
			remaining = append(remaining, m)
		}
	}
	if len(remaining) == 0 {
		if err := s.repo.Delete(ctx, team.ID); err != nil && !apperrors.IsNotFound(err) {
			s.logger.Error("Failed to delete empty team", zap.String("team_id", team.ID.String()), zap.Error(err))
			return internal()
		}
		s.logger.Info("Empty team deleted", zap.String("team_id", team.ID.String()))
		return nil
	}

	admins, err := s.repo.CountAdmins(ctx, team.ID)
	if err != nil {
		s.logger.Error("Failed to count team admins", zap.Error(err))
		return internal()
	}
	if admins == 0 {
		if err := s.repo.AddAdmin(ctx, team.ID, remaining[0].ID); err != nil {
			s.logger.Error("Failed to promote team member", zap.String("team_id", team.ID.String()), zap.Error(err))
			return internal()
		}
		s.logger.Info("Team member promoted",
			zap.String("team_id", team.ID.String()),
			zap.String("inscription_id", remaining[0].ID.String()),
		)
	}
	return nil
}

func (s *teamServiceImpl) AddTeamAdmin(ctx context.Context, principal *models.Principal, teamID, inscriptionID uuid.UUID) *ServiceError {
	team, _, svcErr := s.teamAdmin(ctx, principal, teamID)
	if svcErr != nil {
		return svcErr
	}
	if !isTeamMember(team, inscriptionID) {
		return badRequest("Athlete is not a team member")
	}
	if isTeamAdmin(team, inscriptionID) {
		return conflict("Member is already a team admin.")
	}
	if err := s.repo.AddAdmin(ctx, team.ID, inscriptionID); err != nil {
		return dbError(err, "", "Member is already a team admin.")
	}
	return nil
}

func (s *teamServiceImpl) RemoveTeamAdmin(ctx context.Context, principal *models.Principal, teamID, inscriptionID uuid.UUID) *ServiceError {
	team, self, svcErr := s.teamAdmin(ctx, principal, teamID)
	if svcErr != nil {
		return svcErr
	}
	if self.ID == inscriptionID {
		return badRequest("Admin cannot remove him/herself.")
	}
	if !isTeamAdmin(team, inscriptionID) {
		return badRequest("Athlete is not an Admin.")
	}
	if err := s.repo.RemoveAdmin(ctx, team.ID, inscriptionID); err != nil {
		return dbError(err, "Athlete is not an Admin.", "")
	}
	return nil
}

func (s *teamServiceImpl) RemoveTeamMember(ctx context.Context, principal *models.Principal, teamID, inscriptionID uuid.UUID) *ServiceError {
	team, self, svcErr := s.teamAdmin(ctx, principal, teamID)
	if svcErr != nil {
		return svcErr
	}
	if self.ID == inscriptionID {
		return badRequest("Use leave to quit your own team.")
	}
	if !isTeamMember(team, inscriptionID) {
		return badRequest("Athlete is not a team member")
	}
	if err := s.repo.RemoveMember(ctx, team.ID, inscriptionID); err != nil {
		return dbError(err, "Athlete is not a team member", "")
	}
	s.logger.Info("Team member removed",
		zap.String("team_id", team.ID.String()),
		zap.String("inscription_id", inscriptionID.String()),
	)
	return nil
}

func (s *teamServiceImpl) UpdateTeamPassword(ctx context.Context, principal *models.Principal, teamID uuid.UUID, req *models.UpdateTeamPasswordRequest) *ServiceError {
	team, _, svcErr := s.teamAdmin(ctx, principal, teamID)
	if svcErr != nil {
		return svcErr
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		s.logger.Error("Failed to hash team password", zap.Error(err))
		return internal()
	}
	if err := s.repo.UpdatePassword(ctx, team.ID, hash); err != nil {
		return dbError(err, "Team doesn't exist.", "")
	}
	return nil
}

func (s *teamServiceImpl) GetTeam(ctx context.Context, teamID uuid.UUID) (*models.Team, *ServiceError) {
	team, err := s.repo.FindByID(ctx, teamID)
	if err != nil {
		return nil, dbError(err, "Team doesn't exist.", "")
	}
	return team, nil
}

func (s *teamServiceImpl) ListTeams(ctx context.Context, q repository.ListQuery) (*models.Page[models.Team], *ServiceError) {
	teams, err := s.repo.List(ctx, q)
	if err != nil {
		s.logger.Error("Failed to list teams", zap.Error(err))
		return nil, internal()
	}
	page := repository.NewPage(teams, q)
	return &page, nil
}

func (s *teamServiceImpl) ListTeamsLight(ctx context.Context, q repository.ListQuery) (*models.Page[models.TeamLight], *ServiceError) {
	teams, err := s.repo.ListLight(ctx, q)
	if err != nil {
		s.logger.Error("Failed to list teams", zap.Error(err))
		return nil, internal()
	}
	page := repository.NewPage(teams, q)
	return &page, nil
}

func (s *teamServiceImpl) DeleteTeam(ctx context.Context, teamID uuid.UUID) *ServiceError {
	if err := s.repo.Delete(ctx, teamID); err != nil {
		return dbError(err, "Team doesn't exist.", "")
	}
	s.logger.Info("Team deleted", zap.String("team_id", teamID.String()))
	return nil
}
