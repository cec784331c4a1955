package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/24HeuresINSA/OverRun-backend/models"
	"github.com/24HeuresINSA/OverRun-backend/repository"
)

// EditionService manages editions, their categories and races.
type EditionService interface {
	ListEditions(ctx context.Context) ([]models.Edition, *ServiceError)
	GetEdition(ctx context.Context, id uuid.UUID) (*models.Edition, *ServiceError)
	ActiveEdition(ctx context.Context) (*models.Edition, *ServiceError)
	CreateEdition(ctx context.Context, req *models.EditionRequest) (*models.Edition, *ServiceError)
	UpdateEdition(ctx context.Context, id uuid.UUID, req *models.EditionRequest) (*models.Edition, *ServiceError)
	DeleteEdition(ctx context.Context, id uuid.UUID) *ServiceError

	ListCategories(ctx context.Context, q repository.ListQuery) (*models.Page[models.Category], *ServiceError)
	GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, *ServiceError)
	CreateCategory(ctx context.Context, req *models.CategoryRequest) (*models.Category, *ServiceError)
	UpdateCategory(ctx context.Context, id uuid.UUID, req *models.CategoryRequest) (*models.Category, *ServiceError)
	DeleteCategory(ctx context.Context, id uuid.UUID) *ServiceError

	ListRaces(ctx context.Context, q repository.ListQuery) (*models.Page[models.Race], *ServiceError)
	GetRace(ctx context.Context, id uuid.UUID) (*models.Race, *ServiceError)
	CreateRace(ctx context.Context, req *models.RaceRequest) (*models.Race, *ServiceError)
	UpdateRace(ctx context.Context, id uuid.UUID, req *models.RaceRequest) (*models.Race, *ServiceError)
	DeleteRace(ctx context.Context, id uuid.UUID) *ServiceError

	ListDisciplines(ctx context.Context, q repository.ListQuery) (*models.Page[models.Discipline], *ServiceError)
	GetDiscipline(ctx context.Context, id uuid.UUID) (*models.Discipline, *ServiceError)
	CreateDiscipline(ctx context.Context, req *models.DisciplineRequest) (*models.Discipline, *ServiceError)
	UpdateDiscipline(ctx context.Context, id uuid.UUID, req *models.DisciplineRequest) (*models.Discipline, *ServiceError)
	DeleteDiscipline(ctx context.Context, id uuid.UUID) *ServiceError
}

type editionServiceImpl struct {
	repo   repository.EditionRepository
	logger *zap.Logger
}

func NewEditionService(repo repository.EditionRepository, logger *zap.Logger) EditionService {
	return &editionServiceImpl{repo: repo, logger: logger}
}

func (s *editionServiceImpl) ListEditions(ctx context.Context) ([]models.Edition, *ServiceError) {
	editions, err := s.repo.ListEditions(ctx)
	if err != nil {
		s.logger.Error("Failed to list editions", zap.Error(err))
		return nil, internal()
	}
	if editions == nil {
		editions = []models.Edition{}
	}
	return editions, nil
}

func (s *editionServiceImpl) GetEdition(ctx context.Context, id uuid.UUID) (*models.Edition, *ServiceError) {
	edition, err := s.repo.FindEditionByID(ctx, id)
	if err != nil {
		return nil, dbError(err, "Edition not found.", "")
	}
	return edition, nil
}

func (s *editionServiceImpl) ActiveEdition(ctx context.Context) (*models.Edition, *ServiceError) {
	edition, err := s.repo.FindActive(ctx)
	if err != nil {
		return nil, dbError(err, "No active edition.", "")
	}
	return edition, nil
}

func (s *editionServiceImpl) CreateEdition(ctx context.Context, req *models.EditionRequest) (*models.Edition, *ServiceError) {
	edition := &models.Edition{}
	return s.saveEdition(ctx, edition, req)
}

func (s *editionServiceImpl) UpdateEdition(ctx context.Context, id uuid.UUID, req *models.EditionRequest) (*models.Edition, *ServiceError) {
	edition, svcErr := s.GetEdition(ctx, id)
	if svcErr != nil {
		return nil, svcErr
	}
	return s.saveEdition(ctx, edition, req)
}

func (s *editionServiceImpl) DeleteEdition(ctx context.Context, id uuid.UUID) *ServiceError {
	if err := s.repo.DeleteEdition(ctx, id); err != nil {
		return dbError(err, "Edition not found.", "Edition still has categories, races or disciplines.")
	}
	s.logger.Info("Edition deleted", zap.String("edition_id", id.String()))
	return nil
}

func (s *editionServiceImpl) saveEdition(ctx context.Context, edition *models.Edition, req *models.EditionRequest) (*models.Edition, *ServiceError) {
	if req.EndDate.Before(req.StartDate) {
		return nil, badRequest("endDate must be after startDate")
	}
	if req.RegistrationEndDate.Before(req.RegistrationStartDate) {
		return nil, badRequest("registrationEndDate must be after registrationStartDate")
	}

	edition.Name = req.Name
	edition.StartDate = req.StartDate
	edition.EndDate = req.EndDate
	edition.RegistrationStartDate = req.RegistrationStartDate
	edition.RegistrationEndDate = req.RegistrationEndDate
	edition.IsActive = req.IsActive

	if err := s.repo.SaveEdition(ctx, edition); err != nil {
		return nil, dbError(err, "Edition not found.", "Edition already exists.")
	}
	return edition, nil
}

func (s *editionServiceImpl) ListCategories(ctx context.Context, q repository.ListQuery) (*models.Page[models.Category], *ServiceError) {
	categories, err := s.repo.ListCategories(ctx, q)
	if err != nil {
		s.logger.Error("Failed to list categories", zap.Error(err))
		return nil, internal()
	}
	page := repository.NewPage(categories, q)
	return &page, nil
}

func (s *editionServiceImpl) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, *ServiceError) {
	category, err := s.repo.FindCategoryByID(ctx, id)
	if err != nil {
		return nil, dbError(err, "Category not found.", "")
	}
	return category, nil
}

func (s *editionServiceImpl) CreateCategory(ctx context.Context, req *models.CategoryRequest) (*models.Category, *ServiceError) {
	return s.saveCategory(ctx, &models.Category{}, req)
}

func (s *editionServiceImpl) UpdateCategory(ctx context.Context, id uuid.UUID, req *models.CategoryRequest) (*models.Category, *ServiceError) {
	category, svcErr := s.GetCategory(ctx, id)
	if svcErr != nil {
		return nil, svcErr
	}
	return s.saveCategory(ctx, category, req)
}

func (s *editionServiceImpl) DeleteCategory(ctx context.Context, id uuid.UUID) *ServiceError {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return dbError(err, "Category not found.", "Category still has races.")
	}
	s.logger.Info("Category deleted", zap.String("category_id", id.String()))
	return nil
}

func (s *editionServiceImpl) saveCategory(ctx context.Context, category *models.Category, req *models.CategoryRequest) (*models.Category, *ServiceError) {
	if req.MaxTeamMembers < req.MinTeamMembers {
		return nil, badRequest("maxTeamMembers must be greater than or equal to minTeamMembers")
	}
	if _, svcErr := s.GetEdition(ctx, req.EditionID); svcErr != nil {
		return nil, svcErr
	}

	category.EditionID = req.EditionID
	category.Name = req.Name
	category.Description = req.Description
	category.MinTeamMembers = req.MinTeamMembers
	category.MaxTeamMembers = req.MaxTeamMembers

	if err := s.repo.SaveCategory(ctx, category); err != nil {
		return nil, dbError(err, "Category not found.", "Category already exists.")
	}
	return category, nil
}

func (s *editionServiceImpl) ListRaces(ctx context.Context, q repository.ListQuery) (*models.Page[models.Race], *ServiceError) {
	races, err := s.repo.ListRaces(ctx, q)
	if err != nil {
		s.logger.Error("Failed to list races", zap.Error(err))
		return nil, internal()
	}
	page := repository.NewPage(races, q)
	return &page, nil
}

func (s *editionServiceImpl) GetRace(ctx context.Context, id uuid.UUID) (*models.Race, *ServiceError) {
	race, err := s.repo.FindRaceByID(ctx, id)
	if err != nil {
		return nil, dbError(err, "Race not found.", "")
	}
	return race, nil
}

func (s *editionServiceImpl) CreateRace(ctx context.Context, req *models.RaceRequest) (*models.Race, *ServiceError) {
	return s.saveRace(ctx, &models.Race{}, req)
}

func (s *editionServiceImpl) UpdateRace(ctx context.Context, id uuid.UUID, req *models.RaceRequest) (*models.Race, *ServiceError) {
	race, svcErr := s.GetRace(ctx, id)
	if svcErr != nil {
		return nil, svcErr
	}
	return s.saveRace(ctx, race, req)
}

func (s *editionServiceImpl) DeleteRace(ctx context.Context, id uuid.UUID) *ServiceError {
	if err := s.repo.DeleteRace(ctx, id); err != nil {
		return dbError(err, "Race not found.", "Race still has inscriptions, teams or disciplines.")
	}
	s.logger.Info("Race deleted", zap.String("race_id", id.String()))
	return nil
}

// saveRace checks the category belongs to the race's edition.
func (s *editionServiceImpl) saveRace(ctx context.Context, race *models.Race, req *models.RaceRequest) (*models.Race, *ServiceError) {
	category, svcErr := s.GetCategory(ctx, req.CategoryID)
	if svcErr != nil {
		return nil, svcErr
	}
	if category.EditionID != req.EditionID {
		return nil, badRequest("Category does not belong to this edition.")
	}

	race.EditionID = req.EditionID
	race.CategoryID = req.CategoryID
	race.Name = req.Name
	race.RegistrationPrice = req.RegistrationPrice
	race.PartnerRegistrationPrice = req.PartnerRegistrationPrice
	race.MaxParticipants = req.MaxParticipants
	race.MaxTeams = req.MaxTeams
	race.Category = nil

	if err := s.repo.SaveRace(ctx, race); err != nil {
		return nil, dbError(err, "Race not found.", "Race already exists.")
	}
	race.Category = category
	return race, nil
}

func (s *editionServiceImpl) ListDisciplines(ctx context.Context, q repository.ListQuery) (*models.Page[models.Discipline], *ServiceError) {
	disciplines, err := s.repo.ListDisciplines(ctx, q)
	if err != nil {
		s.logger.Error("Failed to list disciplines", zap.Error(err))
		return nil, internal()
	}
	page := repository.NewPage(disciplines, q)
	return &page, nil
}

func (s *editionServiceImpl) GetDiscipline(ctx context.Context, id uuid.UUID) (*models.Discipline, *ServiceError) {
	discipline, err := s.repo.FindDisciplineByID(ctx, id)
	if err != nil {
		return nil, dbError(err, "Discipline not found.", "")
	}
	return discipline, nil
}

func (s *editionServiceImpl) CreateDiscipline(ctx context.Context, req *models.DisciplineRequest) (*models.Discipline, *ServiceError) {
	return s.saveDiscipline(ctx, &models.Discipline{}, req)
}

func (s *editionServiceImpl) UpdateDiscipline(ctx context.Context, id uuid.UUID, req *models.DisciplineRequest) (*models.Discipline, *ServiceError) {
	discipline, svcErr := s.GetDiscipline(ctx, id)
	if svcErr != nil {
		return nil, svcErr
	}
	return s.saveDiscipline(ctx, discipline, req)
}

func (s *editionServiceImpl) DeleteDiscipline(ctx context.Context, id uuid.UUID) *ServiceError {
	if err := s.repo.DeleteDiscipline(ctx, id); err != nil {
		return dbError(err, "Discipline not found.", "")
	}
	s.logger.Info("Discipline deleted", zap.String("discipline_id", id.String()))
	return nil
}

// saveDiscipline only links races of the discipline's own edition.
func (s *editionServiceImpl) saveDiscipline(ctx context.Context, discipline *models.Discipline, req *models.DisciplineRequest) (*models.Discipline, *ServiceError) {
	if _, svcErr := s.GetEdition(ctx, req.EditionID); svcErr != nil {
		return nil, svcErr
	}
	ids := uniqueIDs(req.RaceIDs)
	races, err := s.repo.FindRacesByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("Failed to load races", zap.Error(err))
		return nil, internal()
	}
	if len(races) != len(ids) {
		return nil, notFound("Race not found.")
	}
	for _, race := range races {
		if race.EditionID != req.EditionID {
			return nil, badRequest("Race does not belong to this edition.")
		}
	}

	discipline.EditionID = req.EditionID
	discipline.Name = req.Name
	discipline.Description = req.Description
	discipline.Races = races

	if err := s.repo.SaveDiscipline(ctx, discipline); err != nil {
		return nil, dbError(err, "Discipline not found.", "Discipline already exists.")
	}
	return discipline, nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
