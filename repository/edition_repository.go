package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/24HeuresINSA/OverRun-backend/models"
)

// EditionRepository covers editions and the races and categories they own.
type EditionRepository interface {
	FindActive(ctx context.Context) (*models.Edition, error)
	FindEditionByID(ctx context.Context, id uuid.UUID) (*models.Edition, error)
	ListEditions(ctx context.Context) ([]models.Edition, error)
	SaveEdition(ctx context.Context, edition *models.Edition) error
	DeleteEdition(ctx context.Context, id uuid.UUID) error

	FindRaceByID(ctx context.Context, id uuid.UUID) (*models.Race, error)
	ListRaces(ctx context.Context, q ListQuery) ([]models.Race, error)
	FindRacesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Race, error)
	SaveRace(ctx context.Context, race *models.Race) error
	DeleteRace(ctx context.Context, id uuid.UUID) error

	FindCategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	ListCategories(ctx context.Context, q ListQuery) ([]models.Category, error)
	SaveCategory(ctx context.Context, category *models.Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	FindDisciplineByID(ctx context.Context, id uuid.UUID) (*models.Discipline, error)
	ListDisciplines(ctx context.Context, q ListQuery) ([]models.Discipline, error)
	SaveDiscipline(ctx context.Context, discipline *models.Discipline) error
	DeleteDiscipline(ctx context.Context, id uuid.UUID) error
}

type GormEditionRepository struct {
	db *gorm.DB
}

func NewGormEditionRepository(db *gorm.DB) EditionRepository {
	return &GormEditionRepository{db: db}
}

func (r *GormEditionRepository) FindActive(ctx context.Context) (*models.Edition, error) {
	var e models.Edition
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("start_date DESC").
		First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *GormEditionRepository) FindEditionByID(ctx context.Context, id uuid.UUID) (*models.Edition, error) {
	var e models.Edition
	if err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *GormEditionRepository) ListEditions(ctx context.Context) ([]models.Edition, error) {
	var editions []models.Edition
	err := r.db.WithContext(ctx).Order("start_date DESC").Find(&editions).Error
	return editions, err
}

// SaveEdition inserts or updates the edition. Activating an edition
// deactivates every other one.
func (r *GormEditionRepository) SaveEdition(ctx context.Context, edition *models.Edition) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(edition).Error; err != nil {
			return err
		}
		if !edition.IsActive {
			return nil
		}
		return tx.Model(&models.Edition{}).
			Where("id <> ? AND is_active = ?", edition.ID, true).
			Update("is_active", false).Error
	})
}

// DeleteEdition refuses with gorm.ErrForeignKeyViolated while categories,
// races or disciplines still point at the edition.
func (r *GormEditionRepository) DeleteEdition(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []interface{}{&models.Category{}, &models.Race{}, &models.Discipline{}} {
			var n int64
			if err := tx.Model(child).Where("edition_id = ?", id).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return gorm.ErrForeignKeyViolated
			}
		}
		return deleteByID(tx, &models.Edition{}, id)
	})
}

func (r *GormEditionRepository) FindRaceByID(ctx context.Context, id uuid.UUID) (*models.Race, error) {
	var race models.Race
	if err := r.db.WithContext(ctx).Preload("Category").First(&race, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &race, nil
}

func (r *GormEditionRepository) ListRaces(ctx context.Context, q ListQuery) ([]models.Race, error) {
	var races []models.Race
	db := r.db.WithContext(ctx).Model(&models.Race{}).Preload("Category")
	if err := q.Apply(db).Find(&races).Error; err != nil {
		return nil, err
	}
	return races, nil
}

func (r *GormEditionRepository) FindRacesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Race, error) {
	var races []models.Race
	if len(ids) == 0 {
		return races, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&races).Error
	return races, err
}

func (r *GormEditionRepository) SaveRace(ctx context.Context, race *models.Race) error {
	return r.db.WithContext(ctx).Omit("Category").Save(race).Error
}

func (r *GormEditionRepository) DeleteRace(ctx context.Context, id uuid.UUID) error {
	return deleteByID(r.db.WithContext(ctx), &models.Race{}, id)
}

func (r *GormEditionRepository) FindCategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var c models.Category
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormEditionRepository) ListCategories(ctx context.Context, q ListQuery) ([]models.Category, error) {
	var categories []models.Category
	if err := q.Apply(r.db.WithContext(ctx).Model(&models.Category{})).Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *GormEditionRepository) SaveCategory(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Save(category).Error
}

func (r *GormEditionRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return deleteByID(r.db.WithContext(ctx), &models.Category{}, id)
}

func (r *GormEditionRepository) FindDisciplineByID(ctx context.Context, id uuid.UUID) (*models.Discipline, error) {
	var d models.Discipline
	if err := r.db.WithContext(ctx).Preload("Races").First(&d, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *GormEditionRepository) ListDisciplines(ctx context.Context, q ListQuery) ([]models.Discipline, error) {
	var disciplines []models.Discipline
	db := r.db.WithContext(ctx).Model(&models.Discipline{}).Preload("Races")
	if err := q.Apply(db).Find(&disciplines).Error; err != nil {
		return nil, err
	}
	return disciplines, nil
}

// SaveDiscipline upserts the discipline and replaces its race links with
// discipline.Races. The races themselves are never written.
func (r *GormEditionRepository) SaveDiscipline(ctx context.Context, discipline *models.Discipline) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if discipline.ID != uuid.Nil {
			if err := tx.Exec("DELETE FROM race_disciplines WHERE discipline_id = ?", discipline.ID).Error; err != nil {
				return err
			}
		}
		return tx.Omit("Races.*").Save(discipline).Error
	})
}

func (r *GormEditionRepository) DeleteDiscipline(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM race_disciplines WHERE discipline_id = ?", id).Error; err != nil {
			return err
		}
		return deleteByID(tx, &models.Discipline{}, id)
	})
}
