package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/24HeuresINSA/OverRun-backend/models"
)

// InscriptionRepository defines data-access operations for inscriptions.
type InscriptionRepository interface {
	Create(ctx context.Context, inscription *models.Inscription) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Inscription, error)
	FindActive(ctx context.Context, athleteID, editionID uuid.UUID) (*models.Inscription, error)
	List(ctx context.Context, q ListQuery) ([]models.Inscription, error)
	ListByAthlete(ctx context.Context, athleteID uuid.UUID) ([]models.Inscription, error)
	CountActiveByRace(ctx context.Context, raceID uuid.UUID) (int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, validated bool) error
}

type GormInscriptionRepository struct {
	db *gorm.DB
}

func NewGormInscriptionRepository(db *gorm.DB) InscriptionRepository {
	return &GormInscriptionRepository{db: db}
}

func (r *GormInscriptionRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Athlete").
		Preload("Athlete.User").
		Preload("Race").
		Preload("Race.Category").
		Preload("Team").
		Preload("Payment").
		Preload("Certificate").
		Preload("Membership").
		Preload("TeamAdmin")
}

func (r *GormInscriptionRepository) Create(ctx context.Context, inscription *models.Inscription) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(inscription).Error
}

func (r *GormInscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Inscription, error) {
	var i models.Inscription
	if err := r.preloaded(ctx).First(&i, "inscriptions.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &i, nil
}

// FindActive returns the athlete's non-cancelled inscription in an edition.
func (r *GormInscriptionRepository) FindActive(ctx context.Context, athleteID, editionID uuid.UUID) (*models.Inscription, error) {
	var i models.Inscription
	if err := r.preloaded(ctx).
		Where("athlete_id = ? AND edition_id = ? AND status <> ?", athleteID, editionID, models.InscriptionStatusCancelled).
		First(&i).Error; err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *GormInscriptionRepository) List(ctx context.Context, q ListQuery) ([]models.Inscription, error) {
	var inscriptions []models.Inscription
	db := r.preloaded(ctx).
		Model(&models.Inscription{}).
		Joins("JOIN athletes ON athletes.id = inscriptions.athlete_id").
		Joins("JOIN races ON races.id = inscriptions.race_id")
	if err := q.Apply(db).Find(&inscriptions).Error; err != nil {
		return nil, err
	}
	return inscriptions, nil
}

func (r *GormInscriptionRepository) ListByAthlete(ctx context.Context, athleteID uuid.UUID) ([]models.Inscription, error) {
	var inscriptions []models.Inscription
	if err := r.preloaded(ctx).
		Where("athlete_id = ?", athleteID).
		Order("created_at DESC").
		Find(&inscriptions).Error; err != nil {
		return nil, err
	}
	return inscriptions, nil
}

func (r *GormInscriptionRepository) CountActiveByRace(ctx context.Context, raceID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Inscription{}).
		Where("race_id = ? AND status <> ?", raceID, models.InscriptionStatusCancelled).
		Count(&n).Error
	return n, err
}

func (r *GormInscriptionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, validated bool) error {
	res := r.db.WithContext(ctx).
		Model(&models.Inscription{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "validated": validated})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
