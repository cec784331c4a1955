package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/24HeuresINSA/OverRun-backend/models"
)

type MembershipRepository interface {
	Create(ctx context.Context, membership *models.Membership) error
	FindByInscriptionID(ctx context.Context, inscriptionID uuid.UUID) (*models.Membership, error)
	List(ctx context.Context, q ListQuery) ([]models.Membership, error)
}

type GormMembershipRepository struct {
	db *gorm.DB
}

func NewGormMembershipRepository(db *gorm.DB) MembershipRepository {
	return &GormMembershipRepository{db: db}
}

func (r *GormMembershipRepository) Create(ctx context.Context, membership *models.Membership) error {
	return r.db.WithContext(ctx).Omit("Inscription").Create(membership).Error
}

func (r *GormMembershipRepository) FindByInscriptionID(ctx context.Context, inscriptionID uuid.UUID) (*models.Membership, error) {
	var m models.Membership
	if err := r.db.WithContext(ctx).First(&m, "inscription_id = ?", inscriptionID).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *GormMembershipRepository) List(ctx context.Context, q ListQuery) ([]models.Membership, error) {
	var memberships []models.Membership
	db := r.db.WithContext(ctx).
		Model(&models.Membership{}).
		Preload("Inscription").
		Preload("Inscription.Athlete").
		Joins("JOIN inscriptions ON inscriptions.id = memberships.inscription_id").
		Joins("JOIN athletes ON athletes.id = inscriptions.athlete_id")
	if err := q.Apply(db).Find(&memberships).Error; err != nil {
		return nil, err
	}
	return memberships, nil
}
