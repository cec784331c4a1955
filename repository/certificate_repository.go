package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/24HeuresINSA/OverRun-backend/models"
)

type CertificateRepository interface {
	Create(ctx context.Context, certificate *models.Certificate) error
	Update(ctx context.Context, certificate *models.Certificate) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Certificate, error)
	FindByInscriptionID(ctx context.Context, inscriptionID uuid.UUID) (*models.Certificate, error)
	FindLastUsable(ctx context.Context, athleteID, editionID uuid.UUID) (*models.Certificate, error)
	List(ctx context.Context, q ListQuery) ([]models.Certificate, error)
}

type GormCertificateRepository struct {
	db *gorm.DB
}

func NewGormCertificateRepository(db *gorm.DB) CertificateRepository {
	return &GormCertificateRepository{db: db}
}

func (r *GormCertificateRepository) Create(ctx context.Context, certificate *models.Certificate) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(certificate).Error
}

func (r *GormCertificateRepository) Update(ctx context.Context, certificate *models.Certificate) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(certificate).Error
}

func (r *GormCertificateRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Certificate, error) {
	var c models.Certificate
	if err := r.db.WithContext(ctx).
		Preload("Inscription").
		Preload("Inscription.Athlete").
		Preload("Inscription.Athlete.User").
		First(&c, "certificates.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormCertificateRepository) FindByInscriptionID(ctx context.Context, inscriptionID uuid.UUID) (*models.Certificate, error) {
	var c models.Certificate
	if err := r.db.WithContext(ctx).
		Where("inscription_id = ?", inscriptionID).
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// FindLastUsable returns the athlete's most recent non-refused certificate
// in the edition.
func (r *GormCertificateRepository) FindLastUsable(ctx context.Context, athleteID, editionID uuid.UUID) (*models.Certificate, error) {
	var c models.Certificate
	if err := r.db.WithContext(ctx).
		Joins("JOIN inscriptions ON inscriptions.id = certificates.inscription_id").
		Where("inscriptions.athlete_id = ? AND inscriptions.edition_id = ? AND certificates.status <> ?",
			athleteID, editionID, models.CertificateStatusRefused).
		Order("certificates.uploaded_at DESC").
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormCertificateRepository) List(ctx context.Context, q ListQuery) ([]models.Certificate, error) {
	var certificates []models.Certificate
	db := r.db.WithContext(ctx).
		Model(&models.Certificate{}).
		Preload("Inscription").
		Preload("Inscription.Athlete").
		Joins("JOIN inscriptions ON inscriptions.id = certificates.inscription_id").
		Joins("JOIN athletes ON athletes.id = inscriptions.athlete_id")
	if err := q.Apply(db).Find(&certificates).Error; err != nil {
		return nil, err
	}
	return certificates, nil
}
