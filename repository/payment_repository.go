package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/24HeuresINSA/OverRun-backend/models"
)

// ErrStaleStatus is returned by UpdateIfStatus when the stored status no
// longer matches the expected one, i.e. a concurrent request won.
var ErrStaleStatus = errors.New("payment status changed concurrently")

// PaymentRepository defines data-access operations for payments.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByExternalCheckoutID(ctx context.Context, checkoutID string) (*models.Payment, error)
	UpdateIfStatus(ctx context.Context, payment *models.Payment, expectedStatus string) error
	List(ctx context.Context, q ListQuery) ([]models.Payment, error)
	ListByAthlete(ctx context.Context, athleteID uuid.UUID) ([]models.Payment, error)
	TotalsByStatus(ctx context.Context, editionID uuid.UUID) ([]models.PaymentTotals, error)
	ValidatedByDate(ctx context.Context, editionID uuid.UUID) ([]models.Payment, error)
	ReportRows(ctx context.Context, editionID uuid.UUID) ([]models.PaymentReportRow, error)
}

// GormPaymentRepository implements PaymentRepository using GORM.
type GormPaymentRepository struct {
	db *gorm.DB
}

func NewGormPaymentRepository(db *gorm.DB) PaymentRepository {
	return &GormPaymentRepository{db: db}
}

// paymentColumns are the columns a status transition may touch.
var paymentColumns = []string{
	"status", "race_amount", "donation_amount", "total_amount", "provider",
	"external_checkout_id", "external_checkout_url", "external_checkout_expiry",
	"external_receipt_url", "payment_date", "gateway_payload", "updated_at",
}

func (r *GormPaymentRepository) withInscription(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Inscription").
		Preload("Inscription.Athlete").
		Preload("Inscription.Athlete.User").
		Preload("Inscription.Race").
		Preload("Inscription.Membership")
}

func (r *GormPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Omit("Inscription").Create(payment).Error
}

func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	if err := r.withInscription(ctx).First(&p, "payments.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByExternalCheckoutID matches webhooks that only carry the provider's
// checkout id.
func (r *GormPaymentRepository) FindByExternalCheckoutID(ctx context.Context, checkoutID string) (*models.Payment, error) {
	var p models.Payment
	if err := r.withInscription(ctx).
		Where("external_checkout_id = ?", checkoutID).
		First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateIfStatus writes the mutable payment columns only when the row still
// has expectedStatus. Zero rows affected yields ErrStaleStatus.
func (r *GormPaymentRepository) UpdateIfStatus(ctx context.Context, payment *models.Payment, expectedStatus string) error {
	res := r.db.WithContext(ctx).
		Model(payment).
		Where("status = ?", expectedStatus).
		Select(paymentColumns).
		Updates(payment)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}

func (r *GormPaymentRepository) List(ctx context.Context, q ListQuery) ([]models.Payment, error) {
	var payments []models.Payment
	db := r.withInscription(ctx).
		Model(&models.Payment{}).
		Joins("JOIN inscriptions ON inscriptions.id = payments.inscription_id").
		Joins("JOIN athletes ON athletes.id = inscriptions.athlete_id").
		Joins("JOIN races ON races.id = inscriptions.race_id")
	if err := q.Apply(db).Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *GormPaymentRepository) ListByAthlete(ctx context.Context, athleteID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	if err := r.withInscription(ctx).
		Joins("JOIN inscriptions ON inscriptions.id = payments.inscription_id").
		Where("inscriptions.athlete_id = ?", athleteID).
		Order("payments.created_at DESC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// TotalsByStatus sums validated amounts of the edition's non-cancelled inscriptions.
func (r *GormPaymentRepository) TotalsByStatus(ctx context.Context, editionID uuid.UUID) ([]models.PaymentTotals, error) {
	var rows []models.PaymentTotals
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Select("payments.status AS status, COALESCE(SUM(payments.race_amount), 0) AS race_amount, COALESCE(SUM(payments.donation_amount), 0) AS donation_amount").
		Joins("JOIN inscriptions ON inscriptions.id = payments.inscription_id").
		Where("inscriptions.edition_id = ? AND inscriptions.status <> ? AND payments.status = ?",
			editionID, models.InscriptionStatusCancelled, models.PaymentStatusValidated).
		Group("payments.status").
		Scan(&rows).Error
	return rows, err
}

// ValidatedByDate returns dated validated payments of the edition's
// non-cancelled inscriptions, oldest first.
func (r *GormPaymentRepository) ValidatedByDate(ctx context.Context, editionID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Select("payments.payment_date, payments.race_amount, payments.donation_amount").
		Joins("JOIN inscriptions ON inscriptions.id = payments.inscription_id").
		Where("inscriptions.edition_id = ? AND inscriptions.status <> ? AND payments.status = ? AND payments.payment_date IS NOT NULL",
			editionID, models.InscriptionStatusCancelled, models.PaymentStatusValidated).
		Order("payments.payment_date ASC").
		Find(&payments).Error
	return payments, err
}

// ReportRows returns the edition's validated and refunded payments with
// their race. Undated payments fall back to their last update time.
func (r *GormPaymentRepository) ReportRows(ctx context.Context, editionID uuid.UUID) ([]models.PaymentReportRow, error) {
	var rows []models.PaymentReportRow
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Select(`COALESCE(payments.payment_date, payments.updated_at) AS date,
			payments.race_amount, payments.donation_amount, payments.status,
			races.id AS race_id, races.name AS race_name,
			(memberships.id IS NOT NULL) AS has_membership`).
		Joins("JOIN inscriptions ON inscriptions.id = payments.inscription_id").
		Joins("JOIN races ON races.id = inscriptions.race_id").
		Joins("LEFT JOIN memberships ON memberships.inscription_id = inscriptions.id").
		Where("inscriptions.edition_id = ? AND payments.status IN ?",
			editionID, []string{models.PaymentStatusValidated, models.PaymentStatusRefund}).
		Order("date ASC").
		Scan(&rows).Error
	return rows, err
}
