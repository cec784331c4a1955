package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Payment statuses. NOT_STARTED moves to PENDING when a checkout is opened;
// gateway outcomes move PENDING to VALIDATED, REFUSED, REFUNDING or REFUND.
// A zero-amount payment jumps straight to VALIDATED.
const (
	PaymentStatusNotStarted = "NOT_STARTED"
	PaymentStatusPending    = "PENDING"
	PaymentStatusValidated  = "VALIDATED"
	PaymentStatusRefused    = "REFUSED"
	PaymentStatusRefund     = "REFUND"
	PaymentStatusRefunding  = "REFUNDING"
)

// Payment is the single ledger entry of an inscription. Amounts are in euro
// cents and TotalAmount is always RaceAmount + DonationAmount.
type Payment struct {
	ID                     uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InscriptionID          uuid.UUID      `gorm:"type:uuid;uniqueIndex;not null" json:"inscriptionId"`
	Status                 string         `gorm:"type:varchar(16);not null;default:'NOT_STARTED';index" json:"status"`
	RaceAmount             int            `gorm:"not null;default:0" json:"raceAmount"`
	DonationAmount         int            `gorm:"not null;default:0" json:"donationAmount"`
	TotalAmount            int            `gorm:"not null;default:0" json:"totalAmount"`
	Provider               string         `gorm:"type:varchar(16)" json:"provider,omitempty"`
	ExternalCheckoutID     *string        `gorm:"type:varchar(255);index" json:"externalCheckoutId"`
	ExternalCheckoutURL    *string        `gorm:"type:varchar(1024)" json:"externalCheckoutUrl"`
	ExternalCheckoutExpiry *time.Time     `json:"externalCheckoutExpiresAt"`
	ExternalReceiptURL     *string        `gorm:"type:varchar(1024)" json:"externalReceiptUrl"`
	PaymentDate            *time.Time     `gorm:"index" json:"date"`
	GatewayPayload         datatypes.JSON `gorm:"type:jsonb" json:"-"`
	CreatedAt              time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt              time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`

	Inscription *Inscription `json:"inscription,omitempty"`
}

// ClearCheckout drops every reference to the external checkout.
func (p *Payment) ClearCheckout() {
	p.ExternalCheckoutID = nil
	p.ExternalCheckoutURL = nil
	p.ExternalCheckoutExpiry = nil
}

type CreatePaymentRequest struct {
	InscriptionID uuid.UUID `json:"inscriptionId" binding:"required"`
}

type InitiatePaymentRequest struct {
	DonationAmount int `json:"donationAmount" binding:"gte=0"`
}

// UpdatePaymentRequest leaves the stored donation untouched when
// DonationAmount is omitted.
type UpdatePaymentRequest struct {
	DonationAmount *int `json:"donationAmount" binding:"omitempty,gte=0"`
}

// PaymentEvent is published to SNS on every status change.
type PaymentEvent struct {
	EventType      string    `json:"event_type"`
	PaymentID      string    `json:"payment_id"`
	InscriptionID  string    `json:"inscription_id"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	RaceAmount     int       `json:"race_amount"`
	DonationAmount int       `json:"donation_amount"`
	TotalAmount    int       `json:"total_amount"`
	Provider       string    `json:"provider,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// PaymentTotals is one row of the per-status sums.
type PaymentTotals struct {
	Status         string `json:"status"`
	RaceAmount     int64  `json:"raceAmount"`
	DonationAmount int64  `json:"donationAmount"`
}

// AmountSeries holds per-day amounts. Labels has no gaps: days without a
// payment carry zero.
type AmountSeries struct {
	Labels []string `json:"labels"`
	Data   struct {
		SimpleRace         []int64 `json:"simpleRace"`
		CumulativeRace     []int64 `json:"cumulativeRace"`
		SimpleDonation     []int64 `json:"simpleDonation"`
		CumulativeDonation []int64 `json:"cumulativeDonation"`
	} `json:"data"`
}

// PaymentReportRow is one payment of the by-date export.
type PaymentReportRow struct {
	Date           time.Time `json:"date"`
	RaceAmount     int       `json:"raceAmount"`
	DonationAmount int       `json:"donationAmount"`
	Status         string    `json:"status"`
	RaceID         uuid.UUID `json:"raceId"`
	RaceName       string    `json:"raceName"`
	HasMembership  bool      `json:"va"`
}

// PaymentsByDay groups report rows by their Europe/Paris calendar day
// (dd/mm/yyyy), in chronological order.
type PaymentsByDay struct {
	Day      string             `json:"day"`
	Payments []PaymentReportRow `json:"payments"`
}

// AppendDay adds a day with zero amounts to the simple series.
func (s *AmountSeries) AppendDay(label string) {
	s.Labels = append(s.Labels, label)
	s.Data.SimpleRace = append(s.Data.SimpleRace, 0)
	s.Data.SimpleDonation = append(s.Data.SimpleDonation, 0)
}
