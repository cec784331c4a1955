package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	CertificateStatusPending   = "PENDING"
	CertificateStatusValidated = "VALIDATED"
	CertificateStatusRefused   = "REFUSED"
)

// Certificate is a medical certificate file attached to an inscription.
// Filename is the storage key in S3 or under the local certificate dir.
type Certificate struct {
	ID                uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InscriptionID     uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"inscriptionId"`
	Filename          string     `gorm:"type:varchar(255);not null" json:"filename"`
	ContentType       string     `gorm:"type:varchar(64);not null" json:"contentType"`
	UploadedAt        time.Time  `gorm:"not null" json:"uploadedAt"`
	Status            string     `gorm:"type:varchar(16);not null;default:'PENDING'" json:"status"`
	StatusUpdatedAt   *time.Time `json:"statusUpdatedAt"`
	StatusUpdatedByID *uuid.UUID `gorm:"type:uuid" json:"statusUpdatedById"`

	Inscription *Inscription `json:"inscription,omitempty"`
}

type UpdateCertificateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=PENDING VALIDATED REFUSED"`
	Reason string `json:"reason"`
}
