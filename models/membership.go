package models

import (
	"time"

	"github.com/google/uuid"
)

// Membership is a partner-association card ("VA") attached to an inscription.
// It entitles the race's partner registration price.
type Membership struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CardNumber    string    `gorm:"type:varchar(64);not null" json:"va"`
	InscriptionID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"inscriptionId"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`

	Inscription *Inscription `json:"inscription,omitempty"`
}

type CheckMembershipRequest struct {
	CardNumber string `json:"vaNumber" binding:"required"`
	FirstName  string `json:"vaFirstName" binding:"required"`
	LastName   string `json:"vaLastName" binding:"required"`
}
