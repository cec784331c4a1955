package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	InscriptionStatusPending   = "PENDING"
	InscriptionStatusValidated = "VALIDATED"
	InscriptionStatusCancelled = "CANCELLED"
)

// Inscription is an athlete's registration to a race of an edition. An
// athlete holds at most one non-cancelled inscription per edition.
type Inscription struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AthleteID uuid.UUID  `gorm:"type:uuid;not null;index:idx_inscription_athlete_edition,unique,where:status <> 'CANCELLED'" json:"athleteId"`
	EditionID uuid.UUID  `gorm:"type:uuid;not null;index:idx_inscription_athlete_edition,unique,where:status <> 'CANCELLED'" json:"editionId"`
	RaceID    uuid.UUID  `gorm:"type:uuid;index;not null" json:"raceId"`
	TeamID    *uuid.UUID `gorm:"type:uuid;index" json:"teamId"`
	Status    string     `gorm:"type:varchar(16);not null;default:'PENDING'" json:"status"`
	Validated bool       `gorm:"not null;default:false" json:"validated"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`

	Athlete     *Athlete     `json:"athlete,omitempty"`
	Race        *Race        `json:"race,omitempty"`
	Team        *Team        `json:"team,omitempty"`
	Payment     *Payment     `gorm:"foreignKey:InscriptionID" json:"payment,omitempty"`
	Certificate *Certificate `gorm:"foreignKey:InscriptionID" json:"certificate,omitempty"`
	Membership  *Membership  `gorm:"foreignKey:InscriptionID" json:"va,omitempty"`
	TeamAdmin   *TeamAdmin   `gorm:"foreignKey:InscriptionID" json:"teamAdmin,omitempty"`
}

// HasMembership reports whether the partner-association card was attached.
// The Membership association must have been preloaded.
func (i *Inscription) HasMembership() bool {
	return i.Membership != nil
}

type CreateInscriptionRequest struct {
	RaceID uuid.UUID `json:"raceId" binding:"required"`
}

type ValidateInscriptionRequest struct {
	Validated *bool `json:"validated" binding:"required"`
}
