package models

import (
	"time"

	"github.com/google/uuid"
)

type Team struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_team_edition_name" json:"name"`
	Password  string    `gorm:"type:varchar(255);not null" json:"-"`
	RaceID    uuid.UUID `gorm:"type:uuid;index;not null" json:"raceId"`
	EditionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_team_edition_name" json:"editionId"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	Race    *Race         `json:"race,omitempty"`
	Members []Inscription `gorm:"foreignKey:TeamID" json:"members,omitempty"`
	Admins  []TeamAdmin   `gorm:"foreignKey:TeamID" json:"admins,omitempty"`
}

// TeamAdmin grants team management rights to one member inscription.
type TeamAdmin struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TeamID        uuid.UUID `gorm:"type:uuid;index;not null" json:"teamId"`
	InscriptionID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"inscriptionId"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TeamLight is the admin listing projection.
type TeamLight struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	RaceID      uuid.UUID `json:"raceId"`
	MemberCount int64     `json:"memberCount"`
}

type CreateTeamRequest struct {
	Name     string    `json:"name" binding:"required"`
	Password string    `json:"password" binding:"required,min=4"`
	RaceID   uuid.UUID `json:"raceId" binding:"required"`
}

type JoinTeamRequest struct {
	Password string `json:"password" binding:"required"`
}

type UpdateTeamPasswordRequest struct {
	Password string `json:"password" binding:"required,min=4"`
}

type TeamMemberRequest struct {
	InscriptionID uuid.UUID `json:"inscriptionId" binding:"required"`
}
