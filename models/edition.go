package models

import (
	"time"

	"github.com/google/uuid"
)

// Edition is one yearly instance of the event. At most one edition is
// expected to be active at a time.
type Edition struct {
	ID                    uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name                  string    `gorm:"type:varchar(128);not null" json:"name"`
	StartDate             time.Time `gorm:"not null" json:"startDate"`
	EndDate               time.Time `gorm:"not null" json:"endDate"`
	RegistrationStartDate time.Time `gorm:"not null" json:"registrationStartDate"`
	RegistrationEndDate   time.Time `gorm:"not null" json:"registrationEndDate"`
	IsActive              bool      `gorm:"not null;default:false;index" json:"isActive"`
	CreatedAt             time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

type Category struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EditionID      uuid.UUID `gorm:"type:uuid;index;not null" json:"editionId"`
	Name           string    `gorm:"type:varchar(128);not null" json:"name"`
	Description    string    `gorm:"type:text" json:"description"`
	MinTeamMembers int       `gorm:"not null;default:1" json:"minTeamMembers"`
	MaxTeamMembers int       `gorm:"not null;default:1" json:"maxTeamMembers"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Race prices are in euro cents.
type Race struct {
	ID                       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EditionID                uuid.UUID `gorm:"type:uuid;index;not null" json:"editionId"`
	CategoryID               uuid.UUID `gorm:"type:uuid;index;not null" json:"categoryId"`
	Name                     string    `gorm:"type:varchar(128);not null" json:"name"`
	RegistrationPrice        int       `gorm:"not null;default:0" json:"registrationPrice"`
	PartnerRegistrationPrice int       `gorm:"not null;default:0" json:"partnerRegistrationPrice"`
	MaxParticipants          int       `gorm:"not null;default:0" json:"maxParticipants"`
	MaxTeams                 int       `gorm:"not null;default:0" json:"maxTeams"`
	CreatedAt                time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt                time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	Category *Category `json:"category,omitempty"`
}

// Discipline groups races of an edition by sport, for instance running or
// cycling. Races are linked through the race_disciplines join table.
type Discipline struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EditionID   uuid.UUID `gorm:"type:uuid;index;not null" json:"editionId"`
	Name        string    `gorm:"type:varchar(128);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	Races []Race `gorm:"many2many:race_disciplines" json:"races"`
}

// PriceFor returns the price owed by a registration, which is the partner
// price when the athlete holds a partner-association card.
func (r *Race) PriceFor(hasMembership bool) int {
	if hasMembership {
		return r.PartnerRegistrationPrice
	}
	return r.RegistrationPrice
}

type EditionRequest struct {
	Name                  string    `json:"name" binding:"required"`
	StartDate             time.Time `json:"startDate" binding:"required"`
	EndDate               time.Time `json:"endDate" binding:"required"`
	RegistrationStartDate time.Time `json:"registrationStartDate" binding:"required"`
	RegistrationEndDate   time.Time `json:"registrationEndDate" binding:"required"`
	IsActive              bool      `json:"isActive"`
}

type CategoryRequest struct {
	EditionID      uuid.UUID `json:"editionId" binding:"required"`
	Name           string    `json:"name" binding:"required"`
	Description    string    `json:"description"`
	MinTeamMembers int       `json:"minTeamMembers" binding:"gte=1"`
	MaxTeamMembers int       `json:"maxTeamMembers" binding:"gte=1"`
}

type RaceRequest struct {
	EditionID                uuid.UUID `json:"editionId" binding:"required"`
	CategoryID               uuid.UUID `json:"categoryId" binding:"required"`
	Name                     string    `json:"name" binding:"required"`
	RegistrationPrice        int       `json:"registrationPrice" binding:"gte=0"`
	PartnerRegistrationPrice int       `json:"partnerRegistrationPrice" binding:"gte=0"`
	MaxParticipants          int       `json:"maxParticipants" binding:"gte=0"`
	MaxTeams                 int       `json:"maxTeams" binding:"gte=0"`
}

type DisciplineRequest struct {
	EditionID   uuid.UUID   `json:"editionId" binding:"required"`
	Name        string      `json:"name" binding:"required"`
	Description string      `json:"description"`
	RaceIDs     []uuid.UUID `json:"raceIds"`
}
