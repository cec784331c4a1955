package models

import (
	"time"

	"github.com/google/uuid"
)

// Role names attached to a request by the auth middleware.
const (
	RoleAuthenticatedUser = "AUTHENTICATED_USER"
	RoleAdmin             = "ADMIN"
	RoleActiveAdmin       = "ACTIVE_ADMIN"
)

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Username  string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	Athlete *Athlete `gorm:"foreignKey:UserID" json:"athlete,omitempty"`
	Admin   *Admin   `gorm:"foreignKey:UserID" json:"admin,omitempty"`
}

// RefreshToken is the server-side record of an issued refresh token.
// Only the token ID (jti) is stored; rotation deletes the row.
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TokenID   string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

type Admin struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"userId"`
	Active    bool      `gorm:"not null;default:false" json:"active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	User *User `json:"user,omitempty"`
}

type Athlete struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"userId"`
	FirstName   string    `gorm:"type:varchar(128);not null" json:"firstName"`
	LastName    string    `gorm:"type:varchar(128);not null" json:"lastName"`
	DateOfBirth time.Time `gorm:"type:date;not null" json:"dateOfBirth"`
	Sex         string    `gorm:"type:varchar(16)" json:"sex"`
	PhoneNumber string    `gorm:"type:varchar(32)" json:"phoneNumber"`
	Address     string    `gorm:"type:varchar(255)" json:"address"`
	ZipCode     string    `gorm:"type:varchar(16)" json:"zipCode"`
	City        string    `gorm:"type:varchar(128)" json:"city"`
	Country     string    `gorm:"type:varchar(64)" json:"country"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	User *User `json:"user,omitempty"`
}

// LoginRequest accepts either a username or an email in Username.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	UserID       string `json:"userId"`
	AthleteID    string `json:"athleteId,omitempty"`
	AdminID      string `json:"adminId,omitempty"`
}

type SignupRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=64"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	FirstName   string `json:"firstName" binding:"required"`
	LastName    string `json:"lastName" binding:"required"`
	DateOfBirth string `json:"dateOfBirth" binding:"required"`
	Sex         string `json:"sex"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
	ZipCode     string `json:"zipCode"`
	City        string `json:"city"`
	Country     string `json:"country"`
}

type UpdateAthleteRequest struct {
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	DateOfBirth *string `json:"dateOfBirth"`
	Sex         *string `json:"sex"`
	PhoneNumber *string `json:"phoneNumber"`
	Address     *string `json:"address"`
	ZipCode     *string `json:"zipCode"`
	City        *string `json:"city"`
	Country     *string `json:"country"`
}

type CreateAdminRequest struct {
	UserID uuid.UUID `json:"userId" binding:"required"`
	Active bool      `json:"active"`
}

// ActivateAdminRequest sets the active flag; a missing value toggles it.
type ActivateAdminRequest struct {
	Active *bool `json:"active"`
}

// AdminInvitation lets whoever holds the emailed token become an active
// admin until ExpiresAt. Only the bcrypt hash of the token is stored.
// UserID is set when the email already belongs to an account.
type AdminInvitation struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email     string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	TokenHash string     `gorm:"type:varchar(255);not null" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expiresAt"`
	UserID    *uuid.UUID `gorm:"type:uuid" json:"userId,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

type CreateAdminInvitationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// AcceptAdminInvitationRequest carries the emailed token. Username and
// Password are only read when the invitation has no existing user.
type AcceptAdminInvitationRequest struct {
	Token    string `json:"token" binding:"required"`
	Username string `json:"username" binding:"omitempty,min=3,max=64"`
	Password string `json:"password" binding:"omitempty,min=8"`
}
