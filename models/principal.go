package models

import "github.com/google/uuid"

// Principal is the authenticated caller, resolved from the access token and
// the database on every request.
type Principal struct {
	UserID    uuid.UUID
	AthleteID *uuid.UUID
	AdminID   *uuid.UUID
	Roles     []string
}

func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the caller may act on records they do not own.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.HasRole(RoleActiveAdmin)
}

// Owns reports whether athleteID is the caller's athlete profile.
func (p *Principal) Owns(athleteID uuid.UUID) bool {
	return p != nil && p.AthleteID != nil && *p.AthleteID == athleteID
}
