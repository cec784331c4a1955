package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/24HeuresINSA/OverRun-backend/models"
)

// UserRepository covers users, their refresh tokens and the athlete and admin
// profiles hanging off them.
type UserRepository interface {
	CreateWithAthlete(ctx context.Context, user *models.User, athlete *models.Athlete) error
	FindByLogin(ctx context.Context, login string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error
	RotateRefreshToken(ctx context.Context, oldTokenID string, next *models.RefreshToken) error
	DeleteRefreshToken(ctx context.Context, tokenID string) error
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)

	FindAthleteByUserID(ctx context.Context, userID uuid.UUID) (*models.Athlete, error)
	FindAthleteByID(ctx context.Context, id uuid.UUID) (*models.Athlete, error)
	UpdateAthlete(ctx context.Context, athlete *models.Athlete) error
	ListAthletes(ctx context.Context, q ListQuery) ([]models.Athlete, error)
	DeleteAthlete(ctx context.Context, id uuid.UUID) error

	CreateWithAdmin(ctx context.Context, user *models.User, admin *models.Admin) error
	FindAdminByUserID(ctx context.Context, userID uuid.UUID) (*models.Admin, error)
	FindAdminByID(ctx context.Context, id uuid.UUID) (*models.Admin, error)
	CreateAdmin(ctx context.Context, admin *models.Admin) error
	SetAdminActive(ctx context.Context, adminID uuid.UUID, active bool) error
	ListAdmins(ctx context.Context, q ListQuery) ([]models.Admin, error)
	DeleteAdmin(ctx context.Context, id uuid.UUID) error

	CreateAdminInvitation(ctx context.Context, inv *models.AdminInvitation) error
	FindAdminInvitation(ctx context.Context, id uuid.UUID) (*models.AdminInvitation, error)
	ListAdminInvitations(ctx context.Context, q ListQuery) ([]models.AdminInvitation, error)
	DeleteAdminInvitation(ctx context.Context, id uuid.UUID) error
	AcceptAdminInvitation(ctx context.Context, invitationID uuid.UUID, user *models.User, admin *models.Admin) error
}

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) CreateWithAthlete(ctx context.Context, user *models.User, athlete *models.Athlete) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
			return err
		}
		athlete.UserID = user.ID
		return tx.Omit(clause.Associations).Create(athlete).Error
	})
}

// FindByLogin matches either the username or the email, case-insensitively.
func (r *GormUserRepository) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).
		Preload("Athlete").
		Preload("Admin").
		Where("LOWER(username) = LOWER(?) OR LOWER(email) = LOWER(?)", login, login).
		First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).
		Preload("Athlete").
		Preload("Admin").
		First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// RotateRefreshToken replaces oldTokenID with next. It fails with
// gorm.ErrRecordNotFound when the old token was already used or revoked.
func (r *GormUserRepository) RotateRefreshToken(ctx context.Context, oldTokenID string, next *models.RefreshToken) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("token_id = ? AND expires_at > ?", oldTokenID, time.Now()).Delete(&models.RefreshToken{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(next).Error
	})
}

func (r *GormUserRepository) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	res := r.db.WithContext(ctx).Where("token_id = ?", tokenID).Delete(&models.RefreshToken{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormUserRepository) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.RefreshToken{})
	return res.RowsAffected, res.Error
}

func (r *GormUserRepository) FindAthleteByUserID(ctx context.Context, userID uuid.UUID) (*models.Athlete, error) {
	var a models.Athlete
	if err := r.db.WithContext(ctx).Preload("User").First(&a, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GormUserRepository) FindAthleteByID(ctx context.Context, id uuid.UUID) (*models.Athlete, error) {
	var a models.Athlete
	if err := r.db.WithContext(ctx).Preload("User").First(&a, "athletes.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GormUserRepository) UpdateAthlete(ctx context.Context, athlete *models.Athlete) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(athlete).Error
}

func (r *GormUserRepository) ListAthletes(ctx context.Context, q ListQuery) ([]models.Athlete, error) {
	var athletes []models.Athlete
	db := r.db.WithContext(ctx).
		Model(&models.Athlete{}).
		Preload("User").
		Joins("JOIN users ON users.id = athletes.user_id")
	if err := q.Apply(db).Find(&athletes).Error; err != nil {
		return nil, err
	}
	return athletes, nil
}

func (r *GormUserRepository) FindAdminByUserID(ctx context.Context, userID uuid.UUID) (*models.Admin, error) {
	var a models.Admin
	if err := r.db.WithContext(ctx).First(&a, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GormUserRepository) FindAdminByID(ctx context.Context, id uuid.UUID) (*models.Admin, error) {
	var a models.Admin
	if err := r.db.WithContext(ctx).Preload("User").First(&a, "admins.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateWithAdmin creates a user that is an admin from the start.
func (r *GormUserRepository) CreateWithAdmin(ctx context.Context, user *models.User, admin *models.Admin) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
			return err
		}
		admin.UserID = user.ID
		return tx.Omit(clause.Associations).Create(admin).Error
	})
}

func (r *GormUserRepository) CreateAdmin(ctx context.Context, admin *models.Admin) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(admin).Error
}

func (r *GormUserRepository) SetAdminActive(ctx context.Context, adminID uuid.UUID, active bool) error {
	res := r.db.WithContext(ctx).Model(&models.Admin{}).Where("id = ?", adminID).Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormUserRepository) ListAdmins(ctx context.Context, q ListQuery) ([]models.Admin, error) {
	var admins []models.Admin
	db := r.db.WithContext(ctx).
		Model(&models.Admin{}).
		Preload("User").
		Joins("JOIN users ON users.id = admins.user_id")
	if err := q.Apply(db).Find(&admins).Error; err != nil {
		return nil, err
	}
	return admins, nil
}

// DeleteAthlete removes the athlete profile. The underlying user goes too,
// with its refresh tokens, unless it still holds an admin profile.
func (r *GormUserRepository) DeleteAthlete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a models.Athlete
		if err := tx.First(&a, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&a).Error; err != nil {
			return err
		}
		var admins int64
		if err := tx.Model(&models.Admin{}).Where("user_id = ?", a.UserID).Count(&admins).Error; err != nil {
			return err
		}
		if admins > 0 {
			return nil
		}
		if err := tx.Where("user_id = ?", a.UserID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, "id = ?", a.UserID).Error
	})
}

func (r *GormUserRepository) DeleteAdmin(ctx context.Context, id uuid.UUID) error {
	return deleteByID(r.db.WithContext(ctx), &models.Admin{}, id)
}

func (r *GormUserRepository) CreateAdminInvitation(ctx context.Context, inv *models.AdminInvitation) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *GormUserRepository) FindAdminInvitation(ctx context.Context, id uuid.UUID) (*models.AdminInvitation, error) {
	var inv models.AdminInvitation
	if err := r.db.WithContext(ctx).First(&inv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *GormUserRepository) ListAdminInvitations(ctx context.Context, q ListQuery) ([]models.AdminInvitation, error) {
	var invitations []models.AdminInvitation
	if err := q.Apply(r.db.WithContext(ctx).Model(&models.AdminInvitation{})).Find(&invitations).Error; err != nil {
		return nil, err
	}
	return invitations, nil
}

func (r *GormUserRepository) DeleteAdminInvitation(ctx context.Context, id uuid.UUID) error {
	return deleteByID(r.db.WithContext(ctx), &models.AdminInvitation{}, id)
}

// AcceptAdminInvitation creates user when it is not nil, then admin, and
// consumes the invitation. A second accept of the same invitation fails
// with gorm.ErrRecordNotFound and rolls everything back.
func (r *GormUserRepository) AcceptAdminInvitation(ctx context.Context, invitationID uuid.UUID, user *models.User, admin *models.Admin) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.AdminInvitation{}, "id = ?", invitationID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if user != nil {
			if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
				return err
			}
			admin.UserID = user.ID
		}
		return tx.Omit(clause.Associations).Create(admin).Error
	})
}
