package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/24HeuresINSA/OverRun-backend/models"
)

// TeamRepository defines data-access operations for teams, their members
// (inscriptions pointing at the team) and their admins.
type TeamRepository interface {
	CreateWithAdmin(ctx context.Context, team *models.Team, creator *models.Inscription) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Team, error)
	CountByRace(ctx context.Context, raceID uuid.UUID) (int64, error)
	CountMembers(ctx context.Context, teamID uuid.UUID) (int64, error)
	CountAdmins(ctx context.Context, teamID uuid.UUID) (int64, error)
	AddMember(ctx context.Context, teamID uuid.UUID, inscription *models.Inscription) error
	RemoveMember(ctx context.Context, teamID, inscriptionID uuid.UUID) error
	AddAdmin(ctx context.Context, teamID, inscriptionID uuid.UUID) error
	RemoveAdmin(ctx context.Context, teamID, inscriptionID uuid.UUID) error
	UpdatePassword(ctx context.Context, teamID uuid.UUID, hash string) error
	Delete(ctx context.Context, teamID uuid.UUID) error
	List(ctx context.Context, q ListQuery) ([]models.Team, error)
	ListLight(ctx context.Context, q ListQuery) ([]models.TeamLight, error)
}

type GormTeamRepository struct {
	db *gorm.DB
}

func NewGormTeamRepository(db *gorm.DB) TeamRepository {
	return &GormTeamRepository{db: db}
}

// attach points inscription at the team, creating it when it has no ID yet.
func attach(tx *gorm.DB, teamID uuid.UUID, inscription *models.Inscription) error {
	inscription.TeamID = &teamID
	if inscription.ID == uuid.Nil {
		return tx.Omit(clause.Associations).Create(inscription).Error
	}
	return tx.Model(&models.Inscription{}).
		Where("id = ?", inscription.ID).
		Update("team_id", teamID).Error
}

// CreateWithAdmin creates the team, attaches the creator's inscription and
// makes it team admin in a single transaction.
func (r *GormTeamRepository) CreateWithAdmin(ctx context.Context, team *models.Team, creator *models.Inscription) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(team).Error; err != nil {
			return err
		}
		if err := attach(tx, team.ID, creator); err != nil {
			return err
		}
		return tx.Create(&models.TeamAdmin{TeamID: team.ID, InscriptionID: creator.ID}).Error
	})
}

func (r *GormTeamRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	var t models.Team
	if err := r.db.WithContext(ctx).
		Preload("Race").
		Preload("Race.Category").
		Preload("Members", "status <> ?", models.InscriptionStatusCancelled).
		Preload("Members.Athlete").
		Preload("Admins").
		First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *GormTeamRepository) CountByRace(ctx context.Context, raceID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Team{}).Where("race_id = ?", raceID).Count(&n).Error
	return n, err
}

func (r *GormTeamRepository) CountMembers(ctx context.Context, teamID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Inscription{}).
		Where("team_id = ? AND status <> ?", teamID, models.InscriptionStatusCancelled).
		Count(&n).Error
	return n, err
}

func (r *GormTeamRepository) CountAdmins(ctx context.Context, teamID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.TeamAdmin{}).Where("team_id = ?", teamID).Count(&n).Error
	return n, err
}

func (r *GormTeamRepository) AddMember(ctx context.Context, teamID uuid.UUID, inscription *models.Inscription) error {
	return attach(r.db.WithContext(ctx), teamID, inscription)
}

// RemoveMember detaches the inscription and drops its admin right, if any.
func (r *GormTeamRepository) RemoveMember(ctx context.Context, teamID, inscriptionID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("team_id = ? AND inscription_id = ?", teamID, inscriptionID).
			Delete(&models.TeamAdmin{}).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Inscription{}).
			Where("id = ? AND team_id = ?", inscriptionID, teamID).
			Update("team_id", nil)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *GormTeamRepository) AddAdmin(ctx context.Context, teamID, inscriptionID uuid.UUID) error {
	return r.db.WithContext(ctx).Create(&models.TeamAdmin{TeamID: teamID, InscriptionID: inscriptionID}).Error
}

func (r *GormTeamRepository) RemoveAdmin(ctx context.Context, teamID, inscriptionID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("team_id = ? AND inscription_id = ?", teamID, inscriptionID).
		Delete(&models.TeamAdmin{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormTeamRepository) UpdatePassword(ctx context.Context, teamID uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).Model(&models.Team{}).Where("id = ?", teamID).Update("password", hash).Error
}

// Delete removes the team; its members keep their inscriptions without a team.
func (r *GormTeamRepository) Delete(ctx context.Context, teamID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("team_id = ?", teamID).Delete(&models.TeamAdmin{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Inscription{}).Where("team_id = ?", teamID).Update("team_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Team{}, "id = ?", teamID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *GormTeamRepository) List(ctx context.Context, q ListQuery) ([]models.Team, error) {
	var teams []models.Team
	db := r.db.WithContext(ctx).
		Model(&models.Team{}).
		Preload("Race").
		Preload("Members", "status <> ?", models.InscriptionStatusCancelled).
		Preload("Members.Athlete").
		Preload("Admins")
	if err := q.Apply(db).Find(&teams).Error; err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *GormTeamRepository) ListLight(ctx context.Context, q ListQuery) ([]models.TeamLight, error) {
	var rows []models.TeamLight
	db := r.db.WithContext(ctx).
		Model(&models.Team{}).
		Select("teams.id, teams.name, teams.race_id, COUNT(inscriptions.id) AS member_count").
		Joins("LEFT JOIN inscriptions ON inscriptions.team_id = teams.id AND inscriptions.status <> ?", models.InscriptionStatusCancelled).
		Group("teams.id")
	if err := q.Apply(db).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
