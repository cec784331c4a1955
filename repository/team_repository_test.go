package repository_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/24HeuresINSA/OverRun-backend/models"
	"github.com/24HeuresINSA/OverRun-backend/repository"
)

func TestTeamCreateWithAdmin_ExistingInscription(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormTeamRepository(gormDB)

	teamID := uuid.New()
	team := &models.Team{Name: "Les Rapides", Password: "hash", RaceID: uuid.New(), EditionID: uuid.New()}
	inscription := &models.Inscription{ID: uuid.New()}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "teams"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(teamID))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "inscriptions" SET "team_id"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "team_admins"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectCommit()

	err := repo.CreateWithAdmin(context.Background(), team, inscription)
	assert.NoError(t, err)
	assert.Equal(t, teamID, *inscription.TeamID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamRemoveMember_NotInTeam(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormTeamRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "team_admins"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "inscriptions" SET "team_id"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.RemoveMember(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamCountMembers(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormTeamRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "inscriptions"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := repo.CountMembers(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
