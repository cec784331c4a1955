package controllers_test

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/24HeuresINSA/OverRun-backend/middleware"
	"github.com/24HeuresINSA/OverRun-backend/models"
	"github.com/24HeuresINSA/OverRun-backend/repository"
	"github.com/24HeuresINSA/OverRun-backend/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// withPrincipal stands in for middleware.Auth in handler tests.
func withPrincipal(p *models.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.PrincipalKey, p)
		c.Next()
	}
}

func athlete() *models.Principal {
	id := uuid.New()
	return &models.Principal{UserID: uuid.New(), AthleteID: &id, Roles: []string{models.RoleAuthenticatedUser}}
}

func activeAdmin() *models.Principal {
	id := uuid.New()
	return &models.Principal{UserID: uuid.New(), AdminID: &id,
		Roles: []string{models.RoleAuthenticatedUser, models.RoleAdmin, models.RoleActiveAdmin}}
}

// ---- concrete mock implementing services.PaymentService ----

type mockPaymentSvc struct {
	payment      *models.Payment
	err          *services.ServiceError
	notification *services.GatewayNotification
	png          []byte
	csv          []byte
	days         []models.PaymentsByDay
	editionID    uuid.UUID
	qrSize       int
	initiate     *models.InitiatePaymentRequest
}

func (m *mockPaymentSvc) CreatePayment(context.Context, *models.Principal, *models.CreatePaymentRequest) (*models.Payment, *services.ServiceError) {
	return m.payment, m.err
}
func (m *mockPaymentSvc) InitiatePayment(_ context.Context, _ *models.Principal, _ uuid.UUID, req *models.InitiatePaymentRequest) (*models.Payment, *services.ServiceError) {
	m.initiate = req
	return m.payment, m.err
}
func (m *mockPaymentSvc) UpdatePayment(context.Context, *models.Principal, uuid.UUID, *models.UpdatePaymentRequest) (*models.Payment, *services.ServiceError) {
	return m.payment, m.err
}
func (m *mockPaymentSvc) ReconcileWithGateway(context.Context, uuid.UUID) (*models.Payment, *services.ServiceError) {
	return m.payment, m.err
}
func (m *mockPaymentSvc) HandleGatewayNotification(_ context.Context, n *services.GatewayNotification) (*models.Payment, *services.ServiceError) {
	m.notification = n
	return m.payment, m.err
}
func (m *mockPaymentSvc) RefusePayment(context.Context, uuid.UUID) (*models.Payment, *services.ServiceError) {
	return m.payment, m.err
}
func (m *mockPaymentSvc) RefundPayment(context.Context, uuid.UUID) (*models.Payment, *services.ServiceError) {
	return m.payment, m.err
}
func (m *mockPaymentSvc) GetPayment(context.Context, uuid.UUID) (*models.Payment, *services.ServiceError) {
	return m.payment, m.err
}
func (m *mockPaymentSvc) ListPayments(context.Context, repository.ListQuery) (*models.Page[models.Payment], *services.ServiceError) {
	return &models.Page[models.Payment]{Page: 1}, m.err
}
func (m *mockPaymentSvc) MyPayments(context.Context, *models.Principal) ([]models.Payment, *services.ServiceError) {
	return nil, m.err
}
func (m *mockPaymentSvc) CheckoutQRCode(_ context.Context, _ *models.Principal, _ uuid.UUID, size int) ([]byte, *services.ServiceError) {
	m.qrSize = size
	return m.png, m.err
}
func (m *mockPaymentSvc) Totals(_ context.Context, editionID uuid.UUID) ([]models.PaymentTotals, *services.ServiceError) {
	m.editionID = editionID
	return []models.PaymentTotals{}, m.err
}
func (m *mockPaymentSvc) AmountByDate(_ context.Context, editionID uuid.UUID) (*models.AmountSeries, *services.ServiceError) {
	m.editionID = editionID
	return &models.AmountSeries{}, m.err
}
func (m *mockPaymentSvc) PaymentsByDate(_ context.Context, editionID uuid.UUID) ([]models.PaymentsByDay, *services.ServiceError) {
	m.editionID = editionID
	return m.days, m.err
}
func (m *mockPaymentSvc) PaymentsCSV(_ context.Context, editionID uuid.UUID) ([]byte, *services.ServiceError) {
	m.editionID = editionID
	return m.csv, m.err
}
func (m *mockPaymentSvc) PaymentsXLSX(_ context.Context, editionID uuid.UUID) ([]byte, *services.ServiceError) {
	m.editionID = editionID
	return m.csv, m.err
}

type fixedEdition struct {
	edition *models.Edition
	err     *services.ServiceError
}

func (f fixedEdition) ActiveEdition(context.Context) (*models.Edition, *services.ServiceError) {
	return f.edition, f.err
}

// ---- concrete mock implementing services.TeamService ----

type mockTeamSvc struct {
	team          *models.Team
	err           *services.ServiceError
	teamID        uuid.UUID
	inscriptionID uuid.UUID
	called        string
}

func (m *mockTeamSvc) record(op string, teamID, inscriptionID uuid.UUID) *services.ServiceError {
	m.called, m.teamID, m.inscriptionID = op, teamID, inscriptionID
	return m.err
}

func (m *mockTeamSvc) CreateTeam(context.Context, *models.Principal, *models.CreateTeamRequest) (*models.Team, *services.ServiceError) {
	return m.team, m.err
}
func (m *mockTeamSvc) JoinTeam(_ context.Context, _ *models.Principal, teamID uuid.UUID, _ *models.JoinTeamRequest) (*models.Inscription, *services.ServiceError) {
	m.teamID = teamID
	return &models.Inscription{TeamID: &teamID}, m.err
}
func (m *mockTeamSvc) LeaveTeam(_ context.Context, _ *models.Principal, teamID uuid.UUID) *services.ServiceError {
	return m.record("leave", teamID, uuid.Nil)
}
func (m *mockTeamSvc) AddTeamAdmin(_ context.Context, _ *models.Principal, teamID, inscriptionID uuid.UUID) *services.ServiceError {
	return m.record("addAdmin", teamID, inscriptionID)
}
func (m *mockTeamSvc) RemoveTeamAdmin(_ context.Context, _ *models.Principal, teamID, inscriptionID uuid.UUID) *services.ServiceError {
	return m.record("removeAdmin", teamID, inscriptionID)
}
func (m *mockTeamSvc) RemoveTeamMember(_ context.Context, _ *models.Principal, teamID, inscriptionID uuid.UUID) *services.ServiceError {
	return m.record("removeMember", teamID, inscriptionID)
}
func (m *mockTeamSvc) UpdateTeamPassword(_ context.Context, _ *models.Principal, teamID uuid.UUID, _ *models.UpdateTeamPasswordRequest) *services.ServiceError {
	return m.record("password", teamID, uuid.Nil)
}
func (m *mockTeamSvc) GetTeam(context.Context, uuid.UUID) (*models.Team, *services.ServiceError) {
	return m.team, m.err
}
func (m *mockTeamSvc) ListTeams(context.Context, repository.ListQuery) (*models.Page[models.Team], *services.ServiceError) {
	return &models.Page[models.Team]{Page: 1}, m.err
}
func (m *mockTeamSvc) ListTeamsLight(context.Context, repository.ListQuery) (*models.Page[models.TeamLight], *services.ServiceError) {
	return &models.Page[models.TeamLight]{Page: 1}, m.err
}
func (m *mockTeamSvc) DeleteTeam(_ context.Context, teamID uuid.UUID) *services.ServiceError {
	return m.record("delete", teamID, uuid.Nil)
}
