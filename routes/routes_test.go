package routes_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/24HeuresINSA/OverRun-backend/controllers"
	"github.com/24HeuresINSA/OverRun-backend/models"
	"github.com/24HeuresINSA/OverRun-backend/repository"
	"github.com/24HeuresINSA/OverRun-backend/routes"
	"github.com/24HeuresINSA/OverRun-backend/services"
)

// tokenAuth maps bearer tokens to fixed principals.
type tokenAuth map[string]*models.Principal

func (a tokenAuth) Authenticate(_ context.Context, token string) (*models.Principal, *services.ServiceError) {
	p, ok := a[token]
	if !ok {
		return nil, &services.ServiceError{StatusCode: http.StatusUnauthorized, Message: "Invalid access token."}
	}
	return p, nil
}

// raceLister answers race and discipline listings and records the query it
// received. Other EditionService methods are not reached by these tests.
type raceLister struct {
	services.EditionService
	query *repository.ListQuery
}

func (r *raceLister) ListRaces(_ context.Context, q repository.ListQuery) (*models.Page[models.Race], *services.ServiceError) {
	r.query = &q
	return &models.Page[models.Race]{Page: q.Page}, nil
}

func (r *raceLister) ListDisciplines(_ context.Context, q repository.ListQuery) (*models.Page[models.Discipline], *services.ServiceError) {
	r.query = &q
	return &models.Page[models.Discipline]{Page: q.Page}, nil
}

func setupRouter(t *testing.T) (*gin.Engine, *raceLister) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	athleteID, adminID := uuid.New(), uuid.New()
	auth := tokenAuth{
		"athlete": {UserID: uuid.New(), AthleteID: &athleteID, Roles: []string{models.RoleAuthenticatedUser}},
		"admin": {UserID: uuid.New(), AdminID: &adminID,
			Roles: []string{models.RoleAuthenticatedUser, models.RoleAdmin, models.RoleActiveAdmin}},
	}

	editions := &raceLister{}
	handlers := &routes.Controllers{
		Auth:         controllers.NewAuthController(nil),
		Athletes:     controllers.NewAthleteController(nil),
		Editions:     controllers.NewEditionController(editions),
		Inscriptions: controllers.NewInscriptionController(nil),
		Teams:        controllers.NewTeamController(nil),
		Payments:     &controllers.PaymentController{Logger: zap.NewNop()},
		Certificates: &controllers.CertificateController{Logger: zap.NewNop()},
		Memberships:  controllers.NewMembershipController(nil),
		Admins:       controllers.NewAdminController(nil),
	}

	r := gin.New()
	routes.Register(r.Group("/api"), handlers, auth, 50)
	return r, editions
}

func TestRegister_Authentication(t *testing.T) {
	r, _ := setupRouter(t)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"no token", http.MethodGet, "/api/payments/me", "", http.StatusUnauthorized},
		{"unknown token", http.MethodGet, "/api/inscriptions/me", "forged", http.StatusUnauthorized},
		{"athlete on admin listing", http.MethodGet, "/api/payments", "athlete", http.StatusForbidden},
		{"athlete creating a race", http.MethodPost, "/api/races", "athlete", http.StatusForbidden},
		{"athlete managing admins", http.MethodGet, "/api/admins", "athlete", http.StatusForbidden},
		{"athlete deleting an edition", http.MethodDelete, "/api/editions/" + uuid.NewString(), "athlete", http.StatusForbidden},
		{"athlete deleting an athlete", http.MethodDelete, "/api/athletes/" + uuid.NewString(), "athlete", http.StatusForbidden},
		{"athlete listing disciplines", http.MethodGet, "/api/disciplines", "athlete", http.StatusForbidden},
		{"athlete inviting an admin", http.MethodPost, "/api/adminInvitations", "athlete", http.StatusForbidden},
		{"invitation accept is public", http.MethodPost, "/api/adminInvitations/" + uuid.NewString(), "", http.StatusBadRequest},
		{"athlete validating an inscription", http.MethodPatch, "/api/inscriptions/" + uuid.NewString(), "athlete", http.StatusForbidden},
		{"stripe webhook disabled", http.MethodPost, "/api/stripe/webhook", "", http.StatusNotFound},
		{"helloasso webhook without token", http.MethodPost, "/api/helloassonotifications", "", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestRegister_PublicRaces(t *testing.T) {
	r, editions := setupRouter(t)
	editionID := uuid.New()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/races?editionId="+editionID.String()+"&limit=500&page=2", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, editions.query)
	assert.Equal(t, 2, editions.query.Page)
	assert.Equal(t, 50, editions.query.Limit)
	assert.Equal(t, "races.name", editions.query.OrderColumn)
	require.Len(t, editions.query.Filters, 1)
	assert.Equal(t, "races.edition_id", editions.query.Filters[0].Column)
}

func TestRegister_RaceFilterRejectsBadUUID(t *testing.T) {
	r, editions := setupRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/races?categoryId=nope", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, editions.query)
}

func TestRegister_Disciplines(t *testing.T) {
	r, editions := setupRouter(t)
	editionID := uuid.New()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/disciplines?editionId="+editionID.String()+"&search=velo", nil)
	req.Header.Set("Authorization", "Bearer admin")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, editions.query)
	assert.Equal(t, "velo", editions.query.Search)
	assert.Equal(t, []string{"disciplines.name"}, editions.query.SearchColumns)
	require.Len(t, editions.query.Filters, 1)
	assert.Equal(t, "disciplines.edition_id", editions.query.Filters[0].Column)
}
