package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/24HeuresINSA/OverRun-backend/middleware"
	"github.com/24HeuresINSA/OverRun-backend/models"
	"github.com/24HeuresINSA/OverRun-backend/services"
)

type AthleteController struct {
	athleteService services.AthleteService
}

func NewAthleteController(svc services.AthleteService) *AthleteController {
	return &AthleteController{athleteService: svc}
}

// Signup handles POST /athletes
func (ac *AthleteController) Signup(ctx *gin.Context) {
	var req models.SignupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	athlete, svcErr := ac.athleteService.Signup(ctx.Request.Context(), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, athlete)
}

// GetMe handles GET /athletes/me
func (ac *AthleteController) GetMe(ctx *gin.Context) {
	athlete, svcErr := ac.athleteService.GetMe(ctx.Request.Context(), middleware.CurrentPrincipal(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, athlete)
}

// UpdateMe handles PUT /athletes/me
func (ac *AthleteController) UpdateMe(ctx *gin.Context) {
	var req models.UpdateAthleteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	athlete, svcErr := ac.athleteService.UpdateMe(ctx.Request.Context(), middleware.CurrentPrincipal(ctx), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, athlete)
}

// ListAthletes handles GET /athletes
func (ac *AthleteController) ListAthletes(ctx *gin.Context) {
	page, svcErr := ac.athleteService.ListAthletes(ctx.Request.Context(), middleware.ListQuery(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, page)
}

// GetAthlete handles GET /athletes/:id. Athletes may only read their own
// profile.
func (ac *AthleteController) GetAthlete(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	principal := middleware.CurrentPrincipal(ctx)
	if !principal.IsAdmin() && !principal.Owns(id) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized."})
		return
	}

	athlete, svcErr := ac.athleteService.GetAthlete(ctx.Request.Context(), id)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, athlete)
}

// UpdateAthlete handles PUT /athletes/:id
func (ac *AthleteController) UpdateAthlete(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req models.UpdateAthleteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	athlete, svcErr := ac.athleteService.UpdateAthlete(ctx.Request.Context(), middleware.CurrentPrincipal(ctx), id, &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, athlete)
}

// DeleteAthlete handles DELETE /athletes/:id
func (ac *AthleteController) DeleteAthlete(ctx *gin.Context) {
	respondDeleted(ctx, ac.athleteService.DeleteAthlete)
}
