package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/24HeuresINSA/OverRun-backend/middleware"
	"github.com/24HeuresINSA/OverRun-backend/models"
	"github.com/24HeuresINSA/OverRun-backend/services"
)

// TeamController handles team creation, membership and team admins.
type TeamController struct {
	teamService services.TeamService
}

// NewTeamController creates a new TeamController.
func NewTeamController(svc services.TeamService) *TeamController {
	return &TeamController{teamService: svc}
}

// CreateTeam handles POST /teams
func (tc *TeamController) CreateTeam(ctx *gin.Context) {
	var req models.CreateTeamRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	team, svcErr := tc.teamService.CreateTeam(ctx.Request.Context(), middleware.CurrentPrincipal(ctx), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, team)
}

// JoinTeam handles POST /teams/:id/join
func (tc *TeamController) JoinTeam(ctx *gin.Context) {
	teamID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req models.JoinTeamRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	inscription, svcErr := tc.teamService.JoinTeam(ctx.Request.Context(), middleware.CurrentPrincipal(ctx), teamID, &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, inscription)
}

// LeaveTeam handles POST /teams/:id/leave
func (tc *TeamController) LeaveTeam(ctx *gin.Context) {
	teamID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if svcErr := tc.teamService.LeaveTeam(ctx.Request.Context(), middleware.CurrentPrincipal(ctx), teamID); svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// AddTeamAdmin handles POST /teams/:id/admin
func (tc *TeamController) AddTeamAdmin(ctx *gin.Context) {
	tc.memberAction(ctx, tc.teamService.AddTeamAdmin)
}

// RemoveTeamAdmin handles POST /teams/:id/removeAdmin
func (tc *TeamController) RemoveTeamAdmin(ctx *gin.Context) {
	tc.memberAction(ctx, tc.teamService.RemoveTeamAdmin)
}

// RemoveTeamMember handles POST /teams/:id/removeMember
func (tc *TeamController) RemoveTeamMember(ctx *gin.Context) {
	tc.memberAction(ctx, tc.teamService.RemoveTeamMember)
}

type memberOp func(ctx context.Context, principal *models.Principal, teamID, inscriptionID uuid.UUID) *services.ServiceError

func (tc *TeamController) memberAction(ctx *gin.Context, op memberOp) {
	teamID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req models.TeamMemberRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	if svcErr := op(ctx.Request.Context(), middleware.CurrentPrincipal(ctx), teamID, req.InscriptionID); svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// UpdateTeamPassword handles POST /teams/:id/updatePassword
func (tc *TeamController) UpdateTeamPassword(ctx *gin.Context) {
	teamID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req models.UpdateTeamPasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	if svcErr := tc.teamService.UpdateTeamPassword(ctx.Request.Context(), middleware.CurrentPrincipal(ctx), teamID, &req); svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// GetTeam handles GET /teams/:id
func (tc *TeamController) GetTeam(ctx *gin.Context) {
	teamID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	team, svcErr := tc.teamService.GetTeam(ctx.Request.Context(), teamID)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, team)
}

// ListTeams handles GET /teams
func (tc *TeamController) ListTeams(ctx *gin.Context) {
	page, svcErr := tc.teamService.ListTeams(ctx.Request.Context(), middleware.ListQuery(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, page)
}

// ListTeamsLight handles GET /teams/light
func (tc *TeamController) ListTeamsLight(ctx *gin.Context) {
	page, svcErr := tc.teamService.ListTeamsLight(ctx.Request.Context(), middleware.ListQuery(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, page)
}

// DeleteTeam handles DELETE /teams/:id
func (tc *TeamController) DeleteTeam(ctx *gin.Context) {
	teamID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if svcErr := tc.teamService.DeleteTeam(ctx.Request.Context(), teamID); svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.Status(http.StatusNoContent)
}
