package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/24HeuresINSA/OverRun-backend/middleware"
	"github.com/24HeuresINSA/OverRun-backend/models"
	"github.com/24HeuresINSA/OverRun-backend/services"
)

// MembershipController checks partner association cards.
type MembershipController struct {
	membershipService services.MembershipService
}

func NewMembershipController(svc services.MembershipService) *MembershipController {
	return &MembershipController{membershipService: svc}
}

// CheckMembership handles POST /checkVA
func (mc *MembershipController) CheckMembership(ctx *gin.Context) {
	var req models.CheckMembershipRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	membership, svcErr := mc.membershipService.CheckMembership(ctx.Request.Context(), middleware.CurrentPrincipal(ctx), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, membership)
}

// ListMemberships handles GET /vas
func (mc *MembershipController) ListMemberships(ctx *gin.Context) {
	page, svcErr := mc.membershipService.ListMemberships(ctx.Request.Context(), middleware.ListQuery(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, page)
}
