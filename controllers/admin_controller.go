package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/24HeuresINSA/OverRun-backend/middleware"
	"github.com/24HeuresINSA/OverRun-backend/models"
	"github.com/24HeuresINSA/OverRun-backend/services"
)

type AdminController struct {
	adminService services.AdminService
}

func NewAdminController(svc services.AdminService) *AdminController {
	return &AdminController{adminService: svc}
}

// ListAdmins handles GET /admins
func (ac *AdminController) ListAdmins(ctx *gin.Context) {
	page, svcErr := ac.adminService.ListAdmins(ctx.Request.Context(), middleware.ListQuery(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, page)
}

// GetAdmin handles GET /admins/:id
func (ac *AdminController) GetAdmin(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	admin, svcErr := ac.adminService.GetAdmin(ctx.Request.Context(), id)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, admin)
}

// CreateAdmin handles POST /admins
func (ac *AdminController) CreateAdmin(ctx *gin.Context) {
	var req models.CreateAdminRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	admin, svcErr := ac.adminService.CreateAdmin(ctx.Request.Context(), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, admin)
}

// ActivateAdmin handles PATCH /admins/:id. An empty body toggles the flag.
func (ac *AdminController) ActivateAdmin(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req models.ActivateAdminRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(ctx, err)
		return
	}

	admin, svcErr := ac.adminService.ActivateAdmin(ctx.Request.Context(), middleware.CurrentPrincipal(ctx), id, req.Active)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, admin)
}

// DeleteAdmin handles DELETE /admins/:id
func (ac *AdminController) DeleteAdmin(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if svcErr := ac.adminService.DeleteAdmin(ctx.Request.Context(), middleware.CurrentPrincipal(ctx), id); svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// ListInvitations handles GET /adminInvitations
func (ac *AdminController) ListInvitations(ctx *gin.Context) {
	page, svcErr := ac.adminService.ListInvitations(ctx.Request.Context(), middleware.ListQuery(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, page)
}

// CreateInvitation handles POST /adminInvitations
func (ac *AdminController) CreateInvitation(ctx *gin.Context) {
	var req models.CreateAdminInvitationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	inv, svcErr := ac.adminService.CreateInvitation(ctx.Request.Context(), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, inv)
}

// AcceptInvitation handles POST /adminInvitations/:id. It is public: the
// emailed token is the credential.
func (ac *AdminController) AcceptInvitation(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req models.AcceptAdminInvitationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	admin, svcErr := ac.adminService.AcceptInvitation(ctx.Request.Context(), id, &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, admin)
}

// DeleteInvitation handles DELETE /adminInvitations/:id
func (ac *AdminController) DeleteInvitation(ctx *gin.Context) {
	respondDeleted(ctx, ac.adminService.DeleteInvitation)
}
