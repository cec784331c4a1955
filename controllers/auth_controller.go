package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/24HeuresINSA/OverRun-backend/middleware"
	"github.com/24HeuresINSA/OverRun-backend/models"
	"github.com/24HeuresINSA/OverRun-backend/services"
)

// AuthController handles login, token refresh and logout.
type AuthController struct {
	authService services.AuthService
}

// NewAuthController creates a new AuthController.
func NewAuthController(svc services.AuthService) *AuthController {
	return &AuthController{authService: svc}
}

// Login handles POST /login
func (ac *AuthController) Login(ctx *gin.Context) {
	var req models.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	pair, svcErr := ac.authService.Login(ctx.Request.Context(), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, pair)
}

// Refresh handles POST /refresh
func (ac *AuthController) Refresh(ctx *gin.Context) {
	var req models.RefreshRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	pair, svcErr := ac.authService.Refresh(ctx.Request.Context(), req.RefreshToken)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, pair)
}

// Logout handles POST /logout
func (ac *AuthController) Logout(ctx *gin.Context) {
	var req models.RefreshRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	if svcErr := ac.authService.Logout(ctx.Request.Context(), req.RefreshToken); svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// Me handles GET /me
func (ac *AuthController) Me(ctx *gin.Context) {
	user, svcErr := ac.authService.Me(ctx.Request.Context(), middleware.CurrentPrincipal(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, user)
}
