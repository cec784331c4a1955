package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/24HeuresINSA/OverRun-backend/middleware"
	"github.com/24HeuresINSA/OverRun-backend/models"
	"github.com/24HeuresINSA/OverRun-backend/services"
)

type InscriptionController struct {
	inscriptionService services.InscriptionService
}

func NewInscriptionController(svc services.InscriptionService) *InscriptionController {
	return &InscriptionController{inscriptionService: svc}
}

// CreateInscription handles POST /inscriptions
func (ic *InscriptionController) CreateInscription(ctx *gin.Context) {
	var req models.CreateInscriptionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	inscription, svcErr := ic.inscriptionService.CreateInscription(ctx.Request.Context(), middleware.CurrentPrincipal(ctx), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, inscription)
}

// ListInscriptions handles GET /inscriptions
func (ic *InscriptionController) ListInscriptions(ctx *gin.Context) {
	page, svcErr := ic.inscriptionService.ListInscriptions(ctx.Request.Context(), middleware.ListQuery(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, page)
}

// MyInscriptions handles GET /inscriptions/me
func (ic *InscriptionController) MyInscriptions(ctx *gin.Context) {
	inscriptions, svcErr := ic.inscriptionService.MyInscriptions(ctx.Request.Context(), middleware.CurrentPrincipal(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, inscriptions)
}

// GetInscription handles GET /inscriptions/:id
func (ic *InscriptionController) GetInscription(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	inscription, svcErr := ic.inscriptionService.GetInscription(ctx.Request.Context(), id)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, inscription)
}

// ValidateInscription handles PATCH /inscriptions/:id
func (ic *InscriptionController) ValidateInscription(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req models.ValidateInscriptionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	inscription, svcErr := ic.inscriptionService.ValidateInscription(ctx.Request.Context(), id, *req.Validated)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, inscription)
}

// CancelInscription handles DELETE /inscriptions/:id
func (ic *InscriptionController) CancelInscription(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	inscription, svcErr := ic.inscriptionService.CancelInscription(ctx.Request.Context(), middleware.CurrentPrincipal(ctx), id)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, inscription)
}
