package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/24HeuresINSA/OverRun-backend/middleware"
	"github.com/24HeuresINSA/OverRun-backend/models"
	"github.com/24HeuresINSA/OverRun-backend/services"
)

// EditionController serves editions, categories, races and disciplines.
type EditionController struct {
	editionService services.EditionService
}

// NewEditionController creates a new EditionController.
func NewEditionController(svc services.EditionService) *EditionController {
	return &EditionController{editionService: svc}
}

// ListEditions handles GET /editions
func (ec *EditionController) ListEditions(ctx *gin.Context) {
	editions, svcErr := ec.editionService.ListEditions(ctx.Request.Context())
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, editions)
}

// ActiveEdition handles GET /editions/active
func (ec *EditionController) ActiveEdition(ctx *gin.Context) {
	edition, svcErr := ec.editionService.ActiveEdition(ctx.Request.Context())
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, edition)
}

// GetEdition handles GET /editions/:id
func (ec *EditionController) GetEdition(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	edition, svcErr := ec.editionService.GetEdition(ctx.Request.Context(), id)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, edition)
}

// CreateEdition handles POST /editions
func (ec *EditionController) CreateEdition(ctx *gin.Context) {
	var req models.EditionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	edition, svcErr := ec.editionService.CreateEdition(ctx.Request.Context(), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, edition)
}

// UpdateEdition handles PUT /editions/:id
func (ec *EditionController) UpdateEdition(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req models.EditionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	edition, svcErr := ec.editionService.UpdateEdition(ctx.Request.Context(), id, &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, edition)
}

// DeleteEdition handles DELETE /editions/:id
func (ec *EditionController) DeleteEdition(ctx *gin.Context) {
	respondDeleted(ctx, ec.editionService.DeleteEdition)
}

// ListCategories handles GET /categories
func (ec *EditionController) ListCategories(ctx *gin.Context) {
	page, svcErr := ec.editionService.ListCategories(ctx.Request.Context(), middleware.ListQuery(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, page)
}

// GetCategory handles GET /categories/:id
func (ec *EditionController) GetCategory(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	category, svcErr := ec.editionService.GetCategory(ctx.Request.Context(), id)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, category)
}

// CreateCategory handles POST /categories
func (ec *EditionController) CreateCategory(ctx *gin.Context) {
	var req models.CategoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	category, svcErr := ec.editionService.CreateCategory(ctx.Request.Context(), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, category)
}

// UpdateCategory handles PUT /categories/:id
func (ec *EditionController) UpdateCategory(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req models.CategoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	category, svcErr := ec.editionService.UpdateCategory(ctx.Request.Context(), id, &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, category)
}

// DeleteCategory handles DELETE /categories/:id
func (ec *EditionController) DeleteCategory(ctx *gin.Context) {
	respondDeleted(ctx, ec.editionService.DeleteCategory)
}

// ListRaces handles GET /races
func (ec *EditionController) ListRaces(ctx *gin.Context) {
	page, svcErr := ec.editionService.ListRaces(ctx.Request.Context(), middleware.ListQuery(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, page)
}

// GetRace handles GET /races/:id
func (ec *EditionController) GetRace(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	race, svcErr := ec.editionService.GetRace(ctx.Request.Context(), id)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, race)
}

// CreateRace handles POST /races
func (ec *EditionController) CreateRace(ctx *gin.Context) {
	var req models.RaceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	race, svcErr := ec.editionService.CreateRace(ctx.Request.Context(), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, race)
}

// UpdateRace handles PUT /races/:id
func (ec *EditionController) UpdateRace(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req models.RaceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	race, svcErr := ec.editionService.UpdateRace(ctx.Request.Context(), id, &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, race)
}

// DeleteRace handles DELETE /races/:id
func (ec *EditionController) DeleteRace(ctx *gin.Context) {
	respondDeleted(ctx, ec.editionService.DeleteRace)
}

// ListDisciplines handles GET /disciplines
func (ec *EditionController) ListDisciplines(ctx *gin.Context) {
	page, svcErr := ec.editionService.ListDisciplines(ctx.Request.Context(), middleware.ListQuery(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, page)
}

// GetDiscipline handles GET /disciplines/:id
func (ec *EditionController) GetDiscipline(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	discipline, svcErr := ec.editionService.GetDiscipline(ctx.Request.Context(), id)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, discipline)
}

// CreateDiscipline handles POST /disciplines
func (ec *EditionController) CreateDiscipline(ctx *gin.Context) {
	var req models.DisciplineRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	discipline, svcErr := ec.editionService.CreateDiscipline(ctx.Request.Context(), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, discipline)
}

// UpdateDiscipline handles PUT /disciplines/:id
func (ec *EditionController) UpdateDiscipline(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req models.DisciplineRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	discipline, svcErr := ec.editionService.UpdateDiscipline(ctx.Request.Context(), id, &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, discipline)
}

// DeleteDiscipline handles DELETE /disciplines/:id
func (ec *EditionController) DeleteDiscipline(ctx *gin.Context) {
	respondDeleted(ctx, ec.editionService.DeleteDiscipline)
}
