package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/24HeuresINSA/OverRun-backend/models"
	"github.com/24HeuresINSA/OverRun-backend/services"
)

// ActiveEditionFinder resolves the edition used when a request omits editionId.
type ActiveEditionFinder interface {
	ActiveEdition(ctx context.Context) (*models.Edition, *services.ServiceError)
}

func respondError(ctx *gin.Context, svcErr *services.ServiceError) {
	ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
}

func badRequest(ctx *gin.Context, err error) {
	ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
}

// pathID parses the named path parameter as a UUID, answering 400 when it
// is malformed.
func pathID(ctx *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param(name))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name + "."})
		return uuid.Nil, false
	}
	return id, true
}

// respondDeleted runs remove on the :id path parameter and answers 204.
func respondDeleted(ctx *gin.Context, remove func(context.Context, uuid.UUID) *services.ServiceError) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if svcErr := remove(ctx.Request.Context(), id); svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// resolveEdition reads editionId from the query or the submitted form,
// falling back to the active edition.
func resolveEdition(ctx *gin.Context, editions ActiveEditionFinder) (uuid.UUID, bool) {
	raw := ctx.Query("editionId")
	if raw == "" {
		raw = ctx.PostForm("editionId")
	}
	if raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid editionId."})
			return uuid.Nil, false
		}
		return id, true
	}
	edition, svcErr := editions.ActiveEdition(ctx.Request.Context())
	if svcErr != nil {
		respondError(ctx, svcErr)
		return uuid.Nil, false
	}
	return edition.ID, true
}
