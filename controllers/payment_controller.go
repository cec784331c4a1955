package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/24HeuresINSA/OverRun-backend/middleware"
	"github.com/24HeuresINSA/OverRun-backend/models"
	"github.com/24HeuresINSA/OverRun-backend/services"
)

// StripeWebhookParser verifies and decodes a signed Stripe event.
type StripeWebhookParser interface {
	ParseWebhook(payload []byte, signature string) (*services.GatewayNotification, error)
}

// PaymentController handles payments, their reporting and the gateway
// webhooks.
type PaymentController struct {
	Service  services.PaymentService
	Editions ActiveEditionFinder
	Logger   *zap.Logger

	// HelloAssoToken is the shared secret expected on HelloAsso notifications.
	HelloAssoToken string
	// Stripe is nil unless the Stripe gateway is configured.
	Stripe StripeWebhookParser
}

// CreatePayment handles POST /payments
func (pc *PaymentController) CreatePayment(c *gin.Context) {
	var req models.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	payment, svcErr := pc.Service.CreatePayment(c.Request.Context(), middleware.CurrentPrincipal(c), &req)
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

// InitiatePayment handles POST /payments/:id/initiate
func (pc *PaymentController) InitiatePayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}

	payment, svcErr := pc.Service.InitiatePayment(c.Request.Context(), middleware.CurrentPrincipal(c), id, &req)
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// UpdatePayment handles PATCH /payments/:id
func (pc *PaymentController) UpdatePayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}

	payment, svcErr := pc.Service.UpdatePayment(c.Request.Context(), middleware.CurrentPrincipal(c), id, &req)
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// ValidatePayment handles POST /payments/:id/validate by reading the
// checkout outcome back from the gateway.
func (pc *PaymentController) ValidatePayment(c *gin.Context) {
	pc.byID(c, pc.Service.ReconcileWithGateway)
}

// RefusePayment handles POST /payments/:id/refuse
func (pc *PaymentController) RefusePayment(c *gin.Context) {
	pc.byID(c, pc.Service.RefusePayment)
}

// RefundPayment handles POST /payments/:id/refund
func (pc *PaymentController) RefundPayment(c *gin.Context) {
	pc.byID(c, pc.Service.RefundPayment)
}

// GetPayment handles GET /payments/:id
func (pc *PaymentController) GetPayment(c *gin.Context) {
	pc.byID(c, pc.Service.GetPayment)
}

func (pc *PaymentController) byID(c *gin.Context, op func(ctx context.Context, id uuid.UUID) (*models.Payment, *services.ServiceError)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	payment, svcErr := op(c.Request.Context(), id)
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// ListPayments handles GET /payments
func (pc *PaymentController) ListPayments(c *gin.Context) {
	page, svcErr := pc.Service.ListPayments(c.Request.Context(), middleware.ListQuery(c))
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, page)
}

// MyPayments handles GET /payments/me
func (pc *PaymentController) MyPayments(c *gin.Context) {
	payments, svcErr := pc.Service.MyPayments(c.Request.Context(), middleware.CurrentPrincipal(c))
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, payments)
}

// CheckoutQRCode handles GET /payments/:id/qrcode
func (pc *PaymentController) CheckoutQRCode(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "256"))

	png, svcErr := pc.Service.CheckoutQRCode(c.Request.Context(), middleware.CurrentPrincipal(c), id, size)
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// Totals handles GET /payments/totals
func (pc *PaymentController) Totals(c *gin.Context) {
	editionID, ok := resolveEdition(c, pc.Editions)
	if !ok {
		return
	}
	totals, svcErr := pc.Service.Totals(c.Request.Context(), editionID)
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, totals)
}

// AmountByDate handles GET /payments/amountByDate
func (pc *PaymentController) AmountByDate(c *gin.Context) {
	editionID, ok := resolveEdition(c, pc.Editions)
	if !ok {
		return
	}
	series, svcErr := pc.Service.AmountByDate(c.Request.Context(), editionID)
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, series)
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// PaymentsByDate handles GET /payments/byDate. format=csv or format=xlsx
// returns the export as an attachment.
func (pc *PaymentController) PaymentsByDate(c *gin.Context) {
	editionID, ok := resolveEdition(c, pc.Editions)
	if !ok {
		return
	}

	switch c.Query("format") {
	case "csv":
		body, svcErr := pc.Service.PaymentsCSV(c.Request.Context(), editionID)
		if svcErr != nil {
			respondError(c, svcErr)
			return
		}
		c.Header("Content-Disposition", "attachment; filename=export.csv")
		c.Data(http.StatusOK, "text/csv", body)
		return
	case "xlsx":
		body, svcErr := pc.Service.PaymentsXLSX(c.Request.Context(), editionID)
		if svcErr != nil {
			respondError(c, svcErr)
			return
		}
		c.Header("Content-Disposition", "attachment; filename=export.xlsx")
		c.Data(http.StatusOK, xlsxContentType, body)
		return
	}

	days, svcErr := pc.Service.PaymentsByDate(c.Request.Context(), editionID)
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, days)
}
