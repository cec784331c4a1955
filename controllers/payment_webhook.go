package controllers

import (
	"crypto/subtle"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/24HeuresINSA/OverRun-backend/services"
)

const maxWebhookBytes = 64 << 10

// HelloAssoWebhook receives HelloAsso notifications. The shared secret is
// passed as the token query parameter.
func (pc *PaymentController) HelloAssoWebhook(c *gin.Context) {
	token := c.Query("token")
	if pc.HelloAssoToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(pc.HelloAssoToken)) != 1 {
		pc.Logger.Warn("HelloAsso notification with invalid token", zap.String("client_ip", c.ClientIP()))
		c.Status(http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}
	n, err := services.ParseHelloAssoNotification(body)
	if err != nil {
		pc.Logger.Warn("Malformed HelloAsso notification", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}

	pc.dispatch(c, n)
}

// StripeWebhook receives Stripe events signed with the webhook secret.
func (pc *PaymentController) StripeWebhook(c *gin.Context) {
	if pc.Stripe == nil {
		c.Status(http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}
	n, err := pc.Stripe.ParseWebhook(body, c.GetHeader("Stripe-Signature"))
	if err != nil {
		pc.Logger.Warn("Stripe webhook signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}

	pc.dispatch(c, n)
}

// dispatch applies a notification. Only server-side failures are reported
// back so the provider retries; everything else is acknowledged.
func (pc *PaymentController) dispatch(c *gin.Context, n *services.GatewayNotification) {
	pc.Logger.Info("Processing gateway notification",
		zap.String("event_type", n.EventType),
		zap.String("state", n.State),
		zap.String("payment_id", n.PaymentID.String()),
	)

	payment, svcErr := pc.Service.HandleGatewayNotification(c.Request.Context(), n)
	if svcErr != nil {
		if svcErr.StatusCode >= http.StatusInternalServerError {
			respondError(c, svcErr)
			return
		}
		pc.Logger.Info("Gateway notification not applied",
			zap.String("payment_id", n.PaymentID.String()),
			zap.String("reason", svcErr.Message),
		)
	} else if payment != nil {
		pc.Logger.Info("Payment updated from notification",
			zap.String("payment_id", payment.ID.String()),
			zap.String("status", payment.Status),
		)
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
