package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
	"github.com/stripe/stripe-go/v80/webhook"
	"go.uber.org/zap"
)

// StripeConfig holds the Stripe credentials used by StripeGateway.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	FrontendURL   string
}

// StripeGateway implements CheckoutGateway with Stripe Checkout Sessions.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	currency      string
	frontendURL   string
	logger        *zap.Logger
}

// NewStripeGateway builds a gateway on its own API client. backends may be
// nil to use Stripe's default endpoints.
func NewStripeGateway(cfg StripeConfig, backends *stripe.Backends, logger *zap.Logger) *StripeGateway {
	api := &client.API{}
	api.Init(cfg.SecretKey, backends)

	currency := cfg.Currency
	if currency == "" {
		currency = string(stripe.CurrencyEUR)
	}
	return &StripeGateway{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		currency:      currency,
		frontendURL:   cfg.FrontendURL,
		logger:        logger,
	}
}

func (g *StripeGateway) Name() string { return "stripe" }

func (g *StripeGateway) lineItem(name string, amount int) *stripe.CheckoutSessionLineItemParams {
	return &stripe.CheckoutSessionLineItemParams{
		Quantity: stripe.Int64(1),
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(g.currency),
			UnitAmount: stripe.Int64(int64(amount)),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(name),
			},
		},
	}
}

func (g *StripeGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	query := url.Values{
		"totalAmount":    {strconv.Itoa(req.TotalAmount)},
		"donationAmount": {strconv.Itoa(req.DonationAmount)},
		"paymentId":      {req.PaymentID.String()},
	}
	query.Set("type", "return")
	successURL := g.frontendURL + "/payment/stripereturn/?" + query.Encode()
	query.Set("type", "error")
	cancelURL := g.frontendURL + "/payment/stripereturn/?" + query.Encode()

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(cancelURL),
		ClientReferenceID: stripe.String(req.PaymentID.String()),
	}
	if req.Payer.Email != "" {
		params.CustomerEmail = stripe.String(req.Payer.Email)
	}
	if req.RaceAmount > 0 {
		params.LineItems = append(params.LineItems, g.lineItem(req.ItemName, req.RaceAmount))
	}
	if req.DonationAmount > 0 {
		params.LineItems = append(params.LineItems, g.lineItem("Don", req.DonationAmount))
	}
	params.AddMetadata("payment_id", req.PaymentID.String())
	params.AddMetadata("inscription_id", req.InscriptionID.String())
	params.Context = ctx

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create stripe checkout session: %w", err)
	}
	return &CheckoutSession{ID: sess.ID, RedirectURL: sess.URL, Raw: g.rawSession(sess)}, nil
}

func (g *StripeGateway) GetCheckout(ctx context.Context, checkoutID string) (*CheckoutStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.AddExpand("payment_intent.latest_charge")
	params.Context = ctx

	sess, err := g.api.CheckoutSessions.Get(checkoutID, params)
	if err != nil {
		return nil, fmt.Errorf("get stripe checkout session: %w", err)
	}

	status := &CheckoutStatus{ID: sess.ID, Raw: g.rawSession(sess)}
	if p, ok := sessionPayment(sess); ok {
		status.Payments = append(status.Payments, p)
	}
	return status, nil
}

// rawSession encodes the session for the payment's gateway payload. The
// payload is informational, so an encoding failure only drops it.
func (g *StripeGateway) rawSession(sess *stripe.CheckoutSession) json.RawMessage {
	raw, err := json.Marshal(sess)
	if err != nil {
		g.logger.Warn("Failed to encode Stripe checkout session",
			zap.String("checkout_id", sess.ID),
			zap.Error(err),
		)
		return nil
	}
	return raw
}

// sessionPayment converts the session's latest charge into a gateway
// payment. Sessions paid without an expanded charge count as authorized.
func sessionPayment(sess *stripe.CheckoutSession) (GatewayPayment, bool) {
	if sess.PaymentIntent != nil && sess.PaymentIntent.LatestCharge != nil {
		ch := sess.PaymentIntent.LatestCharge
		p := GatewayPayment{Date: time.Unix(ch.Created, 0), ReceiptURL: ch.ReceiptURL}
		switch {
		case ch.Refunded:
			p.State = GatewayStateRefunded
		case ch.AmountRefunded > 0:
			p.State = GatewayStateRefunding
		case ch.Paid && ch.Status == stripe.ChargeStatusSucceeded:
			p.State = GatewayStateAuthorized
		default:
			p.State = GatewayStateRefused
		}
		return p, true
	}
	if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		return GatewayPayment{State: GatewayStateAuthorized, Date: time.Unix(sess.Created, 0)}, true
	}
	return GatewayPayment{}, false
}

// sessionPaymentID reads the payment id from the session metadata, then from
// the client reference. It is uuid.Nil when neither holds one, and the
// payment is then found by checkout id.
func sessionPaymentID(sess *stripe.CheckoutSession) uuid.UUID {
	for _, raw := range []string{sess.Metadata["payment_id"], sess.ClientReferenceID} {
		if id, err := uuid.Parse(raw); err == nil {
			return id
		}
	}
	return uuid.Nil
}

// ParseWebhook verifies the Stripe-Signature header and converts completed
// checkout events into a Payment notification. Other events come back with
// their Stripe type as EventType.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*GatewayNotification, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("verify stripe webhook: %w", err)
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
	default:
		return &GatewayNotification{EventType: string(event.Type), Raw: payload}, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	id := sessionPaymentID(&sess)
	if id == uuid.Nil && sess.ID == "" {
		return nil, fmt.Errorf("checkout session carries neither a payment id nor its own id")
	}

	n := &GatewayNotification{
		EventType:  GatewayEventPayment,
		State:      string(sess.PaymentStatus),
		PaymentID:  id,
		CheckoutID: sess.ID,
		Date:       time.Unix(event.Created, 0),
		Raw:        payload,
	}
	if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		n.State = GatewayStateAuthorized
	}
	return n, nil
}
