package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/24HeuresINSA/OverRun-backend/models"
)

// Gateway payment states, as reported by the checkout provider.
const (
	GatewayStateAuthorized = "Authorized"
	GatewayStateRefunding  = "Refunding"
	GatewayStateRefunded   = "Refunded"
	GatewayStateRefused    = "Refused"

	GatewayEventPayment = "Payment"
)

// Payer is the identity prefilled on the hosted checkout page.
type Payer struct {
	FirstName string
	LastName  string
	Email     string
	Address   string
	City      string
	ZipCode   string
	Country   string
}

// CheckoutRequest describes the amounts of one checkout. Amounts are cents.
type CheckoutRequest struct {
	PaymentID      uuid.UUID
	InscriptionID  uuid.UUID
	TotalAmount    int
	RaceAmount     int
	DonationAmount int
	ItemName       string
	Payer          Payer
}

// CheckoutSession is an opened hosted checkout.
type CheckoutSession struct {
	ID          string
	RedirectURL string
	Raw         json.RawMessage
}

// GatewayPayment is one payment attempt attached to a checkout.
type GatewayPayment struct {
	State      string
	Date       time.Time
	ReceiptURL string
}

// CheckoutStatus is the provider's view of a checkout.
type CheckoutStatus struct {
	ID       string
	Payments []GatewayPayment
	Raw      json.RawMessage
}

// GatewayNotification is a provider-neutral webhook event.
type GatewayNotification struct {
	EventType  string
	State      string
	PaymentID  uuid.UUID
	CheckoutID string
	ReceiptURL string
	Date       time.Time
	Raw        json.RawMessage
}

// CheckoutGateway opens hosted checkouts and reads back their outcome.
type CheckoutGateway interface {
	Name() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	GetCheckout(ctx context.Context, checkoutID string) (*CheckoutStatus, error)
}

// resolveGatewayStatus maps the gateway payments of a checkout onto a
// payment status. Authorized wins over Refunding, which wins over Refunded.
// No payment at all means the checkout was refused. ok is false when no
// payment matches a known state.
func resolveGatewayStatus(payments []GatewayPayment) (status string, match *GatewayPayment, ok bool) {
	if len(payments) == 0 {
		return models.PaymentStatusRefused, nil, true
	}
	for _, candidate := range []struct {
		state  string
		status string
	}{
		{GatewayStateAuthorized, models.PaymentStatusValidated},
		{GatewayStateRefunding, models.PaymentStatusRefunding},
		{GatewayStateRefunded, models.PaymentStatusRefund},
	} {
		for i := range payments {
			if payments[i].State == candidate.state {
				return candidate.status, &payments[i], true
			}
		}
	}
	return "", nil, false
}
