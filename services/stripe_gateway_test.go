package services_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"
	"go.uber.org/zap"

	"github.com/24HeuresINSA/OverRun-backend/services"
)

const testWebhookSecret = "whsec_test"

func newStripeGateway(t *testing.T, handler http.HandlerFunc) *services.StripeGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return services.NewStripeGateway(services.StripeConfig{
		SecretKey:     "sk_test_123",
		WebhookSecret: testWebhookSecret,
		Currency:      "eur",
		FrontendURL:   "https://overrun.example",
	}, &stripe.Backends{API: backend, Connect: backend, Uploads: backend}, zap.NewNop())
}

func TestStripeCreateCheckout(t *testing.T) {
	paymentID := uuid.New()
	gw := newStripeGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.Form.Get("mode"))
		assert.Equal(t, paymentID.String(), r.Form.Get("metadata[payment_id]"))
		assert.Equal(t, "2000", r.Form.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "500", r.Form.Get("line_items[1][price_data][unit_amount]"))
		assert.Equal(t, "eur", r.Form.Get("line_items[0][price_data][currency]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1","payment_status":"unpaid"}`))
	})

	session, err := gw.CreateCheckout(context.Background(), services.CheckoutRequest{
		PaymentID:      paymentID,
		InscriptionID:  uuid.New(),
		TotalAmount:    2500,
		RaceAmount:     2000,
		DonationAmount: 500,
		ItemName:       services.CheckoutItemName,
	})

	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", session.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", session.RedirectURL)
	assert.Contains(t, string(session.Raw), `"id":"cs_test_1"`)
}

func TestStripeGetCheckout_ChargeStates(t *testing.T) {
	tests := []struct {
		name   string
		charge string
		want   string
	}{
		{name: "paid", charge: `{"id":"ch_1","object":"charge","paid":true,"status":"succeeded","created":1773482400,"receipt_url":"https://receipt/ch_1"}`, want: services.GatewayStateAuthorized},
		{name: "partially refunded", charge: `{"id":"ch_1","object":"charge","paid":true,"status":"succeeded","amount_refunded":500,"created":1773482400}`, want: services.GatewayStateRefunding},
		{name: "refunded", charge: `{"id":"ch_1","object":"charge","paid":true,"status":"succeeded","refunded":true,"amount_refunded":2500,"created":1773482400}`, want: services.GatewayStateRefunded},
		{name: "failed", charge: `{"id":"ch_1","object":"charge","paid":false,"status":"failed","created":1773482400}`, want: services.GatewayStateRefused},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newStripeGateway(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/v1/checkout/sessions/cs_test_1", r.URL.Path)
				assert.Equal(t, "payment_intent.latest_charge", r.URL.Query().Get("expand[0]"))
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","payment_status":"paid",
					"payment_intent":{"id":"pi_1","object":"payment_intent","latest_charge":` + tt.charge + `}}`))
			})

			status, err := gw.GetCheckout(context.Background(), "cs_test_1")

			require.NoError(t, err)
			require.Len(t, status.Payments, 1)
			assert.Equal(t, tt.want, status.Payments[0].State)
			assert.Equal(t, int64(1773482400), status.Payments[0].Date.Unix())
		})
	}
}

func TestStripeGetCheckout_Unpaid(t *testing.T) {
	gw := newStripeGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","payment_status":"unpaid"}`))
	})

	status, err := gw.GetCheckout(context.Background(), "cs_test_1")

	require.NoError(t, err)
	assert.Empty(t, status.Payments)
}

func signedEvent(t *testing.T, payload string) (string, []byte) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return signed.Header, signed.Payload
}

func TestStripeParseWebhook(t *testing.T) {
	gw := newStripeGateway(t, func(w http.ResponseWriter, r *http.Request) {})
	paymentID := uuid.New()

	t.Run("completed and paid", func(t *testing.T) {
		header, body := signedEvent(t, `{"id":"evt_1","object":"event","type":"checkout.session.completed","created":1773482400,
			"data":{"object":{"id":"cs_test_1","object":"checkout.session","payment_status":"paid","metadata":{"payment_id":"`+paymentID.String()+`"}}}}`)

		n, err := gw.ParseWebhook(body, header)

		require.NoError(t, err)
		assert.Equal(t, services.GatewayEventPayment, n.EventType)
		assert.Equal(t, services.GatewayStateAuthorized, n.State)
		assert.Equal(t, paymentID, n.PaymentID)
		assert.Equal(t, "cs_test_1", n.CheckoutID)
	})

	t.Run("completed but unpaid", func(t *testing.T) {
		header, body := signedEvent(t, `{"id":"evt_2","object":"event","type":"checkout.session.completed","created":1773482400,
			"data":{"object":{"id":"cs_test_2","object":"checkout.session","payment_status":"unpaid","metadata":{"payment_id":"`+paymentID.String()+`"}}}}`)

		n, err := gw.ParseWebhook(body, header)

		require.NoError(t, err)
		assert.NotEqual(t, services.GatewayStateAuthorized, n.State)
	})

	t.Run("client reference when metadata is missing", func(t *testing.T) {
		header, body := signedEvent(t, `{"id":"evt_5","object":"event","type":"checkout.session.completed","created":1773482400,
			"data":{"object":{"id":"cs_test_5","object":"checkout.session","payment_status":"paid","client_reference_id":"`+paymentID.String()+`"}}}`)

		n, err := gw.ParseWebhook(body, header)

		require.NoError(t, err)
		assert.Equal(t, paymentID, n.PaymentID)
	})

	t.Run("checkout id only", func(t *testing.T) {
		header, body := signedEvent(t, `{"id":"evt_6","object":"event","type":"checkout.session.completed","created":1773482400,
			"data":{"object":{"id":"cs_test_6","object":"checkout.session","payment_status":"paid"}}}`)

		n, err := gw.ParseWebhook(body, header)

		require.NoError(t, err)
		assert.Equal(t, uuid.Nil, n.PaymentID)
		assert.Equal(t, "cs_test_6", n.CheckoutID)
		assert.Equal(t, services.GatewayStateAuthorized, n.State)
	})

	t.Run("other event", func(t *testing.T) {
		header, body := signedEvent(t, `{"id":"evt_3","object":"event","type":"customer.created","created":1773482400,"data":{"object":{}}}`)

		n, err := gw.ParseWebhook(body, header)

		require.NoError(t, err)
		assert.Equal(t, "customer.created", n.EventType)
	})

	t.Run("bad signature", func(t *testing.T) {
		_, err := gw.ParseWebhook([]byte(`{"id":"evt_4"}`), "t=1,v1=deadbeef")
		assert.Error(t, err)
	})
}
