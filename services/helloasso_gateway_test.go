package services_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/24HeuresINSA/OverRun-backend/services"
)

func newHelloAssoServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *services.HelloAssoGateway) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":1800}`))
	})
	mux.HandleFunc("/v5/organizations/overrun/checkout-intents", handler)
	mux.HandleFunc("/v5/organizations/overrun/checkout-intents/", handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	gw := services.NewHelloAssoGateway(services.HelloAssoConfig{
		BaseURL:          srv.URL,
		ClientID:         "client-id",
		ClientSecret:     "client-secret",
		OrganizationSlug: "overrun",
		FrontendURL:      "https://overrun.example",
	}, zap.NewNop())
	return srv, gw
}

func TestHelloAssoCreateCheckout(t *testing.T) {
	paymentID := uuid.New()
	inscriptionID := uuid.New()

	_, gw := newHelloAssoServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var body map[string]interface{}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			return
		}
		assert.EqualValues(t, 2500, body["totalAmount"])
		assert.EqualValues(t, 2500, body["initialAmount"])
		assert.Equal(t, true, body["containsDonation"])

		ret, err := url.Parse(body["returnUrl"].(string))
		assert.NoError(t, err)
		assert.Equal(t, "/payment/helloassoreturn/", ret.Path)
		assert.Equal(t, "return", ret.Query().Get("type"))
		assert.Equal(t, paymentID.String(), ret.Query().Get("paymentId"))
		assert.Empty(t, ret.Query().Get("token"))

		back, err := url.Parse(body["backUrl"].(string))
		assert.NoError(t, err)
		assert.Equal(t, "2000", back.Query().Get("raceAmount"))

		payer := body["payer"].(map[string]interface{})
		assert.Equal(t, "FRA", payer["country"])
		meta := body["metadata"].(map[string]interface{})
		assert.Equal(t, paymentID.String(), meta["paymentId"])
		assert.Equal(t, inscriptionID.String(), meta["inscriptionId"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 4242, "redirectUrl": "https://checkout.helloasso.com/4242"}`))
	})

	session, err := gw.CreateCheckout(context.Background(), services.CheckoutRequest{
		PaymentID:      paymentID,
		InscriptionID:  inscriptionID,
		TotalAmount:    2500,
		RaceAmount:     2000,
		DonationAmount: 500,
		ItemName:       services.CheckoutItemName,
		Payer:          services.Payer{FirstName: "Jeanne", LastName: "Martin", Email: "jeanne@example.com", Country: "France"},
	})

	require.NoError(t, err)
	assert.Equal(t, "4242", session.ID)
	assert.Equal(t, "https://checkout.helloasso.com/4242", session.RedirectURL)
}

func TestHelloAssoCreateCheckout_ErrorsField(t *testing.T) {
	_, gw := newHelloAssoServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"errors":[{"code":"ArgumentException","message":"bad amount"}]}`))
	})

	_, err := gw.CreateCheckout(context.Background(), services.CheckoutRequest{PaymentID: uuid.New(), TotalAmount: 100, RaceAmount: 100})
	assert.Error(t, err)
}

func TestHelloAssoCreateCheckout_HTTPError(t *testing.T) {
	_, gw := newHelloAssoServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := gw.CreateCheckout(context.Background(), services.CheckoutRequest{PaymentID: uuid.New(), TotalAmount: 100, RaceAmount: 100})
	assert.Error(t, err)
}

func TestHelloAssoGetCheckout(t *testing.T) {
	_, gw := newHelloAssoServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v5/organizations/overrun/checkout-intents/4242", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": 4242,
			"redirectUrl": "https://checkout.helloasso.com/4242",
			"order": {"payments": [
				{"id": 1, "state": "Authorized", "date": "2026-03-14T10:00:00+01:00", "paymentReceiptUrl": "https://receipt/1"}
			]}
		}`))
	})

	status, err := gw.GetCheckout(context.Background(), "4242")

	require.NoError(t, err)
	require.Len(t, status.Payments, 1)
	assert.Equal(t, services.GatewayStateAuthorized, status.Payments[0].State)
	assert.Equal(t, "https://receipt/1", status.Payments[0].ReceiptURL)
	assert.Equal(t, 2026, status.Payments[0].Date.Year())
}

func TestParseHelloAssoNotification(t *testing.T) {
	paymentID := uuid.New()

	t.Run("payment event", func(t *testing.T) {
		body := []byte(`{"eventType":"Payment","data":{"id":9,"state":"Authorized","date":"2026-03-14T10:00:00Z","paymentReceiptUrl":"https://receipt/9"},"metadata":{"paymentId":"` + paymentID.String() + `"}}`)

		n, err := services.ParseHelloAssoNotification(body)

		require.NoError(t, err)
		assert.Equal(t, services.GatewayEventPayment, n.EventType)
		assert.Equal(t, services.GatewayStateAuthorized, n.State)
		assert.Equal(t, paymentID, n.PaymentID)
		assert.Equal(t, "https://receipt/9", n.ReceiptURL)
	})

	t.Run("order event", func(t *testing.T) {
		n, err := services.ParseHelloAssoNotification([]byte(`{"eventType":"Order","data":{}}`))

		require.NoError(t, err)
		assert.Equal(t, "Order", n.EventType)
	})

	t.Run("payment without metadata", func(t *testing.T) {
		_, err := services.ParseHelloAssoNotification([]byte(`{"eventType":"Payment","data":{"state":"Authorized"}}`))
		assert.Error(t, err)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := services.ParseHelloAssoNotification([]byte(`{`))
		assert.Error(t, err)
	})
}
