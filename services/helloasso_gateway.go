package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// HelloAssoConfig holds the API credentials and URLs of a HelloAsso organization.
type HelloAssoConfig struct {
	BaseURL          string
	ClientID         string
	ClientSecret     string
	OrganizationSlug string
	FrontendURL      string
	Timeout          time.Duration
}

// HelloAssoGateway implements CheckoutGateway on the HelloAsso v5 checkout-intents API.
type HelloAssoGateway struct {
	baseURL     string
	orgSlug     string
	frontendURL string
	client      *http.Client
	logger      *zap.Logger
}

// NewHelloAssoGateway returns a gateway whose HTTP client fetches and caches
// an OAuth2 client-credentials token from {BaseURL}/oauth2/token.
func NewHelloAssoGateway(cfg HelloAssoConfig, logger *zap.Logger) *HelloAssoGateway {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.BaseURL + "/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	base := &http.Client{Timeout: timeout}
	client := cc.Client(context.WithValue(context.Background(), oauth2.HTTPClient, base))
	client.Timeout = timeout

	return &HelloAssoGateway{
		baseURL:     cfg.BaseURL,
		orgSlug:     cfg.OrganizationSlug,
		frontendURL: cfg.FrontendURL,
		client:      client,
		logger:      logger,
	}
}

func (g *HelloAssoGateway) Name() string { return "helloasso" }

type helloAssoPayer struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	ZipCode   string `json:"zipCode,omitempty"`
	Country   string `json:"country,omitempty"`
}

type helloAssoIntentRequest struct {
	TotalAmount      int               `json:"totalAmount"`
	InitialAmount    int               `json:"initialAmount"`
	ItemName         string            `json:"itemName"`
	BackURL          string            `json:"backUrl"`
	ErrorURL         string            `json:"errorUrl"`
	ReturnURL        string            `json:"returnUrl"`
	ContainsDonation bool              `json:"containsDonation"`
	Payer            helloAssoPayer    `json:"payer"`
	Metadata         helloAssoMetadata `json:"metadata"`
}

type helloAssoMetadata struct {
	InscriptionID  string `json:"inscriptionId"`
	PaymentID      string `json:"paymentId"`
	DonationAmount int    `json:"donationAmount"`
}

type helloAssoPayment struct {
	ID                int64     `json:"id"`
	State             string    `json:"state"`
	Date              time.Time `json:"date"`
	PaymentReceiptURL string    `json:"paymentReceiptUrl"`
	Amount            int       `json:"amount"`
}

type helloAssoIntent struct {
	ID          int64           `json:"id"`
	RedirectURL string          `json:"redirectUrl"`
	Errors      json.RawMessage `json:"errors,omitempty"`
	Order       *struct {
		Payments []helloAssoPayment `json:"payments"`
	} `json:"order,omitempty"`
}

func (g *HelloAssoGateway) intentsURL() string {
	return fmt.Sprintf("%s/v5/organizations/%s/checkout-intents", g.baseURL, url.PathEscape(g.orgSlug))
}

// returnURL builds a frontend URL carrying the checkout amounts as query parameters.
func (g *HelloAssoGateway) returnURL(path string, params url.Values) string {
	return g.frontendURL + path + "?" + params.Encode()
}

func (g *HelloAssoGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	amounts := url.Values{
		"totalAmount":    {strconv.Itoa(req.TotalAmount)},
		"donationAmount": {strconv.Itoa(req.DonationAmount)},
		"paymentId":      {req.PaymentID.String()},
	}
	back := url.Values{
		"donationAmount": {strconv.Itoa(req.DonationAmount)},
		"raceAmount":     {strconv.Itoa(req.RaceAmount)},
	}
	errorParams := url.Values{"type": {"error"}}
	returnParams := url.Values{"type": {"return"}}
	for k, v := range amounts {
		errorParams[k] = v
		returnParams[k] = v
	}

	country := req.Payer.Country
	if len(country) != 3 {
		country = "FRA"
	}
	body := helloAssoIntentRequest{
		TotalAmount:      req.TotalAmount,
		InitialAmount:    req.TotalAmount,
		ItemName:         req.ItemName,
		BackURL:          g.returnURL("/register/payment/", back),
		ErrorURL:         g.returnURL("/payment/helloassoreturn/", errorParams),
		ReturnURL:        g.returnURL("/payment/helloassoreturn/", returnParams),
		ContainsDonation: req.DonationAmount > 0,
		Payer: helloAssoPayer{
			FirstName: req.Payer.FirstName,
			LastName:  req.Payer.LastName,
			Email:     req.Payer.Email,
			Address:   req.Payer.Address,
			City:      req.Payer.City,
			ZipCode:   req.Payer.ZipCode,
			Country:   country,
		},
		Metadata: helloAssoMetadata{
			InscriptionID:  req.InscriptionID.String(),
			PaymentID:      req.PaymentID.String(),
			DonationAmount: req.DonationAmount,
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode checkout intent: %w", err)
	}

	var intent helloAssoIntent
	raw, err := g.do(ctx, http.MethodPost, g.intentsURL(), payload, &intent)
	if err != nil {
		return nil, err
	}
	if intent.RedirectURL == "" {
		return nil, fmt.Errorf("helloasso returned no redirect url")
	}

	return &CheckoutSession{
		ID:          strconv.FormatInt(intent.ID, 10),
		RedirectURL: intent.RedirectURL,
		Raw:         raw,
	}, nil
}

func (g *HelloAssoGateway) GetCheckout(ctx context.Context, checkoutID string) (*CheckoutStatus, error) {
	var intent helloAssoIntent
	raw, err := g.do(ctx, http.MethodGet, g.intentsURL()+"/"+url.PathEscape(checkoutID), nil, &intent)
	if err != nil {
		return nil, err
	}

	status := &CheckoutStatus{ID: checkoutID, Raw: raw}
	if intent.Order != nil {
		for _, p := range intent.Order.Payments {
			status.Payments = append(status.Payments, GatewayPayment{
				State:      p.State,
				Date:       p.Date,
				ReceiptURL: p.PaymentReceiptURL,
			})
		}
	}
	return status, nil
}

// do sends a JSON request and decodes the response into out. Non-2xx
// statuses and responses carrying "errors" are returned as errors.
func (g *HelloAssoGateway) do(ctx context.Context, method, endpoint string, payload []byte, out *helloAssoIntent) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("helloasso %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read helloasso response: %w", err)
	}
	g.logger.Debug("helloasso call",
		zap.String("method", method),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return raw, fmt.Errorf("helloasso returned status %d: %s", resp.StatusCode, truncate(raw, 256))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return raw, fmt.Errorf("decode helloasso response: %w", err)
	}
	if len(out.Errors) > 0 && string(out.Errors) != "null" && string(out.Errors) != "[]" {
		return raw, fmt.Errorf("helloasso returned errors: %s", truncate(out.Errors, 256))
	}
	return raw, nil
}

type helloAssoNotification struct {
	EventType string `json:"eventType"`
	Data      struct {
		ID                int64     `json:"id"`
		State             string    `json:"state"`
		Date              time.Time `json:"date"`
		PaymentReceiptURL string    `json:"paymentReceiptUrl"`
		Order             *struct {
			ID int64 `json:"id"`
		} `json:"order,omitempty"`
	} `json:"data"`
	Metadata *struct {
		PaymentID     string `json:"paymentId"`
		InscriptionID string `json:"inscriptionId"`
	} `json:"metadata"`
}

// ParseHelloAssoNotification decodes a HelloAsso webhook body. Events other
// than Payment are returned with only EventType set; a Payment event must
// carry the paymentId metadata set when the intent was created.
func ParseHelloAssoNotification(body []byte) (*GatewayNotification, error) {
	var n helloAssoNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("decode notification: %w", err)
	}

	out := &GatewayNotification{EventType: n.EventType, State: n.Data.State, Raw: body}
	if n.EventType != GatewayEventPayment {
		return out, nil
	}
	if n.Metadata == nil || n.Metadata.PaymentID == "" {
		return nil, fmt.Errorf("notification has no paymentId metadata")
	}
	id, err := uuid.Parse(n.Metadata.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("invalid paymentId metadata: %w", err)
	}
	out.PaymentID = id
	out.ReceiptURL = n.Data.PaymentReceiptURL
	out.Date = n.Data.Date
	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
