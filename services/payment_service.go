package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	apperrors "github.com/24HeuresINSA/OverRun-backend/common/errors"
	"github.com/24HeuresINSA/OverRun-backend/models"
	awspkg "github.com/24HeuresINSA/OverRun-backend/pkg/aws"
	"github.com/24HeuresINSA/OverRun-backend/repository"
)

// CheckoutItemName is the label shown on the hosted checkout page.
const CheckoutItemName = "Paiement pour la participation aux couses des 24 heures de l'INSA (OverRun)"

// PaymentService defines the payment lifecycle and its reporting.
type PaymentService interface {
	CreatePayment(ctx context.Context, principal *models.Principal, req *models.CreatePaymentRequest) (*models.Payment, *ServiceError)
	InitiatePayment(ctx context.Context, principal *models.Principal, id uuid.UUID, req *models.InitiatePaymentRequest) (*models.Payment, *ServiceError)
	UpdatePayment(ctx context.Context, principal *models.Principal, id uuid.UUID, req *models.UpdatePaymentRequest) (*models.Payment, *ServiceError)
	ReconcileWithGateway(ctx context.Context, id uuid.UUID) (*models.Payment, *ServiceError)
	HandleGatewayNotification(ctx context.Context, n *GatewayNotification) (*models.Payment, *ServiceError)
	RefusePayment(ctx context.Context, id uuid.UUID) (*models.Payment, *ServiceError)
	RefundPayment(ctx context.Context, id uuid.UUID) (*models.Payment, *ServiceError)

	GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, *ServiceError)
	ListPayments(ctx context.Context, q repository.ListQuery) (*models.Page[models.Payment], *ServiceError)
	MyPayments(ctx context.Context, principal *models.Principal) ([]models.Payment, *ServiceError)
	CheckoutQRCode(ctx context.Context, principal *models.Principal, id uuid.UUID, size int) ([]byte, *ServiceError)

	Totals(ctx context.Context, editionID uuid.UUID) ([]models.PaymentTotals, *ServiceError)
	AmountByDate(ctx context.Context, editionID uuid.UUID) (*models.AmountSeries, *ServiceError)
	PaymentsByDate(ctx context.Context, editionID uuid.UUID) ([]models.PaymentsByDay, *ServiceError)
	PaymentsCSV(ctx context.Context, editionID uuid.UUID) ([]byte, *ServiceError)
	PaymentsXLSX(ctx context.Context, editionID uuid.UUID) ([]byte, *ServiceError)
}

type paymentServiceImpl struct {
	repo           repository.PaymentRepository
	inscriptions   repository.InscriptionRepository
	editions       repository.EditionRepository
	gateway        CheckoutGateway
	snsClient      awspkg.SNSPublisher
	snsTopicArn    string
	cache          StatsCache
	metrics        *awspkg.MetricsClient
	checkoutExpiry time.Duration
	logger         *zap.Logger
}

// NewPaymentService creates a new PaymentService. snsClient, cache and
// metrics may be nil.
func NewPaymentService(
	repo repository.PaymentRepository,
	inscriptions repository.InscriptionRepository,
	editions repository.EditionRepository,
	gateway CheckoutGateway,
	snsClient awspkg.SNSPublisher,
	snsTopicArn string,
	cache StatsCache,
	metrics *awspkg.MetricsClient,
	checkoutExpiry time.Duration,
	logger *zap.Logger,
) PaymentService {
	if cache == nil {
		cache = noopStatsCache{}
	}
	if checkoutExpiry <= 0 {
		checkoutExpiry = 15 * time.Minute
	}
	return &paymentServiceImpl{
		repo:           repo,
		inscriptions:   inscriptions,
		editions:       editions,
		gateway:        gateway,
		snsClient:      snsClient,
		snsTopicArn:    snsTopicArn,
		cache:          cache,
		metrics:        metrics,
		checkoutExpiry: checkoutExpiry,
		logger:         logger,
	}
}

// CreatePayment opens the ledger entry of an inscription at the race price.
func (s *paymentServiceImpl) CreatePayment(ctx context.Context, principal *models.Principal, req *models.CreatePaymentRequest) (*models.Payment, *ServiceError) {
	inscription, err := s.inscriptions.FindByID(ctx, req.InscriptionID)
	if err != nil {
		return nil, dbError(err, "Inscription not found", "")
	}
	if !principal.IsAdmin() && !principal.Owns(inscription.AthleteID) {
		return nil, forbidden()
	}
	if inscription.Payment != nil {
		return nil, conflict("The payment already exists.")
	}
	if inscription.Race == nil {
		s.logger.Error("Inscription has no race", zap.String("inscription_id", inscription.ID.String()))
		return nil, internal()
	}

	price := inscription.Race.PriceFor(inscription.HasMembership())
	payment := &models.Payment{
		InscriptionID: inscription.ID,
		Status:        models.PaymentStatusNotStarted,
		RaceAmount:    price,
		TotalAmount:   price,
		Provider:      s.gateway.Name(),
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		if !apperrors.IsDuplicate(err) {
			s.logger.Error("Failed to create payment", zap.Error(err))
		}
		return nil, dbError(err, "Inscription not found", "The payment already exists.")
	}

	s.logger.Info("Payment created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("inscription_id", inscription.ID.String()),
		zap.Int("race_amount", price),
	)
	return payment, nil
}

// InitiatePayment fixes the amounts and opens a hosted checkout. A zero
// total validates the payment without contacting the gateway.
func (s *paymentServiceImpl) InitiatePayment(ctx context.Context, principal *models.Principal, id uuid.UUID, req *models.InitiatePaymentRequest) (*models.Payment, *ServiceError) {
	payment, svcErr := s.ownedPayment(ctx, principal, id)
	if svcErr != nil {
		return nil, svcErr
	}
	if payment.Status != models.PaymentStatusNotStarted {
		return nil, conflict("Payment already initiated")
	}
	if req.DonationAmount < 0 {
		return nil, badRequest("donationAmount must be positive")
	}

	return s.checkout(ctx, payment, req.DonationAmount)
}

// UpdatePayment changes the donation of an initiated payment and opens a
// fresh checkout. The stored donation is kept when none is given.
func (s *paymentServiceImpl) UpdatePayment(ctx context.Context, principal *models.Principal, id uuid.UUID, req *models.UpdatePaymentRequest) (*models.Payment, *ServiceError) {
	payment, svcErr := s.ownedPayment(ctx, principal, id)
	if svcErr != nil {
		return nil, svcErr
	}

	switch {
	case payment.Status == models.PaymentStatusNotStarted || payment.ExternalCheckoutExpiry == nil:
		return nil, conflict("Payment aren't initiated")
	case payment.Status == models.PaymentStatusValidated:
		return nil, conflict("Payment already validated")
	}

	donation := payment.DonationAmount
	if req.DonationAmount != nil {
		if *req.DonationAmount < 0 {
			return nil, badRequest("donationAmount must be positive")
		}
		donation = *req.DonationAmount
	}

	if payment.Status == models.PaymentStatusPending &&
		time.Now().Before(*payment.ExternalCheckoutExpiry) &&
		donation == payment.DonationAmount {
		return nil, conflict("Payment already initiated")
	}

	return s.checkout(ctx, payment, donation)
}

// checkout recomputes the amounts and moves payment to PENDING behind a new
// gateway checkout, or to VALIDATED when nothing is owed.
func (s *paymentServiceImpl) checkout(ctx context.Context, payment *models.Payment, donation int) (*models.Payment, *ServiceError) {
	inscription := payment.Inscription
	if inscription == nil || inscription.Race == nil {
		s.logger.Error("Payment has no inscription or race", zap.String("payment_id", payment.ID.String()))
		return nil, newError(http.StatusInternalServerError, "Inscription associated not found")
	}

	from := payment.Status
	payment.RaceAmount = inscription.Race.PriceFor(inscription.HasMembership())
	payment.DonationAmount = donation
	payment.TotalAmount = payment.RaceAmount + payment.DonationAmount
	payment.Provider = s.gateway.Name()

	if payment.TotalAmount == 0 {
		now := time.Now()
		payment.Status = models.PaymentStatusValidated
		payment.PaymentDate = &now
		payment.ClearCheckout()
		if svcErr := s.transition(ctx, payment, from); svcErr != nil {
			return nil, svcErr
		}
		return payment, nil
	}

	start := time.Now()
	session, err := s.gateway.CreateCheckout(ctx, CheckoutRequest{
		PaymentID:      payment.ID,
		InscriptionID:  inscription.ID,
		TotalAmount:    payment.TotalAmount,
		RaceAmount:     payment.RaceAmount,
		DonationAmount: payment.DonationAmount,
		ItemName:       CheckoutItemName,
		Payer:          payerOf(inscription),
	})
	s.recordGatewayLatency("CreateCheckout", time.Since(start))
	if err != nil {
		s.logger.Error("Checkout creation failed",
			zap.String("payment_id", payment.ID.String()),
			zap.String("provider", s.gateway.Name()),
			zap.Error(err),
		)
		return nil, internalMsg("An error occured while initiating the payment.")
	}

	expiry := time.Now().Add(s.checkoutExpiry)
	payment.Status = models.PaymentStatusPending
	payment.ExternalCheckoutID = &session.ID
	payment.ExternalCheckoutURL = &session.RedirectURL
	payment.ExternalCheckoutExpiry = &expiry
	if len(session.Raw) > 0 {
		payment.GatewayPayload = datatypes.JSON(session.Raw)
	}
	if svcErr := s.transition(ctx, payment, from); svcErr != nil {
		return nil, svcErr
	}
	return payment, nil
}

// ReconcileWithGateway pulls the checkout outcome from the gateway.
func (s *paymentServiceImpl) ReconcileWithGateway(ctx context.Context, id uuid.UUID) (*models.Payment, *ServiceError) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil && !apperrors.IsNotFound(err) {
		s.logger.Error("Failed to load payment", zap.Error(err))
		return nil, internal()
	}
	if payment == nil || payment.ExternalCheckoutID == nil {
		return nil, notFound("Payment or checkout intent not found")
	}

	start := time.Now()
	checkout, err := s.gateway.GetCheckout(ctx, *payment.ExternalCheckoutID)
	s.recordGatewayLatency("GetCheckout", time.Since(start))
	if err != nil {
		s.logger.Error("Checkout lookup failed",
			zap.String("payment_id", payment.ID.String()),
			zap.String("checkout_id", *payment.ExternalCheckoutID),
			zap.Error(err),
		)
		return nil, internalMsg("Failed to reach the payment provider")
	}

	status, match, ok := resolveGatewayStatus(checkout.Payments)
	if !ok || status == payment.Status {
		return payment, nil
	}

	from := payment.Status
	payment.Status = status
	if len(checkout.Raw) > 0 {
		payment.GatewayPayload = datatypes.JSON(checkout.Raw)
	}
	if match != nil {
		switch status {
		case models.PaymentStatusValidated, models.PaymentStatusRefund:
			if !match.Date.IsZero() {
				date := match.Date
				payment.PaymentDate = &date
			}
		}
		if match.ReceiptURL != "" {
			receipt := match.ReceiptURL
			payment.ExternalReceiptURL = &receipt
		}
	}

	if svcErr := s.transition(ctx, payment, from); svcErr != nil {
		return nil, svcErr
	}
	return payment, nil
}

// HandleGatewayNotification validates a PENDING payment from an Authorized
// payment event. Anything else is acknowledged with a nil payment.
func (s *paymentServiceImpl) HandleGatewayNotification(ctx context.Context, n *GatewayNotification) (*models.Payment, *ServiceError) {
	if n.EventType != GatewayEventPayment || n.State != GatewayStateAuthorized {
		s.logger.Info("Ignoring gateway notification",
			zap.String("event_type", n.EventType),
			zap.String("state", n.State),
		)
		return nil, nil
	}

	payment, err := s.notifiedPayment(ctx, n)
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.logger.Warn("Notification for unknown payment",
				zap.String("payment_id", n.PaymentID.String()),
				zap.String("checkout_id", n.CheckoutID),
			)
		}
		return nil, dbError(err, "Payment not found", "")
	}
	if payment.Status != models.PaymentStatusPending {
		s.logger.Info("Skipping notification for non-pending payment",
			zap.String("payment_id", payment.ID.String()),
			zap.String("status", payment.Status),
		)
		return nil, nil
	}

	date := n.Date
	if date.IsZero() {
		date = time.Now()
	}
	payment.Status = models.PaymentStatusValidated
	payment.PaymentDate = &date
	if n.ReceiptURL != "" {
		receipt := n.ReceiptURL
		payment.ExternalReceiptURL = &receipt
	}
	if len(n.Raw) > 0 {
		payment.GatewayPayload = datatypes.JSON(n.Raw)
	}

	if svcErr := s.transition(ctx, payment, models.PaymentStatusPending); svcErr != nil {
		return nil, svcErr
	}
	return payment, nil
}

// notifiedPayment loads the payment a notification is about. Providers that
// only echo the checkout are matched on the stored checkout id.
func (s *paymentServiceImpl) notifiedPayment(ctx context.Context, n *GatewayNotification) (*models.Payment, error) {
	if n.PaymentID == uuid.Nil && n.CheckoutID != "" {
		return s.repo.FindByExternalCheckoutID(ctx, n.CheckoutID)
	}
	return s.repo.FindByID(ctx, n.PaymentID)
}

func (s *paymentServiceImpl) RefusePayment(ctx context.Context, id uuid.UUID) (*models.Payment, *ServiceError) {
	return s.force(ctx, id, models.PaymentStatusRefused)
}

func (s *paymentServiceImpl) RefundPayment(ctx context.Context, id uuid.UUID) (*models.Payment, *ServiceError) {
	return s.force(ctx, id, models.PaymentStatusRefund)
}

// force applies an admin correction whatever the current status.
func (s *paymentServiceImpl) force(ctx context.Context, id uuid.UUID, status string) (*models.Payment, *ServiceError) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, dbError(err, "Payment not found", "")
	}
	if payment.Status == status {
		return payment, nil
	}
	from := payment.Status
	payment.Status = status
	if svcErr := s.transition(ctx, payment, from); svcErr != nil {
		return nil, svcErr
	}
	return payment, nil
}

func (s *paymentServiceImpl) GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, *ServiceError) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, dbError(err, "Payment not found", "")
	}
	return payment, nil
}

func (s *paymentServiceImpl) ListPayments(ctx context.Context, q repository.ListQuery) (*models.Page[models.Payment], *ServiceError) {
	payments, err := s.repo.List(ctx, q)
	if err != nil {
		s.logger.Error("Failed to list payments", zap.Error(err))
		return nil, internal()
	}
	page := repository.NewPage(payments, q)
	return &page, nil
}

func (s *paymentServiceImpl) MyPayments(ctx context.Context, principal *models.Principal) ([]models.Payment, *ServiceError) {
	if principal == nil || principal.AthleteID == nil {
		return nil, notFound("Athlete not found.")
	}
	payments, err := s.repo.ListByAthlete(ctx, *principal.AthleteID)
	if err != nil {
		s.logger.Error("Failed to list athlete payments", zap.Error(err))
		return nil, internal()
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return payments, nil
}

// CheckoutQRCode renders the pending checkout URL as a PNG.
func (s *paymentServiceImpl) CheckoutQRCode(ctx context.Context, principal *models.Principal, id uuid.UUID, size int) ([]byte, *ServiceError) {
	payment, svcErr := s.ownedPayment(ctx, principal, id)
	if svcErr != nil {
		return nil, svcErr
	}
	if payment.Status != models.PaymentStatusPending || payment.ExternalCheckoutURL == nil {
		return nil, conflict("Payment has no pending checkout")
	}
	if size <= 0 || size > 1024 {
		size = 256
	}
	png, err := qrcode.Encode(*payment.ExternalCheckoutURL, qrcode.Medium, size)
	if err != nil {
		s.logger.Error("Failed to render QR code", zap.Error(err))
		return nil, internal()
	}
	return png, nil
}

// ownedPayment loads a payment with its inscription and checks the caller
// owns it or is an active admin.
func (s *paymentServiceImpl) ownedPayment(ctx context.Context, principal *models.Principal, id uuid.UUID) (*models.Payment, *ServiceError) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, dbError(err, "Payment not found", "")
	}
	if principal.IsAdmin() {
		return payment, nil
	}
	if payment.Inscription == nil || !principal.Owns(payment.Inscription.AthleteID) {
		return nil, forbidden()
	}
	return payment, nil
}

// transition persists payment if its stored status is still from, then
// publishes the change. A concurrent writer turns into a 409.
func (s *paymentServiceImpl) transition(ctx context.Context, payment *models.Payment, from string) *ServiceError {
	if err := s.repo.UpdateIfStatus(ctx, payment, from); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			s.logger.Warn("Payment changed concurrently",
				zap.String("payment_id", payment.ID.String()),
				zap.String("expected_status", from),
			)
			return conflict("Payment was modified concurrently")
		}
		s.logger.Error("Failed to update payment", zap.String("payment_id", payment.ID.String()), zap.Error(err))
		return internal()
	}

	s.logger.Info("Payment status changed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("from", from),
		zap.String("to", payment.Status),
	)

	if from != payment.Status {
		s.cache.Invalidate(ctx)
		s.recordStatus(payment.Status)
	}
	s.publishEvent(ctx, models.PaymentEvent{
		EventType:      "payment_" + strings.ToLower(payment.Status),
		PaymentID:      payment.ID.String(),
		InscriptionID:  payment.InscriptionID.String(),
		Status:         payment.Status,
		PreviousStatus: from,
		RaceAmount:     payment.RaceAmount,
		DonationAmount: payment.DonationAmount,
		TotalAmount:    payment.TotalAmount,
		Provider:       payment.Provider,
		Timestamp:      time.Now().UTC(),
	})
	return nil
}

func (s *paymentServiceImpl) recordStatus(status string) {
	var metric string
	switch status {
	case models.PaymentStatusPending:
		metric = awspkg.MetricPaymentInitiated
	case models.PaymentStatusValidated:
		metric = awspkg.MetricPaymentValidated
	case models.PaymentStatusRefused:
		metric = awspkg.MetricPaymentRefused
	default:
		return
	}
	if !s.metrics.IsEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.metrics.RecordCount(ctx, metric, map[string]string{"Provider": s.gateway.Name()}); err != nil {
			s.logger.Warn("Failed to record payment metric", zap.Error(err))
		}
	}()
}

func (s *paymentServiceImpl) recordGatewayLatency(operation string, d time.Duration) {
	if !s.metrics.IsEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		dims := map[string]string{"Provider": s.gateway.Name(), "Operation": operation}
		if err := s.metrics.RecordLatency(ctx, awspkg.MetricGatewayLatency, d, dims); err != nil {
			s.logger.Warn("Failed to record gateway latency", zap.Error(err))
		}
	}()
}

// publishEvent marshals an event and publishes it to SNS (non-fatal on error).
func (s *paymentServiceImpl) publishEvent(ctx context.Context, event models.PaymentEvent) {
	if s.snsClient == nil || s.snsTopicArn == "" {
		s.logger.Debug("SNS not configured, skipping event publish")
		return
	}
	b, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("Failed to marshal SNS event", zap.Error(err))
		return
	}
	if err := s.snsClient.PublishWithType(ctx, s.snsTopicArn, event.EventType, b); err != nil {
		s.logger.Error("Failed to publish SNS event", zap.String("event_type", event.EventType), zap.Error(err))
		return
	}
	s.logger.Info("Published SNS event", zap.String("event_type", event.EventType))
}

func payerOf(inscription *models.Inscription) Payer {
	athlete := inscription.Athlete
	if athlete == nil {
		return Payer{}
	}
	p := Payer{
		FirstName: athlete.FirstName,
		LastName:  athlete.LastName,
		Address:   athlete.Address,
		City:      athlete.City,
		ZipCode:   athlete.ZipCode,
		Country:   athlete.Country,
	}
	if athlete.User != nil {
		p.Email = athlete.User.Email
	}
	return p
}
