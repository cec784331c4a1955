package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	apperrors "github.com/24HeuresINSA/OverRun-backend/common/errors"
	"github.com/24HeuresINSA/OverRun-backend/models"
	"github.com/24HeuresINSA/OverRun-backend/repository"
)

// MembershipVerdict is the partner association's answer for a card.
type MembershipVerdict int

const (
	MembershipUnknown MembershipVerdict = iota
	MembershipValid
	MembershipInvalid
)

// MembershipChecker verifies a partner-association card.
type MembershipChecker interface {
	CheckCard(ctx context.Context, card, firstName, lastName string) (MembershipVerdict, error)
}

// PartnerConfig locates the partner association's SSO realm and card API.
type PartnerConfig struct {
	SSOEndpoint  string
	Realm        string
	ClientID     string
	ClientSecret string
	Endpoint     string
	Timeout      time.Duration
}

// PartnerClient calls the partner association's va_check API with a
// client-credentials token from its Keycloak realm.
type PartnerClient struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

func NewPartnerClient(cfg PartnerConfig, logger *zap.Logger) *PartnerClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.SSOEndpoint + "/auth/realms/" + cfg.Realm + "/protocol/openid-connect/token",
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	base := &http.Client{Timeout: timeout}
	client := cc.Client(context.WithValue(context.Background(), oauth2.HTTPClient, base))
	client.Timeout = timeout

	return &PartnerClient{endpoint: cfg.Endpoint, client: client, logger: logger}
}

type vaCheckRequest struct {
	LastName  string `json:"last_name"`
	FirstName string `json:"first_name"`
	Card      string `json:"card"`
}

type vaCheckResponse struct {
	HasValidMembership bool `json:"has_valid_membership"`
}

func (p *PartnerClient) CheckCard(ctx context.Context, card, firstName, lastName string) (MembershipVerdict, error) {
	payload, err := json.Marshal(vaCheckRequest{LastName: lastName, FirstName: firstName, Card: card})
	if err != nil {
		return MembershipUnknown, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/va_check", bytes.NewReader(payload))
	if err != nil {
		return MembershipUnknown, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return MembershipUnknown, fmt.Errorf("va_check: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return MembershipUnknown, fmt.Errorf("read va_check response: %w", err)
	}
	p.logger.Debug("va_check call", zap.Int("status", resp.StatusCode))

	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusBadRequest:
		return MembershipUnknown, nil
	case http.StatusOK:
		var out vaCheckResponse
		if err := json.Unmarshal(raw, &out); err != nil {
			return MembershipUnknown, fmt.Errorf("decode va_check response: %w", err)
		}
		if out.HasValidMembership {
			return MembershipValid, nil
		}
		return MembershipInvalid, nil
	default:
		return MembershipUnknown, fmt.Errorf("va_check returned status %d: %s", resp.StatusCode, truncate(raw, 256))
	}
}

// MembershipService attaches partner-association cards to inscriptions.
type MembershipService interface {
	CheckMembership(ctx context.Context, principal *models.Principal, req *models.CheckMembershipRequest) (*models.Membership, *ServiceError)
	ListMemberships(ctx context.Context, q repository.ListQuery) (*models.Page[models.Membership], *ServiceError)
}

type membershipServiceImpl struct {
	repo         repository.MembershipRepository
	inscriptions repository.InscriptionRepository
	editions     repository.EditionRepository
	checker      MembershipChecker
	logger       *zap.Logger
}

func NewMembershipService(repo repository.MembershipRepository, inscriptions repository.InscriptionRepository, editions repository.EditionRepository, checker MembershipChecker, logger *zap.Logger) MembershipService {
	return &membershipServiceImpl{repo: repo, inscriptions: inscriptions, editions: editions, checker: checker, logger: logger}
}

// CheckMembership verifies the card with the partner association and, when
// valid, attaches it to the caller's inscription of the active edition.
func (s *membershipServiceImpl) CheckMembership(ctx context.Context, principal *models.Principal, req *models.CheckMembershipRequest) (*models.Membership, *ServiceError) {
	if principal.AthleteID == nil {
		return nil, notFound("Athlete not found.")
	}

	verdict, err := s.checker.CheckCard(ctx, req.CardNumber, req.FirstName, req.LastName)
	if err != nil {
		s.logger.Error("Partner membership check failed", zap.Error(err))
		return nil, internalMsg("Failed to reach the partner association.")
	}
	switch verdict {
	case MembershipUnknown:
		return nil, notFound("VA not found.")
	case MembershipInvalid:
		return nil, badRequest("VA not valid.")
	}

	edition, err := s.editions.FindActive(ctx)
	if err != nil {
		return nil, dbError(err, "Inscription not found.", "")
	}
	inscription, err := s.inscriptions.FindActive(ctx, *principal.AthleteID, edition.ID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, notFound("Inscription not found.")
		}
		s.logger.Error("Failed to load inscription", zap.Error(err))
		return nil, internal()
	}
	if inscription.Membership != nil {
		return nil, conflict("VA already registered.")
	}

	membership := &models.Membership{CardNumber: req.CardNumber, InscriptionID: inscription.ID}
	if err := s.repo.Create(ctx, membership); err != nil {
		return nil, dbError(err, "", "VA already registered.")
	}
	s.logger.Info("Membership attached",
		zap.String("inscription_id", inscription.ID.String()),
	)
	return membership, nil
}

func (s *membershipServiceImpl) ListMemberships(ctx context.Context, q repository.ListQuery) (*models.Page[models.Membership], *ServiceError) {
	memberships, err := s.repo.List(ctx, q)
	if err != nil {
		s.logger.Error("Failed to list memberships", zap.Error(err))
		return nil, internal()
	}
	page := repository.NewPage(memberships, q)
	return &page, nil
}
