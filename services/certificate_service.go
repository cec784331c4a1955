package services

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/24HeuresINSA/OverRun-backend/common/errors"
	"github.com/24HeuresINSA/OverRun-backend/models"
	awspkg "github.com/24HeuresINSA/OverRun-backend/pkg/aws"
	"github.com/24HeuresINSA/OverRun-backend/repository"
)

// certificateTypes maps accepted upload MIME types to the stored extension.
var certificateTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/webp":      ".webp",
}

// CertificateUpload is a validated-size upload read by the controller.
type CertificateUpload struct {
	ContentType string
	Data        []byte
}

// CertificateFile is an open certificate ready to be streamed.
type CertificateFile struct {
	Name        string
	ContentType string
	Body        io.ReadCloser
}

// CertificateService manages medical certificate files and their review.
type CertificateService interface {
	UploadCertificate(ctx context.Context, principal *models.Principal, editionID uuid.UUID, upload *CertificateUpload) (*models.Certificate, *ServiceError)
	ListCertificates(ctx context.Context, q repository.ListQuery) (*models.Page[models.Certificate], *ServiceError)
	GetCertificate(ctx context.Context, id uuid.UUID) (*models.Certificate, *ServiceError)
	DownloadCertificate(ctx context.Context, principal *models.Principal, id uuid.UUID) (*CertificateFile, *ServiceError)
	UpdateCertificateStatus(ctx context.Context, principal *models.Principal, id uuid.UUID, req *models.UpdateCertificateStatusRequest) (*models.Certificate, *ServiceError)
	LastCertificate(ctx context.Context, principal *models.Principal) (*models.Certificate, *ServiceError)
	AttachToCurrentInscription(ctx context.Context, principal *models.Principal, id uuid.UUID) (*models.Certificate, *ServiceError)
}

type certificateServiceImpl struct {
	repo         repository.CertificateRepository
	inscriptions repository.InscriptionRepository
	editions     repository.EditionRepository
	store        awspkg.ObjectStore
	mailer       Mailer
	frontendURL  string
	logger       *zap.Logger
}

func NewCertificateService(
	repo repository.CertificateRepository,
	inscriptions repository.InscriptionRepository,
	editions repository.EditionRepository,
	store awspkg.ObjectStore,
	mailer Mailer,
	frontendURL string,
	logger *zap.Logger,
) CertificateService {
	return &certificateServiceImpl{
		repo:         repo,
		inscriptions: inscriptions,
		editions:     editions,
		store:        store,
		mailer:       mailer,
		frontendURL:  frontendURL,
		logger:       logger,
	}
}

func (s *certificateServiceImpl) UploadCertificate(ctx context.Context, principal *models.Principal, editionID uuid.UUID, upload *CertificateUpload) (*models.Certificate, *ServiceError) {
	ext, ok := certificateTypes[upload.ContentType]
	if !ok {
		return nil, badRequest("Certificate must be a PDF or an image.")
	}
	if principal.AthleteID == nil {
		return nil, badRequest("Athlete must be registered to submit a certificate.")
	}
	inscription, err := s.inscriptions.FindActive(ctx, *principal.AthleteID, editionID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, badRequest("Athlete must be registered to submit a certificate.")
		}
		s.logger.Error("Failed to load inscription", zap.Error(err))
		return nil, internal()
	}

	key := "certificates/" + uuid.NewString() + ext
	if err := s.store.PutObject(ctx, key, upload.ContentType, upload.Data); err != nil {
		s.logger.Error("Failed to store certificate", zap.String("key", key), zap.Error(err))
		return nil, internal()
	}

	now := time.Now()
	certificate, err := s.repo.FindByInscriptionID(ctx, inscription.ID)
	switch {
	case err == nil:
		previous := certificate.Filename
		certificate.Filename = key
		certificate.ContentType = upload.ContentType
		certificate.UploadedAt = now
		certificate.Status = models.CertificateStatusPending
		certificate.StatusUpdatedAt = nil
		certificate.StatusUpdatedByID = nil
		if err := s.repo.Update(ctx, certificate); err != nil {
			s.discard(ctx, key)
			return nil, dbError(err, "Certificate not found.", "")
		}
		s.discard(ctx, previous)
	case apperrors.IsNotFound(err):
		certificate = &models.Certificate{
			InscriptionID: inscription.ID,
			Filename:      key,
			ContentType:   upload.ContentType,
			UploadedAt:    now,
			Status:        models.CertificateStatusPending,
		}
		if err := s.repo.Create(ctx, certificate); err != nil {
			s.discard(ctx, key)
			return nil, dbError(err, "", "Inscription already has a certificate.")
		}
	default:
		s.discard(ctx, key)
		s.logger.Error("Failed to load certificate", zap.Error(err))
		return nil, internal()
	}

	s.logger.Info("Certificate uploaded",
		zap.String("certificate_id", certificate.ID.String()),
		zap.String("inscription_id", inscription.ID.String()),
	)
	return certificate, nil
}

// discard removes a stored file that is no longer referenced.
func (s *certificateServiceImpl) discard(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.store.DeleteObject(ctx, key); err != nil {
		s.logger.Warn("Failed to delete certificate file", zap.String("key", key), zap.Error(err))
	}
}

func (s *certificateServiceImpl) ListCertificates(ctx context.Context, q repository.ListQuery) (*models.Page[models.Certificate], *ServiceError) {
	certificates, err := s.repo.List(ctx, q)
	if err != nil {
		s.logger.Error("Failed to list certificates", zap.Error(err))
		return nil, internal()
	}
	page := repository.NewPage(certificates, q)
	return &page, nil
}

func (s *certificateServiceImpl) GetCertificate(ctx context.Context, id uuid.UUID) (*models.Certificate, *ServiceError) {
	certificate, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, dbError(err, "Certificate not found.", "")
	}
	return certificate, nil
}

func (s *certificateServiceImpl) owned(ctx context.Context, principal *models.Principal, id uuid.UUID) (*models.Certificate, *ServiceError) {
	certificate, svcErr := s.GetCertificate(ctx, id)
	if svcErr != nil {
		return nil, svcErr
	}
	if principal.IsAdmin() {
		return certificate, nil
	}
	if certificate.Inscription == nil || !principal.Owns(certificate.Inscription.AthleteID) {
		return nil, forbidden()
	}
	return certificate, nil
}

func (s *certificateServiceImpl) DownloadCertificate(ctx context.Context, principal *models.Principal, id uuid.UUID) (*CertificateFile, *ServiceError) {
	certificate, svcErr := s.owned(ctx, principal, id)
	if svcErr != nil {
		return nil, svcErr
	}
	body, err := s.store.GetObject(ctx, certificate.Filename)
	if err != nil {
		s.logger.Error("Failed to read certificate file",
			zap.String("certificate_id", id.String()),
			zap.Error(err),
		)
		return nil, notFound("Certificate file not found.")
	}
	return &CertificateFile{
		Name:        "certificate-" + certificate.ID.String() + certificateTypes[certificate.ContentType],
		ContentType: certificate.ContentType,
		Body:        body,
	}, nil
}

func (s *certificateServiceImpl) UpdateCertificateStatus(ctx context.Context, principal *models.Principal, id uuid.UUID, req *models.UpdateCertificateStatusRequest) (*models.Certificate, *ServiceError) {
	certificate, svcErr := s.GetCertificate(ctx, id)
	if svcErr != nil {
		return nil, svcErr
	}
	if req.Status == models.CertificateStatusRefused && req.Reason == "" {
		return nil, badRequest("A reason is required to refuse a certificate.")
	}

	now := time.Now()
	certificate.Status = req.Status
	certificate.StatusUpdatedAt = &now
	certificate.StatusUpdatedByID = principal.AdminID
	if err := s.repo.Update(ctx, certificate); err != nil {
		return nil, dbError(err, "Certificate not found.", "")
	}

	s.logger.Info("Certificate status updated",
		zap.String("certificate_id", id.String()),
		zap.String("status", req.Status),
	)
	if req.Status == models.CertificateStatusRefused {
		go s.notifyRefusal(context.WithoutCancel(ctx), certificate, req.Reason)
	}
	return certificate, nil
}

func (s *certificateServiceImpl) notifyRefusal(ctx context.Context, certificate *models.Certificate, reason string) {
	ins := certificate.Inscription
	if ins == nil || ins.Athlete == nil || ins.Athlete.User == nil {
		s.logger.Warn("Cannot notify refusal, athlete not loaded", zap.String("certificate_id", certificate.ID.String()))
		return
	}
	body, err := renderCertificateRefused(ins.Athlete.FirstName, reason, s.frontendURL)
	if err != nil {
		s.logger.Error("Failed to render refusal email", zap.Error(err))
		return
	}
	if err := s.mailer.SendEmail(ctx, ins.Athlete.User.Email, certificateRefusedSubject, body); err != nil {
		s.logger.Error("Failed to send refusal email",
			zap.String("certificate_id", certificate.ID.String()),
			zap.Error(err),
		)
	}
}

// activeInscription returns the caller's inscription in the active edition.
func (s *certificateServiceImpl) activeInscription(ctx context.Context, principal *models.Principal) (*models.Inscription, *ServiceError) {
	if principal.AthleteID == nil {
		return nil, notFound("Inscription not found.")
	}
	edition, err := s.editions.FindActive(ctx)
	if err != nil {
		return nil, dbError(err, "No active edition.", "")
	}
	inscription, err := s.inscriptions.FindActive(ctx, *principal.AthleteID, edition.ID)
	if err != nil {
		return nil, dbError(err, "Inscription not found.", "")
	}
	return inscription, nil
}

// LastCertificate returns the caller's latest non-refused certificate in the
// active edition.
func (s *certificateServiceImpl) LastCertificate(ctx context.Context, principal *models.Principal) (*models.Certificate, *ServiceError) {
	if principal.AthleteID == nil {
		return nil, notFound("No previous certificate.")
	}
	edition, err := s.editions.FindActive(ctx)
	if err != nil {
		return nil, dbError(err, "No active edition.", "")
	}
	certificate, err := s.repo.FindLastUsable(ctx, *principal.AthleteID, edition.ID)
	if err != nil {
		return nil, dbError(err, "No previous certificate.", "")
	}
	return certificate, nil
}

// AttachToCurrentInscription moves one of the caller's certificates onto
// their inscription of the active edition and resets its review.
func (s *certificateServiceImpl) AttachToCurrentInscription(ctx context.Context, principal *models.Principal, id uuid.UUID) (*models.Certificate, *ServiceError) {
	certificate, svcErr := s.owned(ctx, principal, id)
	if svcErr != nil {
		return nil, svcErr
	}
	inscription, svcErr := s.activeInscription(ctx, principal)
	if svcErr != nil {
		return nil, svcErr
	}
	if certificate.InscriptionID == inscription.ID {
		return certificate, nil
	}
	if inscription.Certificate != nil {
		return nil, conflict("Inscription already has a certificate.")
	}

	now := time.Now()
	certificate.InscriptionID = inscription.ID
	certificate.Status = models.CertificateStatusPending
	certificate.StatusUpdatedAt = &now
	certificate.StatusUpdatedByID = nil
	certificate.Inscription = nil
	if err := s.repo.Update(ctx, certificate); err != nil {
		return nil, dbError(err, "Certificate not found.", "Inscription already has a certificate.")
	}
	return certificate, nil
}
