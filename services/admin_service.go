package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/24HeuresINSA/OverRun-backend/common/errors"
	"github.com/24HeuresINSA/OverRun-backend/models"
	"github.com/24HeuresINSA/OverRun-backend/repository"
)

// AdminService manages back-office accounts.
type AdminService interface {
	ListAdmins(ctx context.Context, q repository.ListQuery) (*models.Page[models.Admin], *ServiceError)
	GetAdmin(ctx context.Context, id uuid.UUID) (*models.Admin, *ServiceError)
	CreateAdmin(ctx context.Context, req *models.CreateAdminRequest) (*models.Admin, *ServiceError)
	ActivateAdmin(ctx context.Context, principal *models.Principal, id uuid.UUID, active *bool) (*models.Admin, *ServiceError)
	DeleteAdmin(ctx context.Context, principal *models.Principal, id uuid.UUID) *ServiceError
	Bootstrap(ctx context.Context, username, email, password string) (*models.Admin, error)

	ListInvitations(ctx context.Context, q repository.ListQuery) (*models.Page[models.AdminInvitation], *ServiceError)
	CreateInvitation(ctx context.Context, req *models.CreateAdminInvitationRequest) (*models.AdminInvitation, *ServiceError)
	AcceptInvitation(ctx context.Context, id uuid.UUID, req *models.AcceptAdminInvitationRequest) (*models.Admin, *ServiceError)
	DeleteInvitation(ctx context.Context, id uuid.UUID) *ServiceError
}

type adminServiceImpl struct {
	users         repository.UserRepository
	mailer        Mailer
	frontendURL   string
	invitationTTL time.Duration
	logger        *zap.Logger
}

// NewAdminService creates an AdminService. A nil mailer only logs the
// invitation emails.
func NewAdminService(users repository.UserRepository, mailer Mailer, frontendURL string, invitationTTL time.Duration, logger *zap.Logger) AdminService {
	if mailer == nil {
		mailer = &logMailer{logger: logger}
	}
	if invitationTTL <= 0 {
		invitationTTL = 48 * time.Hour
	}
	return &adminServiceImpl{
		users:         users,
		mailer:        mailer,
		frontendURL:   frontendURL,
		invitationTTL: invitationTTL,
		logger:        logger,
	}
}

func (s *adminServiceImpl) ListAdmins(ctx context.Context, q repository.ListQuery) (*models.Page[models.Admin], *ServiceError) {
	admins, err := s.users.ListAdmins(ctx, q)
	if err != nil {
		s.logger.Error("Failed to list admins", zap.Error(err))
		return nil, internal()
	}
	page := repository.NewPage(admins, q)
	return &page, nil
}

func (s *adminServiceImpl) GetAdmin(ctx context.Context, id uuid.UUID) (*models.Admin, *ServiceError) {
	admin, err := s.users.FindAdminByID(ctx, id)
	if err != nil {
		return nil, dbError(err, "Admin not found.", "")
	}
	return admin, nil
}

// CreateAdmin grants admin rights to an existing user.
func (s *adminServiceImpl) CreateAdmin(ctx context.Context, req *models.CreateAdminRequest) (*models.Admin, *ServiceError) {
	if _, err := s.users.FindByID(ctx, req.UserID); err != nil {
		return nil, dbError(err, "User not found.", "")
	}
	if _, err := s.users.FindAdminByUserID(ctx, req.UserID); err == nil {
		return nil, conflict("User is already an admin.")
	} else if !apperrors.IsNotFound(err) {
		s.logger.Error("Failed to check admin", zap.Error(err))
		return nil, internal()
	}

	admin := &models.Admin{UserID: req.UserID, Active: req.Active}
	if err := s.users.CreateAdmin(ctx, admin); err != nil {
		return nil, dbError(err, "", "User is already an admin.")
	}
	s.logger.Info("Admin created", zap.String("admin_id", admin.ID.String()))
	return admin, nil
}

// ActivateAdmin sets the active flag, toggling it when active is nil.
// An admin cannot deactivate themselves.
func (s *adminServiceImpl) ActivateAdmin(ctx context.Context, principal *models.Principal, id uuid.UUID, active *bool) (*models.Admin, *ServiceError) {
	admin, svcErr := s.GetAdmin(ctx, id)
	if svcErr != nil {
		return nil, svcErr
	}
	next := !admin.Active
	if active != nil {
		next = *active
	}
	if !next && principal.AdminID != nil && *principal.AdminID == admin.ID {
		return nil, badRequest("Admin cannot deactivate him/herself.")
	}
	if err := s.users.SetAdminActive(ctx, admin.ID, next); err != nil {
		return nil, dbError(err, "Admin not found.", "")
	}
	admin.Active = next
	s.logger.Info("Admin activation changed",
		zap.String("admin_id", admin.ID.String()),
		zap.Bool("active", next),
	)
	return admin, nil
}

func (s *adminServiceImpl) DeleteAdmin(ctx context.Context, principal *models.Principal, id uuid.UUID) *ServiceError {
	if principal.AdminID != nil && *principal.AdminID == id {
		return badRequest("Admin cannot delete him/herself.")
	}
	if err := s.users.DeleteAdmin(ctx, id); err != nil {
		return dbError(err, "Admin not found.", "")
	}
	s.logger.Info("Admin deleted", zap.String("admin_id", id.String()))
	return nil
}

// Bootstrap creates an active admin account with its own user. It backs the
// create-admin command.
func (s *adminServiceImpl) Bootstrap(ctx context.Context, username, email, password string) (*models.Admin, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username: strings.TrimSpace(username),
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: hash,
	}
	admin := &models.Admin{Active: true}
	if err := s.users.CreateWithAdmin(ctx, user, admin); err != nil {
		return nil, apperrors.FromDB(err)
	}
	admin.User = user
	return admin, nil
}

func (s *adminServiceImpl) ListInvitations(ctx context.Context, q repository.ListQuery) (*models.Page[models.AdminInvitation], *ServiceError) {
	invitations, err := s.users.ListAdminInvitations(ctx, q)
	if err != nil {
		s.logger.Error("Failed to list admin invitations", zap.Error(err))
		return nil, internal()
	}
	page := repository.NewPage(invitations, q)
	return &page, nil
}

// CreateInvitation stores a hashed one-time token and emails the clear
// token to the invitee. The invitation is dropped again when the email
// cannot be sent.
func (s *adminServiceImpl) CreateInvitation(ctx context.Context, req *models.CreateAdminInvitationRequest) (*models.AdminInvitation, *ServiceError) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	inv := &models.AdminInvitation{Email: email, ExpiresAt: time.Now().Add(s.invitationTTL)}

	user, err := s.users.FindByLogin(ctx, email)
	switch {
	case err == nil && strings.EqualFold(user.Email, email):
		if user.Admin != nil {
			return nil, conflict("Admin already exists.")
		}
		inv.UserID = &user.ID
	case err != nil && !apperrors.IsNotFound(err):
		s.logger.Error("Failed to look up invitee", zap.Error(err))
		return nil, internal()
	}

	token, err := invitationToken()
	if err != nil {
		s.logger.Error("Failed to generate invitation token", zap.Error(err))
		return nil, internal()
	}
	if inv.TokenHash, err = hashPassword(token); err != nil {
		s.logger.Error("Failed to hash invitation token", zap.Error(err))
		return nil, internal()
	}
	if err := s.users.CreateAdminInvitation(ctx, inv); err != nil {
		return nil, dbError(err, "", "Invitation already exists.")
	}

	body, err := renderAdminInvitation(s.frontendURL+"/admin/invitation/"+inv.ID.String()+"?token="+token, inv.UserID != nil)
	if err == nil {
		err = s.mailer.SendEmail(ctx, email, adminInvitationSubject, body)
	}
	if err != nil {
		s.logger.Error("Failed to send admin invitation",
			zap.String("invitation_id", inv.ID.String()),
			zap.Error(err),
		)
		if delErr := s.users.DeleteAdminInvitation(ctx, inv.ID); delErr != nil {
			s.logger.Warn("Failed to drop unsent invitation", zap.Error(delErr))
		}
		return nil, internalMsg("Failed to send the invitation email.")
	}

	s.logger.Info("Admin invitation sent", zap.String("invitation_id", inv.ID.String()))
	return inv, nil
}

// AcceptInvitation turns a valid token into an active admin. An invitation
// without a known user creates the account from the request.
func (s *adminServiceImpl) AcceptInvitation(ctx context.Context, id uuid.UUID, req *models.AcceptAdminInvitationRequest) (*models.Admin, *ServiceError) {
	inv, err := s.users.FindAdminInvitation(ctx, id)
	if err != nil {
		return nil, dbError(err, "Invitation not found.", "")
	}
	if !checkPassword(inv.TokenHash, req.Token) {
		return nil, newError(http.StatusForbidden, "Invalid token.")
	}
	if time.Now().After(inv.ExpiresAt) {
		return nil, badRequest("Token has expired.")
	}

	admin := &models.Admin{Active: true}
	var user *models.User
	if inv.UserID != nil {
		admin.UserID = *inv.UserID
	} else {
		if req.Username == "" || req.Password == "" {
			return nil, badRequest("username and password are required.")
		}
		hash, err := hashPassword(req.Password)
		if err != nil {
			s.logger.Error("Failed to hash password", zap.Error(err))
			return nil, internal()
		}
		user = &models.User{Username: strings.TrimSpace(req.Username), Email: inv.Email, Password: hash}
	}

	if err := s.users.AcceptAdminInvitation(ctx, inv.ID, user, admin); err != nil {
		return nil, dbError(err, "Invitation not found.", "Email, username or admin already exists.")
	}
	admin.User = user
	s.logger.Info("Admin invitation accepted",
		zap.String("invitation_id", inv.ID.String()),
		zap.String("admin_id", admin.ID.String()),
	)
	return admin, nil
}

func (s *adminServiceImpl) DeleteInvitation(ctx context.Context, id uuid.UUID) *ServiceError {
	if err := s.users.DeleteAdminInvitation(ctx, id); err != nil {
		return dbError(err, "Invitation not found.", "")
	}
	return nil
}

func invitationToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
