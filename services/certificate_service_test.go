package services_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/24HeuresINSA/OverRun-backend/models"
	"github.com/24HeuresINSA/OverRun-backend/repository"
	"github.com/24HeuresINSA/OverRun-backend/services"
)

type memStore struct {
	objects map[string][]byte
	deleted []string
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (m *memStore) PutObject(_ context.Context, key, _ string, body []byte) error {
	m.objects[key] = body
	return nil
}
func (m *memStore) GetObject(_ context.Context, key string) (io.ReadCloser, error) {
	b, ok := m.objects[key]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}
func (m *memStore) DeleteObject(_ context.Context, key string) error {
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent chan string
}

func (r *recordingMailer) SendEmail(_ context.Context, to, _, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent <- to + "|" + body
	return nil
}

type mockCertificateRepo struct {
	byInscription *models.Certificate
	byID          *models.Certificate
	created       *models.Certificate
	updated       *models.Certificate
}

func (m *mockCertificateRepo) Create(_ context.Context, c *models.Certificate) error {
	c.ID = uuid.New()
	m.created = c
	return nil
}
func (m *mockCertificateRepo) Update(_ context.Context, c *models.Certificate) error {
	m.updated = c
	return nil
}
func (m *mockCertificateRepo) FindByID(_ context.Context, _ uuid.UUID) (*models.Certificate, error) {
	if m.byID == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return m.byID, nil
}
func (m *mockCertificateRepo) FindByInscriptionID(_ context.Context, _ uuid.UUID) (*models.Certificate, error) {
	if m.byInscription == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return m.byInscription, nil
}
func (m *mockCertificateRepo) FindLastUsable(_ context.Context, _, _ uuid.UUID) (*models.Certificate, error) {
	if m.byID == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return m.byID, nil
}
func (m *mockCertificateRepo) List(_ context.Context, _ repository.ListQuery) ([]models.Certificate, error) {
	return nil, nil
}

func newCertificateService(repo *mockCertificateRepo, ins *mockInscriptionRepo, store *memStore, mailer services.Mailer) services.CertificateService {
	return services.NewCertificateService(repo, ins, newMockEditionRepo(), store, mailer, "https://overrun.example", zap.NewNop())
}

var pdf = &services.CertificateUpload{ContentType: "application/pdf", Data: []byte("%PDF-1.4 test")}

func TestUploadCertificate_New(t *testing.T) {
	athleteID := uuid.New()
	ins := &models.Inscription{ID: uuid.New(), AthleteID: athleteID}
	repo := &mockCertificateRepo{}
	store := newMemStore()
	svc := newCertificateService(repo, &mockInscriptionRepo{inscription: ins}, store, &recordingMailer{})

	cert, svcErr := svc.UploadCertificate(context.Background(), athletePrincipal(athleteID), uuid.New(), pdf)

	require.Nil(t, svcErr)
	assert.Equal(t, ins.ID, cert.InscriptionID)
	assert.Equal(t, models.CertificateStatusPending, cert.Status)
	assert.Equal(t, ".pdf", filepath.Ext(cert.Filename))
	assert.Equal(t, pdf.Data, store.objects[cert.Filename])
}

func TestUploadCertificate_ReplacesAndResetsReview(t *testing.T) {
	athleteID := uuid.New()
	ins := &models.Inscription{ID: uuid.New(), AthleteID: athleteID}
	adminID := uuid.New()
	reviewed := time.Now()
	existing := &models.Certificate{
		ID:                uuid.New(),
		InscriptionID:     ins.ID,
		Filename:          "certificates/old.png",
		Status:            models.CertificateStatusRefused,
		StatusUpdatedAt:   &reviewed,
		StatusUpdatedByID: &adminID,
	}
	store := newMemStore()
	store.objects["certificates/old.png"] = []byte("old")
	repo := &mockCertificateRepo{byInscription: existing}
	svc := newCertificateService(repo, &mockInscriptionRepo{inscription: ins}, store, &recordingMailer{})

	cert, svcErr := svc.UploadCertificate(context.Background(), athletePrincipal(athleteID), uuid.New(), pdf)

	require.Nil(t, svcErr)
	assert.Same(t, existing, repo.updated)
	assert.Equal(t, models.CertificateStatusPending, cert.Status)
	assert.Nil(t, cert.StatusUpdatedAt)
	assert.Nil(t, cert.StatusUpdatedByID)
	assert.Equal(t, []string{"certificates/old.png"}, store.deleted)
	assert.Contains(t, store.objects, cert.Filename)
}

func TestUploadCertificate_Rejects(t *testing.T) {
	athleteID := uuid.New()

	t.Run("unsupported type", func(t *testing.T) {
		svc := newCertificateService(&mockCertificateRepo{}, &mockInscriptionRepo{}, newMemStore(), &recordingMailer{})

		_, svcErr := svc.UploadCertificate(context.Background(), athletePrincipal(athleteID), uuid.New(),
			&services.CertificateUpload{ContentType: "text/html", Data: []byte("<html>")})

		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
	})

	t.Run("not registered", func(t *testing.T) {
		store := newMemStore()
		svc := newCertificateService(&mockCertificateRepo{}, &mockInscriptionRepo{findErr: gorm.ErrRecordNotFound}, store, &recordingMailer{})

		_, svcErr := svc.UploadCertificate(context.Background(), athletePrincipal(athleteID), uuid.New(), pdf)

		require.NotNil(t, svcErr)
		assert.Equal(t, "Athlete must be registered to submit a certificate.", svcErr.Message)
		assert.Empty(t, store.objects)
	})
}

func TestUpdateCertificateStatus_RefusalSendsEmail(t *testing.T) {
	cert := &models.Certificate{
		ID:     uuid.New(),
		Status: models.CertificateStatusPending,
		Inscription: &models.Inscription{
			Athlete: &models.Athlete{FirstName: "Jeanne", User: &models.User{Email: "jeanne@example.com"}},
		},
	}
	mailer := &recordingMailer{sent: make(chan string, 1)}
	repo := &mockCertificateRepo{byID: cert}
	svc := newCertificateService(repo, &mockInscriptionRepo{}, newMemStore(), mailer)
	admin := adminPrincipal()

	updated, svcErr := svc.UpdateCertificateStatus(context.Background(), admin, cert.ID,
		&models.UpdateCertificateStatusRequest{Status: models.CertificateStatusRefused, Reason: "Illisible"})

	require.Nil(t, svcErr)
	assert.Equal(t, models.CertificateStatusRefused, updated.Status)
	assert.Equal(t, admin.AdminID, updated.StatusUpdatedByID)
	assert.NotNil(t, updated.StatusUpdatedAt)

	select {
	case got := <-mailer.sent:
		assert.Contains(t, got, "jeanne@example.com|")
		assert.Contains(t, got, "Illisible")
		assert.Contains(t, got, "Jeanne")
	case <-time.After(2 * time.Second):
		t.Fatal("refusal email was not sent")
	}
}

func TestUpdateCertificateStatus_RefusalNeedsReason(t *testing.T) {
	repo := &mockCertificateRepo{byID: &models.Certificate{ID: uuid.New()}}
	svc := newCertificateService(repo, &mockInscriptionRepo{}, newMemStore(), &recordingMailer{})

	_, svcErr := svc.UpdateCertificateStatus(context.Background(), adminPrincipal(), repo.byID.ID,
		&models.UpdateCertificateStatusRequest{Status: models.CertificateStatusRefused})

	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
	assert.Nil(t, repo.updated)
}

func TestDownloadCertificate_Ownership(t *testing.T) {
	owner := uuid.New()
	store := newMemStore()
	store.objects["certificates/a.pdf"] = []byte("%PDF")
	cert := &models.Certificate{
		ID:          uuid.New(),
		Filename:    "certificates/a.pdf",
		ContentType: "application/pdf",
		Inscription: &models.Inscription{AthleteID: owner},
	}
	svc := newCertificateService(&mockCertificateRepo{byID: cert}, &mockInscriptionRepo{}, store, &recordingMailer{})

	file, svcErr := svc.DownloadCertificate(context.Background(), athletePrincipal(owner), cert.ID)
	require.Nil(t, svcErr)
	defer file.Body.Close()
	body, err := io.ReadAll(file.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), body)
	assert.Equal(t, "application/pdf", file.ContentType)

	_, svcErr = svc.DownloadCertificate(context.Background(), athletePrincipal(uuid.New()), cert.ID)
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusForbidden, svcErr.StatusCode)

	_, svcErr = svc.DownloadCertificate(context.Background(), adminPrincipal(), cert.ID)
	assert.Nil(t, svcErr)
}

func TestAttachToCurrentInscription(t *testing.T) {
	owner := uuid.New()
	current := &models.Inscription{ID: uuid.New(), AthleteID: owner}
	cert := &models.Certificate{
		ID:            uuid.New(),
		InscriptionID: uuid.New(),
		Status:        models.CertificateStatusValidated,
		Inscription:   &models.Inscription{AthleteID: owner},
	}
	repo := &mockCertificateRepo{byID: cert}
	svc := newCertificateService(repo, &mockInscriptionRepo{inscription: current}, newMemStore(), &recordingMailer{})

	moved, svcErr := svc.AttachToCurrentInscription(context.Background(), athletePrincipal(owner), cert.ID)

	require.Nil(t, svcErr)
	assert.Equal(t, current.ID, moved.InscriptionID)
	assert.Equal(t, models.CertificateStatusPending, moved.Status)
	assert.Nil(t, moved.StatusUpdatedByID)
}

func TestDiskStore_RoundTrip(t *testing.T) {
	store, err := services.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.PutObject(ctx, "certificates/x.pdf", "application/pdf", []byte("data")))
	rc, err := store.GetObject(ctx, "certificates/x.pdf")
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "data", string(b))

	require.NoError(t, store.DeleteObject(ctx, "certificates/x.pdf"))
	require.NoError(t, store.DeleteObject(ctx, "certificates/x.pdf"))
	_, err = store.GetObject(ctx, "certificates/x.pdf")
	assert.Error(t, err)
}
