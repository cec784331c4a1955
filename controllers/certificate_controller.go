package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/24HeuresINSA/OverRun-backend/middleware"
	"github.com/24HeuresINSA/OverRun-backend/models"
	"github.com/24HeuresINSA/OverRun-backend/services"
)

// CertificateController handles medical certificate uploads and review.
type CertificateController struct {
	Service  services.CertificateService
	Editions ActiveEditionFinder
	MaxBytes int64
	Logger   *zap.Logger
}

// UploadCertificate handles POST /certificates/upload. The file is sent as
// the multipart field "certificate".
func (cc *CertificateController) UploadCertificate(c *gin.Context) {
	// Leave room for the multipart envelope around the file itself.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, cc.MaxBytes+64<<10)

	header, err := c.FormFile("certificate")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Certificate is too large."})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "File upload required"})
		return
	}
	if header.Size > cc.MaxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Certificate is too large."})
		return
	}

	editionID, ok := resolveEdition(c, cc.Editions)
	if !ok {
		return
	}

	src, err := header.Open()
	if err != nil {
		cc.Logger.Error("Failed to open uploaded certificate", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open file"})
		return
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		cc.Logger.Error("Failed to read uploaded certificate", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}

	upload := &services.CertificateUpload{ContentType: http.DetectContentType(data), Data: data}
	cert, svcErr := cc.Service.UploadCertificate(c.Request.Context(), middleware.CurrentPrincipal(c), editionID, upload)
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusCreated, cert)
}

// ListCertificates handles GET /certificates
func (cc *CertificateController) ListCertificates(c *gin.Context) {
	page, svcErr := cc.Service.ListCertificates(c.Request.Context(), middleware.ListQuery(c))
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetCertificate handles GET /certificates/:id
func (cc *CertificateController) GetCertificate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	cert, svcErr := cc.Service.GetCertificate(c.Request.Context(), id)
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, cert)
}

// DownloadCertificate handles GET /certificates/:id/download
func (cc *CertificateController) DownloadCertificate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	file, svcErr := cc.Service.DownloadCertificate(c.Request.Context(), middleware.CurrentPrincipal(c), id)
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	defer file.Body.Close()

	c.DataFromReader(http.StatusOK, -1, file.ContentType, file.Body, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", path.Base(file.Name)),
	})
}

// UpdateCertificateStatus handles POST /certificates/:id
func (cc *CertificateController) UpdateCertificateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.UpdateCertificateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	cert, svcErr := cc.Service.UpdateCertificateStatus(c.Request.Context(), middleware.CurrentPrincipal(c), id, &req)
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, cert)
}

// LastCertificate handles GET /certificates/me/last
func (cc *CertificateController) LastCertificate(c *gin.Context) {
	cert, svcErr := cc.Service.LastCertificate(c.Request.Context(), middleware.CurrentPrincipal(c))
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, cert)
}

// AttachCertificate handles PATCH /certificates/:id, moving a previous
// certificate onto the caller's current inscription.
func (cc *CertificateController) AttachCertificate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	cert, svcErr := cc.Service.AttachToCurrentInscription(c.Request.Context(), middleware.CurrentPrincipal(c), id)
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, cert)
}
