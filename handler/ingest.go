package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jansaakshi/backend/model"
	"github.com/jansaakshi/backend/pkg/logger"
	"github.com/jansaakshi/backend/service"
)

// Ingestion is the minutes processing pipeline
type Ingestion interface {
	Submit(ctx context.Context, up service.Upload) (*model.IngestJob, error)
	HandleCallback(ctx context.Context, data *service.OCRTaskData) error
	Jobs() *service.JobStore
}

// CallbackVerifier checks OCR callback signatures
type CallbackVerifier interface {
	VerifyCallback(checksum, content, uid string) bool
}

type IngestHandler struct {
	ingestion Ingestion
	verifier  CallbackVerifier
	uid       string
	city      cityResolver
	maxBytes  int64
}

// NewIngestHandler creates the upload and callback endpoints. A nil verifier
// accepts unsigned callbacks.
func NewIngestHandler(ingestion Ingestion, verifier CallbackVerifier, uid string,
	cities CityLookup, defaultCity string, maxUploadMB int) *IngestHandler {
	return &IngestHandler{
		ingestion: ingestion,
		verifier:  verifier,
		uid:       uid,
		city:      cityResolver{cities: cities, defaultCity: defaultCity},
		maxBytes:  int64(maxUploadMB) << 20,
	}
}

// Upload handles POST /api/admin/upload-pdf. Processing continues in the
// background; the response carries the job id to poll.
func (h *IngestHandler) Upload(c *gin.Context) {
	cityID, cityName, ok := h.city.resolve(c, c.PostForm("city"))
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	if strings.ToLower(filepath.Ext(header.Filename)) != ".pdf" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF files are allowed"})
		return
	}
	if h.maxBytes > 0 && header.Size > h.maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
		return
	}

	// the declared type is not trusted; sniff the first bytes instead
	buffer := make([]byte, 512)
	n, err := io.ReadFull(file, buffer)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}
	if detected := http.DetectContentType(buffer[:n]); !strings.Contains(detected, "pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file type"})
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	job, err := h.ingestion.Submit(c.Request.Context(), service.Upload{
		City:        cityName,
		CityID:      cityID,
		Filename:    filepath.Base(header.Filename),
		ContentType: "application/pdf",
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		logger.Error(c.Request.Context(), "upload failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":   job.ID,
		"filename": job.Filename,
		"status":   job.Status,
	})
}

// Job handles GET /api/admin/jobs/:id
func (h *IngestHandler) Job(c *gin.Context) {
	job := h.ingestion.Jobs().Get(c.Param("id"))
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// Jobs handles GET /api/admin/jobs
func (h *IngestHandler) Jobs(c *gin.Context) {
	_, cityName, ok := h.city.resolve(c, "")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": h.ingestion.Jobs().List(cityName)})
}

// Callback handles POST /api/ocr/callback from the OCR service
func (h *IngestHandler) Callback(c *gin.Context) {
	var payload service.OCRCallbackPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if h.verifier != nil && !h.verifier.VerifyCallback(payload.Checksum, payload.Content, h.uid) {
		logger.Warn(c.Request.Context(), "ocr callback with bad checksum")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid checksum"})
		return
	}

	data, err := service.ParseCallback(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid content format"})
		return
	}

	if err := h.ingestion.HandleCallback(c.Request.Context(), data); err != nil {
		if errors.Is(err, service.ErrUnknownTask) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		logger.Error(c.Request.Context(), "ocr callback failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process callback"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Callback received"})
}
