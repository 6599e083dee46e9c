// Package handler provides the HTTP handlers for the retrieval service.
package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/ragserve/internal/pkg/extract"
	"github.com/kart-io/ragserve/internal/pkg/httputils"
	"github.com/kart-io/ragserve/internal/ragserve/biz"
)

// Client-facing messages for validation failures.
const (
	msgUnsupportedType = "Only PDF and TXT files are supported."
	msgEmptyDocument   = "Could not extract text from the file."
	msgEmptyQuery      = "Query cannot be empty."
	msgMissingFile     = "A file upload named 'file' is required."
	msgChatTimeout     = "The request took too long to process. Please try again or simplify your question."
)

// Config configures the handler.
type Config struct {
	// Device identifies the generation backend in health responses.
	Device string
	// ChatTimeout bounds one chat request end to end.
	ChatTimeout time.Duration
	// MaxUploadSize caps the accepted upload size in bytes.
	MaxUploadSize int64
}

// Handler handles the service's HTTP requests.
type Handler struct {
	service biz.Service
	config  *Config
}

// New creates a handler.
func New(service biz.Service, config *Config) *Handler {
	if config.ChatTimeout <= 0 {
		config.ChatTimeout = 120 * time.Second
	}
	return &Handler{
		service: service,
		config:  config,
	}
}

// HealthResponse is the health endpoint body.
type HealthResponse struct {
	Status     string `json:"status"`
	Device     string `json:"device"`
	Collection string `json:"collection"`
}

// Health reports service status.
func (h *Handler) Health(c *gin.Context) {
	httputils.WriteOK(c, HealthResponse{
		Status:     "ok",
		Device:     h.config.Device,
		Collection: h.service.Collection(),
	})
}

// Index ingests one uploaded document.
func (h *Handler) Index(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		httputils.WriteError(c, http.StatusBadRequest, msgMissingFile)
		return
	}
	defer file.Close()

	if !extract.IsSupported(header.Filename) {
		httputils.WriteError(c, http.StatusBadRequest, msgUnsupportedType)
		return
	}

	if h.config.MaxUploadSize > 0 && header.Size > h.config.MaxUploadSize {
		httputils.WriteError(c, http.StatusRequestEntityTooLarge, "File exceeds the maximum upload size.")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		httputils.WriteError(c, http.StatusBadRequest, "Failed to read the uploaded file.")
		return
	}

	result, err := h.service.IndexDocument(c.Request.Context(), header.Filename, data)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrUnsupportedType):
			httputils.WriteError(c, http.StatusBadRequest, msgUnsupportedType)
		case errors.Is(err, biz.ErrEmptyDocument):
			httputils.WriteError(c, http.StatusUnprocessableEntity, msgEmptyDocument)
		default:
			logger.Errorw("index failed", "filename", header.Filename, "error", err.Error())
			httputils.WriteError(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	httputils.WriteOK(c, result)
}

// ChatRequest is the chat endpoint body.
type ChatRequest struct {
	Query        string `json:"query"`
	TopK         int    `json:"top_k"`
	MaxNewTokens int    `json:"max_new_tokens"`
}

// Chat answers a question grounded on indexed documents.
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteError(c, http.StatusBadRequest, "Invalid request body.")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.ChatTimeout)
	defer cancel()

	result, err := h.service.Chat(ctx, req.Query, req.TopK, req.MaxNewTokens)
	if err != nil {
		switch {
		case errors.Is(err, biz.ErrEmptyQuery):
			httputils.WriteError(c, http.StatusBadRequest, msgEmptyQuery)
		case errors.Is(err, context.DeadlineExceeded):
			httputils.WriteError(c, http.StatusRequestTimeout, msgChatTimeout)
		default:
			logger.Errorw("chat failed", "error", err.Error())
			httputils.WriteError(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	httputils.WriteOK(c, result)
}

// ResetResponse is the collection reset body.
type ResetResponse struct {
	Message string `json:"message"`
}

// ResetCollection drops and recreates the collection.
func (h *Handler) ResetCollection(c *gin.Context) {
	msg, err := h.service.ResetCollection(c.Request.Context())
	if err != nil {
		logger.Errorw("collection reset failed", "error", err.Error())
		httputils.WriteError(c, http.StatusInternalServerError, err.Error())
		return
	}

	httputils.WriteOK(c, ResetResponse{Message: msg})
}

// Stats reports collection and pipeline statistics.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		logger.Errorw("stats failed", "error", err.Error())
		httputils.WriteError(c, http.StatusInternalServerError, err.Error())
		return
	}

	httputils.WriteOK(c, stats)
}
