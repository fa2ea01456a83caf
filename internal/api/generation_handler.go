package api

import (
	"net/http"
	"strconv"

	"github.com/content-generation-api/internal/config"
	"github.com/content-generation-api/internal/models"
	"github.com/content-generation-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// GenerationHandler handles content generation endpoints
type GenerationHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewGenerationHandler creates a new GenerationHandler
func NewGenerationHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *GenerationHandler {
	return &GenerationHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "generation").Logger(),
	}
}

// CreateRun handles POST /v1/generation/runs. The run executes synchronously
// and the aggregated result is returned in the response.
func (h *GenerationHandler) CreateRun(c *gin.Context) {
	var req models.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if req.AuthorID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "author_id is required"})
		return
	}
	if req.Directory == "" && req.Units == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "either directory or units is required"})
		return
	}
	if req.Directory != "" && len(req.Units) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "directory and units are mutually exclusive"})
		return
	}

	result, err := h.services.Generation.Run(c.Request.Context(), &req)
	if err != nil {
		// Abort error: no units were processed
		h.log.Warn().Err(err).Str("author_id", req.AuthorID).Msg("Generation run aborted")
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"status": models.RunStatusError,
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListLogs handles GET /v1/generation/logs
func (h *GenerationHandler) ListLogs(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	logs, err := h.services.Generation.ListLogs(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list generation logs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list generation logs"})
		return
	}
	if logs == nil {
		logs = []*models.GenerationLog{}
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(logs),
		"logs":  logs,
	})
}

// ClearLogs handles DELETE /v1/generation/logs
func (h *GenerationHandler) ClearLogs(c *gin.Context) {
	deleted, err := h.services.Generation.ClearLogs(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to clear generation logs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear generation logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
