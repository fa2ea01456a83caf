package service

import (
	"context"

	"github.com/content-generation-api/internal/config"
	"github.com/content-generation-api/internal/models"
	"github.com/content-generation-api/internal/repository"
	"github.com/content-generation-api/internal/security"
	"github.com/rs/zerolog"
)

// GenerationService defines the interface for content generation runs and
// their audit records
type GenerationService interface {
	// Run executes one full generation run synchronously and returns its
	// aggregated result. An error is an abort: no units were processed.
	Run(ctx context.Context, req *models.RunRequest) (*models.RunResult, error)

	// ListLogs returns the most recent run records, newest first
	ListLogs(ctx context.Context, limit int) ([]*models.GenerationLog, error)

	// ClearLogs purges all run records and returns how many were removed
	ClearLogs(ctx context.Context) (int64, error)
}

// Services holds all service interfaces
type Services struct {
	Generation GenerationService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, cfg *config.Config, sink security.EventSink, log zerolog.Logger) *Services {
	return &Services{
		Generation: newGenerationService(repos, cfg, sink, log),
	}
}
