package repository

import (
	"context"

	"github.com/RMahshie/bridgesim/pkg/models"
	"github.com/google/uuid"
)

// RunRepository defines the interface for simulation run data operations
type RunRepository interface {
	Create(ctx context.Context, run *models.Run) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Run, error)
	List(ctx context.Context, limit int) ([]*models.Run, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error
	UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error
	SetArchive(ctx context.Context, id uuid.UUID, archiveKey string, nonConvergent bool) error
	StoreResults(ctx context.Context, results *models.RunResults) error
	GetResults(ctx context.Context, runID uuid.UUID) (*models.RunResults, error)
}
