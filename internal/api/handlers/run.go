package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/RMahshie/bridgesim/internal/processing"
	"github.com/RMahshie/bridgesim/internal/repository"
	"github.com/RMahshie/bridgesim/internal/setup"
	"github.com/RMahshie/bridgesim/internal/storage"
	"github.com/RMahshie/bridgesim/pkg/models"
	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RunHandler handles simulation run HTTP requests
type RunHandler struct {
	repo          repository.RunRepository
	store         storage.ArchiveStore
	processingSvc processing.ProcessingService
}

// NewRunHandler creates a new run handler
func NewRunHandler(repo repository.RunRepository, store storage.ArchiveStore, processingSvc processing.ProcessingService) *RunHandler {
	return &RunHandler{
		repo:          repo,
		store:         store,
		processingSvc: processingSvc,
	}
}

// CreateRun validates the parameters and stores a pending run
func (h *RunHandler) CreateRun(ctx context.Context, req *models.CreateRunRequest) (*models.CreateRunResponse, error) {
	params, err := setup.WithDefaults(req.Body.Params)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid run parameters", err)
	}
	// assembling the plan catches bad geometry before anything is queued
	if _, err := setup.Build(params); err != nil {
		if errors.Is(err, models.ErrInvalidGeometry) {
			return nil, huma.Error400BadRequest("Invalid resonator geometry", err)
		}
		return nil, huma.Error400BadRequest("Invalid run parameters", err)
	}

	run := &models.Run{
		ID:     uuid.New().String(),
		Label:  req.Body.Label,
		Status: models.StatusPending,
		Params: params,
	}
	if err := h.repo.Create(ctx, run); err != nil {
		return nil, huma.Error500InternalServerError("Failed to create run", err)
	}

	log.Info().Str("run_id", run.ID).Str("label", run.Label).Msg("Run created")
	return &models.CreateRunResponse{
		Body: models.CreateRunResponseBody{
			ID:     run.ID,
			Status: run.Status,
		},
	}, nil
}

// StartRun starts the two solver passes in the background
func (h *RunHandler) StartRun(ctx context.Context, req *models.StartRunRequest) (*models.StartRunResponse, error) {
	runID, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid run ID", err)
	}

	run, err := h.repo.GetByID(ctx, runID)
	if err != nil {
		return nil, notFoundOr500(err)
	}
	if run.Status == models.StatusProcessing || run.Status == models.StatusCompleted {
		return nil, huma.Error409Conflict("Run already started",
			fmt.Errorf("run status is %s", run.Status))
	}

	log.Info().Str("run_id", run.ID).Msg("Starting background processing goroutine")
	go func() {
		if err := h.processingSvc.ProcessRun(context.Background(), runID); err != nil {
			log.Error().Err(err).Str("run_id", runID.String()).Msg("Run processing failed")
			h.repo.UpdateError(context.Background(), runID, fmt.Sprintf("Processing failed: %v", err))
		}
	}()

	return &models.StartRunResponse{
		Body: models.StartRunResponseBody{Message: "Processing started successfully"},
	}, nil
}

// GetRunStatus returns the current status of a run
func (h *RunHandler) GetRunStatus(ctx context.Context, req *models.GetRunStatusRequest) (*models.GetRunStatusResponse, error) {
	runID, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid run ID", err)
	}

	run, err := h.repo.GetByID(ctx, runID)
	if err != nil {
		return nil, notFoundOr500(err)
	}

	var resultsID *string
	if run.Status == models.StatusCompleted {
		results, err := h.repo.GetResults(ctx, runID)
		if err == nil && results != nil {
			resultsID = &results.ID
		}
	}

	message := statusMessage(run.Status, run.Progress)
	if run.Status == models.StatusFailed && run.ErrorMsg != nil {
		message = *run.ErrorMsg
	}

	return &models.GetRunStatusResponse{
		Body: models.GetRunStatusResponseBody{
			ID:            run.ID,
			Status:        run.Status,
			Progress:      run.Progress,
			Message:       message,
			NonConvergent: run.NonConvergent,
			ResultsID:     resultsID,
		},
	}, nil
}

// GetRunResults returns the S-parameters and a download link for the archive
func (h *RunHandler) GetRunResults(ctx context.Context, req *models.GetRunResultsRequest) (*models.GetRunResultsResponse, error) {
	runID, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid run ID", err)
	}

	run, err := h.repo.GetByID(ctx, runID)
	if err != nil {
		return nil, notFoundOr500(err)
	}
	if run.Status != models.StatusCompleted {
		return nil, huma.Error409Conflict("Run not yet completed",
			fmt.Errorf("run status is %s", run.Status))
	}

	results, err := h.repo.GetResults(ctx, runID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to get results", err)
	}

	var archiveURL string
	if run.ArchiveKey != nil {
		archiveURL, err = h.store.GenerateDownloadURL(ctx, *run.ArchiveKey)
		if err != nil {
			log.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to sign archive URL")
			archiveURL = ""
		}
	}

	return &models.GetRunResultsResponse{
		Body: models.GetRunResultsResponseBody{
			ID:            results.ID,
			RunID:         run.ID,
			Points:        results.Points,
			NonConvergent: results.NonConvergent,
			ArchiveURL:    archiveURL,
			CreatedAt:     results.CreatedAt,
		},
	}, nil
}

// ListRuns returns the most recent runs
func (h *RunHandler) ListRuns(ctx context.Context, req *models.ListRunsRequest) (*models.ListRunsResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	runs, err := h.repo.List(ctx, limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list runs", err)
	}

	resp := &models.ListRunsResponse{}
	resp.Body.Runs = runs
	return resp, nil
}

func notFoundOr500(err error) error {
	if errors.Is(err, models.ErrRunNotFound) {
		return huma.Error404NotFound("Run not found", err)
	}
	return huma.Error500InternalServerError("Failed to load run", err)
}

// statusMessage creates a human-readable status message
func statusMessage(status string, progress int) string {
	switch status {
	case models.StatusPending:
		return "Run queued for processing..."
	case models.StatusProcessing:
		if progress < 40 {
			return "Assembling geometry and monitors..."
		} else if progress < 70 {
			return "Running reference and scattered passes..."
		} else {
			return "Writing result archive..."
		}
	case models.StatusCompleted:
		return "Run complete!"
	case models.StatusFailed:
		return "Run failed."
	default:
		return "Unknown status"
	}
}
