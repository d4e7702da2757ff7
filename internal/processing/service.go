package processing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RMahshie/bridgesim/internal/archive"
	"github.com/RMahshie/bridgesim/internal/pipeline"
	"github.com/RMahshie/bridgesim/internal/repository"
	"github.com/RMahshie/bridgesim/internal/setup"
	"github.com/RMahshie/bridgesim/internal/solver"
	"github.com/RMahshie/bridgesim/internal/storage"
	"github.com/RMahshie/bridgesim/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type ProcessingService interface {
	ProcessRun(ctx context.Context, runID uuid.UUID) error
}

type processingService struct {
	store      storage.ArchiveStore
	repository repository.RunRepository
	solver     solver.Solver
	outputDir  string
	format     archive.Format
	floorDB    *float64
}

type Option func(*processingService)

// WithFloorDB sets the dB floor used by runs that do not set their own
func WithFloorDB(floor float64) Option {
	return func(s *processingService) {
		s.floorDB = &floor
	}
}

func NewProcessingService(store storage.ArchiveStore, repo repository.RunRepository, s solver.Solver, outputDir string, format archive.Format, opts ...Option) ProcessingService {
	if format == "" {
		format = archive.FormatNPZ
	}
	svc := &processingService{
		store:      store,
		repository: repo,
		solver:     s,
		outputDir:  outputDir,
		format:     format,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *processingService) ProcessRun(ctx context.Context, runID uuid.UUID) error {
	logger := log.With().Str("run_id", runID.String()).Logger()

	// Step 1: Update to processing status
	if err := s.repository.UpdateStatus(ctx, runID, models.StatusProcessing, 10); err != nil {
		return err
	}

	// Step 2: Get run details
	run, err := s.repository.GetByID(ctx, runID)
	if err != nil {
		return err
	}

	// Step 3: Assemble the plan
	if err := s.repository.UpdateStatus(ctx, runID, models.StatusProcessing, 20); err != nil {
		return err
	}
	label := run.Label
	if label == "" {
		label = run.ID
	}
	params := run.Params
	if params.FloorDB == nil && s.floorDB != nil {
		floor := *s.floorDB
		params.FloorDB = &floor
	}
	study, err := setup.Build(params, setup.WithLabel(label))
	if err != nil {
		// bad parameters are a run failure, not a service failure
		s.repository.UpdateError(ctx, runID, fmt.Sprintf("Invalid run parameters: %v", err))
		return nil
	}

	// Step 4: Incident and scattered runs
	if err := s.repository.UpdateStatus(ctx, runID, models.StatusProcessing, 40); err != nil {
		return err
	}
	logger.Info().Str("stage", "pipeline").Msg("Starting reference and scattered runs")
	res, err := pipeline.NewRunner(s.solver).Run(ctx, study.Plan)
	if err != nil {
		s.repository.UpdateError(ctx, runID, fmt.Sprintf("Simulation failed: %v", err))
		if errors.Is(err, models.ErrInvalidGeometry) || errors.Is(err, models.ErrMonitorGridMismatch) {
			return nil
		}
		return fmt.Errorf("simulation failed: %w", err)
	}

	// Step 5: Write the archive
	if err := s.repository.UpdateStatus(ctx, runID, models.StatusProcessing, 70); err != nil {
		return err
	}
	dir := filepath.Join(s.outputDir, run.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.repository.UpdateError(ctx, runID, "Failed to create output directory")
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	defer os.RemoveAll(dir) // the uploaded copy is authoritative

	path, err := archive.Write(dir, archive.FromResult(label, res, study.Normalizer.ToGHz), s.format)
	if err != nil {
		s.repository.UpdateError(ctx, runID, "Failed to write result archive")
		return fmt.Errorf("failed to write archive: %w", err)
	}

	// Step 6: Upload the archive
	if err := s.repository.UpdateStatus(ctx, runID, models.StatusProcessing, 80); err != nil {
		return err
	}
	key, err := s.upload(ctx, run.ID, path)
	if err != nil {
		s.repository.UpdateError(ctx, runID, "Failed to upload result archive")
		return err
	}
	if err := s.repository.SetArchive(ctx, runID, key, res.NonConvergent); err != nil {
		return err
	}

	// Step 7: Store results
	if err := s.repository.UpdateStatus(ctx, runID, models.StatusProcessing, 90); err != nil {
		return err
	}
	results := &models.RunResults{
		RunID:            run.ID,
		Points:           res.SParams.Points(study.Normalizer.ToGHz),
		NonConvergent:    res.NonConvergent,
		IncidentEndTime:  res.Incident.EndTime,
		ScatteredEndTime: res.Scattered.EndTime,
		TraceLength:      len(res.Scattered.Traces[setup.GapProbe].Time),
	}
	if err := s.repository.StoreResults(ctx, results); err != nil {
		return err
	}

	// Step 8: Mark complete
	if err := s.repository.UpdateStatus(ctx, runID, models.StatusCompleted, 100); err != nil {
		return err
	}

	logger.Info().
		Int("bins", len(results.Points)).
		Bool("non_convergent", res.NonConvergent).
		Str("archive", key).
		Msg("Run completed")
	return nil
}

func (s *processingService) upload(ctx context.Context, runID, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat archive: %w", err)
	}

	key := storage.ArchiveKey(runID, s.format.Filename())
	if err := s.store.UploadFile(ctx, key, s.format.ContentType(), f, info.Size()); err != nil {
		return "", err
	}
	return key, nil
}
