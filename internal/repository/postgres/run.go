package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/RMahshie/bridgesim/internal/repository"
	"github.com/RMahshie/bridgesim/pkg/models"
	"github.com/google/uuid"
)

// PostgresRunRepository implements RunRepository for PostgreSQL
type PostgresRunRepository struct {
	db *sql.DB
}

// NewPostgresRunRepository creates a new PostgreSQL run repository
func NewPostgresRunRepository(db *sql.DB) repository.RunRepository {
	return &PostgresRunRepository{db: db}
}

const runColumns = `id, label, status, progress, params, archive_key, error_message, non_convergent, created_at, updated_at, completed_at`

// Create inserts a new run record, assigning an ID and timestamps when missing
func (r *PostgresRunRepository) Create(ctx context.Context, run *models.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.Status == "" {
		run.Status = models.StatusPending
	}
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	if run.UpdatedAt.IsZero() {
		run.UpdatedAt = now
	}

	params, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}

	query := `
		INSERT INTO runs (id, label, status, progress, params, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		run.Label,
		run.Status,
		run.Progress,
		string(params),
		run.CreatedAt,
		run.UpdatedAt)

	return err
}

// GetByID retrieves a run by ID
func (r *PostgresRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = $1`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List returns the most recent runs first
func (r *PostgresRunRepository) List(ctx context.Context, limit int) ([]*models.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []*models.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// UpdateStatus updates the status and progress of a run
func (r *PostgresRunRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error {
	query := `
		UPDATE runs
		SET status = $1, progress = $2, updated_at = NOW(),
		    completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END
		WHERE id = $3`

	_, err := r.db.ExecContext(ctx, query, status, progress, id)
	return err
}

// UpdateError marks a run failed with a message
func (r *PostgresRunRepository) UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error {
	query := `
		UPDATE runs
		SET status = 'failed', error_message = $1, updated_at = NOW()
		WHERE id = $2`

	_, err := r.db.ExecContext(ctx, query, errorMsg, id)
	return err
}

// SetArchive records where the archive was stored and the convergence flag
func (r *PostgresRunRepository) SetArchive(ctx context.Context, id uuid.UUID, archiveKey string, nonConvergent bool) error {
	query := `
		UPDATE runs
		SET archive_key = $1, non_convergent = $2, updated_at = NOW()
		WHERE id = $3`

	_, err := r.db.ExecContext(ctx, query, archiveKey, nonConvergent, id)
	return err
}

// StoreResults stores the S-parameters of a run
func (r *PostgresRunRepository) StoreResults(ctx context.Context, results *models.RunResults) error {
	if results.ID == "" {
		results.ID = uuid.New().String()
	}
	if results.CreatedAt.IsZero() {
		results.CreatedAt = time.Now().UTC()
	}

	points, err := json.Marshal(results.Points)
	if err != nil {
		return fmt.Errorf("failed to marshal points: %w", err)
	}

	query := `
		INSERT INTO run_results (id, run_id, points, non_convergent, incident_end_time, scattered_end_time, trace_length, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = r.db.ExecContext(ctx, query,
		results.ID,
		results.RunID,
		string(points),
		results.NonConvergent,
		results.IncidentEndTime,
		results.ScatteredEndTime,
		results.TraceLength,
		results.CreatedAt)

	return err
}

// GetResults retrieves the results of a run
func (r *PostgresRunRepository) GetResults(ctx context.Context, runID uuid.UUID) (*models.RunResults, error) {
	query := `
		SELECT id, run_id, points, non_convergent, incident_end_time, scattered_end_time, trace_length, created_at
		FROM run_results
		WHERE run_id = $1`

	var results models.RunResults
	var points []byte

	err := r.db.QueryRowContext(ctx, query, runID).Scan(
		&results.ID,
		&results.RunID,
		&points,
		&results.NonConvergent,
		&results.IncidentEndTime,
		&results.ScatteredEndTime,
		&results.TraceLength,
		&results.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no results for %s", models.ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(points, &results.Points); err != nil {
		return nil, fmt.Errorf("failed to unmarshal points: %w", err)
	}

	return &results, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var run models.Run
	var params []byte
	var archiveKey, errorMsg sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&run.ID,
		&run.Label,
		&run.Status,
		&run.Progress,
		&params,
		&archiveKey,
		&errorMsg,
		&run.NonConvergent,
		&run.CreatedAt,
		&run.UpdatedAt,
		&completedAt)

	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(params, &run.Params); err != nil {
		return nil, fmt.Errorf("failed to unmarshal params: %w", err)
	}
	if archiveKey.Valid {
		run.ArchiveKey = &archiveKey.String
	}
	if errorMsg.Valid {
		run.ErrorMsg = &errorMsg.String
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}

	return &run, nil
}
