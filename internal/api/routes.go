package api

import (
	"context"
	"net/http"
	"time"

	"github.com/RMahshie/bridgesim/internal/api/handlers"
	"github.com/RMahshie/bridgesim/internal/processing"
	"github.com/RMahshie/bridgesim/internal/repository"
	"github.com/RMahshie/bridgesim/internal/storage"
	"github.com/RMahshie/bridgesim/pkg/models"
	"github.com/danielgtaylor/huma/v2"
)

// Version is reported by the health endpoint and the OpenAPI document
const Version = "1.0.0"

// RegisterRoutes sets up all API routes
func RegisterRoutes(api huma.API, runRepo repository.RunRepository, store storage.ArchiveStore, processingSvc processing.ProcessingService) {
	runHandler := handlers.NewRunHandler(runRepo, store, processingSvc)

	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the service",
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		resp := &models.HealthResponse{}
		resp.Body.Status = "healthy"
		resp.Body.Version = Version
		resp.Body.Time = time.Now()
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "createRun",
		Method:      http.MethodPost,
		Path:        "/api/runs",
		Summary:     "Create a new run",
		Description: "Validates resonator and solver parameters and stores a pending run",
		Tags:        []string{"Runs"},
	}, runHandler.CreateRun)

	huma.Register(api, huma.Operation{
		OperationID: "listRuns",
		Method:      http.MethodGet,
		Path:        "/api/runs",
		Summary:     "List runs",
		Description: "Returns the most recent runs, newest first",
		Tags:        []string{"Runs"},
	}, runHandler.ListRuns)

	huma.Register(api, huma.Operation{
		OperationID: "startRun",
		Method:      http.MethodPost,
		Path:        "/api/runs/{id}/process",
		Summary:     "Start a run",
		Description: "Starts the reference and scattered solver passes in the background",
		Tags:        []string{"Runs"},
	}, runHandler.StartRun)

	huma.Register(api, huma.Operation{
		OperationID: "getRunStatus",
		Method:      http.MethodGet,
		Path:        "/api/runs/{id}/status",
		Summary:     "Get run status",
		Description: "Returns the current status and progress of a run",
		Tags:        []string{"Runs"},
	}, runHandler.GetRunStatus)

	huma.Register(api, huma.Operation{
		OperationID: "getRunResults",
		Method:      http.MethodGet,
		Path:        "/api/runs/{id}/results",
		Summary:     "Get run results",
		Description: "Returns S11/S21 per frequency bin and a download URL for the archive",
		Tags:        []string{"Runs"},
	}, runHandler.GetRunResults)
}
