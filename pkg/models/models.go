package models

import (
	"time"
)

// Run status values
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// RunParams is the parametric description of a bridge-gap resonator study.
// Lengths are in SourceUnit; zero values are replaced by defaults.
type RunParams struct {
	SourceUnit   string `json:"source_unit,omitempty" enum:"m,mm,um,nm" doc:"Length unit of the geometry parameters"`
	InternalUnit string `json:"internal_unit,omitempty" enum:"m,mm,um,nm" doc:"Solver length unit"`

	Gap              float64 `json:"gap,omitempty" minimum:"0" doc:"Gap between the pads"`
	BridgeWidth      float64 `json:"bridge_width,omitempty" minimum:"0" doc:"Pad width across the gap"`
	BridgeThickness  float64 `json:"bridge_thickness,omitempty" minimum:"0" doc:"Conductor thickness"`
	PadLength        float64 `json:"pad_length,omitempty" minimum:"0" doc:"Length of each pad"`
	BridgeOverhang   float64 `json:"bridge_overhang,omitempty" minimum:"0" doc:"Bridge length beyond the gap"`
	SubstrateRadius  float64 `json:"substrate_radius,omitempty" minimum:"0" doc:"Outer radius of the tube"`
	SubstrateHeight  float64 `json:"substrate_height,omitempty" minimum:"0" doc:"Height of the tube"`
	WallThickness    float64 `json:"wall_thickness,omitempty" minimum:"0" doc:"Wall thickness of the tube"`
	SubstrateEpsilon float64 `json:"substrate_epsilon,omitempty" minimum:"0" doc:"Relative permittivity of the tube"`
	CutMargin        float64 `json:"cut_margin,omitempty" minimum:"0" doc:"Extra height of the tube cut-out"`

	BoundaryThickness float64 `json:"boundary_thickness,omitempty" minimum:"0" doc:"PML thickness"`
	CellMargin        float64 `json:"cell_margin,omitempty" minimum:"0" doc:"Air margin around the structure"`
	MonitorOffset     float64 `json:"monitor_offset,omitempty" minimum:"0" doc:"Distance of the flux planes from the gap edges"`
	Resolution        float64 `json:"resolution,omitempty" minimum:"0" doc:"Pixels per solver length unit"`

	FreqCenterGHz float64 `json:"freq_center_ghz,omitempty" minimum:"0" doc:"Center frequency in GHz"`
	FreqWidthGHz  float64 `json:"freq_width_ghz,omitempty" minimum:"0" doc:"Frequency width in GHz"`
	Bins          int     `json:"bins,omitempty" minimum:"0" maximum:"10000" doc:"Flux frequency bins"`

	DecayWindow    float64 `json:"decay_window,omitempty" minimum:"0" doc:"Decay check window in solver time units"`
	DecayThreshold float64 `json:"decay_threshold,omitempty" minimum:"0" doc:"Decay factor relative to the running maximum"`
	MaxTime        float64 `json:"max_time,omitempty" minimum:"0" doc:"Time ceiling in solver time units"`
	SampleInterval float64 `json:"sample_interval,omitempty" minimum:"0" doc:"Field sampling interval in solver time units"`
	FloorDB        *float64 `json:"floor_db,omitempty" doc:"dB value reported for bins without incident flux"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Body struct {
		Status  string    `json:"status" example:"healthy" doc:"Service health status"`
		Version string    `json:"version" example:"1.0.0" doc:"API version"`
		Time    time.Time `json:"time" doc:"Current server time"`
	}
}

// CreateRunRequestBody is the body of the create run request
type CreateRunRequestBody struct {
	Label  string    `json:"label,omitempty" maxLength:"100" doc:"Free-form run label"`
	Params RunParams `json:"params" doc:"Resonator and solver parameters"`
}

// CreateRunRequest represents a request to create a new simulation run
type CreateRunRequest struct {
	Body CreateRunRequestBody
}

// CreateRunResponseBody is the body of the create run response
type CreateRunResponseBody struct {
	ID     string `json:"id" doc:"Run unique identifier"`
	Status string `json:"status" doc:"Initial run status"`
}

// CreateRunResponse represents the response from creating a run
type CreateRunResponse struct {
	Body CreateRunResponseBody
}

// StartRunRequest represents a request to start processing a run
type StartRunRequest struct {
	ID string `path:"id" doc:"Run ID"`
}

// StartRunResponseBody is the body of the start run response
type StartRunResponseBody struct {
	Message string `json:"message" doc:"Confirmation message"`
}

// StartRunResponse represents the response from starting a run
type StartRunResponse struct {
	Body StartRunResponseBody
}

// GetRunStatusRequest represents a request to get run status
type GetRunStatusRequest struct {
	ID string `path:"id" doc:"Run ID"`
}

// GetRunStatusResponseBody is the body of the status response
type GetRunStatusResponseBody struct {
	ID            string  `json:"id" doc:"Run ID"`
	Status        string  `json:"status" enum:"pending,processing,completed,failed" doc:"Run status"`
	Progress      int     `json:"progress" minimum:"0" maximum:"100" doc:"Run progress percentage"`
	Message       string  `json:"message,omitempty" doc:"Human-readable status message"`
	NonConvergent bool    `json:"non_convergent" doc:"Whether a solver run hit the time ceiling"`
	ResultsID     *string `json:"results_id,omitempty" doc:"Results ID when the run completes"`
}

// GetRunStatusResponse represents the current status of a run
type GetRunStatusResponse struct {
	Body GetRunStatusResponseBody
}

// GetRunResultsRequest represents a request to get run results
type GetRunResultsRequest struct {
	ID string `path:"id" doc:"Run ID"`
}

// GetRunResultsResponseBody is the body of the results response
type GetRunResultsResponseBody struct {
	ID            string            `json:"id" doc:"Results ID"`
	RunID         string            `json:"run_id" doc:"Run ID"`
	Points        []SParameterPoint `json:"points" doc:"S-parameters per frequency bin"`
	NonConvergent bool              `json:"non_convergent" doc:"Whether a solver run hit the time ceiling"`
	ArchiveURL    string            `json:"archive_url,omitempty" doc:"Pre-signed URL of the result archive"`
	CreatedAt     time.Time         `json:"created_at" doc:"Results creation timestamp"`
}

// GetRunResultsResponse represents the complete run results
type GetRunResultsResponse struct {
	Body GetRunResultsResponseBody
}

// ListRunsRequest represents a request to list recent runs
type ListRunsRequest struct {
	Limit int `query:"limit" minimum:"1" maximum:"100" default:"20" doc:"Maximum number of runs"`
}

// ListRunsResponse lists recent runs, newest first
type ListRunsResponse struct {
	Body struct {
		Runs []*Run `json:"runs" doc:"Recent runs"`
	}
}

// Run represents a simulation run (for internal use and listing)
type Run struct {
	ID            string     `json:"id"`
	Label         string     `json:"label,omitempty"`
	Status        string     `json:"status"`
	Progress      int        `json:"progress"`
	Params        RunParams  `json:"params"`
	ArchiveKey    *string    `json:"archive_key,omitempty"`
	ErrorMsg      *string    `json:"error_message,omitempty"`
	NonConvergent bool       `json:"non_convergent"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// RunResults represents the stored S-parameters of a run
type RunResults struct {
	ID               string            `json:"id"`
	RunID            string            `json:"run_id"`
	Points           []SParameterPoint `json:"points"`
	NonConvergent    bool              `json:"non_convergent"`
	IncidentEndTime  float64           `json:"incident_end_time"`
	ScatteredEndTime float64           `json:"scattered_end_time"`
	TraceLength      int               `json:"trace_length"`
	CreatedAt        time.Time         `json:"created_at"`
}
