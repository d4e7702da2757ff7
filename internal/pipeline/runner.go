// Package pipeline runs the two-pass reference subtraction that separates the
// power scattered by the structure from the injected incident power.
//
// The incident run uses an empty cell and records the spectrum and flux state
// at the reflection monitor. The scattered run uses the real geometry with the
// negated incident state loaded into the reflection monitor, so that monitor
// measures only what the structure sends back. Both runs must share monitor
// placement, frequency grid and discretisation; Scattered checks this before
// starting.
package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/bridgesim/internal/excitation"
	"github.com/RMahshie/bridgesim/internal/monitor"
	"github.com/RMahshie/bridgesim/internal/sampler"
	"github.com/RMahshie/bridgesim/internal/solver"
	"github.com/RMahshie/bridgesim/internal/sparams"
	"github.com/RMahshie/bridgesim/pkg/models"
)

// IncidentResult is the handoff from the incident run to the scattered run
type IncidentResult struct {
	Spectrum   models.FluxSpectrum
	State      models.FluxState
	Region     models.FluxRegion
	Resolution float64
	CellSize   models.Vector3
	Traces     map[string]models.TimeSeries
	EndTime    float64
	Converged  bool
}

type ScatteredResult struct {
	Reflected   models.FluxSpectrum
	Transmitted models.FluxSpectrum
	Traces      map[string]models.TimeSeries
	EndTime     float64
	Converged   bool
}

type Result struct {
	Incident  *IncidentResult
	Scattered *ScatteredResult
	SParams   *sparams.Result
	// NonConvergent is set when either run was cut off by the time ceiling
	NonConvergent bool
}

type Runner struct {
	solver solver.Solver
}

func NewRunner(s solver.Solver) *Runner {
	return &Runner{solver: s}
}

// Run executes both passes and computes S-parameters
func (r *Runner) Run(ctx context.Context, plan Plan) (*Result, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if !excitation.Covers(plan.Source, plan.Monitors.Grid()) {
		log.Warn().
			Str("label", plan.Label).
			Float64("fcen", plan.Source.FrequencyCenter).
			Float64("fwidth", plan.Source.FrequencyWidth).
			Msg("Source bandwidth does not cover the monitor grid, edge bins will be noisy")
	}

	inc, err := r.Incident(ctx, plan)
	if err != nil {
		return nil, err
	}
	sc, err := r.Scattered(ctx, plan, inc)
	if err != nil {
		return nil, err
	}

	sp, err := sparams.FromSpectra(inc.Spectrum, sc.Reflected, sc.Transmitted, plan.floorDB())
	if err != nil {
		return nil, err
	}

	res := &Result{
		Incident:      inc,
		Scattered:     sc,
		SParams:       sp,
		NonConvergent: !inc.Converged || !sc.Converged,
	}
	if res.NonConvergent {
		log.Warn().Str("label", plan.Label).Msg("Fields did not decay before the time ceiling, results are flagged non-convergent")
	}
	return res, nil
}

// Incident runs the empty cell with only the reflection monitor
func (r *Runner) Incident(ctx context.Context, plan Plan) (*IncidentResult, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	region, _ := plan.Monitors.Region(plan.Reflection)

	smp := sampler.New(plan.SampleInterval, plan.Probes...)
	cfg := plan.config(plan.Label+"/incident", nil, []models.FluxRegion{region})

	log.Info().Str("label", plan.Label).Str("stage", "incident").Int("bins", region.Grid.Bins).Msg("Starting run")
	out, err := r.solver.Run(ctx, cfg, smp.Hook())
	if err != nil {
		return nil, fmt.Errorf("incident run failed: %w", err)
	}

	spectrum, ok := out.Fluxes[region.Name]
	if !ok {
		return nil, fmt.Errorf("incident run returned no flux for monitor %q", region.Name)
	}
	state, ok := out.States[region.Name]
	if !ok {
		return nil, fmt.Errorf("incident run returned no flux state for monitor %q", region.Name)
	}
	if err := monitor.CheckGrids(region.Grid, state.Grid); err != nil {
		return nil, err
	}

	log.Info().
		Str("label", plan.Label).
		Str("stage", "incident").
		Float64("end_time", out.EndTime).
		Bool("converged", out.Converged).
		Msg("Run finished")

	return &IncidentResult{
		Spectrum:   spectrum,
		State:      state,
		Region:     region,
		Resolution: plan.Resolution,
		CellSize:   plan.CellSize,
		Traces:     traces(smp),
		EndTime:    out.EndTime,
		Converged:  out.Converged,
	}, nil
}

// Scattered runs the real geometry with the negated incident state loaded into
// the reflection monitor
func (r *Runner) Scattered(ctx context.Context, plan Plan, inc *IncidentResult) (*ScatteredResult, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if inc == nil {
		return nil, fmt.Errorf("scattered run needs an incident result")
	}
	regions, _ := plan.Monitors.Subset(plan.Reflection, plan.Transmission)
	refl, trans := regions[0], regions[1]

	if err := sameDiscretisation(plan, inc, refl); err != nil {
		return nil, err
	}

	cfg := plan.config(plan.Label+"/scattered", plan.Geometry.Primitives(), regions)
	cfg.LoadedFlux = map[string]models.FluxState{refl.Name: inc.State.Negated()}

	smp := sampler.New(plan.SampleInterval, plan.Probes...)
	log.Info().
		Str("label", plan.Label).
		Str("stage", "scattered").
		Int("primitives", len(cfg.Geometry)).
		Int("bins", refl.Grid.Bins).
		Msg("Starting run")
	out, err := r.solver.Run(ctx, cfg, smp.Hook())
	if err != nil {
		return nil, fmt.Errorf("scattered run failed: %w", err)
	}

	reflected, ok := out.Fluxes[refl.Name]
	if !ok {
		return nil, fmt.Errorf("scattered run returned no flux for monitor %q", refl.Name)
	}
	transmitted, ok := out.Fluxes[trans.Name]
	if !ok {
		return nil, fmt.Errorf("scattered run returned no flux for monitor %q", trans.Name)
	}
	if err := monitor.CheckSpectra(inc.Spectrum, reflected); err != nil {
		return nil, err
	}
	if err := monitor.CheckSpectra(inc.Spectrum, transmitted); err != nil {
		return nil, err
	}

	log.Info().
		Str("label", plan.Label).
		Str("stage", "scattered").
		Float64("end_time", out.EndTime).
		Bool("converged", out.Converged).
		Msg("Run finished")

	return &ScatteredResult{
		Reflected:   reflected,
		Transmitted: transmitted,
		Traces:      traces(smp),
		EndTime:     out.EndTime,
		Converged:   out.Converged,
	}, nil
}

func sameDiscretisation(plan Plan, inc *IncidentResult, refl models.FluxRegion) error {
	if err := monitor.CheckGrids(inc.Region.Grid, refl.Grid); err != nil {
		return err
	}
	if inc.Region.Center != refl.Center || inc.Region.Size != refl.Size || inc.Region.Direction != refl.Direction {
		return fmt.Errorf("%w: reflection monitor %q moved between runs", models.ErrMonitorGridMismatch, refl.Name)
	}
	if inc.Resolution != plan.Resolution || inc.CellSize != plan.CellSize {
		return fmt.Errorf("%w: discretisation changed between runs (resolution %g vs %g)",
			models.ErrMonitorGridMismatch, inc.Resolution, plan.Resolution)
	}
	return nil
}

func traces(smp *sampler.Sampler) map[string]models.TimeSeries {
	out := make(map[string]models.TimeSeries)
	for _, p := range smp.Probes() {
		ts, _ := smp.Series(p.Name)
		out[p.Name] = ts
	}
	return out
}
