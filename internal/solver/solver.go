// Package solver defines the boundary to the time-domain field solver.
//
// A Solver runs one simulation to completion and returns the flux spectra and
// captured flux state of every monitor. Step hooks observe the fields after
// every time step; the stopping predicate and the time ceiling are evaluated
// on the Go side so every backend stops the same way.
package solver

import (
	"context"
	"fmt"

	"github.com/RMahshie/bridgesim/pkg/models"
)

// FieldReader reads the current value of a field component at a point
type FieldReader interface {
	FieldAt(c models.Component, p models.Vector3) complex128
}

// StepHook is called after every solver step with the current simulation time
type StepHook func(t float64, fields FieldReader)

type Solver interface {
	Run(ctx context.Context, cfg models.SimulationConfig, hooks ...StepHook) (*models.SimulationResult, error)
}

// Validate checks what every backend needs before it starts stepping
func Validate(cfg models.SimulationConfig) error {
	if cfg.Resolution <= 0 {
		return fmt.Errorf("resolution must be positive, got %g", cfg.Resolution)
	}
	if cfg.MaxTime <= 0 {
		return fmt.Errorf("max time must be positive, got %g", cfg.MaxTime)
	}
	if cfg.CellSize.X <= 0 || cfg.CellSize.Y <= 0 || cfg.CellSize.Z <= 0 {
		return fmt.Errorf("%w: cell size (%g, %g, %g)", models.ErrInvalidGeometry, cfg.CellSize.X, cfg.CellSize.Y, cfg.CellSize.Z)
	}
	for _, p := range cfg.Geometry {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	for name, state := range cfg.LoadedFlux {
		region, ok := findRegion(cfg.FluxRegions, name)
		if !ok {
			return fmt.Errorf("flux state loaded into unknown monitor %q", name)
		}
		if !state.Grid.Equal(region.Grid) || len(state.Payload) != region.Grid.Bins {
			return fmt.Errorf("%w: state for %q has %d bins, monitor has %d",
				models.ErrMonitorGridMismatch, name, len(state.Payload), region.Grid.Bins)
		}
	}
	return nil
}

// TimeStep is the Courant-limited step for a given resolution
func TimeStep(resolution float64) float64 {
	return 0.5 / resolution
}

func findRegion(regions []models.FluxRegion, name string) (models.FluxRegion, bool) {
	for _, r := range regions {
		if r.Name == name {
			return r, true
		}
	}
	return models.FluxRegion{}, false
}
