package pipeline

import (
	"errors"
	"fmt"

	"github.com/RMahshie/bridgesim/internal/geometry"
	"github.com/RMahshie/bridgesim/internal/monitor"
	"github.com/RMahshie/bridgesim/internal/sparams"
	"github.com/RMahshie/bridgesim/pkg/models"
)

// Plan is everything both runs share, already in solver units
type Plan struct {
	Label             string
	CellSize          models.Vector3
	BoundaryThickness float64
	Resolution        float64
	Background        models.Material
	Geometry          *geometry.Sequence
	Source            models.Source
	Monitors          *monitor.Set
	Reflection        string
	Transmission      string
	Stop              models.StopSpec
	MaxTime           float64
	Probes            []models.Probe
	SampleInterval    float64
	FloorDB           *float64
}

func (p Plan) Validate() error {
	if p.Resolution <= 0 {
		return fmt.Errorf("resolution must be positive, got %g", p.Resolution)
	}
	if p.MaxTime <= 0 {
		return fmt.Errorf("max time must be positive, got %g", p.MaxTime)
	}
	if p.Geometry == nil || p.Geometry.Len() == 0 {
		return fmt.Errorf("%w: plan has no geometry", models.ErrInvalidGeometry)
	}
	if p.Monitors == nil {
		return errors.New("plan has no flux monitors")
	}
	if _, err := p.Monitors.Subset(p.Reflection, p.Transmission); err != nil {
		return err
	}
	return nil
}

func (p Plan) floorDB() float64 {
	if p.FloorDB == nil {
		return sparams.DefaultFloorDB
	}
	return *p.FloorDB
}

// config builds the solver input shared by both runs
func (p Plan) config(label string, geom []models.Primitive, regions []models.FluxRegion) models.SimulationConfig {
	return models.SimulationConfig{
		Label:             label,
		CellSize:          p.CellSize,
		BoundaryThickness: p.BoundaryThickness,
		Resolution:        p.Resolution,
		DefaultMaterial:   p.Background,
		Geometry:          geom,
		Sources:           []models.Source{p.Source},
		FluxRegions:       regions,
		Probes:            p.Probes,
		Stop:              p.Stop,
		MaxTime:           p.MaxTime,
	}
}
