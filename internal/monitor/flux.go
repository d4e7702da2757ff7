// Package monitor assembles named flux regions that share one frequency grid.
package monitor

import (
	"fmt"
	"math"

	"github.com/RMahshie/bridgesim/pkg/models"
)

// NewGrid returns a frequency grid of bins points spanning center±width.
// Bins <= 0 falls back to models.DefaultFluxBins.
func NewGrid(center, width float64, bins int) models.FrequencyGrid {
	if bins <= 0 {
		bins = models.DefaultFluxBins
	}
	return models.FrequencyGrid{Center: center, Width: width, Bins: bins}
}

// Surface describes one flux plane before it is bound to a grid
type Surface struct {
	Name      string
	Center    models.Vector3
	Size      models.Vector3
	Direction models.Axis
	// Weight is +1 or -1; zero means +1
	Weight float64
}

// Set is an ordered collection of flux regions sharing one grid
type Set struct {
	grid    models.FrequencyGrid
	regions []models.FluxRegion
	index   map[string]int
}

// NewSet binds every surface to grid. Names must be unique and each surface must
// be flat along its normal.
func NewSet(grid models.FrequencyGrid, surfaces []Surface) (*Set, error) {
	if grid.Bins <= 0 {
		return nil, fmt.Errorf("frequency grid needs at least one bin, got %d", grid.Bins)
	}
	if grid.Width < 0 || math.IsNaN(grid.Width) || math.IsNaN(grid.Center) {
		return nil, fmt.Errorf("invalid frequency grid center=%g width=%g", grid.Center, grid.Width)
	}
	if lo := grid.Frequencies()[0]; lo <= 0 {
		return nil, fmt.Errorf("frequency grid center=%g width=%g starts at %g, want a positive lowest bin", grid.Center, grid.Width, lo)
	}

	s := &Set{grid: grid, index: make(map[string]int, len(surfaces))}
	for _, sf := range surfaces {
		if sf.Name == "" {
			return nil, fmt.Errorf("flux surface needs a name")
		}
		if _, dup := s.index[sf.Name]; dup {
			return nil, fmt.Errorf("duplicate flux surface %q", sf.Name)
		}
		switch sf.Direction {
		case models.AxisX, models.AxisY, models.AxisZ:
		default:
			return nil, fmt.Errorf("flux surface %q has invalid direction %q", sf.Name, sf.Direction)
		}
		if sf.Size.Component(sf.Direction) != 0 {
			return nil, fmt.Errorf("flux surface %q must be flat along %s", sf.Name, sf.Direction)
		}

		weight := sf.Weight
		if weight == 0 {
			weight = 1
		}
		if weight != 1 && weight != -1 {
			return nil, fmt.Errorf("flux surface %q has weight %g, want +1 or -1", sf.Name, weight)
		}

		s.index[sf.Name] = len(s.regions)
		s.regions = append(s.regions, models.FluxRegion{
			Name:      sf.Name,
			Center:    sf.Center,
			Size:      sf.Size,
			Direction: sf.Direction,
			Weight:    weight,
			Grid:      grid,
		})
	}
	return s, nil
}

// Grid returns the shared frequency grid
func (s *Set) Grid() models.FrequencyGrid {
	return s.grid
}

// Regions returns a copy of every region in insertion order
func (s *Set) Regions() []models.FluxRegion {
	out := make([]models.FluxRegion, len(s.regions))
	copy(out, s.regions)
	return out
}

// Region looks a region up by name
func (s *Set) Region(name string) (models.FluxRegion, bool) {
	i, ok := s.index[name]
	if !ok {
		return models.FluxRegion{}, false
	}
	return s.regions[i], true
}

// Subset returns the named regions in the order given
func (s *Set) Subset(names ...string) ([]models.FluxRegion, error) {
	out := make([]models.FluxRegion, 0, len(names))
	for _, name := range names {
		r, ok := s.Region(name)
		if !ok {
			return nil, fmt.Errorf("unknown flux monitor %q", name)
		}
		out = append(out, r)
	}
	return out, nil
}

// CheckGrids fails with ErrMonitorGridMismatch unless a and b are identical
func CheckGrids(a, b models.FrequencyGrid) error {
	if !a.Equal(b) {
		return fmt.Errorf("%w: (center=%g width=%g bins=%d) vs (center=%g width=%g bins=%d)",
			models.ErrMonitorGridMismatch, a.Center, a.Width, a.Bins, b.Center, b.Width, b.Bins)
	}
	return nil
}

// CheckSpectra fails with ErrMonitorGridMismatch unless both spectra have the
// same bin count and the same frequency at every bin
func CheckSpectra(a, b models.FluxSpectrum) error {
	if len(a.Frequencies) != len(b.Frequencies) || len(a.Flux) != len(b.Flux) {
		return fmt.Errorf("%w: %s has %d bins, %s has %d",
			models.ErrMonitorGridMismatch, a.Monitor, len(a.Flux), b.Monitor, len(b.Flux))
	}
	for i := range a.Frequencies {
		if a.Frequencies[i] != b.Frequencies[i] {
			return fmt.Errorf("%w: bin %d at %g in %s but %g in %s",
				models.ErrMonitorGridMismatch, i, a.Frequencies[i], a.Monitor, b.Frequencies[i], b.Monitor)
		}
	}
	return nil
}
