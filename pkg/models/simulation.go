package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultFluxBins is the number of frequency bins of a flux monitor
const DefaultFluxBins = 50

// Component is a field component the solver can drive or sample
type Component string

const (
	Ex Component = "Ex"
	Ey Component = "Ey"
	Ez Component = "Ez"
	Hx Component = "Hx"
	Hy Component = "Hy"
	Hz Component = "Hz"
)

// Valid reports whether c is one of the six Cartesian field components
func (c Component) Valid() bool {
	switch c {
	case Ex, Ey, Ez, Hx, Hy, Hz:
		return true
	}
	return false
}

// MaterialKind discriminates the supported material models
type MaterialKind string

const (
	MaterialPerfectConductor MaterialKind = "perfect_conductor"
	MaterialDielectric       MaterialKind = "dielectric"
	MaterialVacuum           MaterialKind = "vacuum"
)

// Material describes the electromagnetic behaviour of a primitive
type Material struct {
	Name    string       `json:"name" yaml:"name"`
	Kind    MaterialKind `json:"kind" yaml:"kind"`
	Epsilon float64      `json:"epsilon,omitempty" yaml:"epsilon,omitempty"`
}

// PerfectConductor is copper at GHz frequencies, where skin depth is negligible
// against millimetre geometry.
func PerfectConductor(name string) Material {
	return Material{Name: name, Kind: MaterialPerfectConductor}
}

// Dielectric is a lossless medium with relative permittivity eps
func Dielectric(name string, eps float64) Material {
	return Material{Name: name, Kind: MaterialDielectric, Epsilon: eps}
}

// Vacuum is also used for air and for cut-outs
func Vacuum() Material {
	return Material{Name: "air", Kind: MaterialVacuum, Epsilon: 1}
}

func (m Material) Validate() error {
	switch m.Kind {
	case MaterialPerfectConductor, MaterialVacuum:
		return nil
	case MaterialDielectric:
		if m.Epsilon <= 0 || math.IsNaN(m.Epsilon) {
			return fmt.Errorf("%w: material %q has permittivity %g", ErrInvalidGeometry, m.Name, m.Epsilon)
		}
		return nil
	default:
		return fmt.Errorf("%w: material %q has unknown kind %q", ErrInvalidGeometry, m.Name, m.Kind)
	}
}

// ShapeKind discriminates primitive variants
type ShapeKind string

const (
	ShapeBlock    ShapeKind = "block"
	ShapeCylinder ShapeKind = "cylinder"
)

// Primitive is one solid handed to the solver. Block uses Size; Cylinder uses
// Radius, Height and Axis.
type Primitive struct {
	Name     string    `json:"name"`
	Kind     ShapeKind `json:"kind"`
	Center   Vector3   `json:"center"`
	Size     Vector3   `json:"size,omitempty"`
	Radius   float64   `json:"radius,omitempty"`
	Height   float64   `json:"height,omitempty"`
	Axis     Vector3   `json:"axis,omitempty"`
	Material Material  `json:"material"`
}

// Validate rejects zero, negative or NaN extents
func (p Primitive) Validate() error {
	positive := func(v float64) bool { return v > 0 && !math.IsInf(v, 0) }

	switch p.Kind {
	case ShapeBlock:
		if !positive(p.Size.X) || !positive(p.Size.Y) || !positive(p.Size.Z) {
			return fmt.Errorf("%w: block %q has size (%g, %g, %g)", ErrInvalidGeometry, p.Name, p.Size.X, p.Size.Y, p.Size.Z)
		}
	case ShapeCylinder:
		if !positive(p.Radius) || !positive(p.Height) {
			return fmt.Errorf("%w: cylinder %q has radius %g and height %g", ErrInvalidGeometry, p.Name, p.Radius, p.Height)
		}
	default:
		return fmt.Errorf("%w: primitive %q has unknown kind %q", ErrInvalidGeometry, p.Name, p.Kind)
	}
	return p.Material.Validate()
}

// Contains reports whether pt lies inside the primitive, boundary included
func (p Primitive) Contains(pt Vector3) bool {
	d := pt.Sub(p.Center)
	switch p.Kind {
	case ShapeBlock:
		return math.Abs(d.X) <= p.Size.X/2 && math.Abs(d.Y) <= p.Size.Y/2 && math.Abs(d.Z) <= p.Size.Z/2
	case ShapeCylinder:
		axis := p.Axis.Unit()
		if axis == (Vector3{}) {
			axis = AxisZ.Vector()
		}
		h := d.Dot(axis)
		if math.Abs(h) > p.Height/2 {
			return false
		}
		return d.Sub(axis.Scale(h)).Length() <= p.Radius
	}
	return false
}

// Bounds returns the axis-aligned bounding box of the primitive
func (p Primitive) Bounds() (Vector3, Vector3) {
	var half Vector3
	switch p.Kind {
	case ShapeBlock:
		half = p.Size.Scale(0.5)
	case ShapeCylinder:
		axis := p.Axis.Unit()
		if axis == (Vector3{}) {
			axis = AxisZ.Vector()
		}
		// radial extent along each axis is r*sqrt(1-a_i^2)
		ext := func(a float64) float64 {
			return math.Abs(a)*p.Height/2 + p.Radius*math.Sqrt(math.Max(0, 1-a*a))
		}
		half = Vec(ext(axis.X), ext(axis.Y), ext(axis.Z))
	}
	return p.Center.Sub(half), p.Center.Add(half)
}

// SourceKind discriminates source time profiles
type SourceKind string

const (
	SourceGaussian   SourceKind = "gaussian"
	SourceContinuous SourceKind = "continuous"
)

// Source is a band-limited excitation. A zero Size is a point source, a Size with
// one zero extent is a plane source.
type Source struct {
	Kind            SourceKind `json:"kind"`
	FrequencyCenter float64    `json:"frequency_center"`
	FrequencyWidth  float64    `json:"frequency_width,omitempty"`
	Component       Component  `json:"component"`
	Center          Vector3    `json:"center"`
	Size            Vector3    `json:"size"`
}

// IsPoint reports whether the source has no spatial extent
func (s Source) IsPoint() bool {
	return s.Size == (Vector3{})
}

// FrequencyGrid is the sampling grid of a flux monitor: Bins points spanning
// [Center-Width, Center+Width] inclusive.
type FrequencyGrid struct {
	Center float64 `json:"center"`
	Width  float64 `json:"width"`
	Bins   int     `json:"bins"`
}

// Frequencies returns the bin frequencies in ascending order
func (g FrequencyGrid) Frequencies() []float64 {
	switch {
	case g.Bins <= 0:
		return nil
	case g.Bins == 1:
		return []float64{g.Center}
	}
	return floats.Span(make([]float64, g.Bins), g.Center-g.Width, g.Center+g.Width)
}

// Equal compares grids exactly; both sides are expected to come from the same inputs
func (g FrequencyGrid) Equal(o FrequencyGrid) bool {
	return g.Center == o.Center && g.Width == o.Width && g.Bins == o.Bins
}

// FluxRegion is a named oriented surface where net power flow is integrated.
// Weight is +1 or -1 and flips the sign of the accumulated flux.
type FluxRegion struct {
	Name      string        `json:"name"`
	Center    Vector3       `json:"center"`
	Size      Vector3       `json:"size"`
	Direction Axis          `json:"direction"`
	Weight    float64       `json:"weight"`
	Grid      FrequencyGrid `json:"grid"`
}

// Probe is a fixed point where a field component is read every step
type Probe struct {
	Name      string    `json:"name"`
	Component Component `json:"component"`
	Point     Vector3   `json:"point"`
}

// StopKind discriminates stopping rules
type StopKind string

const (
	StopFieldDecay StopKind = "decay"
	StopFixedTime  StopKind = "time"
)

// StopSpec is the serialisable form of a stopping predicate. For decay the run
// stops once |field| at Point, maximised over a trailing Window, has dropped to
// Threshold times its running maximum.
type StopSpec struct {
	Kind      StopKind  `json:"kind"`
	Window    float64   `json:"window,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Component Component `json:"component,omitempty"`
	Point     Vector3   `json:"point"`
	Until     float64   `json:"until,omitempty"`
}

// FluxState is the solver's captured per-bin accumulator state for one monitor.
// Payload is opaque to the pipeline and passed back unchanged apart from negation.
type FluxState struct {
	Monitor string        `json:"monitor"`
	Grid    FrequencyGrid `json:"grid"`
	Payload []float64     `json:"payload"`
}

// Negated returns a copy with every accumulator negated
func (s FluxState) Negated() FluxState {
	out := FluxState{Monitor: s.Monitor, Grid: s.Grid, Payload: make([]float64, len(s.Payload))}
	for i, v := range s.Payload {
		out.Payload[i] = -v
	}
	return out
}

// SimulationConfig is everything the external solver needs for one run
type SimulationConfig struct {
	Label             string               `json:"label"`
	CellSize          Vector3              `json:"cell_size"`
	BoundaryThickness float64              `json:"boundary_thickness"`
	Resolution        float64              `json:"resolution"`
	DefaultMaterial   Material             `json:"default_material"`
	Geometry          []Primitive          `json:"geometry"`
	Sources           []Source             `json:"sources"`
	FluxRegions       []FluxRegion         `json:"flux_regions"`
	Probes            []Probe              `json:"probes"`
	LoadedFlux        map[string]FluxState `json:"loaded_flux,omitempty"`
	Stop              StopSpec             `json:"stop"`
	MaxTime           float64              `json:"max_time"`
}

// FluxSpectrum is the flux of one monitor ordered by frequency bin
type FluxSpectrum struct {
	Monitor     string    `json:"monitor"`
	Frequencies []float64 `json:"frequencies"`
	Flux        []float64 `json:"flux"`
}

// SimulationResult is what a solver run returns. Converged is false when the run
// was cut off by the time ceiling.
type SimulationResult struct {
	Fluxes    map[string]FluxSpectrum `json:"fluxes"`
	States    map[string]FluxState    `json:"states"`
	Steps     int                     `json:"steps"`
	EndTime   float64                 `json:"end_time"`
	Converged bool                    `json:"converged"`
}

// TimeSeries is a probe trace ordered by strictly increasing time
type TimeSeries struct {
	Time  []float64 `json:"time"`
	Value []float64 `json:"value"`
}

func (ts TimeSeries) Len() int {
	return len(ts.Time)
}
