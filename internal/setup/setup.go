// Package setup turns run parameters into a solver-ready pipeline plan.
package setup

import (
	"fmt"
	"io"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/bridgesim/internal/excitation"
	"github.com/RMahshie/bridgesim/internal/geometry"
	"github.com/RMahshie/bridgesim/internal/monitor"
	"github.com/RMahshie/bridgesim/internal/pipeline"
	"github.com/RMahshie/bridgesim/internal/solver"
	"github.com/RMahshie/bridgesim/internal/units"
	"github.com/RMahshie/bridgesim/pkg/models"
)

// Monitor and probe names used by every plan
const (
	ReflectionMonitor   = "refl"
	TransmissionMonitor = "trans"
	GapProbe            = "ez"
)

// Defaults, lengths in millimetres
const (
	DefaultBoundaryThickness = 2.0
	DefaultCellMargin        = 4.0
	DefaultMonitorOffset     = 1.0
	DefaultResolution        = 0.05 // pixels per micrometre
	DefaultFreqCenterGHz     = 5.0
	DefaultFreqWidthGHz      = 4.0
	DefaultMaxTime           = 1e5
)

// Defaults returns the reference design: millimetre geometry solved in micrometres
func Defaults() models.RunParams {
	r := geometry.DefaultResonator()
	return models.RunParams{
		SourceUnit:        units.Millimeter.String(),
		InternalUnit:      units.Micrometer.String(),
		Gap:               r.Gap,
		BridgeWidth:       r.BridgeWidth,
		BridgeThickness:   r.BridgeThickness,
		PadLength:         r.PadLength,
		BridgeOverhang:    r.BridgeOverhang,
		SubstrateRadius:   r.SubstrateRadius,
		SubstrateHeight:   r.SubstrateHeight,
		WallThickness:     r.WallThickness,
		SubstrateEpsilon:  r.SubstrateEpsilon,
		CutMargin:         r.CutMargin,
		BoundaryThickness: DefaultBoundaryThickness,
		CellMargin:        DefaultCellMargin,
		MonitorOffset:     DefaultMonitorOffset,
		Resolution:        DefaultResolution,
		FreqCenterGHz:     DefaultFreqCenterGHz,
		FreqWidthGHz:      DefaultFreqWidthGHz,
		Bins:              models.DefaultFluxBins,
		DecayWindow:       solver.DefaultDecayWindow,
		DecayThreshold:    solver.DefaultDecayThreshold,
		MaxTime:           DefaultMaxTime,
	}
}

// WithDefaults fills every zero field of p. Default lengths are converted from
// millimetres into p's source unit.
func WithDefaults(p models.RunParams) (models.RunParams, error) {
	d := Defaults()
	if p.SourceUnit == "" {
		p.SourceUnit = d.SourceUnit
	}
	if p.InternalUnit == "" {
		p.InternalUnit = d.InternalUnit
	}
	src, err := units.ParseLengthUnit(p.SourceUnit)
	if err != nil {
		return p, err
	}
	if _, err := units.ParseLengthUnit(p.InternalUnit); err != nil {
		return p, err
	}

	mm := units.Millimeter.ScaleTo(src)
	length := func(v *float64, def float64) {
		if *v == 0 {
			*v = def * mm
		}
	}
	value := func(v *float64, def float64) {
		if *v == 0 {
			*v = def
		}
	}

	length(&p.Gap, d.Gap)
	length(&p.BridgeWidth, d.BridgeWidth)
	length(&p.BridgeThickness, d.BridgeThickness)
	length(&p.PadLength, d.PadLength)
	length(&p.BridgeOverhang, d.BridgeOverhang)
	length(&p.SubstrateRadius, d.SubstrateRadius)
	length(&p.SubstrateHeight, d.SubstrateHeight)
	length(&p.WallThickness, d.WallThickness)
	length(&p.CutMargin, d.CutMargin)
	length(&p.BoundaryThickness, d.BoundaryThickness)
	length(&p.CellMargin, d.CellMargin)
	length(&p.MonitorOffset, d.MonitorOffset)
	value(&p.SubstrateEpsilon, d.SubstrateEpsilon)
	value(&p.Resolution, d.Resolution)
	value(&p.FreqCenterGHz, d.FreqCenterGHz)
	value(&p.FreqWidthGHz, d.FreqWidthGHz)
	value(&p.DecayWindow, d.DecayWindow)
	value(&p.DecayThreshold, d.DecayThreshold)
	value(&p.MaxTime, d.MaxTime)
	if p.Bins == 0 {
		p.Bins = d.Bins
	}
	return p, nil
}

// Study is a ready-to-run plan together with the conversions used to build it
type Study struct {
	Params     models.RunParams
	Plan       pipeline.Plan
	Normalizer units.Normalizer
	Resonator  geometry.Resonator
}

type options struct {
	parts io.Reader
	scene io.Reader
	label string
}

type Option func(*options)

// WithParts replaces the resonator geometry with a YAML part file
func WithParts(r io.Reader) Option {
	return func(o *options) { o.parts = r }
}

// WithScene replaces the resonator geometry with a JSON CAD scene
func WithScene(r io.Reader) Option {
	return func(o *options) { o.scene = r }
}

func WithLabel(label string) Option {
	return func(o *options) { o.label = label }
}

// Build normalizes params and assembles geometry, source, monitors, probe and
// stopping rule into a plan
func Build(params models.RunParams, opts ...Option) (*Study, error) {
	o := options{label: "bgr"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.parts != nil && o.scene != nil {
		return nil, fmt.Errorf("a part file and a scene cannot be used together")
	}

	p, err := WithDefaults(params)
	if err != nil {
		return nil, err
	}
	if p.FreqWidthGHz < 0 || p.FreqCenterGHz-p.FreqWidthGHz <= 0 {
		return nil, fmt.Errorf("frequency band %g±%g GHz must stay above 0 GHz", p.FreqCenterGHz, p.FreqWidthGHz)
	}
	src, _ := units.ParseLengthUnit(p.SourceUnit)
	internal, _ := units.ParseLengthUnit(p.InternalUnit)
	n := units.NewNormalizer(src, internal)

	res := geometry.Resonator{
		Gap:              p.Gap,
		BridgeWidth:      p.BridgeWidth,
		BridgeThickness:  p.BridgeThickness,
		PadLength:        p.PadLength,
		BridgeOverhang:   p.BridgeOverhang,
		SubstrateRadius:  p.SubstrateRadius,
		SubstrateHeight:  p.SubstrateHeight,
		WallThickness:    p.WallThickness,
		SubstrateEpsilon: p.SubstrateEpsilon,
		CutMargin:        p.CutMargin,
	}

	cell := n.Vector(res.CellSize(p.BoundaryThickness, p.CellMargin))
	var seq *geometry.Sequence
	switch {
	case o.parts != nil:
		seq, err = partsGeometry(o.parts, n)
		if err == nil {
			cell = boundsCell(seq, cell, n.Length(p.CellMargin), n.Length(p.BoundaryThickness))
		}
	case o.scene != nil:
		seq, err = geometry.ImportScene(o.scene, n, p.CutMargin)
		if err == nil {
			cell = boundsCell(seq, cell, n.Length(p.CellMargin), n.Length(p.BoundaryThickness))
		}
	default:
		seq, err = geometry.Build(res.Parts(), n)
	}
	if err != nil {
		return nil, err
	}

	grid := monitor.NewGrid(n.FrequencyGHz(p.FreqCenterGHz), n.FrequencyGHz(p.FreqWidthGHz), p.Bins)
	reflCenter, reflSize := res.ReflectionPlane(p.MonitorOffset)
	transCenter, transSize := res.TransmissionPlane(p.MonitorOffset)
	set, err := monitor.NewSet(grid, []monitor.Surface{
		{Name: ReflectionMonitor, Center: n.Vector(reflCenter), Size: n.Vector(reflSize), Direction: models.AxisX},
		{Name: TransmissionMonitor, Center: n.Vector(transCenter), Size: n.Vector(transSize), Direction: models.AxisX},
	})
	if err != nil {
		return nil, err
	}

	gap := n.Vector(res.GapCenter())
	source := excitation.Gaussian(grid.Center, grid.Width, models.Ez, excitation.Placement{
		Center: gap,
		Size:   n.Vector(res.SourceExtent()),
	})

	var floor *float64
	if p.FloorDB != nil {
		v := *p.FloorDB
		floor = &v
	}

	plan := pipeline.Plan{
		Label:             o.label,
		CellSize:          cell,
		BoundaryThickness: n.Length(p.BoundaryThickness),
		Resolution:        p.Resolution,
		Background:        models.Vacuum(),
		Geometry:          seq,
		Source:            source,
		Monitors:          set,
		Reflection:        ReflectionMonitor,
		Transmission:      TransmissionMonitor,
		Stop: models.StopSpec{
			Kind:      models.StopFieldDecay,
			Window:    p.DecayWindow,
			Threshold: p.DecayThreshold,
			Component: models.Ez,
			Point:     gap,
		},
		MaxTime:        p.MaxTime,
		Probes:         []models.Probe{{Name: GapProbe, Component: models.Ez, Point: gap}},
		SampleInterval: p.SampleInterval,
		FloorDB:        floor,
	}

	log.Debug().
		Str("label", o.label).
		Str("source_unit", src.String()).
		Str("internal_unit", internal.String()).
		Float64("scale", n.Scale()).
		Int("primitives", seq.Len()).
		Float64("fcen", grid.Center).
		Float64("fwidth", grid.Width).
		Msg("Plan assembled")

	return &Study{Params: p, Plan: plan, Normalizer: n, Resonator: res}, nil
}

// partsGeometry builds a part file, honouring its own unit when it sets one
func partsGeometry(r io.Reader, n units.Normalizer) (*geometry.Sequence, error) {
	f, err := geometry.LoadParts(r)
	if err != nil {
		return nil, err
	}
	if f.Unit != "" {
		u, err := units.ParseLengthUnit(f.Unit)
		if err != nil {
			return nil, err
		}
		n = units.NewNormalizer(u, n.Internal())
	}
	return geometry.Build(f.Parts, n)
}

// boundsCell sizes a cell centered on the origin around the geometry bounds,
// with margin and boundary layers on every side. The cell never shrinks below
// fallback.
func boundsCell(seq *geometry.Sequence, fallback models.Vector3, margin, boundary float64) models.Vector3 {
	lo, hi, ok := seq.Bounds()
	if !ok {
		return fallback
	}
	pad := 2 * (margin + boundary)
	extent := func(l, h, f float64) float64 {
		return math.Max(2*math.Max(math.Abs(l), math.Abs(h))+pad, f)
	}
	return models.Vec(
		extent(lo.X, hi.X, fallback.X),
		extent(lo.Y, hi.Y, fallback.Y),
		extent(lo.Z, hi.Z, fallback.Z),
	)
}
