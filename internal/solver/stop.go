package solver

import (
	"fmt"
	"math/cmplx"

	"github.com/RMahshie/bridgesim/pkg/models"
)

const (
	DefaultDecayWindow    = 50.0
	DefaultDecayThreshold = 1e-6
)

// StopCondition decides after each step whether a run is finished
type StopCondition interface {
	Done(t float64, fields FieldReader) bool
}

// NewStopCondition builds the predicate described by spec. Zero window and
// threshold fall back to the defaults.
func NewStopCondition(spec models.StopSpec) (StopCondition, error) {
	switch spec.Kind {
	case models.StopFixedTime:
		if spec.Until <= 0 {
			return nil, fmt.Errorf("fixed-time stop needs a positive end time, got %g", spec.Until)
		}
		return fixedTime(spec.Until), nil

	case models.StopFieldDecay, "":
		if spec.Component == "" {
			spec.Component = models.Ez
		}
		if !spec.Component.Valid() {
			return nil, fmt.Errorf("decay stop has invalid component %q", spec.Component)
		}
		d := NewDecayDetector(spec.Window, spec.Threshold)
		return &decayCondition{detector: d, component: spec.Component, point: spec.Point}, nil
	}
	return nil, fmt.Errorf("unknown stop kind %q", spec.Kind)
}

type fixedTime float64

func (f fixedTime) Done(t float64, _ FieldReader) bool {
	return t >= float64(f)
}

// DecayDetector fires once the largest |value| seen over a trailing window has
// fallen to Threshold times the largest |value| seen so far. The check runs
// each time a full window has elapsed.
type DecayDetector struct {
	Window    float64
	Threshold float64

	runningMax  float64
	windowMax   float64
	windowStart float64
	started     bool
}

func NewDecayDetector(window, threshold float64) *DecayDetector {
	if window <= 0 {
		window = DefaultDecayWindow
	}
	if threshold <= 0 {
		threshold = DefaultDecayThreshold
	}
	return &DecayDetector{Window: window, Threshold: threshold}
}

// Observe feeds one magnitude sample and reports whether the decay criterion holds
func (d *DecayDetector) Observe(t, magnitude float64) bool {
	if !d.started {
		d.started = true
		d.windowStart = t
	}
	d.runningMax = max(d.runningMax, magnitude)
	d.windowMax = max(d.windowMax, magnitude)

	if t-d.windowStart < d.Window {
		return false
	}
	if d.runningMax > 0 && d.windowMax <= d.Threshold*d.runningMax {
		return true
	}
	d.windowStart = t
	d.windowMax = 0
	return false
}

// RunningMax is the largest magnitude observed so far
func (d *DecayDetector) RunningMax() float64 {
	return d.runningMax
}

type decayCondition struct {
	detector  *DecayDetector
	component models.Component
	point     models.Vector3
}

func (c *decayCondition) Done(t float64, fields FieldReader) bool {
	return c.detector.Observe(t, cmplx.Abs(fields.FieldAt(c.component, c.point)))
}
