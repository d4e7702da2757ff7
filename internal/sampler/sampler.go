// Package sampler records field values at fixed probe points during a run.
package sampler

import (
	"github.com/RMahshie/bridgesim/internal/solver"
	"github.com/RMahshie/bridgesim/pkg/models"
)

// Sampler appends the real part of each probe's field component on every
// observed step, optionally thinned to one sample per interval. Times that do
// not increase are dropped, so every series is strictly increasing in time.
//
// A Sampler belongs to one run; it is not safe for concurrent use.
type Sampler struct {
	interval float64
	probes   []models.Probe
	series   map[string]*models.TimeSeries
	last     float64
	started  bool
}

// New returns a sampler for probes. Interval <= 0 records every step.
func New(interval float64, probes ...models.Probe) *Sampler {
	s := &Sampler{
		interval: interval,
		probes:   append([]models.Probe(nil), probes...),
		series:   make(map[string]*models.TimeSeries, len(probes)),
	}
	for _, p := range probes {
		s.series[p.Name] = &models.TimeSeries{}
	}
	return s
}

// Hook adapts the sampler to a solver step hook
func (s *Sampler) Hook() solver.StepHook {
	return s.Observe
}

func (s *Sampler) Observe(t float64, fields solver.FieldReader) {
	if s.started {
		if t <= s.last {
			return
		}
		if s.interval > 0 && t < s.last+s.interval {
			return
		}
	}
	s.started = true
	s.last = t

	for _, p := range s.probes {
		ts := s.series[p.Name]
		ts.Time = append(ts.Time, t)
		ts.Value = append(ts.Value, real(fields.FieldAt(p.Component, p.Point)))
	}
}

// Probes returns the sampled probes in registration order
func (s *Sampler) Probes() []models.Probe {
	return append([]models.Probe(nil), s.probes...)
}

// Series returns a copy of the trace recorded for a probe
func (s *Sampler) Series(name string) (models.TimeSeries, bool) {
	ts, ok := s.series[name]
	if !ok {
		return models.TimeSeries{}, false
	}
	return models.TimeSeries{
		Time:  append([]float64(nil), ts.Time...),
		Value: append([]float64(nil), ts.Value...),
	}, true
}

// Len is the number of recorded time points
func (s *Sampler) Len() int {
	for _, ts := range s.series {
		return ts.Len()
	}
	return 0
}
