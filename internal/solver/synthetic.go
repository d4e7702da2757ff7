package solver

import (
	"context"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/bridgesim/pkg/models"
)

// Synthetic is a deterministic stand-in for a field solver. It models a single
// Lorentzian resonance: with geometry present, a fraction r(f) of the incident
// power is reflected and a fraction t(f) <= 1-r(f) is transmitted. An empty
// geometry propagates the incident spectrum unchanged. Fields at every point
// follow one decaying signal on the source component.
type Synthetic struct {
	resonance float64 // zero means the center of each monitor grid
	linewidth float64 // zero means an eighth of the grid width
	depth     float64
	loss      float64
	signal    func(t float64) float64
}

// DefaultRingdown is the decay time constant of the default probe signal in
// solver time units
const DefaultRingdown = 100.0

type SyntheticOption func(*Synthetic)

// WithResonance sets the resonance frequency and linewidth in solver units and
// the peak reflected fraction
func WithResonance(f0, linewidth, depth float64) SyntheticOption {
	return func(s *Synthetic) {
		s.resonance = f0
		s.linewidth = linewidth
		s.depth = math.Min(math.Max(depth, 0), 1)
	}
}

// WithLoss sets the fraction of the non-reflected power that is absorbed
func WithLoss(loss float64) SyntheticOption {
	return func(s *Synthetic) {
		s.loss = math.Min(math.Max(loss, 0), 1)
	}
}

// WithSignal replaces the probe signal
func WithSignal(signal func(t float64) float64) SyntheticOption {
	return func(s *Synthetic) {
		s.signal = signal
	}
}

// WithDecay sets the ringdown time constant of the default signal
func WithDecay(tau float64) SyntheticOption {
	return func(s *Synthetic) {
		s.signal = ringdown(tau, 0)
	}
}

func NewSynthetic(opts ...SyntheticOption) *Synthetic {
	s := &Synthetic{depth: 0.9, loss: 0.2}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Synthetic) Run(ctx context.Context, cfg models.SimulationConfig, hooks ...StepHook) (*models.SimulationResult, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	stop, err := NewStopCondition(cfg.Stop)
	if err != nil {
		return nil, err
	}

	var src *models.Source
	if len(cfg.Sources) > 0 {
		src = &cfg.Sources[0]
	}
	fields := &syntheticFields{signal: s.signalFor(src)}
	if src != nil {
		fields.component = src.Component
	}

	dt := TimeStep(cfg.Resolution)
	converged := false
	steps := 0
	var t float64
	for {
		if steps%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		steps++
		t = float64(steps) * dt
		fields.t = t

		for _, hook := range hooks {
			hook(t, fields)
		}
		if stop.Done(t, fields) {
			converged = true
			break
		}
		if t >= cfg.MaxTime {
			break
		}
	}

	result := &models.SimulationResult{
		Fluxes:    make(map[string]models.FluxSpectrum, len(cfg.FluxRegions)),
		States:    make(map[string]models.FluxState, len(cfg.FluxRegions)),
		Steps:     steps,
		EndTime:   t,
		Converged: converged,
	}
	for _, region := range cfg.FluxRegions {
		freqs := region.Grid.Frequencies()
		flux := s.flux(cfg, src, region, freqs)
		if state, ok := cfg.LoadedFlux[region.Name]; ok {
			for i := range flux {
				flux[i] += state.Payload[i]
			}
		}

		result.Fluxes[region.Name] = models.FluxSpectrum{Monitor: region.Name, Frequencies: freqs, Flux: flux}
		result.States[region.Name] = models.FluxState{
			Monitor: region.Name,
			Grid:    region.Grid,
			Payload: append([]float64(nil), flux...),
		}
	}

	log.Debug().
		Str("label", cfg.Label).
		Int("steps", steps).
		Float64("end_time", t).
		Bool("converged", converged).
		Msg("Synthetic run finished")

	return result, nil
}

// flux returns the raw per-bin flux through region before any loaded state
func (s *Synthetic) flux(cfg models.SimulationConfig, src *models.Source, region models.FluxRegion, freqs []float64) []float64 {
	out := make([]float64, len(freqs))
	if src == nil {
		return out
	}

	upstream := region.Center.Component(region.Direction) < src.Center.Component(region.Direction)
	f0, gamma := s.resonance, s.linewidth
	if f0 == 0 {
		f0 = region.Grid.Center
	}
	if gamma <= 0 {
		gamma = region.Grid.Width / 8
	}
	if gamma <= 0 {
		gamma = 1
	}

	for i, f := range freqs {
		incident := incidentSpectrum(*src, f)
		if len(cfg.Geometry) == 0 {
			out[i] = region.Weight * incident
			continue
		}
		x := (f - f0) / gamma
		r := s.depth / (1 + x*x)
		if upstream {
			out[i] = region.Weight * (incident - r*incident)
		} else {
			out[i] = region.Weight * (1 - r) * (1 - s.loss) * incident
		}
	}
	return out
}

func (s *Synthetic) signalFor(src *models.Source) func(float64) float64 {
	if s.signal != nil {
		return s.signal
	}
	if src == nil {
		return ringdown(DefaultRingdown, 0)
	}
	return ringdown(DefaultRingdown, src.FrequencyCenter)
}

func ringdown(tau, f float64) func(float64) float64 {
	return func(t float64) float64 {
		return math.Exp(-t/tau) * math.Cos(2*math.Pi*f*t)
	}
}

// incidentSpectrum is the power spectrum of the source at f
func incidentSpectrum(src models.Source, f float64) float64 {
	switch src.Kind {
	case models.SourceContinuous:
		if f == src.FrequencyCenter {
			return 1
		}
		return 0
	default:
		if src.FrequencyWidth <= 0 {
			return 0
		}
		x := (f - src.FrequencyCenter) / src.FrequencyWidth
		return math.Exp(-2 * x * x)
	}
}

type syntheticFields struct {
	t         float64
	component models.Component
	signal    func(float64) float64
}

func (f *syntheticFields) FieldAt(c models.Component, _ models.Vector3) complex128 {
	if c != f.component || f.component == "" {
		return 0
	}
	return complex(f.signal(f.t), 0)
}
