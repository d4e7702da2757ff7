package solver

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/bridgesim/pkg/models"
)

func testConfig() models.SimulationConfig {
	grid := models.FrequencyGrid{Center: 5, Width: 4, Bins: 50}
	return models.SimulationConfig{
		Label:           "test",
		CellSize:        models.Vec(10, 10, 10),
		Resolution:      1,
		DefaultMaterial: models.Vacuum(),
		Sources: []models.Source{{
			Kind: models.SourceGaussian, FrequencyCenter: 5, FrequencyWidth: 4, Component: models.Ez,
		}},
		FluxRegions: []models.FluxRegion{
			{Name: "refl", Center: models.Vec(-2, 0, 0), Size: models.Vec(0, 4, 4), Direction: models.AxisX, Weight: 1, Grid: grid},
			{Name: "trans", Center: models.Vec(2, 0, 0), Size: models.Vec(0, 4, 4), Direction: models.AxisX, Weight: 1, Grid: grid},
		},
		Stop:    models.StopSpec{Kind: models.StopFieldDecay, Component: models.Ez},
		MaxTime: 1000,
	}
}

func TestDecayDetector(t *testing.T) {
	d := NewDecayDetector(0, 0)
	assert.Equal(t, DefaultDecayWindow, d.Window)
	assert.Equal(t, DefaultDecayThreshold, d.Threshold)

	d = NewDecayDetector(10, 1e-3)
	// rising then flat: never fires
	for i := 0; i <= 30; i++ {
		assert.False(t, d.Observe(float64(i), 1))
	}
	assert.Equal(t, 1.0, d.RunningMax())

	// a window that is entirely below the threshold fires at its end
	fired := -1.0
	for i := 31; i <= 60; i++ {
		if d.Observe(float64(i), 1e-4) {
			fired = float64(i)
			break
		}
	}
	assert.Equal(t, 40.0, fired)
}

func TestDecayDetector_ZeroSignalNeverFires(t *testing.T) {
	d := NewDecayDetector(5, 1e-6)
	for i := 0; i < 100; i++ {
		assert.False(t, d.Observe(float64(i), 0))
	}
}

func TestNewStopCondition(t *testing.T) {
	c, err := NewStopCondition(models.StopSpec{Kind: models.StopFixedTime, Until: 3})
	require.NoError(t, err)
	assert.False(t, c.Done(2.9, nil))
	assert.True(t, c.Done(3, nil))

	_, err = NewStopCondition(models.StopSpec{Kind: models.StopFixedTime})
	assert.Error(t, err)

	_, err = NewStopCondition(models.StopSpec{Kind: models.StopFieldDecay, Component: "Qx"})
	assert.Error(t, err)

	_, err = NewStopCondition(models.StopSpec{Kind: "steps"})
	assert.Error(t, err)
}

func TestSynthetic_DecayStop(t *testing.T) {
	tau := 10.0
	crossing := -tau * math.Log(DefaultDecayThreshold)

	s := NewSynthetic(WithSignal(func(t float64) float64 { return math.Exp(-t / tau) }))
	var times []float64
	res, err := s.Run(context.Background(), testConfig(), func(t float64, _ FieldReader) {
		times = append(times, t)
	})
	require.NoError(t, err)

	assert.True(t, res.Converged)
	assert.GreaterOrEqual(t, res.EndTime, crossing)
	assert.Less(t, res.EndTime, 1000.0)
	assert.Equal(t, res.Steps, len(times))
	assert.Equal(t, res.EndTime, times[len(times)-1])
}

func TestSynthetic_NonConvergent(t *testing.T) {
	s := NewSynthetic(WithSignal(func(t float64) float64 { return math.Sin(t) }))
	cfg := testConfig()
	cfg.MaxTime = 200

	res, err := s.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, res.Converged)
	assert.GreaterOrEqual(t, res.EndTime, 200.0)
	assert.Less(t, res.EndTime, 200.0+TimeStep(cfg.Resolution)+1e-9)
}

func TestSynthetic_FixedTime(t *testing.T) {
	cfg := testConfig()
	cfg.Stop = models.StopSpec{Kind: models.StopFixedTime, Until: 20}

	res, err := NewSynthetic().Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Equal(t, 20.0, res.EndTime)
	assert.Equal(t, 40, res.Steps)
}

func TestSynthetic_ReferenceSubtraction(t *testing.T) {
	s := NewSynthetic(WithDecay(5))

	incidentCfg := testConfig()
	incidentCfg.FluxRegions = incidentCfg.FluxRegions[:1]
	incident, err := s.Run(context.Background(), incidentCfg)
	require.NoError(t, err)

	scatteredCfg := testConfig()
	scatteredCfg.Geometry = []models.Primitive{{
		Name: "bridge", Kind: models.ShapeBlock, Size: models.Vec(1, 1, 1),
		Material: models.PerfectConductor("copper"),
	}}
	scatteredCfg.LoadedFlux = map[string]models.FluxState{
		"refl": incident.States["refl"].Negated(),
	}
	scattered, err := s.Run(context.Background(), scatteredCfg)
	require.NoError(t, err)

	inc := incident.Fluxes["refl"].Flux
	refl := scattered.Fluxes["refl"].Flux
	trans := scattered.Fluxes["trans"].Flux
	require.Len(t, inc, 50)
	require.Len(t, refl, 50)
	require.Len(t, trans, 50)

	for i := range inc {
		assert.Greater(t, inc[i], 0.0)
		// reflected power flows back, so the subtracted flux is negative
		assert.LessOrEqual(t, refl[i], 0.0)
		assert.LessOrEqual(t, -refl[i], inc[i])
		assert.LessOrEqual(t, trans[i], inc[i]+refl[i]+1e-12)
	}

	// resonance at the grid center reflects most
	mid := 25
	assert.Greater(t, -refl[mid]/inc[mid], -refl[0]/inc[0])
}

func TestSynthetic_GridMismatch(t *testing.T) {
	cfg := testConfig()
	cfg.LoadedFlux = map[string]models.FluxState{
		"refl": {Monitor: "refl", Grid: models.FrequencyGrid{Center: 5, Width: 4, Bins: 40}, Payload: make([]float64, 40)},
	}
	_, err := NewSynthetic().Run(context.Background(), cfg)
	assert.ErrorIs(t, err, models.ErrMonitorGridMismatch)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.SimulationConfig)
		target error
	}{
		{"zero resolution", func(c *models.SimulationConfig) { c.Resolution = 0 }, nil},
		{"no ceiling", func(c *models.SimulationConfig) { c.MaxTime = 0 }, nil},
		{"flat cell", func(c *models.SimulationConfig) { c.CellSize.Z = 0 }, models.ErrInvalidGeometry},
		{"bad primitive", func(c *models.SimulationConfig) {
			c.Geometry = []models.Primitive{{Name: "x", Kind: models.ShapeCylinder, Radius: -1, Height: 1, Material: models.Vacuum()}}
		}, models.ErrInvalidGeometry},
		{"unknown loaded monitor", func(c *models.SimulationConfig) {
			c.LoadedFlux = map[string]models.FluxState{"ghost": {}}
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestSynthetic_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSynthetic().Run(ctx, testConfig())
	assert.ErrorIs(t, err, context.Canceled)
}
