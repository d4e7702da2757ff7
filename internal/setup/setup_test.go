package setup

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/bridgesim/internal/archive"
	"github.com/RMahshie/bridgesim/internal/pipeline"
	"github.com/RMahshie/bridgesim/internal/solver"
	"github.com/RMahshie/bridgesim/internal/units"
	"github.com/RMahshie/bridgesim/pkg/models"
)

func TestWithDefaults(t *testing.T) {
	p, err := WithDefaults(models.RunParams{})
	require.NoError(t, err)
	assert.Equal(t, Defaults(), p)

	p, err = WithDefaults(models.RunParams{SourceUnit: "um", Gap: 3000})
	require.NoError(t, err)
	assert.Equal(t, 3000.0, p.Gap)
	assert.Equal(t, 8000.0, p.BridgeWidth)
	assert.Equal(t, 2000.0, p.BoundaryThickness)
	assert.Equal(t, 5.0, p.FreqCenterGHz)
	assert.Equal(t, models.DefaultFluxBins, p.Bins)

	_, err = WithDefaults(models.RunParams{SourceUnit: "furlong"})
	assert.Error(t, err)
}

func TestBuild_Defaults(t *testing.T) {
	study, err := Build(models.RunParams{})
	require.NoError(t, err)
	plan := study.Plan

	assert.Equal(t, 1000.0, study.Normalizer.Scale())
	assert.Equal(t, 60500.0, plan.CellSize.X)
	assert.Equal(t, 2000.0, plan.BoundaryThickness)
	assert.Equal(t, 5, plan.Geometry.Len())
	assert.Nil(t, plan.FloorDB)

	grid := plan.Monitors.Grid()
	assert.Equal(t, 50, grid.Bins)
	assert.InEpsilon(t, 5e9*1e-6/units.SpeedOfLight, grid.Center, 1e-12)
	assert.InEpsilon(t, 4e9*1e-6/units.SpeedOfLight, grid.Width, 1e-12)

	refl, ok := plan.Monitors.Region(ReflectionMonitor)
	require.True(t, ok)
	assert.Equal(t, -2250.0, refl.Center.X)
	assert.Equal(t, 250.0, refl.Center.Z)
	assert.Equal(t, models.Vec(0, 8000, 1500), refl.Size)

	assert.Equal(t, models.Vec(0, 0, 250), plan.Source.Center)
	assert.Equal(t, models.Ez, plan.Source.Component)
	assert.Equal(t, plan.Source.Center, plan.Stop.Point)
	assert.Equal(t, 50.0, plan.Stop.Window)
	assert.Equal(t, 1e-6, plan.Stop.Threshold)
	require.Len(t, plan.Probes, 1)
	assert.Equal(t, GapProbe, plan.Probes[0].Name)
	// the gap trace is archived as field_ez
	assert.Equal(t, "field_ez", archive.FieldPrefix+plan.Probes[0].Name)
}

func TestBuild_FloorOverride(t *testing.T) {
	floor := -80.0
	study, err := Build(models.RunParams{FloorDB: &floor})
	require.NoError(t, err)
	require.NotNil(t, study.Plan.FloorDB)
	assert.Equal(t, -80.0, *study.Plan.FloorDB)

	zero := 0.0
	study, err = Build(models.RunParams{FloorDB: &zero})
	require.NoError(t, err)
	require.NotNil(t, study.Plan.FloorDB)
	assert.Equal(t, 0.0, *study.Plan.FloorDB)
}

func TestBuild_FrequencyBand(t *testing.T) {
	tests := []struct {
		name   string
		center float64
		width  float64
	}{
		{"below zero", 2, 4},
		{"touching zero", 3, 3},
		{"negative width", 5, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(models.RunParams{FreqCenterGHz: tt.center, FreqWidthGHz: tt.width})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "frequency band")
		})
	}

	study, err := Build(models.RunParams{FreqCenterGHz: 2, FreqWidthGHz: 1.5})
	require.NoError(t, err)
	assert.Greater(t, study.Plan.Monitors.Grid().Frequencies()[0], 0.0)
}

func TestBuild_InvalidGeometry(t *testing.T) {
	_, err := Build(models.RunParams{WallThickness: 20})
	assert.ErrorIs(t, err, models.ErrInvalidGeometry)
}

// The micrometre reference scenario: 2500 um gap, 8000 um bridge, 5 GHz center
// and 4 GHz width, solved on the synthetic solver.
func TestBuild_EndToEndMicrometres(t *testing.T) {
	study, err := Build(models.RunParams{
		SourceUnit:    "um",
		InternalUnit:  "um",
		Gap:           2500,
		BridgeWidth:   8000,
		Resolution:    0.02,
		FreqCenterGHz: 5,
		FreqWidthGHz:  4,
	})
	require.NoError(t, err)

	res, err := pipeline.NewRunner(solver.NewSynthetic()).Run(context.Background(), study.Plan)
	require.NoError(t, err)

	require.Len(t, res.SParams.S11dB, 50)
	require.Len(t, res.SParams.S21dB, 50)
	for i := range res.SParams.S11dB {
		assert.LessOrEqual(t, res.SParams.S11dB[i], 0.0)
		assert.LessOrEqual(t, res.SParams.S21dB[i], 0.0)
	}

	pts := res.SParams.Points(study.Normalizer.ToGHz)
	assert.InDelta(t, 1.0, pts[0].FrequencyGHz, 1e-9)
	assert.InDelta(t, 9.0, pts[49].FrequencyGHz, 1e-9)
}

func TestBuild_Parts(t *testing.T) {
	parts := `
unit: mm
parts:
  - name: plate
    shape: block
    center: {x: 0, y: 0, z: 0}
    size: {x: 40, y: 40, z: 1}
    material: {name: fr4}
  - name: strip
    shape: block
    center: {x: 0, y: 0, z: 0.75}
    size: {x: 30, y: 2, z: 0.5}
    material: {name: copper}
`
	study, err := Build(models.RunParams{}, WithParts(strings.NewReader(parts)), WithLabel("plate"))
	require.NoError(t, err)
	assert.Equal(t, "plate", study.Plan.Label)
	prims := study.Plan.Geometry.Primitives()
	require.Len(t, prims, 2)
	assert.Equal(t, models.Vec(40000, 40000, 1000), prims[0].Size)
	assert.Equal(t, models.MaterialPerfectConductor, prims[1].Material.Kind)

	// the resonator cell is the floor
	assert.Equal(t, 60500.0, study.Plan.CellSize.X)
}

func TestBuild_Scene(t *testing.T) {
	scene := `{"objects": [
		{"type": "box", "name": "slab", "params": {"w": 100, "d": 10, "h": 2}, "material": {"name": "fr4"}}
	]}`
	study, err := Build(models.RunParams{}, WithScene(strings.NewReader(scene)))
	require.NoError(t, err)

	// 100 mm slab plus 2*(4 mm margin + 2 mm boundary)
	assert.Equal(t, 112000.0, study.Plan.CellSize.X)
	assert.Equal(t, 1, study.Plan.Geometry.Len())
}

func TestBuild_PartsAndSceneConflict(t *testing.T) {
	_, err := Build(models.RunParams{}, WithParts(strings.NewReader("")), WithScene(strings.NewReader("")))
	assert.Error(t, err)
}
