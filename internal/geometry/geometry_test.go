package geometry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/bridgesim/internal/units"
	"github.com/RMahshie/bridgesim/pkg/models"
)

var mmToUm = units.NewNormalizer(units.Millimeter, units.Micrometer)

func TestSequence_LastAppendedWins(t *testing.T) {
	solid := Cylinder("solid", models.Vec(0, 0, 0), 10, 4, models.Dielectric("fr4", 4.4))
	cut := Cylinder("cut", models.Vec(0, 0, 0), 6, 5, models.Vacuum())

	seq, err := NewSequence(solid, cut)
	require.NoError(t, err)

	inBoth := models.Vec(1, 1, 0)
	require.True(t, solid.Contains(inBoth))
	require.True(t, cut.Contains(inBoth))

	assert.Equal(t, models.MaterialVacuum, seq.MaterialAt(inBoth, models.Vacuum()).Kind)
	assert.Equal(t, models.MaterialDielectric, seq.MaterialAt(models.Vec(8, 0, 0), models.Vacuum()).Kind)
	assert.Equal(t, "air", seq.MaterialAt(models.Vec(50, 0, 0), models.Vacuum()).Name)

	// reversing the order fills the hole back in
	reversed, err := NewSequence(cut, solid)
	require.NoError(t, err)
	assert.Equal(t, models.MaterialDielectric, reversed.MaterialAt(inBoth, models.Vacuum()).Kind)
}

func TestSequence_AppendRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		prim models.Primitive
	}{
		{"zero block size", Block("b", models.Vec(0, 0, 0), models.Vec(1, 0, 1), models.Vacuum())},
		{"negative block size", Block("b", models.Vec(0, 0, 0), models.Vec(1, 1, -2), models.Vacuum())},
		{"zero radius", Cylinder("c", models.Vec(0, 0, 0), 0, 1, models.Vacuum())},
		{"negative height", Cylinder("c", models.Vec(0, 0, 0), 1, -1, models.Vacuum())},
		{"bad permittivity", Block("b", models.Vec(0, 0, 0), models.Vec(1, 1, 1), models.Dielectric("x", 0))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok := Block("ok", models.Vec(0, 0, 0), models.Vec(1, 1, 1), models.Vacuum())
			seq := &Sequence{}
			err := seq.Append(ok, tt.prim)
			assert.ErrorIs(t, err, models.ErrInvalidGeometry)
			assert.Equal(t, 0, seq.Len(), "nothing is appended on error")
		})
	}
}

func TestSequence_Bounds(t *testing.T) {
	seq, err := NewSequence(
		Block("a", models.Vec(0, 0, 0), models.Vec(2, 2, 2), models.Vacuum()),
		Cylinder("b", models.Vec(5, 0, -1), 1, 4, models.Vacuum()),
	)
	require.NoError(t, err)

	lo, hi, ok := seq.Bounds()
	require.True(t, ok)
	assert.Equal(t, models.Vec(-1, -1, -3), lo)
	assert.Equal(t, models.Vec(6, 1, 1), hi)

	_, _, ok = (&Sequence{}).Bounds()
	assert.False(t, ok)
}

func TestBuild_Resonator(t *testing.T) {
	r := DefaultResonator()
	seq, err := Build(r.Parts(), mmToUm)
	require.NoError(t, err)

	prims := seq.Primitives()
	require.Len(t, prims, 5)
	names := make([]string, len(prims))
	for i, p := range prims {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"left_pad", "right_pad", "bridge", "substrate", "substrate_bore"}, names)

	leftPad := prims[0]
	assert.InDelta(t, -(1250.0 + 12500.0), leftPad.Center.X, 1e-9)
	assert.InDelta(t, 250.0, leftPad.Center.Z, 1e-9)
	assert.InDelta(t, 25000.0, leftPad.Size.X, 1e-9)
	assert.Equal(t, models.MaterialPerfectConductor, leftPad.Material.Kind)

	bridge := prims[2]
	assert.InDelta(t, 6500.0, bridge.Size.X, 1e-9)
	assert.InDelta(t, 4800.0, bridge.Size.Y, 1e-9)
	assert.InDelta(t, 625.0, bridge.Center.Z, 1e-9)

	outer, bore := prims[3], prims[4]
	assert.Equal(t, models.MaterialDielectric, outer.Material.Kind)
	assert.InDelta(t, 4.4, outer.Material.Epsilon, 1e-12)
	assert.Equal(t, models.MaterialVacuum, bore.Material.Kind)
	assert.InDelta(t, 13000.0, bore.Radius, 1e-9)
	assert.Greater(t, bore.Height, outer.Height, "bore is oversized to avoid cap artifacts")
	assert.InDelta(t, 100.0, bore.Height-outer.Height, 1e-9)

	// tube wall is dielectric, tube interior and gap are air
	bg := models.Vacuum()
	assert.Equal(t, models.MaterialDielectric, seq.MaterialAt(models.Vec(14000, 0, -4800), bg).Kind)
	assert.Equal(t, models.MaterialVacuum, seq.MaterialAt(models.Vec(0, 0, -4800), bg).Kind)
	assert.Equal(t, models.MaterialVacuum, seq.MaterialAt(models.Vec(0, 0, 250), bg).Kind)
	assert.Equal(t, models.MaterialPerfectConductor, seq.MaterialAt(models.Vec(0, 0, 625), bg).Kind)
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name string
		part PartSpec
	}{
		{"unknown shape", PartSpec{Name: "x", Shape: "sphere"}},
		{"tube wall too thick", PartSpec{Name: "t", Shape: ShapeTube, Radius: 2, Height: 1, Wall: 2}},
		{"tube without wall", PartSpec{Name: "t", Shape: ShapeTube, Radius: 2, Height: 1}},
		{"zero axis", PartSpec{Name: "c", Shape: ShapeCylinder, Radius: 1, Height: 1, Axis: &models.Vector3{}}},
		{"flat block", PartSpec{Name: "b", Shape: ShapeBlock, Size: models.Vec(1, 1, 0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build([]PartSpec{tt.part}, mmToUm)
			assert.ErrorIs(t, err, models.ErrInvalidGeometry)
		})
	}

	t.Run("resonator with zero gap bridge", func(t *testing.T) {
		r := DefaultResonator()
		r.BridgeThickness = 0
		_, err := Build(r.Parts(), mmToUm)
		assert.ErrorIs(t, err, models.ErrInvalidGeometry)
	})
}

func TestResonatorPlacement(t *testing.T) {
	r := DefaultResonator()

	assert.Equal(t, models.Vec(0, 0, 0.25), r.GapCenter())
	assert.Equal(t, models.Vec(2, 4, 0), r.SourceExtent())

	c, s := r.ReflectionPlane(1)
	assert.Equal(t, models.Vec(-2.25, 0, 0.25), c)
	assert.Equal(t, models.Vec(0, 8, 1.5), s)

	c, _ = r.TransmissionPlane(1)
	assert.Equal(t, models.Vec(2.25, 0, 0.25), c)

	cell := r.CellSize(2, 4)
	assert.InDelta(t, 2*(25+1.25)+4+4, cell.X, 1e-12)
	assert.InDelta(t, 30+4+4, cell.Y, 1e-12)
	assert.InDelta(t, 9.6+1+4+4, cell.Z, 1e-12)
}

func TestLoadParts(t *testing.T) {
	doc := `
unit: mm
parts:
  - name: plate
    shape: block
    center: {x: 0, y: 0, z: 0.5}
    size: {x: 10, y: 10, z: 1}
    material: {name: copper}
  - name: tube
    shape: tube
    center: {x: 0, y: 0, z: -5}
    radius: 5
    height: 10
    wall: 1
    cut_margin: 0.1
    material: {name: rogers, permittivity: 3.5}
`
	f, err := LoadParts(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "mm", f.Unit)
	require.Len(t, f.Parts, 2)

	seq, err := Build(f.Parts, mmToUm)
	require.NoError(t, err)
	prims := seq.Primitives()
	require.Len(t, prims, 3)
	assert.Equal(t, "tube_bore", prims[2].Name)
	assert.InDelta(t, 3.5, prims[1].Material.Epsilon, 1e-12)

	_, err = LoadParts(strings.NewReader("unit: mm\nparts: []\n"))
	assert.ErrorIs(t, err, models.ErrInvalidGeometry)

	_, err = LoadParts(strings.NewReader("parts:\n  - name: x\n    colour: red\n"))
	assert.Error(t, err, "unknown fields are rejected")
}

func TestResolveMaterial(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name string
		spec MaterialSpec
		kind models.MaterialKind
		eps  float64
	}{
		{"copper", MaterialSpec{Name: "Copper"}, models.MaterialPerfectConductor, 0},
		{"pec", MaterialSpec{Name: "pec"}, models.MaterialPerfectConductor, 0},
		{"fr4", MaterialSpec{Name: "FR4"}, models.MaterialDielectric, FR4Epsilon},
		{"air", MaterialSpec{Name: "air"}, models.MaterialVacuum, 1},
		{"empty", MaterialSpec{}, models.MaterialVacuum, 1},
		{"custom dielectric", MaterialSpec{Name: "rogers", Permittivity: f(3.5)}, models.MaterialDielectric, 3.5},
		{"good conductor", MaterialSpec{Name: "alu", Conductivity: f(3.5e7)}, models.MaterialPerfectConductor, 0},
		{"unit permittivity", MaterialSpec{Name: "foam", Permittivity: f(1)}, models.MaterialVacuum, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ResolveMaterial(tt.spec)
			assert.Equal(t, tt.kind, m.Kind)
			assert.InDelta(t, tt.eps, m.Epsilon, 1e-12)
		})
	}
}

func TestImportScene(t *testing.T) {
	scene := `{
		"objects": [
			{
				"type": "group",
				"name": "assembly",
				"ops": [{"op": "translate", "x": 0, "y": 0, "z": 1}],
				"children": [
					{
						"type": "csg",
						"operation": "difference",
						"children": [
							{"type": "cylinder", "name": "outer", "params": {"r": 10, "h": 5}, "material": {"name": "fr4"}},
							{"type": "cylinder", "name": "inner", "params": {"r": 8, "h": 6}, "material": {"name": "copper"}}
						]
					},
					{"type": "box", "name": "pad", "params": {"w": 2, "h": 0.5}, "ops": [{"op": "translate", "x": 3}], "material": {"name": "copper"}},
					{"type": "sphere", "name": "ball", "params": {"r": 1}},
					{"type": "ring", "name": "washer", "params": {"inner_radius": 1, "outer_radius": 2, "h": 0.2}, "ops": [{"op": "rotate", "x": 90}]}
				]
			}
		]
	}`

	seq, err := ImportScene(strings.NewReader(scene), mmToUm, 0.1)
	require.NoError(t, err)

	prims := seq.Primitives()
	require.Len(t, prims, 5)

	assert.Equal(t, "outer", prims[0].Name)
	assert.Equal(t, models.MaterialDielectric, prims[0].Material.Kind)
	assert.Equal(t, "inner", prims[1].Name)
	assert.Equal(t, models.MaterialVacuum, prims[1].Material.Kind, "subtracted children become vacuum")
	assert.InDelta(t, 1000.0, prims[1].Center.Z, 1e-9, "group translation is inherited")

	pad := prims[2]
	assert.Equal(t, models.Vec(3000, 0, 1000), pad.Center)
	assert.Equal(t, models.Vec(2000, 2000, 500), pad.Size, "depth defaults to width")

	assert.Equal(t, "washer", prims[3].Name)
	assert.Equal(t, "washer_bore", prims[4].Name)
	assert.InDelta(t, 300.0, prims[4].Height, 1e-9)

	assert.Equal(t, models.MaterialVacuum, seq.MaterialAt(models.Vec(0, 0, 1000), models.Vacuum()).Kind)
	assert.Equal(t, models.MaterialDielectric, seq.MaterialAt(models.Vec(9000, 0, 1000), models.Vacuum()).Kind)
}

func TestImportScene_Errors(t *testing.T) {
	_, err := ImportScene(strings.NewReader(`{"objects": []}`), mmToUm, 0.1)
	assert.ErrorIs(t, err, models.ErrInvalidGeometry)

	_, err = ImportScene(strings.NewReader(`{"objects": [{"type": "torus", "params": {}}]}`), mmToUm, 0.1)
	assert.ErrorIs(t, err, models.ErrInvalidGeometry)

	_, err = ImportScene(strings.NewReader(`{"objects": [{"type": "ring", "params": {"inner_radius": 2, "outer_radius": 1}}]}`), mmToUm, 0.1)
	assert.ErrorIs(t, err, models.ErrInvalidGeometry)

	_, err = ImportScene(strings.NewReader(`not json`), mmToUm, 0.1)
	assert.Error(t, err)
}
