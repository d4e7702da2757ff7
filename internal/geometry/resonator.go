package geometry

import (
	"github.com/RMahshie/bridgesim/pkg/models"
)

// Resonator is the bridge-gap resonator on a hollow FR4 tube. All lengths are in
// the source unit (millimetres for DefaultResonator). The conductors sit on the
// z=0 plane and the tube hangs below it.
type Resonator struct {
	Gap              float64
	BridgeWidth      float64
	BridgeThickness  float64
	PadLength        float64
	BridgeOverhang   float64
	SubstrateRadius  float64
	SubstrateHeight  float64
	WallThickness    float64
	SubstrateEpsilon float64
	CutMargin        float64
}

// DefaultResonator returns the reference design in millimetres
func DefaultResonator() Resonator {
	return Resonator{
		Gap:              2.5,
		BridgeWidth:      8,
		BridgeThickness:  0.5,
		PadLength:        25,
		BridgeOverhang:   4,
		SubstrateRadius:  15,
		SubstrateHeight:  9.6,
		WallThickness:    2,
		SubstrateEpsilon: FR4Epsilon,
		CutMargin:        0.1,
	}
}

// Parts lists the conductors first and the tube last. The bridge block is
// 60% of the pad width and half the conductor thickness, floating above the pads.
func (r Resonator) Parts() []PartSpec {
	copper := MaterialSpec{Name: "copper"}
	t := r.BridgeThickness
	padOffset := r.Gap/2 + r.PadLength/2
	eps := r.SubstrateEpsilon

	return []PartSpec{
		{
			Name:     "left_pad",
			Shape:    ShapeBlock,
			Center:   models.Vec(-padOffset, 0, t/2),
			Size:     models.Vec(r.PadLength, r.BridgeWidth, t),
			Material: copper,
		},
		{
			Name:     "right_pad",
			Shape:    ShapeBlock,
			Center:   models.Vec(padOffset, 0, t/2),
			Size:     models.Vec(r.PadLength, r.BridgeWidth, t),
			Material: copper,
		},
		{
			Name:     "bridge",
			Shape:    ShapeBlock,
			Center:   models.Vec(0, 0, t*1.25),
			Size:     models.Vec(r.Gap+r.BridgeOverhang, r.BridgeWidth*0.6, t*0.5),
			Material: copper,
		},
		{
			Name:      "substrate",
			Shape:     ShapeTube,
			Center:    models.Vec(0, 0, -r.SubstrateHeight/2),
			Radius:    r.SubstrateRadius,
			Height:    r.SubstrateHeight,
			Wall:      r.WallThickness,
			CutMargin: r.CutMargin,
			Material:  MaterialSpec{Name: "fr4_tube", Permittivity: &eps},
		},
	}
}

// GapCenter is the midpoint of the gap at half conductor height, where the
// source is centered and the field is probed
func (r Resonator) GapCenter() models.Vector3 {
	return models.Vec(0, 0, r.BridgeThickness/2)
}

// SourceExtent is the planar extent of the gap source
func (r Resonator) SourceExtent() models.Vector3 {
	return models.Vec(r.Gap*0.8, r.BridgeWidth*0.5, 0)
}

// ReflectionPlane returns the center and size of the flux plane offset before
// the left gap edge
func (r Resonator) ReflectionPlane(offset float64) (models.Vector3, models.Vector3) {
	return models.Vec(-r.Gap/2-offset, 0, r.BridgeThickness/2), r.portSize()
}

// TransmissionPlane mirrors ReflectionPlane past the right gap edge
func (r Resonator) TransmissionPlane(offset float64) (models.Vector3, models.Vector3) {
	return models.Vec(r.Gap/2+offset, 0, r.BridgeThickness/2), r.portSize()
}

func (r Resonator) portSize() models.Vector3 {
	return models.Vec(0, r.BridgeWidth, r.BridgeThickness*3)
}

// CellSize encloses the structure plus boundary layers on both sides and an air
// margin
func (r Resonator) CellSize(boundary, margin float64) models.Vector3 {
	return models.Vec(
		2*(r.PadLength+r.Gap/2)+2*boundary+margin,
		max(r.BridgeWidth, 2*r.SubstrateRadius)+2*boundary+margin,
		r.SubstrateHeight+2*r.BridgeThickness+2*boundary+margin,
	)
}
