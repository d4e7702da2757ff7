package geometry

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/RMahshie/bridgesim/internal/units"
	"github.com/RMahshie/bridgesim/pkg/models"
)

// Part shapes understood by Build
const (
	ShapeBlock    = "block"
	ShapeCylinder = "cylinder"
	ShapeTube     = "tube"
)

// PartSpec describes one named part in source units. A tube expands into an
// outer cylinder followed by a vacuum bore that is CutMargin taller, so the cut
// faces do not land exactly on the outer cylinder's caps.
type PartSpec struct {
	Name      string          `yaml:"name"`
	Shape     string          `yaml:"shape"`
	Center    models.Vector3  `yaml:"center"`
	Size      models.Vector3  `yaml:"size,omitempty"`
	Radius    float64         `yaml:"radius,omitempty"`
	Height    float64         `yaml:"height,omitempty"`
	Wall      float64         `yaml:"wall,omitempty"`
	CutMargin float64         `yaml:"cut_margin,omitempty"`
	Axis      *models.Vector3 `yaml:"axis,omitempty"`
	Material  MaterialSpec    `yaml:"material"`
}

// PartFile is the YAML document read by LoadParts
type PartFile struct {
	Unit  string     `yaml:"unit"`
	Parts []PartSpec `yaml:"parts"`
}

// LoadParts decodes a part file
func LoadParts(r io.Reader) (*PartFile, error) {
	var f PartFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode part file: %w", err)
	}
	if len(f.Parts) == 0 {
		return nil, fmt.Errorf("%w: part file has no parts", models.ErrInvalidGeometry)
	}
	return &f, nil
}

// Build expands parts, in order, into a validated sequence in internal units
func Build(parts []PartSpec, n units.Normalizer) (*Sequence, error) {
	seq := &Sequence{}
	for _, part := range parts {
		prims, err := expand(part, n)
		if err != nil {
			return nil, err
		}
		if err := seq.Append(prims...); err != nil {
			return nil, err
		}
	}
	return seq, nil
}

func expand(part PartSpec, n units.Normalizer) ([]models.Primitive, error) {
	mat := ResolveMaterial(part.Material)
	axis := models.AxisZ.Vector()
	if part.Axis != nil {
		axis = part.Axis.Unit()
		if axis == (models.Vector3{}) {
			return nil, fmt.Errorf("%w: part %q has a zero axis", models.ErrInvalidGeometry, part.Name)
		}
	}

	switch part.Shape {
	case ShapeBlock:
		return []models.Primitive{Block(part.Name, n.Vector(part.Center), n.Vector(part.Size), mat)}, nil

	case ShapeCylinder:
		c := Cylinder(part.Name, n.Vector(part.Center), n.Length(part.Radius), n.Length(part.Height), mat)
		c.Axis = axis
		return []models.Primitive{c}, nil

	case ShapeTube:
		inner := part.Radius - part.Wall
		if part.Wall <= 0 || inner <= 0 {
			return nil, fmt.Errorf("%w: tube %q has radius %g and wall %g", models.ErrInvalidGeometry, part.Name, part.Radius, part.Wall)
		}
		if part.CutMargin < 0 {
			return nil, fmt.Errorf("%w: tube %q has negative cut margin", models.ErrInvalidGeometry, part.Name)
		}
		outer := Cylinder(part.Name, n.Vector(part.Center), n.Length(part.Radius), n.Length(part.Height), mat)
		outer.Axis = axis
		bore := Cylinder(part.Name+"_bore", n.Vector(part.Center), n.Length(inner), n.Length(part.Height+part.CutMargin), models.Vacuum())
		bore.Axis = axis
		return []models.Primitive{outer, bore}, nil
	}

	return nil, fmt.Errorf("%w: part %q has unknown shape %q", models.ErrInvalidGeometry, part.Name, part.Shape)
}

// Block builds an axis-aligned block primitive
func Block(name string, center, size models.Vector3, mat models.Material) models.Primitive {
	return models.Primitive{Name: name, Kind: models.ShapeBlock, Center: center, Size: size, Material: mat}
}

// Cylinder builds a z-axis cylinder primitive
func Cylinder(name string, center models.Vector3, radius, height float64, mat models.Material) models.Primitive {
	return models.Primitive{
		Name:     name,
		Kind:     models.ShapeCylinder,
		Center:   center,
		Radius:   radius,
		Height:   height,
		Axis:     models.AxisZ.Vector(),
		Material: mat,
	}
}
