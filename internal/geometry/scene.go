package geometry

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/bridgesim/internal/units"
	"github.com/RMahshie/bridgesim/pkg/models"
)

// Scene is a serialized CAD scene
type Scene struct {
	Objects []SceneObject `json:"objects"`
}

// SceneObject is a primitive, a CSG node or a group
type SceneObject struct {
	Type      string        `json:"type"`
	Name      string        `json:"name"`
	Params    *SceneParams  `json:"params"`
	Ops       []SceneOp     `json:"ops"`
	Material  *MaterialSpec `json:"material"`
	Operation string        `json:"operation"`
	Children  []SceneObject `json:"children"`
}

// SceneParams holds primitive dimensions
type SceneParams struct {
	W           *float64 `json:"w"`
	D           *float64 `json:"d"`
	H           *float64 `json:"h"`
	R           *float64 `json:"r"`
	InnerRadius *float64 `json:"inner_radius"`
	OuterRadius *float64 `json:"outer_radius"`
}

// SceneOp is a transform; only translate is honoured
type SceneOp struct {
	Op string  `json:"op"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
}

// ImportScene translates a JSON scene into a sequence in internal units.
//
// CSG differences emit the first child and then the remaining children as vacuum,
// relying on last-write-wins. Rings become an outer cylinder plus a vacuum bore
// cutMargin taller. Intersections keep only their first child. Spheres, tori,
// rotations and scales have no solver equivalent and are skipped with a warning.
func ImportScene(r io.Reader, n units.Normalizer, cutMargin float64) (*Sequence, error) {
	var scene Scene
	if err := json.NewDecoder(r).Decode(&scene); err != nil {
		return nil, fmt.Errorf("failed to decode scene: %w", err)
	}

	imp := &sceneImporter{n: n, cutMargin: cutMargin, seq: &Sequence{}}
	for _, obj := range scene.Objects {
		if err := imp.visit(obj, models.Vector3{}, nil); err != nil {
			return nil, err
		}
	}
	if imp.seq.Len() == 0 {
		return nil, fmt.Errorf("%w: no geometry found in scene", models.ErrInvalidGeometry)
	}
	return imp.seq, nil
}

type sceneImporter struct {
	n         units.Normalizer
	cutMargin float64
	seq       *Sequence
}

func (imp *sceneImporter) visit(obj SceneObject, offset models.Vector3, override *models.Material) error {
	offset = offset.Add(imp.translation(obj))

	switch obj.Type {
	case "box", "cylinder", "ring":
		return imp.primitive(obj, offset, override)

	case "sphere", "torus":
		log.Warn().Str("object", obj.Name).Str("type", obj.Type).Msg("Primitive has no solver equivalent, skipping")
		return nil

	case "csg":
		return imp.csg(obj, offset, override)

	case "group", "assembly", "component":
		for _, child := range obj.Children {
			if err := imp.visit(child, offset, override); err != nil {
				return err
			}
		}
		return nil
	}

	log.Warn().Str("object", obj.Name).Str("type", obj.Type).Msg("Unknown scene object type, skipping")
	return nil
}

func (imp *sceneImporter) csg(obj SceneObject, offset models.Vector3, override *models.Material) error {
	if len(obj.Children) == 0 {
		return nil
	}

	switch obj.Operation {
	case "union":
		for _, child := range obj.Children {
			if err := imp.visit(child, offset, override); err != nil {
				return err
			}
		}
	case "difference":
		if err := imp.visit(obj.Children[0], offset, override); err != nil {
			return err
		}
		vacuum := models.Vacuum()
		for _, child := range obj.Children[1:] {
			if err := imp.visit(child, offset, &vacuum); err != nil {
				return err
			}
		}
	case "intersect":
		log.Warn().Str("object", obj.Name).Msg("CSG intersection not supported, keeping first child only")
		return imp.visit(obj.Children[0], offset, override)
	default:
		log.Warn().Str("object", obj.Name).Str("operation", obj.Operation).Msg("Unknown CSG operation, skipping")
	}
	return nil
}

func (imp *sceneImporter) primitive(obj SceneObject, center models.Vector3, override *models.Material) error {
	if obj.Params == nil {
		log.Warn().Str("object", obj.Name).Msg("Primitive without params, skipping")
		return nil
	}

	mat := models.Vacuum()
	if obj.Material != nil {
		mat = ResolveMaterial(*obj.Material)
	}
	if override != nil {
		mat = *override
	}

	p := obj.Params
	c := imp.n.Vector(center)
	switch obj.Type {
	case "box":
		w := valueOr(p.W, 1)
		size := models.Vec(w, valueOr(p.D, w), valueOr(p.H, 1))
		return imp.seq.Append(Block(obj.Name, c, imp.n.Vector(size), mat))

	case "cylinder":
		return imp.seq.Append(Cylinder(obj.Name, c, imp.n.Length(valueOr(p.R, 1)), imp.n.Length(valueOr(p.H, 1)), mat))

	default: // ring
		outer := valueOr(p.OuterRadius, 1)
		inner := valueOr(p.InnerRadius, 0.5)
		h := valueOr(p.H, 1)
		if inner >= outer {
			return fmt.Errorf("%w: ring %q has inner radius %g >= outer radius %g", models.ErrInvalidGeometry, obj.Name, inner, outer)
		}
		return imp.seq.Append(
			Cylinder(obj.Name, c, imp.n.Length(outer), imp.n.Length(h), mat),
			Cylinder(obj.Name+"_bore", c, imp.n.Length(inner), imp.n.Length(h+imp.cutMargin), models.Vacuum()),
		)
	}
}

func (imp *sceneImporter) translation(obj SceneObject) models.Vector3 {
	var t models.Vector3
	for _, op := range obj.Ops {
		switch op.Op {
		case "translate":
			t = t.Add(models.Vec(op.X, op.Y, op.Z))
		default:
			log.Warn().Str("object", obj.Name).Str("op", op.Op).Msg("Transform ignored, only translate is supported")
		}
	}
	return t
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
