// Package geometry expands part descriptions into the ordered primitive list
// handed to the solver.
//
// The solver composites primitives by last-write-wins: at every sampled point the
// material of the last primitive containing that point is used. A Sequence makes
// that ordering explicit. Cut-outs (a vacuum cylinder hollowing a tube, the
// subtracted children of a CSG difference) must be appended after the solid they
// remove material from.
package geometry

import (
	"github.com/RMahshie/bridgesim/pkg/models"
)

// Sequence is an append-only, ordered list of validated primitives. Where
// primitives overlap, the one appended later takes priority.
type Sequence struct {
	items []models.Primitive
}

// NewSequence returns a sequence holding ps in order
func NewSequence(ps ...models.Primitive) (*Sequence, error) {
	s := &Sequence{}
	if err := s.Append(ps...); err != nil {
		return nil, err
	}
	return s, nil
}

// Append validates every primitive and appends them in order. Nothing is
// appended if any of them is invalid.
func (s *Sequence) Append(ps ...models.Primitive) error {
	for _, p := range ps {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	s.items = append(s.items, ps...)
	return nil
}

// Len returns the number of primitives
func (s *Sequence) Len() int {
	return len(s.items)
}

// Primitives returns a copy in compositing order
func (s *Sequence) Primitives() []models.Primitive {
	out := make([]models.Primitive, len(s.items))
	copy(out, s.items)
	return out
}

// MaterialAt resolves the material at pt the way the solver does: the last
// primitive containing pt wins, background if none does.
func (s *Sequence) MaterialAt(pt models.Vector3, background models.Material) models.Material {
	for i := len(s.items) - 1; i >= 0; i-- {
		if s.items[i].Contains(pt) {
			return s.items[i].Material
		}
	}
	return background
}

// Bounds returns the bounding box of all primitives; ok is false when empty
func (s *Sequence) Bounds() (lo, hi models.Vector3, ok bool) {
	for i, p := range s.items {
		pl, ph := p.Bounds()
		if i == 0 {
			lo, hi = pl, ph
			continue
		}
		lo = models.Vec(min(lo.X, pl.X), min(lo.Y, pl.Y), min(lo.Z, pl.Z))
		hi = models.Vec(max(hi.X, ph.X), max(hi.Y, ph.Y), max(hi.Z, ph.Z))
	}
	return lo, hi, len(s.items) > 0
}
