// Package excitation builds source descriptors for the solver.
package excitation

import (
	"github.com/RMahshie/bridgesim/pkg/models"
)

// Placement is where a source sits. A zero Size is a point source; a Size with
// one zero extent is a plane source.
type Placement struct {
	Center models.Vector3
	Size   models.Vector3
}

// Gaussian returns a gaussian pulse centered on fcen with spectral width fwidth.
// Frequencies are in solver units. Covering every flux grid is the caller's job,
// see Covers.
func Gaussian(fcen, fwidth float64, component models.Component, at Placement) models.Source {
	return models.Source{
		Kind:            models.SourceGaussian,
		FrequencyCenter: fcen,
		FrequencyWidth:  fwidth,
		Component:       component,
		Center:          at.Center,
		Size:            at.Size,
	}
}

// Continuous returns a single-frequency source
func Continuous(f float64, component models.Component, at Placement) models.Source {
	return models.Source{
		Kind:            models.SourceContinuous,
		FrequencyCenter: f,
		Component:       component,
		Center:          at.Center,
		Size:            at.Size,
	}
}

// Covers reports whether the source spectrum, taken as
// [FrequencyCenter-FrequencyWidth, FrequencyCenter+FrequencyWidth], spans the
// whole grid
func Covers(src models.Source, grid models.FrequencyGrid) bool {
	freqs := grid.Frequencies()
	if len(freqs) == 0 {
		return true
	}
	if src.Kind == models.SourceContinuous {
		return len(freqs) == 1 && freqs[0] == src.FrequencyCenter
	}
	lo := src.FrequencyCenter - src.FrequencyWidth
	hi := src.FrequencyCenter + src.FrequencyWidth
	return freqs[0] >= lo && freqs[len(freqs)-1] <= hi
}
