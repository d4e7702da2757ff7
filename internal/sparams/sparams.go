// Package sparams turns incident, reflected and transmitted flux spectra into
// calibrated scattering parameters.
package sparams

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/RMahshie/bridgesim/pkg/models"
)

// DefaultFloorDB is reported for bins with no incident power or a zero ratio
const DefaultFloorDB = -100.0

// Result holds per-bin power ratios and their dB values on the shared grid
type Result struct {
	Frequencies []float64 `json:"frequencies"`
	S11         []float64 `json:"s11"`
	S21         []float64 `json:"s21"`
	S11dB       []float64 `json:"s11_db"`
	S21dB       []float64 `json:"s21_db"`
}

// Compute returns S11 = -R/I and S21 = T/I per bin with dB = 10*log10(|S|).
//
// A bin with I = 0 gets S11 = S21 = 0, and any zero ratio reports floorDB.
// All four arrays must have the same length, otherwise ErrMonitorGridMismatch.
func Compute(freqs, incident, reflected, transmitted []float64, floorDB float64) (*Result, error) {
	n := len(incident)
	if len(reflected) != n || len(transmitted) != n || len(freqs) != n {
		return nil, fmt.Errorf("%w: frequencies=%d incident=%d reflected=%d transmitted=%d",
			models.ErrMonitorGridMismatch, len(freqs), n, len(reflected), len(transmitted))
	}

	res := &Result{
		Frequencies: append([]float64(nil), freqs...),
		S11:         make([]float64, n),
		S21:         make([]float64, n),
		S11dB:       make([]float64, n),
		S21dB:       make([]float64, n),
	}
	for k := 0; k < n; k++ {
		if incident[k] != 0 {
			res.S11[k] = -reflected[k] / incident[k]
			res.S21[k] = transmitted[k] / incident[k]
		}
		res.S11dB[k] = ToDB(res.S11[k], floorDB)
		res.S21dB[k] = ToDB(res.S21[k], floorDB)
	}
	return res, nil
}

// FromSpectra checks that the three spectra share one frequency grid and computes
func FromSpectra(incident, reflected, transmitted models.FluxSpectrum, floorDB float64) (*Result, error) {
	for _, s := range []models.FluxSpectrum{reflected, transmitted} {
		if len(s.Frequencies) != len(incident.Frequencies) {
			return nil, fmt.Errorf("%w: %s has %d bins, %s has %d",
				models.ErrMonitorGridMismatch, incident.Monitor, len(incident.Frequencies), s.Monitor, len(s.Frequencies))
		}
		for i := range s.Frequencies {
			if s.Frequencies[i] != incident.Frequencies[i] {
				return nil, fmt.Errorf("%w: bin %d differs between %s and %s",
					models.ErrMonitorGridMismatch, i, incident.Monitor, s.Monitor)
			}
		}
	}
	return Compute(incident.Frequencies, incident.Flux, reflected.Flux, transmitted.Flux, floorDB)
}

// ToDB is 10*log10(|s|), or floorDB when s is zero or not finite
func ToDB(s, floorDB float64) float64 {
	a := math.Abs(s)
	if a == 0 || math.IsNaN(a) || math.IsInf(a, 0) {
		return floorDB
	}
	return 10 * math.Log10(a)
}

// Points pairs each bin with its dB values, converting frequencies with toGHz
func (r *Result) Points(toGHz func(float64) float64) []models.SParameterPoint {
	out := make([]models.SParameterPoint, len(r.Frequencies))
	for i, f := range r.Frequencies {
		out[i] = models.SParameterPoint{FrequencyGHz: toGHz(f), S11dB: r.S11dB[i], S21dB: r.S21dB[i]}
	}
	return out
}

// Min returns the bin with the lowest S21 dB, the resonance dip
func (r *Result) Min() (int, bool) {
	if len(r.S21dB) == 0 {
		return 0, false
	}
	return floats.MinIdx(r.S21dB), true
}
