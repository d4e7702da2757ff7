package sampler

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/RMahshie/bridgesim/pkg/models"
)

// Spectrum returns the one-sided amplitude spectrum of a uniformly sampled
// trace. The sample spacing is taken from the first two time points.
func Spectrum(ts models.TimeSeries) ([]float64, []float64) {
	n := len(ts.Value)
	if n < 2 || len(ts.Time) != n {
		return nil, nil
	}
	dt := ts.Time[1] - ts.Time[0]
	if dt <= 0 {
		return nil, nil
	}

	coeffs := fft.FFTReal(ts.Value)
	half := n/2 + 1
	freqs := make([]float64, half)
	mags := make([]float64, half)
	for k := 0; k < half; k++ {
		freqs[k] = float64(k) / (float64(n) * dt)
		scale := 2.0
		if k == 0 || (n%2 == 0 && k == n/2) {
			scale = 1
		}
		mags[k] = scale * cmplx.Abs(coeffs[k]) / float64(n)
	}
	return freqs, mags
}
