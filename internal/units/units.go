// Package units converts CAD lengths and physical frequencies into the solver's
// normalized unit system, where the speed of light is one internal length unit
// per internal time unit.
package units

import (
	"fmt"
	"math"
	"strings"

	"github.com/RMahshie/bridgesim/pkg/models"
)

// SpeedOfLight in m/s
const SpeedOfLight = 299792458.0

// LengthUnit is a metric length unit
type LengthUnit int

const (
	Meter LengthUnit = iota
	Millimeter
	Micrometer
	Nanometer
)

// exponent is the power of ten of the unit in meters
func (u LengthUnit) exponent() int {
	switch u {
	case Millimeter:
		return -3
	case Micrometer:
		return -6
	case Nanometer:
		return -9
	default:
		return 0
	}
}

// Meters returns the size of one unit in meters
func (u LengthUnit) Meters() float64 {
	return math.Pow10(u.exponent())
}

// ScaleTo returns the factor converting values in u to values in target.
// Powers of ten are exact, so mm to um is exactly 1000.
func (u LengthUnit) ScaleTo(target LengthUnit) float64 {
	return math.Pow10(u.exponent() - target.exponent())
}

func (u LengthUnit) String() string {
	switch u {
	case Millimeter:
		return "mm"
	case Micrometer:
		return "um"
	case Nanometer:
		return "nm"
	default:
		return "m"
	}
}

// ParseLengthUnit accepts the usual spellings of m, mm, um and nm
func ParseLengthUnit(s string) (LengthUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "meter", "meters":
		return Meter, nil
	case "mm", "millimeter", "millimeters":
		return Millimeter, nil
	case "um", "µm", "micrometer", "micrometers", "micron":
		return Micrometer, nil
	case "nm", "nanometer", "nanometers":
		return Nanometer, nil
	}
	return Meter, fmt.Errorf("unknown length unit %q (use m, mm, um or nm)", s)
}

// Normalize converts a source-unit value into internal units
func Normalize(v, scale float64) float64 {
	return v * scale
}

// Denormalize is the inverse of Normalize
func Denormalize(v, scale float64) float64 {
	return v / scale
}

// Normalizer carries the one scale factor in force for a run
type Normalizer struct {
	source   LengthUnit
	internal LengthUnit
	scale    float64
}

// NewNormalizer builds a normalizer from the CAD unit to the solver unit
func NewNormalizer(source, internal LengthUnit) Normalizer {
	return Normalizer{source: source, internal: internal, scale: source.ScaleTo(internal)}
}

func (n Normalizer) Source() LengthUnit   { return n.source }
func (n Normalizer) Internal() LengthUnit { return n.internal }
func (n Normalizer) Scale() float64       { return n.scale }

// Length converts a source-unit length to internal units
func (n Normalizer) Length(v float64) float64 {
	return Normalize(v, n.scale)
}

// LengthInverse converts an internal length back to source units
func (n Normalizer) LengthInverse(v float64) float64 {
	return Denormalize(v, n.scale)
}

// Vector scales every coordinate of v
func (n Normalizer) Vector(v models.Vector3) models.Vector3 {
	return v.Scale(n.scale)
}

// frequencyUnit is c / internal length unit, in Hz
func (n Normalizer) frequencyUnit() float64 {
	return SpeedOfLight / n.internal.Meters()
}

// Frequency converts a physical frequency in Hz to internal units
func (n Normalizer) Frequency(hz float64) float64 {
	return hz / n.frequencyUnit()
}

// FrequencyInverse converts an internal frequency back to Hz
func (n Normalizer) FrequencyInverse(f float64) float64 {
	return f * n.frequencyUnit()
}

// FrequencyGHz converts GHz to internal units
func (n Normalizer) FrequencyGHz(ghz float64) float64 {
	return n.Frequency(ghz * 1e9)
}

// ToGHz converts an internal frequency to GHz
func (n Normalizer) ToGHz(f float64) float64 {
	return n.FrequencyInverse(f) / 1e9
}
