// Package archive writes the result arrays of a run to a single file.
package archive

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/RMahshie/bridgesim/internal/pipeline"
)

// Array keys. Probe traces are stored under FieldPrefix + probe name.
const (
	KeyFrequency = "freqs_ghz"
	KeyS11       = "s11_db"
	KeyS21       = "s21_db"
	KeyTime      = "field_t"
	FieldPrefix  = "field_"
)

type Format string

const (
	FormatNPZ  Format = "npz"
	FormatXLSX Format = "xlsx"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatNPZ, "":
		return FormatNPZ, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unknown archive format %q (use npz or xlsx)", s)
}

// Filename is the archive file name inside a run directory
func (f Format) Filename() string {
	return "results." + string(f)
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/zip"
}

// Archive holds two groups of arrays: the frequency group (FrequencyGHz, S11dB,
// S21dB) and the time group (Time and every entry of Fields). Arrays within a
// group share one length.
type Archive struct {
	Label         string
	FrequencyGHz  []float64
	S11dB         []float64
	S21dB         []float64
	Time          []float64
	Fields        map[string][]float64
	NonConvergent bool
}

// FromResult collects the S-parameters and the scattered-run probe traces.
// toGHz converts solver frequencies to GHz.
func FromResult(label string, res *pipeline.Result, toGHz func(float64) float64) *Archive {
	a := &Archive{
		Label:         label,
		FrequencyGHz:  make([]float64, len(res.SParams.Frequencies)),
		S11dB:         append([]float64(nil), res.SParams.S11dB...),
		S21dB:         append([]float64(nil), res.SParams.S21dB...),
		Fields:        make(map[string][]float64),
		NonConvergent: res.NonConvergent,
	}
	for i, f := range res.SParams.Frequencies {
		a.FrequencyGHz[i] = toGHz(f)
	}

	if res.Scattered != nil {
		for _, name := range sortedKeys(res.Scattered.Traces) {
			ts := res.Scattered.Traces[name]
			if a.Time == nil {
				a.Time = append([]float64(nil), ts.Time...)
			}
			a.Fields[name] = append([]float64(nil), ts.Value...)
		}
	}
	if a.Time == nil {
		a.Time = []float64{}
	}
	return a
}

// Validate checks the per-group length invariant
func (a *Archive) Validate() error {
	n := len(a.FrequencyGHz)
	if len(a.S11dB) != n || len(a.S21dB) != n {
		return fmt.Errorf("frequency arrays differ in length: %s=%d %s=%d %s=%d",
			KeyFrequency, n, KeyS11, len(a.S11dB), KeyS21, len(a.S21dB))
	}
	for name, v := range a.Fields {
		if len(v) != len(a.Time) {
			return fmt.Errorf("time arrays differ in length: %s=%d %s%s=%d",
				KeyTime, len(a.Time), FieldPrefix, name, len(v))
		}
	}
	return nil
}

// FieldNames returns probe names in sorted order
func (a *Archive) FieldNames() []string {
	return sortedKeys(a.Fields)
}

// Write validates a and writes it into dir, returning the file path
func Write(dir string, a *Archive, format Format) (string, error) {
	if err := a.Validate(); err != nil {
		return "", err
	}
	path := filepath.Join(dir, format.Filename())

	var err error
	switch format {
	case FormatXLSX:
		err = WriteXLSX(path, a)
	default:
		err = WriteNPZ(path, a)
	}
	if err != nil {
		return "", err
	}
	return path, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
