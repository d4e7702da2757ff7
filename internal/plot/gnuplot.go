// Package plot renders result panels with an external gnuplot binary.
package plot

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/bridgesim/internal/archive"
	"github.com/RMahshie/bridgesim/internal/sampler"
	"github.com/RMahshie/bridgesim/pkg/models"
)

// ErrUnavailable is returned when no gnuplot binary can be found. Callers treat
// it as a warning.
var ErrUnavailable = errors.New("gnuplot is not available")

type Plotter struct {
	binary string
}

// New locates binary on PATH; an empty name means "gnuplot"
func New(binary string) (*Plotter, error) {
	if binary == "" {
		binary = "gnuplot"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &Plotter{binary: path}, nil
}

// Render writes the data files and script into dir and runs gnuplot, returning
// the image paths
func (p *Plotter) Render(ctx context.Context, dir string, a *archive.Archive) ([]string, error) {
	script, images, err := Prepare(dir, a)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, p.binary, script)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("gnuplot failed: %w, output: %s", err, string(output))
	}

	log.Info().Str("dir", dir).Int("images", len(images)).Msg("Plots rendered")
	return images, nil
}

// Prepare writes the data files and the gnuplot script for a. It returns the
// script path and the images the script will produce.
func Prepare(dir string, a *archive.Archive) (string, []string, error) {
	var panels []string
	var images []string

	sp := filepath.Join(dir, "sparams.dat")
	if err := writeColumns(sp, "freq_ghz s11_db s21_db", a.FrequencyGHz, a.S11dB, a.S21dB); err != nil {
		return "", nil, err
	}
	panels = append(panels, `set output "sparams.png"
set title "S-parameters"
set xlabel "Frequency (GHz)"
set ylabel "dB"
plot "sparams.dat" using 1:2 with lines title "S11", "sparams.dat" using 1:3 with lines title "S21"
`)
	images = append(images, filepath.Join(dir, "sparams.png"))

	for _, name := range a.FieldNames() {
		values := a.Fields[name]
		trace := filepath.Join(dir, "trace_"+name+".dat")
		if err := writeColumns(trace, "t "+name, a.Time, values); err != nil {
			return "", nil, err
		}
		panels = append(panels, fmt.Sprintf(`set output "trace_%[1]s.png"
set title "Field trace %[1]s"
set xlabel "Time"
set ylabel "Field"
plot "trace_%[1]s.dat" using 1:2 with lines notitle
`, name))
		images = append(images, filepath.Join(dir, "trace_"+name+".png"))

		freqs, mags := sampler.Spectrum(models.TimeSeries{Time: a.Time, Value: values})
		if len(freqs) == 0 {
			continue
		}
		spec := filepath.Join(dir, "spectrum_"+name+".dat")
		if err := writeColumns(spec, "f magnitude", freqs, mags); err != nil {
			return "", nil, err
		}
		panels = append(panels, fmt.Sprintf(`set output "spectrum_%[1]s.png"
set title "Trace spectrum %[1]s"
set xlabel "Frequency (solver units)"
set ylabel "Magnitude"
set logscale y
plot "spectrum_%[1]s.dat" using 1:2 with lines notitle
unset logscale y
`, name))
		images = append(images, filepath.Join(dir, "spectrum_"+name+".png"))
	}

	script := filepath.Join(dir, "plots.gp")
	body := "set terminal pngcairo size 1000,600\nset grid\n" + strings.Join(panels, "")
	if err := os.WriteFile(script, []byte(body), 0644); err != nil {
		return "", nil, fmt.Errorf("failed to write plot script: %w", err)
	}
	return script, images, nil
}

func writeColumns(path, header string, cols ...[]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "# %s\n", header)
	rows := 0
	if len(cols) > 0 {
		rows = len(cols[0])
	}
	for r := 0; r < rows; r++ {
		for c, col := range cols {
			if c > 0 {
				w.WriteByte(' ')
			}
			fmt.Fprintf(w, "%g", col[r])
		}
		w.WriteByte('\n')
	}
	return w.Flush()
}
