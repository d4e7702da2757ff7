package plot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/bridgesim/internal/archive"
)

func TestNew_Unavailable(t *testing.T) {
	_, err := New("bridgesim-no-such-plotter")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestPrepare(t *testing.T) {
	dir := t.TempDir()
	a := &archive.Archive{
		FrequencyGHz: []float64{1, 5, 9},
		S11dB:        []float64{-20, -3, -25},
		S21dB:        []float64{-1, -15, -2},
		Time:         []float64{0, 1, 2, 3},
		Fields:       map[string][]float64{"gap_ez": {1, 0, -1, 0}},
	}

	script, images, err := Prepare(dir, a)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "plots.gp"), script)
	assert.Equal(t, []string{
		filepath.Join(dir, "sparams.png"),
		filepath.Join(dir, "trace_gap_ez.png"),
		filepath.Join(dir, "spectrum_gap_ez.png"),
	}, images)

	body, err := os.ReadFile(script)
	require.NoError(t, err)
	assert.Contains(t, string(body), `plot "sparams.dat"`)

	data, err := os.ReadFile(filepath.Join(dir, "sparams.dat"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "5 -3 -15", lines[2])

	_, err = os.Stat(filepath.Join(dir, "spectrum_gap_ez.dat"))
	assert.NoError(t, err)
}
