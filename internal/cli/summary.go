package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/RMahshie/bridgesim/internal/archive"
	"github.com/RMahshie/bridgesim/internal/pipeline"
)

// Theme holds the color scheme for the run summary.
type Theme struct {
	Title   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Hint    lipgloss.Color
}

var defaultTheme = Theme{
	Title:   lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Warning: lipgloss.Color("#FFAF00"), // amber
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Title).Bold(true)
}

func (t Theme) successStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) warningStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Warning).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// Summary describes a finished run
type Summary struct {
	Label            string
	ArchivePath      string
	Bins             int
	TraceLength      int
	IncidentEndTime  float64
	ScatteredEndTime float64
	NonConvergent    bool

	// resonance dip of S21, valid when HasDip is set
	HasDip   bool
	DipGHz   float64
	DipS21dB float64
	DipS11dB float64

	Images []string
	theme  Theme
}

func newSummary(label, path string, arc *archive.Archive, res *pipeline.Result) *Summary {
	s := &Summary{
		Label:            label,
		ArchivePath:      path,
		Bins:             len(arc.FrequencyGHz),
		TraceLength:      len(arc.Time),
		IncidentEndTime:  res.Incident.EndTime,
		ScatteredEndTime: res.Scattered.EndTime,
		NonConvergent:    res.NonConvergent,
		theme:            defaultTheme,
	}
	if i, ok := res.SParams.Min(); ok {
		s.HasDip = true
		s.DipGHz = arc.FrequencyGHz[i]
		s.DipS21dB = arc.S21dB[i]
		s.DipS11dB = arc.S11dB[i]
	}
	return s
}

// Render formats the summary for a terminal
func (s *Summary) Render() string {
	var b strings.Builder

	b.WriteString(s.theme.titleStyle().Render("bridgesim "+s.Label) + "\n")
	if s.NonConvergent {
		b.WriteString(s.theme.warningStyle().Render("! Fields did not decay before the time ceiling") + "\n\n")
	} else {
		b.WriteString(s.theme.successStyle().Render("✓ Completed") + "\n\n")
	}

	fmt.Fprintf(&b, "  Archive:           %s\n", s.ArchivePath)
	fmt.Fprintf(&b, "  Frequency bins:    %d\n", s.Bins)
	fmt.Fprintf(&b, "  Trace samples:     %d\n", s.TraceLength)
	fmt.Fprintf(&b, "  Reference end:     %.6g\n", s.IncidentEndTime)
	fmt.Fprintf(&b, "  Scattered end:     %.6g\n", s.ScatteredEndTime)
	if s.HasDip {
		fmt.Fprintf(&b, "  S21 minimum:       %.2f dB at %.3f GHz (S11 %.2f dB)\n", s.DipS21dB, s.DipGHz, s.DipS11dB)
	}
	for _, img := range s.Images {
		fmt.Fprintf(&b, "  Plot:              %s\n", img)
	}
	if len(s.Images) == 0 {
		b.WriteString("\n" + s.theme.hintStyle().Render("Use --plot to render S-parameter panels with gnuplot") + "\n")
	}
	return b.String()
}
