package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/RMahshie/bridgesim/internal/archive"
	"github.com/RMahshie/bridgesim/internal/pipeline"
	"github.com/RMahshie/bridgesim/internal/plot"
	"github.com/RMahshie/bridgesim/internal/setup"
	"github.com/RMahshie/bridgesim/internal/solver"
	"github.com/RMahshie/bridgesim/pkg/models"
)

// runOptions holds the flags of the run command
type runOptions struct {
	Output     string
	Resolution float64
	Plot       bool
	FreqCenter float64
	FreqWidth  float64
	Solver     string
	SolverCmd  string
	SolverArgs []string
	Parts      string
	Scene      string
	Format     string
	FloorDB    *float64
	MaxTime    float64
	Label      string
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the reference and scattered passes and write the result archive",
	Long: `Run builds the resonator geometry, runs an empty-cell reference pass and a
scattered pass with the incident flux subtracted, and writes S11/S21 in dB and
the gap field trace into a timestamped directory under --output.

Examples:
  bridgesim run
  bridgesim run --freq-center 6 --freq-width 3 --resolution 0.1
  bridgesim run --parts resonator.yaml --format xlsx --plot
  bridgesim run --solver process --solver-cmd python3 --solver-arg driver.py`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		opts := runOpts
		opts.FloorDB = floorOverride(cmd)
		_, err := runStudy(ctx, opts, cmd.OutOrStdout(), time.Now())
		return err
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runOpts.Output, "output", "o", "output", "base output directory")
	f.Float64Var(&runOpts.Resolution, "resolution", 0, "pixels per solver length unit (default 0.05)")
	f.BoolVar(&runOpts.Plot, "plot", false, "render plots with gnuplot when available")
	f.Float64Var(&runOpts.FreqCenter, "freq-center", 0, "center frequency in GHz (default 5)")
	f.Float64Var(&runOpts.FreqWidth, "freq-width", 0, "frequency width in GHz (default 4)")
	f.StringVar(&runOpts.Solver, "solver", "synthetic", "field solver: synthetic or process")
	f.StringVar(&runOpts.SolverCmd, "solver-cmd", "", "driver command for the process solver")
	f.StringArrayVar(&runOpts.SolverArgs, "solver-arg", nil, "driver argument, repeatable")
	f.StringVar(&runOpts.Parts, "parts", "", "YAML part file replacing the built-in resonator")
	f.StringVar(&runOpts.Scene, "scene", "", "JSON CAD scene replacing the built-in resonator")
	f.StringVar(&runOpts.Format, "format", "npz", "archive format: npz or xlsx")
	f.Float64("floor-db", 0, "dB value for bins without flux (default -100)")
	f.Float64Var(&runOpts.MaxTime, "max-time", 0, "time ceiling in solver units (default 1e5)")
	f.StringVar(&runOpts.Label, "label", "bgr", "run label")
}

// floorOverride returns the --floor-db value only when the flag was given, so
// an explicit 0 dB floor is kept
func floorOverride(cmd *cobra.Command) *float64 {
	if !cmd.Flags().Changed("floor-db") {
		return nil
	}
	v, err := cmd.Flags().GetFloat64("floor-db")
	if err != nil {
		return nil
	}
	return &v
}

// outputDir returns the timestamped run directory under base
func outputDir(base string, now time.Time) string {
	return filepath.Join(base, "bgr_"+now.Format("20060102_150405"))
}

func newSolver(kind, command string, args []string) (solver.Solver, error) {
	switch kind {
	case "", "synthetic":
		return solver.NewSynthetic(), nil
	case "process":
		if command == "" {
			return nil, fmt.Errorf("the process solver needs --solver-cmd")
		}
		return solver.NewProcess(command, args...), nil
	default:
		return nil, fmt.Errorf("unknown solver %q", kind)
	}
}

func runStudy(ctx context.Context, opts runOptions, out io.Writer, now time.Time) (*Summary, error) {
	format, err := archive.ParseFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	s, err := newSolver(opts.Solver, opts.SolverCmd, opts.SolverArgs)
	if err != nil {
		return nil, err
	}

	setupOpts := []setup.Option{setup.WithLabel(opts.Label)}
	if opts.Parts != "" {
		f, err := os.Open(opts.Parts)
		if err != nil {
			return nil, fmt.Errorf("open part file: %w", err)
		}
		defer f.Close()
		setupOpts = append(setupOpts, setup.WithParts(f))
	}
	if opts.Scene != "" {
		f, err := os.Open(opts.Scene)
		if err != nil {
			return nil, fmt.Errorf("open scene: %w", err)
		}
		defer f.Close()
		setupOpts = append(setupOpts, setup.WithScene(f))
	}

	study, err := setup.Build(models.RunParams{
		Resolution:    opts.Resolution,
		FreqCenterGHz: opts.FreqCenter,
		FreqWidthGHz:  opts.FreqWidth,
		FloorDB:       opts.FloorDB,
		MaxTime:       opts.MaxTime,
	}, setupOpts...)
	if err != nil {
		return nil, err
	}

	dir := outputDir(opts.Output, now)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	log.Info().
		Str("label", opts.Label).
		Str("dir", dir).
		Float64("resolution", study.Params.Resolution).
		Float64("freq_center_ghz", study.Params.FreqCenterGHz).
		Float64("freq_width_ghz", study.Params.FreqWidthGHz).
		Msg("Starting run")

	res, err := pipeline.NewRunner(s).Run(ctx, study.Plan)
	if err != nil {
		return nil, err
	}

	arc := archive.FromResult(opts.Label, res, study.Normalizer.ToGHz)
	path, err := archive.Write(dir, arc, format)
	if err != nil {
		return nil, fmt.Errorf("write archive: %w", err)
	}

	summary := newSummary(opts.Label, path, arc, res)
	if opts.Plot {
		summary.Images = renderPlots(ctx, dir, arc)
	}

	fmt.Fprint(out, summary.Render())
	return summary, nil
}

// renderPlots degrades every plotting failure to a warning
func renderPlots(ctx context.Context, dir string, arc *archive.Archive) []string {
	p, err := plot.New("")
	if err != nil {
		if errors.Is(err, plot.ErrUnavailable) {
			log.Warn().Msg("gnuplot not found, skipping plots")
		} else {
			log.Warn().Err(err).Msg("Skipping plots")
		}
		return nil
	}
	images, err := p.Render(ctx, dir, arc)
	if err != nil {
		log.Warn().Err(err).Msg("Plot rendering failed")
		return nil
	}
	return images
}
