// Package main provides the CLI entry point for rdsweep.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/rdsweep"
	"github.com/five82/rdsweep/internal/config"
	"github.com/five82/rdsweep/internal/errors"
	"github.com/five82/rdsweep/internal/grid"
	"github.com/five82/rdsweep/internal/logging"
	"github.com/five82/rdsweep/internal/reporter"
	"github.com/five82/rdsweep/internal/util"
)

const (
	appName    = "rdsweep"
	appVersion = "0.1.0"
)

// sweepArgs holds the parsed arguments for the sweep command.
type sweepArgs struct {
	configPath    string
	source        string
	outputDir     string
	workDir       string
	logDir        string
	resolutions   []string
	bitrateMin    int
	bitrateMax    int
	bitrateStep   int
	scorers       string
	retention     string
	codec         string
	preset        string
	encodeTimeout time.Duration
	metricsFile   string
	dbURL         string
	sweepID       string
	jsonOutput    bool
	verbose       bool
	noLog         bool
}

func main() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Rate-distortion sweep: encode a video over a resolution x bitrate grid and score every encode",
		Version:       appVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)
	root.AddCommand(newSweepCmd(), newReportCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, appVersion)
		},
	}
}

func newSweepCmd() *cobra.Command {
	var sa sweepArgs

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run a rate-distortion sweep",
		Long: `Encode the source at every (resolution, bitrate) cell, score each encode
against the source with PSNR and/or SSIM, and write the mean score per cell.

Settings are read from --config (TOML), then RDSWEEP_<KEY> environment
variables, then command-line flags, each overriding the previous.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, sa)
		},
	}

	bindSweepFlags(cmd, &sa)
	return cmd
}

func bindSweepFlags(cmd *cobra.Command, sa *sweepArgs) {
	f := cmd.Flags()
	f.StringVarP(&sa.configPath, "config", "c", "", "TOML config file")
	f.StringVarP(&sa.source, "source", "i", config.DefaultSourcePath, "Reference video to sweep")
	f.StringVarP(&sa.outputDir, "output-dir", "o", ".", "Directory for result files")
	f.StringVar(&sa.workDir, "work-dir", "", "Directory for encoded artifacts (defaults to --output-dir)")
	f.StringVarP(&sa.logDir, "log-dir", "l", "", "Log directory (defaults to OUTPUT/logs)")
	f.StringSliceVar(&sa.resolutions, "resolutions", config.DefaultResolutions, "Resolutions to sweep, <W>x<H>")
	f.IntVar(&sa.bitrateMin, "bitrate-min", config.DefaultBitrateMin, "Lowest bitrate in kbps")
	f.IntVar(&sa.bitrateMax, "bitrate-max", config.DefaultBitrateMax, "Highest bitrate in kbps (inclusive)")
	f.IntVar(&sa.bitrateStep, "bitrate-step", config.DefaultBitrateStep, "Bitrate step in kbps")
	f.StringVar(&sa.scorers, "scorers", config.ScorerSSIM, "Comma-separated scorers: psnr, ssim")
	f.StringVar(&sa.retention, "retention", string(config.RetentionAuto), "Artifact retention: auto, keep, delete")
	f.StringVar(&sa.codec, "codec", config.DefaultCodec, "ffmpeg video codec")
	f.StringVar(&sa.preset, "preset", config.DefaultPreset, "Encoder preset")
	f.DurationVar(&sa.encodeTimeout, "encode-timeout", 0, "Per-cell encode timeout, 0 waits indefinitely")
	f.StringVar(&sa.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after each cell")
	f.StringVar(&sa.dbURL, "db", "", "PostgreSQL connection string for persisting results")
	f.StringVar(&sa.sweepID, "sweep-id", "", "Sweep id for persisted results (defaults to <source>-<timestamp>)")
	f.BoolVar(&sa.jsonOutput, "json", false, "Emit NDJSON progress events on stdout")
	f.BoolVarP(&sa.verbose, "verbose", "v", false, "Enable verbose output for troubleshooting")
	f.BoolVar(&sa.noLog, "no-log", false, "Disable log file creation")
}

func newReportCmd() *cobra.Command {
	var sa sweepArgs

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Rewrite the result files of a sweep stored in PostgreSQL",
		Long: `Load the cells of --sweep-id from --db and write the PSNR log, SSIM grid and
JSON snapshot to --output-dir. The grid and scorer flags select which stored
cells and columns are reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, sa)
		},
	}

	bindSweepFlags(cmd, &sa)
	return cmd
}

// buildConfig layers the TOML file and environment under explicitly set flags.
func buildConfig(cmd *cobra.Command, sa sweepArgs) (*config.Config, error) {
	cfg := config.NewConfig(sa.source, sa.outputDir, sa.logDir)
	cfg.WorkDir = sa.workDir
	cfg.Codec = sa.codec
	cfg.Preset = sa.preset
	cfg.MetricsFile = sa.metricsFile
	cfg.DatabaseURL = sa.dbURL
	cfg.SweepID = sa.sweepID

	var err error
	if cfg.Resolutions, err = grid.ParseResolutions(sa.resolutions); err != nil {
		return nil, err
	}
	if cfg.Bitrates, err = grid.BitrateRange(sa.bitrateMin, sa.bitrateMax, sa.bitrateStep); err != nil {
		return nil, err
	}
	if cfg.Scorers, err = config.ParseScorers(sa.scorers); err != nil {
		return nil, err
	}
	if cfg.Retention, err = config.ParseRetention(sa.retention); err != nil {
		return nil, err
	}
	cfg.EncodeTimeout = sa.encodeTimeout

	if err := config.Load(cfg, sa.configPath, cmd.Flags()); err != nil {
		return nil, err
	}

	// The range flags have no file/env key of their own; they override "bitrates".
	fs := cmd.Flags()
	if fs.Changed("bitrate-min") || fs.Changed("bitrate-max") || fs.Changed("bitrate-step") {
		if cfg.Bitrates, err = grid.BitrateRange(sa.bitrateMin, sa.bitrateMax, sa.bitrateStep); err != nil {
			return nil, err
		}
	}

	if cfg.LogDir == "" {
		cfg.LogDir = filepath.Join(cfg.OutputDir, "logs")
	}
	return cfg, cfg.Validate()
}

func runSweep(cmd *cobra.Command, sa sweepArgs) error {
	cfg, err := buildConfig(cmd, sa)
	if err != nil {
		return err
	}

	// Fail fast before any encoding if the source is absent
	if util.DirectoryExists(cfg.SourcePath) {
		return errors.NewConfigError(fmt.Sprintf("source %s is a directory, expected a video file", cfg.SourcePath))
	}
	if !util.FileExists(cfg.SourcePath) {
		return errors.NewSourceNotFoundError(cfg.SourcePath)
	}
	if !sa.jsonOutput {
		fmt.Printf("File exists: %s\n", cfg.SourcePath)
		fmt.Printf("Absolute path: %s\n", util.AbsPath(cfg.SourcePath))
	}

	if err := util.EnsureDirectory(cfg.OutputDir); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Setup file logging
	runLog, err := logging.Setup(cfg.LogDir, sa.verbose, sa.noLog)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer func() { _ = runLog.Close() }()
	logging.Info("Sweep configured",
		"source", cfg.SourcePath,
		"cells", cfg.TotalCells(),
		"scorers", cfg.Scorers,
		"retention", string(cfg.Retention))

	var rep reporter.Reporter
	if sa.jsonOutput {
		rep = reporter.NewJSONReporter()
	} else {
		rep = reporter.NewTerminalReporter()
	}
	if !sa.verbose {
		rep = quietReporter{rep}
	}

	sweeper, err := rdsweep.New(
		rdsweep.WithConfig(cfg),
		rdsweep.WithEncoderLog(runLog.Writer()),
	)
	if err != nil {
		return err
	}

	table, err := sweeper.Run(cmd.Context(), rep)
	if err != nil {
		if errors.IsCancelled(err) && table != nil {
			logging.Warn("Sweep interrupted", "recorded", table.Len(), "total", cfg.TotalCells())
			rep.Warning(fmt.Sprintf("Sweep interrupted after %d of %d cells; results so far are saved", table.Len(), cfg.TotalCells()))
			return err
		}
		rep.Error(reporter.ReporterError{
			Title:   "Sweep failed",
			Message: err.Error(),
			Context: cfg.SourcePath,
		})
		return err
	}

	logging.Info("Sweep complete", "recorded", table.Len(), "log", runLog.FilePath())
	return nil
}

func runReport(cmd *cobra.Command, sa sweepArgs) error {
	cfg, err := buildConfig(cmd, sa)
	if err != nil {
		return err
	}

	runLog, err := logging.Setup(cfg.LogDir, sa.verbose, sa.noLog)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer func() { _ = runLog.Close() }()

	sweeper, err := rdsweep.New(rdsweep.WithConfig(cfg))
	if err != nil {
		return err
	}
	table, err := sweeper.Report(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Sweep %s: %d of %d cells recorded\n", cfg.SweepID, table.Len(), cfg.TotalCells())
	fmt.Printf("Saved to %s\n", util.AbsPath(cfg.OutputDir))
	return nil
}

// quietReporter drops verbose messages.
type quietReporter struct {
	reporter.Reporter
}

func (quietReporter) Verbose(string) {}
