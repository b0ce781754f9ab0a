// Package rdsweep provides a Go library for rate-distortion sweeps.
//
// A sweep re-encodes a reference video at every (resolution, bitrate) pair of
// a grid, scores each encode against the reference frame by frame with PSNR
// and/or SSIM, and records the mean score per cell in a result table.
//
// Basic usage:
//
//	sweeper, err := rdsweep.New(
//	    rdsweep.WithSource("1080_test.y4m"),
//	    rdsweep.WithResolutions("1280x720", "640x480"),
//	    rdsweep.WithBitrateRange(1000, 5000, 1000),
//	    rdsweep.WithScorers("psnr", "ssim"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	table, err := sweeper.Run(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, row := range table.Rows() {
//	    fmt.Println(row.Cell, row.Score("ssim").Mean)
//	}
package rdsweep

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/five82/rdsweep/internal/config"
	"github.com/five82/rdsweep/internal/decoder"
	"github.com/five82/rdsweep/internal/encoder"
	"github.com/five82/rdsweep/internal/errors"
	"github.com/five82/rdsweep/internal/ffmpeg"
	"github.com/five82/rdsweep/internal/ffprobe"
	"github.com/five82/rdsweep/internal/grid"
	"github.com/five82/rdsweep/internal/logging"
	"github.com/five82/rdsweep/internal/metric"
	"github.com/five82/rdsweep/internal/reporter"
	"github.com/five82/rdsweep/internal/results"
	"github.com/five82/rdsweep/internal/store"
	"github.com/five82/rdsweep/internal/sweep"
	"github.com/five82/rdsweep/internal/telemetry"
	"github.com/five82/rdsweep/internal/util"
	"github.com/five82/rdsweep/internal/validation"
)

// Re-export retention types
type Retention = config.Retention

const (
	RetentionAuto   = config.RetentionAuto
	RetentionKeep   = config.RetentionKeep
	RetentionDelete = config.RetentionDelete
)

// ParseRetention converts a retention string to a Retention value.
// Valid values are "auto", "keep", and "delete" (case-insensitive).
func ParseRetention(s string) (Retention, error) {
	return config.ParseRetention(s)
}

// Table is the result table of a sweep.
type Table = results.Table

// Reporter receives sweep progress events.
type Reporter = reporter.Reporter

// Sweeper is the main entry point for running sweeps.
type Sweeper struct {
	config *config.Config

	encoder    encoder.Encoder
	opener     decoder.Opener
	analyzer   validation.MediaAnalyzer
	encoderLog io.Writer

	err error
}

// Option configures the sweeper.
type Option func(*Sweeper)

// New creates a new Sweeper with the given options.
func New(opts ...Option) (*Sweeper, error) {
	s := &Sweeper{config: config.NewConfig(config.DefaultSourcePath, ".", ".")}

	for _, opt := range opts {
		opt(s)
	}
	if s.err != nil {
		return nil, s.err
	}

	if err := s.config.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// Config returns a copy of the effective configuration.
func (s *Sweeper) Config() config.Config {
	return *s.config
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Sweeper) {
		c := *cfg
		s.config = &c
	}
}

// WithSource sets the reference video.
func WithSource(path string) Option {
	return func(s *Sweeper) {
		s.config.SourcePath = path
	}
}

// WithOutputDir sets where result files are written.
func WithOutputDir(dir string) Option {
	return func(s *Sweeper) {
		s.config.OutputDir = dir
	}
}

// WithWorkDir sets where encoded artifacts are written. Defaults to the output directory.
func WithWorkDir(dir string) Option {
	return func(s *Sweeper) {
		s.config.WorkDir = dir
	}
}

// WithResolutions sets the resolution axis, e.g. "1280x720".
func WithResolutions(values ...string) Option {
	return func(s *Sweeper) {
		r, err := grid.ParseResolutions(values)
		if err != nil {
			s.err = err
			return
		}
		s.config.Resolutions = r
	}
}

// WithBitrates sets the bitrate axis, e.g. "1000k".
func WithBitrates(values ...string) Option {
	return func(s *Sweeper) {
		b, err := grid.ParseBitrates(values)
		if err != nil {
			s.err = err
			return
		}
		s.config.Bitrates = b
	}
}

// WithBitrateRange sets the bitrate axis to min..max kbps inclusive.
func WithBitrateRange(min, max, step int) Option {
	return func(s *Sweeper) {
		b, err := grid.BitrateRange(min, max, step)
		if err != nil {
			s.err = err
			return
		}
		s.config.Bitrates = b
	}
}

// WithScorers selects the active scorers ("psnr", "ssim").
func WithScorers(names ...string) Option {
	return func(s *Sweeper) {
		scorers, err := config.ParseScorers(strings.Join(names, ","))
		if err != nil {
			s.err = err
			return
		}
		s.config.Scorers = scorers
	}
}

// WithRetention sets the artifact retention policy.
func WithRetention(r Retention) Option {
	return func(s *Sweeper) {
		s.config.Retention = r
	}
}

// WithCodec sets the ffmpeg video codec.
func WithCodec(codec string) Option {
	return func(s *Sweeper) {
		s.config.Codec = codec
	}
}

// WithPreset sets the encoder preset.
func WithPreset(preset string) Option {
	return func(s *Sweeper) {
		s.config.Preset = preset
	}
}

// WithEncodeTimeout bounds each cell's encode. A timed-out cell is recorded as failed.
func WithEncodeTimeout(d time.Duration) Option {
	return func(s *Sweeper) {
		s.config.EncodeTimeout = d
	}
}

// WithMetricsFile exports Prometheus metrics to path after every cell.
func WithMetricsFile(path string) Option {
	return func(s *Sweeper) {
		s.config.MetricsFile = path
	}
}

// WithDatabase persists every cell to PostgreSQL under sweepID.
func WithDatabase(url, sweepID string) Option {
	return func(s *Sweeper) {
		s.config.DatabaseURL = url
		s.config.SweepID = sweepID
	}
}

// WithEncoderLog sends raw encoder stderr to w.
func WithEncoderLog(w io.Writer) Option {
	return func(s *Sweeper) {
		s.encoderLog = w
	}
}

// WithEncoder replaces the ffmpeg encoder.
func WithEncoder(e encoder.Encoder) Option {
	return func(s *Sweeper) {
		s.encoder = e
	}
}

// WithDecoder replaces the frame source opener. It opens both the reference
// and every candidate.
func WithDecoder(o decoder.Opener) Option {
	return func(s *Sweeper) {
		s.opener = o
	}
}

// WithAnalyzer enables artifact validation with a custom analyzer.
func WithAnalyzer(a validation.MediaAnalyzer) Option {
	return func(s *Sweeper) {
		s.analyzer = a
	}
}

// Run executes the sweep. It fails before any encode if the source is
// missing. Result files are flushed after every cell, so an interrupted or
// cancelled sweep leaves the recorded prefix readable; the returned table
// then holds that prefix alongside a Cancelled error.
func (s *Sweeper) Run(ctx context.Context, rep Reporter) (*Table, error) {
	cfg := s.config
	if rep == nil {
		rep = reporter.NullReporter{}
	}
	startTime := time.Now()

	if !util.FileExists(cfg.SourcePath) {
		return nil, errors.NewSourceNotFoundError(cfg.SourcePath)
	}

	if host, err := os.Hostname(); err == nil {
		rep.Hardware(reporter.HardwareSummary{Hostname: host})
	}

	workDir := cfg.GetWorkDir()
	for _, dir := range []string{cfg.OutputDir, workDir} {
		if err := util.EnsureDirectory(dir); err != nil {
			return nil, errors.NewIOError("failed to create directory "+dir, err)
		}
	}
	keep := cfg.KeepArtifacts()
	if keep {
		util.CheckDiskSpace(workDir, func(format string, args ...any) {
			msg := fmt.Sprintf(format, args...)
			logging.Warn(msg)
			rep.Warning(msg + "; encoded artifacts are kept")
		})
	}

	scorers, err := metric.ByNames(cfg.Scorers)
	if err != nil {
		return nil, err
	}

	enc, analyzer, sourceInfo := s.collaborators(ctx, rep)
	opener := s.frameOpener()

	rep.SweepStarted(reporter.SweepSummary{
		Source:      util.AbsPath(cfg.SourcePath),
		SourceInfo:  sourceInfo,
		OutputDir:   cfg.OutputDir,
		Resolutions: stringsOf(cfg.Resolutions),
		Bitrates:    stringsOf(cfg.Bitrates),
		Scorers:     cfg.Scorers,
		Codec:       cfg.Codec,
		Preset:      cfg.Preset,
		Retention:   retentionLabel(cfg.Retention, keep),
		TotalCells:  cfg.TotalCells(),
	})

	writers, err := results.OpenFiles(cfg.OutputDir, cfg.Scorers, cfg.Resolutions)
	if err != nil {
		return nil, errors.NewIOError("failed to open result files", err)
	}
	defer func() {
		if err := writers.Close(); err != nil {
			logging.Warn("Failed to close result files", "error", err)
		}
	}()

	opts := sweep.Options{
		Source:        cfg.SourcePath,
		WorkDir:       workDir,
		ArtifactExt:   config.DefaultArtifactContainer,
		Resolutions:   cfg.Resolutions,
		Bitrates:      cfg.Bitrates,
		Scorers:       scorers,
		KeepArtifacts: keep,
		Encoder:       enc,
		Opener:        opener,
		Analyzer:      analyzer,
		Writer:        writers,
	}

	if cfg.MetricsFile != "" {
		opts.Metrics = telemetry.NewRecorder()
		opts.MetricsFile = cfg.MetricsFile
	}

	if cfg.DatabaseURL != "" {
		sweepID := cfg.SweepID
		if sweepID == "" {
			sweepID = util.GetFileStem(cfg.SourcePath) + "-" + startTime.Format("20060102-150405")
		}
		db, err := store.New(ctx, cfg.DatabaseURL, sweepID, util.AbsPath(cfg.SourcePath))
		if err != nil {
			return nil, errors.NewStoreError("failed to open result store", err)
		}
		defer db.Close(context.Background())
		opts.Store = db
		logging.Info("Persisting sweep", "sweep_id", sweepID)
	}

	driver, err := sweep.New(opts, rep)
	if err != nil {
		return nil, err
	}

	table, runErr := driver.Run(ctx)

	outputs := make([]string, 0, len(cfg.Scorers)+1)
	for _, name := range cfg.Scorers {
		if f := results.FileName(name); f != "" {
			outputs = append(outputs, filepath.Join(cfg.OutputDir, f))
		}
	}
	snapshot := filepath.Join(cfg.OutputDir, results.SnapshotName)
	if err := writeSnapshot(table, snapshot); err != nil {
		logging.Warn("Failed to write result snapshot", "path", snapshot, "error", err)
	} else {
		outputs = append(outputs, snapshot)
	}

	failed := 0
	for _, row := range table.Rows() {
		if row.Failed() {
			failed++
		}
	}
	rep.SweepComplete(reporter.SweepOutcome{
		TotalCells:    cfg.TotalCells(),
		RecordedCells: table.Len(),
		FailedCells:   failed,
		NullCells:     table.NullCount(cfg.Scorers[0]),
		Interrupted:   !table.Complete(),
		Duration:      time.Since(startTime),
		OutputFiles:   outputs,
	})

	return table, runErr
}

// frameOpener returns the decoder for both sides of every pair. Reference
// and candidate share one decode path so that identical content decodes to
// identical frames.
func (s *Sweeper) frameOpener() decoder.Opener {
	if s.opener != nil {
		return s.opener
	}
	return decoder.FFmpeg{}
}

// collaborators returns the encoder and analyzer for the sweep. The ffmpeg
// encoder is paired with the ffprobe analyzer; an injected encoder only gets
// an analyzer when one was injected too.
func (s *Sweeper) collaborators(ctx context.Context, rep Reporter) (encoder.Encoder, validation.MediaAnalyzer, string) {
	if s.encoder != nil {
		return s.encoder, s.analyzer, ""
	}

	cfg := s.config
	ff := &encoder.FFmpeg{
		Codec:   cfg.Codec,
		Preset:  cfg.Preset,
		Timeout: cfg.EncodeTimeout,
		Sink:    s.encoderLog,
		OnProgress: func(p ffmpeg.Progress) {
			rep.EncodingProgress(reporter.ProgressSnapshot{
				CurrentFrame: p.CurrentFrame,
				TotalFrames:  p.TotalFrames,
				Percent:      p.Percent,
				Speed:        p.Speed,
				FPS:          p.FPS,
				ETA:          p.ETA,
				Bitrate:      p.Bitrate,
			})
		},
	}

	var sourceInfo string
	if info, err := ffprobe.Probe(ctx, cfg.SourcePath); err != nil {
		logging.Warn("Failed to probe source, progress will be approximate", "error", err)
	} else {
		ff.SourceDuration = info.DurationSecs
		ff.SourceFrames = info.TotalFrames
		sourceInfo = fmt.Sprintf("%dx%d, %s, %d frames",
			info.Width, info.Height, util.FormatDuration(info.DurationSecs), info.TotalFrames)
	}

	analyzer := s.analyzer
	if analyzer == nil {
		analyzer = validation.NewDefaultAnalyzer()
	}
	return ff, analyzer, sourceInfo
}

// Report rebuilds a persisted sweep from the database and rewrites its result
// files in the output directory. It needs a database URL and a sweep id; the
// configured axes and scorers select which stored cells are reported.
func (s *Sweeper) Report(ctx context.Context) (*Table, error) {
	cfg := s.config
	if cfg.DatabaseURL == "" || cfg.SweepID == "" {
		return nil, errors.NewConfigError("report needs a database URL and a sweep id")
	}

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.NewStoreError("failed to open result store", err)
	}
	defer db.Close(context.Background())

	table, err := db.LoadTable(ctx, cfg.SweepID, cfg.Resolutions, cfg.Bitrates, cfg.Scorers)
	if err != nil {
		return nil, errors.NewStoreError(fmt.Sprintf("failed to load sweep %s", cfg.SweepID), err)
	}
	if table.Len() == 0 {
		return table, errors.NewStoreError(fmt.Sprintf("no cells recorded for sweep %s", cfg.SweepID), nil)
	}
	logging.Info("Loaded sweep", "sweep_id", cfg.SweepID, "cells", table.Len())

	return table, writeResults(table, cfg.OutputDir)
}

// writeResults writes every recorded row of table to fresh result files and
// a snapshot in dir.
func writeResults(table *Table, dir string) error {
	writers, err := results.OpenFiles(dir, table.Scorers, table.Resolutions)
	if err != nil {
		return errors.NewIOError("failed to open result files", err)
	}
	for _, row := range table.Rows() {
		if err := writers.WriteCell(row); err != nil {
			_ = writers.Close()
			return errors.NewIOError("failed to write "+row.Cell.String(), err)
		}
	}
	if err := writers.Close(); err != nil {
		return errors.NewIOError("failed to close result files", err)
	}
	if err := writeSnapshot(table, filepath.Join(dir, results.SnapshotName)); err != nil {
		return errors.NewIOError("failed to write result snapshot", err)
	}
	return nil
}

func writeSnapshot(table *Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := table.WriteJSON(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func retentionLabel(r Retention, keep bool) string {
	action := "delete after scoring"
	if keep {
		action = "keep"
	}
	return fmt.Sprintf("%s (%s)", action, r)
}

func stringsOf[T fmt.Stringer](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.String()
	}
	return out
}
