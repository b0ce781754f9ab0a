// Package sweep drives a rate-distortion sweep: one encode and one scoring
// pass per (resolution, bitrate) cell, strictly in sequence.
package sweep

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/five82/rdsweep/internal/decoder"
	"github.com/five82/rdsweep/internal/encoder"
	"github.com/five82/rdsweep/internal/errors"
	"github.com/five82/rdsweep/internal/grid"
	"github.com/five82/rdsweep/internal/logging"
	"github.com/five82/rdsweep/internal/metric"
	"github.com/five82/rdsweep/internal/reconcile"
	"github.com/five82/rdsweep/internal/reporter"
	"github.com/five82/rdsweep/internal/results"
	"github.com/five82/rdsweep/internal/stream"
	"github.com/five82/rdsweep/internal/telemetry"
	"github.com/five82/rdsweep/internal/util"
	"github.com/five82/rdsweep/internal/validation"
)

// State is the driver's position in the per-cell cycle.
type State int

const (
	Idle State = iota
	Encoding
	Scoring
	Recorded
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Encoding:
		return "encoding"
	case Scoring:
		return "scoring"
	case Recorded:
		return "recorded"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// CellSaver persists a recorded cell. seq is the cell's 0-based position in
// enumeration order.
type CellSaver interface {
	SaveCell(ctx context.Context, seq int, c results.CellResult) error
}

// Options configures a Driver.
type Options struct {
	Source      string
	WorkDir     string
	ArtifactExt string // defaults to ".mp4"

	Resolutions []grid.Resolution
	Bitrates    []grid.Bitrate
	Scorers     []metric.Scorer

	// KeepArtifacts leaves each encoded file in WorkDir after scoring.
	KeepArtifacts bool

	Encoder encoder.Encoder
	Opener  decoder.Opener

	// Optional collaborators. Nil values are skipped.
	Analyzer    validation.MediaAnalyzer
	Writer      results.Writer
	Store       CellSaver
	Metrics     *telemetry.Recorder
	MetricsFile string
}

// Driver runs the sweep state machine over Options' grid.
type Driver struct {
	opts  Options
	rep   reporter.Reporter
	state State
	table *results.Table
}

// New validates opts and returns an idle driver.
func New(opts Options, rep reporter.Reporter) (*Driver, error) {
	switch {
	case opts.Encoder == nil:
		return nil, errors.NewConfigError("sweep needs an encoder")
	case opts.Opener == nil:
		return nil, errors.NewConfigError("sweep needs a decoder")
	case len(opts.Scorers) == 0:
		return nil, errors.NewConfigError("sweep needs at least one scorer")
	case len(opts.Resolutions) == 0 || len(opts.Bitrates) == 0:
		return nil, errors.NewConfigError("sweep grid is empty")
	}
	if opts.ArtifactExt == "" {
		opts.ArtifactExt = ".mp4"
	}
	if rep == nil {
		rep = reporter.NullReporter{}
	}

	names := make([]string, len(opts.Scorers))
	for i, s := range opts.Scorers {
		names[i] = s.Name()
	}
	return &Driver{
		opts:  opts,
		rep:   rep,
		table: results.NewTable(opts.Resolutions, opts.Bitrates, names),
	}, nil
}

// State returns the current state.
func (d *Driver) State() State {
	return d.state
}

// Table returns the result table recorded so far.
func (d *Driver) Table() *results.Table {
	return d.table
}

// Run evaluates every cell, bitrate-major. Cell-local failures are recorded
// as null entries and the sweep continues. Cancellation is honoured before
// each encode and while scoring; the cell in flight is then not recorded and
// the table holds the completed prefix. Run returns a Cancelled error in that
// case, or an I/O error if a result could not be written.
func (d *Driver) Run(ctx context.Context) (*results.Table, error) {
	cells := grid.Enumerate(d.opts.Resolutions, d.opts.Bitrates)
	for i, cell := range cells {
		// Check for cancellation before starting each cell
		if ctx.Err() != nil {
			logging.Info("Sweep cancelled", "recorded", d.table.Len(), "total", len(cells))
			return d.table, errors.NewCancelledError()
		}
		if err := d.runCell(ctx, i, len(cells), cell); err != nil {
			return d.table, err
		}
	}
	d.state = Done
	return d.table, nil
}

func (d *Driver) runCell(ctx context.Context, seq, total int, cell grid.Cell) error {
	res, br := cell.Resolution.String(), cell.Bitrate.String()
	log := logging.Global().WithCell(res, br)
	cellCtx := reporter.CellContext{Index: seq + 1, Total: total, Resolution: res, Bitrate: br}
	d.rep.CellStarted(cellCtx)
	start := time.Now()

	d.state = Encoding
	out := encoder.ArtifactPath(d.opts.WorkDir, cell, d.opts.ArtifactExt)
	art, err := d.opts.Encoder.Encode(ctx, encoder.Params{
		Source: d.opts.Source,
		Output: out,
		Cell:   cell,
	})

	cr := results.CellResult{Cell: cell}
	series := make([]results.Series, len(d.opts.Scorers))
	kept := false

	if err != nil {
		if errors.IsCancelled(err) || ctx.Err() != nil {
			return errors.NewCancelledError()
		}
		d.fail(log, &cr, results.StageEncode, err)
	} else {
		log.Debug("Encoded artifact", "path", art.Path, "size", util.FormatBytes(art.SizeBytes), "elapsed", art.Elapsed)

		if d.validate(log, &cr, art) {
			d.state = Scoring
			stage, err := d.score(ctx, art.Path, series)
			if ctx.Err() != nil {
				d.retain(log, art.Path)
				return errors.NewCancelledError()
			}
			if err != nil {
				d.fail(log, &cr, stage, err)
			}
		}
		kept = d.retain(log, art.Path)
	}

	for i, s := range d.opts.Scorers {
		sum := series[i].Summary(s.Name())
		cr.Scores = append(cr.Scores, sum)
		d.rep.Verbose(fmt.Sprintf("Average %s: %s over %d frames",
			strings.ToUpper(sum.Scorer), util.FormatMean(sum.Mean, sum.Count), sum.Count))
	}

	return d.record(ctx, log, seq, cellCtx, cr, art, kept, time.Since(start))
}

func (d *Driver) fail(log *logging.Logger, cr *results.CellResult, stage results.Stage, err error) {
	cr.FailedStage = stage
	cr.Failure = err.Error()
	log.Warn("Cell failed", "stage", string(stage), "error", err)
}

// validate checks the artifact before scoring. Artifacts that cannot be
// decoded fail the cell; other mismatches only warn, since reconciliation
// resamples every candidate frame anyway.
func (d *Driver) validate(log *logging.Logger, cr *results.CellResult, art encoder.Artifact) bool {
	if d.opts.Analyzer == nil {
		return true
	}
	res := cr.Cell.Resolution

	v, err := validation.ValidateArtifact(d.opts.Analyzer, art.Path, res.Width, res.Height)
	if err != nil {
		d.fail(log, cr, results.StageValidate, err)
		return false
	}

	steps := v.GetValidationSteps()
	summary := reporter.ValidationSummary{Passed: v.IsValid(), Steps: make([]reporter.ValidationStep, len(steps))}
	for i, s := range steps {
		summary.Steps[i] = reporter.ValidationStep{Name: s.Name, Passed: s.Passed, Details: s.Details}
	}
	d.rep.ValidationComplete(summary)

	failures := strings.Join(v.GetFailures(), "; ")
	if !v.IsScorable() {
		d.fail(log, cr, results.StageValidate, stderrors.New(failures))
		return false
	}
	if !v.IsValid() {
		log.Warn("Artifact validation failed", "failures", failures)
		d.rep.Warning(fmt.Sprintf("%s at %s: %s", res, cr.Cell.Bitrate, failures))
	}
	return true
}

// score streams reference and candidate frame pairs through the scorers,
// appending to series. On error the series keep every pair scored before it
// and the failing stage is returned. Both sources are closed on every path.
func (d *Driver) score(ctx context.Context, candidate string, series []results.Series) (results.Stage, error) {
	ref, err := d.opts.Opener.Open(ctx, d.opts.Source)
	if err != nil {
		return results.StageDecode, err
	}
	defer func() { _ = ref.Close() }()

	cand, err := d.opts.Opener.Open(ctx, candidate)
	if err != nil {
		return results.StageDecode, err
	}
	defer func() { _ = cand.Close() }()

	pairs := stream.NewPairReader(ref, cand)
	values := make([]float64, len(d.opts.Scorers))
	for {
		if err := ctx.Err(); err != nil {
			return results.StageDecode, err
		}

		p, err := pairs.Next()
		if err == io.EOF {
			return "", nil
		}
		if err != nil {
			if !errors.IsCellLocal(err) {
				err = errors.NewDecodeError(fmt.Sprintf("failed to read frame pair %d", pairs.Count()), err)
			}
			return results.StageDecode, err
		}

		rp, err := reconcile.Pair(p)
		if err != nil {
			return results.StageScore, fmt.Errorf("pair %d: %w", p.Index, err)
		}

		// A pair counts only once every scorer has scored it.
		for i, s := range d.opts.Scorers {
			v, err := s.Score(rp.Reference, rp.Candidate)
			if err != nil {
				return results.StageScore, fmt.Errorf("pair %d: %s: %w", rp.Index, s.Name(), err)
			}
			values[i] = v
		}
		for i := range series {
			series[i].Add(values[i])
		}
	}
}

// retain applies the retention policy and reports whether the artifact remains.
func (d *Driver) retain(log *logging.Logger, path string) bool {
	if d.opts.KeepArtifacts {
		return util.FileExists(path)
	}
	if err := util.RemoveIfExists(path); err != nil {
		log.Warn("Failed to remove artifact", "path", path, "error", err)
		return true
	}
	return false
}

func (d *Driver) record(ctx context.Context, log *logging.Logger, seq int, cellCtx reporter.CellContext, cr results.CellResult, art encoder.Artifact, kept bool, elapsed time.Duration) error {
	d.state = Recorded
	if err := d.table.Record(cr); err != nil {
		return err
	}
	if d.opts.Writer != nil {
		if err := d.opts.Writer.WriteCell(cr); err != nil {
			return errors.NewIOError("failed to write cell result", err)
		}
	}

	if d.opts.Metrics != nil {
		d.opts.Metrics.ObserveCell(cr, art.Elapsed, art.SizeBytes)
		if d.opts.MetricsFile != "" {
			if err := d.opts.Metrics.WriteTextfile(d.opts.MetricsFile); err != nil {
				log.Warn("Failed to write metrics textfile", "path", d.opts.MetricsFile, "error", err)
			}
		}
	}
	if d.opts.Store != nil {
		if err := d.opts.Store.SaveCell(ctx, seq, cr); err != nil {
			log.Warn("Failed to persist cell", "error", err)
			d.rep.Warning(fmt.Sprintf("failed to persist %s: %v", cr.Cell, err))
		}
	}

	outcome := reporter.CellOutcome{
		CellContext: cellCtx,
		FailedStage: string(cr.FailedStage),
		Failure:     cr.Failure,
		Kept:        kept,
		Elapsed:     elapsed,
	}
	if kept {
		outcome.ArtifactPath = art.Path
		outcome.ArtifactSize = art.SizeBytes
	}
	for _, s := range cr.Scores {
		outcome.Scores = append(outcome.Scores, reporter.ScoreSummary{
			Scorer: s.Scorer,
			Mean:   s.Mean,
			Count:  s.Count,
			Null:   s.Null(),
		})
	}
	d.rep.CellComplete(outcome)

	log.Info("Cell recorded", "scores", formatScores(cr.Scores), "elapsed", elapsed.Round(time.Millisecond))
	return nil
}

func formatScores(scores []results.Score) string {
	parts := make([]string, len(scores))
	for i, s := range scores {
		parts[i] = s.Scorer + "=" + util.FormatMean(s.Mean, s.Count)
	}
	return strings.Join(parts, " ")
}
