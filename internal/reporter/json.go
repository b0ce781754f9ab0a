package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"github.com/five82/rdsweep/internal/util"
)

// JSONReporter outputs NDJSON events, one object per line.
type JSONReporter struct {
	writer             io.Writer
	mu                 sync.Mutex
	lastProgressBucket int
	lastProgressTime   time.Time
}

// NewJSONReporter creates a new JSON reporter that writes to stdout.
func NewJSONReporter() *JSONReporter {
	return NewJSONReporterWithWriter(os.Stdout)
}

// NewJSONReporterWithWriter creates a JSON reporter with a custom writer.
func NewJSONReporterWithWriter(w io.Writer) *JSONReporter {
	return &JSONReporter{
		writer:             w,
		lastProgressBucket: -1,
	}
}

func (r *JSONReporter) timestamp() int64 {
	return time.Now().Unix()
}

func (r *JSONReporter) write(v interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintln(r.writer, string(data))
}

// jsonScore renders a mean JSON can carry: null when empty, a string when not finite.
func jsonScore(s ScoreSummary) interface{} {
	if s.Null {
		return nil
	}
	if math.IsInf(s.Mean, 0) || math.IsNaN(s.Mean) {
		return util.FormatScore(s.Mean)
	}
	return s.Mean
}

func (r *JSONReporter) Hardware(summary HardwareSummary) {
	r.write(map[string]interface{}{
		"type":      "hardware",
		"hostname":  summary.Hostname,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) SweepStarted(summary SweepSummary) {
	r.write(map[string]interface{}{
		"type":        "sweep_started",
		"source":      summary.Source,
		"source_info": summary.SourceInfo,
		"output_dir":  summary.OutputDir,
		"resolutions": summary.Resolutions,
		"bitrates":    summary.Bitrates,
		"scorers":     summary.Scorers,
		"codec":       summary.Codec,
		"preset":      summary.Preset,
		"retention":   summary.Retention,
		"total_cells": summary.TotalCells,
		"timestamp":   r.timestamp(),
	})
}

func (r *JSONReporter) CellStarted(cell CellContext) {
	r.mu.Lock()
	r.lastProgressBucket = -1
	r.lastProgressTime = time.Time{}
	r.mu.Unlock()

	r.write(map[string]interface{}{
		"type":        "cell_started",
		"cell":        cell.Index,
		"total_cells": cell.Total,
		"resolution":  cell.Resolution,
		"bitrate":     cell.Bitrate,
		"timestamp":   r.timestamp(),
	})
}

func (r *JSONReporter) EncodingProgress(progress ProgressSnapshot) {
	const progressBucketSize = 1
	const minInterval = 5 * time.Second

	bucket := int(progress.Percent) / progressBucketSize
	now := time.Now()

	r.mu.Lock()
	intervalElapsed := r.lastProgressTime.IsZero() || now.Sub(r.lastProgressTime) >= minInterval
	shouldEmit := bucket > r.lastProgressBucket || intervalElapsed || progress.Percent >= 99.0

	if !shouldEmit {
		r.mu.Unlock()
		return
	}

	if bucket > r.lastProgressBucket {
		r.lastProgressBucket = bucket
	}
	r.lastProgressTime = now
	r.mu.Unlock()

	r.write(map[string]interface{}{
		"type":          "encoding_progress",
		"stage":         "encoding",
		"current_frame": progress.CurrentFrame,
		"total_frames":  progress.TotalFrames,
		"percent":       progress.Percent,
		"speed":         progress.Speed,
		"fps":           progress.FPS,
		"eta_seconds":   int64(progress.ETA.Seconds()),
		"bitrate":       progress.Bitrate,
		"timestamp":     r.timestamp(),
	})
}

func (r *JSONReporter) ValidationComplete(summary ValidationSummary) {
	steps := make([]map[string]interface{}, len(summary.Steps))
	for i, step := range summary.Steps {
		steps[i] = map[string]interface{}{
			"step":    step.Name,
			"passed":  step.Passed,
			"details": step.Details,
		}
	}

	r.write(map[string]interface{}{
		"type":              "validation_complete",
		"validation_passed": summary.Passed,
		"validation_steps":  steps,
		"timestamp":         r.timestamp(),
	})
}

func (r *JSONReporter) CellComplete(outcome CellOutcome) {
	scores := make([]map[string]interface{}, len(outcome.Scores))
	for i, s := range outcome.Scores {
		scores[i] = map[string]interface{}{
			"scorer": s.Scorer,
			"mean":   jsonScore(s),
			"count":  s.Count,
		}
	}

	event := map[string]interface{}{
		"type":             "cell_complete",
		"cell":             outcome.Index,
		"total_cells":      outcome.Total,
		"resolution":       outcome.Resolution,
		"bitrate":          outcome.Bitrate,
		"scores":           scores,
		"artifact_path":    outcome.ArtifactPath,
		"artifact_size":    outcome.ArtifactSize,
		"artifact_kept":    outcome.Kept,
		"duration_seconds": outcome.Elapsed.Seconds(),
		"timestamp":        r.timestamp(),
	}
	if outcome.FailedStage != "" {
		event["failed_stage"] = outcome.FailedStage
		event["failure"] = outcome.Failure
	}
	r.write(event)
}

func (r *JSONReporter) Warning(message string) {
	r.write(map[string]interface{}{
		"type":      "warning",
		"message":   message,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) Error(err ReporterError) {
	r.write(map[string]interface{}{
		"type":       "error",
		"title":      err.Title,
		"message":    err.Message,
		"context":    err.Context,
		"suggestion": err.Suggestion,
		"timestamp":  r.timestamp(),
	})
}

func (r *JSONReporter) SweepComplete(summary SweepOutcome) {
	r.write(map[string]interface{}{
		"type":             "sweep_complete",
		"total_cells":      summary.TotalCells,
		"recorded_cells":   summary.RecordedCells,
		"failed_cells":     summary.FailedCells,
		"null_cells":       summary.NullCells,
		"interrupted":      summary.Interrupted,
		"duration_seconds": int64(summary.Duration.Seconds()),
		"output_files":     summary.OutputFiles,
		"timestamp":        r.timestamp(),
	})
}

// Verbose messages are not emitted as JSON events.
func (r *JSONReporter) Verbose(string) {}
