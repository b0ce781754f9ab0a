// Package reporter provides progress reporting interfaces and implementations.
package reporter

import "time"

// HardwareSummary contains hardware information.
type HardwareSummary struct {
	Hostname string
}

// SweepSummary describes a sweep before the first cell starts.
type SweepSummary struct {
	Source      string
	SourceInfo  string
	OutputDir   string
	Resolutions []string
	Bitrates    []string
	Scorers     []string
	Codec       string
	Preset      string
	Retention   string
	TotalCells  int
}

// CellContext identifies the cell being evaluated.
type CellContext struct {
	Index      int // 1-based
	Total      int
	Resolution string
	Bitrate    string
}

// ProgressSnapshot contains encoding progress information for the current cell.
type ProgressSnapshot struct {
	CurrentFrame uint64
	TotalFrames  uint64
	Percent      float32
	Speed        float32
	FPS          float32
	ETA          time.Duration
	Bitrate      string
}

// ValidationSummary contains artifact validation results.
type ValidationSummary struct {
	Passed bool
	Steps  []ValidationStep
}

// ValidationStep represents a single validation check.
type ValidationStep struct {
	Name    string
	Passed  bool
	Details string
}

// ScoreSummary is one scorer's aggregate for a cell. Null means no pair was scored.
type ScoreSummary struct {
	Scorer string
	Mean   float64
	Count  int
	Null   bool
}

// CellOutcome contains the recorded result of one cell.
type CellOutcome struct {
	CellContext
	Scores       []ScoreSummary
	FailedStage  string
	Failure      string
	ArtifactPath string
	ArtifactSize uint64
	Kept         bool
	Elapsed      time.Duration
}

// ReporterError contains error information.
type ReporterError struct {
	Title      string
	Message    string
	Context    string
	Suggestion string
}

// SweepOutcome contains sweep completion information.
type SweepOutcome struct {
	TotalCells    int
	RecordedCells int
	FailedCells   int
	NullCells     int
	Interrupted   bool
	Duration      time.Duration
	OutputFiles   []string
}
