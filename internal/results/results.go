// Package results aggregates per-frame scores into a per-cell result table.
package results

import (
	"fmt"
	"math"

	"github.com/five82/rdsweep/internal/grid"
)

// Series is the ordered per-pair scores of one scorer in one cell.
type Series struct {
	values []float64
}

// Add appends one pair score.
func (s *Series) Add(v float64) {
	s.values = append(s.values, v)
}

// Len returns the number of scored pairs.
func (s *Series) Len() int {
	return len(s.values)
}

// Values returns a copy of the scores.
func (s *Series) Values() []float64 {
	return append([]float64(nil), s.values...)
}

// Mean returns the arithmetic mean and false for an empty series.
func (s *Series) Mean() (float64, bool) {
	if len(s.values) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range s.values {
		sum += v
	}
	return sum / float64(len(s.values)), true
}

// Summary reduces the series to a Score.
func (s *Series) Summary(scorer string) Score {
	mean, _ := s.Mean()
	return Score{Scorer: scorer, Mean: mean, Count: len(s.values)}
}

// Score is the aggregate of one scorer over one cell. A zero Count means the
// mean is undefined and Mean must be ignored.
type Score struct {
	Scorer string
	Mean   float64
	Count  int
}

// Null reports whether no pair was scored.
func (s Score) Null() bool {
	return s.Count == 0
}

// Stage names a step of a cell's evaluation, used to locate failures.
type Stage string

const (
	StageEncode   Stage = "encode"
	StageValidate Stage = "validate"
	StageDecode   Stage = "decode"
	StageScore    Stage = "score"
)

// CellResult is the outcome of one grid cell.
type CellResult struct {
	Cell   grid.Cell
	Scores []Score

	// FailedStage and Failure are set when the cell did not score cleanly.
	// Scores still carry whatever partial series was collected.
	FailedStage Stage
	Failure     string
}

// Score returns the named scorer's aggregate, or a null Score.
func (c CellResult) Score(scorer string) Score {
	for _, s := range c.Scores {
		if s.Scorer == scorer {
			return s
		}
	}
	return Score{Scorer: scorer}
}

// Failed reports whether any stage of the cell failed.
func (c CellResult) Failed() bool {
	return c.FailedStage != ""
}

// Table holds cell results in grid enumeration order.
type Table struct {
	Resolutions []grid.Resolution
	Bitrates    []grid.Bitrate
	Scorers     []string

	order []grid.Cell
	cells map[grid.Cell]CellResult
}

// NewTable creates an empty table over the given axes.
func NewTable(resolutions []grid.Resolution, bitrates []grid.Bitrate, scorers []string) *Table {
	return &Table{
		Resolutions: append([]grid.Resolution(nil), resolutions...),
		Bitrates:    append([]grid.Bitrate(nil), bitrates...),
		Scorers:     append([]string(nil), scorers...),
		cells:       make(map[grid.Cell]CellResult),
	}
}

// Record appends a cell result. Each cell may be recorded once.
func (t *Table) Record(r CellResult) error {
	if _, ok := t.cells[r.Cell]; ok {
		return fmt.Errorf("cell %s already recorded", r.Cell)
	}
	t.cells[r.Cell] = r
	t.order = append(t.order, r.Cell)
	return nil
}

// Cell returns the result for (res, br).
func (t *Table) Cell(res grid.Resolution, br grid.Bitrate) (CellResult, bool) {
	r, ok := t.cells[grid.Cell{Resolution: res, Bitrate: br}]
	return r, ok
}

// Rows returns recorded results in the order they were recorded.
func (t *Table) Rows() []CellResult {
	out := make([]CellResult, len(t.order))
	for i, c := range t.order {
		out[i] = t.cells[c]
	}
	return out
}

// Len returns the number of recorded cells.
func (t *Table) Len() int {
	return len(t.order)
}

// Complete reports whether every grid cell has been recorded.
func (t *Table) Complete() bool {
	return len(t.order) == len(t.Resolutions)*len(t.Bitrates)
}

// NullCount returns how many recorded cells have no score for scorer.
func (t *Table) NullCount(scorer string) int {
	n := 0
	for _, c := range t.order {
		if t.cells[c].Score(scorer).Null() {
			n++
		}
	}
	return n
}

// Equal reports whether two tables hold the same axes and the same scores in
// the same order. Failure messages are not compared.
func (t *Table) Equal(o *Table) bool {
	if o == nil {
		return false
	}
	if len(t.order) != len(o.order) ||
		!equalSlices(t.Resolutions, o.Resolutions) ||
		!equalSlices(t.Bitrates, o.Bitrates) ||
		!equalSlices(t.Scorers, o.Scorers) {
		return false
	}
	for i, c := range t.order {
		if o.order[i] != c {
			return false
		}
		a, b := t.cells[c], o.cells[c]
		if a.FailedStage != b.FailedStage || len(a.Scores) != len(b.Scores) {
			return false
		}
		for j := range a.Scores {
			if !sameScore(a.Scores[j], b.Scores[j]) {
				return false
			}
		}
	}
	return true
}

func sameScore(a, b Score) bool {
	if a.Scorer != b.Scorer || a.Count != b.Count {
		return false
	}
	if a.Null() {
		return true
	}
	if math.IsNaN(a.Mean) || math.IsNaN(b.Mean) {
		return math.IsNaN(a.Mean) && math.IsNaN(b.Mean)
	}
	return a.Mean == b.Mean
}

func equalSlices[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
