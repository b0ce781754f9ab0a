package results

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/five82/rdsweep/internal/grid"
	"github.com/five82/rdsweep/internal/util"
)

// Default output file names: one per scorer, plus the full-table snapshot.
const (
	LineLogName  = "psnr_results.log"
	GridCSVName  = "ssim_results.csv"
	SnapshotName = "sweep_results.json"
)

// Writer receives cell results as the sweep records them. Every write must
// leave the output readable if the process stops right after it.
type Writer interface {
	WriteCell(r CellResult) error
	Close() error
}

// LineLog writes "<resolution>, <bitrate>, <score>" lines after a header.
// Empty series are written as "null".
type LineLog struct {
	w      *bufio.Writer
	scorer string
}

// NewLineLog writes the header and returns a log for scorer.
func NewLineLog(w io.Writer, scorer string) (*LineLog, error) {
	l := &LineLog{w: bufio.NewWriter(w), scorer: scorer}
	if _, err := fmt.Fprintf(l.w, "resolution, bitrate, %s\n", scorer); err != nil {
		return nil, err
	}
	return l, l.w.Flush()
}

// WriteCell implements Writer.
func (l *LineLog) WriteCell(r CellResult) error {
	s := r.Score(l.scorer)
	if _, err := fmt.Fprintf(l.w, "%s, %s, %s\n", r.Cell.Resolution, r.Cell.Bitrate, util.FormatMean(s.Mean, s.Count)); err != nil {
		return err
	}
	return l.w.Flush()
}

// Close implements Writer.
func (l *LineLog) Close() error {
	return l.w.Flush()
}

// GridCSV writes one row per bitrate with a column per resolution. The header
// row starts with an empty cell. A row is written once all its resolutions
// are recorded; empty series become empty fields.
type GridCSV struct {
	w           *csv.Writer
	scorer      string
	resolutions []grid.Resolution

	bitrate grid.Bitrate
	row     []string
	filled  int
}

// NewGridCSV writes the header row and returns a grid for scorer.
func NewGridCSV(w io.Writer, scorer string, resolutions []grid.Resolution) (*GridCSV, error) {
	g := &GridCSV{
		w:           csv.NewWriter(w),
		scorer:      scorer,
		resolutions: resolutions,
	}
	header := make([]string, 0, len(resolutions)+1)
	header = append(header, "")
	for _, r := range resolutions {
		header = append(header, r.String())
	}
	if err := g.w.Write(header); err != nil {
		return nil, err
	}
	g.w.Flush()
	return g, g.w.Error()
}

// WriteCell implements Writer.
func (g *GridCSV) WriteCell(r CellResult) error {
	col := g.column(r.Cell.Resolution)
	if col < 0 {
		return fmt.Errorf("resolution %s is not a grid column", r.Cell.Resolution)
	}

	if g.row != nil && g.bitrate != r.Cell.Bitrate {
		if err := g.flushRow(); err != nil {
			return err
		}
	}
	if g.row == nil {
		g.bitrate = r.Cell.Bitrate
		g.row = make([]string, len(g.resolutions)+1)
		g.row[0] = r.Cell.Bitrate.String()
		g.filled = 0
	}

	s := r.Score(g.scorer)
	if !s.Null() {
		g.row[col+1] = util.FormatScore(s.Mean)
	}
	g.filled++

	if g.filled == len(g.resolutions) {
		return g.flushRow()
	}
	return nil
}

// Close writes any partially filled row and flushes.
func (g *GridCSV) Close() error {
	if g.row != nil {
		return g.flushRow()
	}
	g.w.Flush()
	return g.w.Error()
}

func (g *GridCSV) flushRow() error {
	if err := g.w.Write(g.row); err != nil {
		return err
	}
	g.row = nil
	g.w.Flush()
	return g.w.Error()
}

func (g *GridCSV) column(r grid.Resolution) int {
	for i, res := range g.resolutions {
		if res == r {
			return i
		}
	}
	return -1
}

// MultiWriter fans cell results out to several writers.
type MultiWriter []Writer

// WriteCell implements Writer. All writers are attempted; the first error is returned.
func (m MultiWriter) WriteCell(r CellResult) error {
	var first error
	for _, w := range m {
		if err := w.WriteCell(r); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close implements Writer.
func (m MultiWriter) Close() error {
	var first error
	for _, w := range m {
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// fileWriter closes the underlying file after the format writer.
type fileWriter struct {
	Writer
	f *os.File
}

func (fw *fileWriter) Close() error {
	err := fw.Writer.Close()
	if cerr := fw.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// FileName returns the result file written for scorer, or "" if none is.
func FileName(scorer string) string {
	switch scorer {
	case "psnr":
		return LineLogName
	case "ssim":
		return GridCSVName
	default:
		return ""
	}
}

// OpenFiles creates the result files for the active scorers in dir: a line
// log for psnr and a bitrate-by-resolution grid for ssim.
func OpenFiles(dir string, scorers []string, resolutions []grid.Resolution) (MultiWriter, error) {
	if err := util.EnsureDirectory(dir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var out MultiWriter
	for _, s := range scorers {
		name := FileName(s)
		if name == "" {
			continue
		}

		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			_ = out.Close()
			return nil, fmt.Errorf("failed to create %s: %w", name, err)
		}

		var w Writer
		if s == "psnr" {
			w, err = NewLineLog(f, s)
		} else {
			w, err = NewGridCSV(f, s, resolutions)
		}
		if err != nil {
			_ = f.Close()
			_ = out.Close()
			return nil, fmt.Errorf("failed to write %s header: %w", name, err)
		}
		out = append(out, &fileWriter{Writer: w, f: f})
	}
	return out, nil
}
