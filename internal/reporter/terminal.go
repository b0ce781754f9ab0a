package reporter

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/five82/rdsweep/internal/util"
	"github.com/schollz/progressbar/v3"
)

// TerminalReporter outputs human-friendly text to the terminal.
type TerminalReporter struct {
	mu       sync.Mutex
	out      io.Writer
	errOut   io.Writer
	progress *progressbar.ProgressBar
	cell     CellContext
	cyan     *color.Color
	green    *color.Color
	yellow   *color.Color
	red      *color.Color
	magenta  *color.Color
	bold     *color.Color
	faint    *color.Color
}

// NewTerminalReporter creates a new terminal reporter. Results go to stdout;
// the progress bar and errors go to stderr.
func NewTerminalReporter() *TerminalReporter {
	return NewTerminalReporterWithWriters(os.Stdout, os.Stderr)
}

// NewTerminalReporterWithWriters creates a terminal reporter with custom writers.
func NewTerminalReporterWithWriters(out, errOut io.Writer) *TerminalReporter {
	return &TerminalReporter{
		out:     out,
		errOut:  errOut,
		cyan:    color.New(color.FgCyan, color.Bold),
		green:   color.New(color.FgGreen),
		yellow:  color.New(color.FgYellow, color.Bold),
		red:     color.New(color.FgRed, color.Bold),
		magenta: color.New(color.FgMagenta),
		bold:    color.New(color.Bold),
		faint:   color.New(color.Faint),
	}
}

// clearProgress erases the bar line so a result line can be printed. The bar
// redraws on its next update. Callers hold r.mu.
func (r *TerminalReporter) clearProgress() {
	if r.progress != nil {
		_ = r.progress.Clear()
	}
}

func (r *TerminalReporter) finishProgress() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress != nil {
		_ = r.progress.Finish()
		r.progress = nil
	}
}

// printLabel prints a bold label with fixed width padding followed by a value.
// Width is applied to the plain text before styling to ensure proper alignment.
func (r *TerminalReporter) printLabel(width int, label, value string) {
	paddedLabel := fmt.Sprintf("%-*s", width, label)
	_, _ = fmt.Fprintf(r.out, "  %s %s\n", r.bold.Sprint(paddedLabel), value)
}

func (r *TerminalReporter) Hardware(summary HardwareSummary) {
	_, _ = fmt.Fprintln(r.out)
	_, _ = r.cyan.Fprintln(r.out, "HARDWARE")
	r.printLabel(10, "Hostname:", summary.Hostname)
}

func (r *TerminalReporter) SweepStarted(summary SweepSummary) {
	_, _ = fmt.Fprintln(r.out)
	_, _ = r.cyan.Fprintln(r.out, "SWEEP")
	const w = 12
	r.printLabel(w, "Source:", summary.Source)
	if summary.SourceInfo != "" {
		r.printLabel(w, "Video:", summary.SourceInfo)
	}
	r.printLabel(w, "Output:", summary.OutputDir)
	r.printLabel(w, "Encoder:", fmt.Sprintf("%s (preset %s)", summary.Codec, summary.Preset))
	r.printLabel(w, "Resolutions:", strings.Join(summary.Resolutions, ", "))
	r.printLabel(w, "Bitrates:", formatBitrates(summary.Bitrates))
	r.printLabel(w, "Scorers:", strings.ToUpper(strings.Join(summary.Scorers, ", ")))
	r.printLabel(w, "Artifacts:", summary.Retention)
	r.printLabel(w, "Cells:", fmt.Sprintf("%d", summary.TotalCells))
	_, _ = fmt.Fprintln(r.out)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress != nil {
		_ = r.progress.Finish()
	}
	r.progress = progressbar.NewOptions(
		summary.TotalCells,
		progressbar.OptionSetDescription(""),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(r.errOut),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "Sweep [",
			BarEnd:        "]",
		}),
	)
}

// formatBitrates shortens long bitrate lists to "first .. last (n values)".
func formatBitrates(bitrates []string) string {
	if len(bitrates) <= 4 {
		return strings.Join(bitrates, ", ")
	}
	return fmt.Sprintf("%s .. %s (%d values)", bitrates[0], bitrates[len(bitrates)-1], len(bitrates))
}

func (r *TerminalReporter) CellStarted(cell CellContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cell = cell
	if r.progress != nil {
		r.progress.Describe(fmt.Sprintf("%s @ %s", cell.Resolution, cell.Bitrate))
	}
}

func (r *TerminalReporter) EncodingProgress(progress ProgressSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.progress == nil {
		return
	}

	clamped := progress.Percent
	if clamped > 100 {
		clamped = 100
	}
	if clamped < 0 {
		clamped = 0
	}

	desc := fmt.Sprintf("%s @ %s: encoding %.0f%%, speed %.1fx, eta %s",
		r.cell.Resolution, r.cell.Bitrate, clamped, progress.Speed,
		util.FormatDuration(progress.ETA.Seconds()))
	r.progress.Describe(desc)
}

func (r *TerminalReporter) ValidationComplete(summary ValidationSummary) {
	if summary.Passed {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearProgress()

	// Find the longest step name for alignment
	maxLen := 0
	for _, step := range summary.Steps {
		if len(step.Name) > maxLen {
			maxLen = len(step.Name)
		}
	}

	_, _ = fmt.Fprintf(r.out, "  %s\n", r.yellow.Sprint("Artifact validation failed"))
	for _, step := range summary.Steps {
		var status string
		if step.Passed {
			status = r.green.Sprint("✓")
		} else {
			status = r.red.Sprint("✗")
		}
		paddedName := fmt.Sprintf("%-*s", maxLen, step.Name)
		_, _ = fmt.Fprintf(r.out, "  - %s: %s (%s)\n", paddedName, status, step.Details)
	}
}

// cellLine formats "Bitrate: <b>, Resolution: <r>, <SCORER>: <v>[, ...]".
func cellLine(outcome CellOutcome) string {
	parts := []string{
		"Bitrate: " + outcome.Bitrate,
		"Resolution: " + outcome.Resolution,
	}
	for _, s := range outcome.Scores {
		parts = append(parts, strings.ToUpper(s.Scorer)+": "+util.FormatScoreShort(s.Mean, s.Count))
	}
	return strings.Join(parts, ", ")
}

func (r *TerminalReporter) CellComplete(outcome CellOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearProgress()

	_, _ = fmt.Fprintln(r.out, cellLine(outcome))
	if outcome.FailedStage != "" {
		_, _ = fmt.Fprintf(r.out, "  %s %s failed: %s\n",
			r.red.Sprint("✗"), outcome.FailedStage, outcome.Failure)
	}

	if r.progress != nil {
		_ = r.progress.Add(1)
	}
}

func (r *TerminalReporter) Warning(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearProgress()
	_, _ = r.yellow.Fprintf(r.out, "WARN: %s\n", message)
}

func (r *TerminalReporter) Error(err ReporterError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearProgress()

	_, _ = fmt.Fprintln(r.errOut)
	_, _ = r.red.Fprintf(r.errOut, "ERROR %s\n", err.Title)
	_, _ = fmt.Fprintf(r.errOut, "  %s\n", err.Message)
	if err.Context != "" {
		_, _ = fmt.Fprintf(r.errOut, "  Context: %s\n", err.Context)
	}
	if err.Suggestion != "" {
		_, _ = fmt.Fprintf(r.errOut, "  Suggestion: %s\n", err.Suggestion)
	}
}

func (r *TerminalReporter) SweepComplete(summary SweepOutcome) {
	r.finishProgress()

	_, _ = fmt.Fprintln(r.out)
	_, _ = r.cyan.Fprintln(r.out, "RESULTS")
	status := color.New(color.FgGreen, color.Bold).Sprint("✓")
	if summary.Interrupted {
		status = r.yellow.Sprint("interrupted")
	}
	_, _ = fmt.Fprintf(r.out, "  %s %d of %d cells recorded\n", status, summary.RecordedCells, summary.TotalCells)
	if summary.FailedCells > 0 {
		_, _ = fmt.Fprintf(r.out, "  %s\n", r.red.Sprintf("%d cells failed", summary.FailedCells))
	}
	if summary.NullCells > 0 {
		_, _ = fmt.Fprintf(r.out, "  %s\n", r.faint.Sprintf("%d cells have no score", summary.NullCells))
	}
	_, _ = fmt.Fprintf(r.out, "  %s %s\n", r.bold.Sprint("Time:"), util.FormatDuration(summary.Duration.Round(time.Second).Seconds()))
	for _, f := range summary.OutputFiles {
		_, _ = fmt.Fprintf(r.out, "  %s %s\n", r.bold.Sprint("Saved to"), r.green.Sprint(f))
	}
}

func (r *TerminalReporter) Verbose(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearProgress()
	_, _ = fmt.Fprintf(r.out, "  %s %s\n", r.magenta.Sprint("›"), message)
}
