// Package ffmpeg provides FFmpeg command building and execution.
package ffmpeg

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/five82/rdsweep/internal/errors"
	"github.com/five82/rdsweep/internal/util"
)

// MaxStderrBytes bounds how much ffmpeg stderr is kept for error reports.
const MaxStderrBytes = 16 * 1024

// Progress represents encoding progress information.
type Progress struct {
	CurrentFrame uint64
	TotalFrames  uint64
	Percent      float32
	Speed        float32
	FPS          float32
	ETA          time.Duration
	Bitrate      string
	ElapsedSecs  float64
}

// ProgressCallback is called with progress updates during encoding.
type ProgressCallback func(Progress)

// RunOptions controls one ffmpeg invocation.
type RunOptions struct {
	// Duration and TotalFrames of the input, used for percent and ETA.
	Duration    float64
	TotalFrames uint64
	Callback    ProgressCallback
	// Sink receives the raw stderr stream when set.
	Sink io.Writer
}

// Result contains the result of an FFmpeg run.
type Result struct {
	Success bool
	Error   error
	Stderr  string
}

var timeRegex = regexp.MustCompile(`time=(\d{2}:\d{2}:\d{2}\.?\d*)`)

// Run executes ffmpeg with args, parsing progress from stderr. Stdout is
// discarded. A non-zero exit is reported as a Command error carrying the
// tail of stderr.
func Run(ctx context.Context, args []string, opts RunOptions) Result {
	cmd := exec.CommandContext(ctx, Binary, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{Error: errors.NewCommandStartError(Binary, err)}
	}

	if err := cmd.Start(); err != nil {
		return Result{Error: errors.NewCommandStartError(Binary, err)}
	}

	tail := NewTailBuffer(MaxStderrBytes)
	var src io.Reader = stderr
	if opts.Sink != nil {
		src = io.TeeReader(stderr, opts.Sink)
	}
	parseProgress(src, tail, opts.Duration, opts.TotalFrames, opts.Callback)

	err = cmd.Wait()
	stderrStr := tail.String()

	if err != nil {
		if ctx.Err() != nil {
			return Result{Error: ctx.Err(), Stderr: stderrStr}
		}
		return Result{Error: errors.WrapExecError(Binary, err, LastLine(stderrStr)), Stderr: stderrStr}
	}

	return Result{Success: true, Stderr: stderrStr}
}

// parseProgress reads FFmpeg stderr and parses progress updates.
func parseProgress(stderr io.Reader, out io.Writer, duration float64, totalFrames uint64, callback ProgressCallback) {
	reader := bufio.NewReader(stderr)
	var lineBuf strings.Builder
	one := make([]byte, 1)

	for {
		b, err := reader.ReadByte()
		if err != nil {
			break
		}

		one[0] = b
		_, _ = out.Write(one)

		// Progress lines end with \r or \n
		if b == '\r' || b == '\n' {
			line := lineBuf.String()
			lineBuf.Reset()

			if callback != nil && strings.Contains(line, "frame=") {
				if progress := parseProgressLine(line, duration, totalFrames); progress != nil {
					callback(*progress)
				}
			}
		} else {
			lineBuf.WriteByte(b)
		}
	}
}

// field returns the token following key in an ffmpeg status line.
func field(line, key string) string {
	idx := strings.Index(line, key)
	if idx < 0 {
		return ""
	}
	remaining := strings.TrimLeft(line[idx+len(key):], " ")
	if end := strings.IndexAny(remaining, " \t\r\n"); end >= 0 {
		remaining = remaining[:end]
	}
	return remaining
}

// parseProgressLine extracts progress information from an FFmpeg progress line.
func parseProgressLine(line string, duration float64, totalFrames uint64) *Progress {
	var elapsedSecs float64
	if matches := timeRegex.FindStringSubmatch(line); len(matches) >= 2 {
		if secs, ok := util.ParseFFmpegTime(matches[1]); ok {
			elapsedSecs = secs
		}
	}

	var frame uint64
	if f, err := strconv.ParseUint(field(line, "frame="), 10, 64); err == nil {
		frame = f
	}

	var fps, speed float32
	if f, err := strconv.ParseFloat(field(line, "fps="), 32); err == nil {
		fps = float32(f)
	}
	if s, err := strconv.ParseFloat(strings.TrimSuffix(field(line, "speed="), "x"), 32); err == nil {
		speed = float32(s)
	}
	bitrate := field(line, "bitrate=")

	var percent float32
	switch {
	case duration > 0:
		percent = float32((elapsedSecs / duration) * 100)
	case totalFrames > 0:
		percent = float32(float64(frame) / float64(totalFrames) * 100)
	}
	if percent > 100 {
		percent = 100
	}

	var eta time.Duration
	if speed > 0 && duration > 0 {
		remainingDuration := duration - elapsedSecs
		eta = time.Duration(remainingDuration/float64(speed)) * time.Second
	}

	return &Progress{
		CurrentFrame: frame,
		TotalFrames:  totalFrames,
		Percent:      percent,
		Speed:        speed,
		FPS:          fps,
		ETA:          eta,
		Bitrate:      bitrate,
		ElapsedSecs:  elapsedSecs,
	}
}

// TailBuffer keeps the last max bytes written to it. It backs the bounded
// stderr capture of every ffmpeg process.
type TailBuffer struct {
	max int
	buf []byte
}

// NewTailBuffer returns a TailBuffer holding at most max bytes.
func NewTailBuffer(max int) *TailBuffer {
	return &TailBuffer{max: max}
}

func (t *TailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *TailBuffer) String() string {
	return string(t.buf)
}

// LastLine returns the last non-empty line of s, the usual ffmpeg error.
func LastLine(s string) string {
	lines := strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' })
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
