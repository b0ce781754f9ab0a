// Package encoder produces one encoded artifact per grid cell.
package encoder

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/five82/rdsweep/internal/errors"
	"github.com/five82/rdsweep/internal/ffmpeg"
	"github.com/five82/rdsweep/internal/grid"
	"github.com/five82/rdsweep/internal/logging"
	"github.com/five82/rdsweep/internal/util"
)

// Params identifies one encode.
type Params struct {
	Source string
	Output string
	Cell   grid.Cell
}

// Artifact is a successfully encoded file.
type Artifact struct {
	Path      string
	SizeBytes uint64
	Elapsed   time.Duration
}

// Encoder turns the source into an artifact for one cell. A failed encode
// returns an Encode error and leaves no file at Params.Output.
type Encoder interface {
	Encode(ctx context.Context, p Params) (Artifact, error)
}

// ArtifactPath returns "output_<W>x<H>_<N>k<ext>" inside dir.
func ArtifactPath(dir string, cell grid.Cell, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("output_%s_%s%s", cell.Resolution, cell.Bitrate, ext))
}

// FFmpeg encodes by running the ffmpeg CLI.
type FFmpeg struct {
	Codec   string
	Preset  string
	Threads int

	// Timeout bounds a single encode. Zero waits indefinitely.
	Timeout time.Duration

	// SourceDuration and SourceFrames feed progress percentages.
	SourceDuration float64
	SourceFrames   uint64

	// OnProgress receives parsed ffmpeg status lines.
	OnProgress ffmpeg.ProgressCallback

	// Sink receives raw encoder stderr. Nil discards it.
	Sink io.Writer
}

// Encode implements Encoder.
func (e *FFmpeg) Encode(ctx context.Context, p Params) (Artifact, error) {
	res, br := p.Cell.Resolution.String(), p.Cell.Bitrate.String()

	runCtx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	args := ffmpeg.BuildEncodeArgs(&ffmpeg.EncodeParams{
		Input:      p.Source,
		Output:     p.Output,
		Resolution: res,
		Bitrate:    br,
		Codec:      e.Codec,
		Preset:     e.Preset,
		Threads:    e.Threads,
	})
	logging.Debug("Running encoder", "resolution", res, "bitrate", br, "args", args)

	start := time.Now()
	result := ffmpeg.Run(runCtx, args, ffmpeg.RunOptions{
		Duration:    e.SourceDuration,
		TotalFrames: e.SourceFrames,
		Callback:    e.OnProgress,
		Sink:        e.Sink,
	})
	elapsed := time.Since(start)

	if !result.Success {
		if err := util.RemoveIfExists(p.Output); err != nil {
			logging.Warn("Failed to remove partial artifact", "path", p.Output, "error", err)
		}
		if ctx.Err() != nil {
			return Artifact{}, errors.NewCancelledError()
		}
		cause := result.Error
		if stderrors.Is(cause, context.DeadlineExceeded) {
			cause = fmt.Errorf("timed out after %s: %w", e.Timeout, cause)
		}
		return Artifact{}, errors.NewEncodeError(res, br, cause)
	}

	size, err := util.GetFileSize(p.Output)
	if err != nil {
		return Artifact{}, errors.NewEncodeError(res, br, fmt.Errorf("encoder exited cleanly but wrote no output: %w", err))
	}

	return Artifact{Path: p.Output, SizeBytes: size, Elapsed: elapsed}, nil
}
