// Package decoder opens videos as forward-only frame sources.
package decoder

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/five82/rdsweep/internal/errors"
	"github.com/five82/rdsweep/internal/ffmpeg"
	"github.com/five82/rdsweep/internal/ffprobe"
	"github.com/five82/rdsweep/internal/frame"
	"github.com/five82/rdsweep/internal/stream"
)

// Opener opens a video file as a frame source. Every call returns an
// independent source positioned at frame zero.
type Opener interface {
	Open(ctx context.Context, path string) (stream.Source, error)
}

// FFmpeg decodes through an ffmpeg process writing packed rgb24 to a pipe.
type FFmpeg struct{}

// Open implements Opener.
func (FFmpeg) Open(ctx context.Context, path string) (stream.Source, error) {
	info, err := ffprobe.Probe(ctx, path)
	if err != nil {
		return nil, errors.NewDecodeError(fmt.Sprintf("cannot probe %s", path), err)
	}

	stderr := ffmpeg.NewTailBuffer(ffmpeg.MaxStderrBytes)
	cmd := exec.CommandContext(ctx, ffmpeg.Binary, ffmpeg.BuildDecodeArgs(path)...)
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.NewDecodeError(fmt.Sprintf("cannot open %s", path), err)
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.NewDecodeError(fmt.Sprintf("cannot open %s", path), errors.NewCommandStartError(ffmpeg.Binary, err))
	}

	return &pipeSource{
		path:   path,
		width:  info.Width,
		height: info.Height,
		cmd:    cmd,
		r:      stdout,
		stderr: stderr,
	}, nil
}

// pipeSource reads fixed-size rgb24 frames from a decoder process.
type pipeSource struct {
	path          string
	width, height int
	cmd           *exec.Cmd
	r             io.Reader
	stderr        *ffmpeg.TailBuffer

	waitOnce  sync.Once
	waitErr   error
	closeOnce sync.Once
}

// Next implements stream.Source. The stream ends when the decoder closes its
// output and exits cleanly; a short final frame is dropped. A non-zero exit
// is a decode error carrying the tail of ffmpeg's stderr.
func (s *pipeSource) Next() (*frame.Frame, error) {
	buf := make([]byte, frame.FrameSize(s.width, s.height, frame.RGB))
	if _, err := io.ReadFull(s.r, buf); err != nil {
		if stderrors.Is(err, io.EOF) || stderrors.Is(err, io.ErrUnexpectedEOF) {
			return nil, s.finish()
		}
		return nil, errors.NewDecodeError(fmt.Sprintf("read frame from %s", s.path), err)
	}
	return &frame.Frame{Width: s.width, Height: s.height, Channels: frame.RGB, Pix: buf}, nil
}

// finish reaps the decoder once its output is drained.
func (s *pipeSource) finish() error {
	err := s.wait()
	if err == nil {
		return io.EOF
	}
	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		return errors.NewDecodeError(fmt.Sprintf("ffmpeg failed decoding %s", s.path),
			errors.WrapExecError(ffmpeg.Binary, err, ffmpeg.LastLine(s.stderr.String())))
	}
	return errors.NewDecodeError(fmt.Sprintf("ffmpeg failed decoding %s", s.path),
		errors.NewCommandWaitError(ffmpeg.Binary, err))
}

func (s *pipeSource) wait() error {
	s.waitOnce.Do(func() {
		s.waitErr = s.cmd.Wait()
	})
	return s.waitErr
}

// Close implements stream.Source. The decoder is killed if it is still
// running and always reaped.
func (s *pipeSource) Close() error {
	s.closeOnce.Do(func() {
		if s.cmd.ProcessState == nil && s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		// Wait reports the kill as an error; it is not a decode failure.
		_ = s.wait()
	})
	return nil
}
