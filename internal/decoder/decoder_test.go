package decoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	rderrors "github.com/five82/rdsweep/internal/errors"
	"github.com/five82/rdsweep/internal/ffmpeg"
	"github.com/five82/rdsweep/internal/ffprobe"
)

// streamInfoJSON describes a 4x2 video, so one rgb24 frame is 24 bytes.
const streamInfoJSON = `{"streams":[{"codec_type":"video","codec_name":"rawvideo","width":4,"height":2,"r_frame_rate":"25/1"}],"format":{"duration":"1.0"}}`

const frameBytes = 4 * 2 * 3

// fakeTools installs shell scripts as ffprobe and ffmpeg for one test.
func fakeTools(t *testing.T, ffmpegBody string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes require a POSIX shell")
	}
	dir := t.TempDir()

	infoBin := filepath.Join(dir, "ffprobe")
	if err := os.WriteFile(infoBin, []byte("#!/bin/sh\ncat <<'EOF'\n"+streamInfoJSON+"\nEOF\n"), 0755); err != nil {
		t.Fatal(err)
	}
	enc := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(enc, []byte("#!/bin/sh\n"+ffmpegBody), 0755); err != nil {
		t.Fatal(err)
	}

	prevInfo, prevFFmpeg := ffprobe.Binary, ffmpeg.Binary
	ffprobe.Binary, ffmpeg.Binary = infoBin, enc
	t.Cleanup(func() {
		ffprobe.Binary, ffmpeg.Binary = prevInfo, prevFFmpeg
	})
}

// drain reads src to the end and returns the frame count and final error.
func drain(t *testing.T, path string) (int, error) {
	t.Helper()
	src, err := FFmpeg{}.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer src.Close()

	n := 0
	for {
		f, err := src.Next()
		if err != nil {
			return n, err
		}
		if f.Width != 4 || f.Height != 2 || len(f.Pix) != frameBytes {
			t.Fatalf("frame %d is %dx%d with %d bytes", n, f.Width, f.Height, len(f.Pix))
		}
		n++
	}
}

func TestFFmpegReadsAllFrames(t *testing.T) {
	fakeTools(t, fmt.Sprintf("head -c %d /dev/zero\n", 3*frameBytes))

	n, err := drain(t, "clip.mp4")
	if !errors.Is(err, io.EOF) {
		t.Fatalf("final error = %v, want io.EOF", err)
	}
	if n != 3 {
		t.Errorf("read %d frames, want 3", n)
	}
}

func TestFFmpegShortFinalFrameEndsStream(t *testing.T) {
	fakeTools(t, fmt.Sprintf("head -c %d /dev/zero\n", 2*frameBytes+5))

	n, err := drain(t, "clip.mp4")
	if !errors.Is(err, io.EOF) || n != 2 {
		t.Errorf("read %d frames ending with %v, want 2 and io.EOF", n, err)
	}
}

func TestFFmpegExitFailureIsDecodeError(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantFrames int
	}{
		{
			name:       "fails before output",
			body:       "echo 'clip.mp4: Invalid data found when processing input' >&2\nexit 1\n",
			wantFrames: 0,
		},
		{
			name: "fails mid stream",
			body: fmt.Sprintf("head -c %d /dev/zero\necho 'Invalid data found when processing input' >&2\nexit 1\n",
				2*frameBytes),
			wantFrames: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fakeTools(t, tt.body)

			n, err := drain(t, "clip.mp4")
			if n != tt.wantFrames {
				t.Errorf("read %d frames, want %d", n, tt.wantFrames)
			}
			if errors.Is(err, io.EOF) {
				t.Fatal("a failed decoder must not look like a clean end of stream")
			}
			if !rderrors.IsKind(err, rderrors.KindDecode) {
				t.Fatalf("error = %v, want Decode error", err)
			}
			if !strings.Contains(err.Error(), "Invalid data found") {
				t.Errorf("error = %q, want the ffmpeg stderr tail", err)
			}
			if !strings.Contains(err.Error(), "exit code 1") {
				t.Errorf("error = %q, want the exit code", err)
			}
		})
	}
}

func TestFFmpegCloseStopsRunningDecoder(t *testing.T) {
	// Streams frames until killed.
	fakeTools(t, "exec cat /dev/zero\n")

	src, err := FFmpeg{}.Open(context.Background(), "clip.mp4")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := src.Next(); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if err := src.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := src.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if ps := src.(*pipeSource).cmd.ProcessState; ps == nil {
		t.Error("decoder process was not reaped")
	}
}

func TestFFmpegIndependentOpens(t *testing.T) {
	fakeTools(t, fmt.Sprintf("head -c %d /dev/zero\n", 3*frameBytes))

	a, err := FFmpeg{}.Open(context.Background(), "ref.y4m")
	if err != nil {
		t.Fatal(err)
	}
	b, err := FFmpeg{}.Open(context.Background(), "cand.mp4")
	if err != nil {
		t.Fatal(err)
	}

	_, _ = a.Next()
	_ = a.Close()

	// b starts from frame zero regardless of a.
	n := 0
	for {
		if _, err := b.Next(); err != nil {
			break
		}
		n++
	}
	_ = b.Close()
	if n != 3 {
		t.Errorf("second source read %d frames, want 3", n)
	}
}

func TestFFmpegOpenWithoutStreamInfo(t *testing.T) {
	prev := ffprobe.Binary
	ffprobe.Binary = filepath.Join(t.TempDir(), "no-ffprobe")
	t.Cleanup(func() { ffprobe.Binary = prev })

	_, err := FFmpeg{}.Open(context.Background(), "clip.mp4")
	if !rderrors.IsKind(err, rderrors.KindDecode) {
		t.Errorf("Open() error = %v, want Decode error", err)
	}
}

func TestFFmpegOpenStartFailure(t *testing.T) {
	fakeTools(t, "")
	ffmpeg.Binary = filepath.Join(t.TempDir(), "no-ffmpeg")

	_, err := FFmpeg{}.Open(context.Background(), "clip.mp4")
	if !rderrors.IsKind(err, rderrors.KindDecode) {
		t.Errorf("Open() error = %v, want Decode error", err)
	}
}
