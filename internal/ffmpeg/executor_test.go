package ffmpeg

import (
	"slices"
	"strings"
	"testing"
	"time"
)

func TestBuildEncodeArgs(t *testing.T) {
	args := BuildEncodeArgs(&EncodeParams{
		Input:      "1080_test.y4m",
		Output:     "output_640x480_1000k.mp4",
		Resolution: "640x480",
		Bitrate:    "1000k",
		Codec:      "libx264",
		Preset:     "slow",
	})

	joined := strings.Join(args, " ")
	for _, want := range []string{
		"-i 1080_test.y4m",
		"-s 640x480",
		"-b:v 1000k",
		"-vcodec libx264",
		"-preset slow",
		"-y output_640x480_1000k.mp4",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
	if slices.Contains(args, "-threads") {
		t.Error("-threads should be omitted when Threads is 0")
	}
	if args[len(args)-1] != "output_640x480_1000k.mp4" {
		t.Errorf("output must be the last argument, got %q", args[len(args)-1])
	}

	withThreads := BuildEncodeArgs(&EncodeParams{Threads: 4})
	if !strings.Contains(strings.Join(withThreads, " "), "-threads 4") {
		t.Error("-threads 4 missing")
	}
}

func TestBuildDecodeArgs(t *testing.T) {
	joined := strings.Join(BuildDecodeArgs("in.mp4"), " ")
	for _, want := range []string{"-i in.mp4", "-f rawvideo", "-pix_fmt rgb24"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
	if !strings.HasSuffix(joined, " -") {
		t.Errorf("decode must write to stdout, got %q", joined)
	}
}

func TestParseProgressLine(t *testing.T) {
	line := "frame=  150 fps= 30 q=28.0 size=    1024kB time=00:00:05.00 bitrate=1677.7kbits/s speed=1.5x"

	p := parseProgressLine(line, 10, 300)
	if p.CurrentFrame != 150 {
		t.Errorf("CurrentFrame = %d, want 150", p.CurrentFrame)
	}
	if p.FPS != 30 {
		t.Errorf("FPS = %v, want 30", p.FPS)
	}
	if p.Speed != 1.5 {
		t.Errorf("Speed = %v, want 1.5", p.Speed)
	}
	if p.Bitrate != "1677.7kbits/s" {
		t.Errorf("Bitrate = %q", p.Bitrate)
	}
	if p.ElapsedSecs != 5 || p.Percent != 50 {
		t.Errorf("ElapsedSecs = %v, Percent = %v; want 5, 50", p.ElapsedSecs, p.Percent)
	}
	// 5s of input left at 1.5x.
	if p.ETA != 3*time.Second {
		t.Errorf("ETA = %v, want 3s", p.ETA)
	}
}

func TestParseProgressLineFramesOnly(t *testing.T) {
	p := parseProgressLine("frame=   75 fps=0.0 q=0.0 size=N/A time=N/A bitrate=N/A speed=N/A", 0, 300)
	if p.Percent != 25 {
		t.Errorf("Percent = %v, want 25 from frame count", p.Percent)
	}
	if p.Speed != 0 || p.ETA != 0 {
		t.Errorf("Speed = %v, ETA = %v; want zero", p.Speed, p.ETA)
	}
}

func TestParseProgress(t *testing.T) {
	stderr := "Input #0, yuv4mpegpipe\rframe=   10 fps=5 time=00:00:01.00 speed=1x\rframe=   20 fps=5 time=00:00:02.00 speed=1x\nError while encoding\n"

	var got []uint64
	var out strings.Builder
	parseProgress(strings.NewReader(stderr), &out, 4, 0, func(p Progress) {
		got = append(got, p.CurrentFrame)
	})

	if !slices.Equal(got, []uint64{10, 20}) {
		t.Errorf("frames = %v, want [10 20]", got)
	}
	if out.String() != stderr {
		t.Error("stderr was not copied through")
	}
	if LastLine(out.String()) != "Error while encoding" {
		t.Errorf("LastLine() = %q", LastLine(out.String()))
	}
}

func TestTailBuffer(t *testing.T) {
	tb := NewTailBuffer(5)
	_, _ = tb.Write([]byte("abc"))
	_, _ = tb.Write([]byte("defgh"))
	if tb.String() != "defgh" {
		t.Errorf("tail = %q, want defgh", tb.String())
	}
}
