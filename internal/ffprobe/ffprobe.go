// Package ffprobe provides functions for extracting media information using ffprobe.
package ffprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/five82/rdsweep/internal/errors"
)

// VideoInfo contains the properties of the first video stream.
type VideoInfo struct {
	Width        int
	Height       int
	DurationSecs float64
	TotalFrames  uint64
	FrameRate    float64
	CodecName    string
	PixFmt       string
	SizeBytes    uint64
}

// ffprobeOutput represents the JSON output from ffprobe.
type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
	Size     string `json:"size"`
}

type ffprobeStream struct {
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	NbFrames     string `json:"nb_frames"`
	PixFmt       string `json:"pix_fmt"`
	AvgFrameRate string `json:"avg_frame_rate"`
	RFrameRate   string `json:"r_frame_rate"`
	Duration     string `json:"duration"`
}

// Binary is the ffprobe executable name.
var Binary = "ffprobe"

// runFFprobe executes ffprobe and returns the parsed output.
func runFFprobe(ctx context.Context, inputPath string) (*ffprobeOutput, error) {
	cmd := exec.CommandContext(ctx, Binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, errors.NewProbeError(fmt.Sprintf("ffprobe failed for %s", inputPath), err)
	}

	return parseFFprobeOutput(output)
}

func parseFFprobeOutput(data []byte) (*ffprobeOutput, error) {
	var result ffprobeOutput
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.NewProbeError("failed to parse ffprobe output", err)
	}
	return &result, nil
}

// Probe returns the video properties of a file.
func Probe(ctx context.Context, inputPath string) (*VideoInfo, error) {
	probe, err := runFFprobe(ctx, inputPath)
	if err != nil {
		return nil, err
	}
	return extractVideoInfo(probe, inputPath)
}

func extractVideoInfo(probe *ffprobeOutput, inputPath string) (*VideoInfo, error) {
	var video *ffprobeStream
	for i := range probe.Streams {
		if probe.Streams[i].CodecType == "video" {
			video = &probe.Streams[i]
			break
		}
	}
	if video == nil {
		return nil, errors.NewProbeError(fmt.Sprintf("no video stream found in %s", inputPath), nil)
	}
	if video.Width <= 0 || video.Height <= 0 {
		return nil, errors.NewProbeError(fmt.Sprintf("invalid dimensions in %s: %dx%d", inputPath, video.Width, video.Height), nil)
	}

	info := &VideoInfo{
		Width:     video.Width,
		Height:    video.Height,
		CodecName: video.CodecName,
		PixFmt:    video.PixFmt,
	}

	// Raw y4m inputs carry no format duration; fall back to the stream's.
	for _, d := range []string{probe.Format.Duration, video.Duration} {
		if d == "" {
			continue
		}
		if v, err := strconv.ParseFloat(d, 64); err == nil {
			info.DurationSecs = v
			break
		}
	}

	if video.NbFrames != "" {
		if frames, err := strconv.ParseUint(video.NbFrames, 10, 64); err == nil {
			info.TotalFrames = frames
		}
	}

	info.FrameRate = parseFrameRate(video.AvgFrameRate)
	if info.FrameRate == 0 {
		info.FrameRate = parseFrameRate(video.RFrameRate)
	}
	if info.TotalFrames == 0 && info.FrameRate > 0 && info.DurationSecs > 0 {
		info.TotalFrames = uint64(info.DurationSecs*info.FrameRate + 0.5)
	}

	if probe.Format.Size != "" {
		if size, err := strconv.ParseUint(probe.Format.Size, 10, 64); err == nil {
			info.SizeBytes = size
		}
	}

	return info, nil
}

// parseFrameRate parses "num/den" or a plain number. Returns 0 if unparseable.
func parseFrameRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return v
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}
