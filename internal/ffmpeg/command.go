package ffmpeg

import "strconv"

// Binary is the ffmpeg executable name.
var Binary = "ffmpeg"

// EncodeParams describes one encode of the source at a target size and bitrate.
type EncodeParams struct {
	Input      string
	Output     string
	Resolution string // "<W>x<H>"
	Bitrate    string // "<N>k"
	Codec      string
	Preset     string
	Threads    int // 0 lets the encoder decide
}

// BuildEncodeArgs returns the ffmpeg arguments for an encode. Audio is
// dropped since only video fidelity is scored.
func BuildEncodeArgs(p *EncodeParams) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-i", p.Input,
		"-an",
		"-s", p.Resolution,
		"-b:v", p.Bitrate,
		"-vcodec", p.Codec,
		"-preset", p.Preset,
	}
	if p.Threads > 0 {
		args = append(args, "-threads", strconv.Itoa(p.Threads))
	}
	return append(args, "-y", p.Output)
}

// BuildDecodeArgs returns the ffmpeg arguments that decode input to packed
// rgb24 frames on stdout.
func BuildDecodeArgs(input string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-v", "error",
		"-i", input,
		"-map", "0:v:0",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-",
	}
}
