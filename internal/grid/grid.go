// Package grid defines the (resolution, bitrate) parameter grid swept by rdsweep.
package grid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors for grid parsing.
var (
	// ErrInvalidResolution indicates a resolution that is not "<W>x<H>" with positive sides.
	ErrInvalidResolution = errors.New("invalid resolution")

	// ErrInvalidBitrate indicates a bitrate that is not a positive "<N>k" value.
	ErrInvalidBitrate = errors.New("invalid bitrate")
)

// Resolution is a target frame size for the encoder.
type Resolution struct {
	Width  int
	Height int
}

// String returns the encoder form "<W>x<H>".
func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// ParseResolution parses "<W>x<H>" (case-insensitive separator).
func ParseResolution(s string) (Resolution, error) {
	s = strings.TrimSpace(s)
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return Resolution{}, fmt.Errorf("%w: %q, expected <W>x<H>", ErrInvalidResolution, s)
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return Resolution{}, fmt.Errorf("%w: %q has a bad width", ErrInvalidResolution, s)
	}
	height, err := strconv.Atoi(h)
	if err != nil || height <= 0 {
		return Resolution{}, fmt.Errorf("%w: %q has a bad height", ErrInvalidResolution, s)
	}
	return Resolution{Width: width, Height: height}, nil
}

// ParseResolutions parses a list of resolutions, preserving order.
func ParseResolutions(values []string) ([]Resolution, error) {
	out := make([]Resolution, 0, len(values))
	for _, v := range values {
		r, err := ParseResolution(v)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Bitrate is a target video bitrate in kilobits per second.
type Bitrate int

// String returns the encoder form "<N>k".
func (b Bitrate) String() string {
	return fmt.Sprintf("%dk", int(b))
}

// ParseBitrate parses "<N>k" or a bare "<N>" as kilobits per second.
func ParseBitrate(s string) (Bitrate, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(s), "k"))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q, expected <N>k", ErrInvalidBitrate, s)
	}
	return Bitrate(n), nil
}

// ParseBitrates parses a list of bitrates, preserving order.
func ParseBitrates(values []string) ([]Bitrate, error) {
	out := make([]Bitrate, 0, len(values))
	for _, v := range values {
		b, err := ParseBitrate(v)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// BitrateRange returns min..max inclusive in steps of step kbps.
func BitrateRange(min, max, step int) ([]Bitrate, error) {
	if min <= 0 || step <= 0 || max < min {
		return nil, fmt.Errorf("%w: range %d..%d step %d", ErrInvalidBitrate, min, max, step)
	}
	var out []Bitrate
	for b := min; b <= max; b += step {
		out = append(out, Bitrate(b))
	}
	return out, nil
}

// Cell is one (resolution, bitrate) combination under sweep.
type Cell struct {
	Resolution Resolution
	Bitrate    Bitrate
}

// String returns "<W>x<H>@<N>k".
func (c Cell) String() string {
	return c.Resolution.String() + "@" + c.Bitrate.String()
}

// Enumerate returns every cell in sweep order: bitrate is the outer axis and
// resolution the inner one, so a completed bitrate forms one table row.
func Enumerate(resolutions []Resolution, bitrates []Bitrate) []Cell {
	cells := make([]Cell, 0, len(resolutions)*len(bitrates))
	for _, b := range bitrates {
		for _, r := range resolutions {
			cells = append(cells, Cell{Resolution: r, Bitrate: b})
		}
	}
	return cells
}
