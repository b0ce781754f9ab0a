// Package reconcile resizes candidate frames to the reference geometry.
package reconcile

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/five82/rdsweep/internal/errors"
	"github.com/five82/rdsweep/internal/frame"
	"github.com/five82/rdsweep/internal/stream"
)

// Interpolator used for every resample. Bilinear matches the decoder-side
// default of the original sweep.
var Interpolator draw.Interpolator = draw.BiLinear

// Frame returns cand resampled to ref's width and height. The reference is
// never modified. When sizes already match, cand is returned unchanged.
func Frame(ref, cand *frame.Frame) (*frame.Frame, error) {
	if ref.Empty() {
		return nil, errors.NewDimensionError(ref.Width, ref.Height)
	}
	if ref.SameSize(cand) {
		return cand, nil
	}
	if cand.Empty() {
		return nil, errors.NewDimensionError(cand.Width, cand.Height)
	}

	dr := image.Rect(0, 0, ref.Width, ref.Height)
	src := cand.Image()

	if cand.Channels == frame.Gray {
		dst := image.NewGray(dr)
		Interpolator.Scale(dst, dr, src, src.Bounds(), draw.Src, nil)
		return frame.FromGray(dst), nil
	}

	dst := image.NewRGBA(dr)
	Interpolator.Scale(dst, dr, src, src.Bounds(), draw.Src, nil)
	return frame.FromRGBA(dst), nil
}

// Pair reconciles one frame pair in place of its candidate.
func Pair(p stream.Pair) (stream.Pair, error) {
	cand, err := Frame(p.Reference, p.Candidate)
	if err != nil {
		return stream.Pair{}, err
	}
	p.Candidate = cand
	return p, nil
}
