package metric

import (
	"github.com/five82/rdsweep/internal/errors"
	"github.com/five82/rdsweep/internal/frame"
)

// SSIM parameters: 7x7 uniform window with sample covariance.
const (
	SSIMWindow = 7
	ssimK1     = 0.01
	ssimK2     = 0.03
)

var (
	ssimC1 = (ssimK1 * MaxSample) * (ssimK1 * MaxSample)
	ssimC2 = (ssimK2 * MaxSample) * (ssimK2 * MaxSample)
)

// SSIM is the mean structural similarity of the luma planes. Colour frames
// are converted to intensity first; chroma does not contribute.
type SSIM struct{}

// Name implements Scorer.
func (SSIM) Name() string { return "ssim" }

// Score implements Scorer. The result is the mean over every window that
// lies fully inside the frame, clamped to [-1, 1].
func (SSIM) Score(ref, cand *frame.Frame) (float64, error) {
	if err := checkPair(ref, cand); err != nil {
		return 0, err
	}
	if ref.Width < SSIMWindow || ref.Height < SSIMWindow {
		return 0, errors.NewFrameTooSmallError(ref.Width, ref.Height, SSIMWindow)
	}

	x := ref.ToGray()
	y := cand.ToGray()
	return ssimGray(x.Pix, y.Pix, x.Width, x.Height), nil
}

// integral holds summed-area tables of x, y, x², y² and xy with a zero
// border row and column.
type integral struct {
	stride int
	sx     []int64
	sy     []int64
	sxx    []int64
	syy    []int64
	sxy    []int64
}

func newIntegral(x, y []byte, w, h int) *integral {
	stride := w + 1
	n := stride * (h + 1)
	in := &integral{
		stride: stride,
		sx:     make([]int64, n),
		sy:     make([]int64, n),
		sxx:    make([]int64, n),
		syy:    make([]int64, n),
		sxy:    make([]int64, n),
	}
	for r := 0; r < h; r++ {
		var rx, ry, rxx, ryy, rxy int64
		for c := 0; c < w; c++ {
			a := int64(x[r*w+c])
			b := int64(y[r*w+c])
			rx += a
			ry += b
			rxx += a * a
			ryy += b * b
			rxy += a * b

			i := (r+1)*stride + c + 1
			up := r*stride + c + 1
			in.sx[i] = in.sx[up] + rx
			in.sy[i] = in.sy[up] + ry
			in.sxx[i] = in.sxx[up] + rxx
			in.syy[i] = in.syy[up] + ryy
			in.sxy[i] = in.sxy[up] + rxy
		}
	}
	return in
}

// box sums table t over the window with top-left (r, c).
func (in *integral) box(t []int64, r, c, size int) int64 {
	s := in.stride
	return t[(r+size)*s+c+size] - t[r*s+c+size] - t[(r+size)*s+c] + t[r*s+c]
}

func ssimGray(x, y []byte, w, h int) float64 {
	const np = SSIMWindow * SSIMWindow
	covNorm := float64(np) / float64(np-1)
	in := newIntegral(x, y, w, h)

	var total float64
	windows := 0
	for r := 0; r+SSIMWindow <= h; r++ {
		for c := 0; c+SSIMWindow <= w; c++ {
			ux := float64(in.box(in.sx, r, c, SSIMWindow)) / np
			uy := float64(in.box(in.sy, r, c, SSIMWindow)) / np
			uxx := float64(in.box(in.sxx, r, c, SSIMWindow)) / np
			uyy := float64(in.box(in.syy, r, c, SSIMWindow)) / np
			uxy := float64(in.box(in.sxy, r, c, SSIMWindow)) / np

			vx := covNorm * (uxx - ux*ux)
			vy := covNorm * (uyy - uy*uy)
			vxy := covNorm * (uxy - ux*uy)

			num := (2*ux*uy + ssimC1) * (2*vxy + ssimC2)
			den := (ux*ux + uy*uy + ssimC1) * (vx + vy + ssimC2)
			total += num / den
			windows++
		}
	}

	return clamp(total/float64(windows), -1, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
