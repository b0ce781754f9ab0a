package metric

import (
	"fmt"
	"math"

	"github.com/five82/rdsweep/internal/frame"
)

// PSNR is the peak signal-to-noise ratio over every colour sample.
// Bit-identical frames score +Inf.
type PSNR struct{}

// Name implements Scorer.
func (PSNR) Name() string { return "psnr" }

// Score implements Scorer.
func (PSNR) Score(ref, cand *frame.Frame) (float64, error) {
	if err := checkPair(ref, cand); err != nil {
		return 0, err
	}
	if ref.Channels != cand.Channels {
		return 0, fmt.Errorf("psnr: channel mismatch %d vs %d", ref.Channels, cand.Channels)
	}

	mse := MSE(ref.Pix, cand.Pix)
	return PSNRFromMSE(mse), nil
}

// MSE returns the mean squared difference of two equal-length sample slices.
func MSE(a, b []byte) float64 {
	if len(a) == 0 {
		return 0
	}
	var sum uint64
	for i := range a {
		d := int64(a[i]) - int64(b[i])
		sum += uint64(d * d)
	}
	return float64(sum) / float64(len(a))
}

// PSNRFromMSE converts a mean squared error to decibels.
func PSNRFromMSE(mse float64) float64 {
	if mse == 0 {
		return math.Inf(1)
	}
	return 10 * math.Log10(MaxSample*MaxSample/mse)
}
