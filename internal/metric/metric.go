// Package metric implements per-frame fidelity scorers.
package metric

import (
	"fmt"
	"strings"

	"github.com/five82/rdsweep/internal/errors"
	"github.com/five82/rdsweep/internal/frame"
)

// MaxSample is the peak 8-bit sample value.
const MaxSample = 255.0

// Scorer scores one reconciled frame pair. Implementations are stateless and
// safe to reuse across pairs and cells.
type Scorer interface {
	Name() string
	Score(ref, cand *frame.Frame) (float64, error)
}

// ByName returns the scorer registered under name.
func ByName(name string) (Scorer, error) {
	switch strings.ToLower(name) {
	case "psnr":
		return PSNR{}, nil
	case "ssim":
		return SSIM{}, nil
	default:
		return nil, fmt.Errorf("unknown scorer %q", name)
	}
}

// ByNames resolves a list of scorer names, preserving order.
func ByNames(names []string) ([]Scorer, error) {
	out := make([]Scorer, 0, len(names))
	for _, n := range names {
		s, err := ByName(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func checkPair(ref, cand *frame.Frame) error {
	if ref.Empty() {
		return errors.NewDimensionError(ref.Width, ref.Height)
	}
	if !ref.SameSize(cand) {
		return errors.NewSizeMismatchError(ref.Width, ref.Height, cand.Width, cand.Height)
	}
	return nil
}
