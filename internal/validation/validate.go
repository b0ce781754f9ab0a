package validation

import (
	"fmt"
	"math"
	"os"
)

const (
	// durationToleranceSecs is the maximum allowed difference in duration between source and artifact.
	durationToleranceSecs = 1.0
)

// Options contains optional parameters for validation.
type Options struct {
	ExpectedDimensions *[2]int
	ExpectedDuration   *float64
}

// ValidateArtifact checks that an encoded cell exists, holds a video stream,
// and was scaled to width x height.
func ValidateArtifact(analyzer MediaAnalyzer, path string, width, height int) (*Result, error) {
	return ValidateWithAnalyzer(analyzer, path, Options{
		ExpectedDimensions: &[2]int{width, height},
	})
}

// validateDimensions checks that dimensions match expected values.
func validateDimensions(actualW, actualH, expectedW, expectedH int) (bool, string) {
	if actualW == expectedW && actualH == expectedH {
		return true, fmt.Sprintf("Dimensions match: %dx%d", actualW, actualH)
	}
	return false, fmt.Sprintf("Dimension mismatch: got %dx%d, expected %dx%d",
		actualW, actualH, expectedW, expectedH)
}

// validateDuration checks that duration is within acceptable tolerance.
func validateDuration(actual, expected float64) (bool, string) {
	diff := math.Abs(actual - expected)

	if diff <= durationToleranceSecs {
		return true, fmt.Sprintf("Duration matches source (%.1fs)", actual)
	}
	return false, fmt.Sprintf("Duration mismatch: got %.1fs, expected %.1fs (diff: %.1fs)",
		actual, expected, diff)
}

// ValidateWithAnalyzer performs validation using a MediaAnalyzer interface.
// Analyzer failures are recorded as a missing video stream, not returned;
// only an unreadable path is an error.
func ValidateWithAnalyzer(analyzer MediaAnalyzer, path string, opts Options) (*Result, error) {
	result := &Result{
		Path:              path,
		IsSizeCorrect:     true,
		IsDurationCorrect: true,
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			result.DimensionMessage = "Not checked"
			result.DurationMessage = "Not checked"
			return result, nil
		}
		return nil, fmt.Errorf("failed to stat artifact: %w", err)
	}
	result.Exists = true
	result.SizeBytes = uint64(info.Size())
	result.IsNonEmpty = info.Size() > 0
	if !result.IsNonEmpty {
		result.DimensionMessage = "Not checked"
		result.DurationMessage = "Not checked"
		return result, nil
	}

	props, err := analyzer.GetVideoProperties(path)
	if err != nil {
		result.DimensionMessage = "Not checked"
		result.DurationMessage = "Not checked"
		return result, nil
	}
	result.HasVideo = true
	result.CodecName = props.CodecName

	if opts.ExpectedDimensions != nil {
		result.ActualDimensions = &[2]int{props.Width, props.Height}
		result.ExpectedDimensions = opts.ExpectedDimensions
		result.IsSizeCorrect, result.DimensionMessage = validateDimensions(
			props.Width, props.Height,
			opts.ExpectedDimensions[0], opts.ExpectedDimensions[1],
		)
	} else {
		result.DimensionMessage = "Frame size validation skipped"
	}

	if opts.ExpectedDuration != nil {
		actualDur := props.DurationSecs
		result.ActualDuration = &actualDur
		result.ExpectedDuration = opts.ExpectedDuration
		result.IsDurationCorrect, result.DurationMessage = validateDuration(actualDur, *opts.ExpectedDuration)
	} else {
		result.DurationMessage = "Duration validation skipped"
	}

	return result, nil
}
