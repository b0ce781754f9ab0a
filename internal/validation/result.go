package validation

import "fmt"

// Result contains the overall validation result for one artifact.
type Result struct {
	Exists            bool
	IsNonEmpty        bool
	HasVideo          bool
	IsSizeCorrect     bool
	IsDurationCorrect bool

	// Details
	Path               string
	SizeBytes          uint64
	CodecName          string
	ActualDimensions   *[2]int
	ExpectedDimensions *[2]int
	DimensionMessage   string
	ActualDuration     *float64
	ExpectedDuration   *float64
	DurationMessage    string
}

// ValidationStep represents a single validation check.
type ValidationStep struct {
	Name    string
	Passed  bool
	Details string
}

// IsValid returns true if all validation checks passed.
func (r *Result) IsValid() bool {
	return r.Exists &&
		r.IsNonEmpty &&
		r.HasVideo &&
		r.IsSizeCorrect &&
		r.IsDurationCorrect
}

// IsScorable reports whether the artifact can be decoded at all. Size and
// duration mismatches still allow scoring.
func (r *Result) IsScorable() bool {
	return r.Exists && r.IsNonEmpty && r.HasVideo
}

// GetValidationSteps returns all validation steps with results.
func (r *Result) GetValidationSteps() []ValidationStep {
	return []ValidationStep{
		{
			Name:    "Artifact file",
			Passed:  r.Exists && r.IsNonEmpty,
			Details: formatFileDetails(r),
		},
		{
			Name:    "Video stream",
			Passed:  r.HasVideo,
			Details: formatCodecDetails(r.CodecName, r.HasVideo),
		},
		{
			Name:    "Frame size",
			Passed:  r.IsSizeCorrect,
			Details: r.DimensionMessage,
		},
		{
			Name:    "Video duration",
			Passed:  r.IsDurationCorrect,
			Details: r.DurationMessage,
		},
	}
}

// GetFailures returns descriptions of failed validation checks.
func (r *Result) GetFailures() []string {
	var failures []string
	for _, step := range r.GetValidationSteps() {
		if !step.Passed {
			failures = append(failures, step.Name+": "+step.Details)
		}
	}
	return failures
}

func formatFileDetails(r *Result) string {
	switch {
	case !r.Exists:
		return "Missing: " + r.Path
	case !r.IsNonEmpty:
		return "Empty file: " + r.Path
	default:
		return fmt.Sprintf("%d bytes", r.SizeBytes)
	}
}

func formatCodecDetails(codecName string, passed bool) string {
	if passed {
		if codecName != "" {
			return "Video codec " + codecName
		}
		return "Video stream present"
	}
	return "No decodable video stream"
}
