// Package validation provides post-encode validation checks.
package validation

// MediaAnalyzer provides media analysis capabilities for validation.
// This interface allows validation logic to be tested without external tools.
type MediaAnalyzer interface {
	// GetVideoProperties returns video stream properties for the given file.
	GetVideoProperties(path string) (*AnalyzerVideoProperties, error)
}

// AnalyzerVideoProperties contains video stream information needed for validation.
type AnalyzerVideoProperties struct {
	Width        int
	Height       int
	DurationSecs float64
	TotalFrames  uint64
	CodecName    string
}
