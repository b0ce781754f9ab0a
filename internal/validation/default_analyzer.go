package validation

import (
	"context"

	"github.com/five82/rdsweep/internal/ffprobe"
)

// DefaultAnalyzer implements MediaAnalyzer using ffprobe.
type DefaultAnalyzer struct{}

// NewDefaultAnalyzer creates a new DefaultAnalyzer instance.
func NewDefaultAnalyzer() *DefaultAnalyzer {
	return &DefaultAnalyzer{}
}

// GetVideoProperties returns video stream properties using ffprobe.
func (a *DefaultAnalyzer) GetVideoProperties(path string) (*AnalyzerVideoProperties, error) {
	info, err := ffprobe.Probe(context.Background(), path)
	if err != nil {
		return nil, err
	}
	return &AnalyzerVideoProperties{
		Width:        info.Width,
		Height:       info.Height,
		DurationSecs: info.DurationSecs,
		TotalFrames:  info.TotalFrames,
		CodecName:    info.CodecName,
	}, nil
}
