// Package config provides configuration types and defaults for rdsweep.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/five82/rdsweep/internal/grid"
)

// Default constants
const (
	// DefaultSourcePath is the reference video swept when none is given.
	DefaultSourcePath = "1080_test.y4m"

	// DefaultCodec is the ffmpeg video codec used for every cell.
	DefaultCodec = "libx264"

	// DefaultPreset is the fixed encoder quality preset.
	DefaultPreset = "slow"

	// DefaultBitrateMin is the lowest swept bitrate in kbps.
	DefaultBitrateMin = 1000

	// DefaultBitrateMax is the highest swept bitrate in kbps (inclusive).
	DefaultBitrateMax = 20000

	// DefaultBitrateStep is the bitrate increment in kbps.
	DefaultBitrateStep = 1000

	// DefaultArtifactContainer is the container extension for encoded cells.
	DefaultArtifactContainer = ".mp4"
)

// DefaultResolutions is the swept resolution list.
var DefaultResolutions = []string{"1920x1080", "1280x720", "720x480", "480x360"}

// Scorer names.
const (
	ScorerPSNR = "psnr"
	ScorerSSIM = "ssim"
)

// Retention controls whether encoded artifacts survive their cell.
type Retention string

const (
	// RetentionAuto deletes artifacts for PSNR-only sweeps and keeps them otherwise.
	RetentionAuto Retention = "auto"
	// RetentionKeep keeps every encoded artifact for inspection.
	RetentionKeep Retention = "keep"
	// RetentionDelete deletes each artifact once its cell is scored.
	RetentionDelete Retention = "delete"
)

// ParseRetention parses a string into a Retention.
func ParseRetention(s string) (Retention, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto", "":
		return RetentionAuto, nil
	case "keep":
		return RetentionKeep, nil
	case "delete":
		return RetentionDelete, nil
	default:
		return "", fmt.Errorf("%w: '%s', valid options: auto, keep, delete", ErrInvalidRetention, s)
	}
}

// ParseScorers parses a comma-separated scorer list, dropping duplicates.
func ParseScorers(s string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		if name != ScorerPSNR && name != ScorerSSIM {
			return nil, fmt.Errorf("%w: '%s', valid options: psnr, ssim", ErrInvalidScorer, part)
		}
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no scorer selected", ErrInvalidScorer)
	}
	return out, nil
}

// Config holds all configuration for a sweep.
type Config struct {
	// Input/output paths
	SourcePath  string
	OutputDir   string
	WorkDir     string // Optional, defaults to OutputDir
	LogDir      string
	MetricsFile string // Optional Prometheus textfile path

	// Grid
	Resolutions []grid.Resolution
	Bitrates    []grid.Bitrate

	// Scoring
	Scorers []string

	// Encoder parameters
	Codec         string
	Preset        string
	EncodeTimeout time.Duration // Zero means no timeout

	// Artifact handling
	Retention Retention

	// Optional PostgreSQL persistence
	DatabaseURL string
	SweepID     string
}

// NewConfig creates a new Config with default values.
func NewConfig(sourcePath, outputDir, logDir string) *Config {
	resolutions, _ := grid.ParseResolutions(DefaultResolutions)
	bitrates, _ := grid.BitrateRange(DefaultBitrateMin, DefaultBitrateMax, DefaultBitrateStep)
	return &Config{
		SourcePath:  sourcePath,
		OutputDir:   outputDir,
		LogDir:      logDir,
		Resolutions: resolutions,
		Bitrates:    bitrates,
		Scorers:     []string{ScorerSSIM},
		Codec:       DefaultCodec,
		Preset:      DefaultPreset,
		Retention:   RetentionAuto,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.SourcePath == "" {
		return fmt.Errorf("%w: source path", ErrMissingPath)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("%w: output directory", ErrMissingPath)
	}
	if len(c.Resolutions) == 0 {
		return fmt.Errorf("%w: no resolutions", ErrEmptyGrid)
	}
	if len(c.Bitrates) == 0 {
		return fmt.Errorf("%w: no bitrates", ErrEmptyGrid)
	}
	if len(c.Scorers) == 0 {
		return fmt.Errorf("%w: no scorer selected", ErrInvalidScorer)
	}
	for _, s := range c.Scorers {
		if s != ScorerPSNR && s != ScorerSSIM {
			return fmt.Errorf("%w: '%s'", ErrInvalidScorer, s)
		}
	}
	if _, err := ParseRetention(string(c.Retention)); err != nil {
		return err
	}
	if c.EncodeTimeout < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, c.EncodeTimeout)
	}
	return nil
}

// GetWorkDir returns the artifact directory, falling back to OutputDir if not set.
func (c *Config) GetWorkDir() string {
	if c.WorkDir != "" {
		return c.WorkDir
	}
	return c.OutputDir
}

// HasScorer reports whether the named scorer is active.
func (c *Config) HasScorer(name string) bool {
	return slices.Contains(c.Scorers, name)
}

// KeepArtifacts resolves the retention policy for this sweep.
func (c *Config) KeepArtifacts() bool {
	switch c.Retention {
	case RetentionKeep:
		return true
	case RetentionDelete:
		return false
	default:
		return c.HasScorer(ScorerSSIM)
	}
}

// TotalCells returns the number of grid cells the sweep will visit.
func (c *Config) TotalCells() int {
	return len(c.Resolutions) * len(c.Bitrates)
}
