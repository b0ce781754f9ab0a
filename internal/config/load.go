package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"

	"github.com/five82/rdsweep/internal/grid"
)

// EnvPrefix is prepended to every environment override key.
const EnvPrefix = "RDSWEEP_"

// setting binds one configurable value to its flag, TOML key and env key.
type setting struct {
	flag string
	set  func(c *Config, value string) error
}

var settings = []setting{
	{"source", func(c *Config, v string) error { c.SourcePath = v; return nil }},
	{"output-dir", func(c *Config, v string) error { c.OutputDir = v; return nil }},
	{"work-dir", func(c *Config, v string) error { c.WorkDir = v; return nil }},
	{"log-dir", func(c *Config, v string) error { c.LogDir = v; return nil }},
	{"metrics-file", func(c *Config, v string) error { c.MetricsFile = v; return nil }},
	{"db", func(c *Config, v string) error { c.DatabaseURL = v; return nil }},
	{"sweep-id", func(c *Config, v string) error { c.SweepID = v; return nil }},
	{"codec", func(c *Config, v string) error { c.Codec = v; return nil }},
	{"preset", func(c *Config, v string) error { c.Preset = v; return nil }},
	{"resolutions", func(c *Config, v string) error {
		r, err := grid.ParseResolutions(splitList(v))
		if err != nil {
			return err
		}
		c.Resolutions = r
		return nil
	}},
	{"bitrates", func(c *Config, v string) error {
		b, err := grid.ParseBitrates(splitList(v))
		if err != nil {
			return err
		}
		c.Bitrates = b
		return nil
	}},
	{"scorers", func(c *Config, v string) error {
		s, err := ParseScorers(v)
		if err != nil {
			return err
		}
		c.Scorers = s
		return nil
	}},
	{"retention", func(c *Config, v string) error {
		r, err := ParseRetention(v)
		if err != nil {
			return err
		}
		c.Retention = r
		return nil
	}},
	{"encode-timeout", func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidTimeout, err)
		}
		c.EncodeTimeout = d
		return nil
	}},
}

// Load applies overrides with precedence CLI flags > environment > TOML file.
// Flags explicitly set on fs are never overwritten. An empty path skips the file.
func Load(c *Config, path string, fs *pflag.FlagSet) error {
	changed := make(map[string]bool)
	if fs != nil {
		fs.Visit(func(f *pflag.Flag) {
			changed[f.Name] = true
		})
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config %s: %w", path, err)
		}
		var file map[string]any
		if err := toml.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("failed to parse TOML config: %w", err)
		}
		for _, s := range settings {
			if changed[s.flag] {
				continue
			}
			raw, ok := file[flagToKey(s.flag)]
			if !ok {
				continue
			}
			if err := s.set(c, stringify(raw)); err != nil {
				return fmt.Errorf("config %s: %w", flagToKey(s.flag), err)
			}
		}
	}

	for _, s := range settings {
		if changed[s.flag] {
			continue
		}
		if v := os.Getenv(EnvPrefix + flagToEnv(s.flag)); v != "" {
			if err := s.set(c, v); err != nil {
				return fmt.Errorf("env %s%s: %w", EnvPrefix, flagToEnv(s.flag), err)
			}
		}
	}

	return nil
}

// flagToKey converts a flag name to its TOML key: "output-dir" -> "output_dir".
func flagToKey(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}

// flagToEnv converts a flag name to its env suffix: "output-dir" -> "OUTPUT_DIR".
func flagToEnv(flag string) string {
	return strings.ToUpper(flagToKey(flag))
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// stringify flattens a decoded TOML value into the string form the setters accept.
func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = stringify(item)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(val)
	}
}
