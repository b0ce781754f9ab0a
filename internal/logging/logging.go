package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// RunLog is a timestamped per-run log file backing the global logger.
type RunLog struct {
	file     *os.File
	filePath string
}

// Setup creates rdsweep_run_<timestamp>.log in logDir and routes the global
// logger to it. With noLog the global logger is silenced and nil is returned.
func Setup(logDir string, verbose, noLog bool) (*RunLog, error) {
	if noLog {
		SetGlobal(New(Config{Enabled: false}))
		return nil, nil
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filePath := filepath.Join(logDir, fmt.Sprintf("rdsweep_run_%s.log", timestamp))

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file %s: %w", filePath, err)
	}

	level := LevelInfo
	if verbose {
		level = LevelDebug
	}
	Init(level, file)

	Info("rdsweep starting")
	if verbose {
		Info("Debug level logging enabled")
	}
	Info("Log file", "path", filePath)

	return &RunLog{file: file, filePath: filePath}, nil
}

// Close closes the log file.
func (l *RunLog) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// FilePath returns the path to the log file.
func (l *RunLog) FilePath() string {
	if l == nil {
		return ""
	}
	return l.filePath
}

// Writer returns an io.Writer that appends to the log file.
// Used to capture encoder stderr alongside the structured log.
func (l *RunLog) Writer() io.Writer {
	if l == nil || l.file == nil {
		return io.Discard
	}
	return l.file
}
