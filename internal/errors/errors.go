// Package errors provides structured error types for rdsweep operations.
package errors

import (
	"errors"
	"fmt"
	"os/exec"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// KindIO represents I/O errors.
	KindIO ErrorKind = iota
	// KindSourceNotFound represents a missing source video. Fatal to a sweep.
	KindSourceNotFound
	// KindCommand represents external command execution errors.
	KindCommand
	// KindEncode represents a failed encode of one grid cell.
	KindEncode
	// KindDecode represents a failure opening or reading a frame source.
	KindDecode
	// KindProbe represents ffprobe failures or unparseable probe output.
	KindProbe
	// KindDimension represents a degenerate reference frame.
	KindDimension
	// KindFrameTooSmall represents a frame smaller than the SSIM window.
	KindFrameTooSmall
	// KindConfig represents configuration validation errors.
	KindConfig
	// KindStore represents result persistence errors.
	KindStore
	// KindCancelled represents user-cancelled operations.
	KindCancelled
)

// String returns a string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "I/O error"
	case KindSourceNotFound:
		return "Source not found"
	case KindCommand:
		return "Command error"
	case KindEncode:
		return "Encode error"
	case KindDecode:
		return "Decode error"
	case KindProbe:
		return "Probe error"
	case KindDimension:
		return "Dimension error"
	case KindFrameTooSmall:
		return "Frame too small"
	case KindConfig:
		return "Configuration error"
	case KindStore:
		return "Store error"
	case KindCancelled:
		return "Operation cancelled"
	default:
		return "Unknown error"
	}
}

// CommandErrorKind represents the type of command error.
type CommandErrorKind int

const (
	// CommandStart means the command failed to start.
	CommandStart CommandErrorKind = iota
	// CommandWait means waiting for the command failed.
	CommandWait
	// CommandFailed means the command returned non-zero exit status.
	CommandFailed
)

// CommandError represents an error from executing an external command.
type CommandError struct {
	Command    string
	Kind       CommandErrorKind
	ExitCode   int
	Stderr     string
	Underlying error
}

func (e *CommandError) Error() string {
	switch e.Kind {
	case CommandStart:
		return fmt.Sprintf("failed to execute %s: %v", e.Command, e.Underlying)
	case CommandWait:
		return fmt.Sprintf("failed to wait for %s: %v", e.Command, e.Underlying)
	case CommandFailed:
		if e.Stderr != "" {
			return fmt.Sprintf("command %s failed with exit code %d: %s", e.Command, e.ExitCode, e.Stderr)
		}
		return fmt.Sprintf("command %s failed with exit code %d", e.Command, e.ExitCode)
	default:
		return fmt.Sprintf("command %s error: %v", e.Command, e.Underlying)
	}
}

func (e *CommandError) Unwrap() error {
	return e.Underlying
}

// CoreError is the main error type for rdsweep operations.
type CoreError struct {
	Kind       ErrorKind
	Message    string
	Underlying error
}

func (e *CoreError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error {
	return e.Underlying
}

// Is reports whether target matches this error's kind.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewIOError creates a new I/O error.
func NewIOError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindIO, Message: message, Underlying: underlying}
}

// NewSourceNotFoundError creates an error for a missing source video.
func NewSourceNotFoundError(path string) *CoreError {
	return &CoreError{Kind: KindSourceNotFound, Message: fmt.Sprintf("file does not exist: %s", path)}
}

// NewCommandError creates a new command execution error.
func NewCommandError(cmd string, kind CommandErrorKind, underlying error) *CoreError {
	cmdErr := &CommandError{
		Command:    cmd,
		Kind:       kind,
		Underlying: underlying,
	}
	return &CoreError{Kind: KindCommand, Message: cmdErr.Error(), Underlying: cmdErr}
}

// NewCommandStartError creates an error for when a command fails to start.
func NewCommandStartError(cmd string, err error) *CoreError {
	return NewCommandError(cmd, CommandStart, err)
}

// NewCommandWaitError creates an error for when waiting for a command fails.
func NewCommandWaitError(cmd string, err error) *CoreError {
	return NewCommandError(cmd, CommandWait, err)
}

// NewCommandFailedError creates an error for when a command returns non-zero exit status.
func NewCommandFailedError(cmd string, exitCode int, stderr string) *CoreError {
	cmdErr := &CommandError{
		Command:  cmd,
		Kind:     CommandFailed,
		ExitCode: exitCode,
		Stderr:   stderr,
	}
	return &CoreError{Kind: KindCommand, Message: cmdErr.Error(), Underlying: cmdErr}
}

// NewEncodeError creates an error for a grid cell whose encode failed.
func NewEncodeError(resolution, bitrate string, underlying error) *CoreError {
	return &CoreError{
		Kind:       KindEncode,
		Message:    fmt.Sprintf("encode failed for %s at %s", resolution, bitrate),
		Underlying: underlying,
	}
}

// NewDecodeError creates an error for a frame source that could not be opened or read.
func NewDecodeError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindDecode, Message: message, Underlying: underlying}
}

// NewProbeError creates a new ffprobe error.
func NewProbeError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindProbe, Message: message, Underlying: underlying}
}

// NewDimensionError creates an error for a reference frame with a zero dimension.
func NewDimensionError(width, height int) *CoreError {
	return &CoreError{Kind: KindDimension, Message: fmt.Sprintf("degenerate reference frame %dx%d", width, height)}
}

// NewSizeMismatchError creates an error for a frame pair that was scored before reconciliation.
func NewSizeMismatchError(refW, refH, candW, candH int) *CoreError {
	return &CoreError{
		Kind:    KindDimension,
		Message: fmt.Sprintf("frame size mismatch: reference %dx%d, candidate %dx%d", refW, refH, candW, candH),
	}
}

// NewFrameTooSmallError creates an error for frames smaller than the comparison window.
func NewFrameTooSmallError(width, height, window int) *CoreError {
	return &CoreError{
		Kind:    KindFrameTooSmall,
		Message: fmt.Sprintf("frame %dx%d is smaller than the %dx%d window", width, height, window, window),
	}
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string) *CoreError {
	return &CoreError{Kind: KindConfig, Message: message}
}

// NewStoreError creates a new persistence error.
func NewStoreError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindStore, Message: message, Underlying: underlying}
}

// NewCancelledError creates an error for user-cancelled operations.
func NewCancelledError() *CoreError {
	return &CoreError{Kind: KindCancelled, Message: "operation was cancelled by the user"}
}

// IsKind checks if the error has the specified kind.
func IsKind(err error, kind ErrorKind) bool {
	var coreErr *CoreError
	if errors.As(err, &coreErr) {
		return coreErr.Kind == kind
	}
	return false
}

// IsCancelled checks if the error is a cancellation error.
func IsCancelled(err error) bool {
	return IsKind(err, KindCancelled)
}

// IsSourceNotFound checks if the error is a missing-source error.
func IsSourceNotFound(err error) bool {
	return IsKind(err, KindSourceNotFound)
}

// IsCellLocal reports whether the error only affects the current grid cell.
func IsCellLocal(err error) bool {
	var coreErr *CoreError
	if !errors.As(err, &coreErr) {
		return false
	}
	switch coreErr.Kind {
	case KindEncode, KindDecode, KindProbe, KindDimension, KindFrameTooSmall, KindCommand:
		return true
	}
	return false
}

// WrapExecError wraps an exec.ExitError into a CoreError.
func WrapExecError(cmd string, err error, stderr string) *CoreError {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return NewCommandFailedError(cmd, exitErr.ExitCode(), stderr)
	}
	return NewCommandStartError(cmd, err)
}
