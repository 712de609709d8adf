// Package exec provides command execution utilities with timeout support.
// It wraps os/exec with a small, context-aware API used by the hardware
// probes to interrogate platform tooling (networksetup, getmac, btmgmt, ...)
// without ever letting a wedged tool stall identifier derivation.
package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds probe commands that do not set their own timeout.
// Platform tools occasionally hang on misconfigured hardware.
const DefaultTimeout = 3 * time.Second

// Config holds the configuration for command execution.
type Config struct {
	// Command is the name or path of the command to execute (required)
	Command string

	// Args are the command-line arguments (optional)
	Args []string

	// Timeout specifies the maximum execution duration (optional)
	// If zero, DefaultTimeout is enforced
	Timeout time.Duration
}

// Result holds the result of command execution.
type Result struct {
	// Stdout contains the captured stdout
	Stdout []byte

	// Stderr contains the captured stderr
	Stderr []byte

	// ExitCode is the process exit code
	// 0 indicates success, non-zero indicates an error
	ExitCode int

	// Duration is the actual execution time
	Duration time.Duration
}

// Run executes a command with the given configuration.
// It returns a Result containing stdout, stderr, exit code, and duration.
//
// The function respects context cancellation and the configured timeout.
// If the command times out or the context is cancelled, the process is killed.
//
// A non-zero exit code is not treated as an error - the Result is returned
// with the exit code populated. This allows the caller to decide how to
// handle non-zero exits. Only actual execution failures (binary not found,
// permission denied, etc.) return an error.
//
// Example:
//
//	ctx := context.Background()
//	cfg := Config{
//		Command: "getmac",
//		Args:    []string{"/v", "/fo", "csv"},
//		Timeout: 5 * time.Second,
//	}
//	result, err := Run(ctx, cfg)
//	if err != nil {
//		// Execution failed (binary not found, etc.)
//		return err
//	}
//	if result.ExitCode != 0 {
//		// Command ran but failed
//		return fmt.Errorf("command failed: %s", result.Stderr)
//	}
//	fmt.Println(string(result.Stdout))
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Command == "" {
		return nil, errors.New("command is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: 0,
		Duration: duration,
	}

	if err != nil {
		// Check for context errors first (timeout/cancellation)
		if ctx.Err() == context.DeadlineExceeded {
			return result, fmt.Errorf("command timed out after %v", timeout)
		}

		if ctx.Err() == context.Canceled {
			return result, fmt.Errorf("command cancelled")
		}

		// Check for normal exit with non-zero code
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}

		// Other execution error (binary not found, permission denied, etc.)
		return result, fmt.Errorf("command execution failed: %w", err)
	}

	return result, nil
}

// Capture runs a command and returns its trimmed stdout.
//
// Unlike Run, Capture folds every failure mode into the returned error:
// spawn failures, timeouts, cancellation, and non-zero exit codes all fail.
// The hardware probes use this to treat any misbehaving tool as an absent
// fact rather than inspecting exit codes at every call site.
//
// Example:
//
//	out, err := Capture(ctx, "ioreg", "-rd1", "-c", "IOPlatformExpertDevice")
//	if err != nil {
//		// Tool missing, timed out, or failed - the fact is simply absent.
//		return ""
//	}
func Capture(ctx context.Context, name string, args ...string) (string, error) {
	result, err := Run(ctx, Config{Command: name, Args: args})
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("command %q exited with code %d: %s",
			name, result.ExitCode, bytes.TrimSpace(result.Stderr))
	}
	return strings.TrimSpace(string(result.Stdout)), nil
}

// BinaryExists checks if a binary exists in the system PATH.
// It returns true if the binary is found and executable, false otherwise.
//
// Example:
//
//	if !BinaryExists("btmgmt") {
//		// Skip the bluetooth probe entirely.
//	}
func BinaryExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// BinaryPath returns the full path to a binary in the system PATH.
// It returns an error if the binary is not found.
func BinaryPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("binary %q not found in PATH: %w", name, err)
	}
	return path, nil
}
