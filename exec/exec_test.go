package exec

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestRun_Success(t *testing.T) {
	tests := []struct {
		name           string
		cfg            Config
		expectedStdout string
		expectedCode   int
	}{
		{
			name: "simple echo",
			cfg: Config{
				Command: "echo",
				Args:    []string{"hello", "world"},
			},
			expectedStdout: "hello world\n",
			expectedCode:   0,
		},
		{
			name: "echo without args",
			cfg: Config{
				Command: "echo",
			},
			expectedStdout: "\n",
			expectedCode:   0,
		},
		{
			name: "multiple args",
			cfg: Config{
				Command: "echo",
				Args:    []string{"-n", "no", "newline"},
			},
			expectedStdout: "no newline",
			expectedCode:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			result, err := Run(ctx, tt.cfg)

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if result == nil {
				t.Fatal("expected result, got nil")
			}

			if result.ExitCode != tt.expectedCode {
				t.Errorf("expected exit code %d, got %d", tt.expectedCode, result.ExitCode)
			}

			stdout := string(result.Stdout)
			if stdout != tt.expectedStdout {
				t.Errorf("expected stdout %q, got %q", tt.expectedStdout, stdout)
			}

			if result.Duration <= 0 {
				t.Error("expected positive duration")
			}
		})
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	// Use sh with exit command to guarantee non-zero exit
	cfg := Config{
		Command: "sh",
		Args:    []string{"-c", "echo error message >&2; exit 42"},
	}

	ctx := context.Background()
	result, err := Run(ctx, cfg)

	// Non-zero exit should NOT return an error
	if err != nil {
		t.Fatalf("unexpected error for non-zero exit: %v", err)
	}

	if result.ExitCode != 42 {
		t.Errorf("expected exit code 42, got %d", result.ExitCode)
	}

	stderr := string(result.Stderr)
	if !strings.Contains(stderr, "error message") {
		t.Errorf("expected stderr to contain 'error message', got %q", stderr)
	}
}

func TestRun_Timeout(t *testing.T) {
	cfg := Config{
		Command: "sleep",
		Args:    []string{"10"},
		Timeout: 100 * time.Millisecond,
	}

	ctx := context.Background()
	start := time.Now()
	result, err := Run(ctx, cfg)
	duration := time.Since(start)

	// Timeout should return an error
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}

	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout error message, got: %v", err)
	}

	// Should complete quickly (within timeout + overhead)
	if duration > 2*time.Second {
		t.Errorf("timeout took too long: %v", duration)
	}

	// Result should still be returned with partial data
	if result == nil {
		t.Error("expected result even on timeout")
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := Config{
		Command: "sleep",
		Args:    []string{"10"},
	}

	// Cancel context after 100ms
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	result, err := Run(ctx, cfg)
	duration := time.Since(start)

	// Cancellation should return an error
	if err == nil {
		t.Fatal("expected cancellation error, got nil")
	}

	if !strings.Contains(err.Error(), "cancelled") {
		t.Errorf("expected cancelled error message, got: %v", err)
	}

	// Should complete quickly
	if duration > 2*time.Second {
		t.Errorf("cancellation took too long: %v", duration)
	}

	if result == nil {
		t.Error("expected result even on cancellation")
	}
}

func TestRun_DefaultTimeout(t *testing.T) {
	// A command slower than DefaultTimeout must be killed even when the
	// caller sets no timeout of its own.
	cfg := Config{
		Command: "sleep",
		Args:    []string{"30"},
	}

	ctx := context.Background()
	start := time.Now()
	_, err := Run(ctx, cfg)
	duration := time.Since(start)

	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}

	if duration > DefaultTimeout+2*time.Second {
		t.Errorf("default timeout took too long: %v", duration)
	}
}

func TestRun_BinaryNotFound(t *testing.T) {
	cfg := Config{
		Command: "this-binary-does-not-exist-12345",
	}

	ctx := context.Background()
	result, err := Run(ctx, cfg)

	if err == nil {
		t.Fatal("expected error for missing binary, got nil")
	}

	if !strings.Contains(err.Error(), "execution failed") {
		t.Errorf("expected 'execution failed' in error, got: %v", err)
	}

	// Result should still be returned
	if result == nil {
		t.Error("expected result even on error")
	}
}

func TestRun_EmptyCommand(t *testing.T) {
	cfg := Config{
		Command: "",
	}

	ctx := context.Background()
	result, err := Run(ctx, cfg)

	if err == nil {
		t.Fatal("expected error for empty command, got nil")
	}

	if !strings.Contains(err.Error(), "command is required") {
		t.Errorf("expected 'command is required' in error, got: %v", err)
	}

	if result != nil {
		t.Error("expected nil result for empty command")
	}
}

func TestCapture_TrimsOutput(t *testing.T) {
	ctx := context.Background()
	out, err := Capture(ctx, "echo", "  padded value  ")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out != "padded value" {
		t.Errorf("expected trimmed output %q, got %q", "padded value", out)
	}
}

func TestCapture_NonZeroExitIsError(t *testing.T) {
	ctx := context.Background()
	out, err := Capture(ctx, "sh", "-c", "echo broken >&2; exit 3")

	if err == nil {
		t.Fatal("expected error for non-zero exit, got nil")
	}

	if !strings.Contains(err.Error(), "exited with code 3") {
		t.Errorf("expected exit code in error, got: %v", err)
	}

	if !strings.Contains(err.Error(), "broken") {
		t.Errorf("expected stderr in error, got: %v", err)
	}

	if out != "" {
		t.Errorf("expected empty output on failure, got %q", out)
	}
}

func TestCapture_BinaryNotFound(t *testing.T) {
	ctx := context.Background()
	out, err := Capture(ctx, "this-binary-does-not-exist-12345")

	if err == nil {
		t.Fatal("expected error for missing binary, got nil")
	}

	if out != "" {
		t.Errorf("expected empty output, got %q", out)
	}
}

func TestBinaryExists(t *testing.T) {
	tests := []struct {
		name     string
		binary   string
		expected bool
	}{
		{
			name:     "echo exists",
			binary:   "echo",
			expected: true,
		},
		{
			name:     "sh exists",
			binary:   "sh",
			expected: runtime.GOOS != "windows",
		},
		{
			name:     "nonexistent binary",
			binary:   "this-binary-does-not-exist-12345",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exists := BinaryExists(tt.binary)
			if exists != tt.expected {
				t.Errorf("BinaryExists(%q) = %v, expected %v", tt.binary, exists, tt.expected)
			}
		})
	}
}

func TestBinaryPath(t *testing.T) {
	path, err := BinaryPath("echo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path == "" {
		t.Error("expected non-empty path")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("path %q does not exist: %v", path, err)
	}

	if _, err := BinaryPath("this-binary-does-not-exist-12345"); err == nil {
		t.Fatal("expected error for nonexistent binary")
	}
}

func BenchmarkCapture(b *testing.B) {
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := Capture(ctx, "echo", "hello")
		if err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
	}
}

// Example tests (shown in godoc)
func ExampleCapture() {
	ctx := context.Background()
	out, err := Capture(ctx, "echo", "hello", "world")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println(out)
	// Output: hello world
}

func ExampleBinaryExists() {
	if BinaryExists("echo") {
		fmt.Println("echo is available")
	} else {
		fmt.Println("echo is not available")
	}
	// Output: echo is available
}
