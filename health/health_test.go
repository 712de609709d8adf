package health

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/steadymq/sdk/identity"
	"github.com/steadymq/sdk/types"
)

func TestCommandCheck(t *testing.T) {
	tests := []struct {
		name          string
		command       string
		expectHealthy bool
	}{
		{
			name:          "existing command sh",
			command:       "sh",
			expectHealthy: true,
		},
		{
			name:          "existing command ls",
			command:       "ls",
			expectHealthy: true,
		},
		{
			name:          "non-existent command",
			command:       "this-command-definitely-does-not-exist-12345",
			expectHealthy: false,
		},
		{
			name:          "empty command name",
			command:       "",
			expectHealthy: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := CommandCheck(tt.command)

			if tt.expectHealthy && !status.IsHealthy() {
				t.Errorf("expected healthy status, got %s: %s", status.Status, status.Message)
			}

			if !tt.expectHealthy && status.IsHealthy() {
				t.Errorf("expected unhealthy status, got %s: %s", status.Status, status.Message)
			}

			if status.Message == "" {
				t.Error("expected non-empty message")
			}
		})
	}
}

func TestBrokerCheck(t *testing.T) {
	// Stand-in broker: a TCP listener that accepts and closes.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to start test listener: %v", err)
	}
	defer listener.Close()

	testPort := listener.Addr().(*net.TCPAddr).Port

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	tests := []struct {
		name          string
		host          string
		port          int
		expectHealthy bool
	}{
		{
			name:          "reachable broker",
			host:          "127.0.0.1",
			port:          testPort,
			expectHealthy: true,
		},
		{
			name:          "empty host",
			host:          "",
			port:          1883,
			expectHealthy: false,
		},
		{
			name:          "invalid port zero",
			host:          "127.0.0.1",
			port:          0,
			expectHealthy: false,
		},
		{
			name:          "invalid port too large",
			host:          "127.0.0.1",
			port:          70000,
			expectHealthy: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			status := BrokerCheck(ctx, tt.host, tt.port)

			if tt.expectHealthy && !status.IsHealthy() {
				t.Errorf("expected healthy status, got %s: %s", status.Status, status.Message)
			}

			if !tt.expectHealthy && status.IsHealthy() {
				t.Errorf("expected unhealthy status, got %s: %s", status.Status, status.Message)
			}
		})
	}
}

func TestBrokerCheckUnreachable(t *testing.T) {
	// Grab a free port and release it so nothing is listening there.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	freePort := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	status := BrokerCheck(ctx, "127.0.0.1", freePort)

	if !status.IsUnhealthy() {
		t.Errorf("expected unhealthy status, got %s: %s", status.Status, status.Message)
	}

	if status.Details["error"] == nil {
		t.Error("expected error detail for unreachable broker")
	}
}

func TestPathCheck(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "steadymq.yaml")
	if err := os.WriteFile(tmpFile, []byte("host: localhost\n"), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	tests := []struct {
		name          string
		path          string
		expectHealthy bool
	}{
		{
			name:          "existing file",
			path:          tmpFile,
			expectHealthy: true,
		},
		{
			name:          "existing directory",
			path:          tmpDir,
			expectHealthy: true,
		},
		{
			name:          "non-existent path",
			path:          filepath.Join(tmpDir, "missing.yaml"),
			expectHealthy: false,
		},
		{
			name:          "empty path",
			path:          "",
			expectHealthy: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := PathCheck(tt.path)

			if tt.expectHealthy && !status.IsHealthy() {
				t.Errorf("expected healthy status, got %s: %s", status.Status, status.Message)
			}

			if !tt.expectHealthy && status.IsHealthy() {
				t.Errorf("expected unhealthy status, got %s: %s", status.Status, status.Message)
			}
		})
	}
}

func TestProbeToolsCheck(t *testing.T) {
	t.Run("unknown platform is degraded", func(t *testing.T) {
		status := ProbeToolsCheck(identity.PlatformUnknown)

		if !status.IsDegraded() {
			t.Errorf("expected degraded status, got %s: %s", status.Status, status.Message)
		}
	})

	t.Run("embedded without reader is degraded", func(t *testing.T) {
		prev := identity.EmbeddedDeviceID
		identity.EmbeddedDeviceID = nil
		t.Cleanup(func() { identity.EmbeddedDeviceID = prev })

		status := ProbeToolsCheck(identity.PlatformEmbedded)

		if !status.IsDegraded() {
			t.Errorf("expected degraded status, got %s: %s", status.Status, status.Message)
		}
	})

	t.Run("embedded with reader is healthy", func(t *testing.T) {
		prev := identity.EmbeddedDeviceID
		identity.EmbeddedDeviceID = func() (string, bool) { return "e661ac8863124529", true }
		t.Cleanup(func() { identity.EmbeddedDeviceID = prev })

		status := ProbeToolsCheck(identity.PlatformEmbedded)

		if !status.IsHealthy() {
			t.Errorf("expected healthy status, got %s: %s", status.Status, status.Message)
		}
	})

	t.Run("hosted platform is never unhealthy", func(t *testing.T) {
		// Probe tools are best-effort: whatever is installed, the worst
		// outcome is degraded.
		for _, platform := range []identity.Platform{
			identity.PlatformLinux,
			identity.PlatformDarwin,
			identity.PlatformWindows,
		} {
			status := ProbeToolsCheck(platform)
			if status.IsUnhealthy() {
				t.Errorf("platform %s: expected healthy or degraded, got %s: %s",
					platform, status.Status, status.Message)
			}
			if status.Message == "" {
				t.Errorf("platform %s: expected non-empty message", platform)
			}
		}
	})
}

func TestCombine(t *testing.T) {
	tests := []struct {
		name           string
		checks         []types.HealthStatus
		expectedStatus string
	}{
		{
			name:           "no checks",
			checks:         nil,
			expectedStatus: types.StatusHealthy,
		},
		{
			name: "all healthy",
			checks: []types.HealthStatus{
				types.NewHealthyStatus("check 1"),
				types.NewHealthyStatus("check 2"),
			},
			expectedStatus: types.StatusHealthy,
		},
		{
			name: "one degraded",
			checks: []types.HealthStatus{
				types.NewHealthyStatus("check 1"),
				types.NewDegradedStatus("check 2 degraded", nil),
			},
			expectedStatus: types.StatusDegraded,
		},
		{
			name: "unhealthy wins over degraded",
			checks: []types.HealthStatus{
				types.NewDegradedStatus("check 1 degraded", nil),
				types.NewUnhealthyStatus("check 2 failed", nil),
				types.NewHealthyStatus("check 3"),
			},
			expectedStatus: types.StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := Combine(tt.checks...)

			if status.Status != tt.expectedStatus {
				t.Errorf("expected %s, got %s: %s", tt.expectedStatus, status.Status, status.Message)
			}
		})
	}
}

func TestCombineDetails(t *testing.T) {
	status := Combine(
		types.NewHealthyStatus("ok"),
		types.NewUnhealthyStatus("broker unreachable", nil),
		types.NewDegradedStatus("probe tools missing", nil),
	)

	if !status.IsUnhealthy() {
		t.Fatalf("expected unhealthy, got %s", status.Status)
	}

	failed, ok := status.Details["failed_checks"].([]string)
	if !ok || len(failed) != 1 || failed[0] != "broker unreachable" {
		t.Errorf("unexpected failed_checks detail: %v", status.Details["failed_checks"])
	}

	if status.Details["degraded"] != 1 {
		t.Errorf("expected 1 degraded in details, got %v", status.Details["degraded"])
	}
}
