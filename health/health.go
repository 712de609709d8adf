// Package health provides preflight checks for broker connectivity and
// device probing. It offers standardized ways to verify that a connector
// will be able to reach its broker and derive a stable identity.
package health

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/steadymq/sdk/exec"
	"github.com/steadymq/sdk/identity"
	"github.com/steadymq/sdk/types"
)

// BrokerCheck verifies TCP connectivity to a broker host and port.
// It uses the provided context for timeout and cancellation control.
//
// Example:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//	status := health.BrokerCheck(ctx, "broker.example.com", 8883)
//	if status.IsUnhealthy() {
//	    log.Println("broker unreachable")
//	}
func BrokerCheck(ctx context.Context, host string, port int) types.HealthStatus {
	if host == "" {
		return types.NewUnhealthyStatus("broker host cannot be empty", nil)
	}

	if port <= 0 || port > 65535 {
		return types.NewUnhealthyStatus(
			fmt.Sprintf("invalid broker port: %d", port),
			map[string]any{"port": port},
		)
	}

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}

	address := net.JoinHostPort(host, strconv.Itoa(port))
	var dialer net.Dialer

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return types.NewUnhealthyStatus(
			fmt.Sprintf("failed to connect to broker at %s", address),
			map[string]any{
				"host":  host,
				"port":  port,
				"error": err.Error(),
			},
		)
	}
	conn.Close()

	return types.NewHealthyStatus(
		fmt.Sprintf("broker reachable at %s", address),
	)
}

// CommandCheck verifies that a command exists and is executable in the
// system PATH.
//
// Example:
//
//	status := health.CommandCheck("btmgmt")
//	if !status.IsHealthy() {
//	    log.Println("bluetooth probing unavailable")
//	}
func CommandCheck(name string) types.HealthStatus {
	if name == "" {
		return types.NewUnhealthyStatus("command name cannot be empty", nil)
	}

	path, err := exec.BinaryPath(name)
	if err != nil {
		return types.NewUnhealthyStatus(
			fmt.Sprintf("command '%s' not found in PATH", name),
			map[string]any{
				"command": name,
				"error":   err.Error(),
			},
		)
	}

	return types.NewHealthyStatus(
		fmt.Sprintf("command '%s' found at %s", name, path),
	)
}

// PathCheck verifies that a file or directory exists at the specified path.
//
// Example:
//
//	status := health.PathCheck("/etc/steadymq/steadymq.yaml")
func PathCheck(path string) types.HealthStatus {
	if path == "" {
		return types.NewUnhealthyStatus("path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.NewUnhealthyStatus(
				fmt.Sprintf("path '%s' does not exist", path),
				map[string]any{
					"path": path,
				},
			)
		}

		return types.NewUnhealthyStatus(
			fmt.Sprintf("failed to stat path '%s'", path),
			map[string]any{
				"path":  path,
				"error": err.Error(),
			},
		)
	}

	fileType := "file"
	if info.IsDir() {
		fileType = "directory"
	}

	return types.NewHealthyStatus(
		fmt.Sprintf("%s '%s' exists", fileType, path),
	)
}

// probeCommands lists the platform tools each probe shells out to. Missing
// tools degrade the fingerprint (fewer facts) but never break it, so their
// absence is degraded rather than unhealthy.
var probeCommands = map[identity.Platform][]string{
	identity.PlatformLinux:   {"btmgmt", "bluetoothctl"},
	identity.PlatformDarwin:  {"networksetup", "system_profiler", "ioreg"},
	identity.PlatformWindows: {"getmac", "wmic", "powershell"},
}

// ProbeToolsCheck verifies that the platform tools used by the device fact
// probes are available. A missing tool means the corresponding fact will be
// absent and the fingerprint may fall back to weaker sources, so the result
// is degraded rather than unhealthy.
func ProbeToolsCheck(platform identity.Platform) types.HealthStatus {
	switch platform {
	case identity.PlatformLinux, identity.PlatformDarwin, identity.PlatformWindows:
		commands := probeCommands[platform]
		var missing []string
		for _, name := range commands {
			if !exec.BinaryExists(name) {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			return types.NewDegradedStatus(
				fmt.Sprintf("%d probe tool(s) missing on %s", len(missing), platform),
				map[string]any{
					"platform":         platform.String(),
					"missing_commands": missing,
				},
			)
		}
		return types.NewHealthyStatus(
			fmt.Sprintf("all %d probe tools available on %s", len(commands), platform),
		)

	case identity.PlatformEmbedded:
		if identity.EmbeddedDeviceID == nil {
			return types.NewDegradedStatus(
				"no embedded device id reader registered; fingerprint falls back to hostname",
				map[string]any{"platform": platform.String()},
			)
		}
		return types.NewHealthyStatus("embedded device id reader registered")

	default:
		return types.NewDegradedStatus(
			fmt.Sprintf("no device probe for platform %s; fingerprint falls back to hostname", platform),
			map[string]any{"platform": platform.String()},
		)
	}
}

// Combine aggregates multiple health checks into a single status.
// The result follows this priority:
//   - If any check is unhealthy, the result is unhealthy
//   - If any check is degraded (and none unhealthy), the result is degraded
//   - If all checks are healthy, the result is healthy
//
// Example:
//
//	status := health.Combine(
//	    health.BrokerCheck(ctx, "localhost", 1883),
//	    health.ProbeToolsCheck(identity.CurrentPlatform()),
//	)
func Combine(checks ...types.HealthStatus) types.HealthStatus {
	if len(checks) == 0 {
		return types.NewHealthyStatus("no checks provided")
	}

	var unhealthyChecks []string
	var degradedChecks []string
	var healthyCount int

	for _, check := range checks {
		switch check.Status {
		case types.StatusUnhealthy:
			msg := check.Message
			if msg == "" {
				msg = "unnamed check"
			}
			unhealthyChecks = append(unhealthyChecks, msg)
		case types.StatusDegraded:
			msg := check.Message
			if msg == "" {
				msg = "unnamed check"
			}
			degradedChecks = append(degradedChecks, msg)
		case types.StatusHealthy:
			healthyCount++
		}
	}

	if len(unhealthyChecks) > 0 {
		return types.NewUnhealthyStatus(
			fmt.Sprintf("%d check(s) failed", len(unhealthyChecks)),
			map[string]any{
				"total":         len(checks),
				"unhealthy":     len(unhealthyChecks),
				"degraded":      len(degradedChecks),
				"healthy":       healthyCount,
				"failed_checks": unhealthyChecks,
			},
		)
	}

	if len(degradedChecks) > 0 {
		return types.NewDegradedStatus(
			fmt.Sprintf("%d check(s) degraded", len(degradedChecks)),
			map[string]any{
				"total":           len(checks),
				"degraded":        len(degradedChecks),
				"healthy":         healthyCount,
				"degraded_checks": degradedChecks,
			},
		)
	}

	return types.NewHealthyStatus(
		fmt.Sprintf("all %d check(s) passed", len(checks)),
	)
}
