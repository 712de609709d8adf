package identity

import (
	"runtime"
	"sync"
)

// Platform identifies the family of operating environment the probe runs
// against. The set is closed: probes dispatch over these variants at
// runtime instead of per-file build constraints, so every probe compiles
// and is testable on every platform.
type Platform int

const (
	// PlatformUnknown is any environment without a dedicated probe.
	// Collection on it yields an empty fact set.
	PlatformUnknown Platform = iota

	// PlatformLinux probes sysfs, procfs and the bluez tooling.
	PlatformLinux

	// PlatformDarwin probes networksetup, system_profiler and ioreg.
	PlatformDarwin

	// PlatformWindows probes getmac, wmic and powershell CIM queries.
	PlatformWindows

	// PlatformEmbedded covers bare-metal builds where a machine-unique ID
	// may be exposed by the runtime instead of an operating system.
	PlatformEmbedded
)

// String returns the lowercase platform name.
func (p Platform) String() string {
	switch p {
	case PlatformLinux:
		return "linux"
	case PlatformDarwin:
		return "darwin"
	case PlatformWindows:
		return "windows"
	case PlatformEmbedded:
		return "embedded"
	default:
		return "unknown"
	}
}

var (
	platformOnce    sync.Once
	currentPlatform Platform
)

// CurrentPlatform reports the platform of the running process.
// Detection happens once and is cached for the process lifetime.
func CurrentPlatform() Platform {
	platformOnce.Do(func() {
		currentPlatform = detectPlatform(runtime.Compiler, runtime.GOOS)
	})
	return currentPlatform
}

// detectPlatform maps toolchain and OS identifiers onto the closed
// platform set. A tinygo build is embedded regardless of GOOS.
func detectPlatform(compiler, goos string) Platform {
	if compiler == "tinygo" {
		return PlatformEmbedded
	}
	switch goos {
	case "linux":
		return PlatformLinux
	case "darwin":
		return PlatformDarwin
	case "windows":
		return PlatformWindows
	default:
		return PlatformUnknown
	}
}
