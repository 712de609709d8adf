package identity

import (
	"context"
	"os"
	"strings"
)

// Serial sources in priority order. DMI covers PC-class hardware, the
// devicetree paths cover ARM boards, and the cpuinfo fallback covers older
// Raspberry Pi kernels that expose the SoC serial nowhere else.
var linuxSerialPaths = []string{
	"/sys/class/dmi/id/product_serial",
	"/sys/firmware/devicetree/base/serial-number",
	"/proc/device-tree/serial-number",
}

// path prefixes the collector's filesystem root, so tests can point the
// probes at a fixture tree instead of the live sysfs.
func (c *Collector) path(p string) string {
	return c.root + p
}

// readFile reads a probe path, logging and swallowing failures.
func (c *Collector) readFile(p string) (string, bool) {
	data, err := os.ReadFile(c.path(p))
	if err != nil {
		c.logger.Debug("probe file unreadable",
			"path", p,
			"error", err)
		return "", false
	}
	return string(data), true
}

func (c *Collector) serialLinux(ctx context.Context) string {
	for _, p := range linuxSerialPaths {
		raw, ok := c.readFile(p)
		if !ok {
			continue
		}
		// Devicetree values carry a trailing NUL after the usual newline.
		value := strings.Trim(strings.TrimSpace(raw), "\x00")
		if value != "" {
			return value
		}
	}

	raw, ok := c.readFile("/proc/cpuinfo")
	if !ok {
		return ""
	}
	for _, line := range strings.Split(raw, "\n") {
		if !strings.HasPrefix(strings.ToLower(line), "serial") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) < 2 {
			continue
		}
		if value := strings.TrimSpace(parts[1]); value != "" {
			return value
		}
	}
	return ""
}

func (c *Collector) connectionsLinux(ctx context.Context) []Connection {
	var out []Connection

	// Network interfaces. Loopback and virtual devices fall out of the
	// global-unicast filter rather than a name blacklist.
	if entries, err := os.ReadDir(c.path("/sys/class/net")); err == nil {
		for _, e := range entries {
			raw, ok := c.readFile("/sys/class/net/" + e.Name() + "/address")
			if !ok {
				continue
			}
			mac, ok := NormalizeHardwareAddress(strings.TrimSpace(raw))
			if ok && isGlobalUnicast(mac) {
				out = append(out, Connection{Kind: ConnectionMAC, Address: mac})
			}
		}
	}

	// Bluetooth controllers count only when btmgmt confirms the adapter
	// uses its public (IEEE-assigned) address. Randomized LE addresses
	// change across boots and would destabilize the fingerprint.
	info, _ := c.capture(ctx, "btmgmt", "info")
	isPublic := strings.Contains(strings.ToLower(info), "public address")

	if _, err := os.Stat(c.path("/sys/class/bluetooth")); err == nil {
		entries, err := os.ReadDir(c.path("/sys/class/bluetooth"))
		if err != nil {
			return out
		}
		for _, e := range entries {
			raw, ok := c.readFile("/sys/class/bluetooth/" + e.Name() + "/address")
			if !ok {
				continue
			}
			mac, ok := NormalizeHardwareAddress(strings.TrimSpace(raw))
			if ok && isPublic {
				out = append(out, Connection{Kind: ConnectionBluetooth, Address: mac})
			}
		}
		return out
	}

	// No sysfs bluetooth class: ask bluetoothctl for the controller line.
	show, ok := c.capture(ctx, "bluetoothctl", "show")
	if !ok {
		return out
	}
	for _, line := range strings.Split(show, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "Controller" {
			continue
		}
		mac, ok := NormalizeHardwareAddress(fields[1])
		if ok && isPublic {
			out = append(out, Connection{Kind: ConnectionBluetooth, Address: mac})
		}
	}
	return out
}

func (c *Collector) serialDarwin(ctx context.Context) string {
	res, ok := c.capture(ctx, "ioreg", "-rd1", "-c", "IOPlatformExpertDevice")
	if !ok {
		return ""
	}
	for _, line := range strings.Split(res, "\n") {
		if !strings.Contains(line, "IOPlatformSerialNumber") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) < 2 {
			continue
		}
		value := strings.Trim(strings.TrimSpace(parts[1]), `"`)
		if value != "" {
			return value
		}
	}
	return ""
}

func (c *Collector) connectionsDarwin(ctx context.Context) []Connection {
	var out []Connection

	if res, ok := c.capture(ctx, "networksetup", "-listallhardwareports"); ok {
		for _, line := range strings.Split(res, "\n") {
			line = strings.TrimSpace(line)
			if !strings.HasPrefix(strings.ToLower(line), "ethernet address") {
				continue
			}
			parts := strings.SplitN(line, ":", 2)
			if len(parts) < 2 {
				continue
			}
			mac, ok := NormalizeHardwareAddress(strings.TrimSpace(parts[1]))
			if ok && isGlobalUnicast(mac) {
				out = append(out, Connection{Kind: ConnectionMAC, Address: mac})
			}
		}
	}

	// The first public controller address is enough; system_profiler lists
	// paired peripherals further down under the same "Address:" label.
	if res, ok := c.capture(ctx, "system_profiler", "SPBluetoothDataType"); ok {
		for _, line := range strings.Split(res, "\n") {
			line = strings.TrimSpace(line)
			if !strings.HasPrefix(strings.ToLower(line), "address:") {
				continue
			}
			parts := strings.SplitN(line, ":", 2)
			if len(parts) < 2 {
				continue
			}
			mac, ok := NormalizeHardwareAddress(strings.TrimSpace(parts[1]))
			if ok && isGlobalUnicast(mac) {
				out = append(out, Connection{Kind: ConnectionBluetooth, Address: mac})
				break
			}
		}
	}

	return out
}

func (c *Collector) serialWindows(ctx context.Context) string {
	if res, ok := c.capture(ctx, "powershell", "-NoProfile", "-Command",
		"(Get-CimInstance Win32_BIOS).SerialNumber"); ok {
		if value := strings.TrimSpace(res); value != "" {
			return value
		}
	}

	// Older hosts without the CIM cmdlets still ship wmic. Output is a
	// header line followed by the value.
	res, ok := c.capture(ctx, "wmic", "bios", "get", "serialnumber")
	if !ok {
		return ""
	}
	var lines []string
	for _, line := range strings.Split(res, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) > 1 {
		return lines[1]
	}
	return ""
}

func (c *Collector) connectionsWindows(ctx context.Context) []Connection {
	var out []Connection

	// getmac quotes every CSV cell; scanning all cells sidesteps the
	// locale-dependent column headers.
	if res, ok := c.capture(ctx, "getmac", "/v", "/fo", "csv"); ok {
		for _, line := range strings.Split(res, "\n") {
			if !strings.Contains(line, ",") {
				continue
			}
			for _, cell := range strings.Split(line, ",") {
				cell = strings.Trim(strings.TrimSpace(cell), `"`)
				mac, ok := NormalizeHardwareAddress(cell)
				if ok && isGlobalUnicast(mac) {
					out = append(out, Connection{Kind: ConnectionMAC, Address: mac})
				}
			}
		}
	}

	if !hasKind(out, ConnectionBluetooth) {
		if res, ok := c.capture(ctx, "wmic", "nic", "get", "Name,MACAddress", "/format:csv"); ok {
			for _, row := range strings.Split(res, "\n") {
				cols := strings.Split(row, ",")
				if len(cols) < 3 {
					continue
				}
				if !strings.Contains(strings.ToLower(strings.TrimSpace(cols[2])), "bluetooth") {
					continue
				}
				mac, ok := NormalizeHardwareAddress(strings.TrimSpace(cols[1]))
				if ok && isGlobalUnicast(mac) {
					out = append(out, Connection{Kind: ConnectionBluetooth, Address: mac})
				}
			}
		}
	}

	return out
}

func hasKind(conns []Connection, kind ConnectionKind) bool {
	for _, c := range conns {
		if c.Kind == kind {
			return true
		}
	}
	return false
}

// EmbeddedDeviceID supplies the machine-unique identifier on bare-metal
// builds, where no operating system exposes serial numbers or interface
// listings. Firmware layers that know their hardware register a reader at
// init; it stays nil on hosted platforms and the embedded probe then
// reports no facts.
var EmbeddedDeviceID func() (string, bool)

func (c *Collector) serialEmbedded() string {
	if EmbeddedDeviceID == nil {
		return ""
	}
	id, ok := EmbeddedDeviceID()
	if !ok {
		return ""
	}
	return strings.TrimSpace(id)
}
