package identity

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"unicode"

	"github.com/steadymq/sdk/exec"
)

// ConnectionKind labels the transport a hardware address belongs to.
type ConnectionKind string

const (
	// ConnectionMAC is a wired or wireless network interface address.
	ConnectionMAC ConnectionKind = "mac"

	// ConnectionBluetooth is a bluetooth controller address.
	ConnectionBluetooth ConnectionKind = "bluetooth"
)

// rank orders kinds by fingerprint priority: mac beats bluetooth beats
// anything a caller invents.
func (k ConnectionKind) rank() int {
	switch k {
	case ConnectionMAC:
		return 0
	case ConnectionBluetooth:
		return 1
	default:
		return 2
	}
}

// Connection is a single normalized hardware address with its kind.
type Connection struct {
	Kind    ConnectionKind
	Address string
}

// FactSet holds the device facts the fingerprint resolver works from.
// Every field is best-effort; the zero value is a valid, empty fact set.
type FactSet struct {
	// Serial is the device serial number, empty when unknown.
	Serial string

	// Connections are the stable hardware addresses found on the device.
	Connections []Connection
}

// IsZero reports whether no fact was collected.
func (f FactSet) IsZero() bool {
	return strings.TrimSpace(f.Serial) == "" && len(f.Connections) == 0
}

// NormalizeHardwareAddress canonicalizes a MAC-48 style address. It strips
// every non-alphanumeric rune, requires exactly twelve hex digits, and
// returns the lowercase colon-separated form. The all-zero and all-ff
// placeholder addresses report false: they identify no device.
func NormalizeHardwareAddress(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	hex := b.String()
	if len(hex) != 12 {
		return "", false
	}
	for _, r := range hex {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return "", false
		}
	}
	parts := make([]string, 0, 6)
	for i := 0; i < 12; i += 2 {
		parts = append(parts, hex[i:i+2])
	}
	mac := strings.Join(parts, ":")
	if mac == "00:00:00:00:00:00" || mac == "ff:ff:ff:ff:ff:ff" {
		return "", false
	}
	return mac, true
}

// isGlobalUnicast reports whether the first octet has both the locally
// administered and multicast bits clear. Virtual interfaces, containers
// and randomized radios set one of them, and those addresses do not
// survive re-provisioning.
func isGlobalUnicast(mac string) bool {
	if len(mac) < 2 {
		return false
	}
	first, ok := hexOctet(mac[:2])
	if !ok {
		return false
	}
	return first&0x01 == 0 && first&0x02 == 0
}

func hexOctet(s string) (byte, bool) {
	var v byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			v = v<<4 | (c - '0')
		case c >= 'a' && c <= 'f':
			v = v<<4 | (c - 'a' + 10)
		default:
			return 0, false
		}
	}
	return v, true
}

// NormalizeConnections filters a raw candidate list down to usable,
// deduplicated connections. MAC entries must be globally administered
// unicast addresses; bluetooth entries only need a valid address because
// the probes already gated them on a positive public-address signal.
// The result is sorted by (kind priority, address) so equal inputs give
// identical slices.
func NormalizeConnections(conns []Connection) []Connection {
	seen := make(map[Connection]struct{}, len(conns))
	out := make([]Connection, 0, len(conns))
	for _, c := range conns {
		mac, ok := NormalizeHardwareAddress(c.Address)
		if c.Kind == "" || !ok {
			continue
		}
		if c.Kind == ConnectionMAC && !isGlobalUnicast(mac) {
			continue
		}
		normalized := Connection{Kind: c.Kind, Address: mac}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind.rank() != out[j].Kind.rank() {
			return out[i].Kind.rank() < out[j].Kind.rank()
		}
		return out[i].Address < out[j].Address
	})
	return out
}

// Runner executes a probe command and returns its trimmed stdout.
// Any error means the command's output is unusable and the probe treats
// the fact as absent.
type Runner func(ctx context.Context, name string, args ...string) (string, error)

// Collector gathers device facts from the running platform.
// The zero configuration probes the detected platform with real commands;
// tests swap the runner and filesystem root to replay captured outputs.
type Collector struct {
	platform Platform
	root     string
	run      Runner
	logger   *slog.Logger
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithPlatform pins the collector to a specific platform instead of the
// detected one.
func WithPlatform(p Platform) CollectorOption {
	return func(c *Collector) {
		c.platform = p
	}
}

// WithRoot prefixes every filesystem path the probes read (sysfs, procfs,
// devicetree). Tests point it at a fixture tree.
func WithRoot(root string) CollectorOption {
	return func(c *Collector) {
		c.root = strings.TrimSuffix(root, "/")
	}
}

// WithRunner replaces the command runner used for platform tools.
func WithRunner(run Runner) CollectorOption {
	return func(c *Collector) {
		c.run = run
	}
}

// WithLogger sets a custom logger for probe diagnostics.
// If not provided, slog.Default() is used.
func WithLogger(logger *slog.Logger) CollectorOption {
	return func(c *Collector) {
		c.logger = logger
	}
}

// Platform reports which platform's probes the collector runs.
func (c *Collector) Platform() Platform {
	return c.platform
}

// NewCollector creates a collector for the current platform.
func NewCollector(opts ...CollectorOption) *Collector {
	c := &Collector{
		platform: CurrentPlatform(),
		run:      exec.Capture,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.run == nil {
		c.run = exec.Capture
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Collect gathers device facts for the collector's platform.
//
// Collection never fails: every probe error degrades the result toward an
// empty fact set. Connections come back normalized, deduplicated and
// sorted, ready for fingerprint resolution.
func (c *Collector) Collect(ctx context.Context) FactSet {
	var (
		serial string
		conns  []Connection
	)

	switch c.platform {
	case PlatformLinux:
		serial = c.serialLinux(ctx)
		conns = c.connectionsLinux(ctx)
	case PlatformDarwin:
		serial = c.serialDarwin(ctx)
		conns = c.connectionsDarwin(ctx)
	case PlatformWindows:
		serial = c.serialWindows(ctx)
		conns = c.connectionsWindows(ctx)
	case PlatformEmbedded:
		serial = c.serialEmbedded()
	default:
		c.logger.Debug("no probe for platform, returning empty facts",
			"platform", c.platform.String())
	}

	facts := FactSet{Serial: serial, Connections: NormalizeConnections(conns)}
	c.logger.Debug("device facts collected",
		"platform", c.platform.String(),
		"has_serial", facts.Serial != "",
		"connections", len(facts.Connections))
	return facts
}

// capture runs a probe command, logging and swallowing failures.
func (c *Collector) capture(ctx context.Context, name string, args ...string) (string, bool) {
	out, err := c.run(ctx, name, args...)
	if err != nil {
		c.logger.Debug("probe command failed",
			"command", name,
			"error", err)
		return "", false
	}
	return out, true
}
