package identity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// setHostname swaps the hostname source for one test.
func setHostname(t *testing.T, fn func() (string, error)) {
	t.Helper()
	prev := hostname
	hostname = fn
	t.Cleanup(func() { hostname = prev })
}

func TestResolveFingerprint_SerialWins(t *testing.T) {
	facts := FactSet{
		Serial: "  C02XL0GZJGH5  ",
		Connections: []Connection{
			{Kind: ConnectionMAC, Address: "3c:22:fb:01:02:03"},
		},
	}

	assert.Equal(t, "sn:c02xl0gzjgh5", ResolveFingerprint(facts))
}

func TestResolveFingerprint_MACBeatsBluetooth(t *testing.T) {
	facts := FactSet{
		Connections: []Connection{
			{Kind: ConnectionBluetooth, Address: "5c:f3:70:8b:12:34"},
			{Kind: ConnectionMAC, Address: "d4:3d:7e:11:22:33"},
		},
	}

	assert.Equal(t, "mac:d4:3d:7e:11:22:33", ResolveFingerprint(facts))
}

func TestResolveFingerprint_TiesBreakOnAddress(t *testing.T) {
	facts := FactSet{
		Connections: []Connection{
			{Kind: ConnectionMAC, Address: "d4:3d:7e:11:22:33"},
			{Kind: ConnectionMAC, Address: "3c:22:fb:01:02:03"},
		},
	}

	assert.Equal(t, "mac:3c:22:fb:01:02:03", ResolveFingerprint(facts))
}

func TestResolveFingerprint_OrderIndependent(t *testing.T) {
	conns := []Connection{
		{Kind: ConnectionBluetooth, Address: "5c:f3:70:8b:12:34"},
		{Kind: ConnectionMAC, Address: "d4:3d:7e:11:22:33"},
		{Kind: ConnectionMAC, Address: "3c:22:fb:01:02:03"},
	}
	forward := ResolveFingerprint(FactSet{Connections: conns})
	reversed := ResolveFingerprint(FactSet{
		Connections: []Connection{conns[2], conns[1], conns[0]},
	})

	assert.Equal(t, forward, reversed)
}

func TestResolveFingerprint_BluetoothPrefix(t *testing.T) {
	facts := FactSet{
		Connections: []Connection{
			{Kind: ConnectionBluetooth, Address: "5C:F3:70:8B:12:34"},
		},
	}

	assert.Equal(t, "bluetooth:5c:f3:70:8b:12:34", ResolveFingerprint(facts))
}

func TestResolveFingerprint_BlankAddressesSkipped(t *testing.T) {
	facts := FactSet{
		Connections: []Connection{
			{Kind: ConnectionMAC, Address: "   "},
			{Kind: ConnectionBluetooth, Address: "5c:f3:70:8b:12:34"},
		},
	}

	assert.Equal(t, "bluetooth:5c:f3:70:8b:12:34", ResolveFingerprint(facts))
}

func TestResolveFingerprint_HostnameFallback(t *testing.T) {
	setHostname(t, func() (string, error) { return "  Factory-Floor-7  ", nil })

	assert.Equal(t, "host:factory-floor-7", ResolveFingerprint(FactSet{}))
}

func TestResolveFingerprint_UnknownHost(t *testing.T) {
	setHostname(t, func() (string, error) { return "", errors.New("no hostname") })

	assert.Equal(t, "host:unknown", ResolveFingerprint(FactSet{}))
}

func TestResolveFingerprint_EmptyHostnameFallsThrough(t *testing.T) {
	setHostname(t, func() (string, error) { return "   ", nil })

	assert.Equal(t, "host:unknown", ResolveFingerprint(FactSet{}))
}
