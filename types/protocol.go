package types

import "fmt"

// Protocol selects the MQTT protocol revision a connection speaks.
type Protocol string

const (
	// ProtocolV3 is MQTT 3.1.1.
	ProtocolV3 Protocol = "v3"

	// ProtocolV5 is MQTT 5.0.
	ProtocolV5 Protocol = "v5"
)

// Validate checks that the protocol is a supported revision.
func (p Protocol) Validate() error {
	switch p {
	case ProtocolV3, ProtocolV5:
		return nil
	default:
		return fmt.Errorf("unsupported protocol %q (want %q or %q)", string(p), ProtocolV3, ProtocolV5)
	}
}

// String returns the protocol identifier.
func (p Protocol) String() string {
	return string(p)
}
