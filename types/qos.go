package types

import "fmt"

// QoS is an MQTT quality-of-service level.
type QoS byte

// The three delivery guarantees MQTT defines.
const (
	// QoSAtMostOnce delivers a message zero or one times (fire and forget).
	QoSAtMostOnce QoS = 0

	// QoSAtLeastOnce delivers a message one or more times (acknowledged).
	QoSAtLeastOnce QoS = 1

	// QoSExactlyOnce delivers a message exactly once (assured, four-step).
	QoSExactlyOnce QoS = 2
)

// Validate checks that the level is one of the three defined by MQTT.
func (q QoS) Validate() error {
	if q > QoSExactlyOnce {
		return fmt.Errorf("qos %d out of range [0, 2]", q)
	}
	return nil
}

// String returns the conventional short name for the level.
func (q QoS) String() string {
	switch q {
	case QoSAtMostOnce:
		return "at-most-once"
	case QoSAtLeastOnce:
		return "at-least-once"
	case QoSExactlyOnce:
		return "exactly-once"
	default:
		return fmt.Sprintf("qos(%d)", byte(q))
	}
}
