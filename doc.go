// Package sdk is the SteadyMQ client SDK for device-stable MQTT
// connectivity.
//
// SteadyMQ derives an MQTT client identifier from durable device facts
// (serial number, MAC address, Bluetooth address, hostname) so a device
// presents the same identity to the broker across restarts and reimages.
// The SDK builds MQTT 3.1.1 and 5.0 connections around that identity,
// with retained availability announcements, persistent sessions, and a
// Redis-backed message store for QoS state that survives process death.
//
// # Core Concepts
//
//   - Facts: durable device identifiers, probed once per process
//   - Client ID: an app-name prefix plus a deterministic hash of the facts
//   - Connector: derives the identity and builds connections around it
//   - Availability: retained online/offline announcements plus a last will
//
// # Getting Started
//
// Create a Connector for your broker and application, then connect:
//
//	connector, err := sdk.New("broker.internal", "sensor-bridge",
//		sdk.WithCredentials("sensors", os.Getenv("MQTT_PASSWORD")),
//		sdk.WithAvailability("devices/sensor-bridge/status"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	conn, err := connector.ConnectV5(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer conn.Close(ctx)
//
// The same device and app name always produce the same client ID, and the
// ID a built connection presents is exactly the one ClientID reports:
//
//	id, err := connector.ClientID(ctx) // e.g. "sensor-bri-k3j2n4mp5q2a"
//
// Run several instances of one app on the same device by giving each an
// instance ID, either directly with WithInstanceID or leased from the
// registry package.
//
// # Configuration
//
// Settings can come from a steadymq.yaml file instead of options:
//
//	cfg, err := config.LoadFromCurrentDir()
//	if err != nil {
//		log.Fatal(err)
//	}
//	connector, err := sdk.NewFromConfig(cfg)
//
// # Error Handling
//
// The SDK uses sentinel errors and a structured error type:
//
//	if err := conn.Publish(ctx, topic, payload, types.QoSAtLeastOnce, false); err != nil {
//		if errors.Is(err, sdk.ErrNotConnected) {
//			// Reconnect, or queue the message for later.
//		}
//	}
//
// # Observability
//
// Probing and connection builds can be instrumented with OpenTelemetry
// through the telemetry package:
//
//	tel, err := telemetry.New(telemetry.Options{
//		Tracer:        tp.Tracer("steadymq"),
//		MeterProvider: mp,
//	})
//	connector, err := sdk.New(host, app, sdk.WithTelemetry(tel))
//
// # Thread Safety
//
// Connectors are immutable after New and safe for concurrent use.
// Connections serialize their internal state; message handlers run on the
// client's dispatch goroutine and should hand long work off.
package sdk
