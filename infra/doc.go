// Package infra contains the technical adapters of loadshift: the MQTT
// client, HTTP relay commands, meter payload decoders and metrics sinks.
// These packages depend only on the interfaces defined in the core packages.
package infra
