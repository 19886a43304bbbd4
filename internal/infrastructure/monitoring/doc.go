/*
Package monitoring provides Prometheus metrics for the editor bridge.

# Overview

Metrics are registered on an injectable prometheus.Registerer so tests and
embedders can keep them off the global registry. Every recording method is
safe on a nil *Metrics, which lets components take metrics optionally.

# Metrics

- richbridge_messages_sent_total{type}: messages injected into sandboxes
- richbridge_messages_received_total{type}: messages posted by sandboxes
- richbridge_messages_dropped_total{reason}: malformed, unknown or late messages
- richbridge_pending_commands: commands buffered before readiness
- richbridge_handler_faults_total{extension}: isolated extension failures
- richbridge_ready_seconds: construction to ready latency
- richbridge_editors_active: mounted editors
- HTTP request and WebSocket connection metrics for the development host

# Usage

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	router.Use(monitoring.Middleware(metrics))

	metrics.RecordSent("toggle-Bold")
	metrics.RecordDropped(monitoring.DropMalformed)
*/
package monitoring
