// Package api implements the HTTP REST API and WebSocket server for the
// LaMetric bridge.
//
// This package provides:
//   - REST endpoints to list, read and write points
//   - A notification relay mirroring the MQTT notification command
//   - Refresh triggers for the state and apps loops
//   - A WebSocket hub streaming point.changed events
//
// # Routes
//
//	GET  /api/v1/health
//	GET  /api/v1/points?prefix=meta.display
//	GET  /api/v1/points/{address}
//	PUT  /api/v1/points/{address}      {"val": 40}
//	POST /api/v1/notifications         {"text": "hi", "priority": "info"}
//	POST /api/v1/refresh
//	POST /api/v1/refresh/{loop}
//	GET  /api/v1/ws
//
// A PUT is a user write (ack=false). It returns 202 once the point is
// stored; the bridge forwards it to the device and acknowledges the
// point when the device confirms.
//
// # Graceful Degradation
//
// The server works with the device integration disabled: reads, writes and
// WebSocket streaming behave normally, writes are simply never confirmed
// and notifications return an empty object.
package api
