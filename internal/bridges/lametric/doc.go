// Package lametric implements the LaMetric smart-display bridge.
//
// The bridge keeps a LaMetric device's local REST API and the point tree
// in step. Device state is polled into points; user writes to points are
// translated into device calls.
//
// # Architecture
//
//	┌─────────────────┐          ┌─────────────────┐   HTTP    ┌──────────┐
//	│  Home-automation│   MQTT   │ LaMetric Bridge │  /api/v2  │ LaMetric │
//	│      host       │◄────────►│   (this pkg)    │◄─────────►│  device  │
//	└─────────────────┘          └─────────────────┘           └──────────┘
//
// # Data Flow
//
// Refresh: RefreshState and RefreshApps (driven by the poller package)
// fetch device objects and write the mapped points with ack=true.
//
// Commands: a point written with ack=false (from MQTT, the REST API or
// any other registry writer) is classified by address, turned into a
// DeviceRequest by the pure BuildRequest and sent. Points touched by the
// response's success.data are re-synced with ack=true. Nothing is marked
// acknowledged unless the device reported it.
//
// Notifications: Translate maps a NotificationRequest onto the device's
// notification payload. Requests arrive on the MQTT request topic or the
// REST API; the device's success object (or {}) is relayed back.
//
// # Error Handling
//
// Without a configured host and token every device call returns
// ErrDisabled, which callers treat as a silent no-op. Transport failures
// and non-2xx statuses are logged and never retried.
//
// # Thread Safety
//
// All exported types are safe for concurrent use from multiple goroutines.
package lametric
