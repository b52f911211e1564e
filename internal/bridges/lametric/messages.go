package lametric

import (
	"encoding/json"
	"time"

	"github.com/nerrad567/gray-logic-lametric/internal/points"
)

// MQTT message types exchanged with the home-automation host.

// StateMessage carries a point value.
// Topic: lametric/{bridge}/state/{address...}
// QoS: 1, Retained: Yes
type StateMessage struct {
	// Value is the current point value (JSON scalar or null).
	Value any `json:"val"`

	// Ack is true when the value was confirmed by the device.
	Ack bool `json:"ack"`

	// Timestamp is when the value was last written (UTC, ISO8601).
	Timestamp *time.Time `json:"ts,omitempty"`
}

// NewStateMessage builds the state message for a point.
func NewStateMessage(p points.Point) StateMessage {
	msg := StateMessage{Value: p.Value, Ack: p.Ack}
	if p.UpdatedAt != nil {
		ts := p.UpdatedAt.UTC()
		msg.Timestamp = &ts
	}
	return msg
}

// ObjectMessage describes a point so the host can build its object tree.
// Topic: lametric/{bridge}/object/{address...}
// QoS: 1, Retained: Yes
type ObjectMessage struct {
	points.Definition
}

// SetMessage is the optional object form of a user write. A bare JSON
// scalar on the set topic is also accepted.
// Topic: lametric/{bridge}/set/{address...}
type SetMessage struct {
	Value any `json:"val"`
}

// RequestMessage is a request/response message from the host.
// Topic: lametric/{bridge}/request/{request_id}
type RequestMessage struct {
	// RequestID correlates the response; defaults to the topic's last level.
	RequestID string `json:"request_id,omitempty"`

	// Command names the operation. Supported: "notification".
	Command string `json:"command"`

	// Message is the command-specific body.
	Message json.RawMessage `json:"message"`
}

// Request commands.
const (
	CommandNotification = "notification"
)

// ResponseMessage answers a RequestMessage.
// Topic: lametric/{bridge}/response/{request_id}
type ResponseMessage struct {
	RequestID string          `json:"request_id"`
	Timestamp time.Time       `json:"timestamp"`
	Command   string          `json:"command"`
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     *ResponseError  `json:"error,omitempty"`
}

// ResponseError contains error details for failed requests.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Response error codes.
const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeUnknownCommand = "UNKNOWN_COMMAND"
)

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	// HealthHealthy indicates the bridge is operating normally.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded indicates the bridge is running with issues.
	HealthDegraded HealthStatus = "degraded"

	// HealthStarting indicates the bridge is starting up.
	HealthStarting HealthStatus = "starting"

	// HealthStopping indicates the bridge is shutting down.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage reports bridge status.
// Topic: lametric/{bridge}/health
// QoS: 1, Retained: Yes
type HealthMessage struct {
	Bridge        string       `json:"bridge"`
	Timestamp     time.Time    `json:"timestamp"`
	Status        HealthStatus `json:"status"`
	Version       string       `json:"version"`
	UptimeSeconds int64        `json:"uptime_seconds"`

	// Device contains device API request statistics.
	Device *ClientStats `json:"device,omitempty"`

	// PointsManaged is the number of points in the registry.
	PointsManaged int `json:"points_managed"`

	// Reason explains a degraded status.
	Reason string `json:"reason,omitempty"`
}

// NewHealthMessage creates a health status message.
func NewHealthMessage(bridgeID, version string, status HealthStatus, stats ClientStats, pointCount int, startTime time.Time) HealthMessage {
	return HealthMessage{
		Bridge:        bridgeID,
		Timestamp:     time.Now().UTC(),
		Status:        status,
		Version:       version,
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
		Device:        &stats,
		PointsManaged: pointCount,
	}
}
