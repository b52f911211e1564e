package points

import "time"

// HistoryWriter records point values in a time-series store.
// Satisfied by *influxdb.Client.
type HistoryWriter interface {
	WritePointValue(bridgeID, address string, value any, ts time.Time) bool
}

// HistoryRecorder forwards acknowledged values to a HistoryWriter.
// Pending user writes (ack=false) and point creation are not recorded.
type HistoryRecorder struct {
	bridgeID string
	writer   HistoryWriter
}

// NewHistoryRecorder creates a recorder tagging every value with bridgeID.
func NewHistoryRecorder(bridgeID string, writer HistoryWriter) *HistoryRecorder {
	return &HistoryRecorder{bridgeID: bridgeID, writer: writer}
}

// Observe is a registry Observer.
func (h *HistoryRecorder) Observe(c Change) {
	if c.Created || !c.Point.Ack || c.Point.Value == nil {
		return
	}
	ts := time.Now()
	if c.Point.UpdatedAt != nil {
		ts = *c.Point.UpdatedAt
	}
	h.writer.WritePointValue(h.bridgeID, c.Point.Address, c.Point.Value, ts)
}
