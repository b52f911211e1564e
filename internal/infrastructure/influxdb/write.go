package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementPoints is the measurement all point history is written to.
const MeasurementPoints = "lametric_points"

// WritePointValue records one point value in the history bucket.
//
// Only numeric and boolean values are recorded; anything else is ignored
// and false is returned. Booleans are stored both as a 0/1 "value" field
// (for graphing) and as a boolean "state" field.
//
// Parameters:
//   - bridgeID: Bridge instance tag (e.g., "lametric-0")
//   - address: Point address tag (e.g., "meta.audio.volume")
//   - value: The point value as decoded from JSON
//   - ts: Time the value was observed
//
// Example:
//
//	client.WritePointValue("lametric-0", "meta.display.brightness", 40.0, time.Now())
func (c *Client) WritePointValue(bridgeID, address string, value any, ts time.Time) bool {
	fields, ok := PointFields(value)
	if !ok {
		return false
	}

	c.WritePointWithTime(MeasurementPoints,
		map[string]string{
			"bridge":  bridgeID,
			"address": address,
		},
		fields,
		ts,
	)
	return true
}

// PointFields converts a point value into InfluxDB fields.
// Returns false for values that have no numeric meaning (strings, nil, objects).
func PointFields(value any) (map[string]interface{}, bool) {
	switch v := value.(type) {
	case bool:
		f := 0.0
		if v {
			f = 1
		}
		return map[string]interface{}{"value": f, "state": v}, true
	case float64:
		return map[string]interface{}{"value": v}, true
	case float32:
		return map[string]interface{}{"value": float64(v)}, true
	case int:
		return map[string]interface{}{"value": float64(v)}, true
	case int64:
		return map[string]interface{}{"value": float64(v)}, true
	default:
		return nil, false
	}
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("lametric_requests",
//	    map[string]string{"bridge": "lametric-0"},
//	    map[string]interface{}{"total": 120, "failed": 3})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with a specific timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
