// Package influxdb provides InfluxDB connectivity for the LaMetric bridge.
//
// It wraps the official influxdb-client-go v2 library and records the
// history of numeric and boolean points (brightness, volume, wifi
// strength, connection state) plus the bridge's own request counters.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // history is optional
//	}
//	defer client.Close()
//
//	client.WritePointValue("lametric-0", "meta.audio.volume", 40.0, time.Now())
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes; write
// errors are delivered through SetOnError.
package influxdb
