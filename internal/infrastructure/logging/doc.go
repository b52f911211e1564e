// Package logging provides structured logging for the LaMetric bridge.
//
// It wraps log/slog so every component logs with the same handler,
// level filter and default fields (service, version).
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("device refreshed", "points", 31)
//	logger.Component("poller").Debug("timer armed", "loop", "state")
//
// Never log the device token or broker password.
package logging
