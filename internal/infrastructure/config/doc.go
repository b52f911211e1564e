// Package config handles loading and validating the LaMetric bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The device API token and broker credentials should be set via environment variables
//   - The config file should have restricted permissions (0600)
//   - String() on settings that carry secrets redacts them
//
// A missing device host or token is not an error: the bridge starts with the
// device integration disabled and every device call becomes a no-op.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Bridge.ID)
package config
