// Package config handles loading and validating the bridge core configuration.
//
// This package manages:
//   - Loading configuration from YAML files (or TOML, by .toml extension)
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The bridge shared secret is the only credential the Control4 driver
//     presents; set it via C4BRIDGE_SHARED_SECRET rather than the file
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Bridge.ID)
package config
