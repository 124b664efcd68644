// Package config handles loading and validating the simulator configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (SIMULATOR_*)
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Broker passwords, InfluxDB tokens and the JWT secret should be set via
//     environment variables
//   - An empty security.jwt.secret leaves the control API unauthenticated
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Simulator.ID)
package config
