// Package config provides application configuration management.
//
// The config package handles loading and validation of the application's
// configuration from YAML files. It covers server transport settings, the
// sandbox engine's execution deadline and retry policy, Google Cloud
// defaults, and logging.
//
// Usage:
//
//	cfg, err := config.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Engine timeout: %s\n", cfg.EngineTimeout())
package config
