// Package config provides centralized configuration management for SilverPulse.
//
// # Configuration Sources
//
// Configuration is assembled in order of increasing precedence:
//
//	1. Default() values
//	2. A YAML file (SILVER_CONFIG, config.yaml or configs/config.yaml)
//	3. Environment variables with the SILVER_ prefix
//
// Binaries load a .env file before calling Load, so variables defined there
// behave like real environment variables.
//
// # Environment Variables
//
// Nested sections map to underscored names:
//
//	SILVER_SERVER_PORT=8080
//	SILVER_SOURCES_CACHE_TTL=30m
//	SILVER_SOURCES_DISABLED=vault_holdings,regional_benchmark
//	SILVER_HISTORY_ARCHIVE_URL=https://example.org/silver_history.csv
//	SILVER_LOGGING_LEVEL=debug
//
// # Validation
//
// Load validates the merged result with go-playground/validator struct tags
// plus a few cross-field rules, and fails fast on invalid input.
//
// # Paths
//
// GetPaths resolves the data and log directories relative to the base
// directory (the executable directory by default) and derives the history
// CSV, the cached raw report and the log file locations.
package config
