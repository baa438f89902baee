// Package config provides centralized configuration for bojfx.
//
// # Configuration Sources
//
// Configuration is assembled in order of increasing precedence:
//
//	1. Default values (Default)
//	2. A YAML file (bojfx.yaml, config.yaml or an explicit path)
//	3. Environment variables
//
// # Environment Variables
//
// All environment variables follow the pattern BOJFX_<SECTION>_<FIELD>:
//
//	BOJFX_LOGGING_LEVEL=debug
//	BOJFX_BROWSER_EXEC_PATH=/usr/bin/chromium
//	BOJFX_BROWSER_HEADLESS=false
//	BOJFX_EXTRACTION_CURRENCY=EUR
//	BOJFX_NETWORK_RETRY_MAX_ATTEMPTS=5
//
// # Static Data
//
// The data item labels for each currency group and the missing value tokens
// are static data, not settings: they mirror what the portal publishes and
// change only when the portal does.
package config
