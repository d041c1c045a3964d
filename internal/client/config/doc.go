// Package config loads runtime configuration for the gallery client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with -c or -config. Files ending in
//     .yaml or .yml are read as YAML, anything else as JSON.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-m string   mirror server base URL (empty: in-process mirror)
//	-t string   mirror access token
//	-d string   path of the local SQLite database
//	-i int      online status check interval (seconds)
//	-r int      failed replays before a sync queue entry is dropped
//	-l string   log level (debug, info, warn, error)
//
// # File schema
//
// Intervals use timex.Duration, so values can be strings like "3s" or
// integer nanoseconds:
//
//	mirror_url: http://127.0.0.1:8080
//	access_token: eyJhbGciOi...
//	db_path: gallery.db
//	online_check_interval: 3s
//	max_retries: 3
//	generation_attempts: 3
//	generation_retry_delay: 2s
//	compression:
//	  threshold: 1048576
//	  max_dimension: 1024
//	  quality: 80
//	log_level: info
package config
