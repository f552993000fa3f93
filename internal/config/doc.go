// Package config defines configuration for the pdfslurp CLI.
//
// Configuration is layered, later sources winning:
//   - Built-in defaults
//   - YAML configuration file
//   - .env file (never overrides variables already set)
//   - Environment variables (PDFSLURP_ prefix)
//   - Command-line flags
//
// # Structure
//
//	type Config struct {
//	    URL          string
//	    Dir          string
//	    Bucket       string
//	    Workers      int
//	    Timeout      time.Duration
//	    ChunkSize    int64
//	    UserAgent    string
//	    Progress     bool
//	    Disambiguate bool
//	    Strict       bool
//	    LogLevel     string
//	    Retry        RetryConfig
//	}
//
//	type RetryConfig struct {
//	    Attempts   int
//	    Backoff    time.Duration
//	    MaxBackoff time.Duration
//	}
package config
