// Package logging provides structured logging for the bridge core.
//
// It wraps log/slog so every component logs with the same handler, the
// same level filter and the same default fields (service, version).
//
// Configuration lives under the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	api := logger.Component("api")
//	api.Info("listening", "address", addr)
//
// Never log the bridge shared secret or the X-C4-Bridge-Secret header.
package logging
