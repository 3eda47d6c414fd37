// Package logging provides structured logging utilities for agentpark.
//
// This package centralizes logging patterns so every data source, the composer
// and the delivery surfaces log with the same attribute names, using the
// standard library's slog package.
//
// # Usage Patterns
//
// Create a logger scoped to a data source:
//
//	logger := logging.WithSource(slog.Default(), "weather")
//	logger.Info("fetched current conditions",
//	    logging.Status(logging.StatusSuccess))
//
// Sanitize sensitive data before logging:
//
//	logger.Debug("loaded token", "token", logging.SanitizeToken(tok.AccessToken))
//
// # Security Considerations
//
//   - Mail senders are hashed with AnonymizeEmail before they reach a log line
//   - Tokens and API keys are never logged directly
package logging
