// Package logging provides a minimal logging interface and adapters for retryit.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that actions, retryable wrappers and folds use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - RetryLogger with attempt / decision / outcome helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	a := action.New(op, func(o *action.Options) { o.Logger = logger })
package logging
