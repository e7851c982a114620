// Package logger provides structured logging for linkedin-dl.
//
// Features:
//   - Multiple log levels (TRACE, DEBUG, INFO, WARN, ERROR)
//   - Component-based filtering
//   - Multiple output formats (text, JSON, color)
//   - Per-run fields via ComponentLogger.With
//   - Thread-safe operations
//
// Usage:
//
//	log := logger.WithComponent(logger.ComponentCapture)
//	log.Info("Capture finished", map[string]interface{}{
//		"bytes":  1024,
//		"reason": "STREAM_ENDED",
//	})
//
//	config := logger.DefaultConfig()
//	config.Level = logger.DEBUG
//	config.Format = logger.FormatJSON
//	logger.SetGlobalLogger(logger.New(config))
//
// Components:
//   - ComponentApp: CLI and orchestration
//   - ComponentResolver: rendition resolution
//   - ComponentPage: page markup extraction
//   - ComponentCapture: stream capture
//   - ComponentRetry: retry state machine
//   - ComponentClient: HTTP client
package logger
