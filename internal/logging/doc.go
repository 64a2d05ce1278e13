// Package logging provides structured logging for LEDSync.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used by the discovery listener, the device control client and the
// local API server.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (discarded datagrams, device requests)
//   - Info: Normal operations (announcements, API requests, state changes)
//   - Warn: Non-fatal issues (listener restarts, MQTT publish failures)
//   - Error: Fatal issues (bind failures, startup errors)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Device discovered",
//	    zap.String("address", "192.168.1.40"),
//	    zap.String("device_name", "Desk Strip"),
//	)
//
// # Configuration
//
// Logging is silent unless a level is given explicitly or through the
// LEDSYNC_LOG_LEVEL environment variable:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use.
package logging
