// Package logger provides a thin factory around Go's slog package used
// throughout the Notificare SDK, plus helper attribute constructors that keep
// attribute naming consistent across the codebase.
//
// The package exposes a single factory – New – that creates a *slog.Logger
// configured by a set of Option functions:
//
//   - Select an output format (text or json)
//   - Set the minimum log level
//   - Supply default slog.Attr values applied to every record
//
// Helper constructors such as Error, Component and DeviceID live in attr.go
// and return commonly-used slog.Attr instances so that log records emitted by
// different SDK components remain uniform and greppable.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithLevel(slog.LevelDebug),
//	    logger.WithTextFormatter(),
//	    logger.WithAttr(slog.String("sdk", "notificare")),
//	)
//	log.Info("device registered", logger.DeviceID(device.ID))
package logger
