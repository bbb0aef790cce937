// Package logging provides a process-wide structured logger for storekit.
//
// The package wraps [go.uber.org/zap] and exposes a single global logger
// that is initialized once and then retrieved via GetLogger. All subsystems
// obtain their logger through this package rather than constructing their
// own, so that level, format and destination are controlled from one place.
//
// # Initialisation
//
// Call Init (or InitDefault for defaults) once at program startup:
//
//	if err := logging.Init(logging.Config{Level: "debug", Format: "json", Output: "/var/log/storekit.log"}); err != nil {
//	    return err
//	}
//
// InitDefault writes INFO-level console logs to stderr.
//
// # Retrieving the logger
//
//	logger := logging.GetLogger()
//	logger.Info("database opened", zap.String("dir", dataDir))
//
// If GetLogger is called before Init, the default logger is created lazily
// so that packages that log during construction are safe.
//
// # Context helpers
//
// Several helpers return child loggers pre-populated with structured fields:
//
//	log := logging.WithTx(tid)              // adds tx_id field
//	log := logging.WithComponent("lock")    // adds component field
//	log := logging.WithPage(pid)            // adds page field
package logging
