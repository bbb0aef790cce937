package logging

import (
	"fmt"

	"go.uber.org/zap"

	"storekit/pkg/primitives"
)

// WithTx creates a logger with transaction context.
//
// Example:
//
//	log := logging.WithTx(tid)
//	log.Debug("page dirtied", zap.Stringer("page", pid))
func WithTx(tid primitives.TransactionID) *zap.Logger {
	return GetLogger().With(zap.Uint64("tx_id", uint64(tid)))
}

// WithTable creates a logger with table context.
func WithTable(tableName string) *zap.Logger {
	return GetLogger().With(zap.String("table", tableName))
}

// WithIndex creates a logger with index context.
func WithIndex(indexName string) *zap.Logger {
	return GetLogger().With(zap.String("index", indexName))
}

// WithPage creates a logger with page context.
func WithPage(pid fmt.Stringer) *zap.Logger {
	return GetLogger().With(zap.Stringer("page", pid))
}

// WithLock creates a logger with lock context.
func WithLock(tid primitives.TransactionID, resource fmt.Stringer) *zap.Logger {
	return GetLogger().With(zap.Uint64("tx_id", uint64(tid)), zap.Stringer("resource", resource))
}

// WithComponent creates a logger with component/subsystem context.
//
// Example:
//
//	log := logging.WithComponent("BufferPool")
//	log.Info("component initialized")
func WithComponent(component string) *zap.Logger {
	return GetLogger().With(zap.String("component", component))
}
