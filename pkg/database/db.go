// Package database wires the storage engine together: logger, metrics,
// catalog, lock manager and buffer pool are built once by Open and torn
// down by Close.
package database

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"storekit/pkg/catalog"
	"storekit/pkg/concurrency/lock"
	"storekit/pkg/concurrency/transaction"
	"storekit/pkg/config"
	"storekit/pkg/dberror"
	"storekit/pkg/logging"
	"storekit/pkg/memory"
	"storekit/pkg/monitoring"
	"storekit/pkg/primitives"
	"storekit/pkg/storage/index/btree"
)

const component = "Database"

var ErrClosed = dberror.New(dberror.CategoryConcurrency, "DATABASE_CLOSED", "database is closed")

// Database owns one instance of every storage component.
type Database struct {
	cfg        *config.Config
	registry   *prometheus.Registry
	metrics    *monitoring.StorageMetrics
	catalog    *catalog.Catalog
	lockMgr    *lock.LockManager
	bufferPool *memory.BufferPool
	logger     *zap.Logger

	ownsLogger bool

	mutex  sync.RWMutex
	closed bool
}

// DatabaseInfo is a point-in-time summary of the engine.
type DatabaseInfo struct {
	DataDir            string
	Tables             []string
	CachedPages        int
	Capacity           int
	ActiveTransactions int
	Metrics            monitoring.Snapshot
}

// Open validates cfg and builds the engine. A nil cfg means config.Default().
// When the global logger is already initialized it is reused and left
// running on Close.
func Open(cfg *config.Config) (*Database, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db := &Database{cfg: cfg, registry: prometheus.NewRegistry()}

	switch err := logging.Init(cfg.LoggingConfig()); {
	case err == nil:
		db.ownsLogger = true
	case errors.Is(err, logging.ErrAlreadyInitialized):
	default:
		return nil, dberror.Wrap(err, dberror.CategoryIO, "LOGGER_INIT", "Open", component)
	}
	db.logger = logging.WithComponent(component)

	if err := db.build(); err != nil {
		_ = db.teardown()
		return nil, err
	}

	db.logger.Info("database opened",
		zap.String("data_dir", cfg.Storage.DataDir),
		zap.Int("tables", len(db.catalog.GetAllTableNames())),
		zap.Int64("buffer_pool_capacity", cfg.BufferPool.Capacity))
	return db, nil
}

func (db *Database) build() error {
	var err error
	if err = os.MkdirAll(db.cfg.Storage.DataDir, 0o750); err != nil {
		return dberror.IOError(err, "Open", component)
	}

	if db.metrics, err = monitoring.NewStorageMetrics(db.registry); err != nil {
		return err
	}

	db.catalog = catalog.NewCatalog()
	if path := db.cfg.Storage.CatalogFile; path != "" {
		if err = db.catalog.LoadSchema(path, db.cfg.Storage.DataDir); err != nil {
			return err
		}
	}

	db.lockMgr = lock.NewLockManager(db.metrics)
	db.bufferPool, err = memory.NewBufferPool(int(db.cfg.BufferPool.Capacity), db.catalog, db.lockMgr, db.metrics)
	return err
}

// teardown releases whatever build managed to create.
func (db *Database) teardown() error {
	var err error
	if db.bufferPool != nil {
		err = multierr.Append(err, db.bufferPool.Close())
	}
	if db.catalog != nil {
		err = multierr.Append(err, db.catalog.Clear())
	}
	if db.ownsLogger {
		// stderr sync errors are not interesting at shutdown
		_ = logging.Close()
		db.ownsLogger = false
	}
	return err
}

// Close aborts every active transaction, closes all table files and, when
// Open initialized it, the logger. Calling Close twice is a no-op.
func (db *Database) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if db.closed {
		return nil
	}
	db.closed = true

	db.logger.Info("database closing", zap.Int("active_transactions", len(db.bufferPool.ActiveTransactions())))
	return db.teardown()
}

func (db *Database) checkOpen() error {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	if db.closed {
		return ErrClosed
	}
	return nil
}

// Begin returns a fresh transaction id. The transaction becomes active on
// its first page access.
func (db *Database) Begin() (primitives.TransactionID, error) {
	if err := db.checkOpen(); err != nil {
		return primitives.NoTransaction, err
	}
	return transaction.NewTransactionID(), nil
}

func (db *Database) Commit(tid primitives.TransactionID) error {
	if err := db.checkOpen(); err != nil {
		return err
	}
	return db.bufferPool.CommitTransaction(tid)
}

func (db *Database) Abort(tid primitives.TransactionID) error {
	if err := db.checkOpen(); err != nil {
		return err
	}
	return db.bufferPool.AbortTransaction(tid)
}

// CreateTable creates the heap file for def under the data directory and
// registers it in the catalog.
func (db *Database) CreateTable(def catalog.TableDef) (primitives.TableID, error) {
	if err := db.checkOpen(); err != nil {
		return 0, err
	}
	if err := db.catalog.CreateTable(def, db.cfg.Storage.DataDir); err != nil {
		return 0, err
	}
	return db.catalog.GetTableID(def.Name)
}

// NewIndex returns an empty B+Tree using the configured degree. name only
// labels the index in logs.
func (db *Database) NewIndex(name string) (*btree.BPlusTree, error) {
	bt, err := btree.NewBPlusTree(int(db.cfg.Index.Degree))
	if err != nil {
		return nil, err
	}
	logging.WithIndex(name).Debug("index created", zap.String("component", component), zap.Int("degree", bt.Degree()))
	return bt, nil
}

func (db *Database) Catalog() *catalog.Catalog { return db.catalog }

func (db *Database) BufferPool() *memory.BufferPool { return db.bufferPool }

func (db *Database) LockManager() *lock.LockManager { return db.lockMgr }

func (db *Database) Metrics() *monitoring.StorageMetrics { return db.metrics }

// Registry is the prometheus registry holding the engine's collectors.
func (db *Database) Registry() *prometheus.Registry { return db.registry }

func (db *Database) Config() *config.Config { return db.cfg }

// Info returns a summary of tables, cache occupancy and metrics.
func (db *Database) Info() DatabaseInfo {
	return DatabaseInfo{
		DataDir:            db.cfg.Storage.DataDir,
		Tables:             db.catalog.GetAllTableNames(),
		CachedPages:        db.bufferPool.Size(),
		Capacity:           db.bufferPool.Capacity(),
		ActiveTransactions: len(db.bufferPool.ActiveTransactions()),
		Metrics:            db.metrics.Snapshot(),
	}
}
