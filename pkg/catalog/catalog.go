// Package catalog keeps the registry of tables: name, heap file, schema and
// primary key. The buffer pool resolves table ids to heap files through it.
package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"storekit/pkg/dberror"
	"storekit/pkg/logging"
	"storekit/pkg/primitives"
	"storekit/pkg/storage/heap"
	"storekit/pkg/tuple"
)

const component = "Catalog"

var (
	ErrTableNotFound = dberror.New(dberror.CategoryLookup, "TABLE_NOT_FOUND", "table is not in the catalog")
	ErrTableExists   = dberror.New(dberror.CategoryLookup, "TABLE_EXISTS", "table name already in use")
	ErrInvalidTable  = dberror.New(dberror.CategoryFormat, "INVALID_TABLE", "invalid table definition")
)

// TableInfo holds metadata about a table
type TableInfo struct {
	File       *heap.HeapFile
	Name       string
	PrimaryKey string
}

// GetID returns the table's unique identifier
func (ti *TableInfo) GetID() primitives.TableID {
	return ti.File.GetID()
}

// TupleDesc returns the table's schema.
func (ti *TableInfo) TupleDesc() *tuple.TupleDescription {
	return ti.File.GetTupleDesc()
}

func (ti *TableInfo) String() string {
	pk := ti.PrimaryKey
	if pk == "" {
		pk = "-"
	}
	return fmt.Sprintf("%s(id=%d, pk=%s, schema=%s)", ti.Name, uint64(ti.GetID()), pk, ti.TupleDesc())
}

// Catalog manages the set of tables, providing thread-safe operations
// for adding, removing, and querying table metadata. It maintains bidirectional mappings
// between table names and IDs for efficient lookups.
type Catalog struct {
	nameToTable map[string]*TableInfo
	idToTable   map[primitives.TableID]*TableInfo
	mutex       sync.RWMutex
	logger      *zap.Logger
}

// NewCatalog creates a new empty Catalog instance.
func NewCatalog() *Catalog {
	return &Catalog{
		nameToTable: make(map[string]*TableInfo),
		idToTable:   make(map[primitives.TableID]*TableInfo),
		logger:      logging.WithComponent(component),
	}
}

// AddTable adds a table backed by f. If a table with the same name or ID
// already exists, it is replaced (its file is not closed).
func (c *Catalog) AddTable(f *heap.HeapFile, name, pKey string) error {
	if f == nil {
		return ErrInvalidTable.WithDetailf("file cannot be nil").WithOperation("AddTable", component)
	}
	if strings.TrimSpace(name) == "" {
		return ErrInvalidTable.WithDetailf("table name cannot be empty").WithOperation("AddTable", component)
	}
	if pKey != "" {
		if _, err := f.GetTupleDesc().FindFieldIndex(pKey); err != nil {
			return ErrInvalidTable.WithDetailf("primary key %q is not a field of %s", pKey, name).WithCause(err)
		}
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	info := &TableInfo{File: f, Name: name, PrimaryKey: pKey}
	c.removeExistingTable(name, info.GetID())
	c.nameToTable[name] = info
	c.idToTable[info.GetID()] = info

	logging.WithTable(name).Debug("table added", zap.String("component", component), zap.Stringer("id", info.GetID()))
	return nil
}

// GetTableID retrieves the unique identifier for a table given its name.
func (c *Catalog) GetTableID(tableName string) (primitives.TableID, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	info, exists := c.nameToTable[tableName]
	if !exists {
		return 0, ErrTableNotFound.WithDetailf("%q", tableName)
	}
	return info.GetID(), nil
}

// GetTableName retrieves the name of a table given its unique identifier.
func (c *Catalog) GetTableName(tableID primitives.TableID) (string, error) {
	info, err := c.getTableInfo(tableID)
	if err != nil {
		return "", err
	}
	return info.Name, nil
}

// GetTupleDesc retrieves the schema for a table given its ID.
func (c *Catalog) GetTupleDesc(tableID primitives.TableID) (*tuple.TupleDescription, error) {
	info, err := c.getTableInfo(tableID)
	if err != nil {
		return nil, err
	}
	return info.TupleDesc(), nil
}

// GetPrimaryKey returns the primary key field name, or "" if none.
func (c *Catalog) GetPrimaryKey(tableID primitives.TableID) (string, error) {
	info, err := c.getTableInfo(tableID)
	if err != nil {
		return "", err
	}
	return info.PrimaryKey, nil
}

// GetDbFile retrieves the heap file associated with a table given its ID.
func (c *Catalog) GetDbFile(tableID primitives.TableID) (*heap.HeapFile, error) {
	info, err := c.getTableInfo(tableID)
	if err != nil {
		return nil, err
	}
	return info.File, nil
}

// TableExists checks whether a table with the given name exists in the catalog.
func (c *Catalog) TableExists(name string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	_, exists := c.nameToTable[name]
	return exists
}

// RenameTable changes the name of an existing table.
func (c *Catalog) RenameTable(oldName, newName string) error {
	if strings.TrimSpace(newName) == "" || strings.TrimSpace(newName) != newName {
		return ErrInvalidTable.WithDetailf("bad table name %q", newName).WithOperation("RenameTable", component)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	info, exists := c.nameToTable[oldName]
	if !exists {
		return ErrTableNotFound.WithDetailf("%q", oldName)
	}
	if _, exists := c.nameToTable[newName]; exists {
		return ErrTableExists.WithDetailf("%q", newName)
	}

	info.Name = newName
	delete(c.nameToTable, oldName)
	c.nameToTable[newName] = info
	return nil
}

// RemoveTable removes a table from the catalog and closes its heap file.
func (c *Catalog) RemoveTable(name string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	info, exists := c.nameToTable[name]
	if !exists {
		return ErrTableNotFound.WithDetailf("%q", name)
	}

	delete(c.nameToTable, name)
	delete(c.idToTable, info.GetID())
	return info.File.Close()
}

// Clear removes all tables and closes their heap files.
func (c *Catalog) Clear() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var errs error
	for _, info := range c.idToTable {
		if err := info.File.Close(); err != nil {
			logging.WithTable(info.Name).Warn("failed to close table file", zap.String("component", component), zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}

	c.nameToTable = make(map[string]*TableInfo)
	c.idToTable = make(map[primitives.TableID]*TableInfo)
	return errs
}

// GetAllTableNames returns the names of all tables, sorted.
func (c *Catalog) GetAllTableNames() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	names := make([]string, 0, len(c.nameToTable))
	for name := range c.nameToTable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TableIDs returns the ids of all tables in ascending order.
func (c *Catalog) TableIDs() []primitives.TableID {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	ids := make([]primitives.TableID, 0, len(c.idToTable))
	for id := range c.idToTable {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ValidateIntegrity verifies that the name and id mappings agree.
func (c *Catalog) ValidateIntegrity() error {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if len(c.nameToTable) != len(c.idToTable) {
		return dberror.New(dberror.CategoryLookup, "CATALOG_INTEGRITY", "map size mismatch").
			WithDetailf("%d names, %d ids", len(c.nameToTable), len(c.idToTable))
	}

	for name, info := range c.nameToTable {
		if other, exists := c.idToTable[info.GetID()]; !exists || other != info {
			return dberror.New(dberror.CategoryLookup, "CATALOG_INTEGRITY", "name and id maps disagree").
				WithDetailf("table %q", name)
		}
	}
	return nil
}

// String returns the catalog contents, one table per line, sorted by name.
func (c *Catalog) String() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var builder strings.Builder
	fmt.Fprintf(&builder, "Catalog(tables=%d):\n", len(c.nameToTable))

	names := make([]string, 0, len(c.nameToTable))
	for name := range c.nameToTable {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(&builder, "  %s\n", c.nameToTable[name])
	}
	return builder.String()
}

// removeExistingTable drops any entry with the given name or id from both
// maps. Caller holds the write lock.
func (c *Catalog) removeExistingTable(name string, tableID primitives.TableID) {
	if existing, exists := c.nameToTable[name]; exists {
		delete(c.idToTable, existing.GetID())
	}
	if existing, exists := c.idToTable[tableID]; exists {
		delete(c.nameToTable, existing.Name)
	}
}

func (c *Catalog) getTableInfo(tableID primitives.TableID) (*TableInfo, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	info, exists := c.idToTable[tableID]
	if !exists {
		return nil, ErrTableNotFound.WithDetailf("id %d", uint64(tableID))
	}
	return info, nil
}
