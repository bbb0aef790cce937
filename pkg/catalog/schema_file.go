package catalog

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"storekit/pkg/dberror"
	"storekit/pkg/primitives"
	"storekit/pkg/storage/heap"
	"storekit/pkg/tuple"
	"storekit/pkg/types"
)

// DataFileExt is the extension of table heap files.
const DataFileExt = ".dat"

var ErrSchemaSyntax = dberror.New(dberror.CategoryFormat, "SCHEMA_SYNTAX", "malformed schema line")

// TableDef is one parsed line of a schema file.
type TableDef struct {
	Name       string
	FieldNames []string
	FieldTypes []types.Type
	PrimaryKey string
}

// TupleDesc builds the schema described by d.
func (d TableDef) TupleDesc() (*tuple.TupleDescription, error) {
	return tuple.NewTupleDesc(d.FieldTypes, d.FieldNames)
}

// ParseSchemaLine parses a table definition of the form
//
//	name (field type [pk], field type, ...)
//
// where type is int or string and at most one field carries pk.
func ParseSchemaLine(line string) (TableDef, error) {
	open := strings.Index(line, "(")
	end := strings.LastIndex(line, ")")
	if open <= 0 || end < open {
		return TableDef{}, ErrSchemaSyntax.WithDetailf("%q: expected name (fields)", line)
	}

	def := TableDef{Name: strings.TrimSpace(line[:open])}
	if def.Name == "" || strings.ContainsAny(def.Name, " \t") {
		return TableDef{}, ErrSchemaSyntax.WithDetailf("%q: bad table name", line)
	}

	for _, column := range strings.Split(line[open+1:end], ",") {
		parts := strings.Fields(column)
		if len(parts) < 2 || len(parts) > 3 {
			return TableDef{}, ErrSchemaSyntax.WithDetailf("%q: bad column %q", line, strings.TrimSpace(column))
		}

		fieldType, err := types.ParseType(parts[1])
		if err != nil {
			return TableDef{}, err
		}

		if len(parts) == 3 {
			if parts[2] != "pk" {
				return TableDef{}, ErrSchemaSyntax.WithDetailf("%q: unknown annotation %q", line, parts[2])
			}
			if def.PrimaryKey != "" {
				return TableDef{}, ErrSchemaSyntax.WithDetailf("%q: more than one pk", line)
			}
			def.PrimaryKey = parts[0]
		}

		def.FieldNames = append(def.FieldNames, parts[0])
		def.FieldTypes = append(def.FieldTypes, fieldType)
	}

	return def, nil
}

// LoadSchema reads the schema file at path and registers one table per
// line, backed by dataDir/<name>.dat (created if missing). Blank lines and
// lines starting with '#' are skipped. Tables loaded before an error stay
// registered.
func (c *Catalog) LoadSchema(path, dataDir string) error {
	f, err := os.Open(path)
	if err != nil {
		return dberror.IOError(err, "LoadSchema", component)
	}
	defer f.Close()

	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return dberror.IOError(err, "LoadSchema", component)
	}

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		def, err := ParseSchemaLine(line)
		if err != nil {
			return dberror.Wrap(err, dberror.CategoryFormat, "SCHEMA_SYNTAX", "LoadSchema", component).
				WithDetailf("%s:%d", path, lineNo)
		}

		if err := c.CreateTable(def, dataDir); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return dberror.IOError(err, "LoadSchema", component)
	}

	c.logger.Info("schema loaded", zap.String("path", path), zap.Int("tables", len(c.GetAllTableNames())))
	return nil
}

// CreateTable opens (or creates) dataDir/<name>.dat and registers it under
// def.Name.
func (c *Catalog) CreateTable(def TableDef, dataDir string) error {
	td, err := def.TupleDesc()
	if err != nil {
		return err
	}

	hf, err := heap.NewHeapFile(primitives.Filepath(filepath.Join(dataDir, def.Name+DataFileExt)), td)
	if err != nil {
		return err
	}

	if err := c.AddTable(hf, def.Name, def.PrimaryKey); err != nil {
		_ = hf.Close()
		return err
	}
	return nil
}
