package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"storekit/pkg/catalog"
	"storekit/pkg/config"
	"storekit/pkg/database"
	"storekit/pkg/memory"
	"storekit/pkg/primitives"
	"storekit/pkg/storage/index"
	"storekit/pkg/tuple"
	"storekit/pkg/types"
)

type options struct {
	ConfigPath  string
	DataDir     string
	DemoRows    int
	DumpMetrics bool
}

func main() {
	opts := parseArguments()

	cfg, err := loadConfig(opts)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if opts.DemoRows > 0 {
		if err := runDemo(db, opts.DemoRows); err != nil {
			log.Fatalf("Demo failed: %v", err)
		}
	}

	printInfo(db.Info())

	if opts.DumpMetrics {
		if err := db.Metrics().Export(os.Stdout); err != nil {
			log.Fatalf("Failed to export metrics: %v", err)
		}
	}
}

// parseArguments processes command-line flags
func parseArguments() options {
	var opts options

	flag.StringVar(&opts.ConfigPath, "config", "", "TOML configuration file")
	flag.StringVar(&opts.DataDir, "data", "", "Data directory path (overrides the config file)")
	flag.IntVar(&opts.DemoRows, "demo", 0, "Insert this many sample rows into a demo table and index them")
	flag.BoolVar(&opts.DumpMetrics, "metrics", false, "Print storage metrics in Prometheus text format")

	flag.Parse()
	return opts
}

func loadConfig(opts options) (*config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		var err error
		if cfg, err = config.Load(opts.ConfigPath); err != nil {
			return nil, err
		}
	}
	if opts.DataDir != "" {
		cfg.Storage.DataDir = opts.DataDir
	}
	return cfg, cfg.Validate()
}

var demoTable = catalog.TableDef{
	Name:       "demo_users",
	FieldNames: []string{"id", "name"},
	FieldTypes: []types.Type{types.IntType, types.StringType},
	PrimaryKey: "id",
}

// runDemo inserts rows in one transaction, then scans the table in a
// second one and indexes it by id.
func runDemo(db *database.Database, rows int) error {
	tableID, err := db.Catalog().GetTableID(demoTable.Name)
	if err != nil {
		if tableID, err = db.CreateTable(demoTable); err != nil {
			return err
		}
	}
	td, err := db.Catalog().GetTupleDesc(tableID)
	if err != nil {
		return err
	}

	tid, err := db.Begin()
	if err != nil {
		return err
	}
	if err := insertRows(db, tid, tableID, td, rows); err != nil {
		return errors.Join(err, db.Abort(tid))
	}
	if err := db.Commit(tid); err != nil {
		return err
	}

	idx, err := buildIndex(db, tableID)
	if err != nil {
		return err
	}
	fmt.Printf("Inserted %d rows into %s, index holds %d keys in %d levels\n",
		rows, demoTable.Name, idx.Len(), idx.Height())
	return nil
}

func insertRows(db *database.Database, tid primitives.TransactionID, tableID primitives.TableID, td *tuple.TupleDescription, rows int) error {
	bp := db.BufferPool()
	if _, err := bp.NewPage(tid, tableID); err != nil {
		return err
	}

	for i := 0; i < rows; i++ {
		t := tuple.NewBuilder(td).AddInt(int32(i)).AddString(fmt.Sprintf("user-%d", i)).MustBuild() // #nosec G115
		err := bp.InsertTuple(tid, tableID, t)
		if errors.Is(err, memory.ErrNoPageWithSpace) {
			if _, err = bp.NewPage(tid, tableID); err == nil {
				err = bp.InsertTuple(tid, tableID, t)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

type keyedIndex interface {
	index.Index
	Height() int
}

func buildIndex(db *database.Database, tableID primitives.TableID) (_ keyedIndex, err error) {
	idx, err := db.NewIndex(demoTable.Name + "_" + demoTable.PrimaryKey)
	if err != nil {
		return nil, err
	}
	hf, err := db.Catalog().GetDbFile(tableID)
	if err != nil {
		return nil, err
	}

	tid, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, db.Commit(tid))
	}()

	for pageNo := 0; pageNo < hf.NumPages(); pageNo++ {
		p, err := db.BufferPool().GetPage(tid, tableID, primitives.PageNumber(pageNo), memory.ReadOnly)
		if err != nil {
			return nil, err
		}
		for _, t := range p.GetTuples() {
			key, err := t.GetField(0)
			if err != nil {
				return nil, err
			}
			if err := idx.Insert(index.NewIndexEntry(key, t.RecordID)); err != nil {
				return nil, err
			}
		}
	}
	return idx, nil
}

func printInfo(info database.DatabaseInfo) {
	fmt.Printf("Data directory:      %s\n", info.DataDir)
	fmt.Printf("Tables:              %v\n", info.Tables)
	fmt.Printf("Buffer pool:         %d/%d pages\n", info.CachedPages, info.Capacity)
	fmt.Printf("Active transactions: %d\n", info.ActiveTransactions)
	fmt.Printf("Cache hits/misses:   %d/%d\n", info.Metrics.CacheHits, info.Metrics.CacheMisses)
	fmt.Printf("Evictions/steals:    %d/%d\n", info.Metrics.Evictions, info.Metrics.Steals)
	fmt.Printf("Commits/aborts:      %d/%d\n", info.Metrics.Commits, info.Metrics.Aborts)
}
