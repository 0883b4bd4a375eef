// Package metadb opens a db.Database by backend name.
package metadb

import (
	"cmp"
	"fmt"
	"os"
	"testing"

	"github.com/vocdoni/acpoll/db"
	"github.com/vocdoni/acpoll/db/inmemory"
	"github.com/vocdoni/acpoll/db/leveldb"
	"github.com/vocdoni/acpoll/db/pebbledb"
)

// New opens a database of type typ under dir.
func New(typ, dir string) (db.Database, error) {
	opts := db.Options{Path: dir}
	switch typ {
	case db.TypePebble:
		return pebbledb.New(opts)
	case db.TypeLevelDB:
		return leveldb.New(opts)
	case db.TypeInMem:
		return inmemory.New(opts)
	default:
		return nil, fmt.Errorf("invalid db type %q, available types: %q, %q, %q",
			typ, db.TypePebble, db.TypeLevelDB, db.TypeInMem)
	}
}

// ForTest returns the backend used by tests, $DB_TYPE or pebble.
func ForTest() string {
	return cmp.Or(os.Getenv("DB_TYPE"), db.TypePebble)
}

// NewTest opens a database for a test, closed when the test ends.
func NewTest(tb testing.TB) db.Database {
	database, err := New(ForTest(), tb.TempDir())
	if err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(func() { _ = database.Close() })
	return database
}
