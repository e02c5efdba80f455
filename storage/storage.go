// storage package contains the artifacts the node keeps for auditing in a
// prefixed key-value store. The following prefixes are used:
//   - 'r/' for vote receipts, keyed by proposal id and voter address
//   - 't/' for revealed tally results, keyed by proposal id
//
// Verification sessions are never stored here, they live only in memory.
package storage

import (
	"errors"
	"sync"

	"github.com/vocdoni/zkvote/log"
	"go.vocdoni.io/dvote/db"
)

var (
	// Prefixes for the keys in the database.
	receiptPrefix = []byte("r/")
	tallyPrefix   = []byte("t/")

	// ErrNotFound is returned when the requested artifact does not exist.
	ErrNotFound = errors.New("not found")
)

// Storage wraps the key-value database with the typed artifact methods.
type Storage struct {
	db         db.Database
	globalLock sync.Mutex
}

// New creates a new Storage instance.
func New(db db.Database) *Storage {
	return &Storage{db: db}
}

// Close closes the storage.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		log.Warnw("error closing storage", "error", err.Error())
	}
}
