package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"dropwatch/internal/catalog"
	logx "dropwatch/pkg/logx"
)

// Store is the durable identity store: it remembers every item id a monitor
// has ever seen and answers whether an id is new.
//
// Insert is atomic insert-if-absent: under concurrent callers exactly one
// observes inserted=true for a given (namespace, id). There is no update or
// delete path; the store is append-only.
type Store interface {
	Insert(ctx context.Context, namespace string, it catalog.Item) (inserted bool, err error)
	Exists(ctx context.Context, namespace, id string) (bool, error)
	Close() error
}

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl journal + snapshot)
//   - "sqlite": SQLite database file
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Open initializes the configured store. Unlike most runtime failures, an
// error here is fatal: the process must not start without durable dedup.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "file":
		return openFile(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + cfg.Driver)
	}
}
