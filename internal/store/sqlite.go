package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"dropwatch/internal/catalog"
	logx "dropwatch/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Insert relies on the primary key for atomicity: the conflict clause makes
// check-and-insert a single statement, so two racing callers cannot both see
// the id as new.
func (s *sqliteStore) Insert(ctx context.Context, namespace string, it catalog.Item) (bool, error) {
	if it.ID == "" {
		return false, errors.New("item id is empty")
	}
	variants := []byte("[]")
	links := []byte("{}")
	if len(it.Variants) > 0 {
		b, err := json.Marshal(it.Variants)
		if err != nil {
			return false, err
		}
		variants = b
		// Link keys go through SafeLabel, so a size like "10.5" is stored
		// under "10_5".
		if b, err = json.Marshal(it.LinkIndex()); err != nil {
			return false, err
		}
		links = b
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO items(namespace, id, url, title, price, image, variants, links, first_seen)
		 VALUES(?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(namespace, id) DO NOTHING`,
		namespace, it.ID, it.URL, it.Title, it.Price, it.Image, string(variants), string(links),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *sqliteStore) Exists(ctx context.Context, namespace, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM items WHERE namespace = ? AND id = ?`, namespace, id,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
