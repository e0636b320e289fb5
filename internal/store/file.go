package store

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"dropwatch/internal/catalog"
	logx "dropwatch/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.items.snapshot.json (periodic snapshot)
//   - <prefix>.items.journal.jsonl (append-only journal)
//
// The journal is periodically compacted into the snapshot.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	snapshotPath string
	journalFile  *os.File

	// namespace -> id -> item
	items map[string]map[string]catalog.Item

	writes int
}

const compactEvery = 256

type journalRecord struct {
	Namespace string       `json:"namespace"`
	Item      catalog.Item `json:"item"`
	At        int64        `json:"at"` // unix milli
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	snapPath := prefix + ".items.snapshot.json"
	journalPath := prefix + ".items.journal.jsonl"

	items := map[string]map[string]catalog.Item{}
	_ = loadSnapshot(snapPath, items)
	_ = replayJournal(journalPath, items)

	jf, err := os.OpenFile(journalPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}

	return &fileStore{
		log:          log,
		snapshotPath: snapPath,
		journalFile:  jf,
		items:        items,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journalFile == nil {
		return nil
	}
	err := s.journalFile.Close()
	s.journalFile = nil
	return err
}

func (s *fileStore) Insert(ctx context.Context, namespace string, it catalog.Item) (bool, error) {
	_ = ctx
	if it.ID == "" {
		return false, errors.New("item id is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journalFile == nil {
		return false, errors.New("store closed")
	}

	ns := s.items[namespace]
	if ns == nil {
		ns = map[string]catalog.Item{}
		s.items[namespace] = ns
	}
	if _, ok := ns[it.ID]; ok {
		return false, nil
	}

	rec := journalRecord{Namespace: namespace, Item: it, At: time.Now().UnixMilli()}
	enc := json.NewEncoder(s.journalFile)
	if err := enc.Encode(rec); err != nil {
		return false, err
	}
	ns[it.ID] = it

	s.writes++
	if s.writes%compactEvery == 0 {
		if err := s.compactLocked(); err != nil {
			s.log.Warn("store compaction failed", logx.Err(err))
		}
	}
	return true, nil
}

func (s *fileStore) Exists(ctx context.Context, namespace, id string) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	ns := s.items[namespace]
	if ns == nil {
		return false, nil
	}
	_, ok := ns[id]
	return ok, nil
}

// compactLocked writes the full map as a snapshot and truncates the journal.
// Caller holds s.mu.
func (s *fileStore) compactLocked() error {
	tmp := s.snapshotPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	if err := enc.Encode(s.items); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.snapshotPath); err != nil {
		return err
	}

	if err := s.journalFile.Truncate(0); err != nil {
		return err
	}
	_, err = s.journalFile.Seek(0, 0)
	return err
}

func loadSnapshot(path string, into map[string]map[string]catalog.Item) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, &into)
}

func replayJournal(path string, into map[string]map[string]catalog.Item) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var rec journalRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			// A torn tail write is expected after a crash; skip it.
			continue
		}
		ns := into[rec.Namespace]
		if ns == nil {
			ns = map[string]catalog.Item{}
			into[rec.Namespace] = ns
		}
		ns[rec.Item.ID] = rec.Item
	}
	return sc.Err()
}
