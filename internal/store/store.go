/*
PURPOSE:
  Durable record collections for iterations and commits.
  One JSON document per entity kind under .gitml/.data/<kind>.json.

REQUIREMENTS:
  User-specified:
  - insert, delete-by-id, find-by-id, list-all.
  - Write failures reach the caller.

  Implementation-discovered:
  - Document layout matches the TinyDB files older projects already have:
    {"_default": {"1": {...record...}, "2": {...}}}. Their compact
    timestamps and list-valued params decode through model.Record/Value;
    the next write re-encodes timestamps as RFC 3339.
  - The backing file is created lazily on first write; a missing or empty
    file reads as an empty collection.

ARCHITECTURE INTEGRATION:
  - Called by: internal/iteration, internal/project (Setup)
  - Consumes: internal/model.Record

ERROR HANDLING:
  - Returns wrapped errors on read/parse/write failure.
  - Insert of an id already present returns ErrDuplicateID.

IMPLEMENTATION RULES:
  - Whole-document rewrite via temp file + rename; never leave a torn file.
  - No cross-store transactions. Promotion ordering is the iteration manager's job.

USAGE:
  s := store.Open(store.PathFor(dataDir, model.KindIteration))
  err := s.Insert(rec)

RELATED FILES:
  - internal/iteration/manager.go

MAINTENANCE:
  - If record volume grows large, consider an append-only log; keep the
    read path tolerant of the TinyDB layout.
*/

package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/daryltucker/gitml/internal/model"
)

// ErrDuplicateID is returned by Insert when the id is already stored.
var ErrDuplicateID = errors.New("record id already exists")

const defaultTable = "_default"

// Store is a single record collection backed by one JSON file.
type Store struct {
	path string
	mu   sync.Mutex
}

// Open returns a store for the given file. Nothing is touched on disk
// until the first read or write.
func Open(path string) *Store {
	return &Store{path: path}
}

// PathFor returns the backing file for kind inside dataDir.
func PathFor(dataDir string, kind model.Kind) string {
	return filepath.Join(dataDir, string(kind)+".json")
}

// Setup creates dataDir and an empty backing file for every kind that
// does not have one yet.
func Setup(dataDir string, kinds ...model.Kind) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}
	for _, kind := range kinds {
		if err := Open(PathFor(dataDir, kind)).Touch(); err != nil {
			return err
		}
	}
	return nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Touch creates the backing file if it does not exist.
func (s *Store) Touch() error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create store file %s: %w", s.path, err)
	}
	return f.Close()
}

// Insert appends rec to the collection.
func (s *Store) Insert(rec model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.load()
	if err != nil {
		return err
	}
	next := 1
	for key, existing := range table {
		if existing.ID == rec.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
		}
		if n, err := strconv.Atoi(key); err == nil && n >= next {
			next = n + 1
		}
	}
	table[strconv.Itoa(next)] = rec
	return s.save(table)
}

// RemoveByID deletes every record with the given id and reports how many
// were removed. The file is only rewritten when something was removed.
func (s *Store) RemoveByID(id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.load()
	if err != nil {
		return 0, err
	}
	removed := 0
	for key, rec := range table {
		if rec.ID == id {
			delete(table, key)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.save(table)
}

// FindByID returns the first record with the given id.
func (s *Store) FindByID(id string) (model.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.load()
	if err != nil {
		return model.Record{}, false, err
	}
	for _, key := range sortedKeys(table) {
		if table[key].ID == id {
			return table[key], true, nil
		}
	}
	return model.Record{}, false, nil
}

// All returns every record in insertion order. Callers sort for display.
func (s *Store) All() ([]model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.load()
	if err != nil {
		return nil, err
	}
	records := make([]model.Record, 0, len(table))
	for _, key := range sortedKeys(table) {
		records = append(records, table[key])
	}
	return records, nil
}

func (s *Store) load() (map[string]model.Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]model.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return map[string]model.Record{}, nil
	}

	var doc map[string]map[string]model.Record
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse store %s: %w", s.path, err)
	}
	table := doc[defaultTable]
	if table == nil {
		table = map[string]model.Record{}
	}
	return table, nil
}

func (s *Store) save(table map[string]model.Record) error {
	data, err := json.Marshal(map[string]map[string]model.Record{defaultTable: table})
	if err != nil {
		return fmt.Errorf("failed to encode store %s: %w", s.path, err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write store %s: %w", s.path, err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write store %s: %w", s.path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write store %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write store %s: %w", s.path, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace store %s: %w", s.path, err)
	}
	return nil
}

// sortedKeys orders TinyDB document ids numerically.
func sortedKeys(table map[string]model.Record) []string {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
	return keys
}
