package search

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"schedadmin/internal/endpoints"
)

// Scope namespaces persisted criteria, one per search page.
type Scope string

const (
	ScopeLive    Scope = "live"
	ScopeAll     Scope = "all"
	ScopeHistory Scope = "history"
)

// ScopeOf maps a schedule kind to its scope.
func ScopeOf(kind endpoints.Kind) Scope {
	return Scope(kind)
}

// Field is a persisted criteria field.
type Field string

const (
	FieldSchedulerName Field = "schedulerName"
	FieldScheduleID    Field = "scheduleId"
	FieldEpochFrom     Field = "epochFrom"
	FieldEpochTo       Field = "epochTo"
)

// Store is a scope × field → value key-value store. Implementations are safe
// for concurrent use; concurrent writers race, last write wins.
type Store interface {
	Get(scope Scope, field Field) (string, bool)
	Set(scope Scope, field Field, value string) error
	Clear(scope Scope) error
}

// SaveCriteria writes every field of c, removing the unset ones.
func SaveCriteria(s Store, scope Scope, c Criteria) error {
	values := map[Field]string{
		FieldSchedulerName: c.SchedulerName,
		FieldScheduleID:    c.ScheduleID,
		FieldEpochFrom:     formatDate(c.EpochFrom),
		FieldEpochTo:       formatDate(c.EpochTo),
	}
	for _, f := range []Field{FieldSchedulerName, FieldScheduleID, FieldEpochFrom, FieldEpochTo} {
		if err := s.Set(scope, f, values[f]); err != nil {
			return fmt.Errorf("failed to persist %s.%s: %w", scope, f, err)
		}
	}
	return nil
}

// LoadCriteria reads the criteria of scope. Unparseable dates are dropped.
func LoadCriteria(s Store, scope Scope, loc *time.Location) Criteria {
	var c Criteria
	c.SchedulerName, _ = s.Get(scope, FieldSchedulerName)
	c.ScheduleID, _ = s.Get(scope, FieldScheduleID)
	if v, ok := s.Get(scope, FieldEpochFrom); ok {
		c.EpochFrom, _ = ParseDate(v, loc)
	}
	if v, ok := s.Get(scope, FieldEpochTo); ok {
		c.EpochTo, _ = ParseDate(v, loc)
	}
	return c
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

type scopedValues map[Scope]map[Field]string

func (v scopedValues) get(scope Scope, field Field) (string, bool) {
	val, ok := v[scope][field]
	return val, ok && val != ""
}

func (v scopedValues) set(scope Scope, field Field, value string) {
	if value == "" {
		delete(v[scope], field)
		if len(v[scope]) == 0 {
			delete(v, scope)
		}
		return
	}
	if v[scope] == nil {
		v[scope] = make(map[Field]string)
	}
	v[scope][field] = value
}

// MemoryStore keeps values for the lifetime of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	values scopedValues
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(scopedValues)}
}

func (s *MemoryStore) Get(scope Scope, field Field) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.get(scope, field)
}

func (s *MemoryStore) Set(scope Scope, field Field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.set(scope, field, value)
	return nil
}

func (s *MemoryStore) Clear(scope Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, scope)
	return nil
}

// FileStore persists values as a JSON document, rewritten on every change.
type FileStore struct {
	path string

	mu     sync.Mutex
	values scopedValues
}

// OpenFileStore loads path, which need not exist yet.
func OpenFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path, values: make(scopedValues)}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file %s: %w", path, err)
	}
	if len(data) == 0 {
		return fs, nil
	}
	if err := json.Unmarshal(data, &fs.values); err != nil {
		return nil, fmt.Errorf("failed to decode state file %s: %w", path, err)
	}
	if fs.values == nil {
		fs.values = make(scopedValues)
	}
	return fs, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(scope Scope, field Field) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values.get(scope, field)
}

func (s *FileStore) Set(scope Scope, field Field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.set(scope, field, value)
	return s.flush()
}

func (s *FileStore) Clear(scope Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, scope)
	return s.flush()
}

func (s *FileStore) flush() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return os.Rename(tmp, s.path)
}
