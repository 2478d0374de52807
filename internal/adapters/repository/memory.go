package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/atomicvault/vaultpulse/pkg/metrics"
)

// MemoryStore is an in-process Store with an optional JSON snapshot file.
//
// With a snapshot path configured, every mutation rewrites the snapshot, so
// records survive process restarts the way the flat-file revisions of the
// original deployment did. All methods serialize on one mutex; increments
// are therefore atomic with respect to concurrent handlers.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]*memCollection
	snapshot    string
}

type memCollection struct {
	records map[string]Record
	order   []string // insertion order, used for stable TopN ties
}

// MemoryOption applies a configuration option to the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithSnapshotPath enables snapshot persistence at the given file path.
func WithSnapshotPath(path string) MemoryOption {
	return func(s *MemoryStore) {
		s.snapshot = path
	}
}

// NewMemoryStore creates a memory store, loading a snapshot if one exists.
func NewMemoryStore(opts ...MemoryOption) (*MemoryStore, error) {
	s := &MemoryStore{
		collections: make(map[string]*memCollection),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.snapshot != "" {
		if err := s.load(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return s, nil
}

func (s *MemoryStore) collection(name string) *memCollection {
	c, ok := s.collections[name]
	if !ok {
		c = &memCollection{records: make(map[string]Record)}
		s.collections[name] = c
	}
	return c
}

// Get returns the record for key, or (nil, false, nil) if absent.
func (s *MemoryStore) Get(_ context.Context, collection, key string) (Record, bool, error) {
	defer observe("get", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil, false, nil
	}
	rec, ok := c.records[key]
	if !ok {
		return nil, false, nil
	}
	return rec.Clone(), true, nil
}

// Upsert merges patch into the record, creating it if absent.
func (s *MemoryStore) Upsert(_ context.Context, collection, key string, patch Record) error {
	defer observe("upsert", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	rec, ok := c.records[key]
	if !ok {
		rec = make(Record, len(patch))
		c.records[key] = rec
		c.order = append(c.order, key)
	}
	for f, v := range patch {
		rec[f] = v
	}
	return s.persist()
}

// Increment atomically adds delta to a numeric field.
func (s *MemoryStore) Increment(_ context.Context, collection, key, field string, delta int64) (int64, error) {
	defer observe("increment", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	rec, ok := c.records[key]
	if !ok {
		rec = make(Record, 1)
		c.records[key] = rec
		c.order = append(c.order, key)
	}
	next := rec.Int64(field) + delta
	rec.SetInt64(field, next)
	if err := s.persist(); err != nil {
		return 0, err
	}
	return next, nil
}

// Delete removes the record and reports whether one was removed.
func (s *MemoryStore) Delete(_ context.Context, collection, key string) (bool, error) {
	defer observe("delete", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return false, nil
	}
	if _, ok := c.records[key]; !ok {
		return false, nil
	}
	delete(c.records, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true, s.persist()
}

// TopN returns up to n records ordered by the numeric field descending.
func (s *MemoryStore) TopN(_ context.Context, collection, field string, n int) ([]Entry, error) {
	defer observe("topn", time.Now())
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil, nil
	}
	entries := make([]Entry, 0, len(c.order))
	for _, key := range c.order {
		entries = append(entries, Entry{Key: key, Value: c.records[key].Int64(field)})
	}
	// Stable sort keeps insertion order for equal values.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Value > entries[j].Value
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

// All returns every record in insertion order.
func (s *MemoryStore) All(_ context.Context, collection string) ([]KeyedRecord, error) {
	defer observe("all", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil, nil
	}
	out := make([]KeyedRecord, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, KeyedRecord{Key: key, Record: c.records[key].Clone()})
	}
	return out, nil
}

// Count returns the number of records in the collection.
func (s *MemoryStore) Count(_ context.Context, collection string) (int, error) {
	defer observe("count", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return 0, nil
	}
	return len(c.records), nil
}

// Close flushes the snapshot a final time.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist()
}

// persist rewrites the snapshot file. Caller must hold the mutex.
func (s *MemoryStore) persist() error {
	if s.snapshot == "" {
		return nil
	}
	dump := make(map[string]map[string]Record, len(s.collections))
	for name, c := range s.collections {
		dump[name] = c.records
	}
	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	tmp := s.snapshot + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmp, s.snapshot); err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// load restores collections from the snapshot file, if present.
func (s *MemoryStore) load() error {
	data, err := os.ReadFile(filepath.Clean(s.snapshot))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var dump map[string]map[string]Record
	if err := json.Unmarshal(data, &dump); err != nil {
		return err
	}
	for name, records := range dump {
		c := &memCollection{records: make(map[string]Record, len(records))}
		for key, rec := range records {
			c.records[key] = rec
			c.order = append(c.order, key)
		}
		sort.Strings(c.order) // JSON loses insertion order; keep it stable
		s.collections[name] = c
	}
	return nil
}

func observe(op string, start time.Time) {
	metrics.RecordStoreOpDuration(op, float64(time.Since(start).Microseconds())/1000.0)
}
