// Package repository defines the keyed record store interface and errors.
package repository

import (
	"context"
	"strconv"
)

// Record is a flat field map persisted for one identity. Numeric fields are
// stored as their decimal string form, matching the hash encoding of the
// Redis backend.
type Record map[string]string

// Int64 returns the numeric value of a field, or 0 if the field is absent
// or not a number. Absence of a counter is a valid zero, not an error.
func (r Record) Int64(field string) int64 {
	v, err := strconv.ParseInt(r[field], 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// SetInt64 stores a numeric field in its canonical string form.
func (r Record) SetInt64(field string, v int64) {
	r[field] = strconv.FormatInt(v, 10)
}

// Clone returns an independent copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Entry is one row of a TopN query.
type Entry struct {
	Key   string
	Value int64
}

// KeyedRecord pairs an identity with its record for listing queries.
type KeyedRecord struct {
	Key    string
	Record Record
}

// Store provides durable access to keyed records grouped into collections.
//
// Absence is a common, valid result and is reported through the bool return,
// never through an error. A failing backend surfaces as an error wrapping
// ErrUnavailable; callers must not treat that as "record absent".
type Store interface {
	// Get returns the record for key, or (nil, false, nil) if absent.
	Get(ctx context.Context, collection, key string) (Record, bool, error)

	// Upsert merges patch into the existing record, creating it if absent.
	Upsert(ctx context.Context, collection, key string, patch Record) error

	// Increment atomically adds delta to a numeric field, creating the
	// record and field as needed, and returns the post-increment value.
	Increment(ctx context.Context, collection, key, field string, delta int64) (int64, error)

	// Delete removes the record entirely and reports whether one was
	// removed. Deleting an absent record is a no-op returning false, which
	// lets callers use delete-if-present as their commit point when several
	// of them race on the same key.
	Delete(ctx context.Context, collection, key string) (bool, error)

	// TopN returns up to n records ordered by the numeric field descending.
	// Ties are broken by insertion order, stable within one backend.
	TopN(ctx context.Context, collection, field string, n int) ([]Entry, error)

	// All returns every record in the collection in stable order.
	All(ctx context.Context, collection string) ([]KeyedRecord, error)

	// Count returns the number of records in the collection.
	Count(ctx context.Context, collection string) (int, error)
}
