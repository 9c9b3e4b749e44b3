// Package recordstore provides durable storage of flat records (rows of
// named string fields). It backs the conversation log of the salesim
// library but is schema-agnostic: field sets may grow over time and the
// store never interprets field values.
package recordstore

import (
	"context"
	"sort"
)

// Record is one flat row of named fields.
type Record map[string]string

// Clone returns an independent copy of the record.
func (r Record) Clone() Record {
	clone := make(Record, len(r))
	for k, v := range r {
		clone[k] = v
	}
	return clone
}

// Store is the tabular record contract shared by the CSV and SQLite
// backends. Positions are zero-based offsets into scan order; filtering is
// equality-only. Filter fields the store has never seen are ignored rather
// than failing the query.
type Store interface {
	// Append adds one record at the end of the store.
	Append(ctx context.Context, record Record) error

	// AppendMany adds the records in order at the end of the store.
	AppendMany(ctx context.Context, records []Record) error

	// Query returns, in scan order, the records whose fields equal every
	// entry of the filter.
	Query(ctx context.Context, filter map[string]string) ([]Record, error)

	// Update merges the partial record into the record at the given
	// position.
	Update(ctx context.Context, position int, partial Record) error

	// Delete removes the record at the given position.
	Delete(ctx context.Context, position int) error

	// All returns every record in scan order.
	All(ctx context.Context) ([]Record, error)

	// Clear removes all records and resets the field set.
	Clear(ctx context.Context) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// FieldNames returns the known field names in first-seen order.
	FieldNames(ctx context.Context) ([]string, error)
}

// sortedNewFields returns the record's field names that are not yet part of
// the schema. The names are sorted so that schema growth is deterministic
// regardless of map iteration order.
func sortedNewFields(record Record, known map[string]bool) []string {
	var fresh []string
	for field := range record {
		if !known[field] {
			fresh = append(fresh, field)
		}
	}
	sort.Strings(fresh)
	return fresh
}

// matches reports whether the record satisfies the filter, skipping filter
// fields that are not part of the known field set.
func matches(record Record, filter map[string]string, known map[string]bool) bool {
	for field, want := range filter {
		if !known[field] {
			continue
		}
		if record[field] != want {
			return false
		}
	}
	return true
}
