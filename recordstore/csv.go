package recordstore

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/salesim-lab/salesim/observability"
)

// CSVStore persists records in a single CSV file whose header row is the
// field set. Every mutation rewrites the whole file, which is acceptable for
// low-volume conversational logging; concurrent writers from independent
// processes can clobber each other's appends. Within one process the store
// is safe for concurrent use.
type CSVStore struct {
	path   string
	mu     sync.Mutex
	fields []string
	rows   []Record
	logger observability.Logger
}

var _ Store = (*CSVStore)(nil)

// NewCSVStore opens the store backed by the given file, creating parent
// directories as needed. A missing file yields an empty store; an unreadable
// or malformed file also yields an empty store with a diagnostic, so that a
// fresh session stays available.
func NewCSVStore(path string, logger observability.Logger) *CSVStore {
	if logger == nil {
		logger = observability.NewNullLogger()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.WithErr(err).Warn("failed to create record store directory")
		}
	}

	s := &CSVStore{
		path:   path,
		logger: logger.WithFields(map[string]interface{}{"store": path}),
	}
	s.load()
	return s
}

// load reads the backing file into memory. Any failure degrades to an empty
// store.
func (s *CSVStore) load() {
	file, err := os.Open(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithErr(err).Warn("record store file unreadable, starting empty")
		}
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	lines, err := reader.ReadAll()
	if err != nil {
		s.logger.WithErr(err).Warn("record store file malformed, starting empty")
		return
	}
	if len(lines) == 0 {
		return
	}

	s.fields = lines[0]
	for _, line := range lines[1:] {
		row := make(Record, len(s.fields))
		for i, field := range s.fields {
			if i < len(line) {
				row[field] = line[i]
			}
		}
		s.rows = append(s.rows, row)
	}
}

// save rewrites the whole backing file from memory.
func (s *CSVStore) save() error {
	file, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("failed to create record store file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if len(s.fields) > 0 {
		if err := writer.Write(s.fields); err != nil {
			return fmt.Errorf("failed to write record store header: %w", err)
		}
	}
	for _, row := range s.rows {
		line := make([]string, len(s.fields))
		for i, field := range s.fields {
			line[i] = row[field]
		}
		if err := writer.Write(line); err != nil {
			return fmt.Errorf("failed to write record store row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// absorb merges any field names the record introduces into the schema,
// keeping first-seen order.
func (s *CSVStore) absorb(record Record) {
	known := s.knownFields()
	for _, field := range sortedNewFields(record, known) {
		s.fields = append(s.fields, field)
	}
}

func (s *CSVStore) knownFields() map[string]bool {
	known := make(map[string]bool, len(s.fields))
	for _, field := range s.fields {
		known[field] = true
	}
	return known
}

// Append adds one record and rewrites the file.
func (s *CSVStore) Append(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.absorb(record)
	s.rows = append(s.rows, record.Clone())
	if err := s.save(); err != nil {
		s.rows = s.rows[:len(s.rows)-1]
		return err
	}
	return nil
}

// AppendMany adds the records in order and rewrites the file once.
func (s *CSVStore) AppendMany(_ context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.rows)
	for _, record := range records {
		s.absorb(record)
		s.rows = append(s.rows, record.Clone())
	}
	if err := s.save(); err != nil {
		s.rows = s.rows[:before]
		return err
	}
	return nil
}

// Query returns the records matching every filter entry, in scan order.
func (s *CSVStore) Query(_ context.Context, filter map[string]string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	known := s.knownFields()
	var result []Record
	for _, row := range s.rows {
		if matches(row, filter, known) {
			result = append(result, row.Clone())
		}
	}
	return result, nil
}

// Update merges the partial record into the row at the given position.
func (s *CSVStore) Update(_ context.Context, position int, partial Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if position < 0 || position >= len(s.rows) {
		return fmt.Errorf("position %d out of range [0, %d)", position, len(s.rows))
	}

	prevFields := append([]string(nil), s.fields...)
	prevRow := s.rows[position]

	s.absorb(partial)
	next := prevRow.Clone()
	for field, value := range partial {
		next[field] = value
	}
	s.rows[position] = next
	if err := s.save(); err != nil {
		s.fields = prevFields
		s.rows[position] = prevRow
		return err
	}
	return nil
}

// Delete removes the row at the given position.
func (s *CSVStore) Delete(_ context.Context, position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if position < 0 || position >= len(s.rows) {
		return fmt.Errorf("position %d out of range [0, %d)", position, len(s.rows))
	}

	prev := s.rows
	next := make([]Record, 0, len(prev)-1)
	next = append(next, prev[:position]...)
	next = append(next, prev[position+1:]...)
	s.rows = next
	if err := s.save(); err != nil {
		s.rows = prev
		return err
	}
	return nil
}

// All returns every record in scan order.
func (s *CSVStore) All(_ context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Record, 0, len(s.rows))
	for _, row := range s.rows {
		result = append(result, row.Clone())
	}
	return result, nil
}

// Clear removes all records and the field set, leaving an empty file.
func (s *CSVStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows = nil
	s.fields = nil
	return s.save()
}

// Count returns the number of stored records.
func (s *CSVStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows), nil
}

// FieldNames returns the known field names in first-seen order.
func (s *CSVStore) FieldNames(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.fields...), nil
}
