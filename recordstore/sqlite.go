package recordstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/salesim-lab/salesim/observability"
)

// SQLiteStore implements the Store contract on an embedded SQLite database.
// It keeps the same schema-flexible behaviour as the CSV backend: columns
// are added as new field names appear, and scan order is insertion order.
// Use it instead of CSVStore when the deployment needs more write
// concurrency than a full-file rewrite tolerates.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	logger observability.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at the given path. Unlike
// the CSV backend, a corrupt or unreadable database is returned as an error
// rather than degraded to an empty store: a database holds real state and
// silently discarding it would lose data the caller can still recover.
func NewSQLiteStore(databasePath string, logger observability.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = observability.NewNullLogger()
	}

	db, err := sql.Open("sqlite3", databasePath+"?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &SQLiteStore{
		db:     db,
		logger: logger.WithFields(map[string]interface{}{"store": databasePath}),
	}

	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize record store schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
    CREATE TABLE IF NOT EXISTS records (
        pos INTEGER PRIMARY KEY AUTOINCREMENT
    );`)
	return err
}

// fieldNames returns the data columns of the records table in the order
// they were added.
func (s *SQLiteStore) fieldNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `PRAGMA table_info(records)`)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect record store schema: %w", err)
	}
	defer rows.Close()

	var fields []string
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan schema row: %w", err)
		}
		if name == "pos" {
			continue
		}
		fields = append(fields, name)
	}
	return fields, rows.Err()
}

// ensureColumns adds a TEXT column for every field name the record
// introduces.
func (s *SQLiteStore) ensureColumns(ctx context.Context, record Record) error {
	fields, err := s.fieldNames(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(fields))
	for _, field := range fields {
		known[field] = true
	}

	for _, field := range sortedNewFields(record, known) {
		alter := fmt.Sprintf(`ALTER TABLE records ADD COLUMN %s TEXT`, quoteIdent(field))
		if _, err := s.db.ExecContext(ctx, alter); err != nil {
			return fmt.Errorf("failed to add column %q: %w", field, err)
		}
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (s *SQLiteStore) insert(ctx context.Context, record Record) error {
	if err := s.ensureColumns(ctx, record); err != nil {
		return err
	}

	fields, err := s.fieldNames(ctx)
	if err != nil {
		return err
	}

	var (
		columns      []string
		placeholders []string
		values       []interface{}
	)
	for _, field := range fields {
		value, ok := record[field]
		if !ok {
			continue
		}
		columns = append(columns, quoteIdent(field))
		placeholders = append(placeholders, "?")
		values = append(values, value)
	}
	if len(columns) == 0 {
		_, err := s.db.ExecContext(ctx, `INSERT INTO records DEFAULT VALUES`)
		return err
	}

	insert := fmt.Sprintf(`INSERT INTO records (%s) VALUES (%s)`,
		strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	if _, err := s.db.ExecContext(ctx, insert, values...); err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// Append adds one record at the end of the store.
func (s *SQLiteStore) Append(ctx context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(ctx, record)
}

// AppendMany adds the records in order at the end of the store.
func (s *SQLiteStore) AppendMany(ctx context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range records {
		if err := s.insert(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

// scan reads every row in insertion order.
func (s *SQLiteStore) scan(ctx context.Context) ([]Record, []int64, error) {
	fields, err := s.fieldNames(ctx)
	if err != nil {
		return nil, nil, err
	}

	columns := make([]string, 0, len(fields)+1)
	columns = append(columns, "pos")
	for _, field := range fields {
		columns = append(columns, quoteIdent(field))
	}

	query := fmt.Sprintf(`SELECT %s FROM records ORDER BY pos ASC`, strings.Join(columns, ", "))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan record store: %w", err)
	}
	defer rows.Close()

	var (
		records   []Record
		positions []int64
	)
	for rows.Next() {
		dest := make([]interface{}, len(fields)+1)
		var pos int64
		dest[0] = &pos
		cells := make([]sql.NullString, len(fields))
		for i := range cells {
			dest[i+1] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan record row: %w", err)
		}

		record := make(Record, len(fields))
		for i, field := range fields {
			if cells[i].Valid {
				record[field] = cells[i].String
			}
		}
		records = append(records, record)
		positions = append(positions, pos)
	}
	return records, positions, rows.Err()
}

// Query returns the records matching every filter entry, in scan order.
func (s *SQLiteStore) Query(ctx context.Context, filter map[string]string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields, err := s.fieldNames(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(fields))
	for _, field := range fields {
		known[field] = true
	}

	records, _, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}

	var result []Record
	for _, record := range records {
		if matches(record, filter, known) {
			result = append(result, record)
		}
	}
	return result, nil
}

// rowidAt resolves a zero-based scan position to the row's primary key.
func (s *SQLiteStore) rowidAt(ctx context.Context, position int) (int64, error) {
	if position < 0 {
		return 0, fmt.Errorf("position %d out of range", position)
	}

	var pos int64
	err := s.db.QueryRowContext(ctx,
		`SELECT pos FROM records ORDER BY pos ASC LIMIT 1 OFFSET ?`, position).Scan(&pos)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("position %d out of range", position)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve position %d: %w", position, err)
	}
	return pos, nil
}

// Update merges the partial record into the record at the given position.
func (s *SQLiteStore) Update(ctx context.Context, position int, partial Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, err := s.rowidAt(ctx, position)
	if err != nil {
		return err
	}
	if err := s.ensureColumns(ctx, partial); err != nil {
		return err
	}
	if len(partial) == 0 {
		return nil
	}

	var (
		assignments []string
		values      []interface{}
	)
	fields, err := s.fieldNames(ctx)
	if err != nil {
		return err
	}
	for _, field := range fields {
		value, ok := partial[field]
		if !ok {
			continue
		}
		assignments = append(assignments, quoteIdent(field)+" = ?")
		values = append(values, value)
	}
	values = append(values, pos)

	update := fmt.Sprintf(`UPDATE records SET %s WHERE pos = ?`, strings.Join(assignments, ", "))
	if _, err := s.db.ExecContext(ctx, update, values...); err != nil {
		return fmt.Errorf("failed to update record at position %d: %w", position, err)
	}
	return nil
}

// Delete removes the record at the given position.
func (s *SQLiteStore) Delete(ctx context.Context, position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, err := s.rowidAt(ctx, position)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE pos = ?`, pos); err != nil {
		return fmt.Errorf("failed to delete record at position %d: %w", position, err)
	}
	return nil
}

// All returns every record in scan order.
func (s *SQLiteStore) All(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, _, err := s.scan(ctx)
	return records, err
}

// Clear removes all records and resets the field set by recreating the
// table.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS records`); err != nil {
		return fmt.Errorf("failed to clear record store: %w", err)
	}
	s.logger.Debug("record store cleared")
	return s.initSchema(ctx)
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// FieldNames returns the known field names in the order their columns were
// added.
func (s *SQLiteStore) FieldNames(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fieldNames(ctx)
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
