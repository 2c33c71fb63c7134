package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements RecordStore on a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (or creates) the database at path.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates the records table if it does not exist.
func (s *SQLiteStore) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS processing_records (
			id TEXT PRIMARY KEY,
			timestamp DATETIME NOT NULL,
			image TEXT,
			name TEXT NOT NULL,
			avg_count REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_time ON processing_records(timestamp DESC)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Save persists a record, assigning a fresh id when none is set.
func (s *SQLiteStore) Save(rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	query := `INSERT INTO processing_records (id, timestamp, image, name, avg_count)
		VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query, rec.ID, rec.Timestamp, rec.Image, rec.Name, rec.AverageCount)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// List returns all records newest-first.
func (s *SQLiteStore) List() ([]*Record, error) {
	query := `SELECT id, timestamp, image, name, avg_count
		FROM processing_records ORDER BY timestamp DESC`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.Image, &rec.Name, &rec.AverageCount); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// Get returns a single record by id.
func (s *SQLiteStore) Get(id string) (*Record, error) {
	query := `SELECT id, timestamp, image, name, avg_count
		FROM processing_records WHERE id = ?`

	var rec Record
	err := s.db.QueryRow(query, id).Scan(&rec.ID, &rec.Timestamp, &rec.Image, &rec.Name, &rec.AverageCount)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return &rec, nil
}

// Rename updates a record's user-editable name.
func (s *SQLiteStore) Rename(id, name string) error {
	if name == "" {
		return ErrNameRequired
	}

	result, err := s.db.Exec("UPDATE processing_records SET name = ? WHERE id = ?", name, id)
	if err != nil {
		return fmt.Errorf("failed to rename record: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to rename record: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a record.
func (s *SQLiteStore) Delete(id string) error {
	result, err := s.db.Exec("DELETE FROM processing_records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM processing_records").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}
