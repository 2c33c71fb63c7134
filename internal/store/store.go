// Package store persists finished processing sessions as named records.
package store

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no record exists with the given id.
	ErrNotFound = errors.New("record not found")
	// ErrNameRequired is returned by Rename when the new name is empty.
	ErrNameRequired = errors.New("record name required")
)

// Record is a persisted summary of one completed session. Only Name is
// mutable after creation.
type Record struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Image        string    `json:"image"` // base64 encoded JPEG snapshot
	Name         string    `json:"name"`
	AverageCount float64   `json:"avg_count"`
}

// RecordStore is the persistence boundary for processing records.
type RecordStore interface {
	// Save persists a record, assigning its id if empty.
	Save(rec *Record) error

	// List returns all records ordered newest-first by timestamp.
	List() ([]*Record, error)

	// Get returns the record with the given id, or ErrNotFound.
	Get(id string) (*Record, error)

	// Rename updates a record's name. Returns ErrNameRequired for an empty
	// name and ErrNotFound for an unknown id.
	Rename(id, name string) error

	// Delete removes a record, returning ErrNotFound for an unknown id.
	Delete(id string) error

	// Count returns the number of stored records.
	Count() (int, error)
}
