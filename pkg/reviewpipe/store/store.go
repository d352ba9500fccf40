package store

import (
	"context"
	"time"
)

// Store is the main interface for persisting raw reviews, the processing
// ledger and classified reviews.
//
// Every insert method is a single commit boundary: either all of its rows
// become visible or none do. Duplicate primary keys are never errors; they are
// reported back in InsertResult.Skipped.
type Store interface {
	Close() error

	// Raw records
	InsertRaw(ctx context.Context, recs []RawRecord) (InsertResult, error)
	UnregisteredRawIDs(ctx context.Context) ([]string, error)

	// Ledger
	RegisterLedger(ctx context.Context, ids []string) ([]string, error)
	PendingIDs(ctx context.Context) ([]string, error)
	PendingRaw(ctx context.Context) ([]RawRecord, error)
	MarkCompleted(ctx context.Context, ids []string, at time.Time) error
	LedgerEntry(ctx context.Context, id string) (LedgerEntry, bool, error)

	// Classified records
	InsertClassified(ctx context.Context, recs []ClassifiedRecord) (InsertResult, error)
	ClassifiedSince(ctx context.Context, since time.Time) ([]ClassifiedRecord, error)

	Stats(ctx context.Context) (Stats, error)
}

// RawRecord is one review exactly as it was ingested.
type RawRecord struct {
	Timestamp time.Time
	ID        string
	Text      string
}

// LedgerEntry tracks the processing state of one raw record.
// CompletedAt is nil while the record is registered but not yet classified.
type LedgerEntry struct {
	ID          string
	CompletedAt *time.Time
}

// Completed reports whether the record has been classified.
func (e LedgerEntry) Completed() bool { return e.CompletedAt != nil }

// Category is the topic assigned to a review.
type Category string

const (
	CategoryFood    Category = "FOOD"
	CategoryService Category = "SERVICE"
	CategoryGeneral Category = "GENERAL"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryFood, CategoryService, CategoryGeneral:
		return true
	}
	return false
}

// ClassifiedRecord is the analyzed, categorized form of a raw record.
type ClassifiedRecord struct {
	Timestamp  time.Time
	ID         string
	Text       string
	Category   Category
	LemmaCount int
	CharCount  int
}

// InsertResult says exactly which keys an insert wrote and which it dropped
// because the key already existed (in the table or earlier in the same batch).
type InsertResult struct {
	Inserted []string
	Skipped  []string
}

// Stats holds table cardinalities.
type Stats struct {
	Raw        int64
	Registered int64
	Pending    int64
	Classified int64
}

// TimeLayout is the fixed-width UTC layout used for persisted timestamps.
// Fixed width keeps lexical order equal to chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a value written by FormatTime.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}
