package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/cognicore/reviewpipe/pkg/reviewpipe/internalerr"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe/store"
)

// maxParams keeps every statement under SQLite's historical bound-parameter
// limit regardless of how the library was compiled.
const maxParams = 999

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

var _ store.Store = (*sqliteStore)(nil)

// OpenSQLite opens a SQLite database with WAL mode enabled and makes sure the
// schema exists.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", internalerr.ErrStoreUnavailable, path, err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	// Initialize schema
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS raw_records (
	id TEXT PRIMARY KEY,
	ts TEXT NOT NULL,
	text TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ledger (
	id TEXT PRIMARY KEY,
	completed_at TEXT,
	FOREIGN KEY(id) REFERENCES raw_records(id)
);

CREATE INDEX IF NOT EXISTS ledger_pending ON ledger(id) WHERE completed_at IS NULL;

CREATE TABLE IF NOT EXISTS classified_records (
	id TEXT PRIMARY KEY,
	ts TEXT NOT NULL,
	text TEXT NOT NULL,
	category TEXT NOT NULL CHECK (category IN ('FOOD', 'SERVICE', 'GENERAL')),
	lemma_count INTEGER NOT NULL CHECK (lemma_count >= 0),
	char_count INTEGER NOT NULL CHECK (char_count >= 0),
	FOREIGN KEY(id) REFERENCES raw_records(id)
);

CREATE INDEX IF NOT EXISTS classified_ts ON classified_records(ts, id);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// InsertRaw writes a batch of raw records in one transaction. Rows whose id
// already exists are dropped, first writer wins.
func (s *sqliteStore) InsertRaw(ctx context.Context, recs []store.RawRecord) (store.InsertResult, error) {
	ids := make([]string, len(recs))
	rows := make([][]interface{}, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
		rows[i] = []interface{}{r.ID, store.FormatTime(r.Timestamp), r.Text}
	}
	return s.insertIgnoringConflicts(ctx, "raw_records", []string{"id", "ts", "text"}, ids, rows)
}

// InsertClassified writes a batch of classified records in one transaction.
func (s *sqliteStore) InsertClassified(ctx context.Context, recs []store.ClassifiedRecord) (store.InsertResult, error) {
	ids := make([]string, len(recs))
	rows := make([][]interface{}, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
		rows[i] = []interface{}{
			r.ID,
			store.FormatTime(r.Timestamp),
			r.Text,
			string(r.Category),
			r.LemmaCount,
			r.CharCount,
		}
	}
	cols := []string{"id", "ts", "text", "category", "lemma_count", "char_count"}
	return s.insertIgnoringConflicts(ctx, "classified_records", cols, ids, rows)
}

// RegisterLedger creates open ledger entries for ids that have none yet.
func (s *sqliteStore) RegisterLedger(ctx context.Context, ids []string) ([]string, error) {
	rows := make([][]interface{}, len(ids))
	for i, id := range ids {
		rows[i] = []interface{}{id}
	}
	res, err := s.insertIgnoringConflicts(ctx, "ledger", []string{"id"}, ids, rows)
	if err != nil {
		return nil, err
	}
	return res.Inserted, nil
}

// insertIgnoringConflicts runs multi-row INSERT ... ON CONFLICT DO NOTHING
// RETURNING id statements inside one transaction. The RETURNING set is the
// authoritative list of written keys.
func (s *sqliteStore) insertIgnoringConflicts(ctx context.Context, table string, cols []string, ids []string, rows [][]interface{}) (store.InsertResult, error) {
	if len(rows) == 0 {
		return store.InsertResult{}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.InsertResult{}, err
	}
	defer tx.Rollback()

	inserted := make(map[string]struct{}, len(rows))
	perStmt := maxParams / len(cols)
	for start := 0; start < len(rows); start += perStmt {
		end := start + perStmt
		if end > len(rows) {
			end = len(rows)
		}

		b := sq.Insert(table).Columns(cols...).Suffix("ON CONFLICT(id) DO NOTHING RETURNING id")
		for _, row := range rows[start:end] {
			b = b.Values(row...)
		}
		query, args, err := b.ToSql()
		if err != nil {
			return store.InsertResult{}, err
		}

		ret, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return store.InsertResult{}, fmt.Errorf("insert %s: %w", table, err)
		}
		for ret.Next() {
			var id string
			if err := ret.Scan(&id); err != nil {
				ret.Close()
				return store.InsertResult{}, err
			}
			inserted[id] = struct{}{}
		}
		if err := ret.Err(); err != nil {
			ret.Close()
			return store.InsertResult{}, err
		}
		ret.Close()
	}

	if err := tx.Commit(); err != nil {
		return store.InsertResult{}, fmt.Errorf("commit %s: %w", table, err)
	}

	return splitInserted(ids, inserted), nil
}

// splitInserted partitions ids, in input order, into written and dropped.
// A repeated id counts as written at most once.
func splitInserted(ids []string, inserted map[string]struct{}) store.InsertResult {
	var res store.InsertResult
	claimed := make(map[string]struct{}, len(inserted))
	for _, id := range ids {
		_, ok := inserted[id]
		_, done := claimed[id]
		if ok && !done {
			claimed[id] = struct{}{}
			res.Inserted = append(res.Inserted, id)
			continue
		}
		res.Skipped = append(res.Skipped, id)
	}
	return res
}

// UnregisteredRawIDs returns raw ids with no ledger entry.
func (s *sqliteStore) UnregisteredRawIDs(ctx context.Context) ([]string, error) {
	query, args, err := sq.Select("r.id").
		From("raw_records r").
		LeftJoin("ledger l ON l.id = r.id").
		Where("l.id IS NULL").
		OrderBy("r.ts", "r.id").
		ToSql()
	if err != nil {
		return nil, err
	}
	return s.loadStringColumn(ctx, query, args...)
}

// PendingIDs returns ids registered in the ledger but not yet completed.
func (s *sqliteStore) PendingIDs(ctx context.Context) ([]string, error) {
	query, args, err := sq.Select("id").
		From("ledger").
		Where("completed_at IS NULL").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}
	return s.loadStringColumn(ctx, query, args...)
}

// PendingRaw returns the raw records behind every pending ledger entry,
// oldest first.
func (s *sqliteStore) PendingRaw(ctx context.Context) ([]store.RawRecord, error) {
	query, args, err := sq.Select("r.ts", "r.id", "r.text").
		From("raw_records r").
		Join("ledger l ON l.id = r.id").
		Where("l.completed_at IS NULL").
		OrderBy("r.ts", "r.id").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.RawRecord
	for rows.Next() {
		var (
			rec store.RawRecord
			ts  string
		)
		if err := rows.Scan(&ts, &rec.ID, &rec.Text); err != nil {
			return nil, err
		}
		if rec.Timestamp, err = store.ParseTime(ts); err != nil {
			return nil, fmt.Errorf("raw record %s: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MarkCompleted stamps open ledger entries. Entries that are already completed
// keep their first timestamp.
func (s *sqliteStore) MarkCompleted(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stamp := store.FormatTime(at)
	perStmt := maxParams - 1
	for start := 0; start < len(ids); start += perStmt {
		end := start + perStmt
		if end > len(ids) {
			end = len(ids)
		}
		query, args, err := sq.Update("ledger").
			Set("completed_at", stamp).
			Where(sq.Eq{"id": ids[start:end]}).
			Where("completed_at IS NULL").
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("mark completed: %w", err)
		}
	}

	return tx.Commit()
}

// LedgerEntry returns the ledger state for a single id.
func (s *sqliteStore) LedgerEntry(ctx context.Context, id string) (store.LedgerEntry, bool, error) {
	var completed sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT completed_at FROM ledger WHERE id = ?`, id).Scan(&completed)
	if err == sql.ErrNoRows {
		return store.LedgerEntry{}, false, nil
	}
	if err != nil {
		return store.LedgerEntry{}, false, err
	}

	entry := store.LedgerEntry{ID: id}
	if completed.Valid {
		at, err := store.ParseTime(completed.String)
		if err != nil {
			return store.LedgerEntry{}, false, fmt.Errorf("ledger %s: %w", id, err)
		}
		entry.CompletedAt = &at
	}
	return entry, true, nil
}

// ClassifiedSince returns classified records with timestamp >= since,
// ordered by timestamp then id.
func (s *sqliteStore) ClassifiedSince(ctx context.Context, since time.Time) ([]store.ClassifiedRecord, error) {
	query, args, err := sq.Select("ts", "id", "text", "category", "lemma_count", "char_count").
		From("classified_records").
		Where(sq.GtOrEq{"ts": store.FormatTime(since)}).
		OrderBy("ts ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.ClassifiedRecord
	for rows.Next() {
		var (
			rec     store.ClassifiedRecord
			ts, cat string
		)
		if err := rows.Scan(&ts, &rec.ID, &rec.Text, &cat, &rec.LemmaCount, &rec.CharCount); err != nil {
			return nil, err
		}
		if rec.Timestamp, err = store.ParseTime(ts); err != nil {
			return nil, fmt.Errorf("classified record %s: %w", rec.ID, err)
		}
		rec.Category = store.Category(cat)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Stats counts rows per table.
func (s *sqliteStore) Stats(ctx context.Context) (store.Stats, error) {
	var st store.Stats
	err := s.db.QueryRowContext(ctx, `
SELECT
	(SELECT COUNT(*) FROM raw_records),
	(SELECT COUNT(*) FROM ledger),
	(SELECT COUNT(*) FROM ledger WHERE completed_at IS NULL),
	(SELECT COUNT(*) FROM classified_records);
`).Scan(&st.Raw, &st.Registered, &st.Pending, &st.Classified)
	return st, err
}

func (s *sqliteStore) loadStringColumn(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var val string
		if err := rows.Scan(&val); err != nil {
			return nil, err
		}
		result = append(result, val)
	}
	return result, rows.Err()
}
