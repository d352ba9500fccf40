package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cognicore/reviewpipe/pkg/reviewpipe/store"
)

// ErrInjected is returned by operations armed with FailOn.
var ErrInjected = errors.New("memstore: injected failure")

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu         sync.RWMutex
	raw        map[string]store.RawRecord
	ledger     map[string]*time.Time
	classified map[string]store.ClassifiedRecord

	calls map[string]int
	fail  map[string]int
}

var _ store.Store = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		raw:        make(map[string]store.RawRecord),
		ledger:     make(map[string]*time.Time),
		classified: make(map[string]store.ClassifiedRecord),
		calls:      make(map[string]int),
		fail:       make(map[string]int),
	}
}

// FailOn makes the nth call (1-based) of the named method return ErrInjected
// without touching any data. Method names match the store.Store methods,
// e.g. "InsertClassified".
func (s *Store) FailOn(method string, nth int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[method] = s.calls[method] + nth
}

// Calls returns how many times a method has been invoked.
func (s *Store) Calls(method string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[method]
}

// hit records a call; callers must hold the write lock.
func (s *Store) hit(method string) error {
	s.calls[method]++
	if n, ok := s.fail[method]; ok && n == s.calls[method] {
		delete(s.fail, method)
		return fmt.Errorf("%s: %w", method, ErrInjected)
	}
	return nil
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// InsertRaw implements store.Store.
func (s *Store) InsertRaw(ctx context.Context, recs []store.RawRecord) (store.InsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit("InsertRaw"); err != nil {
		return store.InsertResult{}, err
	}

	var res store.InsertResult
	for _, r := range recs {
		if _, ok := s.raw[r.ID]; ok {
			res.Skipped = append(res.Skipped, r.ID)
			continue
		}
		r.Timestamp = r.Timestamp.UTC()
		s.raw[r.ID] = r
		res.Inserted = append(res.Inserted, r.ID)
	}
	return res, nil
}

// UnregisteredRawIDs implements store.Store.
func (s *Store) UnregisteredRawIDs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit("UnregisteredRawIDs"); err != nil {
		return nil, err
	}

	var recs []store.RawRecord
	for id, r := range s.raw {
		if _, ok := s.ledger[id]; !ok {
			recs = append(recs, r)
		}
	}
	sortRaw(recs)
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids, nil
}

// RegisterLedger implements store.Store. Like the SQLite foreign key, an id
// with no raw record is an error and nothing is written.
func (s *Store) RegisterLedger(ctx context.Context, ids []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit("RegisterLedger"); err != nil {
		return nil, err
	}

	for _, id := range ids {
		if _, ok := s.raw[id]; !ok {
			return nil, fmt.Errorf("register %s: no raw record", id)
		}
	}

	var inserted []string
	for _, id := range ids {
		if _, ok := s.ledger[id]; ok {
			continue
		}
		s.ledger[id] = nil
		inserted = append(inserted, id)
	}
	return inserted, nil
}

// PendingIDs implements store.Store.
func (s *Store) PendingIDs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit("PendingIDs"); err != nil {
		return nil, err
	}

	var ids []string
	for id, done := range s.ledger {
		if done == nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// PendingRaw implements store.Store.
func (s *Store) PendingRaw(ctx context.Context) ([]store.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit("PendingRaw"); err != nil {
		return nil, err
	}

	var recs []store.RawRecord
	for id, done := range s.ledger {
		if done != nil {
			continue
		}
		if r, ok := s.raw[id]; ok {
			recs = append(recs, r)
		}
	}
	sortRaw(recs)
	return recs, nil
}

// MarkCompleted implements store.Store.
func (s *Store) MarkCompleted(ctx context.Context, ids []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit("MarkCompleted"); err != nil {
		return err
	}

	at = at.UTC()
	for _, id := range ids {
		done, ok := s.ledger[id]
		if !ok || done != nil {
			continue
		}
		stamp := at
		s.ledger[id] = &stamp
	}
	return nil
}

// LedgerEntry implements store.Store.
func (s *Store) LedgerEntry(ctx context.Context, id string) (store.LedgerEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	done, ok := s.ledger[id]
	if !ok {
		return store.LedgerEntry{}, false, nil
	}
	entry := store.LedgerEntry{ID: id}
	if done != nil {
		at := *done
		entry.CompletedAt = &at
	}
	return entry, true, nil
}

// InsertClassified implements store.Store.
func (s *Store) InsertClassified(ctx context.Context, recs []store.ClassifiedRecord) (store.InsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit("InsertClassified"); err != nil {
		return store.InsertResult{}, err
	}

	for _, r := range recs {
		if _, ok := s.raw[r.ID]; !ok {
			return store.InsertResult{}, fmt.Errorf("classify %s: no raw record", r.ID)
		}
	}

	var res store.InsertResult
	for _, r := range recs {
		if _, ok := s.classified[r.ID]; ok {
			res.Skipped = append(res.Skipped, r.ID)
			continue
		}
		r.Timestamp = r.Timestamp.UTC()
		s.classified[r.ID] = r
		res.Inserted = append(res.Inserted, r.ID)
	}
	return res, nil
}

// ClassifiedSince implements store.Store.
func (s *Store) ClassifiedSince(ctx context.Context, since time.Time) ([]store.ClassifiedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit("ClassifiedSince"); err != nil {
		return nil, err
	}

	var out []store.ClassifiedRecord
	for _, r := range s.classified {
		if !r.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Stats implements store.Store.
func (s *Store) Stats(ctx context.Context) (store.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := store.Stats{
		Raw:        int64(len(s.raw)),
		Registered: int64(len(s.ledger)),
		Classified: int64(len(s.classified)),
	}
	for _, done := range s.ledger {
		if done == nil {
			st.Pending++
		}
	}
	return st, nil
}

// Classified returns a copy of a stored classified record.
func (s *Store) Classified(id string) (store.ClassifiedRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.classified[id]
	return r, ok
}

func sortRaw(recs []store.RawRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].Timestamp.Equal(recs[j].Timestamp) {
			return recs[i].Timestamp.Before(recs[j].Timestamp)
		}
		return recs[i].ID < recs[j].ID
	})
}
