// Package ledger tracks which raw review ids have been seen by processing and
// which of them have been fully classified.
//
// An id is registered the first time processing observes it and completed
// once its classified record is durably stored. Registration is idempotent, so
// a crashed run can always be followed by another: whatever is still open is
// picked up again.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/cognicore/reviewpipe/pkg/reviewpipe/store"
)

// Ledger is the dedup ledger over a store.
type Ledger struct {
	store store.Store
	now   func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the completion clock.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates a ledger backed by st.
func New(st store.Store, opts ...Option) *Ledger {
	l := &Ledger{store: st, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

// RegisterNew opens a ledger entry for each candidate that has none and
// returns the ids actually registered. Known ids are left untouched.
func (l *Ledger) RegisterNew(ctx context.Context, candidateIDs []string) ([]string, error) {
	ids := uniqueStrings(candidateIDs)
	if len(ids) == 0 {
		return nil, nil
	}
	registered, err := l.store.RegisterLedger(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("register ledger: %w", err)
	}
	return registered, nil
}

// PendingIDs returns every registered id that is not completed.
func (l *Ledger) PendingIDs(ctx context.Context) ([]string, error) {
	ids, err := l.store.PendingIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("pending ids: %w", err)
	}
	return ids, nil
}

// MarkCompleted stamps the given ids with the current time. Callers must only
// pass ids whose classified record is already committed.
func (l *Ledger) MarkCompleted(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := l.store.MarkCompleted(ctx, ids, l.now().UTC()); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

// Entry returns the ledger state of one id.
func (l *Ledger) Entry(ctx context.Context, id string) (store.LedgerEntry, bool, error) {
	return l.store.LedgerEntry(ctx, id)
}

// Discovery is the outcome of one DISCOVER step.
type Discovery struct {
	NewlyRegistered []string
	// Pending is the work queue: every open entry, not only the new ones,
	// so interrupted work from earlier runs is retried.
	Pending []store.RawRecord
}

// Discover registers raw ids never seen before and returns the full pending
// work queue, oldest first.
func (l *Ledger) Discover(ctx context.Context) (Discovery, error) {
	unseen, err := l.store.UnregisteredRawIDs(ctx)
	if err != nil {
		return Discovery{}, fmt.Errorf("diff raw against ledger: %w", err)
	}

	registered, err := l.RegisterNew(ctx, unseen)
	if err != nil {
		return Discovery{}, err
	}

	pending, err := l.store.PendingRaw(ctx)
	if err != nil {
		return Discovery{}, fmt.Errorf("load pending records: %w", err)
	}

	return Discovery{NewlyRegistered: registered, Pending: pending}, nil
}

func uniqueStrings(in []string) []string {
	set := make(map[string]struct{}, len(in))
	var out []string
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := set[v]; ok {
			continue
		}
		set[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
