package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/reviewpipe/pkg/reviewpipe/internalerr"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe/store"
)

// DateLayout is the accepted format of the minimum-date argument.
const DateLayout = "2006-01-02"

// Document is the exported view of classified records.
type Document struct {
	Count   int      `json:"count"`
	Records []Record `json:"records"`
}

// Record is one exported classified record. Timestamp is RFC 3339 with
// nanoseconds so it parses back to the stored instant.
type Record struct {
	ID         string `json:"id"`
	Timestamp  string `json:"timestamp"`
	Text       string `json:"text"`
	Category   string `json:"category"`
	LemmaCount int    `json:"lemma_count"`
	CharCount  int    `json:"char_count"`
}

// ParseDate parses a YYYY-MM-DD minimum date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", internalerr.ErrInvalidInput, s)
	}
	return t, nil
}

// Reader queries classified records for export.
type Reader struct {
	store  store.Store
	logger *zap.Logger
}

// NewReader creates an export reader. A nil logger discards output.
func NewReader(st store.Store, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{store: st, logger: logger}
}

// Export returns every classified record with timestamp >= since, ordered by
// timestamp then id. The same store state always yields the same document.
func (r *Reader) Export(ctx context.Context, since time.Time) (Document, error) {
	recs, err := r.store.ClassifiedSince(ctx, since)
	if err != nil {
		return Document{}, fmt.Errorf("query classified records: %w", err)
	}

	doc := Document{Count: len(recs), Records: make([]Record, len(recs))}
	for i, rec := range recs {
		doc.Records[i] = Record{
			ID:         rec.ID,
			Timestamp:  rec.Timestamp.UTC().Format(time.RFC3339Nano),
			Text:       rec.Text,
			Category:   string(rec.Category),
			LemmaCount: rec.LemmaCount,
			CharCount:  rec.CharCount,
		}
	}

	r.logger.Debug("export queried",
		zap.Time("since", since),
		zap.Int("count", doc.Count),
	)
	return doc, nil
}

// WriteJSON encodes doc with four-space indentation.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}

// WriteFile writes doc to path through a temporary file in the same
// directory, so path is either the old content or the complete new one.
func WriteFile(path string, doc Document) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteJSON(tmp, doc); err != nil {
		tmp.Close()
		return fmt.Errorf("encode export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
