// Package reviewpipe wires the review classification pipeline together:
// raw ingestion, ledger-driven processing and date-filtered export over one
// store.
package reviewpipe

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/reviewpipe/pkg/reviewpipe/config"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe/export"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe/ingest"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe/ledger"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe/lexicon"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe/metrics"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe/nlp"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe/process"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe/runid"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe/store"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe/store/sqlite"
)

// Pipeline is the main facade
type Pipeline struct {
	store   store.Store
	ingest  *ingest.Coordinator
	process *process.Coordinator
	export  *export.Reader
	metrics *metrics.Metrics
	logger  *zap.Logger
	lexicon lexicon.Stats
}

// Options configures a Pipeline over an already opened store.
type Options struct {
	Store    store.Store
	Analyzer nlp.Analyzer
	Config   config.Config
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

// New creates a Pipeline with the given dependencies. A nil Analyzer is
// built from the NLP settings in Config.
func New(opts Options) (*Pipeline, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	analyzer := opts.Analyzer
	var lexStats lexicon.Stats
	if analyzer == nil {
		loader := config.NewLoader(opts.Config.NLP)
		comp, err := loader.Load()
		if err != nil {
			return nil, err
		}
		analyzer = comp.Analyzer()
		lexStats = comp.Lexicon.Stats()
	}

	ids := runid.New()
	return &Pipeline{
		store: opts.Store,
		ingest: ingest.New(ingest.Options{
			Store:     opts.Store,
			BatchSize: opts.Config.Ingest.BatchSize,
			Logger:    logger,
			Metrics:   opts.Metrics,
			RunIDs:    ids,
		}),
		process: process.New(process.Options{
			Store:           opts.Store,
			Ledger:          ledger.New(opts.Store),
			Analyzer:        analyzer,
			Classifier:      opts.Config.Classifier(),
			BatchSize:       opts.Config.Process.BatchSize,
			AnalyzerWorkers: opts.Config.Process.AnalyzerWorkers,
			Logger:          logger,
			Metrics:         opts.Metrics,
			RunIDs:          ids,
		}),
		export:  export.NewReader(opts.Store, logger),
		metrics: opts.Metrics,
		logger:  logger,
		lexicon: lexStats,
	}, nil
}

// Open opens the SQLite database named by cfg and builds a Pipeline on it.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger, m *metrics.Metrics) (*Pipeline, error) {
	st, err := sqlite.OpenSQLite(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	p, err := New(Options{Store: st, Config: cfg, Logger: logger, Metrics: m})
	if err != nil {
		st.Close()
		return nil, err
	}
	return p, nil
}

// Close cleanly shuts down the pipeline and its store.
func (p *Pipeline) Close() error {
	return p.store.Close()
}

// Ingest loads the CSV file at path into the raw table.
func (p *Pipeline) Ingest(ctx context.Context, path string) (ingest.Report, error) {
	return p.ingest.IngestFile(ctx, path)
}

// IngestRows loads rows from src into the raw table.
func (p *Pipeline) IngestRows(ctx context.Context, src ingest.RowSource) (ingest.Report, error) {
	return p.ingest.Run(ctx, src)
}

// Process classifies every raw record not yet completed in the ledger.
func (p *Pipeline) Process(ctx context.Context) (process.Report, error) {
	return p.process.Run(ctx)
}

// Export returns the classified records with timestamp on or after since.
func (p *Pipeline) Export(ctx context.Context, since time.Time) (export.Document, error) {
	return p.export.Export(ctx, since)
}

// ExportFile writes the export document for since to path.
func (p *Pipeline) ExportFile(ctx context.Context, since time.Time, path string) (export.Document, error) {
	doc, err := p.Export(ctx, since)
	if err != nil {
		return export.Document{}, err
	}
	if err := export.WriteFile(path, doc); err != nil {
		return export.Document{}, fmt.Errorf("write export: %w", err)
	}
	p.logger.Info("export written",
		zap.String("stage", "export"),
		zap.String("path", path),
		zap.Time("since", since),
		zap.Int("count", doc.Count),
	)
	return doc, nil
}

// Status reports table and ledger counts.
func (p *Pipeline) Status(ctx context.Context) (store.Stats, error) {
	return p.store.Stats(ctx)
}

// LexiconStats reports the size of the lemma lexicon the analyzer was built
// with. It is zero when the analyzer was supplied through Options.
func (p *Pipeline) LexiconStats() lexicon.Stats {
	return p.lexicon
}

// WriteMetrics dumps the run metrics to a Prometheus textfile. It is a no-op
// without metrics or a path.
func (p *Pipeline) WriteMetrics(path string) error {
	if p.metrics == nil || path == "" {
		return nil
	}
	return p.metrics.WriteTextfile(path)
}
