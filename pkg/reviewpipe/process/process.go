// Package process classifies every raw review exactly once.
//
// A run walks DISCOVER → ANALYZE → PERSIST → COMPLETE:
//
//  1. DISCOVER registers raw ids the ledger has never seen and loads the
//     whole pending queue, so work interrupted by an earlier run is retried.
//  2. ANALYZE sends each pending text through the analyzer once.
//  3. PERSIST classifies the analysis and inserts the batch of classified
//     records in one commit.
//  4. COMPLETE marks only the ids of that committed batch as done.
//
// Any analyzer or store error aborts the run. Batches committed before the
// failure stay completed; everything else stays pending for the next run.
package process

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/reviewpipe/pkg/reviewpipe/classify"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe/ledger"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe/metrics"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe/nlp"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe/runid"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe/store"
)

// DefaultBatchSize is the number of classified records per commit when none
// is configured.
const DefaultBatchSize = 500

// Options configures a Coordinator.
type Options struct {
	Store      store.Store
	Ledger     *ledger.Ledger
	Analyzer   nlp.Analyzer
	Classifier *classify.Classifier
	BatchSize  int
	// AnalyzerWorkers bounds concurrent analyzer calls within a batch.
	AnalyzerWorkers int
	Logger          *zap.Logger
	Metrics         *metrics.Metrics
	RunIDs          *runid.Generator
}

// Coordinator is the processing coordinator.
type Coordinator struct {
	store      store.Store
	ledger     *ledger.Ledger
	analyzer   nlp.Analyzer
	classifier *classify.Classifier
	batchSize  int
	workers    int
	logger     *zap.Logger
	metrics    *metrics.Metrics
	runIDs     *runid.Generator
}

// New creates a Coordinator with the given dependencies. Store and Analyzer
// are required; the rest have defaults.
func New(opts Options) *Coordinator {
	c := &Coordinator{
		store:      opts.Store,
		ledger:     opts.Ledger,
		analyzer:   opts.Analyzer,
		classifier: opts.Classifier,
		batchSize:  opts.BatchSize,
		workers:    opts.AnalyzerWorkers,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		runIDs:     opts.RunIDs,
	}
	if c.ledger == nil {
		c.ledger = ledger.New(opts.Store)
	}
	if c.classifier == nil {
		c.classifier = classify.Default()
	}
	if c.batchSize <= 0 {
		c.batchSize = DefaultBatchSize
	}
	if c.workers <= 0 {
		c.workers = 1
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.runIDs == nil {
		c.runIDs = runid.New()
	}
	return c
}

// Report summarizes one processing run.
type Report struct {
	RunID           string
	NewlyRegistered int
	// Pending is the size of the work queue at the start of the run.
	Pending int
	// Classified counts classified records written by this run.
	Classified int
	// Duplicates is Pending minus Classified: ids whose classified record
	// already existed, plus ids left unprocessed by an aborted run.
	Duplicates  int
	Batches     int
	PerCategory map[store.Category]int
}

// Fields renders the report counts as structured log fields.
func (r Report) Fields() []zap.Field {
	return []zap.Field{
		zap.Int("newly_registered", r.NewlyRegistered),
		zap.Int("pending", r.Pending),
		zap.Int("classified", r.Classified),
		zap.Int("duplicates", r.Duplicates),
		zap.Int("batches", r.Batches),
		zap.Int("food", r.PerCategory[store.CategoryFood]),
		zap.Int("service", r.PerCategory[store.CategoryService]),
		zap.Int("general", r.PerCategory[store.CategoryGeneral]),
	}
}

// Run executes one processing run over everything pending.
func (c *Coordinator) Run(ctx context.Context) (Report, error) {
	rep := Report{
		RunID:       c.runIDs.Next(),
		PerCategory: make(map[store.Category]int, 3),
	}
	log := c.logger.With(zap.String("stage", "process"), zap.String("run_id", rep.RunID))

	fail := func(err error) (Report, error) {
		rep.Duplicates = rep.Pending - rep.Classified
		c.metrics.RunFailed("process")
		log.Error("processing aborted", append(rep.Fields(), zap.Error(err))...)
		return rep, err
	}

	// DISCOVER
	disc, err := c.ledger.Discover(ctx)
	if err != nil {
		return fail(err)
	}
	rep.NewlyRegistered = len(disc.NewlyRegistered)
	rep.Pending = len(disc.Pending)
	c.metrics.Registered(rep.NewlyRegistered)
	log.Info("discovered work",
		zap.Int("newly_registered", rep.NewlyRegistered),
		zap.Int("pending", rep.Pending),
	)

	for start := 0; start < len(disc.Pending); start += c.batchSize {
		end := start + c.batchSize
		if end > len(disc.Pending) {
			end = len(disc.Pending)
		}
		if err := c.processBatch(ctx, log, disc.Pending[start:end], &rep); err != nil {
			return fail(fmt.Errorf("batch %d: %w", rep.Batches+1, err))
		}
	}

	rep.Duplicates = rep.Pending - rep.Classified
	c.metrics.RunSucceeded("process", time.Now())
	log.Info("processing complete", rep.Fields()...)
	return rep, nil
}

// processBatch runs ANALYZE, PERSIST and COMPLETE for one batch.
func (c *Coordinator) processBatch(ctx context.Context, log *zap.Logger, batch []store.RawRecord, rep *Report) error {
	// ANALYZE
	texts := make([]string, len(batch))
	for i, r := range batch {
		texts[i] = r.Text
	}
	analyses, err := nlp.AnalyzeBatch(ctx, c.analyzer, texts, c.workers)
	if err != nil {
		return err
	}

	// PERSIST
	recs := make([]store.ClassifiedRecord, len(batch))
	categories := make(map[string]store.Category, len(batch))
	for i, raw := range batch {
		a := analyses[i]
		cat := c.classifier.ClassifyAnalysis(a)
		categories[raw.ID] = cat
		recs[i] = store.ClassifiedRecord{
			Timestamp:  raw.Timestamp,
			ID:         raw.ID,
			Text:       a.NormalizedText,
			Category:   cat,
			LemmaCount: len(a.Lemmas),
			CharCount:  a.CharCount,
		}
	}

	res, err := c.store.InsertClassified(ctx, recs)
	if err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	rep.Batches++
	rep.Classified += len(res.Inserted)
	for _, id := range res.Inserted {
		rep.PerCategory[categories[id]]++
		c.metrics.Classified(string(categories[id]))
	}
	if len(res.Skipped) > 0 {
		log.Warn("classified records already present, reconciling ledger",
			zap.Int("batch", rep.Batches),
			zap.Strings("ids", res.Skipped),
		)
	}

	// COMPLETE: a skipped id hit the primary key of an existing classified
	// record, so completing it keeps ledger and classified table in step.
	done := make([]string, 0, len(res.Inserted)+len(res.Skipped))
	done = append(done, res.Inserted...)
	done = append(done, res.Skipped...)
	if err := c.ledger.MarkCompleted(ctx, done); err != nil {
		return err
	}
	c.metrics.Completed(len(done))

	log.Debug("batch committed",
		zap.Int("batch", rep.Batches),
		zap.Int("records", len(batch)),
		zap.Int("inserted", len(res.Inserted)),
		zap.Int("already_classified", len(res.Skipped)),
	)
	return nil
}
