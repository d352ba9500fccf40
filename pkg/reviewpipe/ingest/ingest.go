// Package ingest loads raw review rows into the store in batches.
//
// Rows arrive already parsed and validated (see Reader). Invalid rows are
// counted and skipped. Valid rows are written with duplicate ids ignored, so
// ingesting the same file twice leaves the store unchanged. A batch is the
// commit unit: a crash mid-run loses at most the uncommitted batch and never
// leaves part of one behind.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/reviewpipe/pkg/reviewpipe/internalerr"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe/metrics"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe/runid"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe/store"
)

// DefaultBatchSize is the number of rows per insert when none is configured.
const DefaultBatchSize = 1000

// Options configures a Coordinator.
type Options struct {
	Store     store.Store
	BatchSize int
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	RunIDs    *runid.Generator
}

// Coordinator is the ingestion coordinator.
type Coordinator struct {
	store     store.Store
	batchSize int
	logger    *zap.Logger
	metrics   *metrics.Metrics
	runIDs    *runid.Generator
}

// New creates a Coordinator with the given dependencies.
func New(opts Options) *Coordinator {
	c := &Coordinator{
		store:     opts.Store,
		batchSize: opts.BatchSize,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		runIDs:    opts.RunIDs,
	}
	if c.batchSize <= 0 {
		c.batchSize = DefaultBatchSize
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.runIDs == nil {
		c.runIDs = runid.New()
	}
	return c
}

// Report summarizes one ingestion run. Duplicates counts valid rows that
// were not inserted because their id already existed.
type Report struct {
	RunID      string
	Processed  int
	Inserted   int
	Invalid    int
	Duplicates int
	Batches    int
}

// Fields renders the report counts as structured log fields.
func (r Report) Fields() []zap.Field {
	return []zap.Field{
		zap.Int("processed", r.Processed),
		zap.Int("inserted", r.Inserted),
		zap.Int("invalid", r.Invalid),
		zap.Int("duplicates", r.Duplicates),
		zap.Int("batches", r.Batches),
	}
}

// IngestFile reads a CSV file and ingests its rows.
func (c *Coordinator) IngestFile(ctx context.Context, path string) (Report, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Report{}, fmt.Errorf("%w: input file %s", internalerr.ErrNotFound, path)
	}
	if err != nil {
		return Report{}, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	rd, err := NewReader(f)
	if err != nil {
		return Report{}, fmt.Errorf("%s: %w", path, err)
	}
	return c.Run(ctx, rd)
}

// Run consumes src until io.EOF. Rows with Err set are counted invalid and
// skipped; the rest are inserted in batches. A store error aborts the run;
// batches committed before it stay committed and are reflected in the
// returned report.
func (c *Coordinator) Run(ctx context.Context, src RowSource) (Report, error) {
	rep := Report{RunID: c.runIDs.Next()}
	log := c.logger.With(zap.String("stage", "ingest"), zap.String("run_id", rep.RunID))

	batch := make([]store.RawRecord, 0, c.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		res, err := c.store.InsertRaw(ctx, batch)
		if err != nil {
			return fmt.Errorf("insert batch %d: %w", rep.Batches+1, err)
		}
		rep.Batches++
		rep.Inserted += len(res.Inserted)
		rep.Duplicates += len(res.Skipped)
		c.metrics.IngestBatch(len(res.Inserted), len(res.Skipped))
		log.Debug("batch committed",
			zap.Int("batch", rep.Batches),
			zap.Int("rows", len(batch)),
			zap.Int("inserted", len(res.Inserted)),
			zap.Int("duplicates", len(res.Skipped)),
		)
		batch = batch[:0]
		return nil
	}

	fail := func(err error) (Report, error) {
		c.metrics.RunFailed("ingest")
		log.Error("ingestion aborted", append(rep.Fields(), zap.Error(err))...)
		return rep, err
	}

	for {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fail(fmt.Errorf("read input: %w", err))
		}

		rep.Processed++
		if row.Err != nil {
			rep.Invalid++
			c.metrics.Invalid(1)
			log.Warn("skipping invalid row", zap.Int("line", row.Line), zap.Error(row.Err))
			continue
		}

		batch = append(batch, row.Record)
		if len(batch) >= c.batchSize {
			if err := flush(); err != nil {
				return fail(err)
			}
		}
	}

	if err := flush(); err != nil {
		return fail(err)
	}

	c.metrics.RunSucceeded("ingest", time.Now())
	log.Info("ingestion complete", rep.Fields()...)
	return rep, nil
}
