package nlp

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/reviewpipe/pkg/reviewpipe/internalerr"
)

// AnalyzeBatch analyzes texts with up to workers concurrent calls. Results
// keep the input order and each text is analyzed exactly once. The first
// failure cancels the rest and is returned wrapped in ErrAnalyzer.
func AnalyzeBatch(ctx context.Context, a Analyzer, texts []string, workers int) ([]Analysis, error) {
	out := make([]Analysis, len(texts))

	if workers <= 1 {
		for i, text := range texts {
			res, err := a.Analyze(ctx, text)
			if err != nil {
				return nil, fmt.Errorf("%w: text %d: %w", internalerr.ErrAnalyzer, i, err)
			}
			out[i] = res
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, text := range texts {
		g.Go(func() error {
			res, err := a.Analyze(gctx, text)
			if err != nil {
				return fmt.Errorf("%w: text %d: %w", internalerr.ErrAnalyzer, i, err)
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
