package analysis

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shieldcore/firewall/internal/model"
)

// Run fans every analyzer in reg out to its own goroutine sharing ac's
// deadline, grounded in the teacher's errgroup-and-context concurrency
// idiom. Analyzer start order is arbitrary; the caller (RiskEngine) only
// consumes the collected results after every analyzer returns or is
// cancelled at the deadline — missing analyzers contribute partial=true
// with score 0 and confidence 0, never a panic or a dropped slot.
func Run(ctx context.Context, reg *Registry, ac *model.AnalysisContext) []model.AnalyzerResult {
	deadline := ac.Deadline
	if deadline.IsZero() {
		deadline = time.Now().Add(1500 * time.Millisecond)
	}
	runCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	analyzers := reg.All()
	results := make([]model.AnalyzerResult, len(analyzers))

	g, gCtx := errgroup.WithContext(runCtx)
	for i, a := range analyzers {
		i, a := i, a
		g.Go(func() error {
			results[i] = runOne(gCtx, a, ac)
			return nil
		})
	}
	// errgroup.Wait only returns an error if a goroutine returns one;
	// runOne never does, so no error needs surfacing here.
	_ = g.Wait()

	return results
}

// runOne recovers a missing/cancelled analyzer into a sound, well-formed
// partial result rather than letting the caller see a hole in the slice.
func runOne(ctx context.Context, a Analyzer, ac *model.AnalysisContext) model.AnalyzerResult {
	done := make(chan model.AnalyzerResult, 1)
	go func() {
		done <- a.Run(ctx, ac)
	}()
	select {
	case result := <-done:
		return result
	case <-ctx.Done():
		return model.AnalyzerResult{
			Tag:     a.Tag(),
			Score:   0,
			Partial: true,
		}
	}
}
