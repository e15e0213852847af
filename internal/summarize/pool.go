package summarize

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/rohhhan8/major-project-4th-year/internal/model"
)

// Pool bounds how many documents are summarized at once. Each document
// still runs its own sequential, rate-limited call sequence.
type Pool struct {
	s   *Summarizer
	sem *semaphore.Weighted
}

// NewPool allows up to size concurrent documents.
func NewPool(s *Summarizer, size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{s: s, sem: semaphore.NewWeighted(int64(size))}
}

// Summarize waits for a free slot and summarizes doc.
func (p *Pool) Summarize(ctx context.Context, doc Document) (model.NotesResult, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return model.NotesResult{}, fmt.Errorf("wait for summarizer slot: %w", err)
	}
	defer p.sem.Release(1)
	return p.s.Summarize(ctx, doc)
}

// SummarizeAll summarizes docs concurrently within the pool limit. Results
// and errors are index-aligned with docs; one failing document does not
// stop the others.
func (p *Pool) SummarizeAll(ctx context.Context, docs []Document) ([]model.NotesResult, []error) {
	results := make([]model.NotesResult, len(docs))
	errs := make([]error, len(docs))
	var g errgroup.Group
	for i, doc := range docs {
		g.Go(func() error {
			results[i], errs[i] = p.Summarize(ctx, doc)
			return nil
		})
	}
	g.Wait()
	return results, errs
}
