// Package search ranks indexed video chunks against a composed query.
package search

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"unicode/utf8"

	"github.com/rohhhan8/major-project-4th-year/internal/model"
	"github.com/rohhhan8/major-project-4th-year/internal/query"
)

// Embedder maps texts to vectors in the same space as the indexed chunks.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Options tunes ranking.
type Options struct {
	TopN       int     // chunks considered before deduplication
	Limit      int     // unique videos returned
	MinResults int     // fewer unique videos than this triggers filter relaxation
	Decay      float64 // relevance decay constant
}

// DefaultOptions returns the production ranking settings.
func DefaultOptions() Options {
	return Options{TopN: 50, Limit: 9, MinResults: 3, Decay: 0.5}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TopN <= 0 {
		o.TopN = d.TopN
	}
	if o.Limit <= 0 {
		o.Limit = d.Limit
	}
	if o.MinResults <= 0 {
		o.MinResults = d.MinResults
	}
	if o.Decay <= 0 {
		o.Decay = d.Decay
	}
	return o
}

// Relevance converts a cosine distance into a 0-100 score with exponential decay.
func Relevance(distance, decay float64) float64 {
	return 100 * math.Exp(-distance*decay)
}

// CosineDistance returns 1 - cos(a, b). Vectors of different length or
// with zero magnitude are at distance 1.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// Index is an immutable in-memory snapshot of embedded chunks. It is safe
// for concurrent searches.
type Index struct {
	chunks   []model.VideoChunk
	dim      int
	embedder Embedder
	opts     Options
	logger   *slog.Logger
}

// NewIndex builds an index over chunks. All embeddings must share one
// dimension; chunks without an embedding are skipped.
func NewIndex(chunks []model.VideoChunk, embedder Embedder, opts Options, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ix := &Index{embedder: embedder, opts: opts.withDefaults(), logger: logger}
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			logger.Warn("skipping chunk without embedding", "chunk", c.ID)
			continue
		}
		if ix.dim == 0 {
			ix.dim = len(c.Embedding)
		}
		if len(c.Embedding) != ix.dim {
			return nil, fmt.Errorf("chunk %s has dimension %d, index has %d", c.ID, len(c.Embedding), ix.dim)
		}
		ix.chunks = append(ix.chunks, c)
	}
	return ix, nil
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int { return len(ix.chunks) }

// Dim returns the embedding dimension, or 0 for an empty index.
func (ix *Index) Dim() int { return ix.dim }

// Search embeds q and returns up to Limit unique videos ordered by
// relevance. While fewer than MinResults videos match, the filter is
// relaxed one field at a time and the results are flagged Relaxed.
// Failures are logged and produce an empty list.
func (ix *Index) Search(ctx context.Context, q query.Query) []model.Recommendation {
	if len(ix.chunks) == 0 {
		ix.logger.Warn("search skipped", "query", q.Text, "err", model.ErrIndexEmpty)
		return []model.Recommendation{}
	}
	vecs, err := ix.embedder.Embed(ctx, []string{q.Text})
	if err != nil || len(vecs) != 1 {
		ix.logger.Error("embed query", "query", q.Text, "error", err)
		return []model.Recommendation{}
	}
	vec := vecs[0]
	if len(vec) != ix.dim {
		ix.logger.Error("query embedding dimension mismatch", "got", len(vec), "want", ix.dim)
		return []model.Recommendation{}
	}

	filter := q.Filter
	relaxed := false
	recs := ix.rank(vec, filter)
	for len(recs) < ix.opts.MinResults {
		next, ok := filter.Relax()
		if !ok {
			break
		}
		ix.logger.Info("relaxing search filter",
			"query", q.Text, "results", len(recs), "from", filter, "to", next)
		filter, relaxed = next, true
		recs = ix.rank(vec, filter)
	}
	if relaxed {
		for i := range recs {
			recs[i].Relaxed = true
		}
	}
	return recs
}

type scored struct {
	chunk    *model.VideoChunk
	distance float64
}

// rank scores every chunk matching filter, keeps the TopN closest chunks,
// dedupes them by video and truncates to Limit.
func (ix *Index) rank(vec []float32, filter query.Filter) []model.Recommendation {
	hits := make([]scored, 0, ix.opts.TopN)
	for i := range ix.chunks {
		c := &ix.chunks[i]
		if !filter.Matches(c.Metadata) {
			continue
		}
		hits = append(hits, scored{chunk: c, distance: CosineDistance(vec, c.Embedding)})
	}
	slices.SortFunc(hits, func(a, b scored) int {
		if d := cmp.Compare(a.distance, b.distance); d != 0 {
			return d
		}
		return cmp.Compare(a.chunk.ID, b.chunk.ID)
	})
	if len(hits) > ix.opts.TopN {
		hits = hits[:ix.opts.TopN]
	}

	recs := make([]model.Recommendation, 0, len(hits))
	for _, h := range hits {
		recs = append(recs, toRecommendation(h.chunk, h.distance, ix.opts.Decay))
	}
	recs = Dedupe(recs)
	if len(recs) > ix.opts.Limit {
		recs = recs[:ix.opts.Limit]
	}
	return recs
}

// Dedupe keeps the closest recommendation per video and orders the result
// by relevance descending, ties broken by video id.
func Dedupe(recs []model.Recommendation) []model.Recommendation {
	best := make(map[string]int, len(recs))
	out := make([]model.Recommendation, 0, len(recs))
	for _, r := range recs {
		if i, ok := best[r.VideoID]; ok {
			if r.Distance < out[i].Distance {
				out[i] = r
			}
			continue
		}
		best[r.VideoID] = len(out)
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b model.Recommendation) int {
		if d := cmp.Compare(a.Distance, b.Distance); d != 0 {
			return d
		}
		return cmp.Compare(a.VideoID, b.VideoID)
	})
	return out
}

const snippetLen = 200

func toRecommendation(c *model.VideoChunk, distance, decay float64) model.Recommendation {
	link := c.Link
	if link == "" {
		link = "https://www.youtube.com/watch?v=" + c.VideoID
	}
	title := c.Title
	if title == "" {
		title = "Recommended Video"
	}
	return model.Recommendation{
		VideoID:          c.VideoID,
		Title:            title,
		RelevancePercent: math.Round(Relevance(distance, decay)*10) / 10,
		Distance:         math.Round(distance*1e4) / 1e4,
		Metadata:         c.Metadata,
		Link:             link,
		Thumbnail:        "https://i.ytimg.com/vi/" + c.VideoID + "/hqdefault.jpg",
		Timestamp:        c.Timestamp,
		Snippet:          snippet(c.Text),
	}
}

func snippet(text string) string {
	if len(text) <= snippetLen {
		return text
	}
	cut := snippetLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
