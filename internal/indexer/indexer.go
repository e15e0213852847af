// Package indexer turns video transcripts into tagged, embedded chunks in
// the vector store.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rohhhan8/major-project-4th-year/internal/model"
	"github.com/rohhhan8/major-project-4th-year/internal/search"
	"github.com/rohhhan8/major-project-4th-year/internal/store"
)

// Video is one entry of the indexer input file.
type Video struct {
	VideoID          string    `json:"video_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Channel          string    `json:"channel"`
	URL              string    `json:"url"`
	DurationSeconds  float64   `json:"duration_seconds"`
	ManualDifficulty string    `json:"manual_difficulty,omitempty"`
	ManualStyle      string    `json:"manual_style,omitempty"`
	Transcript       []Snippet `json:"transcript"`
}

// WatchURL returns the video URL, defaulting to the YouTube watch page.
func (v Video) WatchURL() string {
	if v.URL != "" {
		return v.URL
	}
	return "https://www.youtube.com/watch?v=" + v.VideoID
}

// LoadVideos reads a JSON array of videos.
func LoadVideos(path string) ([]Video, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var videos []Video
	if err := json.Unmarshal(data, &videos); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, v := range videos {
		if strings.TrimSpace(v.VideoID) == "" {
			return nil, fmt.Errorf("%w: video %d has no video_id", model.ErrInvalidInput, i)
		}
	}
	return videos, nil
}

// Store is the persistence the indexer writes to.
type Store interface {
	UpsertChunks(chunks []model.VideoChunk) error
	CheckIndexInfo(embeddingModel string, dimension int) error
	SetIndexInfo(info store.IndexInfo) error
}

// Options tunes chunking and embedding.
type Options struct {
	ChunkDuration time.Duration
	BatchSize     int // texts per embedding request
	Concurrency   int // embedding requests in flight
}

// DefaultOptions returns the standard indexing settings.
func DefaultOptions() Options {
	return Options{ChunkDuration: DefaultChunkDuration, BatchSize: 64, Concurrency: 4}
}

// Stats summarizes an indexing run.
type Stats struct {
	Videos    int
	Skipped   int
	Chunks    int
	Dimension int
}

type Indexer struct {
	store          Store
	embedder       search.Embedder
	embeddingModel string
	opts           Options
	logger         *slog.Logger
}

func New(st Store, embedder search.Embedder, embeddingModel string, opts Options, logger *slog.Logger) *Indexer {
	d := DefaultOptions()
	if opts.ChunkDuration <= 0 {
		opts.ChunkDuration = d.ChunkDuration
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = d.BatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = d.Concurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{store: st, embedder: embedder, embeddingModel: embeddingModel, opts: opts, logger: logger}
}

// BuildChunks tags and chunks one video. The returned chunks have no
// embeddings yet.
func (ix *Indexer) BuildChunks(v Video) []model.VideoChunk {
	texts := make([]string, 0, len(v.Transcript))
	for _, s := range v.Transcript {
		texts = append(texts, s.Text)
	}
	tags := Tag(v, strings.Join(texts, " "))
	meta := model.ChunkMetadata{Difficulty: tags.Difficulty, Style: tags.Style, Granularity: tags.Granularity}

	timed := ChunkTranscript(v.Transcript, ix.opts.ChunkDuration)
	chunks := make([]model.VideoChunk, len(timed))
	for i, tc := range timed {
		chunks[i] = model.VideoChunk{
			ID:           v.VideoID + "_" + strconv.Itoa(i),
			VideoID:      v.VideoID,
			ChunkIndex:   i,
			Text:         tc.Text,
			Metadata:     meta,
			Title:        v.Title,
			Link:         TimestampLink(v.WatchURL(), tc.Start),
			Timestamp:    FormatTimestamp(tc.Start),
			StartSeconds: tc.Start,
			EndSeconds:   tc.End,
			Channel:      v.Channel,
		}
	}
	ix.logger.Debug("video tagged",
		"video_id", v.VideoID,
		"difficulty", meta.Difficulty,
		"style", meta.Style,
		"granularity", meta.Granularity,
		"chunks", len(chunks),
	)
	return chunks
}

// Index chunks, embeds and stores the videos. The embedding model and
// dimension must match what the store was previously indexed with.
func (ix *Indexer) Index(ctx context.Context, videos []Video) (Stats, error) {
	if err := ix.store.CheckIndexInfo(ix.embeddingModel, 0); err != nil {
		return Stats{}, err
	}

	var stats Stats
	var chunks []model.VideoChunk
	for _, v := range videos {
		vc := ix.BuildChunks(v)
		if len(vc) == 0 {
			ix.logger.Warn("video has no indexable transcript, skipping", "video_id", v.VideoID)
			stats.Skipped++
			continue
		}
		stats.Videos++
		chunks = append(chunks, vc...)
	}
	if len(chunks) == 0 {
		return stats, nil
	}

	if err := ix.embed(ctx, chunks); err != nil {
		return stats, err
	}
	dim := len(chunks[0].Embedding)
	for _, c := range chunks {
		if len(c.Embedding) != dim {
			return stats, fmt.Errorf("chunk %s: embedding dimension %d, expected %d", c.ID, len(c.Embedding), dim)
		}
	}
	if err := ix.store.CheckIndexInfo(ix.embeddingModel, dim); err != nil {
		return stats, err
	}

	if err := ix.store.UpsertChunks(chunks); err != nil {
		return stats, fmt.Errorf("store chunks: %w", err)
	}
	if err := ix.store.SetIndexInfo(store.IndexInfo{
		EmbeddingModel: ix.embeddingModel,
		Dimension:      dim,
		BuiltAt:        time.Now().UTC(),
	}); err != nil {
		return stats, fmt.Errorf("store index info: %w", err)
	}

	stats.Chunks = len(chunks)
	stats.Dimension = dim
	ix.logger.Info("index updated", "videos", stats.Videos, "skipped", stats.Skipped, "chunks", stats.Chunks, "dimension", dim)
	return stats, nil
}

// embed fills in chunk embeddings batch by batch. Batches run concurrently
// up to the configured limit; each writes only its own slice of chunks.
func (ix *Indexer) embed(ctx context.Context, chunks []model.VideoChunk) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.opts.Concurrency)

	for start := 0; start < len(chunks); start += ix.opts.BatchSize {
		batch := chunks[start:min(start+ix.opts.BatchSize, len(chunks))]
		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Text
			}
			vecs, err := ix.embedder.Embed(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed chunks %s..%s: %w", batch[0].ID, batch[len(batch)-1].ID, err)
			}
			if len(vecs) != len(batch) {
				return fmt.Errorf("embedding count mismatch (got %d want %d)", len(vecs), len(batch))
			}
			for i := range batch {
				batch[i].Embedding = vecs[i]
			}
			ix.logger.Debug("batch embedded", "first", batch[0].ID, "size", len(batch))
			return nil
		})
	}
	return g.Wait()
}
