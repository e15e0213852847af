package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohhhan8/major-project-4th-year/internal/indexer"
	"github.com/rohhhan8/major-project-4th-year/internal/store"
)

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Tag, chunk and embed video transcripts into the vector index",
		RunE:  runIndex,
	}
	f := cmd.Flags()
	f.StringP("input", "i", "videos.json", "JSON file with videos and timed transcripts")
	f.String("db", "studybuddy.db", "SQLite database path")
	f.Duration("chunk-duration", indexer.DefaultChunkDuration, "Transcript time span per chunk")
	f.Int("batch-size", 64, "Chunks per embedding request")
	f.Int("concurrency", 4, "Embedding requests in flight")
	addLLMFlags(f)
	addLogFlags(f)
	return cmd
}

func runIndex(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	videos, err := indexer.LoadVideos(v.GetString("input"))
	if err != nil {
		return err
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	client := newLLMClient(v)
	ix := indexer.New(db, client, client.EmbeddingModel(), indexer.Options{
		ChunkDuration: v.GetDuration("chunk-duration"),
		BatchSize:     v.GetInt("batch-size"),
		Concurrency:   v.GetInt("concurrency"),
	}, slog.Default())

	start := time.Now()
	stats, err := ix.Index(ctx, videos)
	if err != nil {
		return fmt.Errorf("index videos: %w", err)
	}
	total, err := db.ChunkCount()
	if err != nil {
		return err
	}
	slog.Info("indexing finished",
		"videos", stats.Videos,
		"skipped", stats.Skipped,
		"chunks", stats.Chunks,
		"total_chunks", total,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return nil
}
