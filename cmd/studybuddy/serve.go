package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rohhhan8/major-project-4th-year/internal/cache"
	"github.com/rohhhan8/major-project-4th-year/internal/diagnosis"
	"github.com/rohhhan8/major-project-4th-year/internal/engine"
	"github.com/rohhhan8/major-project-4th-year/internal/handler"
	appI18n "github.com/rohhhan8/major-project-4th-year/internal/i18n"
	"github.com/rohhhan8/major-project-4th-year/internal/llm"
	"github.com/rohhhan8/major-project-4th-year/internal/llm/prompts"
	"github.com/rohhhan8/major-project-4th-year/internal/model"
	"github.com/rohhhan8/major-project-4th-year/internal/query"
	"github.com/rohhhan8/major-project-4th-year/internal/search"
	"github.com/rohhhan8/major-project-4th-year/internal/store"
	"github.com/rohhhan8/major-project-4th-year/internal/summarize"
)

const llmDefaultTimeout = 60 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "studybuddy.db", "SQLite database path")
	f.StringP("lang", "l", "en", "Default feedback language (en, ru)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /engine)")
	f.StringSlice("cors-origins", nil, "Allowed CORS origins (default any)")
	f.String("model", "models/kmeans.json", "Clustering model file")
	f.String("query-config", "", "JSON file overriding the query mapping")
	f.String("redis-url", "", "Redis URL for the query embedding cache (disabled when empty)")
	f.Duration("cache-ttl", 24*time.Hour, "Lifetime of cached query embeddings")
	f.Int("results", 9, "Maximum recommended videos")
	f.Int("min-results", 3, "Relax search filters below this many videos")
	f.Float64("relevance-decay", 0.5, "Decay constant turning cosine distance into relevance")
	f.Duration("request-timeout", 0, "Per-request timeout (0 = summary budget plus one minute)")
	addSummaryFlags(f)
	addLLMFlags(f)
	addLogFlags(f)
	return cmd
}

func addSummaryFlags(f *pflag.FlagSet) {
	f.Int("chunk-size", 25000, "Target transcript bytes per LLM call")
	f.Int("chunk-overlap", 500, "Bytes shared between consecutive transcript segments")
	f.Int("chunk-window", 500, "Bytes searched backwards for a sentence end (at most half of chunk-size)")
	f.Duration("summary-delay", 1500*time.Millisecond, "Minimum spacing of LLM calls for one transcript")
	f.Duration("summary-budget", 10*time.Minute, "Time budget per transcript")
	f.Int("summary-workers", 2, "Transcripts summarized concurrently")
	f.String("prompt-variant", string(prompts.VariantDetailed), "Notes prompt variant (detailed, revision)")
	f.Bool("llm-merge", false, "Smooth stitched notes with a final LLM pass")
}

func newSummarizer(v *viper.Viper, gen summarize.Generator) (*summarize.Pool, error) {
	variant := strings.ToLower(strings.TrimSpace(v.GetString("prompt-variant")))
	if !prompts.IsValidVariant(variant) {
		slog.Warn("invalid prompt-variant, using detailed", "variant", variant)
		variant = string(prompts.VariantDetailed)
	}
	if err := prompts.Load(); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	split := summarize.NewSplitOptions(v.GetInt("chunk-size"), v.GetInt("chunk-overlap"), v.GetInt("chunk-window"))
	s, err := summarize.New(gen, summarize.Options{
		Split:        split,
		Delay:        v.GetDuration("summary-delay"),
		Budget:       v.GetDuration("summary-budget"),
		Variant:      prompts.Variant(variant),
		MergeWithLLM: v.GetBool("llm-merge"),
	}, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("create summarizer: %w", err)
	}
	return summarize.NewPool(s, v.GetInt("summary-workers")), nil
}

// buildIndex loads the stored chunks into an in-memory search index. The
// index must have been built with the configured embedding model.
func buildIndex(v *viper.Viper, db *store.Store, embedder search.Embedder, embedModel string) (*search.Index, error) {
	if err := db.CheckIndexInfo(embedModel, 0); err != nil {
		return nil, err
	}
	chunks, err := db.ListChunks()
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	ix, err := search.NewIndex(chunks, embedder, search.Options{
		Limit:      v.GetInt("results"),
		MinResults: v.GetInt("min-results"),
		Decay:      v.GetFloat64("relevance-decay"),
	}, slog.Default())
	if err != nil {
		return nil, err
	}
	if ix.Len() == 0 {
		slog.Warn("recommendations will be empty until `studybuddy index` runs", "err", model.ErrIndexEmpty)
	}
	return ix, nil
}

// queryEmbedder wraps the LLM client with the redis cache when configured.
// An unreachable redis disables caching instead of failing.
func queryEmbedder(ctx context.Context, v *viper.Viper, client *llm.Client) (search.Embedder, func()) {
	url := v.GetString("redis-url")
	if url == "" {
		return client, func() {}
	}
	rc, err := cache.Open(ctx, url, v.GetDuration("cache-ttl"))
	if err != nil {
		slog.Warn("embedding cache disabled", "error", err)
		return client, func() {}
	}
	slog.Info("embedding cache enabled", "ttl", v.GetDuration("cache-ttl"))
	return search.NewCachedEmbedder(client, rc, client.EmbeddingModel(), slog.Default()), func() { rc.Close() }
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	qcfg, err := loadQueryConfig(v.GetString("query-config"))
	if err != nil {
		return err
	}
	composer, err := query.NewComposer(qcfg)
	if err != nil {
		return err
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	client := newLLMClient(v)
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := client.Ping(pingCtx); err != nil {
		slog.Warn("LLM endpoint unreachable, notes and recommendations will degrade", "url", v.GetString("llm-url"), "error", err)
	} else {
		slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", client.ChatModel())
	}
	cancel()

	embedder, closeCache := queryEmbedder(ctx, v, client)
	defer closeCache()

	index, err := buildIndex(v, db, embedder, client.EmbeddingModel())
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	pool, err := newSummarizer(v, client)
	if err != nil {
		return err
	}

	classifier := diagnosis.LoadClassifier(v.GetString("model"), slog.Default())
	eng, err := engine.New(engine.Deps{
		Diagnostician: diagnosis.New(classifier, slog.Default()),
		Composer:      composer,
		Searcher:      index,
		Summarizer:    pool,
		Store:         db,
		Logger:        slog.Default(),
	})
	if err != nil {
		return err
	}

	status := func(context.Context) map[string]any {
		return map[string]any{
			"index_chunks":  index.Len(),
			"model_loaded":  classifier.HasModel(),
			"database_ok":   db.Ping() == nil,
			"embedding_dim": index.Dim(),
		}
	}
	h := handler.New(eng, status)

	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	reqTimeout := v.GetDuration("request-timeout")
	if reqTimeout == 0 {
		reqTimeout = v.GetDuration("summary-budget") + time.Minute
	}
	router := handler.NewRouter(h, handler.RouterConfig{
		BasePath:       basePath,
		Lang:           lang,
		AllowedOrigins: v.GetStringSlice("cors-origins"),
		RequestTimeout: reqTimeout,
	})

	addr := v.GetString("addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      reqTimeout + 10*time.Second,
	}

	slog.Info("starting server",
		"addr", addr,
		"model", client.ChatModel(),
		"embed_model", client.EmbeddingModel(),
		"llm_url", v.GetString("llm-url"),
		"lang", lang,
		"index_chunks", index.Len(),
		"cluster_model", classifier.HasModel(),
		"base_path", basePath,
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	slog.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
