package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rohhhan8/major-project-4th-year/internal/store"
	"github.com/rohhhan8/major-project-4th-year/internal/summarize"
)

func summarizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summarize [transcript files or video ids...]",
		Short: "Generate study notes from transcripts",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSummarize,
	}
	f := cmd.Flags()
	f.Bool("videos", false, "Treat arguments as video ids and read transcripts from the database")
	f.String("db", "studybuddy.db", "SQLite database path")
	f.String("topic", "", "Topic passed to the notes prompt")
	f.String("output-dir", "", "Directory for the notes files (default next to each transcript, or the current directory)")
	addSummaryFlags(f)
	addLLMFlags(f)
	addLogFlags(f)
	return cmd
}

func runSummarize(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	topic := v.GetString("topic")
	fromDB := v.GetBool("videos")
	var db *store.Store
	if fromDB {
		var err error
		if db, err = store.New(v.GetString("db")); err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
	}

	docs := make([]summarize.Document, 0, len(args))
	outputs := make([]string, 0, len(args))
	for _, arg := range args {
		doc := summarize.Document{Topic: topic}
		out := arg
		if fromDB {
			title, transcript, err := db.VideoTranscript(arg)
			if err != nil {
				return err
			}
			doc.VideoID, doc.Title, doc.Transcript = arg, title, transcript
		} else {
			data, err := os.ReadFile(arg)
			if err != nil {
				return fmt.Errorf("read transcript: %w", err)
			}
			doc.Title = strings.TrimSuffix(filepath.Base(arg), filepath.Ext(arg))
			doc.Transcript = string(data)
			out = strings.TrimSuffix(arg, filepath.Ext(arg))
		}
		out += ".notes.md"
		if dir := v.GetString("output-dir"); dir != "" {
			out = filepath.Join(dir, filepath.Base(out))
		}
		docs = append(docs, doc)
		outputs = append(outputs, out)
	}

	pool, err := newSummarizer(v, newLLMClient(v))
	if err != nil {
		return err
	}
	results, errs := pool.SummarizeAll(ctx, docs)

	var failed []error
	for i, res := range results {
		if errs[i] != nil && res.SegmentsTotal == 0 {
			failed = append(failed, fmt.Errorf("%s: %w", args[i], errs[i]))
			continue
		}
		if err := os.WriteFile(outputs[i], []byte(res.Markdown), 0o644); err != nil {
			failed = append(failed, fmt.Errorf("write notes for %s: %w", args[i], err))
			continue
		}
		if fromDB {
			if err := db.SaveNotes(res); err != nil {
				slog.Error("failed to save notes", "video", res.VideoID, "error", err)
			}
		}
		log := slog.With("source", args[i], "output", outputs[i], "segments", res.SegmentsTotal)
		if summarize.IsPartial(res) {
			log.Warn("notes are partial", "failed_segments", res.SegmentsFailed, "timed_out", res.TimedOut)
		} else {
			log.Info("notes written")
		}
	}
	return errors.Join(failed...)
}
