package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rohhhan8/major-project-4th-year/internal/cluster"
)

func trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the learner clustering model on synthetic data",
		RunE:  runTrain,
	}
	f := cmd.Flags()
	f.StringP("output", "o", "models/kmeans.json", "Model output path")
	f.Int("samples", 1000, "Synthetic learners to generate")
	f.Uint64("seed", cluster.DefaultTrainOptions().Seed, "Random seed")
	f.Int("restarts", cluster.DefaultTrainOptions().Restarts, "k-means++ initializations")
	addLogFlags(f)
	return cmd
}

func runTrain(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	opts := cluster.DefaultTrainOptions()
	opts.Seed = v.GetUint64("seed")
	opts.Restarts = v.GetInt("restarts")

	points := cluster.GenerateSynthetic(v.GetInt("samples"), opts.Seed)
	m, err := cluster.Train(points, opts)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	out := v.GetString("output")
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	if err := cluster.Save(out, m); err != nil {
		return err
	}
	for i, c := range m.Centroids {
		orig := m.Scaler.Denormalize(c.Point)
		slog.Info("centroid", "cluster", i, "profile", c.Profile, "score", orig[0], "avg_time", orig[1])
	}
	slog.Info("model saved", "path", out, "samples", len(points))
	return nil
}
