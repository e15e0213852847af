package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/rohhhan8/major-project-4th-year/internal/llm/prompts"
	"github.com/rohhhan8/major-project-4th-year/internal/model"
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Options tunes a Summarizer.
type Options struct {
	Split        SplitOptions
	Delay        time.Duration   // minimum spacing between LLM calls of one document
	Budget       time.Duration   // total time per document, 0 for none
	Variant      prompts.Variant // section prompt style
	MergeWithLLM bool            // run a final LLM pass over the stitched notes
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{
		Split:   DefaultSplitOptions(),
		Delay:   1500 * time.Millisecond,
		Budget:  10 * time.Minute,
		Variant: prompts.VariantDetailed,
	}
}

// Document is one transcript to summarize.
type Document struct {
	VideoID    string
	Topic      string
	Title      string
	Transcript string
}

// Summarizer generates notes for one document at a time. It holds no
// per-document state, so one Summarizer may serve concurrent calls.
type Summarizer struct {
	gen    Generator
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Summarizer.
func New(gen Generator, opts Options, logger *slog.Logger) (*Summarizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := opts.Split.Validate(); err != nil {
		return nil, err
	}
	if opts.Delay < 0 || opts.Budget < 0 {
		return nil, fmt.Errorf("%w: negative delay or budget", model.ErrInvalidInput)
	}
	if opts.Variant == "" {
		opts.Variant = prompts.VariantDetailed
	}
	if !prompts.IsValidVariant(string(opts.Variant)) {
		return nil, fmt.Errorf("%w: unknown prompt variant %q", model.ErrInvalidInput, opts.Variant)
	}
	return &Summarizer{gen: gen, opts: opts, logger: logger, now: time.Now}, nil
}

// Summarize splits the transcript, generates notes for every segment and
// stitches them. A segment that fails after the client's retry is replaced
// by a missing-section marker. When the budget runs out the remaining
// segments are reported as failed, TimedOut is set and the partial result
// is returned without error. When ctx itself is cancelled the partial
// result is returned together with ctx's error.
func (s *Summarizer) Summarize(ctx context.Context, doc Document) (model.NotesResult, error) {
	segs, err := Split(doc.Transcript, s.opts.Split)
	if err != nil {
		return model.NotesResult{}, err
	}
	n := len(segs)
	log := s.logger.With("video", doc.VideoID, "segments", n)
	log.Info("summarizing transcript", "bytes", len(doc.Transcript))

	runCtx := ctx
	if s.opts.Budget > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.opts.Budget)
		defer cancel()
	}

	limit := rate.Inf
	if s.opts.Delay > 0 {
		limit = rate.Every(s.opts.Delay)
	}
	limiter := rate.NewLimiter(limit, 1)

	sections := make([]string, n)
	var failed []int
	stopped := false
	for i, seg := range segs {
		if err := limiter.Wait(runCtx); err != nil {
			log.Warn("stopping before segment", "part", i+1, "error", err)
			stopped = true
		} else {
			notes, err := s.segmentNotes(runCtx, doc, seg, n)
			switch {
			case err == nil:
				sections[i] = notes
				continue
			case runCtx.Err() != nil:
				log.Warn("segment interrupted", "part", i+1, "error", err)
				stopped = true
			default:
				log.Error("segment failed, marking missing", "part", i+1, "error", err)
				failed = append(failed, i)
				sections[i] = MissingMarker(i+1, n)
				continue
			}
		}
		for j := i; j < n; j++ {
			failed = append(failed, j)
			sections[j] = MissingMarker(j+1, n)
		}
		break
	}

	res := model.NotesResult{
		ID:             uuid.NewString(),
		VideoID:        doc.VideoID,
		Markdown:       Stitch(sections),
		SegmentsTotal:  n,
		SegmentsFailed: failed,
		CreatedAt:      s.now().UTC(),
	}
	if res.SegmentsFailed == nil {
		res.SegmentsFailed = []int{}
	}

	if ctx.Err() != nil {
		log.Warn("summary cancelled by caller", "failed", len(failed))
		return res, ctx.Err()
	}
	if stopped {
		res.TimedOut = true
		log.Warn("summary budget exhausted", "budget", s.opts.Budget, "failed", len(failed))
		return res, nil
	}

	if s.opts.MergeWithLLM && n > 1 && len(failed) < n {
		res.Markdown = s.merge(runCtx, limiter, doc, res.Markdown)
	}
	log.Info("summary complete", "failed", len(failed), "chars", len(res.Markdown))
	return res, nil
}

func (s *Summarizer) segmentNotes(ctx context.Context, doc Document, seg model.TranscriptSegment, n int) (string, error) {
	prompt, err := prompts.BuildSectionPrompt(s.opts.Variant, prompts.SectionData{
		Topic:      doc.Topic,
		Title:      doc.Title,
		Part:       seg.Index + 1,
		Parts:      n,
		Transcript: seg.Text,
	})
	if err != nil {
		return "", fmt.Errorf("build prompt: %w", err)
	}
	notes, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if strings.Contains(notes, prompts.NoContentMarker) {
		return "", nil
	}
	return notes, nil
}

// merge asks the LLM to smooth the stitched draft. The rule-based draft is
// kept when the call fails or drops a missing-section marker.
func (s *Summarizer) merge(ctx context.Context, limiter *rate.Limiter, doc Document, draft string) string {
	prompt, err := prompts.BuildMergePrompt(prompts.MergeData{Title: doc.Title, Draft: draft})
	if err != nil {
		s.logger.Error("build merge prompt", "error", err)
		return draft
	}
	if err := limiter.Wait(ctx); err != nil {
		s.logger.Warn("skipping LLM merge", "error", err)
		return draft
	}
	merged, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.logger.Warn("LLM merge failed, keeping stitched notes", "error", err)
		return draft
	}
	merged = strings.TrimSpace(merged)
	if merged == "" || strings.Count(merged, missingPrefix) < strings.Count(draft, missingPrefix) {
		s.logger.Warn("LLM merge output rejected, keeping stitched notes")
		return draft
	}
	return merged + "\n"
}

// IsPartial reports whether a result is missing any section.
func IsPartial(res model.NotesResult) bool {
	return res.TimedOut || len(res.SegmentsFailed) > 0
}
