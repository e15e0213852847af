// Package engine wires diagnosis, recommendation and note generation into
// the operations exposed to the API layer.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rohhhan8/major-project-4th-year/internal/diagnosis"
	"github.com/rohhhan8/major-project-4th-year/internal/model"
	"github.com/rohhhan8/major-project-4th-year/internal/query"
	"github.com/rohhhan8/major-project-4th-year/internal/store"
	"github.com/rohhhan8/major-project-4th-year/internal/summarize"
)

// Searcher ranks indexed videos for a query.
type Searcher interface {
	Search(ctx context.Context, q query.Query) []model.Recommendation
}

// Store persists attempts, diagnoses and notes.
type Store interface {
	SaveAttempt(a model.QuizAttempt) error
	SaveDiagnosis(d model.Diagnosis) error
	SaveNotes(n model.NotesResult) error
	LatestNotes(videoID string) (*model.NotesResult, error)
	VideoTranscript(videoID string) (title, transcript string, err error)
}

// Deps are the collaborators of an Engine. Searcher and Store may be nil:
// without a searcher recommendations are empty, without a store nothing is
// persisted and stored transcripts are unavailable.
type Deps struct {
	Diagnostician *diagnosis.Diagnostician
	Composer      *query.Composer
	Searcher      Searcher
	Summarizer    *summarize.Pool
	Store         Store
	Logger        *slog.Logger
}

// Engine is safe for concurrent use.
type Engine struct {
	diag     *diagnosis.Diagnostician
	composer *query.Composer
	searcher Searcher
	pool     *summarize.Pool
	store    Store
	logger   *slog.Logger
	now      func() time.Time
}

var (
	// ErrNoTranscript is returned when notes are requested for a video whose
	// transcript is not in the store.
	ErrNoTranscript = errors.New("transcript not available")
	// ErrAlreadySubmitted is returned when an attempt id is submitted twice.
	ErrAlreadySubmitted = errors.New("attempt already submitted")
)

func New(d Deps) (*Engine, error) {
	if d.Diagnostician == nil || d.Composer == nil || d.Summarizer == nil {
		return nil, errors.New("engine: diagnostician, composer and summarizer are required")
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Engine{
		diag:     d.Diagnostician,
		composer: d.Composer,
		searcher: d.Searcher,
		pool:     d.Summarizer,
		store:    d.Store,
		logger:   d.Logger,
		now:      time.Now,
	}, nil
}

// SubmitResult is the outcome of a quiz submission.
type SubmitResult struct {
	Diagnosis       model.Diagnosis        `json:"diagnosis"`
	Recommendations []model.Recommendation `json:"recommendations"`
}

// Diagnose diagnoses an attempt without storing anything. An attempt
// without an id gets a new one.
func (e *Engine) Diagnose(ctx context.Context, a model.QuizAttempt) (model.Diagnosis, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Results = diagnosis.FillIdealTimes(a.Results)
	d, err := e.diag.Diagnose(ctx, a)
	if err != nil {
		return model.Diagnosis{}, err
	}
	e.logger.Info("attempt diagnosed",
		"attempt", d.AttemptID,
		"topic", d.TopicID,
		"profile", d.Profile,
		"weakest", d.WeakestPillar,
		"degraded", d.Degraded,
	)
	return d, nil
}

// Recommend composes a search query from the diagnosis and returns ranked
// videos. An empty topic falls back to the diagnosis topic. Search failures
// yield an empty list.
func (e *Engine) Recommend(ctx context.Context, d model.Diagnosis, topic string) ([]model.Recommendation, error) {
	if !d.Profile.IsValid() {
		return nil, fmt.Errorf("%w: unknown learner profile %q", model.ErrInvalidInput, d.Profile)
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = d.Topic
	}
	q := e.composer.Compose(d.Profile, d.WeakestPillar, topic, d.Tags)
	if e.searcher == nil {
		e.logger.Warn("no search index configured", "query", q.Text)
		return []model.Recommendation{}, nil
	}
	recs := e.searcher.Search(ctx, q)
	e.logger.Debug("recommendations", "query", q.Text, "filter", q.Filter, "results", len(recs))
	return recs, nil
}

// Submit stores a new attempt, diagnoses it and recommends videos for it.
// Resubmitting a stored attempt id returns ErrAlreadySubmitted and leaves
// the stored attempt and diagnosis untouched.
func (e *Engine) Submit(ctx context.Context, a model.QuizAttempt) (SubmitResult, error) {
	a.Results = diagnosis.FillIdealTimes(a.Results)
	if err := diagnosis.ValidateResults(a.Results); err != nil {
		return SubmitResult{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.SubmittedAt.IsZero() {
		a.SubmittedAt = e.now().UTC()
	}
	saved := false
	if e.store != nil {
		err := e.store.SaveAttempt(a)
		switch {
		case errors.Is(err, store.ErrExists):
			return SubmitResult{}, fmt.Errorf("attempt %s: %w", a.ID, ErrAlreadySubmitted)
		case err != nil:
			e.logger.Error("failed to save attempt", "attempt", a.ID, "error", err)
		default:
			saved = true
		}
	}
	d, err := e.Diagnose(ctx, a)
	if err != nil {
		return SubmitResult{}, err
	}
	if saved {
		if err := e.store.SaveDiagnosis(d); err != nil {
			e.logger.Error("failed to save diagnosis", "attempt", d.AttemptID, "error", err)
		}
	}
	recs, err := e.Recommend(ctx, d, "")
	if err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{Diagnosis: d, Recommendations: recs}, nil
}

// Summarize generates notes for a transcript.
func (e *Engine) Summarize(ctx context.Context, transcript string) (model.NotesResult, error) {
	return e.summarize(ctx, summarize.Document{Transcript: transcript})
}

// SummarizeVideo generates notes for a stored video transcript. Complete
// notes from an earlier run are reused unless force is set. Notes are
// stored whether or not they are complete.
func (e *Engine) SummarizeVideo(ctx context.Context, videoID, topic string, force bool) (model.NotesResult, error) {
	if e.store == nil {
		return model.NotesResult{}, fmt.Errorf("video %s: %w", videoID, ErrNoTranscript)
	}
	if !force {
		prev, err := e.store.LatestNotes(videoID)
		if err != nil {
			e.logger.Error("failed to load stored notes", "video", videoID, "error", err)
		}
		if prev != nil {
			e.logger.Info("reusing stored notes", "video", videoID, "notes", prev.ID)
			return *prev, nil
		}
	}
	title, transcript, err := e.store.VideoTranscript(videoID)
	if errors.Is(err, store.ErrNotFound) {
		return model.NotesResult{}, fmt.Errorf("video %s: %w", videoID, ErrNoTranscript)
	}
	if err != nil {
		return model.NotesResult{}, fmt.Errorf("load transcript of %s: %w", videoID, err)
	}
	return e.summarize(ctx, summarize.Document{VideoID: videoID, Topic: topic, Title: title, Transcript: transcript})
}

func (e *Engine) summarize(ctx context.Context, doc summarize.Document) (model.NotesResult, error) {
	res, err := e.pool.Summarize(ctx, doc)
	if err != nil && res.SegmentsTotal == 0 {
		return res, err
	}
	if e.store != nil && doc.VideoID != "" {
		if serr := e.store.SaveNotes(res); serr != nil {
			e.logger.Error("failed to save notes", "video", doc.VideoID, "error", serr)
		}
	}
	return res, err
}
