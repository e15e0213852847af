package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rohhhan8/major-project-4th-year/internal/engine"
	"github.com/rohhhan8/major-project-4th-year/internal/i18n"
	"github.com/rohhhan8/major-project-4th-year/internal/model"
)

// Service is the engine surface the API exposes.
type Service interface {
	Diagnose(ctx context.Context, a model.QuizAttempt) (model.Diagnosis, error)
	Recommend(ctx context.Context, d model.Diagnosis, topic string) ([]model.Recommendation, error)
	Submit(ctx context.Context, a model.QuizAttempt) (engine.SubmitResult, error)
	Summarize(ctx context.Context, transcript string) (model.NotesResult, error)
	SummarizeVideo(ctx context.Context, videoID, topic string, force bool) (model.NotesResult, error)
}

// DefaultMaxBodyBytes bounds request bodies; transcripts are the largest.
const DefaultMaxBodyBytes = 8 << 20

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	svc          Service
	status       func(ctx context.Context) map[string]any
	maxBodyBytes int64
}

// New creates a new Handler. status, if non-nil, adds details to the
// health check response.
func New(svc Service, status func(ctx context.Context) map[string]any) *Handler {
	return &Handler{svc: svc, status: status, maxBodyBytes: DefaultMaxBodyBytes}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Route("/api/v1", func(api chi.Router) {
		api.Post("/diagnose", h.handleDiagnose)
		api.Post("/recommend", h.handleRecommend)
		api.Post("/quiz/submit", h.handleSubmit)
		api.Post("/summarize", h.handleSummarize)
		api.Post("/videos/{videoID}/notes", h.handleVideoNotes)
	})
}

type recommendRequest struct {
	Diagnosis model.Diagnosis `json:"diagnosis"`
	Topic     string          `json:"topic"`
}

type recommendResponse struct {
	Recommendations []model.Recommendation `json:"recommendations"`
}

type summarizeRequest struct {
	Transcript string `json:"transcript"`
}

type notesResponse struct {
	model.NotesResult
	Partial bool `json:"partial"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if h.status != nil {
		for k, v := range h.status(r.Context()) {
			resp[k] = v
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	var a model.QuizAttempt
	if !h.decode(w, r, &a) {
		return
	}
	d, err := h.svc.Diagnose(r.Context(), a)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if !h.decode(w, r, &req) {
		return
	}
	recs, err := h.svc.Recommend(r.Context(), req.Diagnosis, req.Topic)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recommendResponse{Recommendations: recs})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var a model.QuizAttempt
	if !h.decode(w, r, &a) {
		return
	}
	res, err := h.svc.Submit(r.Context(), a)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Summarize(r.Context(), req.Transcript)
	h.writeNotes(w, r, res, err)
}

func (h *Handler) handleVideoNotes(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	force := false
	if v := r.URL.Query().Get("force"); v != "" {
		var err error
		if force, err = strconv.ParseBool(v); err != nil {
			writeError(w, r, fmt.Errorf("%w: force must be a boolean", model.ErrInvalidInput))
			return
		}
	}
	topic := strings.TrimSpace(r.URL.Query().Get("topic"))
	res, err := h.svc.SummarizeVideo(r.Context(), videoID, topic, force)
	h.writeNotes(w, r, res, err)
}

// writeNotes returns partial notes with 200 when generation stopped after
// producing at least one segment.
func (h *Handler) writeNotes(w http.ResponseWriter, r *http.Request, res model.NotesResult, err error) {
	if err != nil && res.SegmentsTotal == 0 {
		writeError(w, r, err)
		return
	}
	if err != nil {
		slog.Warn("returning partial notes", "video", res.VideoID, "error", err)
	}
	partial := res.TimedOut || len(res.SegmentsFailed) > 0
	writeJSON(w, http.StatusOK, notesResponse{NotesResult: res, Partial: partial})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty request body")
		}
		writeError(w, r, fmt.Errorf("%w: %v", model.ErrInvalidInput, err))
		return false
	}
	return true
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps err to a status code and a localized message. Internal
// error details are logged, not returned.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: i18n.T(ctx, "InvalidRequest"), Detail: err.Error()})
	case errors.Is(err, engine.ErrAlreadySubmitted):
		writeJSON(w, http.StatusConflict, errorResponse{Error: i18n.T(ctx, "AlreadySubmitted"), Detail: err.Error()})
	case errors.Is(err, engine.ErrNoTranscript):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: i18n.T(ctx, "NotFound"), Detail: err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		slog.Warn("request timed out", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{Error: i18n.T(ctx, "RequestTimeout")})
	default:
		slog.Error("request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: i18n.T(ctx, "InternalError")})
	}
}
