package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/himanishpuri/FretCoach/internal/config"
	"github.com/himanishpuri/FretCoach/internal/metrics"
	"github.com/himanishpuri/FretCoach/internal/render"
	"github.com/himanishpuri/FretCoach/pkg/fretcoach"
)

const (
	retryAudioMessage = "We could not hear any clear notes in that recording. Please check your microphone and play the phrase again."
	analysisFailed    = "analysis failed, please retry"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service fretcoach.Service
	config  *config.Config
	log     fretcoach.Logger
	metrics *metrics.Manager
}

// NewServer creates a new server instance
func NewServer(service fretcoach.Service, cfg *config.Config, log fretcoach.Logger, m *metrics.Manager) *Server {
	return &Server{
		service: service,
		config:  cfg,
		log:     log,
		metrics: m,
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// respondAnalysisError maps service failures to client responses. Details of
// unexpected failures are logged, never returned.
func (s *Server) respondAnalysisError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, fretcoach.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "reference not found")
	case errors.Is(err, context.DeadlineExceeded):
		s.log.Errorf("%s: %v", op, err)
		s.respondError(w, http.StatusGatewayTimeout, analysisFailed)
	case errors.Is(err, fretcoach.ErrDecode), errors.Is(err, fretcoach.ErrEmptyTrack):
		s.log.Warnf("%s: %v", op, err)
		s.respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   http.StatusText(http.StatusUnprocessableEntity),
			Message: retryAudioMessage,
			Code:    http.StatusUnprocessableEntity,
			Retry:   true,
		})
	case errors.Is(err, fretcoach.ErrTooLong):
		s.log.Warnf("%s: %v", op, err)
		s.respondError(w, http.StatusRequestEntityTooLarge, "recording is too long to compare, please trim it")
	default:
		s.log.Errorf("%s: %v", op, err)
		s.respondError(w, http.StatusInternalServerError, analysisFailed)
	}
}

func (s *Server) analysisContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), time.Duration(s.config.AnalysisTimeoutSec)*time.Second)
}

// parseUpload parses a multipart body within the configured upload limit.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes())
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes()); err != nil {
		return fmt.Errorf("failed to parse form data: %w", err)
	}
	return nil
}

// formAudio reads an uploaded audio field fully into memory.
func formAudio(r *http.Request, field string) (fretcoach.AudioSource, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return fretcoach.AudioSource{}, fmt.Errorf("%s file is required", field)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fretcoach.AudioSource{}, fmt.Errorf("failed to read %s upload: %w", field, err)
	}
	return fretcoach.FromBytes(header.Filename, data), nil
}

func wantsChart(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("chart"))
	return v
}

func (s *Server) encodeChart(c *fretcoach.Comparison) string {
	opts := render.DefaultChartOptions()
	opts.Title = render.ComparisonTitle(c.SimilarityScore)

	var buf bytes.Buffer
	if err := render.WriteOverlayPNG(&buf, c.Overlay, opts); err != nil {
		s.log.Warnf("Rendering overlay chart: %v", err)
		return ""
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.respondError(w, http.StatusNotFound, "not found")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "FretCoach API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":          "GET /health",
			"metrics":         "GET /metrics",
			"references":      "GET /api/references",
			"addReference":    "POST /api/references",
			"addYouTube":      "POST /api/references/youtube",
			"getReference":    "GET /api/references/{id}",
			"deleteReference": "DELETE /api/references/{id}",
			"evaluate":        "POST /api/references/{id}/evaluate",
			"evaluateTrack":   "POST /api/references/{id}/evaluate/track",
			"attempts":        "GET /api/references/{id}/attempts",
			"compare":         "POST /api/compare",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	refs, err := s.service.ListReferences()
	if err != nil {
		s.log.Errorf("Health check failed: %v", err)
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"time":   time.Now().Format(time.RFC3339),
		})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":     "healthy",
		"time":       time.Now().Format(time.RFC3339),
		"references": len(refs),
		"estimator":  s.config.Estimator,
	})
}

// handleListReferences handles GET /api/references
func (s *Server) handleListReferences(w http.ResponseWriter, r *http.Request) {
	refs, err := s.service.ListReferences()
	if err != nil {
		s.log.Errorf("Failed to list references: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve references")
		return
	}
	if refs == nil {
		refs = []fretcoach.Reference{}
	}
	s.respondJSON(w, http.StatusOK, ListReferencesResponse{References: refs, Count: len(refs)})
}

// handleAddReference handles POST /api/references (multipart: audio, title, performer, youtube_id)
func (s *Server) handleAddReference(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	src, err := formAudio(r, "audio")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		s.respondError(w, http.StatusBadRequest, "title is required")
		return
	}

	ctx, cancel := s.analysisContext(r)
	defer cancel()

	ref, err := s.service.AddReference(ctx, fretcoach.AddReferenceRequest{
		Source:    src,
		Title:     title,
		Performer: r.FormValue("performer"),
		YouTubeID: r.FormValue("youtube_id"),
	})
	if err != nil {
		s.respondAnalysisError(w, "add reference", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, ref)
}

// handleAddYouTubeReference handles POST /api/references/youtube
func (s *Server) handleAddYouTubeReference(w http.ResponseWriter, r *http.Request) {
	var req AddYouTubeReferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Downloads take longer than analysis alone.
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute+time.Duration(s.config.AnalysisTimeoutSec)*time.Second)
	defer cancel()

	ref, err := s.service.AddYouTubeReference(ctx, req.YouTubeURL, req.Title, req.Performer)
	if err != nil {
		s.respondAnalysisError(w, "add YouTube reference", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, ref)
}

// handleGetReference handles GET /api/references/{id}
func (s *Server) handleGetReference(w http.ResponseWriter, r *http.Request) {
	ref, err := s.service.GetReference(r.PathValue("id"))
	if err != nil {
		s.respondAnalysisError(w, "get reference", err)
		return
	}
	s.respondJSON(w, http.StatusOK, ref)
}

// handleDeleteReference handles DELETE /api/references/{id}
func (s *Server) handleDeleteReference(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.service.DeleteReference(id); err != nil {
		s.respondAnalysisError(w, "delete reference", err)
		return
	}
	s.respondJSON(w, http.StatusOK, DeleteReferenceResponse{
		Message: "Reference deleted successfully",
		ID:      id,
	})
}

// handleEvaluate handles POST /api/references/{id}/evaluate (multipart: audio)
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	take, err := formAudio(r, "audio")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := s.analysisContext(r)
	defer cancel()

	eval, err := s.service.Evaluate(ctx, r.PathValue("id"), take)
	if err != nil {
		s.respondAnalysisError(w, "evaluate", err)
		return
	}

	resp := EvaluationResponse{Evaluation: eval}
	if wantsChart(r) {
		resp.ChartPNG = s.encodeChart(&eval.Comparison)
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleEvaluateTrack handles POST /api/references/{id}/evaluate/track (pitch tracks from WASM clients)
func (s *Server) handleEvaluateTrack(w http.ResponseWriter, r *http.Request) {
	var req EvaluateTrackRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes())).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Samples) >= TrackWarningThreshold {
		s.log.Warnf("Large pitch track received: %d samples", len(req.Samples))
	}

	take, err := fretcoach.NewPitchTrack(req.Samples)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := s.analysisContext(r)
	defer cancel()

	eval, err := s.service.EvaluateTrack(ctx, r.PathValue("id"), take)
	if err != nil {
		s.respondAnalysisError(w, "evaluate track", err)
		return
	}

	resp := EvaluationResponse{Evaluation: eval}
	if wantsChart(r) {
		resp.ChartPNG = s.encodeChart(&eval.Comparison)
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleListAttempts handles GET /api/references/{id}/attempts?limit=N
func (s *Server) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	id := r.PathValue("id")
	attempts, err := s.service.ListAttempts(id, limit)
	if err != nil {
		s.respondAnalysisError(w, "list attempts", err)
		return
	}
	if attempts == nil {
		attempts = []fretcoach.Attempt{}
	}
	s.respondJSON(w, http.StatusOK, ListAttemptsResponse{ReferenceID: id, Attempts: attempts, Count: len(attempts)})
}

// handleCompare handles POST /api/compare (multipart: reference, audio)
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	take, err := formAudio(r, "audio")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	ref, err := formAudio(r, "reference")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := s.analysisContext(r)
	defer cancel()

	cmp, err := s.service.CompareAudio(ctx, ref, take)
	if err != nil {
		s.respondAnalysisError(w, "compare", err)
		return
	}

	resp := ComparisonResponse{Comparison: cmp}
	if wantsChart(r) {
		resp.ChartPNG = s.encodeChart(cmp)
	}
	s.respondJSON(w, http.StatusOK, resp)
}
