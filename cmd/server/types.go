package main

import (
	"fmt"
	"strings"

	"github.com/himanishpuri/FretCoach/pkg/fretcoach"
	"github.com/himanishpuri/FretCoach/pkg/utils"
)

// Pitch track limits for client-side extraction
const (
	// MaxTrackSamplesHardLimit is the absolute maximum allowed (~6 minutes at hop 512 / 22.05 kHz)
	MaxTrackSamplesHardLimit = 15000

	// TrackWarningThreshold triggers logging for large tracks
	TrackWarningThreshold = 5000
)

// EvaluateTrackRequest is the request body for POST /api/references/{id}/evaluate/track
type EvaluateTrackRequest struct {
	// Samples are the voiced pitch samples produced by the WebAssembly extractor.
	Samples []fretcoach.PitchSample `json:"samples"`
}

// Validate checks if the request is valid. An empty track is allowed through
// so that it gets the same retry response as a silent recording.
func (r *EvaluateTrackRequest) Validate() error {
	if len(r.Samples) > MaxTrackSamplesHardLimit {
		return fmt.Errorf("too many samples: %d (maximum: %d)", len(r.Samples), MaxTrackSamplesHardLimit)
	}
	return nil
}

// AddYouTubeReferenceRequest is the request body for POST /api/references/youtube
type AddYouTubeReferenceRequest struct {
	// YouTubeURL is the full YouTube video URL (required)
	YouTubeURL string `json:"youtube_url"`

	// Title and Performer default to the video metadata when empty.
	Title     string `json:"title,omitempty"`
	Performer string `json:"performer,omitempty"`
}

// Validate checks if the request is valid
func (r *AddYouTubeReferenceRequest) Validate() error {
	r.YouTubeURL = strings.TrimSpace(r.YouTubeURL)
	if r.YouTubeURL == "" {
		return fmt.Errorf("youtube_url is required")
	}
	if !utils.IsYouTubeURL(r.YouTubeURL) {
		return fmt.Errorf("youtube_url is not a YouTube link")
	}
	return nil
}

// ListReferencesResponse is the response for GET /api/references
type ListReferencesResponse struct {
	References []fretcoach.Reference `json:"references"`
	Count      int                   `json:"count"`
}

// DeleteReferenceResponse is the response for DELETE /api/references/{id}
type DeleteReferenceResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// EvaluationResponse is the response for POST /api/references/{id}/evaluate.
// ChartPNG holds the base64 overlay chart when requested with ?chart=1.
type EvaluationResponse struct {
	*fretcoach.Evaluation
	ChartPNG string `json:"chart_png,omitempty"`
}

// ComparisonResponse is the response for POST /api/compare
type ComparisonResponse struct {
	*fretcoach.Comparison
	ChartPNG string `json:"chart_png,omitempty"`
}

// ListAttemptsResponse is the response for GET /api/references/{id}/attempts
type ListAttemptsResponse struct {
	ReferenceID string              `json:"reference_id"`
	Attempts    []fretcoach.Attempt `json:"attempts"`
	Count       int                 `json:"count"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
	// Retry is set when the client should record again.
	Retry bool `json:"retry,omitempty"`
}
