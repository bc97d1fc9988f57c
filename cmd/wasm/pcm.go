package main

import (
	"fmt"

	"github.com/himanishpuri/FretCoach/internal/audio"
	"github.com/himanishpuri/FretCoach/internal/pitch"
)

// Error codes returned to JavaScript
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorProcessing
	ErrorNoPitch
)

// MaxSeconds bounds the audio accepted from the browser.
const MaxSeconds = 120

type extractError struct {
	code int
	msg  string
}

func (e *extractError) Error() string { return e.msg }

func newExtractor(estimator string) (*pitch.Extractor, error) {
	var est pitch.Estimator = pitch.NewYIN()
	if estimator == "hps" {
		est = pitch.NewHPS()
	}
	// Samples arrive decoded by the browser; the WAV decoder only satisfies
	// the extractor and is never called.
	return pitch.NewExtractor(audio.WAVDecoder{}, est)
}

// extractPCM returns the voiced pitch samples of interleaved PCM.
func extractPCM(ext *pitch.Extractor, samples []float64, sampleRate, channels int) ([]pitch.Sample, error) {
	switch {
	case sampleRate <= 0:
		return nil, &extractError{ErrorInvalidArgs, fmt.Sprintf("Invalid sample rate: %d", sampleRate)}
	case channels < 1 || channels > 2:
		return nil, &extractError{ErrorInvalidArgs, fmt.Sprintf("Channels must be 1 (mono) or 2 (stereo), got: %d", channels)}
	case len(samples) == 0:
		return nil, &extractError{ErrorInvalidArgs, "audioArray is empty"}
	case len(samples)/channels > MaxSeconds*sampleRate:
		return nil, &extractError{ErrorInvalidArgs, fmt.Sprintf("audio longer than %d seconds", MaxSeconds)}
	}

	if channels == 2 {
		samples = stereoToMono(samples)
	}

	tr, err := ext.FromSamples(samples, sampleRate)
	if err != nil {
		return nil, &extractError{ErrorProcessing, fmt.Sprintf("Pitch extraction failed: %v", err)}
	}
	if tr.Empty() {
		return nil, &extractError{ErrorNoPitch, "No pitched notes found (audio may be silent or too quiet)"}
	}
	return tr.Samples(), nil
}

func stereoToMono(stereo []float64) []float64 {
	if len(stereo)%2 != 0 {
		stereo = stereo[:len(stereo)-1]
	}

	mono := make([]float64, len(stereo)/2)
	for i := range mono {
		mono[i] = (stereo[i*2] + stereo[i*2+1]) / 2.0
	}
	return mono
}
