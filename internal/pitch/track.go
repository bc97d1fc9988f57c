package pitch

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Sample is one voiced analysis frame.
type Sample struct {
	Time      float64 `json:"t"`
	Frequency float64 `json:"hz"`
}

// Track is the voiced pitch contour of one clip. It is immutable once built;
// accessors hand out copies. An empty Track is valid and means no voiced
// frames were found.
type Track struct {
	samples []Sample
	midi    []float64
}

// NewTrack validates and copies samples. Every frequency must be finite and
// positive and times must be strictly increasing.
func NewTrack(samples []Sample) (*Track, error) {
	s := make([]Sample, len(samples))
	copy(s, samples)

	midi := make([]float64, len(s))
	for i, smp := range s {
		if math.IsNaN(smp.Frequency) || math.IsInf(smp.Frequency, 0) || smp.Frequency <= 0 {
			return nil, fmt.Errorf("sample %d: frequency must be positive and finite, got %v", i, smp.Frequency)
		}
		if math.IsNaN(smp.Time) || math.IsInf(smp.Time, 0) {
			return nil, fmt.Errorf("sample %d: time must be finite, got %v", i, smp.Time)
		}
		if i > 0 && smp.Time <= s[i-1].Time {
			return nil, fmt.Errorf("sample %d: time %v does not follow %v", i, smp.Time, s[i-1].Time)
		}
		midi[i] = HzToMIDI(smp.Frequency)
	}

	return &Track{samples: s, midi: midi}, nil
}

// Len returns the number of voiced samples.
func (t *Track) Len() int {
	if t == nil {
		return 0
	}
	return len(t.samples)
}

func (t *Track) Empty() bool { return t.Len() == 0 }

// At returns the i-th sample.
func (t *Track) At(i int) Sample { return t.samples[i] }

// MIDIAt returns the i-th sample on the semitone scale.
func (t *Track) MIDIAt(i int) float64 { return t.midi[i] }

func (t *Track) Samples() []Sample {
	if t == nil {
		return nil
	}
	out := make([]Sample, len(t.samples))
	copy(out, t.samples)
	return out
}

// MIDI returns the log-frequency representation used for alignment.
func (t *Track) MIDI() []float64 {
	if t == nil {
		return nil
	}
	out := make([]float64, len(t.midi))
	copy(out, t.midi)
	return out
}

// Span returns the times of the first and last voiced samples.
func (t *Track) Span() (start, end float64) {
	if t.Empty() {
		return 0, 0
	}
	return t.samples[0].Time, t.samples[len(t.samples)-1].Time
}

// MedianMIDI returns the median pitch, or NaN for an empty track.
func (t *Track) MedianMIDI() float64 {
	if t.Empty() {
		return math.NaN()
	}
	m := t.MIDI()
	sort.Float64s(m)
	mid := len(m) / 2
	if len(m)%2 == 1 {
		return m[mid]
	}
	return (m[mid-1] + m[mid]) / 2
}

func (t *Track) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("null"), nil
	}
	return json.Marshal(t.samples)
}

func (t *Track) UnmarshalJSON(data []byte) error {
	var samples []Sample
	if err := json.Unmarshal(data, &samples); err != nil {
		return err
	}
	built, err := NewTrack(samples)
	if err != nil {
		return err
	}
	*t = *built
	return nil
}
