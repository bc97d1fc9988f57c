package align

import (
	"fmt"

	"github.com/himanishpuri/FretCoach/internal/pitch"
)

// Point is one chart coordinate: seconds on the reference timeline and
// pitch in MIDI semitones.
type Point struct {
	Time float64 `json:"t"`
	MIDI float64 `json:"midi"`
}

// Overlay holds the two aligned contours, both on the reference time axis.
type Overlay struct {
	Reference []Point `json:"reference"`
	User      []Point `json:"user"`
}

// Overlay projects the aligned pairs for plotting. reference and user must
// be the tracks the result was computed from.
func (r *Result) Overlay(reference, user *pitch.Track) (*Overlay, error) {
	if len(r.ReferenceIndices) != len(r.UserIndices) {
		return nil, fmt.Errorf("corrupt result: %d reference and %d user indices", len(r.ReferenceIndices), len(r.UserIndices))
	}

	out := &Overlay{
		Reference: make([]Point, len(r.ReferenceIndices)),
		User:      make([]Point, len(r.UserIndices)),
	}
	for k, ri := range r.ReferenceIndices {
		ui := r.UserIndices[k]
		if ri < 0 || ri >= reference.Len() || ui < 0 || ui >= user.Len() {
			return nil, fmt.Errorf("pair %d (%d, %d) outside tracks of length %d and %d", k, ri, ui, reference.Len(), user.Len())
		}
		t := reference.At(ri).Time
		out.Reference[k] = Point{Time: t, MIDI: reference.MIDIAt(ri)}
		out.User[k] = Point{Time: t, MIDI: user.MIDIAt(ui)}
	}
	return out, nil
}
