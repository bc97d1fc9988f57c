package pitch

import (
	"fmt"
	"math"
)

// Reference pitches. E2 and E6 bound the guitar's practical range.
const (
	A4Hz = 440.0
	A4   = 69.0

	HzE2 = 82.40688922821748
	HzE6 = 1318.5102276514797
)

// HzToMIDI maps a frequency to the (fractional) MIDI note scale, where one
// unit is one semitone. Non-positive input yields NaN.
func HzToMIDI(hz float64) float64 {
	if hz <= 0 {
		return math.NaN()
	}
	return 12*math.Log2(hz/A4Hz) + A4
}

// MIDIToHz is the inverse of HzToMIDI.
func MIDIToHz(midi float64) float64 {
	return A4Hz * math.Exp2((midi-A4)/12)
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName renders a MIDI number as the nearest note, e.g. 45 -> "A2".
func NoteName(midi float64) string {
	if math.IsNaN(midi) || math.IsInf(midi, 0) {
		return "?"
	}
	n := int(math.Round(midi))
	octave := n/12 - 1
	idx := n % 12
	if idx < 0 {
		idx += 12
		octave--
	}
	return fmt.Sprintf("%s%d", noteNames[idx], octave)
}
