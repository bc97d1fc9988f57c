// Package advice turns a similarity score into a coarse band and the text
// shown to the player, plus the prompt handed to an external advice model.
package advice

import (
	"fmt"
	"math"
	"strings"
)

type Band string

const (
	Excellent Band = "excellent"
	Great     Band = "great"
	Good      Band = "good"
	Fair      Band = "fair"
	NeedsWork Band = "needs-work"
)

// thresholds are checked top-down; the first band whose floor the score
// reaches wins.
var thresholds = []struct {
	floor float64
	band  Band
}{
	{95, Excellent},
	{80, Great},
	{60, Good},
	{40, Fair},
}

// Classify maps a 0..100 score to its band. NaN is treated as the lowest band.
func Classify(score float64) Band {
	if math.IsNaN(score) {
		return NeedsWork
	}
	for _, t := range thresholds {
		if score >= t.floor {
			return t.band
		}
	}
	return NeedsWork
}

func (b Band) String() string { return string(b) }

// Label is the display form, e.g. "Needs work".
func (b Band) Label() string {
	s := strings.ReplaceAll(string(b), "-", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (b Band) Valid() bool {
	switch b {
	case Excellent, Great, Good, Fair, NeedsWork:
		return true
	}
	return false
}

var feedback = map[Band]string{
	Excellent: "Outstanding. Your pitch tracks the reference almost note for note.",
	Great:     "Great take. A few notes drift; slow passages are worth one more run.",
	Good:      "Solid. The phrase shape is there, but several notes land off pitch. Check your fretting hand and string bends.",
	Fair:      "Getting there. Practise the phrase slowly with a tuner and focus on hitting each note cleanly.",
	NeedsWork: "The take is far from the reference. Make sure you are playing the same passage in the same key, then work through it slowly.",
}

// Feedback returns the deterministic message for score. performer may be
// empty.
func Feedback(score float64, performer string) string {
	band := Classify(score)
	msg := feedback[band]
	if performer != "" && (band == Excellent || band == Great) {
		msg += fmt.Sprintf(" You are close to %s's phrasing.", performer)
	}
	return fmt.Sprintf("Score %.1f/100 (%s). %s", clampScore(score), band.Label(), msg)
}

// Prompt builds the request for an external advice generator.
func Prompt(score float64, performer string) string {
	if performer == "" {
		performer = "the reference player"
	}
	band := Classify(score)

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a guitar teacher who knows %s's playing style in depth.\n", performer)
	fmt.Fprintf(&sb, "A student just played a phrase from %s and their pitch accuracy scored %.1f out of 100 (%s).\n",
		performer, clampScore(score), band.Label())
	sb.WriteString("The score measures how closely the student's note pitches follow the reference after aligning for tempo; 100 is a perfect match and each semitone of average error costs 100 points.\n")
	switch band {
	case Excellent, Great:
		sb.WriteString("Suggest how to move from accurate notes to the tone, dynamics and phrasing of the original.\n")
	case Good, Fair:
		sb.WriteString("Suggest focused practice for pitch accuracy: fretting, bends, vibrato and slow repetition.\n")
	default:
		sb.WriteString("Suggest first steps: confirming the key and passage, tuning, and slow note-by-note practice.\n")
	}
	sb.WriteString("Answer in three short bullet points.")
	return sb.String()
}

func clampScore(s float64) float64 {
	if math.IsNaN(s) {
		return 0
	}
	return math.Max(0, math.Min(100, s))
}
