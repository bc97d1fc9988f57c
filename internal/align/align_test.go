package align

import (
	"errors"
	"math"
	"testing"

	"github.com/himanishpuri/FretCoach/internal/pitch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trackFromMIDI builds a track with 10 ms spacing.
func trackFromMIDI(t *testing.T, notes ...float64) *pitch.Track {
	t.Helper()
	samples := make([]pitch.Sample, len(notes))
	for i, n := range notes {
		samples[i] = pitch.Sample{Time: float64(i) * 0.01, Frequency: pitch.MIDIToHz(n)}
	}
	tr, err := pitch.NewTrack(samples)
	require.NoError(t, err)
	return tr
}

func trackFromHz(t *testing.T, hz float64, n int) *pitch.Track {
	t.Helper()
	samples := make([]pitch.Sample, n)
	for i := range samples {
		samples[i] = pitch.Sample{Time: float64(i) * 0.01, Frequency: hz}
	}
	tr, err := pitch.NewTrack(samples)
	require.NoError(t, err)
	return tr
}

func assertValidPath(t *testing.T, res *Result, n, m int) {
	t.Helper()
	require.Len(t, res.ReferenceIndices, n, "path must cover every reference sample")
	require.Len(t, res.UserIndices, n)
	for k := range res.ReferenceIndices {
		assert.Equal(t, k, res.ReferenceIndices[k], "reference advances one per step")
		assert.GreaterOrEqual(t, res.UserIndices[k], 0)
		assert.Less(t, res.UserIndices[k], m)
		if k > 0 {
			d := res.UserIndices[k] - res.UserIndices[k-1]
			assert.True(t, d >= 0 && d <= 2, "user index step %d at %d out of {0,1,2}", d, k)
		}
	}
	assert.GreaterOrEqual(t, res.SimilarityScore, 0.0)
	assert.LessOrEqual(t, res.SimilarityScore, 100.0)
	assert.InDelta(t, res.Distance/float64(n), res.NormalizedDistance, 1e-12)
}

func TestCompare_EmptyTracks(t *testing.T) {
	full := trackFromMIDI(t, make([]float64, 100)...)
	empty, err := pitch.NewTrack(nil)
	require.NoError(t, err)

	tests := []struct {
		name      string
		ref, user *pitch.Track
		refEmpty  bool
		userEmpty bool
	}{
		{"empty user", full, empty, false, true},
		{"empty reference", empty, full, true, false},
		{"both empty", empty, empty, true, true},
		{"nil user", full, nil, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Compare(tt.ref, tt.user)
			assert.Nil(t, res, "no score for empty input")
			assert.ErrorIs(t, err, ErrEmptyTrack)

			var ete *EmptyTrackError
			require.True(t, errors.As(err, &ete))
			assert.Equal(t, tt.refEmpty, ete.Reference)
			assert.Equal(t, tt.userEmpty, ete.User)
		})
	}
}

func TestCompare_Identical(t *testing.T) {
	tr := trackFromMIDI(t, 40, 45, 50, 55, 59, 64)
	res, err := Compare(tr, tr)
	require.NoError(t, err)

	assertValidPath(t, res, 6, 6)
	assert.InDelta(t, 0.0, res.Distance, 1e-9)
	assert.InDelta(t, 100.0, res.SimilarityScore, 1e-9)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, res.UserIndices)
}

func TestCompare_OpenBeginAndEnd(t *testing.T) {
	ref := trackFromMIDI(t, 60, 62, 64)
	user := trackFromMIDI(t, 50, 50, 60, 62, 64, 50)

	res, err := Compare(ref, user)
	require.NoError(t, err)

	assertValidPath(t, res, 3, 6)
	assert.InDelta(t, 0.0, res.Distance, 1e-9, "leading and trailing user material is free")
	assert.Equal(t, []int{2, 3, 4}, res.UserIndices)
}

func TestCompare_TempoDifferences(t *testing.T) {
	t.Run("user plays slower", func(t *testing.T) {
		ref := trackFromMIDI(t, 60, 62, 64, 65)
		user := trackFromMIDI(t, 60, 60, 62, 62, 64, 64, 65, 65)

		res, err := Compare(ref, user)
		require.NoError(t, err)
		assertValidPath(t, res, 4, 8)
		assert.InDelta(t, 0.0, res.Distance, 1e-9)
	})

	t.Run("user plays faster", func(t *testing.T) {
		ref := trackFromMIDI(t, 60, 60, 62, 62)
		user := trackFromMIDI(t, 60, 62)

		res, err := Compare(ref, user)
		require.NoError(t, err)
		assertValidPath(t, res, 4, 2)
		assert.InDelta(t, 0.0, res.Distance, 1e-9)
		assert.Equal(t, []int{0, 0, 1, 1}, res.UserIndices)
	})
}

func TestCompare_IsAsymmetric(t *testing.T) {
	long := trackFromMIDI(t, 60, 60, 60, 60)
	short := trackFromMIDI(t, 60, 62)

	res, err := Compare(long, short)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, res.NormalizedDistance, 1e-9)

	// Every reference sample must be matched, so the 62 costs two semitones.
	res, err = Compare(short, long)
	require.NoError(t, err)
	assertValidPath(t, res, 2, 4)
	assert.InDelta(t, 1.0, res.NormalizedDistance, 1e-9)
	assert.InDelta(t, 0.0, res.SimilarityScore, 1e-9)
}

func TestCompare_SingleSample(t *testing.T) {
	t.Run("single reference sample", func(t *testing.T) {
		res, err := Compare(trackFromMIDI(t, 60), trackFromMIDI(t, 58, 61, 70))
		require.NoError(t, err)
		assertValidPath(t, res, 1, 3)
		assert.Equal(t, []int{1}, res.UserIndices)
		assert.InDelta(t, 1.0, res.Distance, 1e-9)
	})

	t.Run("single user sample", func(t *testing.T) {
		res, err := Compare(trackFromMIDI(t, 60, 62), trackFromMIDI(t, 61))
		require.NoError(t, err)
		assertValidPath(t, res, 2, 1)
		assert.Equal(t, []int{0, 0}, res.UserIndices)
		assert.InDelta(t, 2.0, res.Distance, 1e-9)
		assert.InDelta(t, 0.0, res.SimilarityScore, 1e-9)
	})

	t.Run("ties end at the earliest user sample", func(t *testing.T) {
		res, err := Compare(trackFromMIDI(t, 60), trackFromMIDI(t, 61, 59))
		require.NoError(t, err)
		assert.Equal(t, []int{0}, res.UserIndices)
	})
}

func TestCompare_ConstantOffset(t *testing.T) {
	// 110 Hz against 116.5 Hz is just under a semitone apart.
	res, err := Compare(trackFromHz(t, 110, 50), trackFromHz(t, 116.5, 50))
	require.NoError(t, err)

	want := 12 * math.Log2(116.5/110)
	assert.InDelta(t, want, res.NormalizedDistance, 1e-9)
	assert.InDelta(t, 100-want*100, res.SimilarityScore, 1e-6)
	assert.InDelta(t, 0.6, res.SimilarityScore, 0.1)
}

func TestCompare_ScoreAlwaysInRange(t *testing.T) {
	// Deterministic pseudo-random contours.
	next := uint32(7)
	rnd := func() float64 {
		next = next*1664525 + 1013904223
		return float64(next>>8) / float64(1<<24)
	}
	for trial := 0; trial < 20; trial++ {
		n, m := 1+int(rnd()*40), 1+int(rnd()*40)
		ref := make([]float64, n)
		user := make([]float64, m)
		for i := range ref {
			ref[i] = 40 + rnd()*48
		}
		for i := range user {
			user[i] = 40 + rnd()*48
		}
		res, err := Compare(trackFromMIDI(t, ref...), trackFromMIDI(t, user...))
		require.NoError(t, err)
		assertValidPath(t, res, n, m)
	}
}

func TestCompare_MaxCells(t *testing.T) {
	tr := trackFromMIDI(t, 60, 61, 62, 63)

	_, err := Compare(tr, tr, WithMaxCells(15))
	assert.ErrorIs(t, err, ErrTooLong)

	_, err = Compare(tr, tr, WithMaxCells(16))
	assert.NoError(t, err)

	_, err = Compare(tr, tr, WithMaxCells(0))
	assert.NoError(t, err, "non-positive limit keeps the default")
}

func TestScore(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 100},
		{0.25, 75},
		{1, 0},
		{3.5, 0},
		{-0.5, 100},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Score(tt.in), 1e-9, "Score(%v)", tt.in)
	}
}

func TestSubsequenceDTW_Empty(t *testing.T) {
	_, err := subsequenceDTW(nil, []float64{1})
	assert.ErrorIs(t, err, ErrEmptySequence)
	_, err = subsequenceDTW([]float64{1}, nil)
	assert.ErrorIs(t, err, ErrEmptySequence)
}

func TestSubsequenceDTW_SkipStep(t *testing.T) {
	// Matching 1,3,5 inside 1,2,3,4,5 needs the skip step each time.
	p, err := subsequenceDTW([]float64{1, 3, 5}, []float64{1, 2, 3, 4, 5})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 4}, p.series)
	assert.InDelta(t, 0.0, p.total, 1e-12)
}

func TestOverlay(t *testing.T) {
	ref := trackFromMIDI(t, 60, 62, 64)
	user, err := pitch.NewTrack([]pitch.Sample{
		{Time: 5.0, Frequency: pitch.MIDIToHz(40)},
		{Time: 5.5, Frequency: pitch.MIDIToHz(60)},
		{Time: 6.0, Frequency: pitch.MIDIToHz(62)},
		{Time: 6.5, Frequency: pitch.MIDIToHz(65)},
	})
	require.NoError(t, err)

	res, err := Compare(ref, user)
	require.NoError(t, err)
	ov, err := res.Overlay(ref, user)
	require.NoError(t, err)

	require.Len(t, ov.Reference, 3)
	require.Len(t, ov.User, 3)
	for k := range ov.Reference {
		assert.Equal(t, ref.At(k).Time, ov.Reference[k].Time)
		assert.Equal(t, ov.Reference[k].Time, ov.User[k].Time, "user is drawn on the reference timeline")
		assert.InDelta(t, user.MIDIAt(res.UserIndices[k]), ov.User[k].MIDI, 1e-12)
	}
	assert.InDelta(t, 65.0, ov.User[2].MIDI, 1e-9)

	_, err = res.Overlay(ref, trackFromMIDI(t, 60))
	assert.Error(t, err, "overlay against the wrong user track must fail")
}
