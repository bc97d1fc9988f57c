package pitch

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/himanishpuri/FretCoach/internal/audio"
)

func TestMIDIRoundTrip(t *testing.T) {
	tests := []struct {
		hz   float64
		midi float64
		name string
	}{
		{440, 69, "A4"},
		{110, 45, "A2"},
		{HzE2, 40, "E2"},
		{HzE6, 88, "E6"},
		{261.6255653005986, 60, "C4"},
	}

	for _, tt := range tests {
		got := HzToMIDI(tt.hz)
		if math.Abs(got-tt.midi) > 1e-9 {
			t.Errorf("HzToMIDI(%v) = %v, want %v", tt.hz, got, tt.midi)
		}
		if back := MIDIToHz(got); math.Abs(back-tt.hz) > 1e-9 {
			t.Errorf("MIDIToHz(%v) = %v, want %v", got, back, tt.hz)
		}
		if name := NoteName(tt.midi); name != tt.name {
			t.Errorf("NoteName(%v) = %q, want %q", tt.midi, name, tt.name)
		}
	}

	if !math.IsNaN(HzToMIDI(0)) {
		t.Error("HzToMIDI(0) should be NaN")
	}
}

func TestNewTrackInvariants(t *testing.T) {
	tests := []struct {
		name    string
		samples []Sample
		wantErr bool
	}{
		{"empty", nil, false},
		{"valid", []Sample{{0, 110}, {0.01, 111}}, false},
		{"zero frequency", []Sample{{0, 0}}, true},
		{"negative frequency", []Sample{{0, -110}}, true},
		{"nan frequency", []Sample{{0, math.NaN()}}, true},
		{"repeated time", []Sample{{0.5, 110}, {0.5, 110}}, true},
		{"decreasing time", []Sample{{0.5, 110}, {0.4, 110}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTrack(tt.samples)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewTrack error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTrackIsImmutable(t *testing.T) {
	in := []Sample{{0, 110}, {0.1, 220}}
	tr, err := NewTrack(in)
	if err != nil {
		t.Fatalf("NewTrack failed: %v", err)
	}

	in[0].Frequency = 999
	out := tr.Samples()
	out[1].Frequency = 999
	midi := tr.MIDI()
	midi[0] = 0

	if tr.At(0).Frequency != 110 || tr.At(1).Frequency != 220 {
		t.Errorf("Track was mutated through a caller slice: %+v", tr.Samples())
	}
	if tr.MIDIAt(0) != 45 {
		t.Errorf("Expected MIDI 45, got %v", tr.MIDIAt(0))
	}
}

func TestTrackJSON(t *testing.T) {
	tr, _ := NewTrack([]Sample{{0, 110}, {0.5, 220}})
	data, err := json.Marshal(tr)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var back Track
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back.Len() != 2 || back.At(1).Frequency != 220 {
		t.Errorf("Unexpected round trip: %+v", back.Samples())
	}

	if err := json.Unmarshal([]byte(`[{"t":0,"hz":0}]`), &back); err == nil {
		t.Error("Expected invalid frequency to be rejected")
	}
}

func harmonicTone(f0 float64, sampleRate int, seconds float64) []float64 {
	n := int(seconds * float64(sampleRate))
	out := make([]float64, n)
	amps := []float64{0.5, 0.3, 0.2}
	for i := range out {
		x := 2 * math.Pi * f0 * float64(i) / float64(sampleRate)
		for h, a := range amps {
			out[i] += a * math.Sin(float64(h+1)*x)
		}
	}
	return out
}

func voicedMedian(t *testing.T, f Frames) (median float64, voiced int) {
	t.Helper()
	var vals []float64
	for i, ok := range f.Voiced {
		if ok {
			vals = append(vals, f.F0[i])
		}
	}
	if len(vals) == 0 {
		t.Fatal("No voiced frames")
	}
	tr := make([]Sample, len(vals))
	for i, v := range vals {
		tr[i] = Sample{Time: float64(i), Frequency: v}
	}
	track, err := NewTrack(tr)
	if err != nil {
		t.Fatalf("NewTrack failed: %v", err)
	}
	return MIDIToHz(track.MedianMIDI()), len(vals)
}

func TestYINSine(t *testing.T) {
	for _, f0 := range []float64{110, 196, 440} {
		sr := 22050
		frames, err := NewYIN().Estimate(audio.Sine(f0, 0.5, sr, 1), sr, GuitarRange)
		if err != nil {
			t.Fatalf("Estimate failed: %v", err)
		}
		if want := frameCount(sr, DefaultHopLength); frames.Len() != want {
			t.Errorf("Expected %d frames, got %d", want, frames.Len())
		}

		median, voiced := voicedMedian(t, frames)
		if math.Abs(median-f0)/f0 > 0.01 {
			t.Errorf("f0=%v: median estimate %v is more than 1%% off", f0, median)
		}
		if float64(voiced) < 0.8*float64(frames.Len()) {
			t.Errorf("f0=%v: only %d of %d frames voiced", f0, voiced, frames.Len())
		}
	}
}

func TestYINSilenceIsUnvoiced(t *testing.T) {
	frames, err := NewYIN().Estimate(make([]float64, 22050), 22050, GuitarRange)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	for i, v := range frames.Voiced {
		if v {
			t.Fatalf("Frame %d of silence reported voiced", i)
		}
		if !math.IsNaN(frames.F0[i]) {
			t.Fatalf("Frame %d of silence has f0 %v", i, frames.F0[i])
		}
	}
}

func TestYINEmptyInput(t *testing.T) {
	frames, err := NewYIN().Estimate(nil, 44100, GuitarRange)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if frames.Len() != 0 {
		t.Errorf("Expected no frames, got %d", frames.Len())
	}
}

func TestYINRejectsBadInput(t *testing.T) {
	if _, err := NewYIN().Estimate([]float64{0}, 0, GuitarRange); err == nil {
		t.Error("Expected error for zero sample rate")
	}
	if _, err := NewYIN().Estimate([]float64{0}, 44100, Range{MinHz: 500, MaxHz: 100}); err == nil {
		t.Error("Expected error for inverted range")
	}
}

func TestHPSHarmonicTone(t *testing.T) {
	sr := 22050
	f0 := 196.0
	frames, err := NewHPS().Estimate(harmonicTone(f0, sr, 1), sr, GuitarRange)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}

	median, voiced := voicedMedian(t, frames)
	if math.Abs(median-f0)/f0 > 0.015 {
		t.Errorf("Median estimate %v is more than 1.5%% off %v", median, f0)
	}
	if float64(voiced) < 0.7*float64(frames.Len()) {
		t.Errorf("Only %d of %d frames voiced", voiced, frames.Len())
	}
}

func TestSTFTShape(t *testing.T) {
	spec, err := STFT(make([]float64, 4096), 512, Hamming(1024), 2048)
	if err != nil {
		t.Fatalf("STFT failed: %v", err)
	}
	if len(spec) != frameCount(4096, 512) {
		t.Errorf("Expected %d frames, got %d", frameCount(4096, 512), len(spec))
	}
	if len(spec[0]) != 1024 {
		t.Errorf("Expected 1024 bins, got %d", len(spec[0]))
	}

	if _, err := STFT(nil, 512, Hamming(1024), 512); err == nil {
		t.Error("Expected error when fft size is below window length")
	}
}

func TestHamming(t *testing.T) {
	w := Hamming(512)
	if w[0] >= w[256] {
		t.Error("Hamming window should be lower at edges")
	}
	for i, v := range w {
		if v < 0 || v > 1 {
			t.Fatalf("Window value %d out of range: %v", i, v)
		}
	}
}

type fixedEstimator struct{ frames Frames }

func (f fixedEstimator) Estimate([]float64, int, Range) (Frames, error) { return f.frames, nil }

type fixedDecoder struct {
	buf *audio.Buffer
	err error
}

func (d fixedDecoder) Decode(context.Context, audio.Source) (*audio.Buffer, error) {
	return d.buf, d.err
}

func TestExtractorUsesDecoderRate(t *testing.T) {
	nan := math.NaN()
	est := fixedEstimator{Frames{
		F0:        []float64{110, nan, 0, 220, math.Inf(1), 330},
		Voiced:    []bool{true, false, true, true, true, false},
		HopLength: 512,
	}}
	dec := fixedDecoder{buf: &audio.Buffer{Samples: make([]float64, 10), SampleRate: 16000}}

	ex, err := NewExtractor(dec, est)
	if err != nil {
		t.Fatalf("NewExtractor failed: %v", err)
	}
	tr, err := ex.Extract(context.Background(), audio.FromBytes("take.wav", []byte("x")))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	want := []Sample{{0, 110}, {3 * 512.0 / 16000, 220}}
	got := tr.Samples()
	if len(got) != len(want) {
		t.Fatalf("Expected %d samples, got %+v", len(want), got)
	}
	for i := range want {
		if math.Abs(got[i].Time-want[i].Time) > 1e-12 || got[i].Frequency != want[i].Frequency {
			t.Errorf("Sample %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestExtractorPropagatesDecodeError(t *testing.T) {
	decErr := &audio.DecodeError{Source: "take.webm", Err: errors.New("bad header")}
	ex, _ := NewExtractor(fixedDecoder{err: decErr}, NewYIN())

	tr, err := ex.Extract(context.Background(), audio.FromBytes("take.webm", []byte("x")))
	if !errors.Is(err, audio.ErrDecode) {
		t.Fatalf("Expected decode error, got %v", err)
	}
	if tr != nil {
		t.Error("Decode failure must not produce a track")
	}
}

func TestExtractorSilenceGivesEmptyTrack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "silence.wav")
	if err := audio.WriteWAVFile(path, make([]float64, 22050), 22050); err != nil {
		t.Fatalf("WriteWAVFile failed: %v", err)
	}

	ex, _ := NewExtractor(audio.WAVDecoder{}, NewYIN())
	tr, err := ex.Extract(context.Background(), audio.FromFile(path))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !tr.Empty() {
		t.Errorf("Expected empty track for silence, got %d samples", tr.Len())
	}
}

func TestExtractorSameClipAtDifferentRates(t *testing.T) {
	ex, _ := NewExtractor(audio.WAVDecoder{}, NewYIN())
	var ends []float64
	for _, rate := range []int{16000, 44100} {
		path := filepath.Join(t.TempDir(), "tone.wav")
		if err := audio.WriteWAVFile(path, audio.Sine(220, 0.5, rate, 1), rate); err != nil {
			t.Fatalf("WriteWAVFile failed: %v", err)
		}
		tr, err := ex.Extract(context.Background(), audio.FromFile(path))
		if err != nil {
			t.Fatalf("Extract at %d Hz failed: %v", rate, err)
		}
		if tr.Empty() {
			t.Fatalf("No pitch found at %d Hz", rate)
		}
		_, end := tr.Span()
		ends = append(ends, end)
		if med := MIDIToHz(tr.MedianMIDI()); math.Abs(med-220)/220 > 0.01 {
			t.Errorf("Median at %d Hz is %v", rate, med)
		}
	}

	// Both clips last one second. A rate mix-up would stretch one of them
	// by the ratio of the two rates.
	if math.Abs(ends[0]-ends[1]) > 0.1 {
		t.Errorf("Timelines disagree: %v vs %v", ends[0], ends[1])
	}
}

func TestEstimatorNameCarriesSettings(t *testing.T) {
	fine := NewYIN()
	fine.HopLength = 256

	names := map[string]string{}
	for label, est := range map[string]Estimator{
		"yin":      NewYIN(),
		"yin-hop":  fine,
		"hps":      NewHPS(),
		"yin-copy": NewYIN(),
	} {
		names[label] = EstimatorName(est)
	}

	if names["yin"] != names["yin-copy"] {
		t.Errorf("Identical settings should share a name: %q vs %q", names["yin"], names["yin-copy"])
	}
	if names["yin"] == names["yin-hop"] {
		t.Errorf("Changing the hop must change the name, both are %q", names["yin"])
	}
	if names["yin"] == names["hps"] {
		t.Errorf("Different estimators must not share a name: %q", names["yin"])
	}
}
