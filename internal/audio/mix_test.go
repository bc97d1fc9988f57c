package audio

import "testing"

func TestDownmix(t *testing.T) {
	tests := []struct {
		name        string
		data        []int
		channels    int
		bitDepth    int
		want        []float64
		expectError bool
	}{
		{
			name:     "Mono 16-bit",
			data:     []int{0, 16384, -16384},
			channels: 1,
			bitDepth: 16,
			want:     []float64{0, 0.5, -0.5},
		},
		{
			name:     "Stereo averages channels",
			data:     []int{16384, 0, -16384, -16384},
			channels: 2,
			bitDepth: 16,
			want:     []float64{0.25, -0.5},
		},
		{
			name:     "Unsigned 8-bit is centred",
			data:     []int{128, 192, 64},
			channels: 1,
			bitDepth: 8,
			want:     []float64{0, 0.5, -0.5},
		},
		{
			name:     "Four channels",
			data:     []int{32767, 32767, 32767, 32767},
			channels: 4,
			bitDepth: 16,
			want:     []float64{32767.0 / 32768.0},
		},
		{
			name:        "Zero channels",
			data:        []int{0},
			channels:    0,
			bitDepth:    16,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := downmix(tt.data, tt.channels, tt.bitDepth)
			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d frames, got %d", len(tt.want), len(got))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Frame %d: expected %f, got %f", i, tt.want[i], got[i])
				}
				if got[i] < -1 || got[i] > 1 {
					t.Errorf("Frame %d out of range [-1, 1]: %f", i, got[i])
				}
			}
		})
	}
}
