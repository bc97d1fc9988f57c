package audio

import "errors"

// downmix converts interleaved integer PCM into mono float64 in [-1, 1] by
// averaging channels. 8-bit WAV is unsigned and is re-centred first.
func downmix(data []int, channels, bitDepth int) ([]float64, error) {
	if channels <= 0 {
		return nil, errors.New("channel count must be positive")
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, errors.New("unsupported bit depth")
	}

	scale := 1.0 / float64(int64(1)<<uint(bitDepth-1))
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}

	frames := len(data) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(data[i*channels+c]-offset) * scale
		}
		out[i] = clampUnit(sum / float64(channels))
	}
	return out, nil
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
