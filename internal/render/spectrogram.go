package render

import (
	"context"
	"errors"
	"image"
	"image/draw"

	"github.com/eligwz/spectrogram"
	"github.com/himanishpuri/FretCoach/internal/audio"
)

// Spectrogram renders a linear-magnitude FFT spectrogram of buf. The image
// height is the number of frequency bins.
func Spectrogram(buf *audio.Buffer, width, height int) (*spectrogram.Image128, error) {
	if buf == nil || len(buf.Samples) == 0 {
		return nil, errors.New("no samples to render")
	}
	if width <= 0 || height <= 0 {
		return nil, errors.New("image dimensions must be positive")
	}

	img := spectrogram.NewImage128(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(spectrogram.ParseColor("000000")), image.Point{}, draw.Src)

	// Hamming window, FFT, magnitude, linear scale.
	spectrogram.Drawfft(
		img,
		buf.Samples,
		uint32(buf.SampleRate),
		uint32(height),
		false,
		false,
		true,
		false,
	)
	return img, nil
}

// SaveSpectrogram decodes src and writes its spectrogram to path as PNG.
func SaveSpectrogram(ctx context.Context, dec audio.Decoder, src audio.Source, path string, width, height int) error {
	buf, err := dec.Decode(ctx, src)
	if err != nil {
		return err
	}
	img, err := Spectrogram(buf, width, height)
	if err != nil {
		return err
	}
	return spectrogram.SavePng(img, path)
}
