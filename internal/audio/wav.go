package audio

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// WAVDecoder decodes integer PCM WAV with go-audio/wav at its stored rate.
type WAVDecoder struct{}

func (WAVDecoder) Decode(ctx context.Context, src Source) (*Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rc, err := src.open()
	if err != nil {
		return nil, decodeErr(src, err)
	}
	defer rc.Close()

	buf, err := decodeWAV(rc)
	if err != nil {
		return nil, decodeErr(src, err)
	}
	return buf, nil
}

func decodeWAV(r io.ReadSeeker) (*Buffer, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, errors.New("not a valid WAV/RIFF file")
	}

	if d.WavAudioFormat != wavFormatPCM && d.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("%w: format tag %d", errUnsupportedWAV, d.WavAudioFormat)
	}
	if d.SampleRate == 0 {
		return nil, errors.New("WAV header reports a zero sample rate")
	}
	if d.NumChans == 0 {
		return nil, errors.New("WAV header reports zero channels")
	}
	switch d.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d bits per sample", errUnsupportedWAV, d.BitDepth)
	}

	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading PCM data: %w", err)
	}

	samples, err := downmix(pcm.Data, int(d.NumChans), int(d.BitDepth))
	if err != nil {
		return nil, err
	}

	return &Buffer{
		Samples:    samples,
		SampleRate: int(d.SampleRate),
	}, nil
}
