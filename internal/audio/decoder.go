package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Decoder turns encoded audio into mono samples plus the true sample rate.
// Implementations must never resample.
type Decoder interface {
	Decode(ctx context.Context, src Source) (*Buffer, error)
}

var (
	errUnsupportedEncoding = errors.New("unsupported encoding and no transcoder available")
	errUnsupportedWAV      = errors.New("unsupported WAV encoding")
)

// AutoDecoder decodes PCM WAV natively and hands everything else (compressed
// uploads, float or ADPCM WAV) to the Fallback transcoder when one is set.
type AutoDecoder struct {
	WAV      Decoder
	Fallback Decoder
}

// NewAutoDecoder wires the native WAV decoder with an ffmpeg fallback when
// ffmpeg is on PATH.
func NewAutoDecoder(tempDir string) *AutoDecoder {
	return NewAutoDecoderWithConfig(tempDir, TranscodeConfig{})
}

// NewAutoDecoderWithConfig is NewAutoDecoder with an explicit transcoder
// configuration. The fallback is omitted when cfg.Binary cannot be found.
func NewAutoDecoderWithConfig(tempDir string, cfg TranscodeConfig) *AutoDecoder {
	d := &AutoDecoder{WAV: WAVDecoder{}}
	bin := cfg.Binary
	if bin == "" {
		bin = defaultFFmpeg
	}
	if _, err := exec.LookPath(bin); err == nil {
		cfg.Binary = bin
		d.Fallback = &FFmpegDecoder{TempDir: tempDir, Config: cfg}
	}
	return d
}

// HasTranscoder reports whether non-WAV input can be decoded.
func (d *AutoDecoder) HasTranscoder() bool { return d.Fallback != nil }

func (d *AutoDecoder) Decode(ctx context.Context, src Source) (*Buffer, error) {
	head, err := src.header(12)
	if err != nil {
		return nil, decodeErr(src, err)
	}

	if isRIFFWave(head) {
		buf, err := d.WAV.Decode(ctx, src)
		if err == nil || d.Fallback == nil || !errors.Is(err, errUnsupportedWAV) {
			return buf, err
		}
	}

	if d.Fallback == nil {
		return nil, decodeErr(src, errUnsupportedEncoding)
	}
	buf, err := d.Fallback.Decode(ctx, src)
	if err != nil {
		// A blown deadline is not unreadable audio.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, decodeErr(src, fmt.Errorf("transcoding: %w", err))
	}
	return buf, nil
}

func isRIFFWave(head []byte) bool {
	return len(head) >= 12 && bytes.Equal(head[0:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE"))
}
