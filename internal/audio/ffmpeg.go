package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/himanishpuri/FretCoach/pkg/utils"
)

const defaultFFmpeg = "ffmpeg"

type TranscodeConfig struct {
	Binary  string        // ffmpeg executable, default "ffmpeg"
	Timeout time.Duration // applied when ctx has no deadline, default 30s
}

// TranscodeToMonoWAV converts any ffmpeg-readable file into mono 16-bit PCM
// WAV in outputDir. The sample rate is left untouched so timestamps computed
// downstream use the recording's own rate.
func TranscodeToMonoWAV(
	ctx context.Context,
	inputPath string,
	outputDir string,
	cfg TranscodeConfig,
) (string, error) {

	if cfg.Binary == "" {
		cfg.Binary = defaultFFmpeg
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(outputDir, fmt.Sprintf("%s_%d.wav", base, time.Now().UnixNano()))

	tmpPath := outputPath + ".tmp.wav"
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(
		ctx,
		cfg.Binary,
		"-y",
		"-v", "quiet",
		"-i", inputPath,
		"-vn",
		"-ac", "1", // mono
		"-c:a", "pcm_s16le",
		tmpPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ffmpeg failed: %v (%s)", err, out)
	}

	if err := utils.MoveFile(tmpPath, outputPath); err != nil {
		return "", err
	}

	return outputPath, nil
}

// FFmpegDecoder decodes compressed or exotic encodings by transcoding to a
// temporary mono WAV and reading that back.
type FFmpegDecoder struct {
	TempDir string
	Config  TranscodeConfig
}

func (d *FFmpegDecoder) Decode(ctx context.Context, src Source) (*Buffer, error) {
	if err := src.validate(); err != nil {
		return nil, decodeErr(src, err)
	}

	tempDir := d.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	input := src.Path
	if input == "" {
		if err := utils.MakeDir(tempDir); err != nil {
			return nil, err
		}
		f, err := os.CreateTemp(tempDir, "upload-*"+filepath.Ext(src.Name))
		if err != nil {
			return nil, fmt.Errorf("staging upload: %w", err)
		}
		defer os.Remove(f.Name())
		if _, err := f.Write(src.Data); err != nil {
			f.Close()
			return nil, fmt.Errorf("staging upload: %w", err)
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
		input = f.Name()
	}

	wavPath, err := TranscodeToMonoWAV(ctx, input, tempDir, d.Config)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, decodeErr(src, err)
	}
	defer os.Remove(wavPath)

	buf, err := WAVDecoder{}.Decode(ctx, FromFile(wavPath))
	if err != nil {
		return nil, decodeErr(src, err)
	}
	return buf, nil
}
