package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/himanishpuri/FretCoach/pkg/utils"
)

// YTMetadata is the subset of yt-dlp's JSON used to label a reference track.
type YTMetadata struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	Uploader string  `json:"uploader"`
	Channel  string  `json:"channel"`
	Duration float64 `json:"duration"`
}

// Performer picks the best available credit for the video.
func (m YTMetadata) Performer() string {
	for _, s := range []string{m.Artist, m.Channel, m.Uploader} {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return "Unknown Artist"
}

// DownloadYouTubeAudio fetches a video's best audio stream as WAV into
// outputDir and returns the file path with the video metadata.
func DownloadYouTubeAudio(ctx context.Context, youtubeURL, outputDir string) (string, *YTMetadata, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 3*time.Minute)
		defer cancel()
	}

	videoID, err := utils.ExtractYouTubeID(youtubeURL)
	if err != nil {
		return "", nil, err
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	metaRes, err := ytdlp.New().
		NoPlaylist().
		SkipDownload().
		DumpSingleJSON().
		Run(ctx, youtubeURL)
	if err != nil {
		if ctx.Err() != nil {
			return "", nil, ctx.Err()
		}
		return "", nil, fmt.Errorf("yt-dlp metadata extraction failed: %w", err)
	}

	var meta YTMetadata
	if err := json.Unmarshal([]byte(metaRes.Stdout), &meta); err != nil {
		return "", nil, fmt.Errorf("failed to parse yt-dlp JSON: %w", err)
	}
	if meta.ID == "" {
		meta.ID = videoID
	}

	template := filepath.Join(outputDir, videoID+".%(ext)s")
	if _, err := ytdlp.New().
		NoPlaylist().
		Format("bestaudio/best").
		ExtractAudio().
		AudioFormat("wav").
		Output(template).
		Run(ctx, youtubeURL); err != nil {
		if ctx.Err() != nil {
			return "", nil, ctx.Err()
		}
		return "", nil, fmt.Errorf("yt-dlp download failed: %w", err)
	}

	audioPath := filepath.Join(outputDir, videoID+".wav")
	if _, err := os.Stat(audioPath); err != nil {
		return "", nil, fmt.Errorf("downloaded audio not found for video %s: %w", videoID, err)
	}

	return audioPath, &meta, nil
}
