package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
)

// YTMetadata is the subset of yt-dlp's JSON dump the ingestion path needs.
type YTMetadata struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	Track    string  `json:"track"`
	Uploader string  `json:"uploader"`
	Channel  string  `json:"channel"`
	Duration float64 `json:"duration"`
}

// BestArtist resolves the artist with the same fallback chain yt-dlp
// metadata usually requires: artist, then channel, then uploader.
func (m YTMetadata) BestArtist() string {
	for _, candidate := range []string{m.Artist, m.Channel, m.Uploader} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return "Unknown Artist"
}

// DownloadYouTubeAudio fetches metadata and the audio stream of a video
// into outputDir as WAV, returning the file path and parsed metadata.
func DownloadYouTubeAudio(ctx context.Context, youtubeURL, outputDir string) (string, *YTMetadata, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 3*time.Minute)
		defer cancel()
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("creating output directory: %w", err)
	}

	meta, err := fetchYouTubeMetadata(ctx, youtubeURL)
	if err != nil {
		return "", nil, err
	}

	dl := ytdlp.New().
		NoPlaylist().
		NoWarnings().
		ExtractAudio().
		AudioFormat("wav").
		Output(filepath.Join(outputDir, "%(id)s.%(ext)s"))

	if _, err := dl.Run(ctx, youtubeURL); err != nil {
		if ctx.Err() != nil {
			return "", nil, ctx.Err()
		}
		return "", nil, fmt.Errorf("yt-dlp download failed: %w", err)
	}

	audioPath := filepath.Join(outputDir, meta.ID+".wav")
	if _, err := os.Stat(audioPath); err != nil {
		return "", nil, fmt.Errorf("downloaded audio not found for video %s: %w", meta.ID, err)
	}

	return audioPath, meta, nil
}

func fetchYouTubeMetadata(ctx context.Context, youtubeURL string) (*YTMetadata, error) {
	probe := ytdlp.New().
		NoPlaylist().
		NoWarnings().
		SkipDownload().
		DumpSingleJSON()

	result, err := probe.Run(ctx, youtubeURL)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp metadata extraction failed: %w", err)
	}

	var meta YTMetadata
	if err := json.Unmarshal([]byte(result.Stdout), &meta); err != nil {
		return nil, fmt.Errorf("parsing yt-dlp JSON: %w", err)
	}
	if strings.TrimSpace(meta.ID) == "" {
		return nil, fmt.Errorf("missing video ID in yt-dlp output")
	}
	if strings.TrimSpace(meta.Title) == "" {
		return nil, fmt.Errorf("missing title in yt-dlp output")
	}
	return &meta, nil
}

// IsYouTubeURL reports whether a string is a youtube.com or youtu.be URL.
func IsYouTubeURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Host)
	return strings.Contains(host, "youtube.com") || strings.Contains(host, "youtu.be")
}
