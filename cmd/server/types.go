package main

import (
	"fmt"
	"strings"
)

// AddSongYouTubeRequest is the request body for POST /api/songs/youtube
type AddSongYouTubeRequest struct {
	// YouTubeURL is the full YouTube video URL (required)
	YouTubeURL string `json:"youtube_url"`
}

// Validate checks if the request is valid
func (r *AddSongYouTubeRequest) Validate() error {
	if strings.TrimSpace(r.YouTubeURL) == "" {
		return fmt.Errorf("youtube_url is required")
	}
	return nil
}

// AddSongResponse is the response for successful song addition
type AddSongResponse struct {
	Message string `json:"message"`
	ID      uint32 `json:"id"`
	Title   string `json:"title"`
	Artist  string `json:"artist"`
}

// SongDTO represents a song in API responses
type SongDTO struct {
	ID        uint32  `json:"id"`
	Title     string  `json:"title"`
	Artist    string  `json:"artist"`
	SourceRef string  `json:"source_ref,omitempty"`
	Duration  float64 `json:"duration_seconds"`
}

// ListSongsResponse is the response for GET /api/songs
type ListSongsResponse struct {
	Songs []SongDTO `json:"songs"`
	Count int       `json:"count"`
}

// DeleteSongResponse is the response for DELETE /api/songs/{id}
type DeleteSongResponse struct {
	Message string `json:"message"`
	ID      uint32 `json:"id"`
}

// IdentifyResponse is the response for POST /api/identify
type IdentifyResponse struct {
	Matched           bool     `json:"matched"`
	Song              *SongDTO `json:"song,omitempty"`
	OffsetSeconds     float64  `json:"offset_seconds,omitempty"`
	OffsetFrames      int      `json:"offset_frames,omitempty"`
	BestScore         int      `json:"best_score"`
	TotalMatches      int      `json:"total_matches"`
	Confidence        float64  `json:"confidence"`
	QueryFingerprints int      `json:"query_fingerprints"`
}

// MetricsResponse provides server health and database metrics
type MetricsResponse struct {
	Status           string `json:"status"`
	DatabasePath     string `json:"database_path"`
	SongCount        int64  `json:"song_count"`
	FingerprintCount int64  `json:"fingerprint_count"`
	SampleRate       int    `json:"sample_rate"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
