package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Programmer-5090/hocuspocus/pkg/hocuspocus"
	"github.com/Programmer-5090/hocuspocus/pkg/logger"
	"github.com/Programmer-5090/hocuspocus/pkg/models"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service hocuspocus.Service
	config  *ServerConfig
	log     hocuspocus.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	TempDir        string
	SampleRate     int
	AllowedOrigins []string
}

// NewServer creates a new server instance
func NewServer(service hocuspocus.Service, config *ServerConfig) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     logger.GetLogger(),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

func songDTO(song *models.Song) *SongDTO {
	if song == nil {
		return nil
	}
	return &SongDTO{
		ID:        song.ID,
		Title:     song.Title,
		Artist:    song.Artist,
		SourceRef: song.SourceRef,
		Duration:  song.Duration,
	}
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "Hocus Pocus API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":         "GET /health",
			"metrics":        "GET /api/health/metrics",
			"songs":          "GET /api/songs",
			"addSongFile":    "POST /api/songs",
			"addSongYouTube": "POST /api/songs/youtube",
			"getSong":        "GET /api/songs/{id}",
			"deleteSong":     "DELETE /api/songs/{id}",
			"identify":       "POST /api/identify",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats()
	if err != nil {
		s.log.Errorf("Failed to gather stats: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:           "healthy",
		DatabasePath:     s.config.DBPath,
		SongCount:        stats.TotalSongs,
		FingerprintCount: stats.TotalFingerprints,
		SampleRate:       s.config.SampleRate,
	})
}

// handleListSongs handles GET /api/songs
func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	songs, err := s.service.ListSongs()
	if err != nil {
		s.log.Errorf("Failed to list songs: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve songs")
		return
	}

	songDTOs := make([]SongDTO, len(songs))
	for i := range songs {
		songDTOs[i] = *songDTO(&songs[i])
	}

	s.respondJSON(w, http.StatusOK, ListSongsResponse{
		Songs: songDTOs,
		Count: len(songDTOs),
	})
}

// handleGetSong handles GET /api/songs/{id}
func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request, songID uint32) {
	song, err := s.service.GetSong(songID)
	if err != nil {
		s.log.Warnf("Song not found: %d", songID)
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Song with ID %d not found", songID))
		return
	}

	s.respondJSON(w, http.StatusOK, songDTO(song))
}

// handleDeleteSong handles DELETE /api/songs/{id}
func (s *Server) handleDeleteSong(w http.ResponseWriter, r *http.Request, songID uint32) {
	// Get song info before deletion
	song, err := s.service.GetSong(songID)
	if err != nil {
		s.log.Warnf("Song not found for deletion: %d", songID)
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Song with ID %d not found", songID))
		return
	}

	if err := s.service.DeleteSong(songID); err != nil {
		s.log.Errorf("Failed to delete song %d: %v", songID, err)
		s.respondError(w, http.StatusInternalServerError, "Failed to delete song")
		return
	}

	s.log.Infof("Deleted song: %s by %s (ID: %d)", song.Title, song.Artist, songID)
	s.respondJSON(w, http.StatusOK, DeleteSongResponse{
		Message: "Song deleted successfully",
		ID:      songID,
	})
}

// saveUpload copies a multipart upload into the temp dir and returns the
// file path. The caller removes it.
func (s *Server) saveUpload(r *http.Request, prefix string) (string, error) {
	file, header, err := r.FormFile("audio")
	if err != nil {
		return "", fmt.Errorf("audio file is required: %w", err)
	}
	defer file.Close()

	tempFile := filepath.Join(s.config.TempDir, fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixNano(), filepath.Base(header.Filename)))
	out, err := os.Create(tempFile)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to save uploaded file: %w", err)
	}
	return tempFile, nil
}

// handleAddSongFile handles POST /api/songs (multipart file upload)
func (s *Server) handleAddSongFile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	// Parse multipart form (max 100MB)
	if err := r.ParseMultipartForm(100 << 20); err != nil {
		s.log.Errorf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	title := r.FormValue("title")
	artist := r.FormValue("artist")
	if title == "" || artist == "" {
		s.respondError(w, http.StatusBadRequest, "title and artist are required")
		return
	}

	tempFile, err := s.saveUpload(r, "upload")
	if err != nil {
		s.log.Errorf("Upload failed: %v", err)
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(tempFile)

	s.log.Infof("Adding song from file: %s by %s", title, artist)
	songID, err := s.service.AddSong(ctx, tempFile, title, artist)
	if err != nil {
		s.log.Errorf("Failed to add song: %v", err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to add song: %v", err))
		return
	}

	s.log.Infof("Successfully added song: %s by %s (ID: %d)", title, artist, songID)
	s.respondJSON(w, http.StatusCreated, AddSongResponse{
		Message: "Song added successfully",
		ID:      songID,
		Title:   title,
		Artist:  artist,
	})
}

// handleAddSongYouTube handles POST /api/songs/youtube
func (s *Server) handleAddSongYouTube(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	var req AddSongYouTubeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Errorf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.log.Infof("Adding song from YouTube URL: %s", req.YouTubeURL)
	songID, err := s.service.AddSongFromYouTube(ctx, req.YouTubeURL)
	if err != nil {
		s.log.Errorf("Failed to add song from YouTube: %v", err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to add song from YouTube: %v", err))
		return
	}

	song, err := s.service.GetSong(songID)
	if err != nil {
		s.log.Warnf("Added song %d but failed to read it back: %v", songID, err)
		song = &models.Song{ID: songID}
	}

	s.log.Infof("Successfully added song from YouTube: %s by %s (ID: %d)", song.Title, song.Artist, songID)
	s.respondJSON(w, http.StatusCreated, AddSongResponse{
		Message: "Song added successfully from YouTube",
		ID:      songID,
		Title:   song.Title,
		Artist:  song.Artist,
	})
}

// handleIdentifyFile handles POST /api/identify (multipart file upload)
func (s *Server) handleIdentifyFile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	// Parse multipart form (max 50MB)
	if err := r.ParseMultipartForm(50 << 20); err != nil {
		s.log.Errorf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	tempFile, err := s.saveUpload(r, "query")
	if err != nil {
		s.log.Errorf("Upload failed: %v", err)
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(tempFile)

	s.log.Infof("Identifying uploaded file: %s", filepath.Base(tempFile))
	result, err := s.service.Identify(ctx, tempFile)
	if err != nil {
		s.log.Errorf("Failed to identify song: %v", err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to identify song: %v", err))
		return
	}

	resp := IdentifyResponse{
		Matched:           result.Matched,
		BestScore:         result.BestScore,
		TotalMatches:      result.TotalMatches,
		Confidence:        result.Confidence,
		QueryFingerprints: result.QueryFingerprints,
	}
	if result.Matched {
		resp.Song = songDTO(result.Song)
		resp.OffsetSeconds = result.OffsetSeconds
		resp.OffsetFrames = result.OffsetFrames
	}

	s.log.Infof("Identification complete: matched=%v score=%d", result.Matched, result.BestScore)
	s.respondJSON(w, http.StatusOK, resp)
}

// handleSongs routes requests to /api/songs
func (s *Server) handleSongs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListSongs(w, r)
	case http.MethodPost:
		s.handleAddSongFile(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleSong routes requests to /api/songs/{id}
func (s *Server) handleSong(w http.ResponseWriter, r *http.Request) {
	idStr := r.URL.Path[len("/api/songs/"):]
	if idStr == "" {
		s.respondError(w, http.StatusBadRequest, "Song ID required")
		return
	}

	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid song ID")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetSong(w, r, uint32(id))
	case http.MethodDelete:
		s.handleDeleteSong(w, r, uint32(id))
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleIdentify routes requests to /api/identify
func (s *Server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleIdentifyFile(w, r)
}
