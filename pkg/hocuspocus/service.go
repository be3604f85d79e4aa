package hocuspocus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Programmer-5090/hocuspocus/internal/audio"
	"github.com/Programmer-5090/hocuspocus/internal/fingerprint"
	"github.com/Programmer-5090/hocuspocus/internal/storage"
	"github.com/Programmer-5090/hocuspocus/pkg/logger"
	"github.com/Programmer-5090/hocuspocus/pkg/models"
)

// supportedExtensions limits folder ingestion to formats ffmpeg reliably
// decodes.
var supportedExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".flac": true, ".m4a": true,
	".aac": true, ".ogg": true, ".wma": true,
}

type engineService struct {
	cfg      *Config
	index    FingerprintIndex
	catalog  SongCatalog
	decoder  Decoder
	recorder Recorder
	log      Logger

	engine    *fingerprint.Engine
	generator *fingerprint.Generator
	matcher   *fingerprint.Matcher

	ownedStore *storage.Client
}

// NewService builds the full pipeline behind the Service interface.
// Collaborators not supplied via options are constructed: a SQLite client
// serving as both index and catalog, an ffmpeg decoder and an ffmpeg
// recorder.
func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	s := &engineService{
		cfg:      cfg,
		index:    cfg.Index,
		catalog:  cfg.Catalog,
		decoder:  cfg.Decoder,
		recorder: cfg.Recorder,
		log:      cfg.Logger,
	}

	if s.index == nil || s.catalog == nil {
		store, err := storage.NewClient(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening storage: %w", err)
		}
		s.ownedStore = store
		if s.index == nil {
			s.index = store
		}
		if s.catalog == nil {
			s.catalog = store
		}
	}
	if s.decoder == nil {
		s.decoder = audio.NewFFmpegDecoder(cfg.TempDir)
	}
	if s.recorder == nil {
		s.recorder = audio.NewFFmpegRecorder(cfg.TempDir, cfg.SampleRate)
	}

	s.engine = fingerprint.NewEngine(cfg.FFTSize, cfg.HopLength, cfg.Window, cfg.DBFloor)
	s.generator = fingerprint.NewGenerator(cfg.FanValue, cfg.TargetZoneMin, cfg.TargetZoneMax)
	s.matcher = fingerprint.NewMatcher(s.index, cfg.Logger)

	return s, nil
}

// fingerprintSignal runs spectrogram, peak extraction and fingerprint
// generation over one signal.
func (s *engineService) fingerprintSignal(signal []float64, sampleRate int) ([]models.Fingerprint, error) {
	spec, err := s.engine.Compute(signal, sampleRate)
	if err != nil {
		return nil, err
	}

	peaks := fingerprint.FindPeaks(spec.DB, s.cfg.FreqWindow, s.cfg.TimeWindow, s.cfg.ThresholdDB)
	s.log.Debugf("extracted %d peaks from %d frames", len(peaks), len(spec.Times))

	if s.cfg.RobustFingerprints {
		return s.generator.GenerateRobust(peaks), nil
	}
	return s.generator.Generate(peaks), nil
}

func (s *engineService) AddSong(ctx context.Context, audioPath, title, artist string) (uint32, error) {
	s.log.Infof("processing song: %s by %s", title, artist)

	signal, sampleRate, err := s.decoder.Decode(ctx, audioPath, s.cfg.SampleRate)
	if err != nil {
		return 0, fmt.Errorf("decoding %s: %w", audioPath, err)
	}
	duration := float64(len(signal)) / float64(sampleRate)

	fps, err := s.fingerprintSignal(signal, sampleRate)
	if err != nil {
		return 0, fmt.Errorf("fingerprinting %s: %w", audioPath, err)
	}
	s.log.Infof("generated %d fingerprints", len(fps))

	songID, err := s.catalog.AddSong(title, artist, audioPath, duration)
	if err != nil {
		return 0, fmt.Errorf("registering song: %w", err)
	}

	if err := s.index.InsertFingerprints(songID, fps); err != nil {
		if delErr := s.index.DeleteSong(songID); delErr != nil {
			s.log.Errorf("rollback of song %d failed: %v", songID, delErr)
		}
		return 0, fmt.Errorf("storing fingerprints: %w", err)
	}

	s.log.Infof("added song %q with ID %d", title, songID)
	return songID, nil
}

// AddSongFolder ingests every supported audio file directly inside dir,
// deriving titles from filenames. Ingestion is abortable between songs:
// already-committed songs stay intact when the context is cancelled.
func (s *engineService) AddSongFolder(ctx context.Context, dir string) ([]uint32, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading folder: %w", err)
	}

	var added []uint32
	for _, entry := range entries {
		if entry.IsDir() || !supportedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return added, err
		}

		path := filepath.Join(dir, entry.Name())
		title := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		songID, err := s.AddSong(ctx, path, title, "")
		if err != nil {
			s.log.Errorf("skipping %s: %v", path, err)
			continue
		}
		added = append(added, songID)
	}
	return added, nil
}

func (s *engineService) AddSongFromYouTube(ctx context.Context, youtubeURL string) (uint32, error) {
	if !audio.IsYouTubeURL(youtubeURL) {
		return 0, fmt.Errorf("not a YouTube URL: %s", youtubeURL)
	}

	audioPath, meta, err := audio.DownloadYouTubeAudio(ctx, youtubeURL, s.cfg.TempDir)
	if err != nil {
		return 0, fmt.Errorf("downloading %s: %w", youtubeURL, err)
	}
	defer os.Remove(audioPath)

	title := meta.Title
	if strings.TrimSpace(meta.Track) != "" {
		title = meta.Track
	}
	return s.AddSong(ctx, audioPath, title, meta.BestArtist())
}

func (s *engineService) Identify(ctx context.Context, audioPath string) (*models.MatchResult, error) {
	signal, sampleRate, err := s.decoder.Decode(ctx, audioPath, s.cfg.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", audioPath, err)
	}
	return s.IdentifySignal(ctx, signal, sampleRate)
}

// IdentifySignal matches an in-memory query signal against the index. The
// signal is truncated to MaxQueryDuration before any analysis.
func (s *engineService) IdentifySignal(ctx context.Context, signal []float64, sampleRate int) (*models.MatchResult, error) {
	if s.cfg.MaxQueryDuration > 0 {
		maxSamples := int(s.cfg.MaxQueryDuration * float64(sampleRate))
		if len(signal) > maxSamples {
			signal = signal[:maxSamples]
		}
	}

	fps, err := s.fingerprintSignal(signal, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("fingerprinting query: %w", err)
	}
	s.log.Infof("query produced %d fingerprints", len(fps))

	outcome, err := s.matcher.Identify(fps)
	if err != nil {
		return nil, err
	}

	result := &models.MatchResult{
		Matched:           outcome.Matched,
		QueryFingerprints: len(fps),
	}
	if !outcome.Matched {
		s.log.Infof("no match")
		return result, nil
	}

	song, err := s.catalog.GetSong(outcome.SongID)
	if err != nil {
		return nil, fmt.Errorf("looking up matched song %d: %w", outcome.SongID, err)
	}

	result.Song = song
	result.OffsetFrames = outcome.Offset
	result.OffsetSeconds = float64(outcome.Offset) * float64(s.cfg.HopLength) / float64(sampleRate)
	result.BestScore = outcome.BestScore
	result.TotalMatches = outcome.TotalMatches
	result.Confidence = outcome.Confidence

	s.log.Infof("matched %q (score %d, confidence %.3f)", song.Title, result.BestScore, result.Confidence)
	return result, nil
}

func (s *engineService) IdentifyRecording(ctx context.Context, duration time.Duration) (*models.MatchResult, error) {
	recordedPath, err := s.recorder.Record(ctx, duration)
	if err != nil {
		return nil, fmt.Errorf("recording: %w", err)
	}
	defer os.Remove(recordedPath)

	return s.Identify(ctx, recordedPath)
}

func (s *engineService) GetSong(songID uint32) (*models.Song, error) {
	return s.catalog.GetSong(songID)
}

func (s *engineService) ListSongs() ([]models.Song, error) {
	return s.catalog.ListSongs()
}

func (s *engineService) DeleteSong(songID uint32) error {
	if err := s.index.DeleteSong(songID); err != nil {
		return fmt.Errorf("deleting song %d: %w", songID, err)
	}
	return nil
}

func (s *engineService) Stats() (*Stats, error) {
	songs, err := s.catalog.ListSongs()
	if err != nil {
		return nil, err
	}
	totalSongs, err := s.catalog.CountSongs()
	if err != nil {
		return nil, err
	}
	totalFPs, err := s.catalog.CountFingerprints()
	if err != nil {
		return nil, err
	}
	return &Stats{TotalSongs: totalSongs, TotalFingerprints: totalFPs, Songs: songs}, nil
}

func (s *engineService) Close() error {
	if s.ownedStore != nil {
		return s.ownedStore.Close()
	}
	return nil
}
