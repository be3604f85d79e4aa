package hocuspocus

import (
	"context"
	"time"

	"github.com/Programmer-5090/hocuspocus/pkg/models"
)

// Service is the top-level API: song ingestion, identification and
// catalog management.
type Service interface {
	AddSong(ctx context.Context, audioPath, title, artist string) (uint32, error)
	AddSongFolder(ctx context.Context, dir string) ([]uint32, error)
	AddSongFromYouTube(ctx context.Context, youtubeURL string) (uint32, error)
	Identify(ctx context.Context, audioPath string) (*models.MatchResult, error)
	IdentifySignal(ctx context.Context, signal []float64, sampleRate int) (*models.MatchResult, error)
	IdentifyRecording(ctx context.Context, duration time.Duration) (*models.MatchResult, error)
	GetSong(songID uint32) (*models.Song, error)
	ListSongs() ([]models.Song, error)
	DeleteSong(songID uint32) error
	Stats() (*Stats, error)
	Close() error
}

// FingerprintIndex is the persistent inverted index contract the engine
// consumes. InsertFingerprints must be atomic per call; LookupHash is
// exact-match only; DeleteSong cascades all postings for a song.
type FingerprintIndex interface {
	InsertFingerprints(songID uint32, fps []models.Fingerprint) error
	LookupHash(key models.HashKey) ([]models.Posting, error)
	DeleteSong(songID uint32) error
}

// SongCatalog is the metadata store. It holds no fingerprint logic.
type SongCatalog interface {
	AddSong(title, artist, sourceRef string, duration float64) (uint32, error)
	GetSong(songID uint32) (*models.Song, error)
	ListSongs() ([]models.Song, error)
	CountSongs() (int64, error)
	CountFingerprints() (int64, error)
}

// Decoder turns an audio file into a normalized mono signal in [-1, 1] at
// (or near) the requested sample rate.
type Decoder interface {
	Decode(ctx context.Context, path string, targetRate int) ([]float64, int, error)
}

// Recorder captures audio from an input device to a file the Decoder can
// read. A recording is processed identically to a decoded file.
type Recorder interface {
	Record(ctx context.Context, duration time.Duration) (string, error)
}

type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Stats summarizes the database contents.
type Stats struct {
	TotalSongs        int64
	TotalFingerprints int64
	Songs             []models.Song
}
