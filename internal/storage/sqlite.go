package storage

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/glebarez/sqlite"
	customlogger "github.com/Programmer-5090/hocuspocus/pkg/logger"
	"github.com/Programmer-5090/hocuspocus/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const DefaultDBFile = "hocuspocus.sqlite3"

const errClientNil = "db client is nil"

const insertBatchSize = 500

// Client is the SQLite-backed fingerprint index and song catalog. It is
// safe for concurrent readers overlapping a single writer; fingerprint
// insertion for one song commits as a single transaction so a reader
// never observes a partially indexed song.
type Client struct {
	DB  *gorm.DB
	db  *sql.DB
	log *customlogger.Logger
}

// Song is the catalog row. Duration is in seconds.
type Song struct {
	ID        uint32 `gorm:"primaryKey;autoIncrement"`
	Title     string `gorm:"not null;index:idx_song_meta,priority:1"`
	Artist    string `gorm:"index:idx_song_meta,priority:2"`
	SourceRef string
	Duration  float64
	CreatedAt time.Time
}

// Fingerprint is one posting of the inverted index: the three hash
// components plus the anchor frame, keyed for exact-match lookup.
type Fingerprint struct {
	ID      uint   `gorm:"primaryKey;autoIncrement"`
	SongID  uint32 `gorm:"not null;index:idx_fp_song"`
	FAnchor int    `gorm:"not null;index:idx_fp_lookup,priority:1"`
	FTarget int    `gorm:"not null;index:idx_fp_lookup,priority:2"`
	DeltaT  int    `gorm:"not null;index:idx_fp_lookup,priority:3"`
	TAnchor int    `gorm:"not null"`
}

func NewClient(dbPath string) (*Client, error) {
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=journal_mode(WAL)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Song{}, &Fingerprint{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &Client{DB: db, db: sqlDB, log: customlogger.GetLogger()}, nil
}

func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// AddSong registers catalog metadata and returns the new song ID.
func (c *Client) AddSong(title, artist, sourceRef string, duration float64) (uint32, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errClientNil)
	}
	song := Song{Title: title, Artist: artist, SourceRef: sourceRef, Duration: duration}
	if err := c.DB.Create(&song).Error; err != nil {
		return 0, fmt.Errorf("creating song: %w", err)
	}
	return song.ID, nil
}

func (c *Client) GetSong(songID uint32) (*models.Song, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errClientNil)
	}
	var song Song
	if err := c.DB.First(&song, songID).Error; err != nil {
		return nil, fmt.Errorf("querying song %d: %w", songID, err)
	}
	out := song.toModel()
	return &out, nil
}

func (c *Client) ListSongs() ([]models.Song, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errClientNil)
	}
	var rows []Song
	if err := c.DB.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing songs: %w", err)
	}
	out := make([]models.Song, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (s Song) toModel() models.Song {
	return models.Song{
		ID:        s.ID,
		Title:     s.Title,
		Artist:    s.Artist,
		SourceRef: s.SourceRef,
		Duration:  s.Duration,
	}
}

// DeleteSong removes a song and cascades to its postings in one
// transaction.
func (c *Client) DeleteSong(songID uint32) error {
	if c == nil || c.DB == nil {
		return errors.New(errClientNil)
	}
	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("song_id = ?", songID).Delete(&Fingerprint{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Song{}, songID).Error
	})
}

// InsertFingerprints appends all postings for one song as a single atomic
// batch.
func (c *Client) InsertFingerprints(songID uint32, fps []models.Fingerprint) error {
	if c == nil || c.DB == nil {
		return errors.New(errClientNil)
	}
	if len(fps) == 0 {
		return nil
	}

	entries := make([]Fingerprint, len(fps))
	for i, fp := range fps {
		entries[i] = Fingerprint{
			SongID:  songID,
			FAnchor: fp.Hash.FAnchor,
			FTarget: fp.Hash.FTarget,
			DeltaT:  fp.Hash.DeltaT,
			TAnchor: fp.TAnchor,
		}
	}

	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(entries, insertBatchSize).Error; err != nil {
			return fmt.Errorf("batch insert fingerprints: %w", err)
		}
		return nil
	})
}

// LookupHash returns all postings stored under an exact hash key. Values
// are read through a lenient decode path: databases written by the old
// storage engine hold little-endian blobs where integers belong, and a
// single undecodable posting is skipped with a warning rather than
// failing the whole lookup.
func (c *Client) LookupHash(key models.HashKey) ([]models.Posting, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errClientNil)
	}

	rows, err := c.DB.Raw(
		"SELECT song_id, t_anchor FROM fingerprints WHERE f_anchor = ? AND f_target = ? AND delta_t = ?",
		key.FAnchor, key.FTarget, key.DeltaT,
	).Rows()
	if err != nil {
		return nil, fmt.Errorf("querying postings: %w", err)
	}
	defer rows.Close()

	var postings []models.Posting
	skipped := 0
	for rows.Next() {
		var songID uint32
		var rawAnchor any
		if err := rows.Scan(&songID, &rawAnchor); err != nil {
			return nil, fmt.Errorf("scanning posting: %w", err)
		}
		anchor, err := decodeStoredInt(rawAnchor)
		if err != nil {
			skipped++
			c.log.Warnf("skipping corrupt posting for song %d: %v", songID, err)
			continue
		}
		postings = append(postings, models.Posting{SongID: songID, TAnchor: anchor})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating postings: %w", err)
	}
	if skipped > 0 {
		c.log.Warnf("lookup for %+v skipped %d corrupt postings", key, skipped)
	}
	return postings, nil
}

// decodeStoredInt interprets a value read from an integer column. Proper
// integers pass through; legacy databases stored little-endian blobs,
// which are decoded byte-wise. Anything else is corrupt.
func decodeStoredInt(v any) (int, error) {
	switch x := v.(type) {
	case int64:
		return int(x), nil
	case float64:
		return int(x), nil
	case []byte:
		return decodeLegacyBlob(x), nil
	case string:
		n, err := strconv.Atoi(x)
		if err != nil {
			return 0, fmt.Errorf("non-integral text value %q", x)
		}
		return n, nil
	case nil:
		return 0, errors.New("null value")
	default:
		return 0, fmt.Errorf("unexpected value type %T", v)
	}
}

func decodeLegacyBlob(b []byte) int {
	if len(b) >= 4 {
		return int(int32(binary.LittleEndian.Uint32(b[:4])))
	}
	// shorter blobs accumulate little-endian, matching the old reader
	n := 0
	for i := len(b) - 1; i >= 0; i-- {
		n = n<<8 | int(b[i])
	}
	return n
}

// CountSongs and CountFingerprints back the stats surface.
func (c *Client) CountSongs() (int64, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errClientNil)
	}
	var n int64
	if err := c.DB.Model(&Song{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting songs: %w", err)
	}
	return n, nil
}

func (c *Client) CountFingerprints() (int64, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errClientNil)
	}
	var n int64
	if err := c.DB.Model(&Fingerprint{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting fingerprints: %w", err)
	}
	return n, nil
}

func (c *Client) CountSongFingerprints(songID uint32) (int64, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errClientNil)
	}
	var n int64
	if err := c.DB.Model(&Fingerprint{}).Where("song_id = ?", songID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting fingerprints for song %d: %w", songID, err)
	}
	return n, nil
}
