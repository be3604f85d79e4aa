package hocuspocus

import (
	"github.com/Programmer-5090/hocuspocus/internal/fingerprint"
)

// Config carries every tunable of the pipeline plus the injected
// collaborators. Collaborators left nil are constructed from DBPath and
// TempDir by NewService.
type Config struct {
	DBPath  string
	TempDir string

	SampleRate int

	// spectrogram
	FFTSize   int
	HopLength int
	Window    fingerprint.WindowFunc
	DBFloor   float64

	// peak extraction
	FreqWindow  int
	TimeWindow  int
	ThresholdDB float64

	// fingerprinting
	FanValue           int
	TargetZoneMin      int
	TargetZoneMax      int
	RobustFingerprints bool

	// matching
	MaxQueryDuration float64 // seconds; query signals are truncated to this

	Logger   Logger
	Index    FingerprintIndex
	Catalog  SongCatalog
	Decoder  Decoder
	Recorder Recorder
}

type Option func(*Config)

func WithDBPath(path string) Option      { return func(c *Config) { c.DBPath = path } }
func WithTempDir(dir string) Option      { return func(c *Config) { c.TempDir = dir } }
func WithSampleRate(rate int) Option     { return func(c *Config) { c.SampleRate = rate } }
func WithFFTSize(n int) Option           { return func(c *Config) { c.FFTSize = n } }
func WithHopLength(n int) Option         { return func(c *Config) { c.HopLength = n } }
func WithDBFloor(db float64) Option      { return func(c *Config) { c.DBFloor = db } }
func WithThresholdDB(db float64) Option  { return func(c *Config) { c.ThresholdDB = db } }
func WithFanValue(n int) Option          { return func(c *Config) { c.FanValue = n } }
func WithMaxQueryDuration(s float64) Option { return func(c *Config) { c.MaxQueryDuration = s } }
func WithRobustFingerprints(on bool) Option { return func(c *Config) { c.RobustFingerprints = on } }

func WithWindow(fn fingerprint.WindowFunc) Option { return func(c *Config) { c.Window = fn } }

func WithNeighborhood(freqWin, timeWin int) Option {
	return func(c *Config) {
		c.FreqWindow = freqWin
		c.TimeWindow = timeWin
	}
}

func WithTargetZone(minDelta, maxDelta int) Option {
	return func(c *Config) {
		c.TargetZoneMin = minDelta
		c.TargetZoneMax = maxDelta
	}
}

func WithLogger(log Logger) Option           { return func(c *Config) { c.Logger = log } }
func WithIndex(idx FingerprintIndex) Option  { return func(c *Config) { c.Index = idx } }
func WithCatalog(cat SongCatalog) Option     { return func(c *Config) { c.Catalog = cat } }
func WithDecoder(dec Decoder) Option         { return func(c *Config) { c.Decoder = dec } }
func WithRecorder(rec Recorder) Option       { return func(c *Config) { c.Recorder = rec } }

func defaultConfig() *Config {
	return &Config{
		DBPath:           "hocuspocus.sqlite3",
		TempDir:          "/tmp",
		SampleRate:       22050,
		FFTSize:          fingerprint.DefaultFFTSize,
		HopLength:        fingerprint.DefaultHopLength,
		Window:           fingerprint.Hann,
		DBFloor:          fingerprint.DefaultDBFloor,
		FreqWindow:       fingerprint.DefaultFreqWindow,
		TimeWindow:       fingerprint.DefaultTimeWindow,
		ThresholdDB:      fingerprint.DefaultThresholdDB,
		FanValue:         fingerprint.DefaultFanValue,
		TargetZoneMin:    fingerprint.DefaultMinDelta,
		TargetZoneMax:    fingerprint.DefaultMaxDelta,
		MaxQueryDuration: 30.0,
	}
}
