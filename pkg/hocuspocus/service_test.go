package hocuspocus

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
)

const (
	testSampleRate = 22050
	segmentSamples = 2048
)

// toneBurstSong synthesizes a song as a sequence of constant-frequency
// tone bursts. Distinct frequency patterns give distinct constellations.
func toneBurstSong(segments int, freqOf func(i int) float64) []float64 {
	signal := make([]float64, segments*segmentSamples)
	for seg := 0; seg < segments; seg++ {
		freq := freqOf(seg)
		for i := 0; i < segmentSamples; i++ {
			n := seg*segmentSamples + i
			signal[n] = 0.8 * math.Sin(2*math.Pi*freq*float64(n)/float64(testSampleRate))
		}
	}
	return signal
}

func songASignal() []float64 {
	return toneBurstSong(40, func(i int) float64 { return 800 + 150*float64((i*7)%13) })
}

func songBSignal() []float64 {
	return toneBurstSong(40, func(i int) float64 { return 950 + 175*float64((i*5)%11) })
}

// fakeDecoder serves canned signals keyed by file basename.
type fakeDecoder struct {
	signals map[string][]float64
}

func (d *fakeDecoder) Decode(ctx context.Context, path string, targetRate int) ([]float64, int, error) {
	if sig, ok := d.signals[filepath.Base(path)]; ok {
		return sig, testSampleRate, nil
	}
	return nil, 0, os.ErrNotExist
}

func newTestService(t *testing.T, dec *fakeDecoder) Service {
	t.Helper()
	svc, err := NewService(
		WithDBPath(filepath.Join(t.TempDir(), "test.sqlite3")),
		WithDecoder(dec),
	)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestAddAndIdentify(t *testing.T) {
	songA := songASignal()
	dec := &fakeDecoder{signals: map[string][]float64{
		"song_a.wav": songA,
		"song_b.wav": songBSignal(),
	}}
	svc := newTestService(t, dec)
	ctx := context.Background()

	idA, err := svc.AddSong(ctx, "song_a.wav", "Song A", "Tester")
	if err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}
	if _, err := svc.AddSong(ctx, "song_b.wav", "Song B", "Tester"); err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}

	// Query with a clip from the interior of song A. The clip starts on a
	// hop boundary, so its frames align with frames of the full song.
	clipStart := 10 * segmentSamples
	clip := songA[clipStart : 30*segmentSamples]

	result, err := svc.IdentifySignal(ctx, clip, testSampleRate)
	if err != nil {
		t.Fatalf("IdentifySignal failed: %v", err)
	}

	if !result.Matched {
		t.Fatal("Expected the clip to match")
	}
	if result.Song == nil || result.Song.ID != idA {
		t.Fatalf("Expected song %d to match, got %+v", idA, result.Song)
	}
	if result.Song.Title != "Song A" {
		t.Errorf("Expected title Song A, got %q", result.Song.Title)
	}

	wantOffset := clipStart / 512
	if result.OffsetFrames < wantOffset-1 || result.OffsetFrames > wantOffset+1 {
		t.Errorf("Expected offset near %d frames, got %d", wantOffset, result.OffsetFrames)
	}
	wantSeconds := float64(result.OffsetFrames) * 512.0 / float64(testSampleRate)
	if math.Abs(result.OffsetSeconds-wantSeconds) > 1e-9 {
		t.Errorf("Expected offset %f seconds, got %f", wantSeconds, result.OffsetSeconds)
	}
	if result.BestScore <= 0 || result.QueryFingerprints <= 0 {
		t.Errorf("Expected positive score and query fingerprints, got %d and %d", result.BestScore, result.QueryFingerprints)
	}
}

func TestIdentifySilenceNoMatch(t *testing.T) {
	dec := &fakeDecoder{signals: map[string][]float64{
		"song_a.wav": songASignal(),
	}}
	svc := newTestService(t, dec)
	ctx := context.Background()

	if _, err := svc.AddSong(ctx, "song_a.wav", "Song A", "Tester"); err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}

	silence := make([]float64, 8*segmentSamples)
	result, err := svc.IdentifySignal(ctx, silence, testSampleRate)
	if err != nil {
		t.Fatalf("IdentifySignal failed: %v", err)
	}

	if result.Matched {
		t.Error("Silence should not match")
	}
	if result.QueryFingerprints != 0 {
		t.Errorf("Silence should produce no fingerprints, got %d", result.QueryFingerprints)
	}
}

func TestIdentifyQueryTruncation(t *testing.T) {
	songA := songASignal()
	dec := &fakeDecoder{signals: map[string][]float64{
		"song_a.wav": songA,
	}}

	svc, err := NewService(
		WithDBPath(filepath.Join(t.TempDir(), "test.sqlite3")),
		WithDecoder(dec),
		WithMaxQueryDuration(1.0),
	)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	defer svc.Close()
	ctx := context.Background()

	if _, err := svc.AddSong(ctx, "song_a.wav", "Song A", "Tester"); err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}

	// The query is truncated to one second before analysis, so only the
	// opening of the song can contribute votes and the offset stays 0.
	result, err := svc.IdentifySignal(ctx, songA, testSampleRate)
	if err != nil {
		t.Fatalf("IdentifySignal failed: %v", err)
	}
	if !result.Matched {
		t.Fatal("Expected truncated query to match")
	}
	if result.OffsetFrames < -1 || result.OffsetFrames > 1 {
		t.Errorf("Expected offset near 0 for a clip from the start, got %d", result.OffsetFrames)
	}
}

func TestStatsAndDelete(t *testing.T) {
	dec := &fakeDecoder{signals: map[string][]float64{
		"song_a.wav": songASignal(),
		"song_b.wav": songBSignal(),
	}}
	svc := newTestService(t, dec)
	ctx := context.Background()

	idA, err := svc.AddSong(ctx, "song_a.wav", "Song A", "Tester")
	if err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}
	if _, err := svc.AddSong(ctx, "song_b.wav", "Song B", "Tester"); err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}

	stats, err := svc.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalSongs != 2 {
		t.Errorf("Expected 2 songs, got %d", stats.TotalSongs)
	}
	if stats.TotalFingerprints == 0 {
		t.Error("Expected stored fingerprints")
	}
	before := stats.TotalFingerprints

	if err := svc.DeleteSong(idA); err != nil {
		t.Fatalf("DeleteSong failed: %v", err)
	}

	stats, err = svc.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalSongs != 1 {
		t.Errorf("Expected 1 song after delete, got %d", stats.TotalSongs)
	}
	if stats.TotalFingerprints >= before {
		t.Errorf("Expected fingerprint count to drop from %d, got %d", before, stats.TotalFingerprints)
	}

	if _, err := svc.GetSong(idA); err == nil {
		t.Error("Deleted song should not be retrievable")
	}
}

func TestAddSongFolder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"song_a.wav", "song_b.mp3", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("stub"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0755); err != nil {
		t.Fatal(err)
	}

	dec := &fakeDecoder{signals: map[string][]float64{
		"song_a.wav": songASignal(),
		"song_b.mp3": songBSignal(),
	}}
	svc := newTestService(t, dec)

	added, err := svc.AddSongFolder(context.Background(), dir)
	if err != nil {
		t.Fatalf("AddSongFolder failed: %v", err)
	}
	if len(added) != 2 {
		t.Fatalf("Expected 2 songs added, got %d", len(added))
	}

	songs, err := svc.ListSongs()
	if err != nil {
		t.Fatalf("ListSongs failed: %v", err)
	}
	titles := map[string]bool{}
	for _, s := range songs {
		titles[s.Title] = true
	}
	if !titles["song_a"] || !titles["song_b"] {
		t.Errorf("Expected filename-derived titles, got %v", titles)
	}
}

func TestAddSongFolderCancelled(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"song_a.wav", "song_b.wav"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("stub"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	dec := &fakeDecoder{signals: map[string][]float64{
		"song_a.wav": songASignal(),
		"song_b.wav": songBSignal(),
	}}
	svc := newTestService(t, dec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	added, err := svc.AddSongFolder(ctx, dir)
	if err == nil {
		t.Fatal("Expected context error")
	}
	if len(added) != 0 {
		t.Errorf("Expected no songs committed after immediate cancel, got %d", len(added))
	}
}
