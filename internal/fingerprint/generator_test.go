package fingerprint

import (
	"math/rand"
	"testing"

	"github.com/Programmer-5090/hocuspocus/pkg/models"
)

func TestGenerateTargetZone(t *testing.T) {
	gen := NewGenerator(5, 1, 20)

	peaks := []models.Peak{
		{TimeIdx: 0, FreqIdx: 10},
		{TimeIdx: 3, FreqIdx: 20},
		{TimeIdx: 25, FreqIdx: 30},
	}

	fps := gen.Generate(peaks)

	// (0,10)->(3,20) has delta 3, inside the zone. (0,10)->(25,30) and
	// (3,20)->(25,30) fall outside maxDelta and are skipped.
	if len(fps) != 1 {
		t.Fatalf("Expected 1 fingerprint, got %d", len(fps))
	}
	want := models.Fingerprint{
		Hash:    models.HashKey{FAnchor: 10, FTarget: 20, DeltaT: 3},
		TAnchor: 0,
	}
	if fps[0] != want {
		t.Errorf("Expected %+v, got %+v", want, fps[0])
	}
}

func TestGenerateOrderInvariant(t *testing.T) {
	gen := NewGenerator(5, 1, 20)

	var peaks []models.Peak
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		peaks = append(peaks, models.Peak{TimeIdx: rng.Intn(200), FreqIdx: rng.Intn(512)})
	}

	base := gen.Generate(peaks)

	shuffled := make([]models.Peak, len(peaks))
	copy(shuffled, peaks)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	again := gen.Generate(shuffled)

	count := func(fps []models.Fingerprint) map[models.Fingerprint]int {
		m := make(map[models.Fingerprint]int)
		for _, fp := range fps {
			m[fp]++
		}
		return m
	}

	baseCounts, againCounts := count(base), count(again)
	if len(baseCounts) != len(againCounts) {
		t.Fatalf("Fingerprint sets differ after shuffle: %d vs %d distinct", len(baseCounts), len(againCounts))
	}
	for fp, n := range baseCounts {
		if againCounts[fp] != n {
			t.Errorf("Fingerprint %+v: count %d before shuffle, %d after", fp, n, againCounts[fp])
		}
	}
}

func TestGenerateBounds(t *testing.T) {
	gen := NewGenerator(5, 1, 20)

	var peaks []models.Peak
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		peaks = append(peaks, models.Peak{TimeIdx: rng.Intn(300), FreqIdx: rng.Intn(1025)})
	}

	fps := gen.Generate(peaks)

	if len(fps) > len(peaks)*gen.FanValue {
		t.Errorf("Fingerprint count %d exceeds peaks*fan %d", len(fps), len(peaks)*gen.FanValue)
	}
	for _, fp := range fps {
		if fp.Hash.DeltaT < gen.MinDelta || fp.Hash.DeltaT > gen.MaxDelta {
			t.Errorf("DeltaT %d outside zone [%d, %d]", fp.Hash.DeltaT, gen.MinDelta, gen.MaxDelta)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	gen := NewGenerator(0, 0, 0)

	peaks := []models.Peak{
		{TimeIdx: 0, FreqIdx: 100},
		{TimeIdx: 5, FreqIdx: 200},
		{TimeIdx: 9, FreqIdx: 150},
		{TimeIdx: 14, FreqIdx: 300},
	}

	first := gen.Generate(peaks)
	second := gen.Generate(peaks)

	if len(first) != len(second) {
		t.Fatalf("Non-deterministic output: %d vs %d fingerprints", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Fingerprint %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestGenerateEmpty(t *testing.T) {
	gen := NewGenerator(5, 1, 20)

	if fps := gen.Generate(nil); fps != nil {
		t.Errorf("Expected nil for empty peaks, got %v", fps)
	}
	if fps := gen.Generate([]models.Peak{{TimeIdx: 0, FreqIdx: 10}}); len(fps) != 0 {
		t.Errorf("Expected no fingerprints for a single peak, got %d", len(fps))
	}
}

func TestGenerateRobustDeduplicates(t *testing.T) {
	gen := NewGenerator(5, 1, 20)

	var peaks []models.Peak
	rng := rand.New(rand.NewSource(99))
	for i := 0; i < 60; i++ {
		peaks = append(peaks, models.Peak{TimeIdx: rng.Intn(150), FreqIdx: rng.Intn(512)})
	}

	fps := gen.GenerateRobust(peaks)

	seen := make(map[models.HashKey]bool)
	for _, fp := range fps {
		if seen[fp.Hash] {
			t.Fatalf("Duplicate hash %+v in robust output", fp.Hash)
		}
		seen[fp.Hash] = true
	}

	// Standard-pass hashes survive the dedup
	standard := gen.Generate(peaks)
	for _, fp := range standard {
		if !seen[fp.Hash] {
			t.Errorf("Standard-pass hash %+v missing from robust output", fp.Hash)
		}
	}
}
