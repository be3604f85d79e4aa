package fingerprint

import (
	"testing"

	"github.com/Programmer-5090/hocuspocus/pkg/models"
)

func uniformSpec(bins, frames int, value float64) [][]float64 {
	m := make([][]float64, bins)
	for f := range m {
		m[f] = make([]float64, frames)
		for t := range m[f] {
			m[f][t] = value
		}
	}
	return m
}

func TestFindPeaksSingleMaximum(t *testing.T) {
	spec := uniformSpec(5, 5, -60)
	spec[2][2] = -20

	peaks := FindPeaks(spec, 3, 3, -50)

	if len(peaks) != 1 {
		t.Fatalf("Expected 1 peak, got %d", len(peaks))
	}
	want := models.Peak{TimeIdx: 2, FreqIdx: 2}
	if peaks[0] != want {
		t.Errorf("Expected peak %+v, got %+v", want, peaks[0])
	}
}

func TestFindPeaksThresholdStrict(t *testing.T) {
	// A local maximum sitting exactly at the threshold is rejected
	spec := uniformSpec(5, 5, -60)
	spec[2][2] = -50

	peaks := FindPeaks(spec, 3, 3, -50)
	if len(peaks) != 0 {
		t.Errorf("Expected no peaks at exact threshold, got %d", len(peaks))
	}

	spec[2][2] = -49.999
	peaks = FindPeaks(spec, 3, 3, -50)
	if len(peaks) != 1 {
		t.Errorf("Expected 1 peak just above threshold, got %d", len(peaks))
	}
}

func TestFindPeaksPlateau(t *testing.T) {
	// Two adjacent cells share the neighborhood maximum; both are peaks
	spec := uniformSpec(5, 5, -60)
	spec[2][1] = -20
	spec[2][2] = -20

	peaks := FindPeaks(spec, 3, 3, -50)

	if len(peaks) != 2 {
		t.Fatalf("Expected 2 plateau peaks, got %d", len(peaks))
	}
	found := map[models.Peak]bool{}
	for _, p := range peaks {
		found[p] = true
	}
	if !found[(models.Peak{TimeIdx: 1, FreqIdx: 2})] || !found[(models.Peak{TimeIdx: 2, FreqIdx: 2})] {
		t.Errorf("Expected plateau cells (t=1,f=2) and (t=2,f=2), got %+v", peaks)
	}
}

func TestFindPeaksBelowThresholdMax(t *testing.T) {
	spec := uniformSpec(8, 8, -70)
	spec[4][4] = -55

	peaks := FindPeaks(spec, 3, 3, -50)
	if len(peaks) != 0 {
		t.Errorf("Expected no peaks when maximum is below threshold, got %d", len(peaks))
	}
}

func TestFindPeaksEmptyInput(t *testing.T) {
	if peaks := FindPeaks(nil, 3, 3, -50); peaks != nil {
		t.Errorf("Expected nil for empty spectrogram, got %v", peaks)
	}
	if peaks := FindPeaks([][]float64{}, 3, 3, -50); peaks != nil {
		t.Errorf("Expected nil for empty spectrogram, got %v", peaks)
	}
}

func TestFindPeaksWindowLargerThanMatrix(t *testing.T) {
	// Window dimensions clamp to the matrix, leaving a single global window
	spec := uniformSpec(4, 4, -60)
	spec[1][3] = -10

	peaks := FindPeaks(spec, 100, 100, -50)

	if len(peaks) != 1 {
		t.Fatalf("Expected 1 peak with clamped window, got %d", len(peaks))
	}
	want := models.Peak{TimeIdx: 3, FreqIdx: 1}
	if peaks[0] != want {
		t.Errorf("Expected peak %+v, got %+v", want, peaks[0])
	}
}
