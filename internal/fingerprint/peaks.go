package fingerprint

import (
	"github.com/Programmer-5090/hocuspocus/pkg/models"
)

// Defaults for peak extraction.
const (
	DefaultFreqWindow  = 20
	DefaultTimeWindow  = 20
	DefaultThresholdDB = -50.0
)

// FindPeaks extracts constellation points from a frequency-major dB
// spectrogram: cells that equal the maximum of their freqWin x timeWin
// neighborhood and strictly exceed thresholdDB. Plateaus of equal value
// are all reported. The result is in freq-major scan order; generation
// re-sorts by time, so the order carries no meaning downstream.
func FindPeaks(spec [][]float64, freqWin, timeWin int, thresholdDB float64) []models.Peak {
	if len(spec) == 0 || len(spec[0]) == 0 {
		return nil
	}
	if freqWin <= 0 {
		freqWin = DefaultFreqWindow
	}
	if timeWin <= 0 {
		timeWin = DefaultTimeWindow
	}

	numBins := len(spec)
	numFrames := len(spec[0])
	if freqWin > numBins {
		freqWin = numBins
	}
	if timeWin > numFrames {
		timeWin = numFrames
	}

	filtered := maximumFilter(spec, freqWin, timeWin)

	var peaks []models.Peak
	for f := 0; f < numBins; f++ {
		for t := 0; t < numFrames; t++ {
			v := spec[f][t]
			if v == filtered[f][t] && v > thresholdDB {
				peaks = append(peaks, models.Peak{TimeIdx: t, FreqIdx: f})
			}
		}
	}
	return peaks
}

// maximumFilter computes the sliding rectangular maximum of m with
// edge-value padding so the output has the same shape as the input. The
// window is centered as closely as integer padding allows: a cell (f, t)
// maps to the valid window starting at (clamp(f-(fw-1)/2), clamp(t-(tw-1)/2)).
func maximumFilter(m [][]float64, freqWin, timeWin int) [][]float64 {
	numBins := len(m)
	numFrames := len(m[0])
	validBins := numBins - freqWin + 1
	validFrames := numFrames - timeWin + 1

	// pass 1: max over a timeWin-wide horizontal window, valid positions only
	rowMax := make([][]float64, numBins)
	for f := 0; f < numBins; f++ {
		rowMax[f] = make([]float64, validFrames)
		for t := 0; t < validFrames; t++ {
			best := m[f][t]
			for k := 1; k < timeWin; k++ {
				if v := m[f][t+k]; v > best {
					best = v
				}
			}
			rowMax[f][t] = best
		}
	}

	// pass 2: max over a freqWin-tall vertical window of the row maxima
	valid := make([][]float64, validBins)
	for f := 0; f < validBins; f++ {
		valid[f] = make([]float64, validFrames)
		for t := 0; t < validFrames; t++ {
			best := rowMax[f][t]
			for k := 1; k < freqWin; k++ {
				if v := rowMax[f+k][t]; v > best {
					best = v
				}
			}
			valid[f][t] = best
		}
	}

	freqPad := (freqWin - 1) / 2
	timePad := (timeWin - 1) / 2

	out := make([][]float64, numBins)
	for f := 0; f < numBins; f++ {
		out[f] = make([]float64, numFrames)
		vf := clampInt(f-freqPad, 0, validBins-1)
		for t := 0; t < numFrames; t++ {
			vt := clampInt(t-timePad, 0, validFrames-1)
			out[f][t] = valid[vf][vt]
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
