package fingerprint

import (
	"sort"

	"github.com/Programmer-5090/hocuspocus/pkg/models"
)

// Defaults for fingerprint generation.
const (
	DefaultFanValue = 5
	DefaultMinDelta = 1
	DefaultMaxDelta = 20

	// widening applied to the target zone by the robust second pass
	robustExtraDelta = 5
)

// Generator derives combinatorial hashes from peak pairs. For each anchor
// peak it considers the next FanValue peaks in time-sorted order and emits
// a (fAnchor, fTarget, deltaT) hash for every pair whose frame delta falls
// inside the target zone. Out-of-zone candidates still consume a fan slot,
// which bounds the work to O(peaks * FanValue).
type Generator struct {
	FanValue int
	MinDelta int
	MaxDelta int
}

func NewGenerator(fanValue, minDelta, maxDelta int) *Generator {
	if fanValue == 0 {
		fanValue = DefaultFanValue
	}
	if minDelta == 0 {
		minDelta = DefaultMinDelta
	}
	if maxDelta == 0 {
		maxDelta = DefaultMaxDelta
	}
	return &Generator{FanValue: fanValue, MinDelta: minDelta, MaxDelta: maxDelta}
}

// Generate produces fingerprints from a peak set. The input order does not
// matter: peaks are stably sorted by frame index first.
func (g *Generator) Generate(peaks []models.Peak) []models.Fingerprint {
	return g.generate(peaks, g.FanValue, g.MaxDelta)
}

func (g *Generator) generate(peaks []models.Peak, fanValue, maxDelta int) []models.Fingerprint {
	if len(peaks) == 0 {
		return nil
	}

	sorted := make([]models.Peak, len(peaks))
	copy(sorted, peaks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TimeIdx < sorted[j].TimeIdx })

	var fps []models.Fingerprint
	for i, anchor := range sorted {
		for j := i + 1; j <= i+fanValue && j < len(sorted); j++ {
			target := sorted[j]
			deltaT := target.TimeIdx - anchor.TimeIdx
			if deltaT < g.MinDelta || deltaT > maxDelta {
				continue
			}
			fps = append(fps, models.Fingerprint{
				Hash:    models.HashKey{FAnchor: anchor.FreqIdx, FTarget: target.FreqIdx, DeltaT: deltaT},
				TAnchor: anchor.TimeIdx,
			})
		}
	}
	return fps
}

// GenerateRobust runs the standard pass plus a second pass with halved
// fan-out and a widened upper delta bound, then drops exact-duplicate
// hashes keeping the first occurrence. More storage and compute for more
// resilience to peak-detection noise.
func (g *Generator) GenerateRobust(peaks []models.Peak) []models.Fingerprint {
	if len(peaks) == 0 {
		return nil
	}

	fps := g.Generate(peaks)

	reducedFan := g.FanValue / 2
	if reducedFan < 2 {
		reducedFan = 2
	}
	fps = append(fps, g.generate(peaks, reducedFan, g.MaxDelta+robustExtraDelta)...)

	seen := make(map[models.HashKey]struct{}, len(fps))
	unique := fps[:0]
	for _, fp := range fps {
		if _, ok := seen[fp.Hash]; ok {
			continue
		}
		seen[fp.Hash] = struct{}{}
		unique = append(unique, fp)
	}
	return unique
}
