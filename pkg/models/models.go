package models

// HashKey is the combinatorial hash derived from an anchor/target peak
// pair: the two frequency bin indices plus the frame delta between them.
// It is the exact-match key of the fingerprint index.
type HashKey struct {
	FAnchor int
	FTarget int
	DeltaT  int
}

// Peak is a constellation point: a local spectral maximum identified by
// its frame index and frequency bin index.
type Peak struct {
	TimeIdx int
	FreqIdx int
}

// Fingerprint pairs a hash key with the anchor's frame index.
type Fingerprint struct {
	Hash    HashKey
	TAnchor int
}

// Posting is a stored index entry for a hash: which song it came from and
// the anchor frame inside that song.
type Posting struct {
	SongID  uint32
	TAnchor int
}

// Spectrogram is a frequency-major magnitude matrix in decibels plus its
// axis metadata. DB[freqBin][frame] holds the clamped dB magnitude,
// Freqs the bin-center frequencies in Hz and Times the frame times in
// seconds.
type Spectrogram struct {
	DB    [][]float64
	Freqs []float64
	Times []float64
}

// Vote identifies one alignment hypothesis during matching: a candidate
// song and the frame offset (dbAnchor - queryAnchor) that aligns the
// query with it.
type Vote struct {
	SongID uint32
	Offset int
}

// MatchOutcome is the raw matcher result before song metadata is attached.
// When Matched is false only Votes is meaningful (and may be empty).
type MatchOutcome struct {
	Matched      bool
	SongID       uint32
	Offset       int
	BestScore    int
	TotalMatches int
	Confidence   float64
	Votes        map[Vote]int
}

// Song is a catalog entry. Duration is in seconds.
type Song struct {
	ID        uint32
	Title     string
	Artist    string
	SourceRef string
	Duration  float64
}

// MatchResult is the service-level identification result: the matcher
// outcome enriched with song metadata and query statistics.
type MatchResult struct {
	Matched           bool
	Song              *Song
	OffsetFrames      int
	OffsetSeconds     float64
	BestScore         int
	TotalMatches      int
	Confidence        float64
	QueryFingerprints int
}
