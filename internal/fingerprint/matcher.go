package fingerprint

import (
	"fmt"

	"github.com/Programmer-5090/hocuspocus/pkg/models"
)

// HashLookup is the slice of the fingerprint index the matcher needs:
// exact-match retrieval of postings for one hash key.
type HashLookup interface {
	LookupHash(key models.HashKey) ([]models.Posting, error)
}

// Logger is the minimal logging surface consumed by the matcher.
type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

// Matcher identifies a query fingerprint set against an index using
// time-offset voting. It holds no per-query state; Identify may be called
// concurrently.
type Matcher struct {
	index HashLookup
	log   Logger
}

func NewMatcher(index HashLookup, log Logger) *Matcher {
	return &Matcher{index: index, log: log}
}

// Identify looks up every query fingerprint, votes per (song, offset)
// alignment, and selects the best-scoring candidate. An empty query or an
// empty vote map yields a no-match outcome, not an error. Index lookup
// failures abort the query.
func (m *Matcher) Identify(query []models.Fingerprint) (*models.MatchOutcome, error) {
	votes := make(map[models.Vote]int)

	if len(query) == 0 {
		return &models.MatchOutcome{Votes: votes}, nil
	}

	for _, fp := range query {
		postings, err := m.index.LookupHash(fp.Hash)
		if err != nil {
			return nil, fmt.Errorf("index lookup for hash %+v: %w", fp.Hash, err)
		}
		for _, p := range postings {
			votes[models.Vote{SongID: p.SongID, Offset: p.TAnchor - fp.TAnchor}]++
		}
	}

	if len(votes) == 0 {
		m.log.Debugf("no candidate alignments for %d query fingerprints", len(query))
		return &models.MatchOutcome{Votes: votes}, nil
	}

	winner, bestScore := selectWinner(votes)

	totalMatches := 0
	for v, count := range votes {
		if v.SongID == winner.SongID {
			totalMatches += count
		}
	}

	return &models.MatchOutcome{
		Matched:      true,
		SongID:       winner.SongID,
		Offset:       winner.Offset,
		BestScore:    bestScore,
		TotalMatches: totalMatches,
		Confidence:   float64(bestScore) / float64(len(votes)),
		Votes:        votes,
	}, nil
}

// selectWinner picks the (song, offset) pair with the highest vote count.
// Ties break to the lowest song ID, then the lowest offset, so the result
// never depends on map iteration order.
func selectWinner(votes map[models.Vote]int) (models.Vote, int) {
	var winner models.Vote
	best := -1
	for v, count := range votes {
		switch {
		case count > best:
			winner, best = v, count
		case count == best:
			if v.SongID < winner.SongID ||
				(v.SongID == winner.SongID && v.Offset < winner.Offset) {
				winner = v
			}
		}
	}
	return winner, best
}
