package engine

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"

	"github.com/noah-isme/peerinvest-api/internal/models"
)

// Pair is a single generated review: the evaluator reviews the team's submission.
type Pair struct {
	Evaluator    models.Evaluator
	TeamID       uint
	SubmissionID uint
}

// Distribution is the outcome of one distribution run.
type Distribution struct {
	Pairs []Pair
	// Skipped lists evaluators whose candidate pool was empty.
	Skipped []models.Evaluator
}

// Distributor draws a uniform random sample of other teams for every evaluator.
// A Distributor is not safe for concurrent use.
type Distributor struct {
	rng *rand.Rand
}

// NewDistributor returns a distributor driven by the given source.
func NewDistributor(source rand.Source) *Distributor {
	return &Distributor{rng: rand.New(source)}
}

// NewSeededDistributor returns a distributor with a reproducible PCG stream.
func NewSeededDistributor(seed uint64) *Distributor {
	return NewDistributor(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewSeed draws a seed from crypto/rand.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// Distribute assigns each evaluator up to k submissions of teams other than its own.
// The batch is verified before it is returned; a self evaluation rejects it entirely.
func (d *Distributor) Distribute(roster Roster, k int) (Distribution, error) {
	if k <= 0 {
		return Distribution{}, fmt.Errorf("reviews per evaluator must be positive, got %d", k)
	}

	var result Distribution
	for _, evaluator := range roster.Evaluators {
		ownTeam, hasTeam := roster.TeamOf(evaluator)

		pool := make([]Candidate, 0, len(roster.Candidates))
		for _, candidate := range roster.Candidates {
			if hasTeam && candidate.TeamID == ownTeam {
				continue
			}
			pool = append(pool, candidate)
		}

		if len(pool) == 0 {
			result.Skipped = append(result.Skipped, evaluator)
			continue
		}

		d.rng.Shuffle(len(pool), func(i, j int) {
			pool[i], pool[j] = pool[j], pool[i]
		})

		for _, candidate := range pool[:min(k, len(pool))] {
			result.Pairs = append(result.Pairs, Pair{
				Evaluator:    evaluator,
				TeamID:       candidate.TeamID,
				SubmissionID: candidate.SubmissionID,
			})
		}
	}

	if err := VerifyDistribution(roster, result.Pairs); err != nil {
		return Distribution{}, err
	}

	return result, nil
}

// VerifyDistribution fails when any pair reviews the evaluator's own team or when a
// pair repeats.
func VerifyDistribution(roster Roster, pairs []Pair) error {
	type key struct {
		evaluator models.Evaluator
		team      uint
	}
	seen := make(map[key]struct{}, len(pairs))

	for _, pair := range pairs {
		if ownTeam, ok := roster.TeamOf(pair.Evaluator); ok && ownTeam == pair.TeamID {
			return fmt.Errorf("%w: %s reviews team %d", ErrSelfEvaluationDetected, pair.Evaluator, pair.TeamID)
		}
		k := key{evaluator: pair.Evaluator, team: pair.TeamID}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("duplicate evaluation pair %s -> team %d", pair.Evaluator, pair.TeamID)
		}
		seen[k] = struct{}{}
	}

	return nil
}
