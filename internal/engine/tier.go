package engine

import (
	"fmt"
	"strings"

	"github.com/noah-isme/peerinvest-api/internal/models"
)

// Tier policy names accepted by ParseTierPolicy.
const (
	TierPolicyAbsolute = "absolute"
	TierPolicyRelative = "relative"
)

// TierPolicy maps team scores to tiers. Assign receives scores ordered by descending
// trimmed mean and returns one tier per score, index aligned.
type TierPolicy interface {
	Name() string
	Assign(scores []TeamScore) []models.Tier
}

// AbsolutePolicy tiers each team against fixed investment thresholds.
type AbsolutePolicy struct {
	HighThreshold   float64
	MedianThreshold float64
}

// DefaultAbsolutePolicy uses 40 tokens for high and 25 tokens for median.
func DefaultAbsolutePolicy() AbsolutePolicy {
	return AbsolutePolicy{HighThreshold: 40, MedianThreshold: 25}
}

func (p AbsolutePolicy) Name() string { return TierPolicyAbsolute }

func (p AbsolutePolicy) Assign(scores []TeamScore) []models.Tier {
	tiers := make([]models.Tier, len(scores))
	for i, score := range scores {
		tiers[i] = p.TierFor(score)
	}
	return tiers
}

// TierFor tiers a single score.
func (p AbsolutePolicy) TierFor(score TeamScore) models.Tier {
	switch {
	case score.Incomplete:
		return models.TierIncomplete
	case score.TrimmedMean >= p.HighThreshold:
		return models.TierHigh
	case score.TrimmedMean >= p.MedianThreshold:
		return models.TierMedian
	default:
		return models.TierLow
	}
}

// RelativePolicy tiers teams by thirds of the cohort ranking. Incomplete teams are
// left out of the ranking and teams with equal means share the better tier.
type RelativePolicy struct{}

func (RelativePolicy) Name() string { return TierPolicyRelative }

func (RelativePolicy) Assign(scores []TeamScore) []models.Tier {
	tiers := make([]models.Tier, len(scores))

	ranked := 0
	for _, score := range scores {
		if !score.Incomplete {
			ranked++
		}
	}

	position := 0
	var previous *TeamScore
	var previousTier models.Tier
	for i := range scores {
		score := scores[i]
		if score.Incomplete {
			tiers[i] = models.TierIncomplete
			continue
		}

		tier := thirdOf(position, ranked)
		if previous != nil && previous.TrimmedMean == score.TrimmedMean {
			tier = previousTier
		}
		tiers[i] = tier

		previous = &scores[i]
		previousTier = tier
		position++
	}

	return tiers
}

func thirdOf(position, total int) models.Tier {
	// position/total < 1/3 and < 2/3 without floating point.
	switch {
	case 3*position < total:
		return models.TierHigh
	case 3*position < 2*total:
		return models.TierMedian
	default:
		return models.TierLow
	}
}

// ParseTierPolicy selects a policy by configuration name.
func ParseTierPolicy(name string, absolute AbsolutePolicy) (TierPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", TierPolicyAbsolute:
		return absolute, nil
	case TierPolicyRelative:
		return RelativePolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown tier policy %q", name)
	}
}
