package engine

import (
	"math"

	"github.com/noah-isme/peerinvest-api/internal/models"
)

// InterestRates is the return rate paid per invested token for each tier.
type InterestRates map[models.Tier]float64

// DefaultInterestRates pays 20%, 10% and 5% for high, median and low teams.
func DefaultInterestRates() InterestRates {
	return InterestRates{
		models.TierHigh:       0.20,
		models.TierMedian:     0.10,
		models.TierLow:        0.05,
		models.TierIncomplete: 0,
	}
}

// Rate returns the rate for the tier; unknown tiers earn nothing.
func (r InterestRates) Rate(tier models.Tier) float64 {
	return r[tier]
}

// CalculateInterest builds one interest record per investment of the student in the
// assignment. Teams missing from tiers are treated as incomplete.
func CalculateInterest(studentID, assignmentID uint, investments []models.Investment, tiers map[uint]models.Tier, rates InterestRates) ([]models.InterestRecord, float64) {
	records := make([]models.InterestRecord, 0, len(investments))
	var total float64

	for _, investment := range investments {
		if investment.InvestorID != studentID || investment.AssignmentID != assignmentID {
			continue
		}

		tier, ok := tiers[investment.InvestedTeamID]
		if !ok {
			tier = models.TierIncomplete
		}

		earned := RoundCents(float64(investment.Tokens) * rates.Rate(tier))
		records = append(records, models.InterestRecord{
			StudentID:      studentID,
			AssignmentID:   assignmentID,
			InvestedTeamID: investment.InvestedTeamID,
			TokensInvested: investment.Tokens,
			Tier:           tier,
			InterestEarned: earned,
		})
		total += earned
	}

	return records, RoundCents(total)
}

// BonusPolicy converts accumulated interest into a capped bonus fraction.
type BonusPolicy struct {
	Divisor float64
	Cap     float64
}

// DefaultBonusPolicy gives one percent per interest point, capped at 20%.
func DefaultBonusPolicy() BonusPolicy {
	return BonusPolicy{Divisor: 100, Cap: 0.20}
}

// Bonus returns min(total/divisor, cap).
func (p BonusPolicy) Bonus(totalInterest float64) float64 {
	if p.Divisor <= 0 || totalInterest <= 0 {
		return 0
	}
	return math.Min(totalInterest/p.Divisor, p.Cap)
}

// RoundCents rounds to two decimals.
func RoundCents(value float64) float64 {
	return math.Round(value*100) / 100
}
