package service

import (
	"fmt"
	"time"

	"github.com/noah-isme/peerinvest-api/internal/config"
	"github.com/noah-isme/peerinvest-api/internal/engine"
	"github.com/noah-isme/peerinvest-api/internal/models"
)

// EnginePolicy bundles the tunable rules the services hand to the engine.
type EnginePolicy struct {
	Ledger               engine.LedgerPolicy
	Tier                 engine.TierPolicy
	Rates                engine.InterestRates
	Bonus                engine.BonusPolicy
	Mode                 models.DistributionMode
	ReviewsPerEvaluator  int
	DistributionAttempts int
	EvaluationWindow     time.Duration
}

// DefaultEnginePolicy mirrors the configuration defaults.
func DefaultEnginePolicy() EnginePolicy {
	return EnginePolicy{
		Ledger:               engine.DefaultLedgerPolicy(),
		Tier:                 engine.DefaultAbsolutePolicy(),
		Rates:                engine.DefaultInterestRates(),
		Bonus:                engine.DefaultBonusPolicy(),
		Mode:                 models.DistributionModeStudent,
		ReviewsPerEvaluator:  3,
		DistributionAttempts: 3,
		EvaluationWindow:     7 * 24 * time.Hour,
	}
}

// NewEnginePolicy builds the policy from configuration.
func NewEnginePolicy(cfg config.EngineConfig) (EnginePolicy, error) {
	tier, err := engine.ParseTierPolicy(cfg.TierPolicy, engine.AbsolutePolicy{
		HighThreshold:   cfg.HighThreshold,
		MedianThreshold: cfg.MedianThreshold,
	})
	if err != nil {
		return EnginePolicy{}, err
	}

	mode := models.DistributionMode(cfg.DistributionMode)
	if mode != models.DistributionModeStudent && mode != models.DistributionModeTeam {
		return EnginePolicy{}, fmt.Errorf("unknown distribution mode %q", cfg.DistributionMode)
	}

	return EnginePolicy{
		Ledger: engine.LedgerPolicy{
			MinTokens:      cfg.MinTokens,
			MaxTokens:      cfg.MaxTokens,
			Budget:         cfg.TokenBudget,
			MaxInvestments: cfg.MaxInvestments,
		},
		Tier:                 tier,
		Rates:                engine.DefaultInterestRates(),
		Bonus:                engine.BonusPolicy{Divisor: cfg.InterestDivisor, Cap: cfg.InterestBonusCap},
		Mode:                 mode,
		ReviewsPerEvaluator:  cfg.ReviewsPerEvaluator,
		DistributionAttempts: cfg.DistributionAttempts,
		EvaluationWindow:     cfg.EvaluationWindow,
	}, nil
}
