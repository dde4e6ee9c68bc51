package engine

import (
	"fmt"
	"strings"
	"time"
)

// LedgerPolicy bounds what a single investor may allocate in one assignment.
type LedgerPolicy struct {
	MinTokens      int
	MaxTokens      int
	Budget         int
	MaxInvestments int
}

// DefaultLedgerPolicy is the classroom policy: 10-50 tokens per team, 100 tokens and
// three teams per assignment.
func DefaultLedgerPolicy() LedgerPolicy {
	return LedgerPolicy{MinTokens: 10, MaxTokens: 50, Budget: 100, MaxInvestments: 3}
}

// LedgerState is what the store knows about the investor at the time of the write.
type LedgerState struct {
	Assigned        bool
	PriorCount      int
	PriorTokens     int
	AlreadyInvested bool
	PhaseClosed     bool
	EvaluationDueAt *time.Time
}

// NormalizeTokens applies the first validation rule. Incomplete investments carry
// zero tokens and must explain themselves.
func (p LedgerPolicy) NormalizeTokens(tokens int, incomplete bool, comment string) (int, error) {
	if incomplete {
		if strings.TrimSpace(comment) == "" {
			return 0, ErrCommentRequired
		}
		return 0, nil
	}
	if tokens < p.MinTokens || tokens > p.MaxTokens {
		return 0, fmt.Errorf("%w: %d not within [%d, %d]", ErrTokensOutOfRange, tokens, p.MinTokens, p.MaxTokens)
	}
	return tokens, nil
}

// Check applies the remaining rules in order against the stored state. tokens must
// already be normalized.
func (p LedgerPolicy) Check(state LedgerState, tokens int, now time.Time) error {
	if !state.Assigned {
		return ErrNotAssigned
	}
	if state.PriorCount >= p.MaxInvestments {
		return fmt.Errorf("%w: %d of %d used", ErrCapExceeded, state.PriorCount, p.MaxInvestments)
	}
	if state.PriorTokens+tokens > p.Budget {
		return fmt.Errorf("%w: %d remaining", ErrBudgetExceeded, p.Remaining(state.PriorTokens))
	}
	if state.AlreadyInvested {
		return ErrDuplicateInvestment
	}
	if state.PhaseClosed {
		return ErrWindowClosed
	}
	if state.EvaluationDueAt != nil && now.After(*state.EvaluationDueAt) {
		return ErrWindowClosed
	}
	return nil
}

// Validate runs the whole rule chain and returns the tokens to record.
func (p LedgerPolicy) Validate(tokens int, incomplete bool, comment string, state LedgerState, now time.Time) (int, error) {
	normalized, err := p.NormalizeTokens(tokens, incomplete, comment)
	if err != nil {
		return 0, err
	}
	if err := p.Check(state, normalized, now); err != nil {
		return 0, err
	}
	return normalized, nil
}

// Remaining returns the unspent budget given what was already invested.
func (p LedgerPolicy) Remaining(spent int) int {
	if spent >= p.Budget {
		return 0
	}
	return p.Budget - spent
}
