// Package engine holds the evaluation distribution and investment grading rules.
// Every function here is a pure computation over model snapshots; persistence,
// locking and transactions live in the service and repository layers.
package engine

import "errors"

var (
	// ErrInsufficientData indicates there are not enough teams or evaluators to distribute.
	ErrInsufficientData = errors.New("insufficient data for distribution")
	// ErrSelfEvaluationDetected indicates a generated batch assigned a team to itself.
	ErrSelfEvaluationDetected = errors.New("self evaluation detected")
	// ErrTokensOutOfRange indicates a complete investment outside the token bounds.
	ErrTokensOutOfRange = errors.New("token amount out of range")
	// ErrCommentRequired indicates an incomplete flag without an explanation.
	ErrCommentRequired = errors.New("comment is required when flagging incomplete")
	// ErrNotAssigned indicates the investor was not asked to evaluate the team.
	ErrNotAssigned = errors.New("team is not assigned to this evaluator")
	// ErrCapExceeded indicates the investor already used all investment slots.
	ErrCapExceeded = errors.New("investment cap exceeded")
	// ErrBudgetExceeded indicates the investment would overspend the token budget.
	ErrBudgetExceeded = errors.New("token budget exceeded")
	// ErrDuplicateInvestment indicates the investor already funded the team.
	ErrDuplicateInvestment = errors.New("team already invested in")
	// ErrWindowClosed indicates the evaluation window is over.
	ErrWindowClosed = errors.New("evaluation window closed")
)
