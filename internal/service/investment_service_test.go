package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/peerinvest-api/internal/dto"
	"github.com/noah-isme/peerinvest-api/internal/engine"
	"github.com/noah-isme/peerinvest-api/internal/models"
)

func distributed(t *testing.T, teams int, mode models.DistributionMode) *harness {
	t.Helper()
	h := newHarness(t, teams, mode)
	_, err := h.distribution.Distribute(context.Background(), h.teacher, h.assignment.ID)
	require.NoError(t, err)
	return h
}

func TestInvestmentServiceRecordsAssignedInvestment(t *testing.T) {
	h := distributed(t, 3, models.DistributionModeStudent)
	ctx := context.Background()
	student := h.member(0, 0)

	assigned, err := h.investments.ListAssigned(ctx, student, h.assignment.ID)
	require.NoError(t, err)
	require.Len(t, assigned, 2)

	investment, err := h.investments.Record(ctx, student, h.assignment.ID, dto.InvestmentRequest{
		TeamID:  assigned[0].EvaluatedTeamID,
		Tokens:  35,
		Comment: "<b>solid</b> work",
	})
	require.NoError(t, err)
	require.Equal(t, 35, investment.Tokens)
	require.Equal(t, "solid work", investment.Comment)

	ledger, err := h.investments.Ledger(ctx, student, h.assignment.ID)
	require.NoError(t, err)
	require.Equal(t, 35, ledger.TokensSpent)
	require.Equal(t, 65, ledger.TokensRemaining)
	require.Equal(t, 2, ledger.InvestmentsLeft)

	assigned, err = h.investments.ListAssigned(ctx, student, h.assignment.ID)
	require.NoError(t, err)
	completed := 0
	for _, row := range assigned {
		if row.Status == models.EvaluationStatusCompleted {
			completed++
			require.NotNil(t, row.CompletedAt)
		}
	}
	require.Equal(t, 1, completed)
}

func TestInvestmentServiceRejectsLedgerViolations(t *testing.T) {
	h := distributed(t, 3, models.DistributionModeStudent)
	ctx := context.Background()
	student := h.member(0, 0)
	ownTeam := h.teams[0].ID
	other := h.teams[1].ID

	_, err := h.investments.Record(ctx, student, h.assignment.ID, dto.InvestmentRequest{TeamID: other, Tokens: 5})
	require.ErrorIs(t, err, engine.ErrTokensOutOfRange)

	_, err = h.investments.Record(ctx, student, h.assignment.ID, dto.InvestmentRequest{TeamID: other, Incomplete: true, Comment: "<p> </p>"})
	require.ErrorIs(t, err, engine.ErrCommentRequired)

	_, err = h.investments.Record(ctx, student, h.assignment.ID, dto.InvestmentRequest{TeamID: ownTeam, Tokens: 20})
	require.ErrorIs(t, err, engine.ErrNotAssigned)

	incomplete, err := h.investments.Record(ctx, student, h.assignment.ID, dto.InvestmentRequest{TeamID: other, Tokens: 40, Incomplete: true, Comment: "no demo"})
	require.NoError(t, err)
	require.Zero(t, incomplete.Tokens)

	_, err = h.investments.Record(ctx, student, h.assignment.ID, dto.InvestmentRequest{TeamID: other, Tokens: 20})
	require.ErrorIs(t, err, engine.ErrDuplicateInvestment)

	_, err = h.investments.Record(ctx, student, 9999, dto.InvestmentRequest{TeamID: other, Tokens: 20})
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestInvestmentServiceWindowClosed(t *testing.T) {
	h := distributed(t, 3, models.DistributionModeStudent)
	ctx := context.Background()
	student := h.member(0, 0)

	past := time.Now().Add(-time.Minute)
	require.NoError(t, h.db.Model(&models.Assignment{}).Where("id = ?", h.assignment.ID).Update("evaluation_due_at", past).Error)

	_, err := h.investments.Record(ctx, student, h.assignment.ID, dto.InvestmentRequest{TeamID: h.teams[1].ID, Tokens: 20})
	require.ErrorIs(t, err, engine.ErrWindowClosed)
}

func TestInvestmentServiceClosedPhaseRejects(t *testing.T) {
	h := distributed(t, 3, models.DistributionModeStudent)
	ctx := context.Background()

	_, err := h.distribution.CloseEvaluation(ctx, h.teacher, h.assignment.ID)
	require.NoError(t, err)

	_, err = h.investments.Record(ctx, h.member(0, 0), h.assignment.ID, dto.InvestmentRequest{TeamID: h.teams[1].ID, Tokens: 20})
	require.ErrorIs(t, err, engine.ErrWindowClosed)
}

func TestInvestmentServiceConcurrentOverspend(t *testing.T) {
	h := distributed(t, 4, models.DistributionModeStudent)
	ctx := context.Background()
	student := h.member(0, 0)

	assigned, err := h.investments.ListAssigned(ctx, student, h.assignment.ID)
	require.NoError(t, err)
	require.Len(t, assigned, 3)

	var wg sync.WaitGroup
	errs := make(chan error, len(assigned))
	for _, row := range assigned {
		wg.Add(1)
		go func(teamID uint) {
			defer wg.Done()
			_, err := h.investments.Record(ctx, student, h.assignment.ID, dto.InvestmentRequest{TeamID: teamID, Tokens: 50})
			errs <- err
		}(row.EvaluatedTeamID)
	}
	wg.Wait()
	close(errs)

	succeeded, overBudget := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case assertBudget(err):
			overBudget++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 2, succeeded)
	require.Equal(t, 1, overBudget)

	ledger, err := h.investments.Ledger(ctx, student, h.assignment.ID)
	require.NoError(t, err)
	require.Equal(t, 100, ledger.TokensSpent)
	require.Zero(t, ledger.TokensRemaining)
}

func assertBudget(err error) bool {
	return investmentOutcome(err) == "budget_exceeded"
}

func TestInvestmentServiceTeamModeUsesInvestorTeam(t *testing.T) {
	h := distributed(t, 3, models.DistributionModeTeam)
	ctx := context.Background()
	first, second := h.member(0, 0), h.member(0, 1)

	assigned, err := h.investments.ListAssigned(ctx, first, h.assignment.ID)
	require.NoError(t, err)
	require.Len(t, assigned, 2)
	require.Equal(t, models.EvaluatorKindTeam, assigned[0].EvaluatorKind)

	_, err = h.investments.Record(ctx, first, h.assignment.ID, dto.InvestmentRequest{TeamID: assigned[0].EvaluatedTeamID, Tokens: 30})
	require.NoError(t, err)

	_, err = h.investments.Record(ctx, second, h.assignment.ID, dto.InvestmentRequest{TeamID: assigned[0].EvaluatedTeamID, Tokens: 30})
	require.NoError(t, err, "each member keeps an individual ledger")
}

func TestInvestmentServiceIncompleteIgnoresTokenSign(t *testing.T) {
	h := distributed(t, 3, models.DistributionModeStudent)
	ctx := context.Background()
	student := h.member(0, 0)

	assigned, err := h.investments.ListAssigned(ctx, student, h.assignment.ID)
	require.NoError(t, err)
	require.NotEmpty(t, assigned)

	investment, err := h.investments.Record(ctx, student, h.assignment.ID, dto.InvestmentRequest{
		TeamID:     assigned[0].EvaluatedTeamID,
		Tokens:     -5,
		Incomplete: true,
		Comment:    "no demo provided",
	})
	require.NoError(t, err)
	require.Zero(t, investment.Tokens)
	require.True(t, investment.Incomplete)
}

func TestInvestmentServiceCapsInvestmentsPerAssignment(t *testing.T) {
	h := newHarness(t, 6, models.DistributionModeStudent)
	ctx := context.Background()
	require.NoError(t, h.db.Model(&models.Assignment{}).Where("id = ?", h.assignment.ID).Update("reviews_per_evaluator", 5).Error)

	_, err := h.distribution.Distribute(ctx, h.teacher, h.assignment.ID)
	require.NoError(t, err)

	student := h.member(0, 0)
	assigned, err := h.investments.ListAssigned(ctx, student, h.assignment.ID)
	require.NoError(t, err)
	require.Len(t, assigned, 5)

	for _, row := range assigned[:3] {
		_, err := h.investments.Record(ctx, student, h.assignment.ID, dto.InvestmentRequest{TeamID: row.EvaluatedTeamID, Tokens: 10})
		require.NoError(t, err)
	}

	_, err = h.investments.Record(ctx, student, h.assignment.ID, dto.InvestmentRequest{TeamID: assigned[3].EvaluatedTeamID, Tokens: 10})
	require.ErrorIs(t, err, engine.ErrCapExceeded)

	ledger, err := h.investments.Ledger(ctx, student, h.assignment.ID)
	require.NoError(t, err)
	require.Equal(t, 30, ledger.TokensSpent)
	require.Zero(t, ledger.InvestmentsLeft)
}
