package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/peerinvest-api/internal/models"
)

func invest(investor, teamID uint, tokens int) models.Investment {
	return models.Investment{AssignmentID: 1, InvestorID: investor, InvestedTeamID: teamID, Tokens: tokens}
}

func TestTrimmedMeanDropsOneHighAndOneLow(t *testing.T) {
	require.InDelta(t, 30.0, TrimmedMean([]int{10, 50, 20, 30, 40}), 1e-9)
	require.InDelta(t, 30.0, TrimmedMean([]int{10, 50}), 1e-9, "two values are not trimmed")
	require.InDelta(t, 25.0, TrimmedMean([]int{25}), 1e-9)
	require.InDelta(t, 20.0, TrimmedMean([]int{10, 20, 50}), 1e-9)
	require.InDelta(t, 40.0, TrimmedMean([]int{40, 40, 40, 40}), 1e-9)
	require.Zero(t, TrimmedMean(nil))
}

func TestComputeGradesAbsolutePolicy(t *testing.T) {
	submissions := []models.Submission{submitted(1, 1), submitted(2, 2), submitted(3, 3), submitted(4, 4)}
	investments := []models.Investment{
		invest(10, 1, 10), invest(11, 1, 50), invest(12, 1, 20), invest(13, 1, 30), invest(14, 1, 40),
		invest(10, 2, 45), invest(11, 2, 50),
		invest(12, 3, 10), invest(13, 3, 20),
	}

	grades := ComputeGrades(1, submissions, investments, DefaultAbsolutePolicy())
	require.Len(t, grades, 4)

	require.Equal(t, uint(2), grades[0].TeamID)
	require.Equal(t, models.TierHigh, grades[0].Tier)
	require.Equal(t, 100.0, grades[0].Percentage)

	require.Equal(t, uint(1), grades[1].TeamID)
	require.InDelta(t, 30.0, grades[1].TrimmedMean, 1e-9)
	require.Equal(t, models.TierMedian, grades[1].Tier)
	require.Equal(t, 80.0, grades[1].Percentage)
	require.Equal(t, 5, grades[1].InvestmentCount)

	require.Equal(t, uint(3), grades[2].TeamID)
	require.Equal(t, models.TierLow, grades[2].Tier)
	require.Equal(t, 60.0, grades[2].Percentage)

	require.Equal(t, uint(4), grades[3].TeamID)
	require.Equal(t, models.TierIncomplete, grades[3].Tier, "no investments")
	require.Zero(t, grades[3].Percentage)

	for _, grade := range grades {
		require.Equal(t, models.GradeStatusDraft, grade.Status)
	}
}

func TestComputeGradesDegenerateTrim(t *testing.T) {
	grades := ComputeGrades(1, []models.Submission{submitted(1, 1), submitted(2, 2)}, []models.Investment{invest(10, 1, 10), invest(11, 1, 50)}, DefaultAbsolutePolicy())
	require.InDelta(t, 30.0, grades[0].TrimmedMean, 1e-9)
	require.Equal(t, models.TierMedian, grades[0].Tier)
	require.Equal(t, 80.0, grades[0].Percentage)
}

func TestComputeGradesIncompletePoisonsTeam(t *testing.T) {
	flagged := invest(12, 1, 0)
	flagged.Incomplete = true

	grades := ComputeGrades(1, []models.Submission{submitted(1, 1), submitted(2, 2)}, []models.Investment{invest(10, 1, 40), invest(11, 1, 45), flagged}, DefaultAbsolutePolicy())

	var poisoned models.Grade
	for _, grade := range grades {
		if grade.TeamID == 1 {
			poisoned = grade
		}
	}
	require.Equal(t, models.TierIncomplete, poisoned.Tier)
	require.Zero(t, poisoned.Percentage)
	require.Zero(t, poisoned.TrimmedMean)
	require.Equal(t, 2, poisoned.InvestmentCount)
}

func TestComputeGradesIgnoresDraftSubmissions(t *testing.T) {
	draft := models.Submission{ID: 3, AssignmentID: 1, TeamID: 3, Status: models.SubmissionStatusDraft}
	grades := ComputeGrades(1, []models.Submission{submitted(1, 1), submitted(2, 2), draft}, nil, DefaultAbsolutePolicy())
	require.Len(t, grades, 2)
}

func TestComputeGradesIsDeterministic(t *testing.T) {
	submissions := []models.Submission{submitted(1, 1), submitted(2, 2), submitted(3, 3)}
	investments := []models.Investment{invest(10, 1, 30), invest(11, 2, 30), invest(12, 3, 45), invest(13, 1, 20)}

	first := ComputeGrades(1, submissions, investments, DefaultAbsolutePolicy())
	second := ComputeGrades(1, submissions, investments, DefaultAbsolutePolicy())
	require.Equal(t, first, second)
}

func TestRelativePolicyTiersByThirds(t *testing.T) {
	scores := []TeamScore{
		{TeamID: 1, TrimmedMean: 45},
		{TeamID: 2, TrimmedMean: 40},
		{TeamID: 3, TrimmedMean: 30},
		{TeamID: 4, TrimmedMean: 30},
		{TeamID: 5, TrimmedMean: 20},
		{TeamID: 6, TrimmedMean: 12},
		{TeamID: 7, Incomplete: true},
	}

	tiers := RelativePolicy{}.Assign(scores)
	require.Equal(t, []models.Tier{
		models.TierHigh, models.TierHigh,
		models.TierMedian, models.TierMedian,
		models.TierLow, models.TierLow,
		models.TierIncomplete,
	}, tiers)
}

func TestRelativePolicyTiesShareBetterTier(t *testing.T) {
	scores := []TeamScore{{TeamID: 1, TrimmedMean: 30}, {TeamID: 2, TrimmedMean: 30}, {TeamID: 3, TrimmedMean: 10}}
	tiers := RelativePolicy{}.Assign(scores)
	require.Equal(t, []models.Tier{models.TierHigh, models.TierHigh, models.TierLow}, tiers)
}

func TestParseTierPolicy(t *testing.T) {
	policy, err := ParseTierPolicy("", DefaultAbsolutePolicy())
	require.NoError(t, err)
	require.Equal(t, TierPolicyAbsolute, policy.Name())

	policy, err = ParseTierPolicy(" Relative ", DefaultAbsolutePolicy())
	require.NoError(t, err)
	require.Equal(t, TierPolicyRelative, policy.Name())

	_, err = ParseTierPolicy("curve", DefaultAbsolutePolicy())
	require.Error(t, err)
}
