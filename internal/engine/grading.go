package engine

import (
	"sort"

	"github.com/noah-isme/peerinvest-api/internal/models"
)

// TeamScore is the aggregated investment signal of one team before tiering.
type TeamScore struct {
	TeamID          uint
	SubmissionID    uint
	TrimmedMean     float64
	// InvestmentCount counts qualifying investments; incomplete flags are excluded.
	InvestmentCount int
	Incomplete      bool
}

// TrimmedMean averages the amounts after dropping one minimum and one maximum.
// Samples of two or fewer values are averaged untrimmed.
func TrimmedMean(amounts []int) float64 {
	if len(amounts) == 0 {
		return 0
	}

	sorted := append([]int(nil), amounts...)
	sort.Ints(sorted)
	if len(sorted) > 2 {
		sorted = sorted[1 : len(sorted)-1]
	}

	total := 0
	for _, amount := range sorted {
		total += amount
	}
	return float64(total) / float64(len(sorted))
}

// ScoreTeams aggregates the investments of every submitted team. A team with no
// investments, or with any investment flagged incomplete, is marked incomplete.
func ScoreTeams(submissions []models.Submission, investments []models.Investment) []TeamScore {
	byTeam := make(map[uint][]models.Investment)
	for _, investment := range investments {
		byTeam[investment.InvestedTeamID] = append(byTeam[investment.InvestedTeamID], investment)
	}

	scores := make([]TeamScore, 0, len(submissions))
	seen := make(map[uint]struct{}, len(submissions))
	for _, submission := range submissions {
		if !submission.IsSubmitted() {
			continue
		}
		if _, dup := seen[submission.TeamID]; dup {
			continue
		}
		seen[submission.TeamID] = struct{}{}

		received := byTeam[submission.TeamID]
		score := TeamScore{
			TeamID:       submission.TeamID,
			SubmissionID: submission.ID,
			Incomplete:   len(received) == 0,
		}

		amounts := make([]int, 0, len(received))
		for _, investment := range received {
			if investment.Incomplete {
				score.Incomplete = true
				continue
			}
			amounts = append(amounts, investment.Tokens)
		}
		score.InvestmentCount = len(amounts)

		if !score.Incomplete {
			score.TrimmedMean = TrimmedMean(amounts)
		}
		scores = append(scores, score)
	}

	return scores
}

// ComputeGrades scores and tiers every submitted team of an assignment. The result is
// ordered by descending trimmed mean, ties by team id, and starts as draft.
func ComputeGrades(assignmentID uint, submissions []models.Submission, investments []models.Investment, policy TierPolicy) []models.Grade {
	scores := ScoreTeams(submissions, investments)
	sortScores(scores)
	tiers := policy.Assign(scores)

	grades := make([]models.Grade, 0, len(scores))
	for i, score := range scores {
		tier := tiers[i]
		grades = append(grades, models.Grade{
			AssignmentID:    assignmentID,
			TeamID:          score.TeamID,
			SubmissionID:    score.SubmissionID,
			TrimmedMean:     score.TrimmedMean,
			Tier:            tier,
			Percentage:      tier.Percentage(),
			InvestmentCount: score.InvestmentCount,
			Status:          models.GradeStatusDraft,
		})
	}

	return grades
}

func sortScores(scores []TeamScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].TrimmedMean != scores[j].TrimmedMean {
			return scores[i].TrimmedMean > scores[j].TrimmedMean
		}
		return scores[i].TeamID < scores[j].TeamID
	})
}
