package engine

import (
	"fmt"
	"sort"

	"github.com/noah-isme/peerinvest-api/internal/models"
)

// Candidate is an evaluable submission owned by a team.
type Candidate struct {
	TeamID       uint
	SubmissionID uint
}

// Roster is the resolved input of a distribution run.
type Roster struct {
	Mode       models.DistributionMode
	Evaluators []models.Evaluator
	Candidates []Candidate

	teamOfStudent map[uint]uint
}

// TeamOf returns the team the evaluator reviews on behalf of. The second value is
// false for students without a team.
func (r Roster) TeamOf(evaluator models.Evaluator) (uint, bool) {
	if evaluator.IsTeam() {
		return evaluator.ID, true
	}
	teamID, ok := r.teamOfStudent[evaluator.ID]
	return teamID, ok
}

// ResolveRoster builds the evaluator list and the one-per-team candidate list for an
// assignment. Only submitted submissions are evaluable; when a team has more than one,
// the latest submission wins.
func ResolveRoster(mode models.DistributionMode, studentIDs []uint, teams []models.Team, submissions []models.Submission) (Roster, error) {
	roster := Roster{
		Mode:          mode,
		teamOfStudent: make(map[uint]uint),
	}

	teamIDs := make(map[uint]struct{}, len(teams))
	for _, team := range teams {
		teamIDs[team.ID] = struct{}{}
		for _, member := range team.Members {
			roster.teamOfStudent[member.StudentID] = team.ID
		}
	}

	latest := make(map[uint]models.Submission)
	for _, submission := range submissions {
		if !submission.IsSubmitted() {
			continue
		}
		if _, known := teamIDs[submission.TeamID]; !known && len(teamIDs) > 0 {
			continue
		}
		current, seen := latest[submission.TeamID]
		if !seen || submittedAfter(submission, current) {
			latest[submission.TeamID] = submission
		}
	}

	for teamID, submission := range latest {
		roster.Candidates = append(roster.Candidates, Candidate{TeamID: teamID, SubmissionID: submission.ID})
	}
	sort.Slice(roster.Candidates, func(i, j int) bool {
		return roster.Candidates[i].TeamID < roster.Candidates[j].TeamID
	})

	switch mode {
	case models.DistributionModeTeam:
		for _, team := range teams {
			roster.Evaluators = append(roster.Evaluators, models.TeamEvaluator(team.ID))
		}
	case models.DistributionModeStudent:
		seen := make(map[uint]struct{}, len(studentIDs))
		for _, id := range studentIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			roster.Evaluators = append(roster.Evaluators, models.StudentEvaluator(id))
		}
	default:
		return Roster{}, fmt.Errorf("unknown distribution mode %q", mode)
	}

	if len(roster.Candidates) < 2 {
		return Roster{}, fmt.Errorf("%w: %d submitting teams", ErrInsufficientData, len(roster.Candidates))
	}
	if len(roster.Evaluators) == 0 {
		return Roster{}, fmt.Errorf("%w: no evaluators", ErrInsufficientData)
	}

	return roster, nil
}

func submittedAfter(a, b models.Submission) bool {
	switch {
	case a.SubmittedAt == nil:
		return false
	case b.SubmittedAt == nil:
		return true
	case a.SubmittedAt.Equal(*b.SubmittedAt):
		return a.ID > b.ID
	default:
		return a.SubmittedAt.After(*b.SubmittedAt)
	}
}
