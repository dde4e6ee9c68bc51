package service

import (
	"context"

	"github.com/noah-isme/peerinvest-api/internal/engine"
	"github.com/noah-isme/peerinvest-api/internal/models"
	"github.com/noah-isme/peerinvest-api/internal/repository"
)

// ResolvedRoster is the engine roster plus the teams it was built from.
type ResolvedRoster struct {
	engine.Roster
	Teams []models.Team
}

// RosterService loads who evaluates and what is evaluated for an assignment.
type RosterService interface {
	Resolve(ctx context.Context, assignment models.Assignment, fallback models.DistributionMode) (ResolvedRoster, error)
}

type rosterService struct {
	enrollments repository.EnrollmentRepository
	teams       repository.TeamRepository
	submissions repository.SubmissionRepository
}

// NewRosterService constructs the roster resolver.
func NewRosterService(enrollments repository.EnrollmentRepository, teams repository.TeamRepository, submissions repository.SubmissionRepository) RosterService {
	return &rosterService{enrollments: enrollments, teams: teams, submissions: submissions}
}

func (s *rosterService) Resolve(ctx context.Context, assignment models.Assignment, fallback models.DistributionMode) (ResolvedRoster, error) {
	mode := assignment.DistributionMode
	if mode == "" {
		mode = fallback
	}

	students, err := s.enrollments.ListStudentIDs(ctx, assignment.CourseID)
	if err != nil {
		return ResolvedRoster{}, err
	}

	teams, err := s.teams.ListByCourse(ctx, assignment.CourseID)
	if err != nil {
		return ResolvedRoster{}, err
	}

	submitted := models.SubmissionStatusSubmitted
	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{
		AssignmentID: &assignment.ID,
		Status:       &submitted,
	})
	if err != nil {
		return ResolvedRoster{}, err
	}

	roster, err := engine.ResolveRoster(mode, students, teams, submissions)
	if err != nil {
		return ResolvedRoster{}, err
	}

	return ResolvedRoster{Roster: roster, Teams: teams}, nil
}

// recipientsFor expands evaluators into the students behind them.
func (r ResolvedRoster) recipientsFor(evaluators []models.Evaluator) []uint {
	members := make(map[uint][]uint, len(r.Teams))
	for _, team := range r.Teams {
		members[team.ID] = team.MemberIDs()
	}

	var recipients []uint
	for _, evaluator := range evaluators {
		if evaluator.IsTeam() {
			recipients = append(recipients, members[evaluator.ID]...)
			continue
		}
		recipients = append(recipients, evaluator.ID)
	}
	return recipients
}
