package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/peerinvest-api/internal/dto"
	"github.com/noah-isme/peerinvest-api/internal/engine"
	"github.com/noah-isme/peerinvest-api/internal/models"
	"github.com/noah-isme/peerinvest-api/internal/observability"
	"github.com/noah-isme/peerinvest-api/internal/repository"
)

// GradingService turns investments into team grades.
type GradingService interface {
	GradeAssignment(ctx context.Context, actor ActivityActor, assignmentID uint) (dto.GradeRunResponse, error)
	ListGrades(ctx context.Context, assignmentID uint, publishedOnly bool) ([]dto.GradeResponse, error)
}

type gradingService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	investments repository.InvestmentRepository
	grades      repository.GradeRepository
	interest    InterestService
	activity    ActivityRecorder
	tier        engine.TierPolicy
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewGradingService constructs the grading aggregator.
func NewGradingService(
	assignments repository.AssignmentRepository,
	submissions repository.SubmissionRepository,
	investments repository.InvestmentRepository,
	grades repository.GradeRepository,
	interest InterestService,
	activity ActivityRecorder,
	policy EnginePolicy,
	logger zerolog.Logger,
) GradingService {
	tier := policy.Tier
	if tier == nil {
		tier = engine.DefaultAbsolutePolicy()
	}
	return &gradingService{
		assignments: assignments,
		submissions: submissions,
		investments: investments,
		grades:      grades,
		interest:    interest,
		activity:    activity,
		tier:        tier,
		logger:      logger.With().Str("component", "grading_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/peerinvest-api/internal/service/grading"),
	}
}

func (s *gradingService) GradeAssignment(ctx context.Context, actor ActivityActor, assignmentID uint) (dto.GradeRunResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grades.compute", trace.WithAttributes(
		attribute.Int("assignment.id", int(assignmentID)),
		attribute.String("tier.policy", s.tier.Name()),
	))
	defer span.End()

	assignment, err := loadAssignment(ctx, s.assignments, assignmentID)
	if err != nil {
		return dto.GradeRunResponse{}, err
	}

	submitted := models.SubmissionStatusSubmitted
	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{
		AssignmentID: &assignment.ID,
		Status:       &submitted,
	})
	if err != nil {
		return dto.GradeRunResponse{}, err
	}

	investments, err := s.investments.ListByAssignment(ctx, assignment.ID)
	if err != nil {
		return dto.GradeRunResponse{}, err
	}

	computed := engine.ComputeGrades(assignment.ID, submissions, investments, s.tier)
	stored, err := s.grades.ReplaceForAssignment(ctx, assignment.ID, computed)
	if err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return dto.GradeRunResponse{}, ErrGradeAlreadyPublished
		}
		span.RecordError(err)
		return dto.GradeRunResponse{}, err
	}

	credited, err := creditInvestors(ctx, s.interest, s.investments, assignment.ID)
	if err != nil {
		span.RecordError(err)
		return dto.GradeRunResponse{}, err
	}

	observability.GradingRunsTotal().WithLabelValues(s.tier.Name()).Inc()
	tierCounts := make(map[string]interface{}, 4)
	for _, grade := range stored {
		observability.GradesByTier().WithLabelValues(string(grade.Tier)).Inc()
		count, _ := tierCounts[string(grade.Tier)].(int)
		tierCounts[string(grade.Tier)] = count + 1
	}

	s.logger.Info().
		Uint("assignment_id", assignment.ID).
		Str("policy", s.tier.Name()).
		Int("grades", len(stored)).
		Int("investors", credited).
		Msg("assignment graded")

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:        actor,
		Action:       ActionGradesComputed,
		AssignmentID: &assignment.ID,
		EntityType:   "assignment",
		EntityID:     &assignment.ID,
		Metadata: map[string]interface{}{
			"policy": s.tier.Name(),
			"grades": len(stored),
			"tiers":  tierCounts,
		},
	})

	return dto.GradeRunResponse{
		AssignmentID:      assignment.ID,
		TierPolicy:        s.tier.Name(),
		Grades:            dto.NewGradeResponses(stored),
		InvestorsCredited: credited,
	}, nil
}

func (s *gradingService) ListGrades(ctx context.Context, assignmentID uint, publishedOnly bool) ([]dto.GradeResponse, error) {
	if _, err := loadAssignment(ctx, s.assignments, assignmentID); err != nil {
		return nil, err
	}

	grades, err := s.grades.ListByAssignment(ctx, assignmentID, publishedOnly)
	if err != nil {
		return nil, err
	}

	return dto.NewGradeResponses(grades), nil
}

// creditInvestors recalculates interest for everyone who invested in the assignment.
func creditInvestors(ctx context.Context, interest InterestService, investments repository.InvestmentRepository, assignmentID uint) (int, error) {
	if interest == nil {
		return 0, nil
	}

	investors, err := investments.ListInvestorIDs(ctx, assignmentID)
	if err != nil {
		return 0, err
	}

	for _, investor := range investors {
		if _, err := interest.CalculateInterest(ctx, investor, assignmentID); err != nil {
			return 0, err
		}
	}

	return len(investors), nil
}
