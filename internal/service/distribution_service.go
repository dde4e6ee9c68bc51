package service

import (
	"context"
	"errors"
	"fmt"
	"time"

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

// PairDistributor draws evaluation pairs from a roster.
type PairDistributor interface {
	Distribute(roster engine.Roster, k int) (engine.Distribution, error)
}

// DistributorFactory builds a distributor for one attempt.
type DistributorFactory func(seed uint64) PairDistributor

// DistributionService opens and closes evaluation phases.
type DistributionService interface {
	Distribute(ctx context.Context, actor ActivityActor, assignmentID uint) (dto.DistributionResponse, error)
	CloseEvaluation(ctx context.Context, actor ActivityActor, assignmentID uint) (dto.CloseEvaluationResponse, error)
	ListEvaluations(ctx context.Context, assignmentID uint) ([]dto.EvaluationAssignmentResponse, error)
	// CloseExpired closes every phase whose evaluation due date has passed and returns
	// how many were closed.
	CloseExpired(ctx context.Context) (int, error)
}

// SystemActor attributes automatic phase transitions in the activity log.
var SystemActor = ActivityActor{Role: "system"}

// DistributionOption customises the distribution service.
type DistributionOption func(*distributionService)

// WithDistributorFactory replaces the seeded PCG distributor.
func WithDistributorFactory(factory DistributorFactory) DistributionOption {
	return func(s *distributionService) { s.newDistributor = factory }
}

// WithSeedSource replaces the crypto/rand seed source.
func WithSeedSource(seeds func() (uint64, error)) DistributionOption {
	return func(s *distributionService) { s.seeds = seeds }
}

// WithDistributionClock overrides the clock.
func WithDistributionClock(now func() time.Time) DistributionOption {
	return func(s *distributionService) { s.now = now }
}

type distributionService struct {
	assignments    repository.AssignmentRepository
	evaluations    repository.EvaluationRepository
	rosters        RosterService
	activity       ActivityRecorder
	notifier       Notifier
	policy         EnginePolicy
	newDistributor DistributorFactory
	seeds          func() (uint64, error)
	now            func() time.Time
	logger         zerolog.Logger
	tracer         trace.Tracer
}

// NewDistributionService constructs the distribution service. notifier may be nil.
func NewDistributionService(
	assignments repository.AssignmentRepository,
	evaluations repository.EvaluationRepository,
	rosters RosterService,
	activity ActivityRecorder,
	notifier Notifier,
	policy EnginePolicy,
	logger zerolog.Logger,
	opts ...DistributionOption,
) DistributionService {
	svc := &distributionService{
		assignments: assignments,
		evaluations: evaluations,
		rosters:     rosters,
		activity:    activity,
		notifier:    notifier,
		policy:      policy,
		newDistributor: func(seed uint64) PairDistributor {
			return engine.NewSeededDistributor(seed)
		},
		seeds:  engine.NewSeed,
		now:    time.Now,
		logger: logger.With().Str("component", "distribution_service").Logger(),
		tracer: otel.Tracer("github.com/noah-isme/peerinvest-api/internal/service/distribution"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *distributionService) Distribute(ctx context.Context, actor ActivityActor, assignmentID uint) (dto.DistributionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "evaluations.distribute", trace.WithAttributes(
		attribute.Int("assignment.id", int(assignmentID)),
	))
	defer span.End()

	assignment, err := loadAssignment(ctx, s.assignments, assignmentID)
	if err != nil {
		return dto.DistributionResponse{}, err
	}
	if assignment.EvaluationActive {
		observability.DistributionsTotal().WithLabelValues("phase_active").Inc()
		return dto.DistributionResponse{}, ErrEvaluationPhaseActive
	}

	roster, err := s.rosters.Resolve(ctx, assignment, s.policy.Mode)
	if err != nil {
		observability.DistributionsTotal().WithLabelValues("insufficient_data").Inc()
		return dto.DistributionResponse{}, err
	}

	k := assignment.ReviewsPerEvaluator
	if k <= 0 {
		k = s.policy.ReviewsPerEvaluator
	}

	distribution, attempts, err := s.draw(roster.Roster, k)
	if err != nil {
		span.RecordError(err)
		observability.DistributionsTotal().WithLabelValues("rejected").Inc()
		return dto.DistributionResponse{}, err
	}
	for _, skipped := range distribution.Skipped {
		s.logger.Warn().Uint("assignment_id", assignmentID).Str("evaluator", skipped.String()).Msg("evaluator has no eligible submissions")
	}

	startsAt := s.now()
	var dueAt *time.Time
	if s.policy.EvaluationWindow > 0 {
		due := startsAt.Add(s.policy.EvaluationWindow)
		dueAt = &due
	}

	rows := make([]models.EvaluationAssignment, 0, len(distribution.Pairs))
	for _, pair := range distribution.Pairs {
		rows = append(rows, models.EvaluationAssignment{
			AssignmentID:    assignment.ID,
			EvaluatorKind:   pair.Evaluator.Kind,
			EvaluatorID:     pair.Evaluator.ID,
			EvaluatedTeamID: pair.TeamID,
			SubmissionID:    pair.SubmissionID,
			Status:          models.EvaluationStatusAssigned,
			DueAt:           dueAt,
		})
	}

	if err := s.evaluations.ReplaceForAssignment(ctx, assignment, rows, startsAt, dueAt); err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			observability.DistributionsTotal().WithLabelValues("phase_active").Inc()
			return dto.DistributionResponse{}, ErrEvaluationPhaseActive
		}
		span.RecordError(err)
		return dto.DistributionResponse{}, err
	}

	observability.DistributionsTotal().WithLabelValues("ok").Inc()
	observability.DistributionPairs().Observe(float64(len(rows)))
	s.logger.Info().
		Uint("assignment_id", assignment.ID).
		Str("mode", string(roster.Mode)).
		Int("pairs", len(rows)).
		Int("attempts", attempts).
		Msg("evaluation distributed")

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:        actor,
		Action:       ActionEvaluationDistributed,
		AssignmentID: &assignment.ID,
		EntityType:   "assignment",
		EntityID:     &assignment.ID,
		Metadata: map[string]interface{}{
			"mode":     string(roster.Mode),
			"pairs":    len(rows),
			"skipped":  len(distribution.Skipped),
			"attempts": attempts,
		},
	})

	s.notifyEvaluators(ctx, assignment, roster, distribution)

	return dto.DistributionResponse{
		AssignmentID:        assignment.ID,
		Mode:                roster.Mode,
		ReviewsPerEvaluator: k,
		EvaluatorCount:      len(roster.Evaluators),
		SubmissionCount:     len(roster.Candidates),
		PairCount:           len(rows),
		Attempts:            attempts,
		SkippedEvaluators:   append([]models.Evaluator{}, distribution.Skipped...),
		EvaluationDueAt:     dueAt,
		Assignments:         dto.NewEvaluationAssignmentResponses(rows, s.now()),
	}, nil
}

// draw retries with a fresh seed whenever a batch fails verification.
func (s *distributionService) draw(roster engine.Roster, k int) (engine.Distribution, int, error) {
	attempts := max(s.policy.DistributionAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		seed, err := s.seeds()
		if err != nil {
			return engine.Distribution{}, attempt, err
		}

		distribution, err := s.newDistributor(seed).Distribute(roster, k)
		if err == nil {
			return distribution, attempt, nil
		}
		if !errors.Is(err, engine.ErrSelfEvaluationDetected) {
			return engine.Distribution{}, attempt, err
		}

		lastErr = err
		s.logger.Warn().Err(err).Int("attempt", attempt).Uint64("seed", seed).Msg("distribution rejected, retrying")
	}

	return engine.Distribution{}, attempts, fmt.Errorf("distribution failed after %d attempts: %w", attempts, lastErr)
}

func (s *distributionService) notifyEvaluators(ctx context.Context, assignment models.Assignment, roster ResolvedRoster, distribution engine.Distribution) {
	if s.notifier == nil || len(distribution.Pairs) == 0 {
		return
	}

	seen := make(map[models.Evaluator]struct{})
	evaluators := make([]models.Evaluator, 0, len(roster.Evaluators))
	for _, pair := range distribution.Pairs {
		if _, ok := seen[pair.Evaluator]; ok {
			continue
		}
		seen[pair.Evaluator] = struct{}{}
		evaluators = append(evaluators, pair.Evaluator)
	}

	notice := Notice{
		Type:       NotificationEvaluationAssigned,
		Message:    fmt.Sprintf("Peer evaluation for %s is open. Review your assigned teams and invest your tokens.", assignment.Title),
		Recipients: roster.recipientsFor(evaluators),
	}
	if err := s.notifier.Notify(ctx, notice); err != nil {
		s.logger.Warn().Err(err).Uint("assignment_id", assignment.ID).Msg("failed to notify evaluators")
	}
}

func (s *distributionService) CloseEvaluation(ctx context.Context, actor ActivityActor, assignmentID uint) (dto.CloseEvaluationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "evaluations.close", trace.WithAttributes(
		attribute.Int("assignment.id", int(assignmentID)),
	))
	defer span.End()

	assignment, err := loadAssignment(ctx, s.assignments, assignmentID)
	if err != nil {
		return dto.CloseEvaluationResponse{}, err
	}
	if !assignment.EvaluationActive {
		return dto.CloseEvaluationResponse{}, ErrEvaluationPhaseInactive
	}

	missed, err := s.evaluations.CloseAssignment(ctx, assignment)
	if err != nil {
		span.RecordError(err)
		return dto.CloseEvaluationResponse{}, err
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Int64("missed", missed).Msg("evaluation closed")
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:        actor,
		Action:       ActionEvaluationClosed,
		AssignmentID: &assignment.ID,
		EntityType:   "assignment",
		EntityID:     &assignment.ID,
		Metadata:     map[string]interface{}{"missed": missed},
	})

	return dto.CloseEvaluationResponse{AssignmentID: assignment.ID, Missed: missed}, nil
}

func (s *distributionService) CloseExpired(ctx context.Context) (int, error) {
	expired, err := s.assignments.ListExpiredEvaluations(ctx, s.now())
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, assignment := range expired {
		if _, err := s.CloseEvaluation(ctx, SystemActor, assignment.ID); err != nil {
			if errors.Is(err, ErrEvaluationPhaseInactive) {
				continue
			}
			return closed, fmt.Errorf("close assignment %d: %w", assignment.ID, err)
		}
		closed++
	}
	return closed, nil
}

func (s *distributionService) ListEvaluations(ctx context.Context, assignmentID uint) ([]dto.EvaluationAssignmentResponse, error) {
	if _, err := loadAssignment(ctx, s.assignments, assignmentID); err != nil {
		return nil, err
	}

	rows, err := s.evaluations.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	return dto.NewEvaluationAssignmentResponses(rows, s.now()), nil
}
