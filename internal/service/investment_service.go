package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/peerinvest-api/internal/dto"
	"github.com/noah-isme/peerinvest-api/internal/engine"
	"github.com/noah-isme/peerinvest-api/internal/models"
	"github.com/noah-isme/peerinvest-api/internal/observability"
	"github.com/noah-isme/peerinvest-api/internal/repository"
)

// InvestmentService is the student-facing token ledger.
type InvestmentService interface {
	Record(ctx context.Context, studentID, assignmentID uint, req dto.InvestmentRequest) (dto.InvestmentResponse, error)
	ListAssigned(ctx context.Context, studentID, assignmentID uint) ([]dto.EvaluationAssignmentResponse, error)
	Ledger(ctx context.Context, studentID, assignmentID uint) (dto.InvestmentLedgerResponse, error)
}

type investmentService struct {
	assignments repository.AssignmentRepository
	teams       repository.TeamRepository
	evaluations repository.EvaluationRepository
	investments repository.InvestmentRepository
	locker      KeyedLocker
	policy      engine.LedgerPolicy
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	now         func() time.Time
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewInvestmentService constructs the ledger service. A nil locker falls back to an
// in-process one.
func NewInvestmentService(
	assignments repository.AssignmentRepository,
	teams repository.TeamRepository,
	evaluations repository.EvaluationRepository,
	investments repository.InvestmentRepository,
	locker KeyedLocker,
	policy engine.LedgerPolicy,
	validate *validator.Validate,
	logger zerolog.Logger,
) InvestmentService {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &investmentService{
		assignments: assignments,
		teams:       teams,
		evaluations: evaluations,
		investments: investments,
		locker:      locker,
		policy:      policy,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		now:         time.Now,
		logger:      logger.With().Str("component", "investment_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/peerinvest-api/internal/service/investment"),
	}
}

func (s *investmentService) Record(ctx context.Context, studentID, assignmentID uint, req dto.InvestmentRequest) (dto.InvestmentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.InvestmentResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "investments.record", trace.WithAttributes(
		attribute.Int("assignment.id", int(assignmentID)),
		attribute.Int("investor.id", int(studentID)),
		attribute.Int("team.id", int(req.TeamID)),
	))
	defer span.End()

	comment := strings.TrimSpace(s.sanitizer.Sanitize(req.Comment))
	tokens, err := s.policy.NormalizeTokens(req.Tokens, req.Incomplete, comment)
	if err != nil {
		observability.InvestmentsTotal().WithLabelValues(investmentOutcome(err)).Inc()
		return dto.InvestmentResponse{}, err
	}

	assignment, err := loadAssignment(ctx, s.assignments, assignmentID)
	if err != nil {
		return dto.InvestmentResponse{}, err
	}

	evaluators, err := s.evaluatorsFor(ctx, assignment, studentID)
	if err != nil {
		return dto.InvestmentResponse{}, err
	}

	unlock, err := s.locker.Lock(ctx, fmt.Sprintf("invest:%d:%d", assignmentID, studentID))
	if err != nil {
		span.RecordError(err)
		return dto.InvestmentResponse{}, err
	}
	defer unlock()

	now := s.now()
	investment, err := s.investments.Record(ctx, repository.InvestmentWrite{
		Investment: models.Investment{
			AssignmentID:   assignmentID,
			InvestorID:     studentID,
			InvestedTeamID: req.TeamID,
			Tokens:         tokens,
			Incomplete:     req.Incomplete,
			Comment:        comment,
		},
		Evaluators: evaluators,
	}, now, func(state engine.LedgerState) error {
		return s.policy.Check(state, tokens, now)
	})
	observability.InvestmentsTotal().WithLabelValues(investmentOutcome(err)).Inc()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.InvestmentResponse{}, ErrAssignmentNotFound
		}
		if !isLedgerError(err) {
			span.RecordError(err)
		}
		return dto.InvestmentResponse{}, err
	}

	s.logger.Info().
		Uint("assignment_id", assignmentID).
		Uint("investor_id", studentID).
		Uint("team_id", req.TeamID).
		Int("tokens", tokens).
		Bool("incomplete", req.Incomplete).
		Msg("investment recorded")

	return dto.NewInvestmentResponse(investment), nil
}

func (s *investmentService) ListAssigned(ctx context.Context, studentID, assignmentID uint) ([]dto.EvaluationAssignmentResponse, error) {
	assignment, err := loadAssignment(ctx, s.assignments, assignmentID)
	if err != nil {
		return nil, err
	}

	evaluators, err := s.evaluatorsFor(ctx, assignment, studentID)
	if err != nil {
		return nil, err
	}

	rows, err := s.evaluations.ListForEvaluators(ctx, assignmentID, evaluators)
	if err != nil {
		return nil, err
	}

	return dto.NewEvaluationAssignmentResponses(rows, s.now()), nil
}

func (s *investmentService) Ledger(ctx context.Context, studentID, assignmentID uint) (dto.InvestmentLedgerResponse, error) {
	assignment, err := loadAssignment(ctx, s.assignments, assignmentID)
	if err != nil {
		return dto.InvestmentLedgerResponse{}, err
	}

	investments, err := s.investments.ListByInvestor(ctx, assignmentID, studentID)
	if err != nil {
		return dto.InvestmentLedgerResponse{}, err
	}

	spent := 0
	responses := make([]dto.InvestmentResponse, 0, len(investments))
	for _, investment := range investments {
		spent += investment.Tokens
		responses = append(responses, dto.NewInvestmentResponse(investment))
	}

	return dto.InvestmentLedgerResponse{
		AssignmentID:    assignmentID,
		Investments:     responses,
		TokensSpent:     spent,
		TokensRemaining: s.policy.Remaining(spent),
		InvestmentsLeft: max(s.policy.MaxInvestments-len(investments), 0),
		EvaluationDueAt: assignment.EvaluationDueAt,
	}, nil
}

// evaluatorsFor lists the identities under which the student may hold review duties:
// the student, and the student's team for team-mode assignments.
func (s *investmentService) evaluatorsFor(ctx context.Context, assignment models.Assignment, studentID uint) ([]models.Evaluator, error) {
	evaluators := []models.Evaluator{models.StudentEvaluator(studentID)}
	if assignment.DistributionMode != models.DistributionModeTeam {
		return evaluators, nil
	}

	team, err := s.teams.FindByStudent(ctx, assignment.CourseID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return evaluators, nil
		}
		return nil, err
	}

	return append(evaluators, models.TeamEvaluator(team.ID)), nil
}

var ledgerErrors = []struct {
	err     error
	outcome string
}{
	{engine.ErrTokensOutOfRange, "tokens_out_of_range"},
	{engine.ErrCommentRequired, "comment_required"},
	{engine.ErrNotAssigned, "not_assigned"},
	{engine.ErrCapExceeded, "cap_exceeded"},
	{engine.ErrBudgetExceeded, "budget_exceeded"},
	{engine.ErrDuplicateInvestment, "duplicate"},
	{engine.ErrWindowClosed, "window_closed"},
}

func investmentOutcome(err error) string {
	if err == nil {
		return "ok"
	}
	for _, known := range ledgerErrors {
		if errors.Is(err, known.err) {
			return known.outcome
		}
	}
	return "error"
}

func isLedgerError(err error) bool {
	outcome := investmentOutcome(err)
	return outcome != "ok" && outcome != "error"
}
