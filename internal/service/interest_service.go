package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/peerinvest-api/internal/dto"
	"github.com/noah-isme/peerinvest-api/internal/engine"
	"github.com/noah-isme/peerinvest-api/internal/observability"
	"github.com/noah-isme/peerinvest-api/internal/repository"
)

// InterestService credits investors for backing well-graded teams.
type InterestService interface {
	CalculateInterest(ctx context.Context, studentID, assignmentID uint) (float64, error)
	TotalStudentInterest(ctx context.Context, studentID uint) (dto.InterestSummaryResponse, error)
}

type interestService struct {
	investments repository.InvestmentRepository
	grades      repository.GradeRepository
	interest    repository.InterestRepository
	cache       *redis.Client
	cachePrefix string
	cacheTTL    time.Duration
	rates       engine.InterestRates
	bonus       engine.BonusPolicy
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewInterestService constructs the interest calculator. cache may be nil.
func NewInterestService(
	investments repository.InvestmentRepository,
	grades repository.GradeRepository,
	interest repository.InterestRepository,
	cache *redis.Client,
	cachePrefix string,
	cacheTTL time.Duration,
	policy EnginePolicy,
	logger zerolog.Logger,
) InterestService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &interestService{
		investments: investments,
		grades:      grades,
		interest:    interest,
		cache:       cache,
		cachePrefix: cachePrefix,
		cacheTTL:    cacheTTL,
		rates:       policy.Rates,
		bonus:       policy.Bonus,
		logger:      logger.With().Str("component", "interest_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/peerinvest-api/internal/service/interest"),
	}
}

func (s *interestService) CalculateInterest(ctx context.Context, studentID, assignmentID uint) (float64, error) {
	ctx, span := s.tracer.Start(ctx, "interest.calculate", trace.WithAttributes(
		attribute.Int("student.id", int(studentID)),
		attribute.Int("assignment.id", int(assignmentID)),
	))
	defer span.End()

	investments, err := s.investments.ListByInvestor(ctx, assignmentID, studentID)
	if err != nil {
		return 0, err
	}

	tiers, err := s.grades.TiersForAssignment(ctx, assignmentID)
	if err != nil {
		return 0, err
	}

	records, total := engine.CalculateInterest(studentID, assignmentID, investments, tiers, s.rates)
	if err := s.interest.ReplaceForStudentAssignment(ctx, studentID, assignmentID, records); err != nil {
		span.RecordError(err)
		return 0, err
	}

	s.invalidate(ctx, studentID)
	return total, nil
}

func (s *interestService) TotalStudentInterest(ctx context.Context, studentID uint) (dto.InterestSummaryResponse, error) {
	if cached, ok := s.cached(ctx, studentID); ok {
		observability.InterestCacheLookups().WithLabelValues("hit").Inc()
		cached.Cached = true
		return cached, nil
	}
	observability.InterestCacheLookups().WithLabelValues("miss").Inc()

	records, err := s.interest.ListByStudent(ctx, studentID)
	if err != nil {
		return dto.InterestSummaryResponse{}, err
	}

	total := 0.0
	items := make([]dto.InterestRecordResponse, 0, len(records))
	for _, record := range records {
		total += record.InterestEarned
		items = append(items, dto.NewInterestRecordResponse(record))
	}

	summary := dto.InterestSummaryResponse{
		StudentID:     studentID,
		TotalInterest: engine.RoundCents(total),
		Bonus:         s.bonus.Bonus(total),
		Records:       items,
	}
	s.store(ctx, summary)

	return summary, nil
}

func (s *interestService) cacheKey(studentID uint) string {
	return fmt.Sprintf("%s:interest:%d", s.cachePrefix, studentID)
}

func (s *interestService) cached(ctx context.Context, studentID uint) (dto.InterestSummaryResponse, bool) {
	if s.cache == nil {
		return dto.InterestSummaryResponse{}, false
	}

	raw, err := s.cache.Get(ctx, s.cacheKey(studentID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("interest cache read failed")
		}
		return dto.InterestSummaryResponse{}, false
	}

	var summary dto.InterestSummaryResponse
	if err := json.Unmarshal(raw, &summary); err != nil {
		s.logger.Warn().Err(err).Msg("interest cache entry corrupt")
		return dto.InterestSummaryResponse{}, false
	}
	return summary, true
}

func (s *interestService) store(ctx context.Context, summary dto.InterestSummaryResponse) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(summary.StudentID), payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("interest cache write failed")
	}
}

func (s *interestService) invalidate(ctx context.Context, studentID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.cacheKey(studentID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("interest cache invalidation failed")
	}
}
