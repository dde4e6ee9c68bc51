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
	"github.com/noah-isme/peerinvest-api/internal/models"
	"github.com/noah-isme/peerinvest-api/internal/repository"
)

// GradeReviewService lets teachers adjust draft grades and release them to students.
type GradeReviewService interface {
	ReviewGrade(ctx context.Context, actor ActivityActor, gradeID uint, req dto.GradeReviewRequest) (dto.GradeResponse, error)
	PublishGrades(ctx context.Context, actor ActivityActor, assignmentID uint) ([]dto.GradeResponse, error)
}

type gradeReviewService struct {
	assignments repository.AssignmentRepository
	grades      repository.GradeRepository
	teams       repository.TeamRepository
	investments repository.InvestmentRepository
	interest    InterestService
	activity    ActivityRecorder
	notifier    Notifier
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	now         func() time.Time
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewGradeReviewService constructs the review and publication workflow. notifier may be nil.
func NewGradeReviewService(
	assignments repository.AssignmentRepository,
	grades repository.GradeRepository,
	teams repository.TeamRepository,
	investments repository.InvestmentRepository,
	interest InterestService,
	activity ActivityRecorder,
	notifier Notifier,
	validate *validator.Validate,
	logger zerolog.Logger,
) GradeReviewService {
	return &gradeReviewService{
		assignments: assignments,
		grades:      grades,
		teams:       teams,
		investments: investments,
		interest:    interest,
		activity:    activity,
		notifier:    notifier,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		now:         time.Now,
		logger:      logger.With().Str("component", "grade_review_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/peerinvest-api/internal/service/grade_review"),
	}
}

func (s *gradeReviewService) ReviewGrade(ctx context.Context, actor ActivityActor, gradeID uint, req dto.GradeReviewRequest) (dto.GradeResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.GradeResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "grades.review", trace.WithAttributes(
		attribute.Int("grade.id", int(gradeID)),
		attribute.String("grade.tier", req.Tier),
	))
	defer span.End()

	grade, err := s.grades.GetByID(ctx, gradeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeResponse{}, ErrGradeNotFound
		}
		return dto.GradeResponse{}, err
	}
	if grade.IsPublished() {
		return dto.GradeResponse{}, ErrGradeAlreadyPublished
	}

	tier := models.Tier(req.Tier)
	if !tier.Valid() {
		return dto.GradeResponse{}, fmt.Errorf("unknown tier %q", req.Tier)
	}

	previous := grade.Tier
	reviewer := actor.ID
	grade.Tier = tier
	grade.Percentage = tier.Percentage()
	grade.ReviewerNote = strings.TrimSpace(s.sanitizer.Sanitize(req.Note))
	grade.ReviewedBy = &reviewer

	if err := s.grades.Update(ctx, &grade); err != nil {
		span.RecordError(err)
		return dto.GradeResponse{}, err
	}

	if previous != tier {
		if _, err := creditInvestors(ctx, s.interest, s.investments, grade.AssignmentID); err != nil {
			span.RecordError(err)
			return dto.GradeResponse{}, err
		}
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:        actor,
		Action:       ActionGradeReviewed,
		AssignmentID: &grade.AssignmentID,
		EntityType:   "grade",
		EntityID:     &grade.ID,
		Metadata: map[string]interface{}{
			"team_id":  grade.TeamID,
			"from":     string(previous),
			"to":       string(tier),
			"has_note": grade.ReviewerNote != "",
		},
	})

	return dto.NewGradeResponse(grade), nil
}

func (s *gradeReviewService) PublishGrades(ctx context.Context, actor ActivityActor, assignmentID uint) ([]dto.GradeResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grades.publish", trace.WithAttributes(
		attribute.Int("assignment.id", int(assignmentID)),
	))
	defer span.End()

	assignment, err := loadAssignment(ctx, s.assignments, assignmentID)
	if err != nil {
		return nil, err
	}

	published, err := s.grades.Publish(ctx, assignment.ID, gradeNow(s.now))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(published) == 0 {
		return []dto.GradeResponse{}, nil
	}

	teamIDs := make([]uint, 0, len(published))
	for _, grade := range published {
		teamIDs = append(teamIDs, grade.TeamID)
	}
	s.notifyTeams(ctx, assignment, teamIDs)

	s.logger.Info().Uint("assignment_id", assignment.ID).Int("grades", len(published)).Msg("grades published")
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:        actor,
		Action:       ActionGradesPublished,
		AssignmentID: &assignment.ID,
		EntityType:   "assignment",
		EntityID:     &assignment.ID,
		Metadata:     map[string]interface{}{"grades": len(published)},
	})

	return dto.NewGradeResponses(published), nil
}

func (s *gradeReviewService) notifyTeams(ctx context.Context, assignment models.Assignment, teamIDs []uint) {
	if s.notifier == nil {
		return
	}

	members, err := s.teams.ListMembers(ctx, teamIDs)
	if err != nil {
		s.logger.Warn().Err(err).Uint("assignment_id", assignment.ID).Msg("failed to load team members for notification")
		return
	}

	recipients := make([]uint, 0, len(members))
	for _, member := range members {
		recipients = append(recipients, member.StudentID)
	}

	notice := Notice{
		Type:       NotificationGradesPublished,
		Message:    fmt.Sprintf("Grades for %s have been published.", assignment.Title),
		Recipients: recipients,
	}
	if err := s.notifier.Notify(ctx, notice); err != nil {
		s.logger.Warn().Err(err).Uint("assignment_id", assignment.ID).Msg("failed to notify teams")
	}
}
