package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peerinvest-api/internal/dto"
	"github.com/noah-isme/peerinvest-api/internal/models"
	"github.com/noah-isme/peerinvest-api/internal/repository"
)

// TeamService forms the teams that submit and get evaluated.
type TeamService interface {
	CreateTeam(ctx context.Context, actor ActivityActor, courseID uint, req dto.CreateTeamRequest) (dto.TeamResponse, error)
	ListTeams(ctx context.Context, courseID uint) ([]dto.TeamResponse, error)
}

type teamService struct {
	teams     repository.TeamRepository
	activity  ActivityRecorder
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewTeamService constructs the team service.
func NewTeamService(teams repository.TeamRepository, activity ActivityRecorder, validate *validator.Validate, logger zerolog.Logger) TeamService {
	return &teamService{
		teams:     teams,
		activity:  activity,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "team_service").Logger(),
	}
}

func (s *teamService) CreateTeam(ctx context.Context, actor ActivityActor, courseID uint, req dto.CreateTeamRequest) (dto.TeamResponse, error) {
	req.Name = strings.TrimSpace(s.sanitizer.Sanitize(req.Name))
	if err := s.validator.Struct(req); err != nil {
		return dto.TeamResponse{}, err
	}

	existing, err := s.teams.ListByCourse(ctx, courseID)
	if err != nil {
		return dto.TeamResponse{}, err
	}
	for _, team := range existing {
		if team.Locked {
			return dto.TeamResponse{}, ErrTeamsLocked
		}
	}

	team := models.Team{CourseID: courseID, Name: req.Name}
	for _, studentID := range req.MemberIDs {
		team.Members = append(team.Members, models.TeamMember{CourseID: courseID, StudentID: studentID})
	}

	if err := s.teams.Create(ctx, &team); err != nil {
		if errors.Is(err, repository.ErrMemberConflict) {
			return dto.TeamResponse{}, ErrStudentAlreadyTeamed
		}
		s.logger.Error().Err(err).Uint("course_id", courseID).Msg("failed to create team")
		return dto.TeamResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     ActionTeamCreated,
		EntityType: "team",
		EntityID:   &team.ID,
		Metadata:   map[string]interface{}{"course_id": courseID, "members": team.MemberIDs()},
	})

	return dto.NewTeamResponse(team), nil
}

func (s *teamService) ListTeams(ctx context.Context, courseID uint) ([]dto.TeamResponse, error) {
	teams, err := s.teams.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.TeamResponse, 0, len(teams))
	for _, team := range teams {
		out = append(out, dto.NewTeamResponse(team))
	}
	return out, nil
}
