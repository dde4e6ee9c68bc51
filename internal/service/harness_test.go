package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/peerinvest-api/internal/database"
	"github.com/noah-isme/peerinvest-api/internal/models"
	"github.com/noah-isme/peerinvest-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (n *recordingNotifier) Notify(ctx context.Context, notice Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return nil
}

func (n *recordingNotifier) ofType(kind string) []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []Notice
	for _, notice := range n.notices {
		if notice.Type == kind {
			out = append(out, notice)
		}
	}
	return out
}

type harness struct {
	t          *testing.T
	db         *gorm.DB
	redis      *redis.Client
	assignment models.Assignment
	teams      []models.Team
	notifier   *recordingNotifier
	activity   repository.ActivityLogRepository

	distribution DistributionService
	investments  InvestmentService
	interest     InterestService
	grading      GradingService
	review       GradeReviewService
	teacher      ActivityActor
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

// newHarness wires every grading service against sqlite and miniredis, seeding a course
// with the given number of two-member teams that all submitted.
func newHarness(t *testing.T, teams int, mode models.DistributionMode, opts ...DistributionOption) *harness {
	t.Helper()

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	db := newTestDB(t)
	h := &harness{
		t:        t,
		db:       db,
		redis:    client,
		notifier: &recordingNotifier{},
		teacher:  ActivityActor{ID: 900, Role: "teacher"},
	}
	h.seed(teams, mode)

	policy := DefaultEnginePolicy()
	policy.Mode = mode
	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := testLogger()

	assignments := repository.NewAssignmentRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	submissions := repository.NewSubmissionRepository(db)
	evaluations := repository.NewEvaluationRepository(db)
	investments := repository.NewInvestmentRepository(db)
	grades := repository.NewGradeRepository(db)
	h.activity = repository.NewActivityLogRepository(db)
	activity := NewActivityService(h.activity, logger)

	rosters := NewRosterService(repository.NewEnrollmentRepository(db), teamRepo, submissions)
	h.distribution = NewDistributionService(assignments, evaluations, rosters, activity, h.notifier, policy, logger, opts...)
	h.investments = NewInvestmentService(assignments, teamRepo, evaluations, investments, NewRedisLocker(client, "test", 5*time.Second), policy.Ledger, validate, logger)
	h.interest = NewInterestService(investments, grades, repository.NewInterestRepository(db), client, "test", time.Minute, policy, logger)
	h.grading = NewGradingService(assignments, submissions, investments, grades, h.interest, activity, policy, logger)
	h.review = NewGradeReviewService(assignments, grades, teamRepo, investments, h.interest, activity, h.notifier, validate, logger)

	return h
}

func (h *harness) seed(teams int, mode models.DistributionMode) {
	t := h.t
	course := models.Course{Name: "Software Project"}
	require.NoError(t, h.db.Create(&course).Error)

	due := time.Now().Add(-24 * time.Hour)
	h.assignment = models.Assignment{CourseID: course.ID, Title: "Milestone 1", DueDate: due, DistributionMode: mode, ReviewsPerEvaluator: 3}
	require.NoError(t, h.db.Create(&h.assignment).Error)

	for i := 0; i < teams; i++ {
		team := models.Team{CourseID: course.ID, Name: fmt.Sprintf("Team %d", i+1)}
		require.NoError(t, h.db.Create(&team).Error)
		for j := 0; j < models.TeamSize; j++ {
			student := models.Student{Name: fmt.Sprintf("Student %d-%d", i+1, j+1), Email: fmt.Sprintf("student%d-%d@example.edu", i+1, j+1)}
			require.NoError(t, h.db.Create(&student).Error)
			require.NoError(t, h.db.Create(&models.Enrollment{CourseID: course.ID, StudentID: student.ID}).Error)
			member := models.TeamMember{TeamID: team.ID, CourseID: course.ID, StudentID: student.ID}
			require.NoError(t, h.db.Create(&member).Error)
			team.Members = append(team.Members, member)
		}
		submittedAt := due.Add(-time.Hour)
		require.NoError(t, h.db.Create(&models.Submission{
			AssignmentID: h.assignment.ID,
			TeamID:       team.ID,
			Status:       models.SubmissionStatusSubmitted,
			SubmittedAt:  &submittedAt,
		}).Error)
		h.teams = append(h.teams, team)
	}
}

// member returns the student id of member j of team i.
func (h *harness) member(i, j int) uint {
	return h.teams[i].Members[j].StudentID
}

func (h *harness) teamOf(studentID uint) uint {
	for _, team := range h.teams {
		if team.HasMember(studentID) {
			return team.ID
		}
	}
	return 0
}

// invest inserts an investment bypassing the ledger, for grading scenarios.
func (h *harness) invest(investor, teamID uint, tokens int, incomplete bool) {
	h.t.Helper()
	investment := models.Investment{
		AssignmentID:   h.assignment.ID,
		InvestorID:     investor,
		InvestedTeamID: teamID,
		Tokens:         tokens,
		Incomplete:     incomplete,
	}
	if incomplete {
		investment.Comment = "missing deliverables"
	}
	require.NoError(h.t, h.db.Create(&investment).Error)
}

func sequenceSeeds(start uint64) func() (uint64, error) {
	next := start
	return func() (uint64, error) {
		next++
		return next, nil
	}
}
