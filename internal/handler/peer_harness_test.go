package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/peerinvest-api/internal/config"
	"github.com/noah-isme/peerinvest-api/internal/database"
	"github.com/noah-isme/peerinvest-api/internal/handler"
	"github.com/noah-isme/peerinvest-api/internal/middleware"
	"github.com/noah-isme/peerinvest-api/internal/models"
	"github.com/noah-isme/peerinvest-api/internal/repository"
	"github.com/noah-isme/peerinvest-api/internal/router"
	"github.com/noah-isme/peerinvest-api/internal/service"
)

const teacherID = 900

type peerApp struct {
	t          *testing.T
	app        *fiber.App
	db         *gorm.DB
	course     models.Course
	assignment models.Assignment
	teams      []models.Team
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// setupPeerApp wires the full router against an in-memory database seeded with four
// submitting teams. Requests authenticate through the X-Test-User and X-Test-Role headers.
func setupPeerApp(t *testing.T) *peerApp {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	p := &peerApp{t: t, db: db}
	p.seed(4)

	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())
	policy := service.DefaultEnginePolicy()

	assignments := repository.NewAssignmentRepository(db)
	submissions := repository.NewSubmissionRepository(db)
	teams := repository.NewTeamRepository(db)
	evaluations := repository.NewEvaluationRepository(db)
	investments := repository.NewInvestmentRepository(db)
	grades := repository.NewGradeRepository(db)

	activity := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
	notifications := service.NewNotificationService(repository.NewNotificationRepository(db), nil, nil, "", logger)
	rosters := service.NewRosterService(repository.NewEnrollmentRepository(db), teams, submissions)
	distribution := service.NewDistributionService(assignments, evaluations, rosters, activity, notifications, policy, logger)
	ledger := service.NewInvestmentService(assignments, teams, evaluations, investments, service.NewLocalLocker(), policy.Ledger, validate, logger)
	interest := service.NewInterestService(investments, grades, repository.NewInterestRepository(db), nil, "", time.Minute, policy, logger)
	grading := service.NewGradingService(assignments, submissions, investments, grades, interest, activity, policy, logger)
	review := service.NewGradeReviewService(assignments, grades, teams, investments, interest, activity, notifications, validate, logger)

	p.app = fiber.New()
	middleware.Register(p.app, middleware.Config{Logger: &logger})
	router.Register(p.app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		DB:                       db,
		AdminEvaluationHandler:   handler.NewAdminEvaluationHandler(distribution, logger),
		AdminGradeHandler:        handler.NewAdminGradeHandler(grading, review, logger),
		AdminActivityHandler:     handler.NewAdminActivityHandler(activity, logger),
		AdminTeamHandler:         handler.NewAdminTeamHandler(service.NewTeamService(teams, activity, validate, logger), logger),
		StudentEvaluationHandler: handler.NewStudentEvaluationHandler(ledger, grading, 100, logger),
		StudentInterestHandler:   handler.NewStudentInterestHandler(interest, logger),
		NotificationHandler:      handler.NewNotificationHandler(notifications, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			if id, err := strconv.ParseUint(c.Get("X-Test-User"), 10, 64); err == nil && id > 0 {
				c.Locals("user_id", uint(id))
			}
			if role := c.Get("X-Test-Role"); role != "" {
				c.Locals("user_role", role)
			}
			return c.Next()
		},
	})

	return p
}

func (p *peerApp) seed(teamCount int) {
	t := p.t
	p.course = models.Course{Name: "Software Project"}
	require.NoError(t, p.db.Create(&p.course).Error)
	course := p.course

	due := time.Now().Add(-24 * time.Hour)
	p.assignment = models.Assignment{CourseID: course.ID, Title: "Milestone 1", DueDate: due, ReviewsPerEvaluator: 3}
	require.NoError(t, p.db.Create(&p.assignment).Error)

	for i := 0; i < teamCount; i++ {
		team := models.Team{CourseID: course.ID, Name: fmt.Sprintf("Team %d", i+1)}
		require.NoError(t, p.db.Create(&team).Error)
		for j := 0; j < models.TeamSize; j++ {
			student := models.Student{Name: fmt.Sprintf("Student %d-%d", i+1, j+1), Email: fmt.Sprintf("s%d-%d@example.edu", i+1, j+1)}
			require.NoError(t, p.db.Create(&student).Error)
			require.NoError(t, p.db.Create(&models.Enrollment{CourseID: course.ID, StudentID: student.ID}).Error)
			member := models.TeamMember{TeamID: team.ID, CourseID: course.ID, StudentID: student.ID}
			require.NoError(t, p.db.Create(&member).Error)
			team.Members = append(team.Members, member)
		}
		submittedAt := due.Add(-time.Hour)
		require.NoError(t, p.db.Create(&models.Submission{
			AssignmentID: p.assignment.ID,
			TeamID:       team.ID,
			Status:       models.SubmissionStatusSubmitted,
			SubmittedAt:  &submittedAt,
		}).Error)
		p.teams = append(p.teams, team)
	}
}

func (p *peerApp) student(team, member int) uint {
	return p.teams[team].Members[member].StudentID
}

func (p *peerApp) assignmentPath(format string) string {
	return fmt.Sprintf(format, p.assignment.ID)
}

// do performs a request as the given user. body may be nil.
func (p *peerApp) do(method, path string, userID uint, role string, body interface{}) (*http.Response, apiEnvelope) {
	p.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(p.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID > 0 {
		req.Header.Set("X-Test-User", strconv.FormatUint(uint64(userID), 10))
	}
	if role != "" {
		req.Header.Set("X-Test-Role", role)
	}

	resp, err := p.app.Test(req, -1)
	require.NoError(p.t, err)

	var envelope apiEnvelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(p.t, err)
	_ = resp.Body.Close()
	if len(raw) > 0 {
		require.NoError(p.t, json.Unmarshal(raw, &envelope), string(raw))
	}
	return resp, envelope
}

func (p *peerApp) asTeacher(method, path string, body interface{}) (*http.Response, apiEnvelope) {
	return p.do(method, path, teacherID, middleware.RoleTeacher, body)
}

func (p *peerApp) asStudent(studentID uint, method, path string, body interface{}) (*http.Response, apiEnvelope) {
	return p.do(method, path, studentID, middleware.RoleStudent, body)
}
