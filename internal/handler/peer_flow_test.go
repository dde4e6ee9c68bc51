package handler_test

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/peerinvest-api/internal/dto"
	"github.com/noah-isme/peerinvest-api/internal/models"
	"github.com/noah-isme/peerinvest-api/internal/service"
)

func decodeData(t *testing.T, envelope apiEnvelope, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(envelope.Data, target))
}

func TestDistributeRequiresStaffRole(t *testing.T) {
	p := setupPeerApp(t)

	resp, _ := p.asStudent(p.student(0, 0), http.MethodPost, p.assignmentPath("/api/admin/assignments/%d/distribute"), nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = p.do(http.MethodPost, p.assignmentPath("/api/admin/assignments/%d/distribute"), 0, "", nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = p.asTeacher(http.MethodPost, "/api/admin/assignments/abc/distribute", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = p.asTeacher(http.MethodPost, "/api/admin/assignments/9999/distribute", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestInvestmentFlowOverHTTP(t *testing.T) {
	p := setupPeerApp(t)

	resp, envelope := p.asTeacher(http.MethodPost, p.assignmentPath("/api/admin/assignments/%d/distribute"), nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, envelope.Message)
	var distribution dto.DistributionResponse
	decodeData(t, envelope, &distribution)
	require.Equal(t, 8, distribution.EvaluatorCount)
	require.Equal(t, 24, distribution.PairCount)

	resp, _ = p.asTeacher(http.MethodPost, p.assignmentPath("/api/admin/assignments/%d/distribute"), nil)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	investor := p.student(0, 0)
	resp, envelope = p.asStudent(investor, http.MethodGet, p.assignmentPath("/api/v2/assignments/%d/evaluations"), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var assigned []dto.EvaluationAssignmentResponse
	decodeData(t, envelope, &assigned)
	require.Len(t, assigned, 3)
	for _, row := range assigned {
		require.NotEqual(t, p.teams[0].ID, row.EvaluatedTeamID)
		require.Equal(t, models.EvaluationStatusAssigned, row.Status)
	}

	investPath := p.assignmentPath("/api/v2/assignments/%d/investments")
	target := assigned[0].EvaluatedTeamID

	resp, envelope = p.asStudent(investor, http.MethodPost, investPath, dto.InvestmentRequest{TeamID: target, Tokens: 20, Comment: "solid <b>demo</b>"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, envelope.Message)
	var investment dto.InvestmentResponse
	decodeData(t, envelope, &investment)
	require.Equal(t, 20, investment.Tokens)
	require.Equal(t, "solid demo", investment.Comment)

	cases := []struct {
		name    string
		payload dto.InvestmentRequest
		status  int
	}{
		{"duplicate", dto.InvestmentRequest{TeamID: target, Tokens: 20}, fiber.StatusConflict},
		{"own team", dto.InvestmentRequest{TeamID: p.teams[0].ID, Tokens: 20}, fiber.StatusForbidden},
		{"below minimum", dto.InvestmentRequest{TeamID: assigned[1].EvaluatedTeamID, Tokens: 5}, fiber.StatusBadRequest},
		{"incomplete without comment", dto.InvestmentRequest{TeamID: assigned[1].EvaluatedTeamID, Incomplete: true}, fiber.StatusBadRequest},
		{"missing team", dto.InvestmentRequest{Tokens: 20}, fiber.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, envelope := p.asStudent(investor, http.MethodPost, investPath, tc.payload)
			require.Equal(t, tc.status, resp.StatusCode, envelope.Message)
			require.False(t, envelope.Success)
		})
	}

	resp, envelope = p.asStudent(investor, http.MethodGet, investPath, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var ledger dto.InvestmentLedgerResponse
	decodeData(t, envelope, &ledger)
	require.Len(t, ledger.Investments, 1)
	require.Equal(t, 20, ledger.TokensSpent)
	require.Equal(t, 80, ledger.TokensRemaining)
	require.Equal(t, 2, ledger.InvestmentsLeft)
	require.NotNil(t, ledger.EvaluationDueAt)

	resp, envelope = p.asTeacher(http.MethodPost, p.assignmentPath("/api/admin/assignments/%d/evaluation/close"), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var closed dto.CloseEvaluationResponse
	decodeData(t, envelope, &closed)
	require.Equal(t, int64(23), closed.Missed)

	resp, _ = p.asStudent(investor, http.MethodPost, investPath, dto.InvestmentRequest{TeamID: assigned[1].EvaluatedTeamID, Tokens: 20})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestGradeListMatchesContract(t *testing.T) {
	p := setupPeerApp(t)

	resp, _ := p.asTeacher(http.MethodPost, p.assignmentPath("/api/admin/assignments/%d/distribute"), nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	for team := range p.teams {
		for member := 0; member < models.TeamSize; member++ {
			investor := p.student(team, member)
			_, envelope := p.asStudent(investor, http.MethodGet, p.assignmentPath("/api/v2/assignments/%d/evaluations"), nil)
			var assigned []dto.EvaluationAssignmentResponse
			decodeData(t, envelope, &assigned)
			for _, row := range assigned {
				resp, envelope := p.asStudent(investor, http.MethodPost, p.assignmentPath("/api/v2/assignments/%d/investments"),
					dto.InvestmentRequest{TeamID: row.EvaluatedTeamID, Tokens: 30})
				require.Equal(t, fiber.StatusCreated, resp.StatusCode, envelope.Message)
			}
		}
	}

	resp, envelope := p.asTeacher(http.MethodPost, p.assignmentPath("/api/admin/assignments/%d/grades"), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, envelope.Message)
	var run dto.GradeRunResponse
	decodeData(t, envelope, &run)
	require.Len(t, run.Grades, 4)
	require.Equal(t, 8, run.InvestorsCredited)

	resp, envelope = p.asStudent(p.student(0, 0), http.MethodGet, p.assignmentPath("/api/v2/assignments/%d/grades"), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var visible []dto.GradeResponse
	decodeData(t, envelope, &visible)
	require.Empty(t, visible)

	schemaPath, err := filepath.Abs(filepath.Join("testdata", "grade_list.schema.json"))
	require.NoError(t, err)
	schema, err := jsonschema.NewCompiler().Compile("file://" + filepath.ToSlash(schemaPath))
	require.NoError(t, err)

	req := p.assignmentPath("/api/admin/assignments/%d/grades")
	resp, envelope = p.asTeacher(http.MethodGet, req, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	requireSchema(t, schema, envelope)

	var grades []dto.GradeResponse
	decodeData(t, envelope, &grades)
	for _, grade := range grades {
		require.Equal(t, models.TierMedian, grade.Tier)
		require.InDelta(t, 30.0, grade.TrimmedMean, 1e-9)
		require.Equal(t, models.GradeStatusDraft, grade.Status)
	}

	resp, envelope = p.asTeacher(http.MethodPatch, "/api/admin/grades/"+jsonID(grades[0].ID), dto.GradeReviewRequest{Tier: "high", Note: "exceptional demo"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, envelope.Message)

	resp, _ = p.asTeacher(http.MethodPatch, "/api/admin/grades/"+jsonID(grades[0].ID), dto.GradeReviewRequest{Tier: "stellar"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = p.asTeacher(http.MethodPost, p.assignmentPath("/api/admin/assignments/%d/grades/publish"), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = p.asTeacher(http.MethodPatch, "/api/admin/grades/"+jsonID(grades[0].ID), dto.GradeReviewRequest{Tier: "low"})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, _ = p.asTeacher(http.MethodPost, p.assignmentPath("/api/admin/assignments/%d/grades"), nil)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, envelope = p.asStudent(p.student(0, 0), http.MethodGet, p.assignmentPath("/api/v2/assignments/%d/grades"), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	requireSchema(t, schema, envelope)
	decodeData(t, envelope, &visible)
	require.Len(t, visible, 4)
	for _, grade := range visible {
		require.Equal(t, models.GradeStatusPublished, grade.Status)
		require.NotNil(t, grade.PublishedAt)
	}

	resp, envelope = p.asStudent(p.student(1, 0), http.MethodGet, "/api/v2/student/interest", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var summary dto.InterestSummaryResponse
	decodeData(t, envelope, &summary)
	require.Len(t, summary.Records, 3)
	require.Greater(t, summary.TotalInterest, 0.0)
}

func TestNotificationsAndActivityOverHTTP(t *testing.T) {
	p := setupPeerApp(t)

	resp, _ := p.asTeacher(http.MethodPost, p.assignmentPath("/api/admin/assignments/%d/distribute"), nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	student := p.student(2, 1)
	resp, envelope := p.asStudent(student, http.MethodGet, "/api/v2/notifications?unread=true", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var notifications []dto.NotificationResponse
	decodeData(t, envelope, &notifications)
	require.Len(t, notifications, 1)
	require.Equal(t, service.NotificationEvaluationAssigned, notifications[0].Type)

	resp, _ = p.asStudent(p.student(3, 0), http.MethodPatch, "/api/v2/notifications/"+jsonID(notifications[0].ID)+"/read", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, envelope = p.asStudent(student, http.MethodPatch, "/api/v2/notifications/"+jsonID(notifications[0].ID)+"/read", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var read dto.NotificationResponse
	decodeData(t, envelope, &read)
	require.True(t, read.Read)

	resp, envelope = p.asStudent(student, http.MethodGet, "/api/v2/notifications?unread=true", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeData(t, envelope, &notifications)
	require.Empty(t, notifications)

	other := p.student(0, 0)
	resp, envelope = p.asStudent(other, http.MethodPatch, "/api/v2/notifications/read-all", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var bulk struct {
		Updated int64 `json:"updated"`
	}
	decodeData(t, envelope, &bulk)
	require.Equal(t, int64(1), bulk.Updated)

	resp, envelope = p.asTeacher(http.MethodGet, "/api/admin/activities?action="+service.ActionEvaluationDistributed, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var activities dto.ActivityListResponse
	decodeData(t, envelope, &activities)
	require.Len(t, activities.Items, 1)
	require.Equal(t, service.ActionEvaluationDistributed, activities.Items[0].Action)
}

func requireSchema(t *testing.T, schema *jsonschema.Schema, envelope apiEnvelope) {
	t.Helper()
	raw, err := json.Marshal(envelope)
	require.NoError(t, err)
	var payload interface{}
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.NoError(t, schema.Validate(payload))
}

func jsonID(id uint) string {
	raw, _ := json.Marshal(id)
	return string(raw)
}

func TestHealthReportsDatabase(t *testing.T) {
	p := setupPeerApp(t)

	resp, envelope := p.do(http.MethodGet, "/api/v1/health", 0, "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "Test", resp.Header.Get("X-Application"))

	var health struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
	decodeData(t, envelope, &health)
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "up", health.Database)
}

func TestTeamFormationOverHTTP(t *testing.T) {
	p := setupPeerApp(t)

	newcomers := []models.Student{
		{Name: "Late Joiner A", Email: "late-a@example.edu"},
		{Name: "Late Joiner B", Email: "late-b@example.edu"},
		{Name: "Late Joiner C", Email: "late-c@example.edu"},
	}
	require.NoError(t, p.db.Create(&newcomers).Error)

	teamsPath := "/api/admin/courses/" + jsonID(p.course.ID) + "/teams"

	resp, envelope := p.asTeacher(http.MethodPost, teamsPath, dto.CreateTeamRequest{
		Name:      "Team <i>Late</i>",
		MemberIDs: []uint{newcomers[0].ID, newcomers[1].ID},
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, envelope.Message)
	var team dto.TeamResponse
	decodeData(t, envelope, &team)
	require.Equal(t, "Team Late", team.Name)
	require.ElementsMatch(t, []uint{newcomers[0].ID, newcomers[1].ID}, team.MemberIDs)

	var enrolled int64
	require.NoError(t, p.db.Model(&models.Enrollment{}).Where("course_id = ? AND student_id IN ?", p.course.ID, team.MemberIDs).Count(&enrolled).Error)
	require.Equal(t, int64(2), enrolled)

	resp, _ = p.asTeacher(http.MethodPost, teamsPath, dto.CreateTeamRequest{Name: "Clash", MemberIDs: []uint{newcomers[1].ID, newcomers[2].ID}})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, _ = p.asTeacher(http.MethodPost, teamsPath, dto.CreateTeamRequest{Name: "Solo", MemberIDs: []uint{newcomers[2].ID}})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = p.asTeacher(http.MethodPost, teamsPath, dto.CreateTeamRequest{Name: "Twins", MemberIDs: []uint{newcomers[2].ID, newcomers[2].ID}})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, envelope = p.asTeacher(http.MethodGet, teamsPath, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var teams []dto.TeamResponse
	decodeData(t, envelope, &teams)
	require.Len(t, teams, 5)

	resp, _ = p.asTeacher(http.MethodPost, p.assignmentPath("/api/admin/assignments/%d/distribute"), nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, _ = p.asTeacher(http.MethodPost, teamsPath, dto.CreateTeamRequest{Name: "Too late", MemberIDs: []uint{newcomers[2].ID, p.student(0, 0)}})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}
