package dto

import (
	"time"

	"github.com/noah-isme/peerinvest-api/internal/models"
)

// EvaluationAssignmentResponse is one evaluator -> team review duty.
type EvaluationAssignmentResponse struct {
	ID              uint                    `json:"id"`
	AssignmentID    uint                    `json:"assignment_id"`
	EvaluatorKind   models.EvaluatorKind    `json:"evaluator_kind"`
	EvaluatorID     uint                    `json:"evaluator_id"`
	EvaluatedTeamID uint                    `json:"evaluated_team_id"`
	SubmissionID    uint                    `json:"submission_id"`
	Status          models.EvaluationStatus `json:"status"`
	DueAt           *time.Time              `json:"due_at"`
	CompletedAt     *time.Time              `json:"completed_at"`
}

// DistributionResponse summarises a distribution run.
type DistributionResponse struct {
	AssignmentID        uint                           `json:"assignment_id"`
	Mode                models.DistributionMode        `json:"mode"`
	ReviewsPerEvaluator int                            `json:"reviews_per_evaluator"`
	EvaluatorCount      int                            `json:"evaluator_count"`
	SubmissionCount     int                            `json:"submission_count"`
	PairCount           int                            `json:"pair_count"`
	Attempts            int                            `json:"attempts"`
	SkippedEvaluators   []models.Evaluator             `json:"skipped_evaluators"`
	EvaluationDueAt     *time.Time                     `json:"evaluation_due_at"`
	Assignments         []EvaluationAssignmentResponse `json:"assignments"`
}

// CloseEvaluationResponse reports how an evaluation phase ended.
type CloseEvaluationResponse struct {
	AssignmentID uint  `json:"assignment_id"`
	Missed       int64 `json:"missed"`
}

// NewEvaluationAssignmentResponse converts a model into a DTO, reporting its status as of now.
func NewEvaluationAssignmentResponse(model models.EvaluationAssignment, now time.Time) EvaluationAssignmentResponse {
	return EvaluationAssignmentResponse{
		ID:              model.ID,
		AssignmentID:    model.AssignmentID,
		EvaluatorKind:   model.EvaluatorKind,
		EvaluatorID:     model.EvaluatorID,
		EvaluatedTeamID: model.EvaluatedTeamID,
		SubmissionID:    model.SubmissionID,
		Status:          model.StatusAt(now),
		DueAt:           model.DueAt,
		CompletedAt:     model.CompletedAt,
	}
}

// NewEvaluationAssignmentResponses converts a slice of models.
func NewEvaluationAssignmentResponses(items []models.EvaluationAssignment, now time.Time) []EvaluationAssignmentResponse {
	out := make([]EvaluationAssignmentResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewEvaluationAssignmentResponse(item, now))
	}
	return out
}
