package dto

import (
	"time"

	"github.com/noah-isme/peerinvest-api/internal/models"
)

// GradeReviewRequest lets a teacher override the tier of a draft grade.
type GradeReviewRequest struct {
	Tier string `json:"tier" validate:"required,oneof=high median low incomplete"`
	Note string `json:"note" validate:"max=2000"`
}

// GradeResponse serializes a team grade.
type GradeResponse struct {
	ID              uint               `json:"id"`
	AssignmentID    uint               `json:"assignment_id"`
	TeamID          uint               `json:"team_id"`
	SubmissionID    uint               `json:"submission_id"`
	TrimmedMean     float64            `json:"trimmed_mean"`
	Tier            models.Tier        `json:"tier"`
	Percentage      float64            `json:"percentage"`
	InvestmentCount int                `json:"investment_count"`
	Status          models.GradeStatus `json:"status"`
	ReviewerNote    string             `json:"reviewer_note,omitempty"`
	PublishedAt     *time.Time         `json:"published_at"`
}

// GradeRunResponse is returned after grading an assignment.
type GradeRunResponse struct {
	AssignmentID      uint            `json:"assignment_id"`
	TierPolicy        string          `json:"tier_policy"`
	Grades            []GradeResponse `json:"grades"`
	InvestorsCredited int             `json:"investors_credited"`
}

// NewGradeResponse converts a model into a DTO.
func NewGradeResponse(model models.Grade) GradeResponse {
	return GradeResponse{
		ID:              model.ID,
		AssignmentID:    model.AssignmentID,
		TeamID:          model.TeamID,
		SubmissionID:    model.SubmissionID,
		TrimmedMean:     model.TrimmedMean,
		Tier:            model.Tier,
		Percentage:      model.Percentage,
		InvestmentCount: model.InvestmentCount,
		Status:          model.Status,
		ReviewerNote:    model.ReviewerNote,
		PublishedAt:     model.PublishedAt,
	}
}

// NewGradeResponses converts a slice of models.
func NewGradeResponses(items []models.Grade) []GradeResponse {
	out := make([]GradeResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewGradeResponse(item))
	}
	return out
}
