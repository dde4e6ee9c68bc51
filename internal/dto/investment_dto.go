package dto

import (
	"time"

	"github.com/noah-isme/peerinvest-api/internal/models"
)

// InvestmentRequest is the payload a student sends to invest in a team.
type InvestmentRequest struct {
	TeamID     uint   `json:"team_id" validate:"required"`
	Tokens     int    `json:"tokens"`
	Incomplete bool   `json:"incomplete"`
	Comment    string `json:"comment" validate:"max=2000"`
}

// InvestmentResponse serializes a recorded investment.
type InvestmentResponse struct {
	ID             uint      `json:"id"`
	AssignmentID   uint      `json:"assignment_id"`
	InvestorID     uint      `json:"investor_id"`
	InvestedTeamID uint      `json:"invested_team_id"`
	Tokens         int       `json:"tokens"`
	Incomplete     bool      `json:"incomplete"`
	Comment        string    `json:"comment"`
	CreatedAt      time.Time `json:"created_at"`
}

// InvestmentLedgerResponse is a student's view of their spending on one assignment.
type InvestmentLedgerResponse struct {
	AssignmentID    uint                 `json:"assignment_id"`
	Investments     []InvestmentResponse `json:"investments"`
	TokensSpent     int                  `json:"tokens_spent"`
	TokensRemaining int                  `json:"tokens_remaining"`
	InvestmentsLeft int                  `json:"investments_left"`
	EvaluationDueAt *time.Time           `json:"evaluation_due_at"`
}

// NewInvestmentResponse converts a model into a DTO.
func NewInvestmentResponse(model models.Investment) InvestmentResponse {
	return InvestmentResponse{
		ID:             model.ID,
		AssignmentID:   model.AssignmentID,
		InvestorID:     model.InvestorID,
		InvestedTeamID: model.InvestedTeamID,
		Tokens:         model.Tokens,
		Incomplete:     model.Incomplete,
		Comment:        model.Comment,
		CreatedAt:      model.CreatedAt,
	}
}
