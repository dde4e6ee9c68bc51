package dto

import "github.com/noah-isme/peerinvest-api/internal/models"

// InterestRecordResponse is the interest earned on one investment.
type InterestRecordResponse struct {
	AssignmentID   uint        `json:"assignment_id"`
	InvestedTeamID uint        `json:"invested_team_id"`
	TokensInvested int         `json:"tokens_invested"`
	Tier           models.Tier `json:"tier"`
	InterestEarned float64     `json:"interest_earned"`
}

// InterestSummaryResponse is a student's interest rollup.
type InterestSummaryResponse struct {
	StudentID     uint                     `json:"student_id"`
	TotalInterest float64                  `json:"total_interest"`
	Bonus         float64                  `json:"bonus"`
	Records       []InterestRecordResponse `json:"records"`
	Cached        bool                     `json:"cached"`
}

// NewInterestRecordResponse converts a model into a DTO.
func NewInterestRecordResponse(model models.InterestRecord) InterestRecordResponse {
	return InterestRecordResponse{
		AssignmentID:   model.AssignmentID,
		InvestedTeamID: model.InvestedTeamID,
		TokensInvested: model.TokensInvested,
		Tier:           model.Tier,
		InterestEarned: model.InterestEarned,
	}
}
