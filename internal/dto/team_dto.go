package dto

import "github.com/noah-isme/peerinvest-api/internal/models"

// CreateTeamRequest forms a team of exactly two distinct students.
type CreateTeamRequest struct {
	Name      string `json:"name" validate:"required,max=255"`
	MemberIDs []uint `json:"member_ids" validate:"len=2,unique,dive,gt=0"`
}

// TeamResponse serializes a team with its member ids.
type TeamResponse struct {
	ID        uint   `json:"id"`
	CourseID  uint   `json:"course_id"`
	Name      string `json:"name"`
	Locked    bool   `json:"locked"`
	MemberIDs []uint `json:"member_ids"`
}

// NewTeamResponse converts a model into a DTO.
func NewTeamResponse(model models.Team) TeamResponse {
	return TeamResponse{
		ID:        model.ID,
		CourseID:  model.CourseID,
		Name:      model.Name,
		Locked:    model.Locked,
		MemberIDs: model.MemberIDs(),
	}
}
