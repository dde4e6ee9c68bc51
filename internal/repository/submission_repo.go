package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/peerinvest-api/internal/models"
)

// SubmissionFilter narrows submission queries; nil fields are ignored.
type SubmissionFilter struct {
	AssignmentID *uint
	TeamID       *uint
	Status       *models.SubmissionStatus
}

// SubmissionRepository reads the team submissions an assignment is graded on.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

// List orders by team then id so rosters and grade runs see submissions deterministically.
func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{})
	if filter.AssignmentID != nil {
		query = query.Where("assignment_id = ?", *filter.AssignmentID)
	}
	if filter.TeamID != nil {
		query = query.Where("team_id = ?", *filter.TeamID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var submissions []models.Submission
	if err := query.Order("team_id ASC, id ASC").Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}
