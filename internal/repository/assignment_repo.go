package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/peerinvest-api/internal/models"
)

// AssignmentRepository reads assignments and their evaluation phase state.
type AssignmentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Assignment, error)
	// ListExpiredEvaluations returns assignments whose evaluation phase is still active
	// although its due date is before the reference time.
	ListExpiredEvaluations(ctx context.Context, reference time.Time) ([]models.Assignment, error)
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).First(&assignment, id).Error; err != nil {
		return models.Assignment{}, err
	}
	return assignment, nil
}

func (r *assignmentRepository) ListExpiredEvaluations(ctx context.Context, reference time.Time) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := r.db.WithContext(ctx).
		Where("evaluation_active = ?", true).
		Where("evaluation_due_at IS NOT NULL AND evaluation_due_at < ?", reference).
		Order("evaluation_due_at ASC, id ASC").
		Find(&assignments).Error
	return assignments, err
}
