package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/peerinvest-api/internal/models"
)

// InterestRepository stores interest earned by investors.
type InterestRepository interface {
	ReplaceForStudentAssignment(ctx context.Context, studentID, assignmentID uint, records []models.InterestRecord) error
	ListByStudent(ctx context.Context, studentID uint) ([]models.InterestRecord, error)
}

type interestRepository struct {
	db *gorm.DB
}

// NewInterestRepository instantiates the repository.
func NewInterestRepository(db *gorm.DB) InterestRepository {
	return &interestRepository{db: db}
}

func (r *interestRepository) ReplaceForStudentAssignment(ctx context.Context, studentID, assignmentID uint, records []models.InterestRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("student_id = ? AND assignment_id = ?", studentID, assignmentID).
			Delete(&models.InterestRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.Create(&records).Error
	})
}

func (r *interestRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.InterestRecord, error) {
	var records []models.InterestRecord
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("assignment_id ASC, invested_team_id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}
