package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/peerinvest-api/internal/models"
)

// GradeRepository persists computed grades and their review state.
type GradeRepository interface {
	// ReplaceForAssignment drops any previous grades of the assignment and stores the new set.
	ReplaceForAssignment(ctx context.Context, assignmentID uint, grades []models.Grade) ([]models.Grade, error)
	ListByAssignment(ctx context.Context, assignmentID uint, publishedOnly bool) ([]models.Grade, error)
	GetByID(ctx context.Context, id uint) (models.Grade, error)
	Update(ctx context.Context, grade *models.Grade) error
	// Publish flips every draft grade of the assignment and returns the published rows.
	Publish(ctx context.Context, assignmentID uint, at time.Time) ([]models.Grade, error)
	TiersForAssignment(ctx context.Context, assignmentID uint) (map[uint]models.Tier, error)
}

type gradeRepository struct {
	db *gorm.DB
}

// NewGradeRepository instantiates the repository.
func NewGradeRepository(db *gorm.DB) GradeRepository {
	return &gradeRepository{db: db}
}

func (r *gradeRepository) ReplaceForAssignment(ctx context.Context, assignmentID uint, grades []models.Grade) ([]models.Grade, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var published int64
		if err := tx.Model(&models.Grade{}).
			Where("assignment_id = ? AND status = ?", assignmentID, models.GradeStatusPublished).
			Count(&published).Error; err != nil {
			return err
		}
		if published > 0 {
			return ErrConditionFailed
		}

		if err := tx.Where("assignment_id = ?", assignmentID).Delete(&models.Grade{}).Error; err != nil {
			return err
		}
		if len(grades) == 0 {
			return nil
		}
		return tx.Create(&grades).Error
	})
	if err != nil {
		return nil, err
	}

	return grades, nil
}

func (r *gradeRepository) ListByAssignment(ctx context.Context, assignmentID uint, publishedOnly bool) ([]models.Grade, error) {
	query := r.db.WithContext(ctx).Where("assignment_id = ?", assignmentID)
	if publishedOnly {
		query = query.Where("status = ?", models.GradeStatusPublished)
	}

	var grades []models.Grade
	if err := query.Order("trimmed_mean DESC, team_id ASC").Find(&grades).Error; err != nil {
		return nil, err
	}

	return grades, nil
}

func (r *gradeRepository) GetByID(ctx context.Context, id uint) (models.Grade, error) {
	var grade models.Grade
	if err := r.db.WithContext(ctx).First(&grade, id).Error; err != nil {
		return models.Grade{}, err
	}

	return grade, nil
}

func (r *gradeRepository) Update(ctx context.Context, grade *models.Grade) error {
	return r.db.WithContext(ctx).Save(grade).Error
}

func (r *gradeRepository) Publish(ctx context.Context, assignmentID uint, at time.Time) ([]models.Grade, error) {
	var published []models.Grade
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("assignment_id = ? AND status = ?", assignmentID, models.GradeStatusDraft).
			Order("team_id ASC").
			Find(&published).Error; err != nil {
			return err
		}
		if len(published) == 0 {
			return nil
		}

		ids := make([]uint, 0, len(published))
		for i := range published {
			ids = append(ids, published[i].ID)
			published[i].Status = models.GradeStatusPublished
			published[i].PublishedAt = &at
		}

		return tx.Model(&models.Grade{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"status":       models.GradeStatusPublished,
				"published_at": at,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	return published, nil
}

func (r *gradeRepository) TiersForAssignment(ctx context.Context, assignmentID uint) (map[uint]models.Tier, error) {
	var rows []struct {
		TeamID uint
		Tier   models.Tier
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Grade{}).
		Select("team_id, tier").
		Where("assignment_id = ?", assignmentID).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	tiers := make(map[uint]models.Tier, len(rows))
	for _, row := range rows {
		tiers[row.TeamID] = row.Tier
	}

	return tiers, nil
}
