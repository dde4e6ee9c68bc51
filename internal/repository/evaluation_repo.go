package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/peerinvest-api/internal/models"
)

const evaluationBatchSize = 200

// EvaluationRepository persists review distributions.
type EvaluationRepository interface {
	// ReplaceForAssignment opens the evaluation phase and swaps the whole distribution
	// atomically. It fails with ErrConditionFailed when the phase is already active.
	ReplaceForAssignment(ctx context.Context, assignment models.Assignment, rows []models.EvaluationAssignment, startsAt time.Time, dueAt *time.Time) error
	ListByAssignment(ctx context.Context, assignmentID uint) ([]models.EvaluationAssignment, error)
	ListForEvaluators(ctx context.Context, assignmentID uint, evaluators []models.Evaluator) ([]models.EvaluationAssignment, error)
	// CloseAssignment ends the evaluation phase and marks unfinished reviews missed.
	CloseAssignment(ctx context.Context, assignment models.Assignment) (int64, error)
}

type evaluationRepository struct {
	db *gorm.DB
}

// NewEvaluationRepository instantiates the repository.
func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) ReplaceForAssignment(ctx context.Context, assignment models.Assignment, rows []models.EvaluationAssignment, startsAt time.Time, dueAt *time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		update := tx.Model(&models.Assignment{}).
			Where("id = ? AND evaluation_active = ?", assignment.ID, false).
			Updates(map[string]interface{}{
				"evaluation_active":    true,
				"evaluation_starts_at": startsAt,
				"evaluation_due_at":    dueAt,
			})
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			return ErrConditionFailed
		}

		if err := tx.Where("assignment_id = ?", assignment.ID).Delete(&models.EvaluationAssignment{}).Error; err != nil {
			return err
		}

		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, evaluationBatchSize).Error; err != nil {
				return err
			}
		}

		return tx.Model(&models.Team{}).
			Where("course_id = ?", assignment.CourseID).
			Update("locked", true).Error
	})
}

func (r *evaluationRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.EvaluationAssignment, error) {
	var rows []models.EvaluationAssignment
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("evaluator_kind ASC, evaluator_id ASC, evaluated_team_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	return rows, nil
}

func (r *evaluationRepository) ListForEvaluators(ctx context.Context, assignmentID uint, evaluators []models.Evaluator) ([]models.EvaluationAssignment, error) {
	if len(evaluators) == 0 {
		return nil, nil
	}

	condition, args := evaluatorCondition(evaluators)

	var rows []models.EvaluationAssignment
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Where(condition, args...).
		Order("evaluated_team_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	return rows, nil
}

func (r *evaluationRepository) CloseAssignment(ctx context.Context, assignment models.Assignment) (int64, error) {
	var missed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Assignment{}).
			Where("id = ?", assignment.ID).
			Update("evaluation_active", false).Error; err != nil {
			return err
		}

		update := tx.Model(&models.EvaluationAssignment{}).
			Where("assignment_id = ? AND status = ?", assignment.ID, models.EvaluationStatusAssigned).
			Update("status", models.EvaluationStatusMissed)
		if update.Error != nil {
			return update.Error
		}
		missed = update.RowsAffected

		var stillActive int64
		if err := tx.Model(&models.Assignment{}).
			Where("course_id = ? AND evaluation_active = ? AND id <> ?", assignment.CourseID, true, assignment.ID).
			Count(&stillActive).Error; err != nil {
			return err
		}
		if stillActive > 0 {
			return nil
		}

		return tx.Model(&models.Team{}).
			Where("course_id = ?", assignment.CourseID).
			Update("locked", false).Error
	})
	if err != nil {
		return 0, err
	}

	return missed, nil
}

// evaluatorCondition renders "(kind = ? AND id = ?) OR ..." for the given evaluators.
func evaluatorCondition(evaluators []models.Evaluator) (string, []interface{}) {
	clauses := make([]string, 0, len(evaluators))
	args := make([]interface{}, 0, len(evaluators)*2)
	for _, evaluator := range evaluators {
		clauses = append(clauses, "(evaluator_kind = ? AND evaluator_id = ?)")
		args = append(args, evaluator.Kind, evaluator.ID)
	}
	return fmt.Sprintf("(%s)", strings.Join(clauses, " OR ")), args
}
