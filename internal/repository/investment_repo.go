package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/peerinvest-api/internal/engine"
	"github.com/noah-isme/peerinvest-api/internal/models"
)

// LedgerGuard validates a write against the state read inside its transaction.
type LedgerGuard func(state engine.LedgerState) error

// InvestmentWrite is a pending investment plus the evaluator identities that may hold
// the matching evaluation assignment.
type InvestmentWrite struct {
	Investment models.Investment
	Evaluators []models.Evaluator
}

// InvestmentRepository records and reads investments.
type InvestmentRepository interface {
	// Record reads the ledger state, runs guard and, when it passes, inserts the
	// investment and completes the evaluation assignment in one transaction.
	Record(ctx context.Context, write InvestmentWrite, completedAt time.Time, guard LedgerGuard) (models.Investment, error)
	ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Investment, error)
	ListByInvestor(ctx context.Context, assignmentID, investorID uint) ([]models.Investment, error)
	ListInvestorIDs(ctx context.Context, assignmentID uint) ([]uint, error)
}

type investmentRepository struct {
	db *gorm.DB
}

type ledgerTotals struct {
	Count int64
	Total int64
}

// NewInvestmentRepository instantiates the repository.
func NewInvestmentRepository(db *gorm.DB) InvestmentRepository {
	return &investmentRepository{db: db}
}

func (r *investmentRepository) Record(ctx context.Context, write InvestmentWrite, completedAt time.Time, guard LedgerGuard) (models.Investment, error) {
	investment := write.Investment

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var assignment models.Assignment
		if err := tx.First(&assignment, investment.AssignmentID).Error; err != nil {
			return err
		}

		state := engine.LedgerState{
			PhaseClosed:     !assignment.EvaluationActive,
			EvaluationDueAt: assignment.EvaluationDueAt,
		}

		var evaluation models.EvaluationAssignment
		if len(write.Evaluators) > 0 {
			condition, args := evaluatorCondition(write.Evaluators)
			result := tx.Where("assignment_id = ? AND evaluated_team_id = ?", investment.AssignmentID, investment.InvestedTeamID).
				Where(condition, args...).
				Limit(1).
				Find(&evaluation)
			if result.Error != nil {
				return result.Error
			}
			state.Assigned = result.RowsAffected > 0
		}

		var totals ledgerTotals
		if err := tx.Model(&models.Investment{}).
			Select("COUNT(*) AS count, COALESCE(SUM(tokens), 0) AS total").
			Where("assignment_id = ? AND investor_id = ?", investment.AssignmentID, investment.InvestorID).
			Scan(&totals).Error; err != nil {
			return err
		}
		state.PriorCount = int(totals.Count)
		state.PriorTokens = int(totals.Total)

		var duplicates int64
		if err := tx.Model(&models.Investment{}).
			Where("assignment_id = ? AND investor_id = ? AND invested_team_id = ?", investment.AssignmentID, investment.InvestorID, investment.InvestedTeamID).
			Count(&duplicates).Error; err != nil {
			return err
		}
		state.AlreadyInvested = duplicates > 0

		if err := guard(state); err != nil {
			return err
		}

		if err := tx.Create(&investment).Error; err != nil {
			return err
		}

		return tx.Model(&models.EvaluationAssignment{}).
			Where("id = ?", evaluation.ID).
			Updates(map[string]interface{}{
				"status":       models.EvaluationStatusCompleted,
				"completed_at": completedAt,
			}).Error
	})
	if err != nil {
		return models.Investment{}, err
	}

	return investment, nil
}

func (r *investmentRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Investment, error) {
	var investments []models.Investment
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("id ASC").
		Find(&investments).Error; err != nil {
		return nil, err
	}

	return investments, nil
}

func (r *investmentRepository) ListByInvestor(ctx context.Context, assignmentID, investorID uint) ([]models.Investment, error) {
	var investments []models.Investment
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND investor_id = ?", assignmentID, investorID).
		Order("id ASC").
		Find(&investments).Error; err != nil {
		return nil, err
	}

	return investments, nil
}

func (r *investmentRepository) ListInvestorIDs(ctx context.Context, assignmentID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.Investment{}).
		Where("assignment_id = ?", assignmentID).
		Distinct("investor_id").
		Order("investor_id ASC").
		Pluck("investor_id", &ids).Error; err != nil {
		return nil, err
	}

	return ids, nil
}
