package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/peerinvest-api/internal/models"
)

// TeamRepository reads and forms course teams.
type TeamRepository interface {
	ListByCourse(ctx context.Context, courseID uint) ([]models.Team, error)
	FindByStudent(ctx context.Context, courseID, studentID uint) (models.Team, error)
	ListMembers(ctx context.Context, teamIDs []uint) ([]models.TeamMember, error)
	Create(ctx context.Context, team *models.Team) error
}

type teamRepository struct {
	db *gorm.DB
}

// NewTeamRepository instantiates a GORM-backed repository.
func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &teamRepository{db: db}
}

func (r *teamRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.Team, error) {
	var teams []models.Team
	if err := r.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("course_id = ?", courseID).
		Order("id ASC").
		Find(&teams).Error; err != nil {
		return nil, err
	}

	return teams, nil
}

func (r *teamRepository) FindByStudent(ctx context.Context, courseID, studentID uint) (models.Team, error) {
	var member models.TeamMember
	if err := r.db.WithContext(ctx).
		Where("course_id = ? AND student_id = ?", courseID, studentID).
		First(&member).Error; err != nil {
		return models.Team{}, err
	}

	var team models.Team
	if err := r.db.WithContext(ctx).Preload("Members").First(&team, member.TeamID).Error; err != nil {
		return models.Team{}, err
	}

	return team, nil
}

func (r *teamRepository) ListMembers(ctx context.Context, teamIDs []uint) ([]models.TeamMember, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}

	var members []models.TeamMember
	if err := r.db.WithContext(ctx).
		Where("team_id IN ?", teamIDs).
		Order("team_id ASC, id ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}

	return members, nil
}

// Create stores the team with its members and enrolls every member in the course, in one
// transaction. It fails with ErrMemberConflict when a member is already teamed up.
func (r *teamRepository) Create(ctx context.Context, team *models.Team) error {
	studentIDs := team.MemberIDs()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var teamed int64
		if err := tx.Model(&models.TeamMember{}).
			Where("course_id = ? AND student_id IN ?", team.CourseID, studentIDs).
			Count(&teamed).Error; err != nil {
			return err
		}
		if teamed > 0 {
			return ErrMemberConflict
		}

		for _, studentID := range studentIDs {
			enrollment := models.Enrollment{CourseID: team.CourseID, StudentID: studentID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&enrollment).Error; err != nil {
				return err
			}
		}
		for i := range team.Members {
			team.Members[i].CourseID = team.CourseID
		}
		return tx.Create(team).Error
	})
}
