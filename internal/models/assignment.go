package models

import "time"

// DistributionMode selects whether students or whole teams act as evaluators.
type DistributionMode string

const (
	// DistributionModeStudent assigns reviews to individual students.
	DistributionModeStudent DistributionMode = "student"
	// DistributionModeTeam assigns reviews to teams.
	DistributionModeTeam DistributionMode = "team"
)

// Assignment represents a team assignment that is peer-evaluated through investments.
type Assignment struct {
	ID                  uint             `gorm:"primaryKey" json:"id"`
	CourseID            uint             `gorm:"not null;index" json:"course_id"`
	Title               string           `gorm:"size:255;not null" json:"title"`
	Description         string           `gorm:"type:text" json:"description"`
	DueDate             time.Time        `gorm:"not null" json:"due_date"`
	DistributionMode    DistributionMode `gorm:"size:16;not null;default:student" json:"distribution_mode"`
	ReviewsPerEvaluator int              `gorm:"not null;default:3" json:"reviews_per_evaluator"`
	EvaluationActive    bool             `gorm:"not null;default:false" json:"evaluation_active"`
	EvaluationStartsAt  *time.Time       `json:"evaluation_starts_at"`
	EvaluationDueAt     *time.Time       `json:"evaluation_due_at"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}
