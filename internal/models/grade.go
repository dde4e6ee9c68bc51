package models

import "time"

// Tier is the discrete grade bucket derived from peer investment.
type Tier string

const (
	TierHigh       Tier = "high"
	TierMedian     Tier = "median"
	TierLow        Tier = "low"
	TierIncomplete Tier = "incomplete"
)

// Percentage returns the grade percentage awarded for the tier.
func (t Tier) Percentage() float64 {
	switch t {
	case TierHigh:
		return 100
	case TierMedian:
		return 80
	case TierLow:
		return 60
	default:
		return 0
	}
}

// Valid reports whether the tier is one of the known buckets.
func (t Tier) Valid() bool {
	switch t {
	case TierHigh, TierMedian, TierLow, TierIncomplete:
		return true
	}
	return false
}

// GradeStatus tracks whether students may see a grade.
type GradeStatus string

const (
	GradeStatusDraft     GradeStatus = "draft"
	GradeStatusPublished GradeStatus = "published"
)

// Grade is the investment-derived result of one team for an assignment.
type Grade struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	AssignmentID    uint        `gorm:"not null;uniqueIndex:idx_grade_assignment_team" json:"assignment_id"`
	TeamID          uint        `gorm:"not null;uniqueIndex:idx_grade_assignment_team" json:"team_id"`
	SubmissionID    uint        `gorm:"not null" json:"submission_id"`
	TrimmedMean     float64     `gorm:"not null" json:"trimmed_mean"`
	Tier            Tier        `gorm:"size:16;not null" json:"tier"`
	Percentage      float64     `gorm:"not null" json:"percentage"`
	InvestmentCount int         `gorm:"not null" json:"investment_count"`
	Status          GradeStatus `gorm:"size:16;not null;default:draft" json:"status"`
	ReviewerNote    string      `gorm:"type:text" json:"reviewer_note"`
	ReviewedBy      *uint       `json:"reviewed_by"`
	PublishedAt     *time.Time  `json:"published_at"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// IsPublished reports whether students may see the grade.
func (g Grade) IsPublished() bool {
	return g.Status == GradeStatusPublished
}
