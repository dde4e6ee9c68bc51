package models

import "time"

// InterestRecord stores the interest a student earned on one investment.
type InterestRecord struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	StudentID      uint      `gorm:"not null;uniqueIndex:idx_interest_triple" json:"student_id"`
	AssignmentID   uint      `gorm:"not null;uniqueIndex:idx_interest_triple" json:"assignment_id"`
	InvestedTeamID uint      `gorm:"not null;uniqueIndex:idx_interest_triple" json:"invested_team_id"`
	TokensInvested int       `gorm:"not null" json:"tokens_invested"`
	Tier           Tier      `gorm:"size:16;not null" json:"tier"`
	InterestEarned float64   `gorm:"not null" json:"interest_earned"`
	CreatedAt      time.Time `json:"created_at"`
}
