package models

import "time"

// Investment is a token allocation an investor makes toward another team.
type Investment struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	AssignmentID   uint      `gorm:"not null;uniqueIndex:idx_investment_triple;index:idx_investment_assignment_investor" json:"assignment_id"`
	InvestorID     uint      `gorm:"not null;uniqueIndex:idx_investment_triple;index:idx_investment_assignment_investor" json:"investor_id"`
	InvestedTeamID uint      `gorm:"not null;uniqueIndex:idx_investment_triple" json:"invested_team_id"`
	Tokens         int       `gorm:"not null" json:"tokens"`
	Incomplete     bool      `gorm:"not null;default:false" json:"incomplete"`
	Comment        string    `gorm:"type:text" json:"comment"`
	CreatedAt      time.Time `json:"created_at"`
}
