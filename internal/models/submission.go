package models

import "time"

// SubmissionStatus tracks whether a submission can be evaluated.
type SubmissionStatus string

const (
	// SubmissionStatusDraft indicates the team is still working on the submission.
	SubmissionStatusDraft SubmissionStatus = "draft"
	// SubmissionStatusSubmitted indicates the submission is final and evaluable.
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
)

// Submission is the work a team hands in for an assignment.
type Submission struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	AssignmentID uint             `gorm:"not null;uniqueIndex:idx_submission_assignment_team" json:"assignment_id"`
	TeamID       uint             `gorm:"not null;uniqueIndex:idx_submission_assignment_team" json:"team_id"`
	Status       SubmissionStatus `gorm:"size:16;not null;default:draft" json:"status"`
	FileURL      string           `gorm:"size:512" json:"file_url"`
	SubmittedAt  *time.Time       `json:"submitted_at"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// IsSubmitted reports whether the submission is evaluable.
func (s Submission) IsSubmitted() bool {
	return s.Status == SubmissionStatusSubmitted
}
