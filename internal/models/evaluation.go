package models

import (
	"fmt"
	"time"
)

// EvaluatorKind discriminates the Evaluator union.
type EvaluatorKind string

const (
	// EvaluatorKindStudent marks an individual student reviewer.
	EvaluatorKindStudent EvaluatorKind = "student"
	// EvaluatorKindTeam marks a team reviewing as a whole.
	EvaluatorKindTeam EvaluatorKind = "team"
)

// Evaluator is either a student or a team, never both.
type Evaluator struct {
	Kind EvaluatorKind `json:"kind"`
	ID   uint          `json:"id"`
}

// StudentEvaluator builds the student variant.
func StudentEvaluator(studentID uint) Evaluator {
	return Evaluator{Kind: EvaluatorKindStudent, ID: studentID}
}

// TeamEvaluator builds the team variant.
func TeamEvaluator(teamID uint) Evaluator {
	return Evaluator{Kind: EvaluatorKindTeam, ID: teamID}
}

// IsTeam reports whether the evaluator is a team.
func (e Evaluator) IsTeam() bool {
	return e.Kind == EvaluatorKindTeam
}

func (e Evaluator) String() string {
	return fmt.Sprintf("%s:%d", e.Kind, e.ID)
}

// EvaluationStatus is the lifecycle state of an evaluation assignment.
type EvaluationStatus string

const (
	EvaluationStatusAssigned  EvaluationStatus = "assigned"
	EvaluationStatusCompleted EvaluationStatus = "completed"
	EvaluationStatusLate      EvaluationStatus = "late"
	EvaluationStatusMissed    EvaluationStatus = "missed"
)

// EvaluationAssignment asks an evaluator to review one team's submission.
type EvaluationAssignment struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	AssignmentID    uint             `gorm:"not null;uniqueIndex:idx_evaluation_pair" json:"assignment_id"`
	EvaluatorKind   EvaluatorKind    `gorm:"size:16;not null;uniqueIndex:idx_evaluation_pair" json:"evaluator_kind"`
	EvaluatorID     uint             `gorm:"not null;uniqueIndex:idx_evaluation_pair" json:"evaluator_id"`
	EvaluatedTeamID uint             `gorm:"not null;uniqueIndex:idx_evaluation_pair" json:"evaluated_team_id"`
	SubmissionID    uint             `gorm:"not null" json:"submission_id"`
	Status          EvaluationStatus `gorm:"size:16;not null;default:assigned" json:"status"`
	DueAt           *time.Time       `json:"due_at"`
	CompletedAt     *time.Time       `json:"completed_at"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Evaluator returns the typed evaluator stored in the row.
func (e EvaluationAssignment) Evaluator() Evaluator {
	return Evaluator{Kind: e.EvaluatorKind, ID: e.EvaluatorID}
}

// StatusAt reports the row's status as observed at now. An assigned row whose due
// date has passed reads as late until the phase closes and marks it missed.
func (e EvaluationAssignment) StatusAt(now time.Time) EvaluationStatus {
	if e.Status == EvaluationStatusAssigned && e.DueAt != nil && now.After(*e.DueAt) {
		return EvaluationStatusLate
	}
	return e.Status
}
