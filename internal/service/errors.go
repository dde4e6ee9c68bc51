package service

import "errors"

var (
	// ErrAssignmentNotFound is returned when the assignment does not exist.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrGradeNotFound is returned when the grade does not exist.
	ErrGradeNotFound = errors.New("grade not found")
	// ErrEvaluationPhaseActive blocks redistribution while reviews are under way.
	ErrEvaluationPhaseActive = errors.New("evaluation phase is active")
	// ErrEvaluationPhaseInactive is returned when closing a phase that never opened.
	ErrEvaluationPhaseInactive = errors.New("evaluation phase is not active")
	// ErrGradeAlreadyPublished makes published grades read-only.
	ErrGradeAlreadyPublished = errors.New("grade already published")
	// ErrNotificationNotFound is returned when the notification does not belong to the user.
	ErrNotificationNotFound = errors.New("notification not found")
	// ErrLockTimeout is returned when a keyed lock could not be acquired in time.
	ErrLockTimeout = errors.New("timed out waiting for lock")
	// ErrTeamsLocked blocks team formation once a course's evaluation has started.
	ErrTeamsLocked = errors.New("teams are locked for this course")
	// ErrStudentAlreadyTeamed is returned when a member already belongs to a course team.
	ErrStudentAlreadyTeamed = errors.New("student already belongs to a team in this course")
)
