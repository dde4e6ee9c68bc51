package repository

import "errors"

// ErrConditionFailed indicates a guarded update matched no rows because the guarded
// state changed underneath the caller.
var ErrConditionFailed = errors.New("conditional update matched no rows")

// ErrMemberConflict indicates a student already belongs to a team of the course.
var ErrMemberConflict = errors.New("student already belongs to a team in this course")
