package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/peerinvest-api/internal/database"
	"github.com/noah-isme/peerinvest-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

// seedCourse creates a course with two-member teams that all submitted the assignment.
func seedCourse(t *testing.T, db *gorm.DB, teams int) (models.Assignment, []models.Team) {
	t.Helper()
	course := models.Course{Name: "Software Engineering"}
	require.NoError(t, db.Create(&course).Error)

	due := time.Now().Add(-time.Hour)
	assignment := models.Assignment{CourseID: course.ID, Title: "Sprint 1", DueDate: due}
	require.NoError(t, db.Create(&assignment).Error)

	created := make([]models.Team, 0, teams)
	for i := 0; i < teams; i++ {
		team := models.Team{CourseID: course.ID, Name: fmt.Sprintf("Team %d", i+1)}
		require.NoError(t, db.Create(&team).Error)
		for j := 0; j < models.TeamSize; j++ {
			student := models.Student{Name: fmt.Sprintf("s%d-%d", i, j), Email: fmt.Sprintf("s%d-%d@example.edu", i, j)}
			require.NoError(t, db.Create(&student).Error)
			require.NoError(t, db.Create(&models.Enrollment{CourseID: course.ID, StudentID: student.ID}).Error)
			member := models.TeamMember{TeamID: team.ID, CourseID: course.ID, StudentID: student.ID}
			require.NoError(t, db.Create(&member).Error)
			team.Members = append(team.Members, member)
		}
		submittedAt := due.Add(-time.Hour)
		submission := models.Submission{AssignmentID: assignment.ID, TeamID: team.ID, Status: models.SubmissionStatusSubmitted, SubmittedAt: &submittedAt}
		require.NoError(t, db.Create(&submission).Error)
		created = append(created, team)
	}

	return assignment, created
}
