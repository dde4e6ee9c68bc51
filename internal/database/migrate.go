package database

import (
	"gorm.io/gorm"

	"github.com/noah-isme/peerinvest-api/internal/models"
)

// Migrate creates or updates every table used by the service.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Course{},
		&models.Student{},
		&models.Enrollment{},
		&models.Team{},
		&models.TeamMember{},
		&models.Assignment{},
		&models.Submission{},
		&models.EvaluationAssignment{},
		&models.Investment{},
		&models.Grade{},
		&models.InterestRecord{},
		&models.Notification{},
		&models.ActivityLog{},
	)
}
