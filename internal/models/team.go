package models

import "time"

// TeamSize is the number of members a team is formed with.
const TeamSize = 2

// Team is a group of students submitting work together within a course.
type Team struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	CourseID  uint         `gorm:"not null;index" json:"course_id"`
	Name      string       `gorm:"size:255;not null" json:"name"`
	Locked    bool         `gorm:"not null;default:false" json:"locked"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Members   []TeamMember `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"members"`
}

// TeamMember binds a student to a team. A student joins at most one team per course.
type TeamMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TeamID    uint      `gorm:"not null;index" json:"team_id"`
	CourseID  uint      `gorm:"not null;uniqueIndex:idx_team_member_course_student" json:"course_id"`
	StudentID uint      `gorm:"not null;uniqueIndex:idx_team_member_course_student" json:"student_id"`
	CreatedAt time.Time `json:"created_at"`
}

// HasMember reports whether the student belongs to the team.
func (t Team) HasMember(studentID uint) bool {
	for _, member := range t.Members {
		if member.StudentID == studentID {
			return true
		}
	}
	return false
}

// MemberIDs returns the student identifiers of the team in join order.
func (t Team) MemberIDs() []uint {
	ids := make([]uint, 0, len(t.Members))
	for _, member := range t.Members {
		ids = append(ids, member.StudentID)
	}
	return ids
}
