package model

import (
	"time"

	"gorm.io/datatypes"
)

type ActivityType string

const (
	ActivityView     ActivityType = "view"
	ActivityPractice ActivityType = "practice"
	ActivityQuiz     ActivityType = "quiz"
	ActivityReview   ActivityType = "review"
)

func (t ActivityType) Valid() bool {
	switch t {
	case ActivityView, ActivityPractice, ActivityQuiz, ActivityReview:
		return true
	}
	return false
}

// LearningActivity 学习行为日志，只追加
type LearningActivity struct {
	ID               uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	StudentID        uint           `gorm:"not null;index:idx_activity_student_kp" json:"studentId"`
	CourseID         uint           `gorm:"not null;index" json:"courseId"`
	KnowledgePointID uint           `gorm:"not null;index:idx_activity_student_kp" json:"knowledgePointId"`
	ActivityType     ActivityType   `gorm:"size:20;not null" json:"activityType"`
	DurationSeconds  int            `gorm:"not null;default:0" json:"durationSeconds"`
	Metadata         datatypes.JSON `json:"metadata,omitempty"`
	Timestamp        time.Time      `gorm:"not null;index" json:"timestamp"`
	CreatedAt        time.Time      `json:"createdAt"`
}

func (LearningActivity) TableName() string {
	return "learning_activities"
}
