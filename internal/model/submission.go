package model

import "time"

type GradingMode string

const (
	GradingModeNone        GradingMode = ""
	GradingModePerQuestion GradingMode = "per_question"
	GradingModeWhole       GradingMode = "whole"
)

// StudentAssignment 学生与作业的关联，(student_id, assignment_id) 唯一
type StudentAssignment struct {
	BaseModel
	StudentID      uint        `gorm:"not null;uniqueIndex:idx_student_assignment" json:"studentId"`
	AssignmentID   uint        `gorm:"not null;uniqueIndex:idx_student_assignment;index" json:"assignmentId"`
	Completed      bool        `gorm:"not null;default:false" json:"completed"`
	Answer         string      `gorm:"type:text" json:"answer"`
	Score          *float64    `json:"score"`
	Feedback       string      `gorm:"type:text" json:"feedback"`
	Attempts       int         `gorm:"not null;default:0" json:"attempts"`
	GradingMode    GradingMode `gorm:"size:20;not null;default:''" json:"gradingMode"`
	SubmittedAt    *time.Time  `json:"submittedAt,omitempty"`
	CompletionDate *time.Time  `json:"completionDate,omitempty"`
	Assignment     *Assignment `gorm:"foreignKey:AssignmentID" json:"assignment,omitempty"`
}

func (StudentAssignment) TableName() string {
	return "student_assignments"
}

// StudentResponse 学生对单题的作答，(student_assignment_id, question_id) 唯一
type StudentResponse struct {
	BaseModel
	StudentAssignmentID uint       `gorm:"not null;uniqueIndex:idx_response_question" json:"studentAssignmentId"`
	QuestionID          uint       `gorm:"not null;uniqueIndex:idx_response_question;index" json:"questionId"`
	AnswerText          *string    `gorm:"type:text" json:"answerText,omitempty"`
	SelectedOptionID    *uint      `json:"selectedOptionId,omitempty"`
	Score               *float64   `json:"score"`
	Feedback            string     `gorm:"type:text" json:"feedback"`
	GradedAt            *time.Time `json:"gradedAt,omitempty"`
	GradedBy            *uint      `json:"gradedBy,omitempty"`
	Question            *Question  `gorm:"foreignKey:QuestionID" json:"question,omitempty"`
}

func (StudentResponse) TableName() string {
	return "student_responses"
}
