package model

import "time"

type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeFillInBlank    QuestionType = "fill_in_blank"
	QuestionTypeShortAnswer    QuestionType = "short_answer"
)

// swagger:model Assignment
type Assignment struct {
	BaseModel
	CourseID    uint       `gorm:"index;not null" json:"courseId"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	TotalPoints float64    `gorm:"not null;default:100" json:"totalPoints"`
	Questions   []Question `gorm:"foreignKey:AssignmentID" json:"questions,omitempty"`
}

func (Assignment) TableName() string {
	return "assignments"
}

// swagger:model Question
type Question struct {
	BaseModel
	AssignmentID  uint             `gorm:"not null;uniqueIndex:idx_question_order" json:"assignmentId"`
	Text          string           `gorm:"type:text;not null" json:"text"`
	Type          QuestionType     `gorm:"size:32;not null" json:"type"`
	Points        float64          `gorm:"not null" json:"points"`
	Order         int              `gorm:"column:sort_order;not null;uniqueIndex:idx_question_order" json:"order"`
	CorrectAnswer string           `gorm:"type:text" json:"-"`
	Options       []QuestionOption `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

// swagger:model QuestionOption
type QuestionOption struct {
	BaseModel
	QuestionID uint   `gorm:"index;not null" json:"questionId"`
	Text       string `gorm:"size:500;not null" json:"text"`
	IsCorrect  bool   `gorm:"default:false" json:"-"`
	Order      int    `gorm:"column:sort_order;not null" json:"order"`
}

func (QuestionOption) TableName() string {
	return "question_options"
}
