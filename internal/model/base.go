package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// swagger:model
type BaseModel struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// UUIDBase 用于对外暴露、不希望被枚举的记录（如知识库条目）
type UUIDBase struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (b *UUIDBase) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return
}

// AllModels 参与自动迁移的全部模型，顺序即建表顺序
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Course{},
		&Enrollment{},
		&Assignment{},
		&Question{},
		&QuestionOption{},
		&StudentAssignment{},
		&StudentResponse{},
		&KnowledgePoint{},
		&AssignmentKnowledgePoint{},
		&StudentKnowledgePoint{},
		&LearningActivity{},
		&KnowledgeEntry{},
	}
}
