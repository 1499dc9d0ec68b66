package model

import "time"

// swagger:model KnowledgePoint
type KnowledgePoint struct {
	BaseModel
	CourseID    uint             `gorm:"index;not null" json:"courseId"`
	Name        string           `gorm:"size:200;not null" json:"name"`
	Description string           `gorm:"type:text" json:"description"`
	ParentID    *uint            `gorm:"index" json:"parentId,omitempty"`
	Children    []KnowledgePoint `gorm:"foreignKey:ParentID" json:"children,omitempty"`
}

func (KnowledgePoint) TableName() string {
	return "knowledge_points"
}

// AssignmentKnowledgePoint 作业与知识点的关联，Weight 默认 1.0
type AssignmentKnowledgePoint struct {
	AssignmentID     uint    `gorm:"primaryKey" json:"assignmentId"`
	KnowledgePointID uint    `gorm:"primaryKey;index" json:"knowledgePointId"`
	Weight           float64 `gorm:"not null;default:1" json:"weight"`
}

func (AssignmentKnowledgePoint) TableName() string {
	return "assignment_knowledge_points"
}

// StudentKnowledgePoint 学生对知识点的掌握度，取值 [0,1]，两位小数
type StudentKnowledgePoint struct {
	ID               uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	StudentID        uint            `gorm:"not null;uniqueIndex:idx_student_kp" json:"studentId"`
	KnowledgePointID uint            `gorm:"not null;uniqueIndex:idx_student_kp;index" json:"knowledgePointId"`
	MasteryLevel     float64         `gorm:"not null;default:0" json:"masteryLevel"`
	LastInteraction  *time.Time      `json:"lastInteraction,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
	KnowledgePoint   *KnowledgePoint `gorm:"foreignKey:KnowledgePointID" json:"knowledgePoint,omitempty"`
}

func (StudentKnowledgePoint) TableName() string {
	return "student_knowledge_points"
}
