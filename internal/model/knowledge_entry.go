package model

// KnowledgeEntry 知识库条目
type KnowledgeEntry struct {
	UUIDBase
	Title    string `gorm:"size:255;not null;index" json:"title"`
	Content  string `gorm:"type:text;not null" json:"content"`
	Category string `gorm:"size:100;index" json:"category"`
	Tags     string `gorm:"size:500" json:"tags"`
	Source   string `gorm:"size:255" json:"source"`
	CourseID *uint  `gorm:"index" json:"courseId,omitempty"`
}

func (KnowledgeEntry) TableName() string {
	return "knowledge_entries"
}
