package repository

import (
	"context"
	"edu_assistant_backend/internal/model"
	"strings"

	"gorm.io/gorm"
)

type KnowledgeEntryRepository struct {
	DB *gorm.DB
}

func NewKnowledgeEntryRepository(db *gorm.DB) *KnowledgeEntryRepository {
	return &KnowledgeEntryRepository{DB: db}
}

func (r *KnowledgeEntryRepository) WithContext(ctx context.Context) *KnowledgeEntryRepository {
	return &KnowledgeEntryRepository{DB: r.DB.WithContext(ctx)}
}

func (r *KnowledgeEntryRepository) Create(entry *model.KnowledgeEntry) error {
	return r.DB.Create(entry).Error
}

func (r *KnowledgeEntryRepository) CreateBatch(entries []model.KnowledgeEntry, batchSize int) error {
	if len(entries) == 0 {
		return nil
	}
	return r.DB.CreateInBatches(&entries, batchSize).Error
}

type KnowledgeEntryFilter struct {
	Query    string
	CourseID *uint
	Category string
	Limit    int
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

// Search 标题、内容、标签的 LIKE 匹配
func (r *KnowledgeEntryRepository) Search(f KnowledgeEntryFilter) ([]model.KnowledgeEntry, error) {
	query := r.DB.Model(&model.KnowledgeEntry{})
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + escapeLike(strings.ToLower(q)) + "%"
		query = query.Where("(LOWER(title) LIKE ? ESCAPE '!' OR LOWER(content) LIKE ? ESCAPE '!' OR LOWER(tags) LIKE ? ESCAPE '!')", like, like, like)
	}
	if f.CourseID != nil {
		query = query.Where("course_id = ?", *f.CourseID)
	}
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var entries []model.KnowledgeEntry
	err := query.Order("created_at DESC").Limit(limit).Find(&entries).Error
	return entries, err
}
