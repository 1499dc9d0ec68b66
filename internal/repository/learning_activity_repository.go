package repository

import (
	"context"
	"edu_assistant_backend/internal/model"

	"gorm.io/gorm"
)

type LearningActivityRepository struct {
	DB *gorm.DB
}

func NewLearningActivityRepository(db *gorm.DB) *LearningActivityRepository {
	return &LearningActivityRepository{DB: db}
}

func (r *LearningActivityRepository) WithContext(ctx context.Context) *LearningActivityRepository {
	return &LearningActivityRepository{DB: r.DB.WithContext(ctx)}
}

func (r *LearningActivityRepository) Create(activity *model.LearningActivity) error {
	return r.DB.Create(activity).Error
}

func (r *LearningActivityRepository) CountForKnowledgePoint(studentID, kpID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.LearningActivity{}).
		Where("student_id = ? AND knowledge_point_id = ?", studentID, kpID).
		Count(&count).Error
	return count, err
}

// LatestForKnowledgePoint 无记录时返回 gorm.ErrRecordNotFound
func (r *LearningActivityRepository) LatestForKnowledgePoint(studentID, kpID uint) (*model.LearningActivity, error) {
	var activity model.LearningActivity
	err := r.DB.Where("student_id = ? AND knowledge_point_id = ?", studentID, kpID).
		Order("timestamp DESC").
		First(&activity).Error
	return &activity, err
}

func (r *LearningActivityRepository) ListByStudent(studentID uint, limit int) ([]model.LearningActivity, error) {
	var list []model.LearningActivity
	query := r.DB.Where("student_id = ?", studentID).Order("timestamp DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&list).Error
	return list, err
}
