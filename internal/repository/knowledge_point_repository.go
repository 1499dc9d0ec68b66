package repository

import (
	"context"
	"edu_assistant_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type KnowledgePointRepository struct {
	DB *gorm.DB
}

func NewKnowledgePointRepository(db *gorm.DB) *KnowledgePointRepository {
	return &KnowledgePointRepository{DB: db}
}

func (r *KnowledgePointRepository) WithTx(tx *gorm.DB) *KnowledgePointRepository {
	return &KnowledgePointRepository{DB: tx}
}

func (r *KnowledgePointRepository) WithContext(ctx context.Context) *KnowledgePointRepository {
	return &KnowledgePointRepository{DB: r.DB.WithContext(ctx)}
}

func (r *KnowledgePointRepository) Create(kp *model.KnowledgePoint) error {
	return r.DB.Omit(clause.Associations).Create(kp).Error
}

func (r *KnowledgePointRepository) FindByID(id uint) (*model.KnowledgePoint, error) {
	var kp model.KnowledgePoint
	err := r.DB.First(&kp, id).Error
	return &kp, err
}

func (r *KnowledgePointRepository) Save(kp *model.KnowledgePoint) error {
	return r.DB.Omit(clause.Associations).Save(kp).Error
}

func (r *KnowledgePointRepository) Delete(id uint) error {
	return r.DB.Delete(&model.KnowledgePoint{}, id).Error
}

func (r *KnowledgePointRepository) CountChildren(id uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.KnowledgePoint{}).Where("parent_id = ?", id).Count(&count).Error
	return count, err
}

// ParentOf 返回父节点 ID，根节点返回 nil
func (r *KnowledgePointRepository) ParentOf(id uint) (*uint, error) {
	var kp model.KnowledgePoint
	if err := r.DB.Select("id", "parent_id").First(&kp, id).Error; err != nil {
		return nil, err
	}
	return kp.ParentID, nil
}

func (r *KnowledgePointRepository) ListByCourse(courseID uint) ([]model.KnowledgePoint, error) {
	var kps []model.KnowledgePoint
	err := r.DB.Where("course_id = ?", courseID).Order("id ASC").Find(&kps).Error
	return kps, err
}

func (r *KnowledgePointRepository) CountInCourse(courseID uint, ids []uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.KnowledgePoint{}).Where("course_id = ? AND id IN ?", courseID, ids).Count(&count).Error
	return count, err
}

// ReplaceAssignmentLinks 删除旧关联后写入新关联，调用方负责事务
func (r *KnowledgePointRepository) ReplaceAssignmentLinks(assignmentID uint, links []model.AssignmentKnowledgePoint) error {
	if err := r.DB.Where("assignment_id = ?", assignmentID).Delete(&model.AssignmentKnowledgePoint{}).Error; err != nil {
		return err
	}
	if len(links) == 0 {
		return nil
	}
	return r.DB.Create(&links).Error
}

func (r *KnowledgePointRepository) ListAssignmentLinks(assignmentID uint) ([]model.AssignmentKnowledgePoint, error) {
	var links []model.AssignmentKnowledgePoint
	err := r.DB.Where("assignment_id = ?", assignmentID).Order("knowledge_point_id ASC").Find(&links).Error
	return links, err
}
