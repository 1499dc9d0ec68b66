package repository

import (
	"context"
	"edu_assistant_backend/internal/model"

	"gorm.io/gorm"
)

type AssignmentRepository struct {
	DB *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{DB: db}
}

func (r *AssignmentRepository) WithTx(tx *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{DB: tx}
}

func (r *AssignmentRepository) WithContext(ctx context.Context) *AssignmentRepository {
	return &AssignmentRepository{DB: r.DB.WithContext(ctx)}
}

func orderBySort(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC")
}

func (r *AssignmentRepository) Create(assignment *model.Assignment) error {
	return r.DB.Omit("Questions").Create(assignment).Error
}

func (r *AssignmentRepository) FindByID(id uint) (*model.Assignment, error) {
	var assignment model.Assignment
	err := r.DB.First(&assignment, id).Error
	return &assignment, err
}

// FindWithQuestions 预加载题目及选项，均按 sort_order 排序
func (r *AssignmentRepository) FindWithQuestions(id uint) (*model.Assignment, error) {
	var assignment model.Assignment
	err := r.DB.
		Preload("Questions", orderBySort).
		Preload("Questions.Options", orderBySort).
		First(&assignment, id).Error
	return &assignment, err
}

func (r *AssignmentRepository) ListByCourse(courseID uint) ([]model.Assignment, error) {
	var assignments []model.Assignment
	err := r.DB.Where("course_id = ?", courseID).Order("id ASC").Find(&assignments).Error
	return assignments, err
}

// NextQuestionOrder 已软删除的题目仍占用唯一索引，因此计入 Unscoped
func (r *AssignmentRepository) NextQuestionOrder(assignmentID uint) (int, error) {
	var maxOrder int
	err := r.DB.Unscoped().Model(&model.Question{}).
		Where("assignment_id = ?", assignmentID).
		Select("COALESCE(MAX(sort_order), 0)").
		Scan(&maxOrder).Error
	return maxOrder + 1, err
}

// CreateQuestion 选项随题目一并写入
func (r *AssignmentRepository) CreateQuestion(question *model.Question) error {
	return r.DB.Create(question).Error
}

func (r *AssignmentRepository) FindQuestion(id uint) (*model.Question, error) {
	var question model.Question
	err := r.DB.Preload("Options", orderBySort).First(&question, id).Error
	return &question, err
}

func (r *AssignmentRepository) ListQuestions(assignmentID uint) ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.Preload("Options", orderBySort).
		Where("assignment_id = ?", assignmentID).
		Order("sort_order ASC").
		Find(&questions).Error
	return questions, err
}

func (r *AssignmentRepository) ListOptions(questionID uint) ([]model.QuestionOption, error) {
	var options []model.QuestionOption
	err := r.DB.Where("question_id = ?", questionID).Order("sort_order ASC").Find(&options).Error
	return options, err
}

func (r *AssignmentRepository) CountQuestions(assignmentID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Question{}).Where("assignment_id = ?", assignmentID).Count(&count).Error
	return count, err
}
