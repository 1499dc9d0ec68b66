package repository

import (
	"context"
	"edu_assistant_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

func (r *SubmissionRepository) WithTx(tx *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: tx}
}

func (r *SubmissionRepository) WithContext(ctx context.Context) *SubmissionRepository {
	return &SubmissionRepository{DB: r.DB.WithContext(ctx)}
}

func (r *SubmissionRepository) forUpdate() *gorm.DB {
	return r.DB.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *SubmissionRepository) Find(studentID, assignmentID uint) (*model.StudentAssignment, error) {
	var sa model.StudentAssignment
	err := r.DB.Where("student_id = ? AND assignment_id = ?", studentID, assignmentID).First(&sa).Error
	return &sa, err
}

// FindForUpdate 读取并锁定提交记录，必须在事务中调用
func (r *SubmissionRepository) FindForUpdate(studentID, assignmentID uint) (*model.StudentAssignment, error) {
	var sa model.StudentAssignment
	err := r.forUpdate().Where("student_id = ? AND assignment_id = ?", studentID, assignmentID).First(&sa).Error
	return &sa, err
}

func (r *SubmissionRepository) FindByIDForUpdate(id uint) (*model.StudentAssignment, error) {
	var sa model.StudentAssignment
	err := r.forUpdate().First(&sa, id).Error
	return &sa, err
}

// GetOrCreateForUpdate 并发创建由唯一索引裁决，落败方的插入被忽略后重新读取
func (r *SubmissionRepository) GetOrCreateForUpdate(studentID, assignmentID uint) (*model.StudentAssignment, error) {
	sa := model.StudentAssignment{StudentID: studentID, AssignmentID: assignmentID}
	if err := r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&sa).Error; err != nil {
		return nil, err
	}
	return r.FindForUpdate(studentID, assignmentID)
}

// EnsureForStudents 为每个学生补齐提交记录，返回新建数量
func (r *SubmissionRepository) EnsureForStudents(assignmentID uint, studentIDs []uint) (int64, error) {
	if len(studentIDs) == 0 {
		return 0, nil
	}
	rows := make([]model.StudentAssignment, 0, len(studentIDs))
	for _, id := range studentIDs {
		rows = append(rows, model.StudentAssignment{StudentID: id, AssignmentID: assignmentID})
	}
	res := r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	return res.RowsAffected, res.Error
}

func (r *SubmissionRepository) Save(sa *model.StudentAssignment) error {
	return r.DB.Omit(clause.Associations).Save(sa).Error
}

// UpsertAnswer 写入答案并清空另一种答案形态，不改动分数
func (r *SubmissionRepository) UpsertAnswer(resp *model.StudentResponse) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_assignment_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"answer_text", "selected_option_id", "updated_at"}),
	}).Create(resp).Error
}

func (r *SubmissionRepository) FindResponse(studentAssignmentID, questionID uint) (*model.StudentResponse, error) {
	var resp model.StudentResponse
	err := r.DB.Where("student_assignment_id = ? AND question_id = ?", studentAssignmentID, questionID).First(&resp).Error
	return &resp, err
}

func (r *SubmissionRepository) SaveResponse(resp *model.StudentResponse) error {
	return r.DB.Omit(clause.Associations).Save(resp).Error
}

// ScoredTotals 返回已评分作答的分数之和与数量
func (r *SubmissionRepository) ScoredTotals(studentAssignmentID uint) (float64, int64, error) {
	var scores []float64
	err := r.DB.Model(&model.StudentResponse{}).
		Where("student_assignment_id = ? AND score IS NOT NULL", studentAssignmentID).
		Pluck("score", &scores).Error
	if err != nil {
		return 0, 0, err
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum, int64(len(scores)), nil
}

func (r *SubmissionRepository) ListResponses(studentAssignmentID uint) ([]model.StudentResponse, error) {
	var responses []model.StudentResponse
	err := r.DB.Preload("Question").
		Joins("JOIN questions q ON q.id = student_responses.question_id").
		Where("student_responses.student_assignment_id = ?", studentAssignmentID).
		Order("q.sort_order ASC").
		Find(&responses).Error
	return responses, err
}

func (r *SubmissionRepository) ListByAssignment(assignmentID uint) ([]model.StudentAssignment, error) {
	var list []model.StudentAssignment
	err := r.DB.Where("assignment_id = ?", assignmentID).Order("student_id ASC").Find(&list).Error
	return list, err
}

// ListByModeForUpdate 锁定作业下指定评分方式的全部提交记录
func (r *SubmissionRepository) ListByModeForUpdate(assignmentID uint, mode model.GradingMode) ([]model.StudentAssignment, error) {
	var list []model.StudentAssignment
	err := r.forUpdate().Where("assignment_id = ? AND grading_mode = ?", assignmentID, mode).
		Order("id ASC").Find(&list).Error
	return list, err
}

// ListByStudent courseID 与 completed 为 nil 时不过滤
func (r *SubmissionRepository) ListByStudent(studentID uint, courseID *uint, completed *bool) ([]model.StudentAssignment, error) {
	query := r.DB.Preload("Assignment").
		Joins("JOIN assignments a ON a.id = student_assignments.assignment_id AND a.deleted_at IS NULL").
		Where("student_assignments.student_id = ?", studentID)
	if courseID != nil {
		query = query.Where("a.course_id = ?", *courseID)
	}
	if completed != nil {
		query = query.Where("student_assignments.completed = ?", *completed)
	}

	var list []model.StudentAssignment
	err := query.Order("a.due_date ASC, a.id ASC").Find(&list).Error
	return list, err
}
