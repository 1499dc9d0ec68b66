package repository

import (
	"context"
	"edu_assistant_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MasteryRepository struct {
	DB *gorm.DB
}

func NewMasteryRepository(db *gorm.DB) *MasteryRepository {
	return &MasteryRepository{DB: db}
}

func (r *MasteryRepository) WithContext(ctx context.Context) *MasteryRepository {
	return &MasteryRepository{DB: r.DB.WithContext(ctx)}
}

type ratioRow struct {
	Earned   float64
	Possible float64
	Samples  int64
}

func (row ratioRow) ratio() *float64 {
	if row.Samples == 0 || row.Possible <= 0 {
		return nil
	}
	v := row.Earned / row.Possible
	return &v
}

// AssignmentRatio 已评分提交的总分 / 作业满分，作业需关联该知识点；无数据返回 nil
func (r *MasteryRepository) AssignmentRatio(studentID, kpID uint) (*float64, error) {
	var row ratioRow
	err := r.DB.Raw(`
		SELECT COALESCE(SUM(sa.score), 0) AS earned,
		       COALESCE(SUM(a.total_points), 0) AS possible,
		       COUNT(*) AS samples
		FROM student_assignments sa
		JOIN assignments a ON a.id = sa.assignment_id AND a.deleted_at IS NULL
		JOIN assignment_knowledge_points akp ON akp.assignment_id = sa.assignment_id
		WHERE sa.student_id = ? AND akp.knowledge_point_id = ?
		  AND sa.score IS NOT NULL AND sa.deleted_at IS NULL`, studentID, kpID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return row.ratio(), nil
}

// QuestionRatio 已评分作答的得分 / 题目分值，题目所属作业需关联该知识点；无数据返回 nil
func (r *MasteryRepository) QuestionRatio(studentID, kpID uint) (*float64, error) {
	var row ratioRow
	err := r.DB.Raw(`
		SELECT COALESCE(SUM(sr.score), 0) AS earned,
		       COALESCE(SUM(q.points), 0) AS possible,
		       COUNT(*) AS samples
		FROM student_responses sr
		JOIN student_assignments sa ON sa.id = sr.student_assignment_id AND sa.deleted_at IS NULL
		JOIN questions q ON q.id = sr.question_id AND q.deleted_at IS NULL
		JOIN assignment_knowledge_points akp ON akp.assignment_id = sa.assignment_id
		WHERE sa.student_id = ? AND akp.knowledge_point_id = ?
		  AND sr.score IS NOT NULL AND sr.deleted_at IS NULL`, studentID, kpID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return row.ratio(), nil
}

type StudentKnowledgePair struct {
	StudentID        uint
	KnowledgePointID uint
}

// ActivePairs 在读学生 × 所在课程的知识点
func (r *MasteryRepository) ActivePairs(studentID *uint) ([]StudentKnowledgePair, error) {
	query := r.DB.Table("enrollments e").
		Select("DISTINCT e.student_id AS student_id, kp.id AS knowledge_point_id").
		Joins("JOIN knowledge_points kp ON kp.course_id = e.course_id AND kp.deleted_at IS NULL").
		Where("e.is_active = ?", true)
	if studentID != nil {
		query = query.Where("e.student_id = ?", *studentID)
	}

	var pairs []StudentKnowledgePair
	err := query.Order("e.student_id ASC, kp.id ASC").Scan(&pairs).Error
	return pairs, err
}

func (r *MasteryRepository) Upsert(skp *model.StudentKnowledgePoint) error {
	return r.DB.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "knowledge_point_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"mastery_level", "last_interaction", "updated_at"}),
	}).Create(skp).Error
}

// activePairExists 行仍对应在读学生与未删除知识点
const activePairExists = `EXISTS (
	SELECT 1 FROM enrollments e
	JOIN knowledge_points kp ON kp.course_id = e.course_id AND kp.deleted_at IS NULL
	WHERE e.is_active = ?
	  AND e.student_id = student_knowledge_points.student_id
	  AND kp.id = student_knowledge_points.knowledge_point_id)`

// PruneStale 删除不再属于 ActivePairs 的掌握度记录，返回受影响的学生与删除行数
func (r *MasteryRepository) PruneStale(studentID *uint) ([]uint, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Where("NOT "+activePairExists, true)
		if studentID != nil {
			db = db.Where("student_knowledge_points.student_id = ?", *studentID)
		}
		return db
	}

	var students []uint
	err := r.DB.Model(&model.StudentKnowledgePoint{}).Scopes(scope).
		Distinct("student_knowledge_points.student_id").
		Pluck("student_knowledge_points.student_id", &students).Error
	if err != nil || len(students) == 0 {
		return nil, 0, err
	}
	res := r.DB.Scopes(scope).Delete(&model.StudentKnowledgePoint{})
	if res.Error != nil {
		return nil, 0, res.Error
	}
	return students, res.RowsAffected, nil
}

// ListByStudent 只返回在读课程中未删除知识点的记录
func (r *MasteryRepository) ListByStudent(studentID uint) ([]model.StudentKnowledgePoint, error) {
	var list []model.StudentKnowledgePoint
	err := r.DB.Preload("KnowledgePoint").
		Where("student_knowledge_points.student_id = ?", studentID).
		Where(activePairExists, true).
		Order("student_knowledge_points.knowledge_point_id ASC").
		Find(&list).Error
	return list, err
}
