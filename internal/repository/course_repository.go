package repository

import (
	"context"
	"edu_assistant_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) WithTx(tx *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: tx}
}

func (r *CourseRepository) WithContext(ctx context.Context) *CourseRepository {
	return &CourseRepository{DB: r.DB.WithContext(ctx)}
}

func (r *CourseRepository) Create(course *model.Course) error {
	return r.DB.Create(course).Error
}

func (r *CourseRepository) FindByID(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.First(&course, id).Error
	return &course, err
}

func (r *CourseRepository) ExistsByCode(code string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Course{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

func (r *CourseRepository) List() ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.Order("id ASC").Find(&courses).Error
	return courses, err
}

func (r *CourseRepository) ListByTeacher(teacherID uint) ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.Where("teacher_id = ?", teacherID).Order("id ASC").Find(&courses).Error
	return courses, err
}

// ListByStudent 学生当前在读的课程
func (r *CourseRepository) ListByStudent(studentID uint) ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.
		Joins("JOIN enrollments e ON e.course_id = courses.id AND e.is_active = ?", true).
		Where("e.student_id = ?", studentID).
		Order("courses.id ASC").
		Find(&courses).Error
	return courses, err
}

func (r *CourseRepository) ListStudents(courseID uint) ([]model.User, error) {
	var users []model.User
	err := r.DB.
		Joins("JOIN enrollments e ON e.student_id = users.id AND e.is_active = ?", true).
		Where("e.course_id = ?", courseID).
		Order("users.id ASC").
		Find(&users).Error
	return users, err
}

func (r *CourseRepository) FindEnrollment(studentID, courseID uint) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.DB.Where("student_id = ? AND course_id = ?", studentID, courseID).First(&enrollment).Error
	return &enrollment, err
}

func (r *CourseRepository) CreateEnrollment(enrollment *model.Enrollment) error {
	return r.DB.Create(enrollment).Error
}

func (r *CourseRepository) SetEnrollmentActive(id uint, active bool) error {
	return r.DB.Model(&model.Enrollment{}).Where("id = ?", id).Update("is_active", active).Error
}

func (r *CourseRepository) IsActivelyEnrolled(studentID, courseID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Enrollment{}).
		Where("student_id = ? AND course_id = ? AND is_active = ?", studentID, courseID, true).
		Count(&count).Error
	return count > 0, err
}

func (r *CourseRepository) ActiveStudentIDs(courseID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.Enrollment{}).
		Where("course_id = ? AND is_active = ?", courseID, true).
		Order("student_id ASC").
		Pluck("student_id", &ids).Error
	return ids, err
}
