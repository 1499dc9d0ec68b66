package service

import (
	"context"
	"edu_assistant_backend/internal/model"
	"edu_assistant_backend/internal/repository"
	"edu_assistant_backend/internal/util"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

type CourseService struct {
	DB         *gorm.DB
	CourseRepo *repository.CourseRepository
	UserRepo   *repository.UserRepository
}

func NewCourseService(db *gorm.DB, courseRepo *repository.CourseRepository, userRepo *repository.UserRepository) *CourseService {
	return &CourseService{DB: db, CourseRepo: courseRepo, UserRepo: userRepo}
}

type CreateCourseRequest struct {
	Name        string `json:"name" binding:"required"`
	Code        string `json:"code" binding:"required"`
	Description string `json:"description"`
	// 仅管理员可指定，教师创建时忽略
	TeacherID uint `json:"teacherId"`
}

func (s *CourseService) CreateCourse(ctx context.Context, actor Actor, req CreateCourseRequest) (*model.Course, error) {
	if actor.Role != model.Teacher && !actor.IsAdmin() {
		return nil, util.ErrPermissionDenied
	}

	teacherID := actor.UserID
	if actor.IsAdmin() && req.TeacherID != 0 {
		teacher, err := s.UserRepo.WithContext(ctx).FindByID(req.TeacherID)
		if err != nil {
			return nil, notFound(err, util.ErrUserNotFound)
		}
		if teacher.Role != model.Teacher {
			return nil, fmt.Errorf("%w: 用户 %d 不是教师", util.ErrValidation, teacher.ID)
		}
		teacherID = teacher.ID
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))
	repo := s.CourseRepo.WithContext(ctx)
	exists, err := repo.ExistsByCode(code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, util.ErrCourseCodeTaken
	}

	course := &model.Course{
		Name:        strings.TrimSpace(req.Name),
		Code:        code,
		Description: req.Description,
		TeacherID:   teacherID,
	}
	if err := repo.Create(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) GetCourse(ctx context.Context, id uint) (*model.Course, error) {
	course, err := s.CourseRepo.WithContext(ctx).FindByID(id)
	if err != nil {
		return nil, notFound(err, util.ErrCourseNotFound)
	}
	return course, nil
}

// ListCourses 按角色返回：管理员全部，教师所授，学生在读
func (s *CourseService) ListCourses(ctx context.Context, actor Actor) ([]model.Course, error) {
	repo := s.CourseRepo.WithContext(ctx)
	switch actor.Role {
	case model.Admin:
		return repo.List()
	case model.Teacher:
		return repo.ListByTeacher(actor.UserID)
	default:
		return repo.ListByStudent(actor.UserID)
	}
}

// Enroll 新建或重新激活选课记录
func (s *CourseService) Enroll(ctx context.Context, courseID, studentID uint) (*model.Enrollment, error) {
	student, err := s.UserRepo.WithContext(ctx).FindByID(studentID)
	if err != nil {
		return nil, notFound(err, util.ErrUserNotFound)
	}
	if student.Role != model.Student {
		return nil, util.ErrNotAStudent
	}

	var enrollment *model.Enrollment
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.CourseRepo.WithTx(tx)
		if _, err := repo.FindByID(courseID); err != nil {
			return notFound(err, util.ErrCourseNotFound)
		}

		existing, err := repo.FindEnrollment(studentID, courseID)
		switch {
		case err == nil:
			if existing.IsActive {
				return util.ErrAlreadyEnrolled
			}
			if err := repo.SetEnrollmentActive(existing.ID, true); err != nil {
				return err
			}
			existing.IsActive = true
			enrollment = existing
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			enrollment = &model.Enrollment{
				StudentID:  studentID,
				CourseID:   courseID,
				IsActive:   true,
				EnrolledAt: time.Now(),
			}
			return repo.CreateEnrollment(enrollment)
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return enrollment, nil
}

func (s *CourseService) Unenroll(ctx context.Context, courseID, studentID uint) error {
	repo := s.CourseRepo.WithContext(ctx)
	enrollment, err := repo.FindEnrollment(studentID, courseID)
	if err != nil {
		return notFound(err, util.ErrEnrollmentNotFound)
	}
	if !enrollment.IsActive {
		return util.ErrEnrollmentNotFound
	}
	return repo.SetEnrollmentActive(enrollment.ID, false)
}

// AuthorizeEnrollment 学生只能为自己选课或退课，替他人操作须为授课教师或管理员
func (s *CourseService) AuthorizeEnrollment(ctx context.Context, actor Actor, courseID, studentID uint) error {
	if actor.UserID == studentID {
		return nil
	}
	course, err := s.GetCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if !actor.canManage(course) {
		return util.ErrNotCourseTeacher
	}
	return nil
}

func (s *CourseService) IsActivelyEnrolled(ctx context.Context, studentID, courseID uint) (bool, error) {
	return s.CourseRepo.WithContext(ctx).IsActivelyEnrolled(studentID, courseID)
}

// ListCourseStudents 仅授课教师或管理员可查看
func (s *CourseService) ListCourseStudents(ctx context.Context, actor Actor, courseID uint) ([]model.User, error) {
	course, err := s.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !actor.canManage(course) {
		return nil, util.ErrNotCourseTeacher
	}
	return s.CourseRepo.WithContext(ctx).ListStudents(courseID)
}
