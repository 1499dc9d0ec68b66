package service

import (
	"context"
	"edu_assistant_backend/internal/model"
	"edu_assistant_backend/internal/repository"
	"edu_assistant_backend/internal/util"
	"edu_assistant_backend/pkg/logger"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AssignmentService struct {
	DB             *gorm.DB
	AssignmentRepo *repository.AssignmentRepository
	CourseRepo     *repository.CourseRepository
	SubmissionRepo *repository.SubmissionRepository
	now            func() time.Time
}

func NewAssignmentService(db *gorm.DB, assignmentRepo *repository.AssignmentRepository, courseRepo *repository.CourseRepository, submissionRepo *repository.SubmissionRepository) *AssignmentService {
	return &AssignmentService{
		DB:             db,
		AssignmentRepo: assignmentRepo,
		CourseRepo:     courseRepo,
		SubmissionRepo: submissionRepo,
		now:            time.Now,
	}
}

type OptionInput struct {
	Text      string `json:"text" binding:"required"`
	IsCorrect bool   `json:"isCorrect"`
}

type QuestionInput struct {
	Text          string             `json:"text" binding:"required"`
	Type          model.QuestionType `json:"type" binding:"required"`
	Points        float64            `json:"points" binding:"required"`
	CorrectAnswer string             `json:"correctAnswer"`
	Options       []OptionInput      `json:"options"`
}

type CreateAssignmentRequest struct {
	CourseID    uint            `json:"courseId" binding:"required"`
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	DueDate     *time.Time      `json:"dueDate"`
	TotalPoints float64         `json:"totalPoints"`
	Questions   []QuestionInput `json:"questions"`
}

// buildQuestion 校验题型与选项组合；选项只允许出现在选择题上
func buildQuestion(assignmentID uint, order int, in QuestionInput) (*model.Question, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", util.ErrInvalidQuestionType, in.Type)
	}
	if in.Points <= 0 {
		return nil, util.ErrInvalidPoints
	}
	if strings.TrimSpace(in.Text) == "" {
		return nil, fmt.Errorf("%w: 题目内容不能为空", util.ErrValidation)
	}

	q := &model.Question{
		AssignmentID:  assignmentID,
		Text:          in.Text,
		Type:          in.Type,
		Points:        in.Points,
		Order:         order,
		CorrectAnswer: in.CorrectAnswer,
	}

	kind, _ := q.Kind()
	switch kind.(type) {
	case model.MultipleChoice:
		if len(in.Options) < 2 {
			return nil, util.ErrOptionsRequired
		}
		for i, o := range in.Options {
			q.Options = append(q.Options, model.QuestionOption{
				Text:      o.Text,
				IsCorrect: o.IsCorrect,
				Order:     i + 1,
			})
		}
	case model.FillInBlank, model.ShortAnswer:
		if len(in.Options) > 0 {
			return nil, util.ErrOptionsNotAllowed
		}
	}
	return q, nil
}

func (s *AssignmentService) manageableCourse(repo *repository.CourseRepository, actor Actor, courseID uint) (*model.Course, error) {
	course, err := repo.FindByID(courseID)
	if err != nil {
		return nil, notFound(err, util.ErrCourseNotFound)
	}
	if !actor.canManage(course) {
		return nil, util.ErrNotCourseTeacher
	}
	return course, nil
}

// CreateAssignment 作业与题目在同一事务中创建，随后分配给所有在读学生
func (s *AssignmentService) CreateAssignment(ctx context.Context, actor Actor, req CreateAssignmentRequest) (*model.Assignment, error) {
	totalPoints := req.TotalPoints
	if totalPoints < 0 {
		return nil, util.ErrInvalidPoints
	}
	if totalPoints == 0 {
		totalPoints = 100
	}

	assignment := &model.Assignment{
		CourseID:    req.CourseID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		DueDate:     req.DueDate,
		TotalPoints: totalPoints,
	}

	var assigned int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.manageableCourse(s.CourseRepo.WithTx(tx), actor, req.CourseID); err != nil {
			return err
		}

		repo := s.AssignmentRepo.WithTx(tx)
		if err := repo.Create(assignment); err != nil {
			return err
		}
		for i, in := range req.Questions {
			q, err := buildQuestion(assignment.ID, i+1, in)
			if err != nil {
				return fmt.Errorf("question %d: %w", i+1, err)
			}
			if err := repo.CreateQuestion(q); err != nil {
				return err
			}
			assignment.Questions = append(assignment.Questions, *q)
		}

		n, err := s.assignToStudents(tx, assignment)
		assigned = n
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Assignment created",
		zap.Uint("assignmentId", assignment.ID),
		zap.Uint("courseId", assignment.CourseID),
		zap.Int("questions", len(assignment.Questions)),
		zap.Int64("assigned", assigned))
	return assignment, nil
}

// AddQuestion 题目序号为当前最大序号 + 1；同一事务内重算逐题评分提交的完成状态
func (s *AssignmentService) AddQuestion(ctx context.Context, actor Actor, assignmentID uint, in QuestionInput) (*model.Question, error) {
	var question *model.Question
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.AssignmentRepo.WithTx(tx)
		assignment, err := repo.FindByID(assignmentID)
		if err != nil {
			return notFound(err, util.ErrAssignmentNotFound)
		}
		if _, err := s.manageableCourse(s.CourseRepo.WithTx(tx), actor, assignment.CourseID); err != nil {
			return err
		}

		order, err := repo.NextQuestionOrder(assignmentID)
		if err != nil {
			return err
		}
		q, err := buildQuestion(assignmentID, order, in)
		if err != nil {
			return err
		}
		if err := repo.CreateQuestion(q); err != nil {
			return err
		}
		question = q

		// 新题目尚未评分，已逐题评完的提交回到未完成
		graded, err := s.SubmissionRepo.WithTx(tx).ListByModeForUpdate(assignmentID, model.GradingModePerQuestion)
		if err != nil {
			return err
		}
		for i := range graded {
			if err := recomputeSubmissionTotal(tx, s.AssignmentRepo, s.SubmissionRepo, &graded[i], s.now()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return question, nil
}

func (s *AssignmentService) assignToStudents(tx *gorm.DB, assignment *model.Assignment) (int64, error) {
	studentIDs, err := s.CourseRepo.WithTx(tx).ActiveStudentIDs(assignment.CourseID)
	if err != nil {
		return 0, err
	}
	return s.SubmissionRepo.WithTx(tx).EnsureForStudents(assignment.ID, studentIDs)
}

// AssignToStudents 为课程中每个在读学生补齐提交记录，返回新建数量
func (s *AssignmentService) AssignToStudents(ctx context.Context, actor Actor, assignmentID uint) (int64, error) {
	var created int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assignment, err := s.AssignmentRepo.WithTx(tx).FindByID(assignmentID)
		if err != nil {
			return notFound(err, util.ErrAssignmentNotFound)
		}
		if _, err := s.manageableCourse(s.CourseRepo.WithTx(tx), actor, assignment.CourseID); err != nil {
			return err
		}
		created, err = s.assignToStudents(tx, assignment)
		return err
	})
	return created, err
}

// GetAssignment 在读学生、授课教师与管理员可见，题目按序号排列
func (s *AssignmentService) GetAssignment(ctx context.Context, actor Actor, assignmentID uint) (*model.Assignment, error) {
	assignment, err := s.AssignmentRepo.WithContext(ctx).FindWithQuestions(assignmentID)
	if err != nil {
		return nil, notFound(err, util.ErrAssignmentNotFound)
	}
	if err := s.authorizeView(ctx, actor, assignment.CourseID); err != nil {
		return nil, err
	}
	return assignment, nil
}

func (s *AssignmentService) GetAssignmentQuestions(ctx context.Context, actor Actor, assignmentID uint) ([]model.Question, error) {
	assignment, err := s.GetAssignment(ctx, actor, assignmentID)
	if err != nil {
		return nil, err
	}
	return assignment.Questions, nil
}

func (s *AssignmentService) GetQuestionOptions(ctx context.Context, questionID uint) ([]model.QuestionOption, error) {
	repo := s.AssignmentRepo.WithContext(ctx)
	if _, err := repo.FindQuestion(questionID); err != nil {
		return nil, notFound(err, util.ErrQuestionNotFound)
	}
	return repo.ListOptions(questionID)
}

func (s *AssignmentService) ListCourseAssignments(ctx context.Context, actor Actor, courseID uint) ([]model.Assignment, error) {
	if _, err := s.CourseRepo.WithContext(ctx).FindByID(courseID); err != nil {
		return nil, notFound(err, util.ErrCourseNotFound)
	}
	if err := s.authorizeView(ctx, actor, courseID); err != nil {
		return nil, err
	}
	return s.AssignmentRepo.WithContext(ctx).ListByCourse(courseID)
}

func (s *AssignmentService) authorizeView(ctx context.Context, actor Actor, courseID uint) error {
	repo := s.CourseRepo.WithContext(ctx)
	if actor.Role == model.Student {
		ok, err := repo.IsActivelyEnrolled(actor.UserID, courseID)
		if err != nil {
			return err
		}
		if !ok {
			return util.ErrNotEnrolled
		}
		return nil
	}
	course, err := repo.FindByID(courseID)
	if err != nil {
		return notFound(err, util.ErrCourseNotFound)
	}
	if !actor.canManage(course) {
		return util.ErrNotCourseTeacher
	}
	return nil
}
