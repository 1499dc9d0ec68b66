package service

import (
	"context"
	"edu_assistant_backend/internal/model"
	"edu_assistant_backend/internal/repository"
	"edu_assistant_backend/internal/util"
	"edu_assistant_backend/pkg/monitoring"
	"edu_assistant_backend/pkg/tracing"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

type SubmissionService struct {
	DB             *gorm.DB
	AssignmentRepo *repository.AssignmentRepository
	CourseRepo     *repository.CourseRepository
	SubmissionRepo *repository.SubmissionRepository
	now            func() time.Time
}

func NewSubmissionService(db *gorm.DB, assignmentRepo *repository.AssignmentRepository, courseRepo *repository.CourseRepository, submissionRepo *repository.SubmissionRepository) *SubmissionService {
	return &SubmissionService{
		DB:             db,
		AssignmentRepo: assignmentRepo,
		CourseRepo:     courseRepo,
		SubmissionRepo: submissionRepo,
		now:            time.Now,
	}
}

// requireEnrollment 校验学生对作业所属课程的在读身份
func requireEnrollment(repo *repository.CourseRepository, studentID, courseID uint) error {
	ok, err := repo.IsActivelyEnrolled(studentID, courseID)
	if err != nil {
		return err
	}
	if !ok {
		return util.ErrNotEnrolled
	}
	return nil
}

// SubmitResponse 保存学生对单题的作答，重复提交覆盖旧答案；
// 提交记录在事务内加锁，所有校验先于任何写入
func (s *SubmissionService) SubmitResponse(ctx context.Context, studentID, questionID uint, answer Answer) (*model.StudentResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "submission.SubmitResponse",
		attribute.Int64("student.id", int64(studentID)),
		attribute.Int64("question.id", int64(questionID)))

	var (
		resp     *model.StudentResponse
		question *model.Question
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assignments := s.AssignmentRepo.WithTx(tx)
		q, err := assignments.FindQuestion(questionID)
		if err != nil {
			return notFound(err, util.ErrQuestionNotFound)
		}
		question = q

		assignment, err := assignments.FindByID(q.AssignmentID)
		if err != nil {
			return notFound(err, util.ErrAssignmentNotFound)
		}
		if err := requireEnrollment(s.CourseRepo.WithTx(tx), studentID, assignment.CourseID); err != nil {
			return err
		}

		text, optionID, err := answerColumns(q, answer)
		if err != nil {
			return err
		}

		submissions := s.SubmissionRepo.WithTx(tx)
		sa, err := submissions.GetOrCreateForUpdate(studentID, assignment.ID)
		if err != nil {
			return err
		}

		if err := submissions.UpsertAnswer(&model.StudentResponse{
			StudentAssignmentID: sa.ID,
			QuestionID:          q.ID,
			AnswerText:          text,
			SelectedOptionID:    optionID,
		}); err != nil {
			return err
		}

		now := s.now()
		sa.Attempts++
		sa.SubmittedAt = &now
		if err := submissions.Save(sa); err != nil {
			return err
		}

		resp, err = submissions.FindResponse(sa.ID, q.ID)
		return err
	})
	tracing.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	monitoring.ResponsesSubmitted.WithLabelValues(string(question.Type)).Inc()
	return resp, nil
}

type AssignmentSubmission struct {
	Answer  string
	Answers map[uint]Answer
}

// SubmitAssignment 整份作业提交，可附带整体作答文本与多道题的答案，计为一次尝试
func (s *SubmissionService) SubmitAssignment(ctx context.Context, studentID, assignmentID uint, sub AssignmentSubmission) (*model.StudentAssignment, error) {
	ctx, span := tracing.StartSpan(ctx, "submission.SubmitAssignment",
		attribute.Int64("student.id", int64(studentID)),
		attribute.Int64("assignment.id", int64(assignmentID)),
		attribute.Int("answers", len(sub.Answers)))

	var (
		sa        *model.StudentAssignment
		typeCount = map[model.QuestionType]int{}
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assignments := s.AssignmentRepo.WithTx(tx)
		assignment, err := assignments.FindByID(assignmentID)
		if err != nil {
			return notFound(err, util.ErrAssignmentNotFound)
		}
		if err := requireEnrollment(s.CourseRepo.WithTx(tx), studentID, assignment.CourseID); err != nil {
			return err
		}

		questions, err := assignments.ListQuestions(assignmentID)
		if err != nil {
			return err
		}
		byID := make(map[uint]*model.Question, len(questions))
		for i := range questions {
			byID[questions[i].ID] = &questions[i]
		}

		type column struct {
			text     *string
			optionID *uint
		}
		columns := make(map[uint]column, len(sub.Answers))
		for qid, ans := range sub.Answers {
			q, ok := byID[qid]
			if !ok {
				return fmt.Errorf("%w: 题目 %d 不属于作业 %d", util.ErrQuestionNotFound, qid, assignmentID)
			}
			text, optionID, err := answerColumns(q, ans)
			if err != nil {
				return fmt.Errorf("question %d: %w", qid, err)
			}
			columns[qid] = column{text: text, optionID: optionID}
		}

		submissions := s.SubmissionRepo.WithTx(tx)
		sa, err = submissions.GetOrCreateForUpdate(studentID, assignmentID)
		if err != nil {
			return err
		}

		for _, q := range questions {
			col, ok := columns[q.ID]
			if !ok {
				continue
			}
			if err := submissions.UpsertAnswer(&model.StudentResponse{
				StudentAssignmentID: sa.ID,
				QuestionID:          q.ID,
				AnswerText:          col.text,
				SelectedOptionID:    col.optionID,
			}); err != nil {
				return err
			}
			typeCount[q.Type]++
		}

		now := s.now()
		if sub.Answer != "" {
			sa.Answer = sub.Answer
		}
		sa.Attempts++
		sa.SubmittedAt = &now
		return submissions.Save(sa)
	})
	tracing.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	for t, n := range typeCount {
		monitoring.ResponsesSubmitted.WithLabelValues(string(t)).Add(float64(n))
	}
	return sa, nil
}

// GetStudentResponses 返回 questionID -> 作答；学生只能查看自己的作答
func (s *SubmissionService) GetStudentResponses(ctx context.Context, actor Actor, studentID, assignmentID uint) (map[uint]model.StudentResponse, error) {
	assignment, err := s.AssignmentRepo.WithContext(ctx).FindByID(assignmentID)
	if err != nil {
		return nil, notFound(err, util.ErrAssignmentNotFound)
	}
	if err := s.authorizeStudentData(ctx, actor, studentID, assignment.CourseID); err != nil {
		return nil, err
	}

	result := make(map[uint]model.StudentResponse)
	repo := s.SubmissionRepo.WithContext(ctx)
	sa, err := repo.Find(studentID, assignmentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return result, nil
	} else if err != nil {
		return nil, err
	}

	responses, err := repo.ListResponses(sa.ID)
	if err != nil {
		return nil, err
	}
	for _, r := range responses {
		result[r.QuestionID] = r
	}
	return result, nil
}

func (s *SubmissionService) GetSubmission(ctx context.Context, actor Actor, studentID, assignmentID uint) (*model.StudentAssignment, error) {
	assignment, err := s.AssignmentRepo.WithContext(ctx).FindByID(assignmentID)
	if err != nil {
		return nil, notFound(err, util.ErrAssignmentNotFound)
	}
	if err := s.authorizeStudentData(ctx, actor, studentID, assignment.CourseID); err != nil {
		return nil, err
	}
	sa, err := s.SubmissionRepo.WithContext(ctx).Find(studentID, assignmentID)
	if err != nil {
		return nil, notFound(err, util.ErrSubmissionNotFound)
	}
	return sa, nil
}

func (s *SubmissionService) ListStudentAssignments(ctx context.Context, studentID uint, courseID *uint, completed *bool) ([]model.StudentAssignment, error) {
	return s.SubmissionRepo.WithContext(ctx).ListByStudent(studentID, courseID, completed)
}

// ListAssignmentSubmissions 授课教师查看作业的全部提交
func (s *SubmissionService) ListAssignmentSubmissions(ctx context.Context, actor Actor, assignmentID uint) ([]model.StudentAssignment, error) {
	assignment, err := s.AssignmentRepo.WithContext(ctx).FindByID(assignmentID)
	if err != nil {
		return nil, notFound(err, util.ErrAssignmentNotFound)
	}
	course, err := s.CourseRepo.WithContext(ctx).FindByID(assignment.CourseID)
	if err != nil {
		return nil, notFound(err, util.ErrCourseNotFound)
	}
	if !actor.canManage(course) {
		return nil, util.ErrNotCourseTeacher
	}
	return s.SubmissionRepo.WithContext(ctx).ListByAssignment(assignmentID)
}

func (s *SubmissionService) authorizeStudentData(ctx context.Context, actor Actor, studentID, courseID uint) error {
	if actor.Role == model.Student {
		if actor.UserID != studentID {
			return util.ErrPermissionDenied
		}
		return nil
	}
	course, err := s.CourseRepo.WithContext(ctx).FindByID(courseID)
	if err != nil {
		return notFound(err, util.ErrCourseNotFound)
	}
	if !actor.canManage(course) {
		return util.ErrNotCourseTeacher
	}
	return nil
}
