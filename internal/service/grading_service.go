package service

import (
	"context"
	"edu_assistant_backend/internal/model"
	"edu_assistant_backend/internal/repository"
	"edu_assistant_backend/internal/util"
	"edu_assistant_backend/pkg/logger"
	"edu_assistant_backend/pkg/monitoring"
	"edu_assistant_backend/pkg/tracing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notifier 向在线用户推送事件，由 NotificationHub 实现
type Notifier interface {
	PushToUsers(userIDs []uint, msg WSMessage)
}

type GradingService struct {
	DB             *gorm.DB
	AssignmentRepo *repository.AssignmentRepository
	CourseRepo     *repository.CourseRepository
	SubmissionRepo *repository.SubmissionRepository
	Notifier       Notifier
	now            func() time.Time
}

func NewGradingService(db *gorm.DB, assignmentRepo *repository.AssignmentRepository, courseRepo *repository.CourseRepository, submissionRepo *repository.SubmissionRepository, notifier Notifier) *GradingService {
	return &GradingService{
		DB:             db,
		AssignmentRepo: assignmentRepo,
		CourseRepo:     courseRepo,
		SubmissionRepo: submissionRepo,
		Notifier:       notifier,
		now:            time.Now,
	}
}

type GradeEvent struct {
	AssignmentID uint     `json:"assignmentId"`
	QuestionID   *uint    `json:"questionId,omitempty"`
	Score        float64  `json:"score"`
	Feedback     string   `json:"feedback,omitempty"`
	TotalScore   *float64 `json:"totalScore"`
	Completed    bool     `json:"completed"`
}

func (s *GradingService) requireTeacher(tx *gorm.DB, actor Actor, courseID uint) error {
	course, err := s.CourseRepo.WithTx(tx).FindByID(courseID)
	if err != nil {
		return notFound(err, util.ErrCourseNotFound)
	}
	if !actor.canManage(course) {
		return util.ErrNotCourseTeacher
	}
	return nil
}

// recomputeSubmissionTotal 总分为已评分作答之和；全部题目都有分数时标记完成。
// 调用方需已锁定提交记录
func recomputeSubmissionTotal(tx *gorm.DB, assignments *repository.AssignmentRepository, submissions *repository.SubmissionRepository, sa *model.StudentAssignment, now time.Time) error {
	subs := submissions.WithTx(tx)
	sum, scored, err := subs.ScoredTotals(sa.ID)
	if err != nil {
		return err
	}
	questions, err := assignments.WithTx(tx).CountQuestions(sa.AssignmentID)
	if err != nil {
		return err
	}

	if scored == 0 {
		sa.Score = nil
	} else {
		sa.Score = &sum
	}
	sa.Completed = questions > 0 && scored == questions
	if sa.Completed {
		if sa.CompletionDate == nil {
			sa.CompletionDate = &now
		}
	} else {
		sa.CompletionDate = nil
	}
	if scored > 0 {
		sa.GradingMode = model.GradingModePerQuestion
	}
	return subs.Save(sa)
}

func (s *GradingService) recomputeTotal(tx *gorm.DB, sa *model.StudentAssignment) error {
	return recomputeSubmissionTotal(tx, s.AssignmentRepo, s.SubmissionRepo, sa, s.now())
}

// GradeResponse 逐题评分：0 <= score <= 题目分值，写入后在同一事务内重算总分
func (s *GradingService) GradeResponse(ctx context.Context, actor Actor, studentID, questionID uint, score float64, feedback string) (*model.StudentResponse, *model.StudentAssignment, error) {
	ctx, span := tracing.StartSpan(ctx, "grading.GradeResponse",
		attribute.Int64("student.id", int64(studentID)),
		attribute.Int64("question.id", int64(questionID)),
		attribute.Float64("score", score))

	var (
		resp *model.StudentResponse
		sa   *model.StudentAssignment
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assignments := s.AssignmentRepo.WithTx(tx)
		q, err := assignments.FindQuestion(questionID)
		if err != nil {
			return notFound(err, util.ErrQuestionNotFound)
		}
		assignment, err := assignments.FindByID(q.AssignmentID)
		if err != nil {
			return notFound(err, util.ErrAssignmentNotFound)
		}
		if err := s.requireTeacher(tx, actor, assignment.CourseID); err != nil {
			return err
		}
		if score < 0 || score > q.Points {
			return util.ErrScoreOutOfRange
		}

		submissions := s.SubmissionRepo.WithTx(tx)
		sa, err = submissions.FindForUpdate(studentID, assignment.ID)
		if err != nil {
			return notFound(err, util.ErrSubmissionNotFound)
		}
		if sa.GradingMode == model.GradingModeWhole {
			return util.ErrGradingConflict
		}

		resp, err = submissions.FindResponse(sa.ID, q.ID)
		if err != nil {
			return notFound(err, util.ErrResponseNotFound)
		}
		now := s.now()
		graderID := actor.UserID
		resp.Score = &score
		resp.Feedback = feedback
		resp.GradedAt = &now
		resp.GradedBy = &graderID
		if err := submissions.SaveResponse(resp); err != nil {
			return err
		}

		return s.recomputeTotal(tx, sa)
	})
	tracing.EndSpan(span, err)
	if err != nil {
		return nil, nil, err
	}

	monitoring.GradesRecorded.WithLabelValues(string(model.GradingModePerQuestion)).Inc()
	s.notify(studentID, GradeEvent{
		AssignmentID: sa.AssignmentID,
		QuestionID:   &questionID,
		Score:        score,
		Feedback:     feedback,
		TotalScore:   sa.Score,
		Completed:    sa.Completed,
	})
	return resp, sa, nil
}

// RecomputeTotal 按作答分数重算提交总分，用于修复历史数据；整体评分的提交不参与
func (s *GradingService) RecomputeTotal(ctx context.Context, studentAssignmentID uint) (*model.StudentAssignment, error) {
	var sa *model.StudentAssignment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		sa, err = s.SubmissionRepo.WithTx(tx).FindByIDForUpdate(studentAssignmentID)
		if err != nil {
			return notFound(err, util.ErrSubmissionNotFound)
		}
		if sa.GradingMode == model.GradingModeWhole {
			return util.ErrGradingConflict
		}
		return s.recomputeTotal(tx, sa)
	})
	if err != nil {
		return nil, err
	}
	return sa, nil
}

// GradeAssignment 整体评分（旧接口）：直接写入总分并标记完成，不校验作业满分；
// 已存在逐题评分时拒绝
func (s *GradingService) GradeAssignment(ctx context.Context, actor Actor, studentID, assignmentID uint, score float64, feedback string) (*model.StudentAssignment, error) {
	ctx, span := tracing.StartSpan(ctx, "grading.GradeAssignment",
		attribute.Int64("student.id", int64(studentID)),
		attribute.Int64("assignment.id", int64(assignmentID)),
		attribute.Float64("score", score))

	if score < 0 {
		tracing.EndSpan(span, util.ErrNegativeScore)
		return nil, util.ErrNegativeScore
	}

	var sa *model.StudentAssignment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assignment, err := s.AssignmentRepo.WithTx(tx).FindByID(assignmentID)
		if err != nil {
			return notFound(err, util.ErrAssignmentNotFound)
		}
		if err := s.requireTeacher(tx, actor, assignment.CourseID); err != nil {
			return err
		}

		submissions := s.SubmissionRepo.WithTx(tx)
		sa, err = submissions.FindForUpdate(studentID, assignmentID)
		if err != nil {
			return notFound(err, util.ErrSubmissionNotFound)
		}
		if sa.GradingMode == model.GradingModePerQuestion {
			return util.ErrGradingConflict
		}
		if _, scored, err := submissions.ScoredTotals(sa.ID); err != nil {
			return err
		} else if scored > 0 {
			return util.ErrGradingConflict
		}

		now := s.now()
		sa.Score = &score
		sa.Feedback = feedback
		sa.Completed = true
		sa.CompletionDate = &now
		sa.GradingMode = model.GradingModeWhole
		return submissions.Save(sa)
	})
	tracing.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	monitoring.GradesRecorded.WithLabelValues(string(model.GradingModeWhole)).Inc()
	s.notify(studentID, GradeEvent{
		AssignmentID: assignmentID,
		Score:        score,
		Feedback:     feedback,
		TotalScore:   sa.Score,
		Completed:    true,
	})
	return sa, nil
}

func (s *GradingService) notify(studentID uint, event GradeEvent) {
	if s.Notifier == nil {
		return
	}
	s.Notifier.PushToUsers([]uint{studentID}, WSMessage{Type: util.EventGradeUpdated, Data: event})
	logger.Log.Debug("Grade event published", zap.Uint("studentId", studentID), zap.Uint("assignmentId", event.AssignmentID))
}
