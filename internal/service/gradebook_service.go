package service

import (
	"bytes"
	"context"
	"edu_assistant_backend/internal/model"
	"edu_assistant_backend/internal/repository"
	"edu_assistant_backend/internal/util"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type GradebookService struct {
	AssignmentRepo *repository.AssignmentRepository
	CourseRepo     *repository.CourseRepository
	SubmissionRepo *repository.SubmissionRepository
	UserRepo       *repository.UserRepository
	Storage        *StorageService
}

func NewGradebookService(assignmentRepo *repository.AssignmentRepository, courseRepo *repository.CourseRepository, submissionRepo *repository.SubmissionRepository, userRepo *repository.UserRepository, storage *StorageService) *GradebookService {
	return &GradebookService{
		AssignmentRepo: assignmentRepo,
		CourseRepo:     courseRepo,
		SubmissionRepo: submissionRepo,
		UserRepo:       userRepo,
		Storage:        storage,
	}
}

// GradebookRow 一名学生在一份作业上的成绩
type GradebookRow struct {
	Student        model.User
	Submission     model.StudentAssignment
	QuestionScores map[uint]*float64
}

func formatScore(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// WriteGradebook 输出 CSV：固定列之后每道题一列，未评分留空
func WriteGradebook(w io.Writer, questions []model.Question, rows []GradebookRow) error {
	cw := csv.NewWriter(w)
	header := []string{"student_id", "student", "email", "attempts", "score", "completed", "grading_mode", "submitted_at"}
	for _, q := range questions {
		header = append(header, fmt.Sprintf("Q%d", q.Order))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		submittedAt := ""
		if r.Submission.SubmittedAt != nil {
			submittedAt = r.Submission.SubmittedAt.Format(time.RFC3339)
		}
		record := []string{
			strconv.FormatUint(uint64(r.Student.ID), 10),
			r.Student.Name,
			r.Student.Email,
			strconv.Itoa(r.Submission.Attempts),
			formatScore(r.Submission.Score),
			strconv.FormatBool(r.Submission.Completed),
			string(r.Submission.GradingMode),
			submittedAt,
		}
		for _, q := range questions {
			record = append(record, formatScore(r.QuestionScores[q.ID]))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// BuildGradebook 汇总作业的全部提交及逐题得分
func (s *GradebookService) BuildGradebook(ctx context.Context, actor Actor, assignmentID uint) (*model.Assignment, []GradebookRow, error) {
	assignment, err := s.AssignmentRepo.WithContext(ctx).FindWithQuestions(assignmentID)
	if err != nil {
		return nil, nil, notFound(err, util.ErrAssignmentNotFound)
	}
	course, err := s.CourseRepo.WithContext(ctx).FindByID(assignment.CourseID)
	if err != nil {
		return nil, nil, notFound(err, util.ErrCourseNotFound)
	}
	if !actor.canManage(course) {
		return nil, nil, util.ErrNotCourseTeacher
	}

	submissions := s.SubmissionRepo.WithContext(ctx)
	list, err := submissions.ListByAssignment(assignmentID)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]uint, 0, len(list))
	for _, sa := range list {
		ids = append(ids, sa.StudentID)
	}
	users, err := s.UserRepo.WithContext(ctx).FindByIDs(ids)
	if err != nil {
		return nil, nil, err
	}

	rows := make([]GradebookRow, 0, len(list))
	for _, sa := range list {
		responses, err := submissions.ListResponses(sa.ID)
		if err != nil {
			return nil, nil, err
		}
		scores := make(map[uint]*float64, len(responses))
		for _, r := range responses {
			scores[r.QuestionID] = r.Score
		}
		rows = append(rows, GradebookRow{Student: users[sa.StudentID], Submission: sa, QuestionScores: scores})
	}
	return assignment, rows, nil
}

// ExportGradebook 生成 CSV 并上传到配置的存储，返回访问地址
func (s *GradebookService) ExportGradebook(ctx context.Context, actor Actor, assignmentID uint) (string, error) {
	assignment, rows, err := s.BuildGradebook(ctx, actor, assignmentID)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := WriteGradebook(&buf, assignment.Questions, rows); err != nil {
		return "", err
	}

	key := fmt.Sprintf("gradebooks/assignment-%d-%s.csv", assignment.ID, uuid.NewString())
	return s.Storage.Upload(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), util.MimeCSV)
}
