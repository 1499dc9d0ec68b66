package service

import (
	"edu_assistant_backend/internal/model"
	"edu_assistant_backend/internal/repository"
	"edu_assistant_backend/internal/testutil"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu    sync.Mutex
	users [][]uint
	msgs  []WSMessage
}

func (n *recordingNotifier) PushToUsers(userIDs []uint, msg WSMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.users = append(n.users, userIDs)
	n.msgs = append(n.msgs, msg)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

// fixture 一个课程：授课教师、在读学生、未选课学生
type fixture struct {
	db       *gorm.DB
	notifier *recordingNotifier

	assignmentRepo *repository.AssignmentRepository
	courseRepo     *repository.CourseRepository
	submissionRepo *repository.SubmissionRepository
	kpRepo         *repository.KnowledgePointRepository
	activityRepo   *repository.LearningActivityRepository
	masteryRepo    *repository.MasteryRepository
	userRepo       *repository.UserRepository

	submission     *SubmissionService
	grading        *GradingService
	assignment     *AssignmentService
	course         *CourseService
	knowledgePoint *KnowledgePointService
	activity       *ActivityService

	teacher  *model.User
	student  *model.User
	outsider *model.User
	course1  *model.Course
}

var fixedNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	f := &fixture{
		db:             db,
		notifier:       &recordingNotifier{},
		assignmentRepo: repository.NewAssignmentRepository(db),
		courseRepo:     repository.NewCourseRepository(db),
		submissionRepo: repository.NewSubmissionRepository(db),
		kpRepo:         repository.NewKnowledgePointRepository(db),
		activityRepo:   repository.NewLearningActivityRepository(db),
		masteryRepo:    repository.NewMasteryRepository(db),
		userRepo:       repository.NewUserRepository(db),
	}

	f.submission = NewSubmissionService(db, f.assignmentRepo, f.courseRepo, f.submissionRepo)
	f.submission.now = func() time.Time { return fixedNow }
	f.grading = NewGradingService(db, f.assignmentRepo, f.courseRepo, f.submissionRepo, f.notifier)
	f.grading.now = func() time.Time { return fixedNow }
	f.assignment = NewAssignmentService(db, f.assignmentRepo, f.courseRepo, f.submissionRepo)
	f.assignment.now = func() time.Time { return fixedNow }
	f.course = NewCourseService(db, f.courseRepo, f.userRepo)
	f.knowledgePoint = NewKnowledgePointService(db, f.kpRepo, f.courseRepo, f.assignmentRepo)
	f.activity = NewActivityService(f.activityRepo, f.kpRepo, f.courseRepo)

	f.teacher = testutil.CreateUser(t, db, model.Teacher)
	f.student = testutil.CreateUser(t, db, model.Student)
	f.outsider = testutil.CreateUser(t, db, model.Student)
	f.course1 = testutil.CreateCourse(t, db, f.teacher.ID)
	testutil.Enroll(t, db, f.student.ID, f.course1.ID)
	return f
}

func (f *fixture) teacherActor() Actor {
	return Actor{UserID: f.teacher.ID, Role: model.Teacher}
}

func (f *fixture) studentActor() Actor {
	return Actor{UserID: f.student.ID, Role: model.Student}
}

func shortAnswer(points float64) model.Question {
	return model.Question{Text: "Explain", Type: model.QuestionTypeShortAnswer, Points: points}
}

func fillInBlank(points float64) model.Question {
	return model.Question{Text: "Fill ___", Type: model.QuestionTypeFillInBlank, Points: points}
}

func multipleChoice(points float64, options ...string) model.Question {
	q := model.Question{Text: "Pick one", Type: model.QuestionTypeMultipleChoice, Points: points}
	for i, o := range options {
		q.Options = append(q.Options, model.QuestionOption{Text: o, IsCorrect: i == 0, Order: i + 1})
	}
	return q
}

func (f *fixture) countRows(t *testing.T, m interface{}) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(m).Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", m, err)
	}
	return n
}

func ptr[T any](v T) *T {
	return &v
}
