package service

import (
	"context"
	"edu_assistant_backend/internal/model"
	"edu_assistant_backend/internal/testutil"
	"edu_assistant_backend/internal/util"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// answered 学生对作业的每道题都提交一次文本答案
func (f *fixture) answered(t *testing.T, a *model.Assignment) {
	t.Helper()
	for _, q := range a.Questions {
		_, err := f.submission.SubmitResponse(context.Background(), f.student.ID, q.ID, TextAnswer{Text: "answer"})
		require.NoError(t, err)
	}
}

func TestGradeResponseCompletesWhenEveryQuestionScored(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(50), shortAnswer(50))
	f.answered(t, a)
	ctx := context.Background()

	_, sa, err := f.grading.GradeResponse(ctx, f.teacherActor(), f.student.ID, a.Questions[0].ID, 0, "missed the point")
	require.NoError(t, err)
	require.NotNil(t, sa.Score)
	assert.Equal(t, 0.0, *sa.Score)
	assert.False(t, sa.Completed)
	assert.Nil(t, sa.CompletionDate)
	assert.Equal(t, model.GradingModePerQuestion, sa.GradingMode)

	resp, sa, err := f.grading.GradeResponse(ctx, f.teacherActor(), f.student.ID, a.Questions[1].ID, 45, "good")
	require.NoError(t, err)
	assert.Equal(t, 45.0, *resp.Score)
	assert.Equal(t, "good", resp.Feedback)
	require.NotNil(t, resp.GradedBy)
	assert.Equal(t, f.teacher.ID, *resp.GradedBy)

	require.NotNil(t, sa.Score)
	assert.Equal(t, 45.0, *sa.Score)
	assert.True(t, sa.Completed)
	require.NotNil(t, sa.CompletionDate)
	assert.True(t, sa.CompletionDate.Equal(fixedNow))

	stored, err := f.submissionRepo.Find(f.student.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 45.0, *stored.Score)
	assert.True(t, stored.Completed)
}

func TestGradeResponseRegradeReplacesScore(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(10))
	f.answered(t, a)
	ctx := context.Background()
	qid := a.Questions[0].ID

	_, _, err := f.grading.GradeResponse(ctx, f.teacherActor(), f.student.ID, qid, 9, "")
	require.NoError(t, err)
	_, sa, err := f.grading.GradeResponse(ctx, f.teacherActor(), f.student.ID, qid, 4, "")
	require.NoError(t, err)

	assert.Equal(t, 4.0, *sa.Score)
	assert.True(t, sa.Completed)
}

func TestGradeResponseScoreOutOfRangeLeavesPriorScore(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(10))
	f.answered(t, a)
	ctx := context.Background()
	qid := a.Questions[0].ID

	_, _, err := f.grading.GradeResponse(ctx, f.teacherActor(), f.student.ID, qid, 6, "")
	require.NoError(t, err)

	for _, score := range []float64{10.5, -1} {
		_, _, err = f.grading.GradeResponse(ctx, f.teacherActor(), f.student.ID, qid, score, "")
		assert.ErrorIs(t, err, util.ErrScoreOutOfRange, "score %v", score)
	}

	sa, err := f.submissionRepo.Find(f.student.ID, a.ID)
	require.NoError(t, err)
	resp, err := f.submissionRepo.FindResponse(sa.ID, qid)
	require.NoError(t, err)
	assert.Equal(t, 6.0, *resp.Score)
	assert.Equal(t, 6.0, *sa.Score)
}

func TestGradeResponseBoundaryScores(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(10), shortAnswer(10))
	f.answered(t, a)
	ctx := context.Background()

	_, _, err := f.grading.GradeResponse(ctx, f.teacherActor(), f.student.ID, a.Questions[0].ID, 0, "")
	require.NoError(t, err)
	_, sa, err := f.grading.GradeResponse(ctx, f.teacherActor(), f.student.ID, a.Questions[1].ID, 10, "")
	require.NoError(t, err)
	assert.Equal(t, 10.0, *sa.Score)
}

func TestGradeResponseRequiresCourseTeacher(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(10))
	f.answered(t, a)
	other := testutil.CreateUser(t, f.db, model.Teacher)

	_, _, err := f.grading.GradeResponse(context.Background(), Actor{UserID: other.ID, Role: model.Teacher}, f.student.ID, a.Questions[0].ID, 5, "")
	require.ErrorIs(t, err, util.ErrNotCourseTeacher)
	assert.Zero(t, f.notifier.count())

	admin := testutil.CreateUser(t, f.db, model.Admin)
	_, _, err = f.grading.GradeResponse(context.Background(), Actor{UserID: admin.ID, Role: model.Admin}, f.student.ID, a.Questions[0].ID, 5, "")
	assert.NoError(t, err)
}

func TestGradeResponseWithoutAnswer(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(10), shortAnswer(10))
	ctx := context.Background()

	_, _, err := f.grading.GradeResponse(ctx, f.teacherActor(), f.student.ID, a.Questions[0].ID, 5, "")
	assert.ErrorIs(t, err, util.ErrSubmissionNotFound)

	_, err = f.submission.SubmitResponse(ctx, f.student.ID, a.Questions[0].ID, TextAnswer{Text: "x"})
	require.NoError(t, err)
	_, _, err = f.grading.GradeResponse(ctx, f.teacherActor(), f.student.ID, a.Questions[1].ID, 5, "")
	assert.ErrorIs(t, err, util.ErrResponseNotFound)
}

func TestGradeResponseNotifiesStudent(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(10))
	f.answered(t, a)

	_, _, err := f.grading.GradeResponse(context.Background(), f.teacherActor(), f.student.ID, a.Questions[0].ID, 8, "nice")
	require.NoError(t, err)

	require.Equal(t, 1, f.notifier.count())
	assert.Equal(t, []uint{f.student.ID}, f.notifier.users[0])
	msg := f.notifier.msgs[0]
	assert.Equal(t, util.EventGradeUpdated, msg.Type)
	event, ok := msg.Data.(GradeEvent)
	require.True(t, ok)
	assert.Equal(t, a.ID, event.AssignmentID)
	assert.Equal(t, a.Questions[0].ID, *event.QuestionID)
	assert.Equal(t, 8.0, event.Score)
	assert.Equal(t, 8.0, *event.TotalScore)
	assert.True(t, event.Completed)
}

func TestGradeAssignmentWholeScore(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(10))
	_, err := f.submission.SubmitAssignment(context.Background(), f.student.ID, a.ID, AssignmentSubmission{Answer: "essay"})
	require.NoError(t, err)

	// 整体评分不校验作业满分
	sa, err := f.grading.GradeAssignment(context.Background(), f.teacherActor(), f.student.ID, a.ID, 120, "excellent")
	require.NoError(t, err)
	assert.Equal(t, 120.0, *sa.Score)
	assert.Equal(t, "excellent", sa.Feedback)
	assert.True(t, sa.Completed)
	assert.Equal(t, model.GradingModeWhole, sa.GradingMode)
	assert.Equal(t, 1, f.notifier.count())
}

func TestGradeAssignmentRejectsNegativeScore(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(10))
	_, err := f.submission.SubmitAssignment(context.Background(), f.student.ID, a.ID, AssignmentSubmission{Answer: "essay"})
	require.NoError(t, err)

	_, err = f.grading.GradeAssignment(context.Background(), f.teacherActor(), f.student.ID, a.ID, -5, "")
	require.ErrorIs(t, err, util.ErrNegativeScore)

	sa, err := f.submissionRepo.Find(f.student.ID, a.ID)
	require.NoError(t, err)
	assert.Nil(t, sa.Score)
	assert.False(t, sa.Completed)
}

func TestGradingModesAreMutuallyExclusive(t *testing.T) {
	ctx := context.Background()

	t.Run("whole after per-question", func(t *testing.T) {
		f := newFixture(t)
		a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(10), shortAnswer(10))
		f.answered(t, a)
		_, _, err := f.grading.GradeResponse(ctx, f.teacherActor(), f.student.ID, a.Questions[0].ID, 5, "")
		require.NoError(t, err)

		_, err = f.grading.GradeAssignment(ctx, f.teacherActor(), f.student.ID, a.ID, 90, "")
		require.ErrorIs(t, err, util.ErrGradingConflict)
		assert.ErrorIs(t, err, util.ErrConflict)

		sa, err := f.submissionRepo.Find(f.student.ID, a.ID)
		require.NoError(t, err)
		assert.Equal(t, 5.0, *sa.Score)
	})

	t.Run("per-question after whole", func(t *testing.T) {
		f := newFixture(t)
		a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(10))
		f.answered(t, a)
		_, err := f.grading.GradeAssignment(ctx, f.teacherActor(), f.student.ID, a.ID, 90, "")
		require.NoError(t, err)

		_, _, err = f.grading.GradeResponse(ctx, f.teacherActor(), f.student.ID, a.Questions[0].ID, 5, "")
		require.ErrorIs(t, err, util.ErrGradingConflict)

		sa, err := f.submissionRepo.Find(f.student.ID, a.ID)
		require.NoError(t, err)
		assert.Equal(t, 90.0, *sa.Score)
	})
}

func TestRecomputeTotalRepairsDrift(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(10), shortAnswer(10))
	f.answered(t, a)
	ctx := context.Background()
	for _, q := range a.Questions {
		_, _, err := f.grading.GradeResponse(ctx, f.teacherActor(), f.student.ID, q.ID, 3, "")
		require.NoError(t, err)
	}

	sa, err := f.submissionRepo.Find(f.student.ID, a.ID)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(sa).Updates(map[string]interface{}{"score": 99, "completed": false}).Error)

	fixed, err := f.grading.RecomputeTotal(ctx, sa.ID)
	require.NoError(t, err)
	assert.Equal(t, 6.0, *fixed.Score)
	assert.True(t, fixed.Completed)
}

func TestRecomputeTotalSkipsWholeGraded(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(10))
	f.answered(t, a)
	ctx := context.Background()
	sa, err := f.grading.GradeAssignment(ctx, f.teacherActor(), f.student.ID, a.ID, 70, "")
	require.NoError(t, err)

	_, err = f.grading.RecomputeTotal(ctx, sa.ID)
	assert.ErrorIs(t, err, util.ErrGradingConflict)

	_, err = f.grading.RecomputeTotal(ctx, 12345)
	assert.ErrorIs(t, err, util.ErrSubmissionNotFound)
}

func TestConcurrentGradesKeepEveryScore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(10), shortAnswer(10), shortAnswer(10), shortAnswer(10))
	f.answered(t, a)

	for round := 1; round <= 3; round++ {
		var wg sync.WaitGroup
		errs := make(chan error, len(a.Questions))
		for i, q := range a.Questions {
			wg.Add(1)
			go func(questionID uint, score float64) {
				defer wg.Done()
				_, _, err := f.grading.GradeResponse(ctx, f.teacherActor(), f.student.ID, questionID, score, "")
				errs <- err
			}(q.ID, float64(i+round))
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		sa, err := f.submissionRepo.Find(f.student.ID, a.ID)
		require.NoError(t, err)
		require.NotNil(t, sa.Score)
		// (0+1+2+3) + 4*round
		assert.Equal(t, float64(6+4*round), *sa.Score, "round %d", round)
		assert.True(t, sa.Completed)
	}
	assert.Equal(t, 12, f.notifier.count())
}
