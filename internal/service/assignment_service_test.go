package service

import (
	"context"
	"edu_assistant_backend/internal/model"
	"edu_assistant_backend/internal/testutil"
	"edu_assistant_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAssignmentWithQuestions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.assignment.CreateAssignment(ctx, f.teacherActor(), CreateAssignmentRequest{
		CourseID: f.course1.ID,
		Title:    " Week 1 ",
		Questions: []QuestionInput{
			{Text: "Which is stable?", Type: model.QuestionTypeMultipleChoice, Points: 5, Options: []OptionInput{{Text: "merge", IsCorrect: true}, {Text: "quick"}}},
			{Text: "Define a heap", Type: model.QuestionTypeShortAnswer, Points: 10},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Week 1", a.Title)
	assert.Equal(t, 100.0, a.TotalPoints)
	require.Len(t, a.Questions, 2)
	assert.Equal(t, 1, a.Questions[0].Order)
	assert.Equal(t, 2, a.Questions[1].Order)

	questions, err := f.assignment.GetAssignmentQuestions(ctx, f.studentActor(), a.ID)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	require.Len(t, questions[0].Options, 2)
	assert.Equal(t, "merge", questions[0].Options[0].Text)

	// 在读学生自动获得提交记录
	sa, err := f.submissionRepo.Find(f.student.ID, a.ID)
	require.NoError(t, err)
	assert.Zero(t, sa.Attempts)
	_, err = f.submissionRepo.Find(f.outsider.ID, a.ID)
	assert.Error(t, err)
}

func TestCreateAssignmentRollsBackOnInvalidQuestion(t *testing.T) {
	f := newFixture(t)

	_, err := f.assignment.CreateAssignment(context.Background(), f.teacherActor(), CreateAssignmentRequest{
		CourseID: f.course1.ID,
		Title:    "Broken",
		Questions: []QuestionInput{
			{Text: "ok", Type: model.QuestionTypeShortAnswer, Points: 1},
			{Text: "one option", Type: model.QuestionTypeMultipleChoice, Points: 1, Options: []OptionInput{{Text: "only"}}},
		},
	})
	require.ErrorIs(t, err, util.ErrOptionsRequired)
	assert.Zero(t, f.countRows(t, &model.Assignment{}))
	assert.Zero(t, f.countRows(t, &model.Question{}))
}

func TestCreateAssignmentRequiresCourseTeacher(t *testing.T) {
	f := newFixture(t)
	other := testutil.CreateUser(t, f.db, model.Teacher)

	_, err := f.assignment.CreateAssignment(context.Background(), Actor{UserID: other.ID, Role: model.Teacher}, CreateAssignmentRequest{
		CourseID: f.course1.ID,
		Title:    "x",
	})
	assert.ErrorIs(t, err, util.ErrNotCourseTeacher)
}

func TestBuildQuestionValidation(t *testing.T) {
	cases := []struct {
		name string
		in   QuestionInput
		err  error
	}{
		{"unknown type", QuestionInput{Text: "q", Type: "essay", Points: 1}, util.ErrInvalidQuestionType},
		{"zero points", QuestionInput{Text: "q", Type: model.QuestionTypeShortAnswer}, util.ErrInvalidPoints},
		{"blank text", QuestionInput{Text: " ", Type: model.QuestionTypeShortAnswer, Points: 1}, util.ErrValidation},
		{"options on fill in", QuestionInput{Text: "q", Type: model.QuestionTypeFillInBlank, Points: 1, Options: []OptionInput{{Text: "a"}}}, util.ErrOptionsNotAllowed},
		{"too few options", QuestionInput{Text: "q", Type: model.QuestionTypeMultipleChoice, Points: 1}, util.ErrOptionsRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := buildQuestion(1, 1, tc.in)
			assert.ErrorIs(t, err, tc.err)
		})
	}

	q, err := buildQuestion(7, 3, QuestionInput{Text: "q", Type: model.QuestionTypeMultipleChoice, Points: 2, Options: []OptionInput{{Text: "a"}, {Text: "b", IsCorrect: true}}})
	require.NoError(t, err)
	assert.Equal(t, uint(7), q.AssignmentID)
	assert.Equal(t, 3, q.Order)
	require.Len(t, q.Options, 2)
	assert.Equal(t, 2, q.Options[1].Order)
	assert.True(t, q.Options[1].IsCorrect)
}

func TestAddQuestionAppendsAfterHighestOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(1), shortAnswer(1))

	q, err := f.assignment.AddQuestion(ctx, f.teacherActor(), a.ID, QuestionInput{Text: "third", Type: model.QuestionTypeFillInBlank, Points: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, q.Order)

	// 软删除的题目仍占用序号
	require.NoError(t, f.db.Delete(&model.Question{}, q.ID).Error)
	q, err = f.assignment.AddQuestion(ctx, f.teacherActor(), a.ID, QuestionInput{Text: "fourth", Type: model.QuestionTypeShortAnswer, Points: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, q.Order)
}

func TestAddQuestionReopensPerQuestionCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(10))
	wholeStudent := testutil.CreateUser(t, f.db, model.Student)
	testutil.Enroll(t, f.db, wholeStudent.ID, f.course1.ID)

	_, err := f.submission.SubmitResponse(ctx, f.student.ID, a.Questions[0].ID, TextAnswer{Text: "x"})
	require.NoError(t, err)
	_, sa, err := f.grading.GradeResponse(ctx, f.teacherActor(), f.student.ID, a.Questions[0].ID, 8, "")
	require.NoError(t, err)
	require.True(t, sa.Completed)

	_, err = f.assignment.AssignToStudents(ctx, f.teacherActor(), a.ID)
	require.NoError(t, err)
	_, err = f.grading.GradeAssignment(ctx, f.teacherActor(), wholeStudent.ID, a.ID, 70, "")
	require.NoError(t, err)

	q, err := f.assignment.AddQuestion(ctx, f.teacherActor(), a.ID, QuestionInput{Text: "follow-up", Type: model.QuestionTypeShortAnswer, Points: 5})
	require.NoError(t, err)

	perQuestion, err := f.submissionRepo.Find(f.student.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, perQuestion.Completed)
	assert.Nil(t, perQuestion.CompletionDate)
	require.NotNil(t, perQuestion.Score)
	assert.Equal(t, 8.0, *perQuestion.Score)

	// 整体评分不受题目变化影响
	whole, err := f.submissionRepo.Find(wholeStudent.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, whole.Completed)
	assert.Equal(t, 70.0, *whole.Score)

	_, err = f.submission.SubmitResponse(ctx, f.student.ID, q.ID, TextAnswer{Text: "y"})
	require.NoError(t, err)
	_, sa, err = f.grading.GradeResponse(ctx, f.teacherActor(), f.student.ID, q.ID, 5, "")
	require.NoError(t, err)
	assert.True(t, sa.Completed)
	assert.Equal(t, 13.0, *sa.Score)
}

func TestAssignToStudentsIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(1))

	n, err := f.assignment.AssignToStudents(ctx, f.teacherActor(), a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	late := testutil.CreateUser(t, f.db, model.Student)
	testutil.Enroll(t, f.db, late.ID, f.course1.ID)
	n, err = f.assignment.AssignToStudents(ctx, f.teacherActor(), a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.EqualValues(t, 2, f.countRows(t, &model.StudentAssignment{}))
}

func TestGetAssignmentRequiresEnrollmentForStudents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(1))

	_, err := f.assignment.GetAssignment(ctx, Actor{UserID: f.outsider.ID, Role: model.Student}, a.ID)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)

	got, err := f.assignment.GetAssignment(ctx, f.studentActor(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = f.assignment.GetAssignment(ctx, f.teacherActor(), 9999)
	assert.ErrorIs(t, err, util.ErrAssignmentNotFound)
}
