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

func TestSubmitResponseRequiresActiveEnrollment(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(10))

	_, err := f.submission.SubmitResponse(context.Background(), f.outsider.ID, a.Questions[0].ID, TextAnswer{Text: "hi"})
	require.ErrorIs(t, err, util.ErrNotEnrolled)
	assert.ErrorIs(t, err, util.ErrUnauthorized)

	assert.Zero(t, f.countRows(t, &model.StudentAssignment{}))
	assert.Zero(t, f.countRows(t, &model.StudentResponse{}))
}

func TestSubmitResponseAfterUnenrollIsRejected(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(10))
	require.NoError(t, f.course.Unenroll(context.Background(), f.course1.ID, f.student.ID))

	_, err := f.submission.SubmitResponse(context.Background(), f.student.ID, a.Questions[0].ID, TextAnswer{Text: "hi"})
	assert.ErrorIs(t, err, util.ErrNotEnrolled)
}

func TestSubmitResponseCreatesSubmissionOnFirstAnswer(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(10))

	resp, err := f.submission.SubmitResponse(context.Background(), f.student.ID, a.Questions[0].ID, TextAnswer{Text: "binary search"})
	require.NoError(t, err)
	require.NotNil(t, resp.AnswerText)
	assert.Equal(t, "binary search", *resp.AnswerText)
	assert.Nil(t, resp.SelectedOptionID)
	assert.Nil(t, resp.Score)

	sa, err := f.submissionRepo.Find(f.student.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sa.Attempts)
	require.NotNil(t, sa.SubmittedAt)
	assert.True(t, sa.SubmittedAt.Equal(fixedNow))
	assert.Equal(t, sa.ID, resp.StudentAssignmentID)
}

func TestSubmitResponseResubmitOverwritesAnswer(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(10))
	qid := a.Questions[0].ID
	ctx := context.Background()

	_, err := f.submission.SubmitResponse(ctx, f.student.ID, qid, TextAnswer{Text: "first"})
	require.NoError(t, err)
	resp, err := f.submission.SubmitResponse(ctx, f.student.ID, qid, TextAnswer{Text: "second"})
	require.NoError(t, err)

	assert.Equal(t, "second", *resp.AnswerText)
	assert.EqualValues(t, 1, f.countRows(t, &model.StudentResponse{}))
	assert.EqualValues(t, 1, f.countRows(t, &model.StudentAssignment{}))

	sa, err := f.submissionRepo.Find(f.student.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, sa.Attempts)
}

func TestSubmitResponseKeepsExistingScore(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(10))
	qid := a.Questions[0].ID
	ctx := context.Background()

	_, err := f.submission.SubmitResponse(ctx, f.student.ID, qid, TextAnswer{Text: "first"})
	require.NoError(t, err)
	_, _, err = f.grading.GradeResponse(ctx, f.teacherActor(), f.student.ID, qid, 7, "ok")
	require.NoError(t, err)

	resp, err := f.submission.SubmitResponse(ctx, f.student.ID, qid, TextAnswer{Text: "revised"})
	require.NoError(t, err)
	require.NotNil(t, resp.Score)
	assert.Equal(t, 7.0, *resp.Score)
	assert.Equal(t, "revised", *resp.AnswerText)
}

func TestSubmitResponseAnswerKindMustMatchQuestion(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateAssignment(t, f.db, f.course1.ID,
		multipleChoice(5, "O(n)", "O(log n)"),
		shortAnswer(10),
	)
	ctx := context.Background()

	_, err := f.submission.SubmitResponse(ctx, f.student.ID, a.Questions[0].ID, TextAnswer{Text: "O(n)"})
	assert.ErrorIs(t, err, util.ErrAnswerKindMismatch)

	_, err = f.submission.SubmitResponse(ctx, f.student.ID, a.Questions[1].ID, OptionAnswer{OptionID: a.Questions[0].Options[0].ID})
	assert.ErrorIs(t, err, util.ErrAnswerKindMismatch)

	assert.Zero(t, f.countRows(t, &model.StudentResponse{}))
	assert.Zero(t, f.countRows(t, &model.StudentAssignment{}))
}

func TestSubmitResponseRejectsOptionOfAnotherQuestion(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateAssignment(t, f.db, f.course1.ID,
		multipleChoice(5, "a", "b"),
		multipleChoice(5, "c", "d"),
	)

	foreign := a.Questions[1].Options[0].ID
	_, err := f.submission.SubmitResponse(context.Background(), f.student.ID, a.Questions[0].ID, OptionAnswer{OptionID: foreign})
	assert.ErrorIs(t, err, util.ErrOptionNotFound)
}

func TestSubmitResponseMultipleChoiceStoresOption(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateAssignment(t, f.db, f.course1.ID, multipleChoice(5, "a", "b", "c"))
	opt := a.Questions[0].Options[2].ID

	resp, err := f.submission.SubmitResponse(context.Background(), f.student.ID, a.Questions[0].ID, OptionAnswer{OptionID: opt})
	require.NoError(t, err)
	require.NotNil(t, resp.SelectedOptionID)
	assert.Equal(t, opt, *resp.SelectedOptionID)
	assert.Nil(t, resp.AnswerText)
}

func TestSubmitResponseFillInBlankIsTrimmed(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateAssignment(t, f.db, f.course1.ID, fillInBlank(2), shortAnswer(2))
	ctx := context.Background()

	blank, err := f.submission.SubmitResponse(ctx, f.student.ID, a.Questions[0].ID, TextAnswer{Text: "  stack \n"})
	require.NoError(t, err)
	assert.Equal(t, "stack", *blank.AnswerText)

	essay, err := f.submission.SubmitResponse(ctx, f.student.ID, a.Questions[1].ID, TextAnswer{Text: "  indented"})
	require.NoError(t, err)
	assert.Equal(t, "  indented", *essay.AnswerText)
}

func TestSubmitResponseAllowsEmptyText(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(2))

	resp, err := f.submission.SubmitResponse(context.Background(), f.student.ID, a.Questions[0].ID, TextAnswer{})
	require.NoError(t, err)
	require.NotNil(t, resp.AnswerText)
	assert.Empty(t, *resp.AnswerText)
}

func TestSubmitResponseUnknownQuestion(t *testing.T) {
	f := newFixture(t)
	_, err := f.submission.SubmitResponse(context.Background(), f.student.ID, 999, TextAnswer{Text: "x"})
	assert.ErrorIs(t, err, util.ErrQuestionNotFound)
}

func TestSubmitAssignmentWritesAllAnswersAsOneAttempt(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateAssignment(t, f.db, f.course1.ID,
		multipleChoice(5, "a", "b"),
		fillInBlank(5),
		shortAnswer(10),
	)

	sa, err := f.submission.SubmitAssignment(context.Background(), f.student.ID, a.ID, AssignmentSubmission{
		Answer: "see attached",
		Answers: map[uint]Answer{
			a.Questions[0].ID: OptionAnswer{OptionID: a.Questions[0].Options[1].ID},
			a.Questions[1].ID: TextAnswer{Text: " queue "},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sa.Attempts)
	assert.Equal(t, "see attached", sa.Answer)

	responses, err := f.submission.GetStudentResponses(context.Background(), f.studentActor(), f.student.ID, a.ID)
	require.NoError(t, err)
	require.Len(t, responses, 2)
	assert.Equal(t, a.Questions[0].Options[1].ID, *responses[a.Questions[0].ID].SelectedOptionID)
	assert.Equal(t, "queue", *responses[a.Questions[1].ID].AnswerText)
}

func TestSubmitAssignmentValidatesEveryAnswerBeforeWriting(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(5), multipleChoice(5, "a", "b"))

	_, err := f.submission.SubmitAssignment(context.Background(), f.student.ID, a.ID, AssignmentSubmission{
		Answers: map[uint]Answer{
			a.Questions[0].ID: TextAnswer{Text: "fine"},
			a.Questions[1].ID: TextAnswer{Text: "wrong kind"},
		},
	})
	require.ErrorIs(t, err, util.ErrAnswerKindMismatch)
	assert.Zero(t, f.countRows(t, &model.StudentResponse{}))
	assert.Zero(t, f.countRows(t, &model.StudentAssignment{}))
}

func TestSubmitAssignmentRejectsQuestionFromOtherAssignment(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(5))
	other := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(5))

	_, err := f.submission.SubmitAssignment(context.Background(), f.student.ID, a.ID, AssignmentSubmission{
		Answers: map[uint]Answer{other.Questions[0].ID: TextAnswer{Text: "x"}},
	})
	assert.ErrorIs(t, err, util.ErrQuestionNotFound)
}

func TestGetStudentResponsesScopesStudents(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(5))
	ctx := context.Background()

	_, err := f.submission.GetStudentResponses(ctx, Actor{UserID: f.outsider.ID, Role: model.Student}, f.student.ID, a.ID)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	other := testutil.CreateUser(t, f.db, model.Teacher)
	_, err = f.submission.GetStudentResponses(ctx, Actor{UserID: other.ID, Role: model.Teacher}, f.student.ID, a.ID)
	assert.ErrorIs(t, err, util.ErrNotCourseTeacher)

	responses, err := f.submission.GetStudentResponses(ctx, f.teacherActor(), f.student.ID, a.ID)
	require.NoError(t, err)
	assert.Empty(t, responses)
}

func TestListStudentAssignmentsFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a1 := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(5))
	a2 := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(5))

	_, err := f.submission.SubmitResponse(ctx, f.student.ID, a1.Questions[0].ID, TextAnswer{Text: "x"})
	require.NoError(t, err)
	_, err = f.submission.SubmitResponse(ctx, f.student.ID, a2.Questions[0].ID, TextAnswer{Text: "y"})
	require.NoError(t, err)
	_, _, err = f.grading.GradeResponse(ctx, f.teacherActor(), f.student.ID, a1.Questions[0].ID, 5, "")
	require.NoError(t, err)

	all, err := f.submission.ListStudentAssignments(ctx, f.student.ID, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	done, err := f.submission.ListStudentAssignments(ctx, f.student.ID, &f.course1.ID, ptr(true))
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, a1.ID, done[0].AssignmentID)
	require.NotNil(t, done[0].Assignment)
}

func TestAnswerFromRequest(t *testing.T) {
	_, err := AnswerFromRequest(ptr("a"), ptr(uint(1)))
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = AnswerFromRequest(nil, nil)
	assert.ErrorIs(t, err, util.ErrValidation)

	a, err := AnswerFromRequest(ptr(""), nil)
	require.NoError(t, err)
	assert.Equal(t, TextAnswer{Text: ""}, a)

	a, err = AnswerFromRequest(nil, ptr(uint(3)))
	require.NoError(t, err)
	assert.Equal(t, OptionAnswer{OptionID: 3}, a)
}
