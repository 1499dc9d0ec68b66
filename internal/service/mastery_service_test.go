package service

import (
	"context"
	"edu_assistant_backend/internal/model"
	"edu_assistant_backend/internal/testutil"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMasteryService(f *fixture) *MasteryService {
	s := NewMasteryService(f.masteryRepo, f.activityRepo, nil, DefaultMasteryParams(), time.Minute)
	s.rnd = nil
	return s
}

func TestRecomputeAllCoversEnrolledStudents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	kp1 := testutil.CreateKnowledgePoint(t, f.db, f.course1.ID, nil)
	testutil.CreateKnowledgePoint(t, f.db, f.course1.ID, &kp1.ID)

	// 另一门课程的学生和知识点不参与本课程
	otherCourse := testutil.CreateCourse(t, f.db, f.teacher.ID)
	testutil.CreateKnowledgePoint(t, f.db, otherCourse.ID, nil)

	s := newMasteryService(f)
	result, err := s.RecomputeAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Pairs)
	assert.Equal(t, 1, result.Students)

	list, err := s.GetStudentMastery(ctx, f.student.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, skp := range list {
		assert.Equal(t, 0.5, skp.MasteryLevel)
		assert.Nil(t, skp.LastInteraction)
		require.NotNil(t, skp.KnowledgePoint)
	}

	outsider, err := s.GetStudentMastery(ctx, f.outsider.ID)
	require.NoError(t, err)
	assert.Empty(t, outsider)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	kp := testutil.CreateKnowledgePoint(t, f.db, f.course1.ID, nil)
	_, err := f.activity.RecordActivity(ctx, f.student.ID, RecordActivityRequest{KnowledgePointID: kp.ID, ActivityType: model.ActivityPractice})
	require.NoError(t, err)

	s := newMasteryService(f)
	_, err = s.RecomputeAll(ctx)
	require.NoError(t, err)
	first, err := s.GetStudentMastery(ctx, f.student.ID)
	require.NoError(t, err)

	_, err = s.RecomputeAll(ctx)
	require.NoError(t, err)
	second, err := s.GetStudentMastery(ctx, f.student.ID)
	require.NoError(t, err)

	require.Len(t, second, 1)
	assert.Equal(t, first[0].MasteryLevel, second[0].MasteryLevel)
	assert.EqualValues(t, 1, f.countRows(t, &model.StudentKnowledgePoint{}))
}

func TestRecomputeUsesActivityAndGrades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	kp := testutil.CreateKnowledgePoint(t, f.db, f.course1.ID, nil)

	a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(10), shortAnswer(10))
	_, err := f.knowledgePoint.SetAssignmentKnowledgePoints(ctx, f.teacherActor(), a.ID, []KnowledgePointLink{{KnowledgePointID: kp.ID}})
	require.NoError(t, err)

	// 作业满分 100，两题各 10 分，得 10 + 5
	for i, score := range []float64{10, 5} {
		_, err := f.submission.SubmitResponse(ctx, f.student.ID, a.Questions[i].ID, TextAnswer{Text: "x"})
		require.NoError(t, err)
		_, _, err = f.grading.GradeResponse(ctx, f.teacherActor(), f.student.ID, a.Questions[i].ID, score, "")
		require.NoError(t, err)
	}

	last := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		ts := last.Add(-time.Duration(i) * time.Hour)
		_, err := f.activity.RecordActivity(ctx, f.student.ID, RecordActivityRequest{
			KnowledgePointID: kp.ID,
			ActivityType:     model.ActivityView,
			Timestamp:        &ts,
		})
		require.NoError(t, err)
	}

	s := newMasteryService(f)
	sig, lastSeen, err := s.Signals(ctx, f.student.ID, kp.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 15, sig.ActivityCount)
	require.NotNil(t, sig.AssignmentRatio)
	assert.InDelta(t, 0.15, *sig.AssignmentRatio, 1e-9)
	require.NotNil(t, sig.QuestionRatio)
	assert.InDelta(t, 0.75, *sig.QuestionRatio, 1e-9)
	require.NotNil(t, lastSeen)
	assert.True(t, lastSeen.Equal(last))

	skp, err := s.Recompute(ctx, f.student.ID, kp.ID)
	require.NoError(t, err)
	// (0.4*0.875 + 0.3*0.15 + 0.3*0.75) / 1.0 = 0.62
	assert.Equal(t, 0.62, skp.MasteryLevel)
}

func TestUpdateParamsAppliesToNextRecompute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	kp := testutil.CreateKnowledgePoint(t, f.db, f.course1.ID, nil)

	s := newMasteryService(f)
	p := s.Params()
	p.BaseProficiency = 0.3
	s.UpdateParams(p)

	skp, err := s.Recompute(ctx, f.student.ID, kp.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.3, skp.MasteryLevel)
}

func TestRecomputeStudentOnlyTouchesThatStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.CreateKnowledgePoint(t, f.db, f.course1.ID, nil)
	second := testutil.CreateUser(t, f.db, model.Student)
	testutil.Enroll(t, f.db, second.ID, f.course1.ID)

	s := newMasteryService(f)
	result, err := s.RecomputeStudent(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Pairs)

	list, err := s.GetStudentMastery(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRecomputeAllPrunesStaleRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	kept := testutil.CreateKnowledgePoint(t, f.db, f.course1.ID, nil)
	removed := testutil.CreateKnowledgePoint(t, f.db, f.course1.ID, nil)

	s := newMasteryService(f)
	_, err := s.RecomputeAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, f.countRows(t, &model.StudentKnowledgePoint{}))

	require.NoError(t, f.knowledgePoint.Delete(ctx, f.teacherActor(), removed.ID))

	// 重算之前读取也不返回已删除知识点
	list, err := s.GetStudentMastery(ctx, f.student.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, kept.ID, list[0].KnowledgePointID)
	require.NotNil(t, list[0].KnowledgePoint)

	result, err := s.RecomputeAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Pruned)
	assert.EqualValues(t, 1, f.countRows(t, &model.StudentKnowledgePoint{}))

	require.NoError(t, f.course.Unenroll(ctx, f.course1.ID, f.student.ID))
	list, err = s.GetStudentMastery(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	result, err = s.RecomputeStudent(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Zero(t, result.Pairs)
	assert.EqualValues(t, 1, result.Pruned)
	assert.Zero(t, f.countRows(t, &model.StudentKnowledgePoint{}))
}

func TestRecomputeStudentPrunesOnlyThatStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	kp := testutil.CreateKnowledgePoint(t, f.db, f.course1.ID, nil)
	other := testutil.CreateUser(t, f.db, model.Student)
	_, err := f.course.Enroll(ctx, f.course1.ID, other.ID)
	require.NoError(t, err)

	s := newMasteryService(f)
	_, err = s.RecomputeAll(ctx)
	require.NoError(t, err)
	require.NoError(t, f.course.Unenroll(ctx, f.course1.ID, other.ID))

	result, err := s.RecomputeStudent(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Zero(t, result.Pruned)
	assert.EqualValues(t, 2, f.countRows(t, &model.StudentKnowledgePoint{}))

	result, err = s.RecomputeAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Pruned)

	var rows []model.StudentKnowledgePoint
	require.NoError(t, f.db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, f.student.ID, rows[0].StudentID)
	assert.Equal(t, kp.ID, rows[0].KnowledgePointID)
}
