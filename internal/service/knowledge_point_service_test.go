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

func TestCreateKnowledgePointValidatesParentCourse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root, err := f.knowledgePoint.Create(ctx, f.teacherActor(), KnowledgePointRequest{CourseID: f.course1.ID, Name: " Trees "})
	require.NoError(t, err)
	assert.Equal(t, "Trees", root.Name)

	child, err := f.knowledgePoint.Create(ctx, f.teacherActor(), KnowledgePointRequest{CourseID: f.course1.ID, Name: "AVL", ParentID: &root.ID})
	require.NoError(t, err)
	assert.Equal(t, root.ID, *child.ParentID)

	other := testutil.CreateCourse(t, f.db, f.teacher.ID)
	_, err = f.knowledgePoint.Create(ctx, f.teacherActor(), KnowledgePointRequest{CourseID: other.ID, Name: "x", ParentID: &root.ID})
	assert.ErrorIs(t, err, util.ErrKnowledgePointCourse)

	_, err = f.knowledgePoint.Create(ctx, f.teacherActor(), KnowledgePointRequest{CourseID: f.course1.ID, Name: "  "})
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = f.knowledgePoint.Create(ctx, f.studentActor(), KnowledgePointRequest{CourseID: f.course1.ID, Name: "x"})
	assert.ErrorIs(t, err, util.ErrNotCourseTeacher)
}

func TestUpdateKnowledgePointRejectsCycles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := testutil.CreateKnowledgePoint(t, f.db, f.course1.ID, nil)
	b := testutil.CreateKnowledgePoint(t, f.db, f.course1.ID, &a.ID)
	c := testutil.CreateKnowledgePoint(t, f.db, f.course1.ID, &b.ID)

	_, err := f.knowledgePoint.Update(ctx, f.teacherActor(), a.ID, KnowledgePointUpdate{ParentID: &c.ID})
	assert.ErrorIs(t, err, util.ErrKnowledgePointCycle)

	_, err = f.knowledgePoint.Update(ctx, f.teacherActor(), a.ID, KnowledgePointUpdate{ParentID: &a.ID})
	assert.ErrorIs(t, err, util.ErrKnowledgePointCycle)

	stored, err := f.kpRepo.FindByID(a.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ParentID)

	moved, err := f.knowledgePoint.Update(ctx, f.teacherActor(), c.ID, KnowledgePointUpdate{ParentID: &a.ID, Name: ptr("Heaps")})
	require.NoError(t, err)
	assert.Equal(t, a.ID, *moved.ParentID)
	assert.Equal(t, "Heaps", moved.Name)

	detached, err := f.knowledgePoint.Update(ctx, f.teacherActor(), c.ID, KnowledgePointUpdate{DetachParent: true})
	require.NoError(t, err)
	assert.Nil(t, detached.ParentID)
}

func TestDeleteKnowledgePointWithChildren(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	parent := testutil.CreateKnowledgePoint(t, f.db, f.course1.ID, nil)
	child := testutil.CreateKnowledgePoint(t, f.db, f.course1.ID, &parent.ID)

	err := f.knowledgePoint.Delete(ctx, f.teacherActor(), parent.ID)
	require.ErrorIs(t, err, util.ErrKnowledgePointHasChildren)
	assert.ErrorIs(t, err, util.ErrConflict)

	require.NoError(t, f.knowledgePoint.Delete(ctx, f.teacherActor(), child.ID))
	require.NoError(t, f.knowledgePoint.Delete(ctx, f.teacherActor(), parent.ID))

	assert.ErrorIs(t, f.knowledgePoint.Delete(ctx, f.teacherActor(), parent.ID), util.ErrKnowledgePointNotFound)
}

func TestKnowledgePointTree(t *testing.T) {
	f := newFixture(t)
	root1 := testutil.CreateKnowledgePoint(t, f.db, f.course1.ID, nil)
	root2 := testutil.CreateKnowledgePoint(t, f.db, f.course1.ID, nil)
	child := testutil.CreateKnowledgePoint(t, f.db, f.course1.ID, &root1.ID)
	grandchild := testutil.CreateKnowledgePoint(t, f.db, f.course1.ID, &child.ID)

	tree, err := f.knowledgePoint.Tree(context.Background(), f.course1.ID)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, root1.ID, tree[0].ID)
	assert.Equal(t, root2.ID, tree[1].ID)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, child.ID, tree[0].Children[0].ID)
	require.Len(t, tree[0].Children[0].Children, 1)
	assert.Equal(t, grandchild.ID, tree[0].Children[0].Children[0].ID)
	assert.Empty(t, tree[1].Children)
}

func TestSetAssignmentKnowledgePoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(10))
	kp1 := testutil.CreateKnowledgePoint(t, f.db, f.course1.ID, nil)
	kp2 := testutil.CreateKnowledgePoint(t, f.db, f.course1.ID, nil)

	links, err := f.knowledgePoint.SetAssignmentKnowledgePoints(ctx, f.teacherActor(), a.ID, []KnowledgePointLink{
		{KnowledgePointID: kp1.ID},
		{KnowledgePointID: kp2.ID, Weight: ptr(0.5)},
		{KnowledgePointID: kp1.ID, Weight: ptr(2.0)},
	})
	require.NoError(t, err)
	require.Len(t, links, 2)

	stored, err := f.knowledgePoint.ListAssignmentKnowledgePoints(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, model.AssignmentKnowledgePoint{AssignmentID: a.ID, KnowledgePointID: kp1.ID, Weight: 2}, stored[0])
	assert.Equal(t, model.AssignmentKnowledgePoint{AssignmentID: a.ID, KnowledgePointID: kp2.ID, Weight: 0.5}, stored[1])

	// 整体替换
	_, err = f.knowledgePoint.SetAssignmentKnowledgePoints(ctx, f.teacherActor(), a.ID, []KnowledgePointLink{{KnowledgePointID: kp2.ID}})
	require.NoError(t, err)
	stored, err = f.knowledgePoint.ListAssignmentKnowledgePoints(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 1.0, stored[0].Weight)
}

func TestSetAssignmentKnowledgePointsValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := testutil.CreateAssignment(t, f.db, f.course1.ID, shortAnswer(10))
	kp := testutil.CreateKnowledgePoint(t, f.db, f.course1.ID, nil)
	foreign := testutil.CreateKnowledgePoint(t, f.db, testutil.CreateCourse(t, f.db, f.teacher.ID).ID, nil)

	_, err := f.knowledgePoint.SetAssignmentKnowledgePoints(ctx, f.teacherActor(), a.ID, []KnowledgePointLink{{KnowledgePointID: kp.ID, Weight: ptr(0.0)}})
	assert.ErrorIs(t, err, util.ErrInvalidWeight)

	_, err = f.knowledgePoint.SetAssignmentKnowledgePoints(ctx, f.teacherActor(), a.ID, []KnowledgePointLink{{KnowledgePointID: foreign.ID}})
	assert.ErrorIs(t, err, util.ErrKnowledgePointCourse)

	_, err = f.knowledgePoint.SetAssignmentKnowledgePoints(ctx, f.studentActor(), a.ID, []KnowledgePointLink{{KnowledgePointID: kp.ID}})
	assert.ErrorIs(t, err, util.ErrNotCourseTeacher)

	stored, err := f.knowledgePoint.ListAssignmentKnowledgePoints(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)
}
