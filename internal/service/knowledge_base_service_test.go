package service

import (
	"context"
	"edu_assistant_backend/internal/repository"
	"edu_assistant_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, "graph,bfs", normalizeTags([]string{" Graph", "BFS", "graph", ""}))
	assert.Empty(t, normalizeTags(nil))
}

func TestKnowledgeBaseAddAndSearch(t *testing.T) {
	f := newFixture(t)
	s := NewKnowledgeBaseService(repository.NewKnowledgeEntryRepository(f.db), f.courseRepo)
	ctx := context.Background()

	e, err := s.Add(ctx, KnowledgeEntryInput{Title: "Dijkstra", Content: "Shortest paths with non-negative weights", Category: "graphs", Tags: []string{"Graph"}, CourseID: &f.course1.ID})
	require.NoError(t, err)
	assert.Len(t, e.ID, 36)
	assert.Equal(t, "graph", e.Tags)

	_, err = s.Add(ctx, KnowledgeEntryInput{Title: "100% coverage", Content: "a testing myth", Category: "testing"})
	require.NoError(t, err)

	_, err = s.Add(ctx, KnowledgeEntryInput{Title: " ", Content: "x"})
	assert.ErrorIs(t, err, util.ErrKnowledgeEntryInvalid)
	_, err = s.Add(ctx, KnowledgeEntryInput{Title: "x", Content: "y", CourseID: ptr(uint(9999))})
	assert.ErrorIs(t, err, util.ErrCourseNotFound)

	hits, err := s.Search(ctx, "SHORTEST", nil, "", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Dijkstra", hits[0].Title)

	// % 按字面匹配
	hits, err = s.Search(ctx, "100%", nil, "", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	hits, err = s.Search(ctx, "%", nil, "", 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = s.Search(ctx, "", &f.course1.ID, "", 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = s.Search(ctx, "", nil, "testing", 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestKnowledgeBaseImportIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	s := NewKnowledgeBaseService(repository.NewKnowledgeEntryRepository(f.db), f.courseRepo)
	ctx := context.Background()

	_, err := s.Import(ctx, []KnowledgeEntryInput{{Title: "a", Content: "b"}, {Title: "", Content: "c"}})
	require.ErrorIs(t, err, util.ErrKnowledgeEntryInvalid)
	hits, err := s.Search(ctx, "", nil, "", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	n, err := s.Import(ctx, []KnowledgeEntryInput{{Title: "a", Content: "b"}, {Title: "c", Content: "d"}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
