package main

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSampleFile(t *testing.T) {
	f, err := os.Open("sample.yaml")
	require.NoError(t, err)
	defer f.Close()

	entries, err := parseEntries(f)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, []string{"search", "array"}, entries[0].Tags)
	assert.Equal(t, "lecture-3", entries[1].Source)
	assert.Nil(t, entries[1].CourseID)
}

func TestParseEntriesRejectsUnknownFields(t *testing.T) {
	_, err := parseEntries(strings.NewReader("entries:\n  - title: a\n    content: b\n    author: x\n"))
	assert.Error(t, err)

	entries, err := parseEntries(strings.NewReader("entries:\n  - title: a\n    content: b\n    course_id: 3\n"))
	require.NoError(t, err)
	require.NotNil(t, entries[0].CourseID)
	assert.EqualValues(t, 3, *entries[0].CourseID)
}
