package util

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestSentinelsCarryTheirCategory(t *testing.T) {
	assert.ErrorIs(t, ErrNotEnrolled, ErrUnauthorized)
	assert.ErrorIs(t, ErrScoreOutOfRange, ErrValidation)
	assert.ErrorIs(t, ErrQuestionNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrGradingConflict, ErrConflict)
	assert.NotErrorIs(t, ErrScoreOutOfRange, ErrUnauthorized)
	assert.ErrorIs(t, ErrInvalidLogin, ErrUnauthenticated)
	assert.NotErrorIs(t, ErrInvalidLogin, ErrUnauthorized)
}

func TestHandleErrorStatusCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err  error
		code int
	}{
		{ErrInvalidLogin, http.StatusUnauthorized},
		{ErrNotCourseTeacher, http.StatusForbidden},
		{fmt.Errorf("grade: %w", ErrScoreOutOfRange), http.StatusBadRequest},
		{ErrSubmissionNotFound, http.StatusNotFound},
		{ErrGradingConflict, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		HandleError(c, tc.err)
		assert.Equal(t, tc.code, w.Code, tc.err.Error())
	}
}
