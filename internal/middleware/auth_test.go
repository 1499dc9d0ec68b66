package middleware

import (
	"edu_assistant_backend/internal/model"
	"edu_assistant_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-secret"

func newRouter(roles ...model.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(testSecret), RoleMiddleware(roles...), func(c *gin.Context) {
		c.String(http.StatusOK, "%d", util.GetUserFromContext(c).UserID)
	})
	return r
}

func token(t *testing.T, id uint, role model.UserRole, secret string) string {
	t.Helper()
	tok, err := util.GenerateJWT(&model.User{BaseModel: model.BaseModel{ID: id}, Role: role, Email: "u@example.com"}, secret, time.Hour)
	require.NoError(t, err)
	return tok
}

func serve(r *gin.Engine, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter(model.Teacher)

	assert.Equal(t, http.StatusUnauthorized, serve(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/me", token(t, 1, model.Teacher, "other-secret")).Code)

	w := serve(r, "/me", token(t, 7, model.Teacher, testSecret))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "7", w.Body.String())

	// websocket 握手走 query 参数
	w = serve(r, "/me?token="+token(t, 8, model.Teacher, testSecret), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "8", w.Body.String())
}

func TestRoleMiddleware(t *testing.T) {
	r := newRouter(model.Teacher)

	assert.Equal(t, http.StatusForbidden, serve(r, "/me", token(t, 2, model.Student, testSecret)).Code)
	assert.Equal(t, http.StatusOK, serve(r, "/me", token(t, 3, model.Admin, testSecret)).Code)
}

func TestExpiredTokenRejected(t *testing.T) {
	r := newRouter(model.Student)
	tok, err := util.GenerateJWT(&model.User{BaseModel: model.BaseModel{ID: 4}, Role: model.Student}, testSecret, -time.Minute)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, serve(r, "/me", tok).Code)
}
