package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// 错误分类，具体错误通过 %w 包装其中之一，HandleError 据此映射 HTTP 状态码。
// ErrUnauthenticated 对应 401（身份无效），ErrUnauthorized 对应 403（无权操作）
var (
	ErrUnauthenticated = errors.New("未认证")
	ErrUnauthorized    = errors.New("无权限")
	ErrValidation      = errors.New("参数错误")
	ErrNotFound        = errors.New("资源不存在")
	ErrConflict        = errors.New("状态冲突")
)

var (
	ErrUserNotFound     = fmt.Errorf("%w: 用户不存在", ErrNotFound)
	ErrEmailRegistered  = fmt.Errorf("%w: 该邮箱已被注册", ErrConflict)
	ErrInvalidLogin     = fmt.Errorf("%w: 邮箱或密码错误", ErrUnauthenticated)
	ErrPermissionDenied = fmt.Errorf("%w: 没有操作权限", ErrUnauthorized)
)

var (
	ErrCourseNotFound     = fmt.Errorf("%w: 课程不存在", ErrNotFound)
	ErrCourseCodeTaken    = fmt.Errorf("%w: 课程代码已被使用", ErrConflict)
	ErrNotEnrolled        = fmt.Errorf("%w: 学生未选修该课程", ErrUnauthorized)
	ErrNotCourseTeacher   = fmt.Errorf("%w: 只有授课教师可以执行该操作", ErrUnauthorized)
	ErrNotAStudent        = fmt.Errorf("%w: 该用户不是学生", ErrValidation)
	ErrAlreadyEnrolled    = fmt.Errorf("%w: 学生已选修该课程", ErrConflict)
	ErrEnrollmentNotFound = fmt.Errorf("%w: 选课记录不存在", ErrNotFound)
)

var (
	ErrAssignmentNotFound = fmt.Errorf("%w: 作业不存在", ErrNotFound)
	ErrQuestionNotFound   = fmt.Errorf("%w: 题目不存在", ErrNotFound)
	ErrSubmissionNotFound = fmt.Errorf("%w: 提交记录不存在", ErrNotFound)
	ErrResponseNotFound   = fmt.Errorf("%w: 作答不存在", ErrNotFound)

	ErrInvalidQuestionType = fmt.Errorf("%w: 题型无效", ErrValidation)
	ErrAnswerKindMismatch  = fmt.Errorf("%w: 答案形式与题型不符", ErrValidation)
	ErrOptionNotFound      = fmt.Errorf("%w: 选项不属于该题目", ErrValidation)
	ErrOptionsRequired     = fmt.Errorf("%w: 选择题至少需要两个选项", ErrValidation)
	ErrOptionsNotAllowed   = fmt.Errorf("%w: 只有选择题可以设置选项", ErrValidation)
	ErrInvalidPoints       = fmt.Errorf("%w: 分值必须大于 0", ErrValidation)
	ErrScoreOutOfRange     = fmt.Errorf("%w: 分数必须在 0 到题目分值之间", ErrValidation)
	ErrNegativeScore       = fmt.Errorf("%w: 分数不能为负", ErrValidation)
	ErrGradingConflict     = fmt.Errorf("%w: 该提交已通过另一种方式评分", ErrConflict)
)

var (
	ErrKnowledgePointNotFound    = fmt.Errorf("%w: 知识点不存在", ErrNotFound)
	ErrKnowledgePointCycle       = fmt.Errorf("%w: 父知识点会形成循环", ErrValidation)
	ErrKnowledgePointCourse      = fmt.Errorf("%w: 知识点属于其他课程", ErrValidation)
	ErrKnowledgePointHasChildren = fmt.Errorf("%w: 知识点下仍有子知识点", ErrConflict)
	ErrInvalidWeight             = fmt.Errorf("%w: 权重必须大于 0", ErrValidation)
	ErrInvalidActivityType       = fmt.Errorf("%w: 学习行为类型无效", ErrValidation)
	ErrKnowledgeEntryInvalid     = fmt.Errorf("%w: 标题和内容不能为空", ErrValidation)
	ErrRecomputeRunning          = fmt.Errorf("%w: 掌握度重算正在进行", ErrConflict)
)

// HandleError 按错误分类输出响应，未归类的错误记录日志并返回 500
func HandleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		Error(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrUnauthorized):
		Error(c, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrValidation):
		BadRequest(c, err.Error())
	case errors.Is(err, ErrNotFound):
		Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrConflict):
		Error(c, http.StatusConflict, err.Error())
	default:
		LogInternalError(c, err)
	}
}
