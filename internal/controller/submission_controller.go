package controller

import (
	"edu_assistant_backend/internal/service"
	"edu_assistant_backend/internal/util"
	"fmt"

	"github.com/gin-gonic/gin"
)

type SubmissionController struct {
	SubmissionService *service.SubmissionService
}

func NewSubmissionController(submissionService *service.SubmissionService) *SubmissionController {
	return &SubmissionController{SubmissionService: submissionService}
}

// ResponseRequest answerText 与 selectedOptionId 二选一
type ResponseRequest struct {
	AnswerText       *string `json:"answerText"`
	SelectedOptionID *uint   `json:"selectedOptionId"`
}

type AnswerItem struct {
	QuestionID uint `json:"questionId" binding:"required"`
	ResponseRequest
}

type SubmitAssignmentRequest struct {
	Answer  string       `json:"answer"`
	Answers []AnswerItem `json:"answers"`
}

// @Summary 提交单题作答
// @Description 重复提交覆盖之前的答案，不影响已有评分
// @Tags 提交
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "题目ID"
// @Param body body ResponseRequest true "作答"
// @Success 200 {object} util.Response{data=model.StudentResponse}
// @Failure 403 {object} util.Response "未选修该课程"
// @Router /api/questions/{id}/response [post]
func (c *SubmissionController) SubmitResponse(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	ids, ok := pathIDs(ctx, "id")
	if !ok {
		return
	}

	var req ResponseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	answer, err := service.AnswerFromRequest(req.AnswerText, req.SelectedOptionID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	resp, err := c.SubmissionService.SubmitResponse(ctx.Request.Context(), actor.UserID, ids[0], answer)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, resp)
}

// @Summary 提交整份作业
// @Description 可附带整体作答文本及多道题的答案，计为一次尝试
// @Tags 提交
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "作业ID"
// @Param body body SubmitAssignmentRequest true "作答"
// @Success 200 {object} util.Response{data=model.StudentAssignment}
// @Router /api/assignments/{id}/submit [post]
func (c *SubmissionController) SubmitAssignment(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	ids, ok := pathIDs(ctx, "id")
	if !ok {
		return
	}

	var req SubmitAssignmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub := service.AssignmentSubmission{Answer: req.Answer, Answers: make(map[uint]service.Answer, len(req.Answers))}
	for _, item := range req.Answers {
		if _, dup := sub.Answers[item.QuestionID]; dup {
			util.BadRequest(ctx, fmt.Sprintf("duplicate answer for question %d", item.QuestionID))
			return
		}
		answer, err := service.AnswerFromRequest(item.AnswerText, item.SelectedOptionID)
		if err != nil {
			util.HandleError(ctx, err)
			return
		}
		sub.Answers[item.QuestionID] = answer
	}

	sa, err := c.SubmissionService.SubmitAssignment(ctx.Request.Context(), actor.UserID, ids[0], sub)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, sa)
}

// studentParam 学生默认查看自己，教师通过 studentId 指定
func studentParam(ctx *gin.Context, actor service.Actor) (uint, bool) {
	id, ok := queryUintPtr(ctx, "studentId")
	if !ok {
		return 0, false
	}
	if id == nil {
		return actor.UserID, true
	}
	return *id, true
}

// @Summary 查看作答
// @Description 返回 questionId -> 作答；尚无提交时返回空对象
// @Tags 提交
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "作业ID"
// @Param studentId query int false "学生ID（教师使用）"
// @Success 200 {object} util.Response{data=object}
// @Router /api/assignments/{id}/responses [get]
func (c *SubmissionController) Responses(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	ids, ok := pathIDs(ctx, "id")
	if !ok {
		return
	}
	studentID, ok := studentParam(ctx, actor)
	if !ok {
		return
	}

	responses, err := c.SubmissionService.GetStudentResponses(ctx.Request.Context(), actor, studentID, ids[0])
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, responses)
}

// @Summary 查看提交记录
// @Tags 提交
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "作业ID"
// @Param studentId query int false "学生ID（教师使用）"
// @Success 200 {object} util.Response{data=model.StudentAssignment}
// @Router /api/assignments/{id}/submission [get]
func (c *SubmissionController) Submission(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	ids, ok := pathIDs(ctx, "id")
	if !ok {
		return
	}
	studentID, ok := studentParam(ctx, actor)
	if !ok {
		return
	}

	sa, err := c.SubmissionService.GetSubmission(ctx.Request.Context(), actor, studentID, ids[0])
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, sa)
}

// @Summary 我的作业
// @Tags 提交
// @Produce json
// @Security ApiKeyAuth
// @Param courseId query int false "课程ID"
// @Param completed query bool false "是否已完成"
// @Success 200 {object} util.Response{data=util.ListResponse}
// @Router /api/my/assignments [get]
func (c *SubmissionController) MyAssignments(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	courseID, ok := queryUintPtr(ctx, "courseId")
	if !ok {
		return
	}
	completed, ok := queryBoolPtr(ctx, "completed")
	if !ok {
		return
	}

	list, err := c.SubmissionService.ListStudentAssignments(ctx.Request.Context(), actor.UserID, courseID, completed)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, util.ListResponse{List: list, Total: len(list)})
}
