package controller

import (
	"edu_assistant_backend/internal/service"
	"edu_assistant_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GradeController struct {
	GradingService *service.GradingService
}

func NewGradeController(gradingService *service.GradingService) *GradeController {
	return &GradeController{GradingService: gradingService}
}

// GradeRequest score 为指针，区分缺省与 0 分
type GradeRequest struct {
	Score    *float64 `json:"score" binding:"required"`
	Feedback string   `json:"feedback"`
}

// @Summary 逐题评分 (授课教师/管理员)
// @Description 分数须在 0 到题目分值之间，评分后重算作业总分；作业已整体评分时返回 409
// @Tags 评分
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "题目ID"
// @Param studentId path int true "学生ID"
// @Param body body GradeRequest true "分数与评语"
// @Success 200 {object} util.Response{data=object}
// @Failure 400 {object} util.Response "分数超出范围"
// @Failure 409 {object} util.Response "评分方式冲突"
// @Router /api/questions/{id}/students/{studentId}/grade [post]
func (c *GradeController) GradeResponse(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	ids, ok := pathIDs(ctx, "id", "studentId")
	if !ok {
		return
	}

	var req GradeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	resp, sa, err := c.GradingService.GradeResponse(ctx.Request.Context(), actor, ids[1], ids[0], *req.Score, req.Feedback)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"response": resp, "submission": sa})
}

// @Summary 整体评分 (授课教师/管理员)
// @Description 直接写入作业总分并标记完成；已有逐题评分时返回 409
// @Tags 评分
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "作业ID"
// @Param studentId path int true "学生ID"
// @Param body body GradeRequest true "分数与评语"
// @Success 200 {object} util.Response{data=model.StudentAssignment}
// @Router /api/assignments/{id}/students/{studentId}/grade [post]
func (c *GradeController) GradeAssignment(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	ids, ok := pathIDs(ctx, "id", "studentId")
	if !ok {
		return
	}

	var req GradeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sa, err := c.GradingService.GradeAssignment(ctx.Request.Context(), actor, ids[1], ids[0], *req.Score, req.Feedback)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, sa)
}

// @Summary 重算提交总分 (管理员)
// @Tags 评分
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "提交ID"
// @Success 200 {object} util.Response{data=model.StudentAssignment}
// @Router /api/admin/submissions/{id}/recompute [post]
func (c *GradeController) RecomputeTotal(ctx *gin.Context) {
	ids, ok := pathIDs(ctx, "id")
	if !ok {
		return
	}

	sa, err := c.GradingService.RecomputeTotal(ctx.Request.Context(), ids[0])
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, sa)
}
