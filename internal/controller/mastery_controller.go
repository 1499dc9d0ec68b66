package controller

import (
	"edu_assistant_backend/internal/model"
	"edu_assistant_backend/internal/service"
	"edu_assistant_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type MasteryController struct {
	MasteryService *service.MasteryService
}

func NewMasteryController(masteryService *service.MasteryService) *MasteryController {
	return &MasteryController{MasteryService: masteryService}
}

// @Summary 知识点掌握度
// @Description 学生查看自己；教师和管理员可通过 studentId 查看指定学生
// @Tags 掌握度
// @Produce json
// @Security ApiKeyAuth
// @Param studentId query int false "学生ID"
// @Success 200 {object} util.Response{data=[]model.StudentKnowledgePoint}
// @Router /api/mastery [get]
func (c *MasteryController) Get(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	studentID, ok := studentParam(ctx, actor)
	if !ok {
		return
	}
	if actor.Role == model.Student && studentID != actor.UserID {
		util.HandleError(ctx, util.ErrPermissionDenied)
		return
	}

	list, err := c.MasteryService.GetStudentMastery(ctx.Request.Context(), studentID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, list)
}

// @Summary 重算掌握度 (管理员)
// @Description 指定 studentId 时只重算该学生；已有重算在进行时返回 409
// @Tags 掌握度
// @Produce json
// @Security ApiKeyAuth
// @Param studentId query int false "学生ID"
// @Success 200 {object} util.Response{data=service.RecomputeResult}
// @Router /api/admin/mastery/recompute [post]
func (c *MasteryController) Recompute(ctx *gin.Context) {
	studentID, ok := queryUintPtr(ctx, "studentId")
	if !ok {
		return
	}

	var (
		result *service.RecomputeResult
		err    error
	)
	if studentID != nil {
		result, err = c.MasteryService.RecomputeStudent(ctx.Request.Context(), *studentID)
	} else {
		result, err = c.MasteryService.RecomputeAll(ctx.Request.Context())
	}
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, result)
}
