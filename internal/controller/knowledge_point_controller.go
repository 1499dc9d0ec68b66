package controller

import (
	"edu_assistant_backend/internal/service"
	"edu_assistant_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type KnowledgePointController struct {
	Service *service.KnowledgePointService
}

func NewKnowledgePointController(svc *service.KnowledgePointService) *KnowledgePointController {
	return &KnowledgePointController{Service: svc}
}

// @Summary 创建知识点 (授课教师/管理员)
// @Tags 知识点
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.KnowledgePointRequest true "知识点信息"
// @Success 201 {object} util.Response{data=model.KnowledgePoint}
// @Router /api/knowledge-points [post]
func (c *KnowledgePointController) Create(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	var req service.KnowledgePointRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	kp, err := c.Service.Create(ctx.Request.Context(), actor, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, kp)
}

// @Summary 更新知识点 (授课教师/管理员)
// @Description 修改父节点时拒绝形成环
// @Tags 知识点
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "知识点ID"
// @Param body body service.KnowledgePointUpdate true "更新内容"
// @Success 200 {object} util.Response{data=model.KnowledgePoint}
// @Router /api/knowledge-points/{id} [put]
func (c *KnowledgePointController) Update(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	ids, ok := pathIDs(ctx, "id")
	if !ok {
		return
	}

	var req service.KnowledgePointUpdate
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	kp, err := c.Service.Update(ctx.Request.Context(), actor, ids[0], req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, kp)
}

// @Summary 删除知识点 (授课教师/管理员)
// @Description 仍有子节点时返回 409
// @Tags 知识点
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "知识点ID"
// @Success 200 {object} util.Response
// @Router /api/knowledge-points/{id} [delete]
func (c *KnowledgePointController) Delete(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	ids, ok := pathIDs(ctx, "id")
	if !ok {
		return
	}

	if err := c.Service.Delete(ctx.Request.Context(), actor, ids[0]); err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}

// @Summary 课程知识点
// @Description tree=true 时返回树形结构
// @Tags 知识点
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Param tree query bool false "树形"
// @Success 200 {object} util.Response{data=[]model.KnowledgePoint}
// @Router /api/courses/{id}/knowledge-points [get]
func (c *KnowledgePointController) ListByCourse(ctx *gin.Context) {
	ids, ok := pathIDs(ctx, "id")
	if !ok {
		return
	}
	tree, ok := queryBoolPtr(ctx, "tree")
	if !ok {
		return
	}

	var (
		list interface{}
		err  error
	)
	if tree != nil && *tree {
		list, err = c.Service.Tree(ctx.Request.Context(), ids[0])
	} else {
		list, err = c.Service.ListByCourse(ctx.Request.Context(), ids[0])
	}
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, list)
}

// @Summary 设置作业关联的知识点 (授课教师/管理员)
// @Description 整体替换；权重缺省为 1
// @Tags 知识点
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "作业ID"
// @Param body body []service.KnowledgePointLink true "关联"
// @Success 200 {object} util.Response{data=[]model.AssignmentKnowledgePoint}
// @Router /api/assignments/{id}/knowledge-points [put]
func (c *KnowledgePointController) SetAssignmentLinks(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	ids, ok := pathIDs(ctx, "id")
	if !ok {
		return
	}

	var links []service.KnowledgePointLink
	if err := ctx.ShouldBindJSON(&links); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	rows, err := c.Service.SetAssignmentKnowledgePoints(ctx.Request.Context(), actor, ids[0], links)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, rows)
}

// @Summary 作业关联的知识点
// @Tags 知识点
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "作业ID"
// @Success 200 {object} util.Response{data=[]model.AssignmentKnowledgePoint}
// @Router /api/assignments/{id}/knowledge-points [get]
func (c *KnowledgePointController) AssignmentLinks(ctx *gin.Context) {
	ids, ok := pathIDs(ctx, "id")
	if !ok {
		return
	}

	rows, err := c.Service.ListAssignmentKnowledgePoints(ctx.Request.Context(), ids[0])
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, rows)
}
