package controller

import (
	"edu_assistant_backend/internal/service"
	"edu_assistant_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type KnowledgeBaseController struct {
	KnowledgeBaseService *service.KnowledgeBaseService
}

func NewKnowledgeBaseController(kbService *service.KnowledgeBaseService) *KnowledgeBaseController {
	return &KnowledgeBaseController{KnowledgeBaseService: kbService}
}

// @Summary 添加知识库条目 (教师/管理员)
// @Tags 知识库
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.KnowledgeEntryInput true "条目"
// @Success 201 {object} util.Response{data=model.KnowledgeEntry}
// @Router /api/knowledge [post]
func (c *KnowledgeBaseController) Add(ctx *gin.Context) {
	var req service.KnowledgeEntryInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	entry, err := c.KnowledgeBaseService.Add(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, entry)
}

// @Summary 搜索知识库
// @Description 按标题、内容和标签做关键词匹配
// @Tags 知识库
// @Produce json
// @Security ApiKeyAuth
// @Param q query string false "关键词"
// @Param courseId query int false "课程ID"
// @Param category query string false "分类"
// @Param limit query int false "数量，默认 20，最多 100"
// @Success 200 {object} util.Response{data=util.ListResponse}
// @Router /api/knowledge/search [get]
func (c *KnowledgeBaseController) Search(ctx *gin.Context) {
	courseID, ok := queryUintPtr(ctx, "courseId")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(ctx.Query("limit"))

	list, err := c.KnowledgeBaseService.Search(ctx.Request.Context(), ctx.Query("q"), courseID, ctx.Query("category"), limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, util.ListResponse{List: list, Total: len(list)})
}
