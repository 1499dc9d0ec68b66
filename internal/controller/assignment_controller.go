package controller

import (
	"edu_assistant_backend/internal/service"
	"edu_assistant_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AssignmentController struct {
	AssignmentService *service.AssignmentService
	SubmissionService *service.SubmissionService
	GradebookService  *service.GradebookService
}

func NewAssignmentController(assignmentService *service.AssignmentService, submissionService *service.SubmissionService, gradebookService *service.GradebookService) *AssignmentController {
	return &AssignmentController{
		AssignmentService: assignmentService,
		SubmissionService: submissionService,
		GradebookService:  gradebookService,
	}
}

// @Summary 创建作业 (授课教师/管理员)
// @Description 可同时创建题目，创建后自动分配给课程中的在读学生
// @Tags 作业
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateAssignmentRequest true "作业信息"
// @Success 201 {object} util.Response{data=model.Assignment}
// @Router /api/assignments [post]
func (c *AssignmentController) Create(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	var req service.CreateAssignmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	assignment, err := c.AssignmentService.CreateAssignment(ctx.Request.Context(), actor, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, assignment)
}

// @Summary 课程作业列表
// @Tags 作业
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response{data=util.ListResponse}
// @Router /api/courses/{id}/assignments [get]
func (c *AssignmentController) ListByCourse(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	ids, ok := pathIDs(ctx, "id")
	if !ok {
		return
	}

	list, err := c.AssignmentService.ListCourseAssignments(ctx.Request.Context(), actor, ids[0])
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, util.ListResponse{List: list, Total: len(list)})
}

// @Summary 作业详情（含题目）
// @Tags 作业
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "作业ID"
// @Success 200 {object} util.Response{data=model.Assignment}
// @Router /api/assignments/{id} [get]
func (c *AssignmentController) Get(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	ids, ok := pathIDs(ctx, "id")
	if !ok {
		return
	}

	assignment, err := c.AssignmentService.GetAssignment(ctx.Request.Context(), actor, ids[0])
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, assignment)
}

// @Summary 作业题目列表
// @Tags 作业
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "作业ID"
// @Success 200 {object} util.Response{data=[]model.Question}
// @Router /api/assignments/{id}/questions [get]
func (c *AssignmentController) Questions(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	ids, ok := pathIDs(ctx, "id")
	if !ok {
		return
	}

	questions, err := c.AssignmentService.GetAssignmentQuestions(ctx.Request.Context(), actor, ids[0])
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, questions)
}

// @Summary 添加题目 (授课教师/管理员)
// @Description 题目序号为当前最大序号加一
// @Tags 作业
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "作业ID"
// @Param body body service.QuestionInput true "题目"
// @Success 201 {object} util.Response{data=model.Question}
// @Router /api/assignments/{id}/questions [post]
func (c *AssignmentController) AddQuestion(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	ids, ok := pathIDs(ctx, "id")
	if !ok {
		return
	}

	var req service.QuestionInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.AssignmentService.AddQuestion(ctx.Request.Context(), actor, ids[0], req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, question)
}

// @Summary 分配作业给在读学生
// @Tags 作业
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "作业ID"
// @Success 200 {object} util.Response
// @Router /api/assignments/{id}/assign [post]
func (c *AssignmentController) Assign(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	ids, ok := pathIDs(ctx, "id")
	if !ok {
		return
	}

	created, err := c.AssignmentService.AssignToStudents(ctx.Request.Context(), actor, ids[0])
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"created": created})
}

// @Summary 作业提交列表 (授课教师/管理员)
// @Tags 作业
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "作业ID"
// @Success 200 {object} util.Response{data=util.ListResponse}
// @Router /api/assignments/{id}/submissions [get]
func (c *AssignmentController) Submissions(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	ids, ok := pathIDs(ctx, "id")
	if !ok {
		return
	}

	list, err := c.SubmissionService.ListAssignmentSubmissions(ctx.Request.Context(), actor, ids[0])
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, util.ListResponse{List: list, Total: len(list)})
}

// @Summary 导出成绩单 CSV
// @Description 生成 CSV 并上传到配置的存储，返回下载地址
// @Tags 作业
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "作业ID"
// @Success 200 {object} util.Response{data=object}
// @Router /api/assignments/{id}/export [post]
func (c *AssignmentController) Export(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	ids, ok := pathIDs(ctx, "id")
	if !ok {
		return
	}

	url, err := c.GradebookService.ExportGradebook(ctx.Request.Context(), actor, ids[0])
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"url": url})
}

// @Summary 下载成绩单 CSV
// @Tags 作业
// @Produce text/csv
// @Security ApiKeyAuth
// @Param id path int true "作业ID"
// @Success 200 {string} string "CSV"
// @Router /api/assignments/{id}/gradebook.csv [get]
func (c *AssignmentController) Gradebook(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	ids, ok := pathIDs(ctx, "id")
	if !ok {
		return
	}

	assignment, rows, err := c.GradebookService.BuildGradebook(ctx.Request.Context(), actor, ids[0])
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	ctx.Header("Content-Type", util.MimeCSV)
	ctx.Header("Content-Disposition", "attachment; filename=gradebook.csv")
	if err := service.WriteGradebook(ctx.Writer, assignment.Questions, rows); err != nil {
		util.LogInternalError(ctx, err)
	}
}
