package controller

import (
	"edu_assistant_backend/internal/service"
	"edu_assistant_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

// EnrollRequest 教师代学生选课时填写 studentId，学生本人可省略
type EnrollRequest struct {
	StudentID uint `json:"studentId"`
}

// @Summary 课程列表
// @Description 管理员返回全部课程，教师返回所授课程，学生返回在读课程
// @Tags 课程
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=util.ListResponse}
// @Router /api/courses [get]
func (c *CourseController) List(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	courses, err := c.CourseService.ListCourses(ctx.Request.Context(), actor)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, util.ListResponse{List: courses, Total: len(courses)})
}

// @Summary 创建课程 (教师/管理员)
// @Tags 课程
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateCourseRequest true "课程信息"
// @Success 201 {object} util.Response{data=model.Course}
// @Failure 409 {object} util.Response "课程代码已存在"
// @Router /api/courses [post]
func (c *CourseController) Create(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	var req service.CreateCourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CourseService.CreateCourse(ctx.Request.Context(), actor, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, course)
}

// @Summary 课程详情
// @Tags 课程
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response{data=model.Course}
// @Router /api/courses/{id} [get]
func (c *CourseController) Get(ctx *gin.Context) {
	ids, ok := pathIDs(ctx, "id")
	if !ok {
		return
	}

	course, err := c.CourseService.GetCourse(ctx.Request.Context(), ids[0])
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, course)
}

func (c *CourseController) enrollmentTarget(ctx *gin.Context) (courseID, studentID uint, ok bool) {
	actor, ok := currentActor(ctx)
	if !ok {
		return 0, 0, false
	}
	ids, ok := pathIDs(ctx, "id")
	if !ok {
		return 0, 0, false
	}

	var req EnrollRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return 0, 0, false
		}
	}
	studentID = actor.UserID
	if req.StudentID != 0 {
		studentID = req.StudentID
	}

	if err := c.CourseService.AuthorizeEnrollment(ctx.Request.Context(), actor, ids[0], studentID); err != nil {
		util.HandleError(ctx, err)
		return 0, 0, false
	}
	return ids[0], studentID, true
}

// @Summary 选课
// @Description 学生为自己选课；授课教师可通过 studentId 为学生选课。已退课的记录会被重新激活
// @Tags 课程
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Param body body EnrollRequest false "学生ID"
// @Success 201 {object} util.Response{data=model.Enrollment}
// @Failure 409 {object} util.Response "已选课"
// @Router /api/courses/{id}/enroll [post]
func (c *CourseController) Enroll(ctx *gin.Context) {
	courseID, studentID, ok := c.enrollmentTarget(ctx)
	if !ok {
		return
	}

	enrollment, err := c.CourseService.Enroll(ctx.Request.Context(), courseID, studentID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, enrollment)
}

// @Summary 退课
// @Tags 课程
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Param body body EnrollRequest false "学生ID"
// @Success 200 {object} util.Response
// @Router /api/courses/{id}/unenroll [post]
func (c *CourseController) Unenroll(ctx *gin.Context) {
	courseID, studentID, ok := c.enrollmentTarget(ctx)
	if !ok {
		return
	}

	if err := c.CourseService.Unenroll(ctx.Request.Context(), courseID, studentID); err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"courseId": courseID, "studentId": studentID})
}

// @Summary 课程学生名单 (授课教师/管理员)
// @Tags 课程
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response{data=util.ListResponse}
// @Router /api/courses/{id}/students [get]
func (c *CourseController) Students(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	ids, ok := pathIDs(ctx, "id")
	if !ok {
		return
	}

	students, err := c.CourseService.ListCourseStudents(ctx.Request.Context(), actor, ids[0])
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, util.ListResponse{List: students, Total: len(students)})
}
