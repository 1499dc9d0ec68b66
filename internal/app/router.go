package app

import (
	"edu_assistant_backend/docs"
	"edu_assistant_backend/internal/config"
	"edu_assistant_backend/internal/middleware"
	"edu_assistant_backend/internal/model"
	"edu_assistant_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	// 注释中的路由已带 /api 前缀
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		registerCommonRoutes(authGroup, c)

		// 学生提交相关接口
		registerStudentRoutes(authGroup, c)

		// 教师相关接口
		registerTeacherRoutes(authGroup, c)

		// 管理员相关接口
		registerAdminRoutes(authGroup, c)
	}
}

func registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

// registerCommonRoutes 各角色可用，权限在服务层按课程判断
func registerCommonRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.GetProfile)
	rg.GET("/ws", c.notification.Connect)

	rg.GET("/courses", c.course.List)
	rg.GET("/courses/:id", c.course.Get)
	rg.POST("/courses/:id/enroll", c.course.Enroll)
	rg.POST("/courses/:id/unenroll", c.course.Unenroll)
	rg.GET("/courses/:id/assignments", c.assignment.ListByCourse)
	rg.GET("/courses/:id/knowledge-points", c.knowledgePoint.ListByCourse)

	rg.GET("/assignments/:id", c.assignment.Get)
	rg.GET("/assignments/:id/questions", c.assignment.Questions)
	rg.GET("/assignments/:id/responses", c.submission.Responses)
	rg.GET("/assignments/:id/submission", c.submission.Submission)
	rg.GET("/assignments/:id/knowledge-points", c.knowledgePoint.AssignmentLinks)

	rg.GET("/mastery", c.mastery.Get)
	rg.GET("/knowledge/search", c.knowledgeBase.Search)
}

func registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	student := rg.Group("")
	student.Use(middleware.RoleMiddleware(model.Student))
	{
		student.POST("/questions/:id/response", c.submission.SubmitResponse)
		student.POST("/assignments/:id/submit", c.submission.SubmitAssignment)
		student.GET("/my/assignments", c.submission.MyAssignments)
		student.POST("/activities", c.activity.Record)
		student.GET("/activities", c.activity.Recent)
	}
}

func registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	teacher := rg.Group("")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		teacher.POST("/courses", c.course.Create)
		teacher.GET("/courses/:id/students", c.course.Students)

		teacher.POST("/assignments", c.assignment.Create)
		teacher.POST("/assignments/:id/questions", c.assignment.AddQuestion)
		teacher.POST("/assignments/:id/assign", c.assignment.Assign)
		teacher.GET("/assignments/:id/submissions", c.assignment.Submissions)
		teacher.POST("/assignments/:id/export", c.assignment.Export)
		teacher.GET("/assignments/:id/gradebook.csv", c.assignment.Gradebook)
		teacher.PUT("/assignments/:id/knowledge-points", c.knowledgePoint.SetAssignmentLinks)

		// 评分
		teacher.POST("/questions/:id/students/:studentId/grade", c.grade.GradeResponse)
		teacher.POST("/assignments/:id/students/:studentId/grade", c.grade.GradeAssignment)

		teacher.POST("/knowledge-points", c.knowledgePoint.Create)
		teacher.PUT("/knowledge-points/:id", c.knowledgePoint.Update)
		teacher.DELETE("/knowledge-points/:id", c.knowledgePoint.Delete)

		teacher.POST("/knowledge", c.knowledgeBase.Add)
	}
}

func registerAdminRoutes(rg *gin.RouterGroup, c *controllers) {
	admin := rg.Group("/admin")
	admin.Use(middleware.RoleMiddleware(model.Admin))
	{
		admin.POST("/mastery/recompute", c.mastery.Recompute)
		admin.POST("/submissions/:id/recompute", c.grade.RecomputeTotal)
	}
}
