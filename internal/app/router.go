package app

import (
	"eco_mentor_backend/docs"
	"eco_mentor_backend/internal/config"
	"eco_mentor_backend/internal/middleware"
	"eco_mentor_backend/internal/model"
	"eco_mentor_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerInstructorRoutes(authGroup, c)
		a.registerAdminRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)

		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)

		auth := public.Group("/auth")
		{
			auth.POST("/register", c.auth.Register)
			auth.POST("/login", c.auth.Login)
		}

		// 课程目录对游客开放，带 token 的请求照常注入用户
		public.GET("/courses", middleware.TryAuthMiddleware(a.Config), c.course.ListCatalog)
		public.GET("/courses/:id", middleware.TryAuthMiddleware(a.Config), c.course.GetCourse)

		// 证书核验对外公开
		public.GET("/certificates/verify/:code", c.certificate.Verify)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/auth/me", c.auth.Me)
	rg.GET("/users/profile", c.user.GetProfile)
	rg.PUT("/users/profile", c.user.UpdateProfile)

	rg.POST("/courses/:id/enroll", c.enrollment.Enroll)
	rg.GET("/my/courses", c.enrollment.MyCourses)
	rg.GET("/my/courses/:id/progress", c.enrollment.CourseProgress)
	rg.GET("/my/certificates", c.certificate.MyCertificates)

	rg.GET("/lessons/:lessonId/quiz", c.quiz.GetLessonQuiz)
	rg.POST("/lessons/:lessonId/quiz/submit", c.quiz.SubmitQuiz)
	rg.GET("/lessons/:lessonId/quiz/attempts", c.quiz.ListAttempts)

	rg.GET("/dashboard", c.dashboard.StudentDashboard)
}

func (a *App) registerInstructorRoutes(rg *gin.RouterGroup, c *controllers) {
	instructor := rg.Group("/instructor")
	instructor.Use(middleware.RoleMiddleware(model.Instructor))
	{
		instructor.GET("/courses", c.course.MyCourses)
		instructor.POST("/courses", c.course.CreateCourse)
		instructor.PUT("/courses/:id", c.course.UpdateCourse)
		instructor.DELETE("/courses/:id", c.course.DeleteCourse)
		instructor.GET("/courses/:id/stats", c.dashboard.CourseOverview)
		instructor.POST("/courses/:id/modules", c.course.CreateModule)

		instructor.PUT("/modules/:moduleId", c.course.UpdateModule)
		instructor.DELETE("/modules/:moduleId", c.course.DeleteModule)
		instructor.POST("/modules/:moduleId/lessons", c.course.CreateLesson)

		instructor.PUT("/lessons/:lessonId", c.course.UpdateLesson)
		instructor.DELETE("/lessons/:lessonId", c.course.DeleteLesson)
		instructor.GET("/lessons/:lessonId/questions", c.course.ListQuestions)
		instructor.POST("/lessons/:lessonId/questions", c.course.CreateQuestion)

		instructor.PUT("/questions/:questionId", c.course.ReplaceQuestion)
		instructor.DELETE("/questions/:questionId", c.course.DeleteQuestion)
	}
}

func (a *App) registerAdminRoutes(rg *gin.RouterGroup, c *controllers) {
	admin := rg.Group("/admin")
	admin.Use(middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/users", c.user.ListUsers)
		admin.GET("/overview", c.dashboard.AdminOverview)
		admin.POST("/certificates/issue", c.certificate.Issue)
	}
}
