package app

import (
	"lms_backend/internal/config"
	"lms_backend/internal/middleware"
	"lms_backend/internal/model"

	"lms_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		// 学生/通用 授权接口
		a.registerStudentRoutes(authGroup, c)

		// 教师相关接口
		a.registerTeacherRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)

		// 课程目录允许游客浏览
		public.GET("/courses", c.course.ListCourses)
		public.GET("/courses/:id", c.course.GetCourse)

		// 证书真伪校验，凭编号公开查询
		public.GET("/certificates/verify/:number", c.certificate.Verify)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	// 课时与学习进度
	rg.GET("/courses/:id/lessons", c.lesson.ListLessons)
	rg.POST("/progress", c.progress.SaveProgress)
	rg.GET("/progress/course/:id", c.progress.CourseProgress)

	// 测验
	rg.GET("/courses/:id/quiz", c.quiz.GetCourseQuiz)
	rg.GET("/quizzes/:id", c.quiz.GetQuiz)
	rg.POST("/quizzes/:id/submit", c.quiz.Submit)

	// 证书
	rg.POST("/certificates/generate", c.certificate.Generate)
	rg.GET("/certificates/mine", c.certificate.Mine)
	rg.GET("/certificates/:id/download", c.certificate.Download)
}

func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	teacher := rg.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		teacher.POST("/courses", c.course.CreateCourse)
		teacher.PUT("/courses/:id", c.course.UpdateCourse)
		teacher.DELETE("/courses/:id", c.course.DeleteCourse)

		teacher.POST("/courses/:id/lessons", c.lesson.CreateLesson)
		teacher.PUT("/lessons/:id", c.lesson.UpdateLesson)
		teacher.DELETE("/lessons/:id", c.lesson.DeleteLesson)

		teacher.POST("/uploads", c.media.Upload)

		teacher.POST("/courses/:id/quiz", c.quiz.CreateQuiz)
		teacher.DELETE("/quizzes/:id", c.quiz.DeleteQuiz)
		teacher.POST("/quizzes/draft", c.quiz.DraftQuestions)
	}
}
