package controller

import (
	"errors"

	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	Service *service.QuizService
	AI      *service.AIService
}

func NewQuizController(svc *service.QuizService, ai *service.AIService) *QuizController {
	return &QuizController{Service: svc, AI: ai}
}

// @Summary 创建课程测验
// @Tags 测验模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程ID"
// @Param body body service.QuizReq true "测验信息"
// @Success 201 {object} util.Response
// @Router /api/teacher/courses/{id}/quiz [post]
func (c *QuizController) CreateQuiz(ctx *gin.Context) {
	courseID := util.MustParseUint(ctx.Param("id"))

	var req service.QuizReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.Service.CreateQuiz(courseID, req)
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(ctx)
			return
		}
		util.BadRequest(ctx, err.Error())
		return
	}

	util.Created(ctx, quiz)
}

// @Summary 删除测验
// @Tags 测验模块
// @Produce json
// @Security BearerAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/quizzes/{id} [delete]
func (c *QuizController) DeleteQuiz(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))

	if err := c.Service.DeleteQuiz(id); err != nil {
		if errors.Is(err, util.ErrQuizNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"deleted": id})
}

// @Summary 获取测验（学生视角，不含答案）
// @Tags 测验模块
// @Produce json
// @Security BearerAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response
// @Router /api/quizzes/{id} [get]
func (c *QuizController) GetQuiz(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))

	quiz, err := c.Service.GetQuiz(id)
	if err != nil {
		if errors.Is(err, util.ErrQuizNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, quiz)
}

// @Summary 获取课程的测验
// @Tags 测验模块
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/courses/{id}/quiz [get]
func (c *QuizController) GetCourseQuiz(ctx *gin.Context) {
	courseID := util.MustParseUint(ctx.Param("id"))

	quiz, err := c.Service.GetQuizByCourse(courseID)
	if err != nil {
		if errors.Is(err, util.ErrQuizNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, quiz)
}

type SubmitQuizReq struct {
	Answers          map[uint]string `json:"answers" binding:"required"`
	TimeTakenSeconds int             `json:"timeTakenSeconds"`
}

// @Summary 提交测验答卷
// @Description 评分并追加一条不可变的答题记录；通过时可能触发证书签发
// @Tags 测验模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "测验ID"
// @Param body body SubmitQuizReq true "答案"
// @Success 200 {object} util.Response
// @Router /api/quizzes/{id}/submit [post]
func (c *QuizController) Submit(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	quizID := util.MustParseUint(ctx.Param("id"))

	var req SubmitQuizReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Service.Submit(ctx.Request.Context(), user.UserID, quizID, req.Answers, req.TimeTakenSeconds)
	if err != nil {
		if errors.Is(err, util.ErrQuizNotFound) {
			util.NotFound(ctx)
			return
		}
		if errors.Is(err, util.ErrQuizNotPublished) {
			util.BadRequest(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

type DraftQuestionsReq struct {
	Content string `json:"content" binding:"required"`
	Count   int    `json:"count"`
}

// @Summary AI辅助出题（草稿）
// @Tags 测验模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body DraftQuestionsReq true "课程内容"
// @Success 200 {object} util.Response
// @Router /api/teacher/quizzes/draft [post]
func (c *QuizController) DraftQuestions(ctx *gin.Context) {
	var req DraftQuestionsReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	questions, err := c.AI.GenerateQuestions(ctx.Request.Context(), req.Content, req.Count)
	if err != nil {
		if errors.Is(err, service.ErrAINotConfigured) {
			util.BadRequest(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, questions)
}
