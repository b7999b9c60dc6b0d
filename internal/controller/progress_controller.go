package controller

import (
	"errors"

	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	Progress   *service.ProgressService
	Completion *service.CompletionService
}

func NewProgressController(progress *service.ProgressService, completion *service.CompletionService) *ProgressController {
	return &ProgressController{Progress: progress, Completion: completion}
}

type SaveProgressReq struct {
	LessonID  uint `json:"lessonId" binding:"required"`
	Progress  int  `json:"progress"`
	Completed bool `json:"completed"`
}

// @Summary 保存课时学习进度
// @Description 进度达到阈值或显式标记完成后，可能触发课程完成评估与证书签发
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body SaveProgressReq true "进度信息"
// @Success 200 {object} util.Response
// @Router /api/progress [post]
func (c *ProgressController) SaveProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req SaveProgressReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	row, err := c.Progress.SaveProgress(ctx.Request.Context(), user.UserID, req.LessonID, req.Progress, req.Completed)
	if err != nil {
		if errors.Is(err, util.ErrLessonNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, row)
}

// @Summary 课程学习进度总览
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/progress/course/{id} [get]
func (c *ProgressController) CourseProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	courseID := util.MustParseUint(ctx.Param("id"))

	payload, err := c.Completion.CourseProgress(ctx.Request.Context(), user.UserID, courseID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, payload)
}
