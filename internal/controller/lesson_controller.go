package controller

import (
	"errors"

	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LessonController struct {
	Service *service.CourseService
}

func NewLessonController(svc *service.CourseService) *LessonController {
	return &LessonController{Service: svc}
}

// handleLessonErr maps lesson save failures onto HTTP codes. A
// DurationRequired rejection is a 400 whose message names which content
// portion still needs a manual duration.
func handleLessonErr(ctx *gin.Context, err error) {
	if dr, ok := util.IsDurationRequired(err); ok {
		util.BadRequest(ctx, dr.Error())
		return
	}
	if errors.Is(err, util.ErrCourseNotFound) || errors.Is(err, util.ErrLessonNotFound) {
		util.NotFound(ctx)
		return
	}
	util.LogInternalError(ctx, err)
}

// @Summary 创建课时
// @Tags 课时模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程ID"
// @Param body body service.LessonReq true "课时信息"
// @Success 201 {object} util.Response
// @Router /api/teacher/courses/{id}/lessons [post]
func (c *LessonController) CreateLesson(ctx *gin.Context) {
	courseID := util.MustParseUint(ctx.Param("id"))

	var req service.LessonReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson, err := c.Service.CreateLesson(courseID, req)
	if err != nil {
		handleLessonErr(ctx, err)
		return
	}

	util.Created(ctx, lesson)
}

// @Summary 更新课时
// @Tags 课时模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "课时ID"
// @Param body body service.LessonReq true "课时信息"
// @Success 200 {object} util.Response
// @Router /api/teacher/lessons/{id} [put]
func (c *LessonController) UpdateLesson(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))

	var req service.LessonReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson, err := c.Service.UpdateLesson(id, req)
	if err != nil {
		handleLessonErr(ctx, err)
		return
	}

	util.Success(ctx, lesson)
}

// @Summary 删除课时
// @Tags 课时模块
// @Produce json
// @Security BearerAuth
// @Param id path int true "课时ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/lessons/{id} [delete]
func (c *LessonController) DeleteLesson(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))

	if err := c.Service.DeleteLesson(id); err != nil {
		handleLessonErr(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"deleted": id})
}

// @Summary 课程课时列表
// @Tags 课时模块
// @Produce json
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/courses/{id}/lessons [get]
func (c *LessonController) ListLessons(ctx *gin.Context) {
	courseID := util.MustParseUint(ctx.Param("id"))

	lessons, err := c.Service.ListLessons(courseID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, lessons)
}
