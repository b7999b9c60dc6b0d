package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type MediaController struct {
	Media *service.MediaService
}

func NewMediaController(media *service.MediaService) *MediaController {
	return &MediaController{Media: media}
}

// @Summary 上传课时媒体文件（视频或PDF）
// @Tags 课程模块
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "媒体文件"
// @Success 200 {object} util.Response
// @Router /api/teacher/uploads [post]
func (c *MediaController) Upload(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	url, err := c.Media.UploadLessonMedia(ctx.Request.Context(), file)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	util.Success(ctx, gin.H{"url": url})
}
