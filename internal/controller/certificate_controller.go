package controller

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CertificateController struct {
	Certificates *service.CertificateService
	Completion   *service.CompletionService
}

func NewCertificateController(certs *service.CertificateService, completion *service.CompletionService) *CertificateController {
	return &CertificateController{Certificates: certs, Completion: completion}
}

type GenerateCertificateReq struct {
	CourseID uint `json:"courseId" binding:"required"`
}

// @Summary 申领课程证书
// @Description 课程未完成时返回400和完成度摘要；已签发过则返回同一张证书
// @Tags 证书模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body GenerateCertificateReq true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/certificates/generate [post]
func (c *CertificateController) Generate(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req GenerateCertificateReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	summary, err := c.Completion.Evaluate(user.UserID, req.CourseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	if !summary.CourseCompleted {
		ctx.JSON(http.StatusBadRequest, util.Response{
			Code:    http.StatusBadRequest,
			Message: util.ErrCourseIncomplete.Error(),
			Data:    summary,
		})
		return
	}

	cert, err := c.Completion.HandleCompletionEvent(ctx.Request.Context(), user.UserID, req.CourseID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	if cert == nil {
		ctx.JSON(http.StatusBadRequest, util.Response{
			Code:    http.StatusBadRequest,
			Message: util.ErrCourseIncomplete.Error(),
			Data:    summary,
		})
		return
	}

	util.Success(ctx, cert)
}

// @Summary 我的证书
// @Tags 证书模块
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/certificates/mine [get]
func (c *CertificateController) Mine(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	certs, err := c.Certificates.ListForUser(user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, certs)
}

// @Summary 下载证书PDF
// @Tags 证书模块
// @Produce application/pdf
// @Security BearerAuth
// @Param id path int true "证书ID"
// @Success 200 {file} binary
// @Router /api/certificates/{id}/download [get]
func (c *CertificateController) Download(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	id := util.MustParseUint(ctx.Param("id"))

	cert, err := c.Certificates.GetForUser(id, user.UserID, user.Role)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.NotFound(ctx)
			return
		}
		if errors.Is(err, util.ErrPermissionDenied) {
			util.Forbidden(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	reader, err := c.Certificates.OpenPDF(ctx.Request.Context(), cert)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer reader.Close()

	ctx.Header("Content-Type", util.MimePDF)
	ctx.Header("Content-Disposition",
		fmt.Sprintf("attachment; filename=%s.pdf", cert.CertificateNumber))
	if _, err := io.Copy(ctx.Writer, reader); err != nil {
		// 响应头已发送，只能记录
		util.LogStreamError(err)
	}
}

// @Summary 验证证书编号
// @Description 公开接口，按证书编号查询真伪
// @Tags 证书模块
// @Produce json
// @Param number path string true "证书编号"
// @Success 200 {object} util.Response
// @Router /api/certificates/verify/{number} [get]
func (c *CertificateController) Verify(ctx *gin.Context) {
	number := ctx.Param("number")

	cert, err := c.Certificates.VerifyByNumber(number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"valid":             true,
		"certificateNumber": cert.CertificateNumber,
		"userId":            cert.UserID,
		"courseId":          cert.CourseID,
		"issuedAt":          cert.IssuedAt,
	})
}
