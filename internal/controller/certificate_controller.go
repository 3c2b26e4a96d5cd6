package controller

import (
	"eco_mentor_backend/internal/service"
	"eco_mentor_backend/internal/util"
	"errors"

	"github.com/gin-gonic/gin"
)

type CertificateController struct {
	CertificateService *service.CertificateService
}

func NewCertificateController(certService *service.CertificateService) *CertificateController {
	return &CertificateController{CertificateService: certService}
}

// MyCertificates godoc
// @Summary 我的证书
// @Tags 证书
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Certificate}
// @Router /api/my/certificates [get]
func (c *CertificateController) MyCertificates(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	certs, err := c.CertificateService.ListByUser(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, certs)
}

// Verify godoc
// @Summary 证书核验
// @Description 公开接口：按核验码查询证书真伪
// @Tags 证书
// @Produce  json
// @Param   code path string true "核验码"
// @Success 200 {object} util.Response{data=service.CertificateVerification}
// @Failure 404 {object} util.Response "核验码无效"
// @Router /api/certificates/verify/{code} [get]
func (c *CertificateController) Verify(ctx *gin.Context) {
	code := ctx.Param("code")
	if code == "" {
		util.BadRequest(ctx, "verify code is required")
		return
	}

	result, err := c.CertificateService.Verify(code)
	if err != nil {
		if errors.Is(err, util.ErrCertificateNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, result)
}

// IssueRequest 手动签发请求
type IssueRequest struct {
	EnrollmentID uint `json:"enrollmentId" binding:"required"`
}

// Issue godoc
// @Summary 手动签发证书
// @Description 管理员给已完成课程的报名签发证书
// @Tags 证书
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body IssueRequest true "报名ID"
// @Success 201 {object} util.Response{data=model.Certificate}
// @Failure 404 {object} util.Response "报名不存在"
// @Failure 409 {object} util.Response "证书已存在"
// @Failure 422 {object} util.Response "课程未完成"
// @Router /api/admin/certificates/issue [post]
func (c *CertificateController) Issue(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req IssueRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	cert, err := c.CertificateService.IssueByAdmin(ctx.Request.Context(), claims.UserID, req.EnrollmentID)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrEnrollmentNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrCertificateIssued):
			util.Error(ctx, 409, err.Error())
		case errors.Is(err, util.ErrCourseNotCompleted):
			util.Error(ctx, 422, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, cert)
}
