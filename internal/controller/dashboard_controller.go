package controller

import (
	"eco_mentor_backend/internal/service"
	"eco_mentor_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type DashboardController struct {
	DashboardService *service.DashboardService
}

func NewDashboardController(dashboardService *service.DashboardService) *DashboardController {
	return &DashboardController{DashboardService: dashboardService}
}

// StudentDashboard godoc
// @Summary 学生仪表盘
// @Description 报名、近期答题与证书的汇总视图
// @Tags 仪表盘
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.StudentDashboard}
// @Router /api/dashboard [get]
func (c *DashboardController) StudentDashboard(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	dashboard, err := c.DashboardService.StudentOverview(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, dashboard)
}

// AdminOverview godoc
// @Summary 平台统计
// @Tags 仪表盘
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.AdminOverview}
// @Failure 403 {object} util.Response "无权限"
// @Router /api/admin/overview [get]
func (c *DashboardController) AdminOverview(ctx *gin.Context) {
	stats, err := c.DashboardService.AdminStats()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}

// CourseOverview godoc
// @Summary 课程统计
// @Description 讲师查看单课程的报名、完成与答题量
// @Tags 仪表盘
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseStats}
// @Router /api/instructor/courses/{id}/stats [get]
func (c *DashboardController) CourseOverview(ctx *gin.Context) {
	courseID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	stats, err := c.DashboardService.CourseOverview(courseID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}
