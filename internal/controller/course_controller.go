package controller

import (
	"eco_mentor_backend/internal/service"
	"eco_mentor_backend/internal/util"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

func parseUintParam(ctx *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return uint(v), true
}

// ListCatalog godoc
// @Summary 课程目录
// @Description 已发布课程列表，无需登录
// @Tags 课程
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.Course}
// @Router /api/courses [get]
func (c *CourseController) ListCatalog(ctx *gin.Context) {
	courses, err := c.CourseService.ListPublished(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// GetCourse godoc
// @Summary 课程详情
// @Description 含模块与课时结构
// @Tags 课程
// @Produce  json
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=model.Course}
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{id} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	course, err := c.CourseService.GetCourse(id)
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, course)
}

// CreateCourse godoc
// @Summary 创建课程
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.CourseReq true "课程字段"
// @Success 201 {object} util.Response{data=model.Course}
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/instructor/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CourseReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if req.Title == nil || *req.Title == "" {
		util.BadRequest(ctx, "title is required")
		return
	}

	course, err := c.CourseService.CreateCourse(claims.UserID, req)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// UpdateCourse godoc
// @Summary 更新课程
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Param   body body service.CourseReq true "课程字段"
// @Success 200 {object} util.Response{data=model.Course}
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/instructor/courses/{id} [put]
func (c *CourseController) UpdateCourse(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	var req service.CourseReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CourseService.UpdateCourse(id, req)
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, course)
}

// DeleteCourse godoc
// @Summary 删除课程
// @Tags 课程管理
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/instructor/courses/{id} [delete]
func (c *CourseController) DeleteCourse(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}
	if err := c.CourseService.DeleteCourse(id); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// MyCourses godoc
// @Summary 我创建的课程
// @Tags 课程管理
// @Produce  json
// @Security BearerAuth
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页数量" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/instructor/courses [get]
func (c *CourseController) MyCourses(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	courses, total, err := c.CourseService.ListByAuthor(claims.UserID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: courses, Total: total, Page: page, Limit: limit})
}

// CreateModule godoc
// @Summary 新建课程模块
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Param   body body service.ModuleReq true "模块字段"
// @Success 201 {object} util.Response{data=model.CourseModule}
// @Router /api/instructor/courses/{id}/modules [post]
func (c *CourseController) CreateModule(ctx *gin.Context) {
	courseID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	var req service.ModuleReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	m, err := c.CourseService.CreateModule(courseID, req)
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, m)
}

// UpdateModule godoc
// @Summary 更新课程模块
// @Tags 课程管理
// @Security BearerAuth
// @Param   moduleId path int true "模块ID"
// @Param   body body service.ModuleReq true "模块字段"
// @Success 200 {object} util.Response{data=model.CourseModule}
// @Router /api/instructor/modules/{moduleId} [put]
func (c *CourseController) UpdateModule(ctx *gin.Context) {
	moduleID, ok := parseUintParam(ctx, "moduleId")
	if !ok {
		return
	}

	var req service.ModuleReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	m, err := c.CourseService.UpdateModule(moduleID, req)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, m)
}

// DeleteModule godoc
// @Summary 删除课程模块
// @Tags 课程管理
// @Security BearerAuth
// @Param   moduleId path int true "模块ID"
// @Success 200 {object} util.Response
// @Router /api/instructor/modules/{moduleId} [delete]
func (c *CourseController) DeleteModule(ctx *gin.Context) {
	moduleID, ok := parseUintParam(ctx, "moduleId")
	if !ok {
		return
	}
	if err := c.CourseService.DeleteModule(moduleID); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// CreateLesson godoc
// @Summary 新建课时
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   moduleId path int true "模块ID"
// @Param   body body service.LessonReq true "课时字段"
// @Success 201 {object} util.Response{data=model.Lesson}
// @Router /api/instructor/modules/{moduleId}/lessons [post]
func (c *CourseController) CreateLesson(ctx *gin.Context) {
	moduleID, ok := parseUintParam(ctx, "moduleId")
	if !ok {
		return
	}

	var req service.LessonReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson, err := c.CourseService.CreateLesson(moduleID, req)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, lesson)
}

// UpdateLesson godoc
// @Summary 更新课时
// @Tags 课程管理
// @Security BearerAuth
// @Param   lessonId path int true "课时ID"
// @Param   body body service.LessonReq true "课时字段"
// @Success 200 {object} util.Response{data=model.Lesson}
// @Router /api/instructor/lessons/{lessonId} [put]
func (c *CourseController) UpdateLesson(ctx *gin.Context) {
	lessonID, ok := parseUintParam(ctx, "lessonId")
	if !ok {
		return
	}

	var req service.LessonReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson, err := c.CourseService.UpdateLesson(lessonID, req)
	if err != nil {
		if errors.Is(err, util.ErrLessonNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, lesson)
}

// DeleteLesson godoc
// @Summary 删除课时
// @Tags 课程管理
// @Security BearerAuth
// @Param   lessonId path int true "课时ID"
// @Success 200 {object} util.Response
// @Router /api/instructor/lessons/{lessonId} [delete]
func (c *CourseController) DeleteLesson(ctx *gin.Context) {
	lessonID, ok := parseUintParam(ctx, "lessonId")
	if !ok {
		return
	}
	if err := c.CourseService.DeleteLesson(lessonID); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ListQuestions godoc
// @Summary 课时题目列表（含答案键）
// @Tags 课程管理
// @Produce  json
// @Security BearerAuth
// @Param   lessonId path int true "课时ID"
// @Success 200 {object} util.Response{data=[]model.QuizQuestion}
// @Router /api/instructor/lessons/{lessonId}/questions [get]
func (c *CourseController) ListQuestions(ctx *gin.Context) {
	lessonID, ok := parseUintParam(ctx, "lessonId")
	if !ok {
		return
	}

	questions, err := c.CourseService.ListQuestions(lessonID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, questions)
}

// CreateQuestion godoc
// @Summary 新建测验题目
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   lessonId path int true "课时ID"
// @Param   body body service.QuestionReq true "题目字段"
// @Success 201 {object} util.Response{data=model.QuizQuestion}
// @Router /api/instructor/lessons/{lessonId}/questions [post]
func (c *CourseController) CreateQuestion(ctx *gin.Context) {
	lessonID, ok := parseUintParam(ctx, "lessonId")
	if !ok {
		return
	}

	var req service.QuestionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.CourseService.CreateQuestion(lessonID, req)
	if err != nil {
		if errors.Is(err, util.ErrLessonNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, q)
}

// ReplaceQuestion godoc
// @Summary 编辑测验题目
// @Description 编辑即替换：旧题目软删除，新题目入库，历史作答不受影响
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   questionId path int true "题目ID"
// @Param   body body service.QuestionReq true "题目字段"
// @Success 200 {object} util.Response{data=model.QuizQuestion}
// @Router /api/instructor/questions/{questionId} [put]
func (c *CourseController) ReplaceQuestion(ctx *gin.Context) {
	questionID, ok := parseUintParam(ctx, "questionId")
	if !ok {
		return
	}

	var req service.QuestionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.CourseService.ReplaceQuestion(questionID, req)
	if err != nil {
		if errors.Is(err, util.ErrQuestionNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, q)
}

// DeleteQuestion godoc
// @Summary 删除测验题目
// @Tags 课程管理
// @Security BearerAuth
// @Param   questionId path int true "题目ID"
// @Success 200 {object} util.Response
// @Router /api/instructor/questions/{questionId} [delete]
func (c *CourseController) DeleteQuestion(ctx *gin.Context) {
	questionID, ok := parseUintParam(ctx, "questionId")
	if !ok {
		return
	}
	if err := c.CourseService.DeleteQuestion(questionID); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
