package controller

import (
	"eco_mentor_backend/internal/service"
	"eco_mentor_backend/internal/util"
	"errors"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

// GetLessonQuiz godoc
// @Summary 课时测验题目
// @Description 学生端题目列表，不含答案键
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   lessonId path int true "课时ID"
// @Success 200 {object} util.Response{data=[]service.StudentQuizQuestion}
// @Failure 403 {object} util.Response "未报名该课程"
// @Failure 404 {object} util.Response "课时或测验不存在"
// @Router /api/lessons/{lessonId}/quiz [get]
func (c *QuizController) GetLessonQuiz(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	lessonID, ok := parseUintParam(ctx, "lessonId")
	if !ok {
		return
	}

	questions, err := c.QuizService.GetLessonQuiz(claims.UserID, lessonID)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrLessonNotFound), errors.Is(err, util.ErrQuizNotFound):
			util.Error(ctx, 404, err.Error())
		case errors.Is(err, util.ErrNotEnrolled):
			util.Error(ctx, 403, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, questions)
}

// SubmitQuiz godoc
// @Summary 提交测验答案
// @Description 打分并追加答题台账；连续失败触发冷却期，冷却期内提交返回429
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   lessonId path int true "课时ID"
// @Param   body body service.QuizSubmission true "题目ID到选项键的映射"
// @Success 200 {object} util.Response{data=service.QuizResult}
// @Failure 400 {object} util.Response "缺少答案或课时不存在"
// @Failure 403 {object} util.Response "未报名该课程"
// @Failure 404 {object} util.Response "课时或测验不存在"
// @Failure 409 {object} util.Response "并发提交冲突"
// @Failure 429 {object} util.Response "冷却期内"
// @Router /api/lessons/{lessonId}/quiz/submit [post]
func (c *QuizController) SubmitQuiz(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	lessonID, ok := parseUintParam(ctx, "lessonId")
	if !ok {
		return
	}

	var submission service.QuizSubmission
	if err := ctx.ShouldBindJSON(&submission); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.QuizService.SubmitQuiz(ctx.Request.Context(), claims.UserID, lessonID, submission)
	if err != nil {
		var lockedErr *util.QuizLockedError
		var maxErr *util.MaxAttemptsError
		switch {
		case errors.As(err, &lockedErr), errors.As(err, &maxErr):
			util.TooManyRequests(ctx, err.Error())
		case errors.Is(err, util.ErrMissingAnswerPayload), errors.Is(err, util.ErrLessonNotFound):
			util.BadRequest(ctx, err.Error())
		case errors.Is(err, util.ErrQuizNotFound):
			util.Error(ctx, 404, err.Error())
		case errors.Is(err, util.ErrNotEnrolled):
			util.Error(ctx, 403, err.Error())
		case errors.Is(err, util.ErrSubmitInProgress):
			util.Error(ctx, 409, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, result)
}

// ListAttempts godoc
// @Summary 答题记录
// @Description 当前用户在某课时的全部尝试，按序号升序
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   lessonId path int true "课时ID"
// @Success 200 {object} util.Response{data=[]model.QuizAttempt}
// @Router /api/lessons/{lessonId}/quiz/attempts [get]
func (c *QuizController) ListAttempts(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	lessonID, ok := parseUintParam(ctx, "lessonId")
	if !ok {
		return
	}

	attempts, err := c.QuizService.ListAttempts(claims.UserID, lessonID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}
