package service

import (
	"context"
	"eco_mentor_backend/internal/config"
	"eco_mentor_backend/internal/model"
	"eco_mentor_backend/internal/repository"
	"eco_mentor_backend/internal/util"
	"eco_mentor_backend/pkg/logger"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CourseService struct {
	CourseRepo   *repository.CourseRepository
	QuestionRepo *repository.QuestionRepository
	Cfg          *config.Config
	Redis        *redis.Client
}

func NewCourseService(courseRepo *repository.CourseRepository, questionRepo *repository.QuestionRepository, cfg *config.Config, rdb *redis.Client) *CourseService {
	return &CourseService{
		CourseRepo:   courseRepo,
		QuestionRepo: questionRepo,
		Cfg:          cfg,
		Redis:        rdb,
	}
}

const catalogCacheKey = "course_catalog"
const catalogCacheTTL = 10 * time.Minute

type CourseReq struct {
	Title                *string `json:"title"`
	Slug                 *string `json:"slug"`
	Description          *string `json:"description"`
	CoverImage           *string `json:"coverImage"`
	Status               *string `json:"status"`
	AutoIssueCertificate *bool   `json:"autoIssueCertificate"`
}

func (s *CourseService) CreateCourse(authorID uint, req CourseReq) (*model.Course, error) {
	if req.Title == nil || *req.Title == "" {
		return nil, util.ErrCourseNotFound
	}

	course := &model.Course{
		Title:    *req.Title,
		AuthorID: authorID,
		Status:   model.CourseDraft,
	}
	if req.Slug != nil {
		course.Slug = *req.Slug
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.CoverImage != nil {
		course.CoverImage = *req.CoverImage
	}
	if req.AutoIssueCertificate != nil {
		course.AutoIssueCertificate = *req.AutoIssueCertificate
	}

	if err := s.CourseRepo.Create(course); err != nil {
		return nil, err
	}
	s.invalidateCatalogCache()
	return course, nil
}

func (s *CourseService) UpdateCourse(courseID uint, req CourseReq) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}

	if req.Title != nil {
		course.Title = *req.Title
	}
	if req.Slug != nil {
		course.Slug = *req.Slug
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.CoverImage != nil {
		course.CoverImage = *req.CoverImage
	}
	if req.Status != nil {
		course.Status = model.CourseStatus(*req.Status)
	}
	if req.AutoIssueCertificate != nil {
		course.AutoIssueCertificate = *req.AutoIssueCertificate
	}

	if err := s.CourseRepo.Update(course); err != nil {
		return nil, err
	}
	s.invalidateCatalogCache()
	return course, nil
}

func (s *CourseService) DeleteCourse(courseID uint) error {
	if err := s.CourseRepo.Delete(courseID); err != nil {
		return err
	}
	s.invalidateCatalogCache()
	return nil
}

func (s *CourseService) GetCourse(courseID uint) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	return course, nil
}

// ListPublished 对外课程目录，Redis 缓存10分钟，写路径失效
func (s *CourseService) ListPublished(ctx context.Context) ([]model.Course, error) {
	if s.Redis != nil {
		val, err := s.Redis.Get(ctx, catalogCacheKey).Result()
		if err == nil {
			var courses []model.Course
			if err := json.Unmarshal([]byte(val), &courses); err == nil {
				return courses, nil
			}
		} else if err != redis.Nil {
			logger.Log.Warn("catalog cache read failed", zap.Error(err))
		}
	}

	courses, err := s.CourseRepo.ListPublished()
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if data, err := json.Marshal(courses); err == nil {
			s.Redis.Set(ctx, catalogCacheKey, data, catalogCacheTTL)
		}
	}
	return courses, nil
}

func (s *CourseService) invalidateCatalogCache() {
	if s.Redis == nil {
		return
	}
	s.Redis.Del(context.Background(), catalogCacheKey)
}

func (s *CourseService) ListByAuthor(authorID uint, page, limit int) ([]model.Course, int64, error) {
	return s.CourseRepo.ListByAuthor(authorID, page, limit)
}

type ModuleReq struct {
	Title *string `json:"title"`
	Order *int    `json:"order"`
}

func (s *CourseService) CreateModule(courseID uint, req ModuleReq) (*model.CourseModule, error) {
	if _, err := s.CourseRepo.FindByID(courseID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}

	m := &model.CourseModule{CourseID: courseID}
	if req.Title != nil {
		m.Title = *req.Title
	}
	if req.Order != nil {
		m.Order = *req.Order
	}

	if err := s.CourseRepo.CreateModule(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *CourseService) UpdateModule(moduleID uint, req ModuleReq) (*model.CourseModule, error) {
	m, err := s.CourseRepo.FindModuleByID(moduleID)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		m.Title = *req.Title
	}
	if req.Order != nil {
		m.Order = *req.Order
	}
	if err := s.CourseRepo.UpdateModule(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *CourseService) DeleteModule(moduleID uint) error {
	return s.CourseRepo.DeleteModule(moduleID)
}

type LessonReq struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	VideoURL *string `json:"videoUrl"`
	Order    *int    `json:"order"`
	Duration *int    `json:"duration"`
}

func (s *CourseService) CreateLesson(moduleID uint, req LessonReq) (*model.Lesson, error) {
	m, err := s.CourseRepo.FindModuleByID(moduleID)
	if err != nil {
		return nil, err
	}

	lesson := &model.Lesson{
		ModuleID: moduleID,
		CourseID: m.CourseID,
	}
	if req.Title != nil {
		lesson.Title = *req.Title
	}
	if req.Content != nil {
		lesson.Content = *req.Content
	}
	if req.VideoURL != nil {
		lesson.VideoURL = *req.VideoURL
	}
	if req.Order != nil {
		lesson.Order = *req.Order
	}
	if req.Duration != nil {
		lesson.Duration = *req.Duration
	}

	if err := s.CourseRepo.CreateLesson(lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *CourseService) UpdateLesson(lessonID uint, req LessonReq) (*model.Lesson, error) {
	lesson, err := s.CourseRepo.FindLessonByID(lessonID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}

	if req.Title != nil {
		lesson.Title = *req.Title
	}
	if req.Content != nil {
		lesson.Content = *req.Content
	}
	if req.VideoURL != nil {
		lesson.VideoURL = *req.VideoURL
	}
	if req.Order != nil {
		lesson.Order = *req.Order
	}
	if req.Duration != nil {
		lesson.Duration = *req.Duration
	}

	if err := s.CourseRepo.UpdateLesson(lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *CourseService) DeleteLesson(lessonID uint) error {
	return s.CourseRepo.DeleteLesson(lessonID)
}

type QuestionReq struct {
	Prompt  string          `json:"prompt" binding:"required"`
	Options json.RawMessage `json:"options" binding:"required"`
	Answer  string          `json:"answer" binding:"required"`
	Order   int             `json:"order"`
}

func (s *CourseService) CreateQuestion(lessonID uint, req QuestionReq) (*model.QuizQuestion, error) {
	lesson, err := s.CourseRepo.FindLessonByID(lessonID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}

	q := &model.QuizQuestion{
		LessonID: lessonID,
		CourseID: lesson.CourseID,
		Prompt:   req.Prompt,
		Options:  req.Options,
		Answer:   req.Answer,
		Order:    req.Order,
	}
	if err := s.QuestionRepo.Create(q); err != nil {
		return nil, err
	}
	return q, nil
}

// ReplaceQuestion 题目编辑走替换：旧行软删除、新行插入
func (s *CourseService) ReplaceQuestion(questionID uint, req QuestionReq) (*model.QuizQuestion, error) {
	old, err := s.QuestionRepo.FindByID(questionID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}

	q := &model.QuizQuestion{
		LessonID: old.LessonID,
		CourseID: old.CourseID,
		Prompt:   req.Prompt,
		Options:  req.Options,
		Answer:   req.Answer,
		Order:    req.Order,
	}
	if err := s.QuestionRepo.Replace(old.ID, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *CourseService) DeleteQuestion(questionID uint) error {
	return s.QuestionRepo.Delete(questionID)
}

func (s *CourseService) ListQuestions(lessonID uint) ([]model.QuizQuestion, error) {
	return s.QuestionRepo.ListByLesson(lessonID)
}
