package repository

import (
	"eco_mentor_backend/internal/model"
	"strings"
	"time"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) Create(attempt *model.QuizAttempt) error {
	return r.DB.Create(attempt).Error
}

// RecentByUserAndLesson 最近的若干次尝试，按尝试序号倒序
func (r *AttemptRepository) RecentByUserAndLesson(userID, lessonID uint, limit int) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		Order("attempt_number DESC").
		Limit(limit).
		Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) ListByUserAndLesson(userID, lessonID uint) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		Order("attempt_number ASC").
		Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) RecentByUser(userID uint, limit int) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) MaxAttemptNumber(userID, lessonID uint) (int, error) {
	var max int
	err := r.DB.Model(&model.QuizAttempt{}).
		Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		Select("COALESCE(MAX(attempt_number), 0)").
		Scan(&max).Error
	return max, err
}

// StampLockout 给指定尝试盖上锁定截止时间，台账中唯一允许的修改
func (r *AttemptRepository) StampLockout(attemptID uint, until time.Time) error {
	return r.DB.Model(&model.QuizAttempt{}).
		Where("id = ?", attemptID).
		Update("locked_until", until).
		Error
}

func (r *AttemptRepository) CountByCourse(courseID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.QuizAttempt{}).
		Where("course_id = ?", courseID).
		Count(&count).Error
	return count, err
}

func (r *AttemptRepository) Count() (int64, error) {
	var count int64
	err := r.DB.Model(&model.QuizAttempt{}).Count(&count).Error
	return count, err
}

// CountPassedSince 时间窗内的通过次数，仪表盘用
func (r *AttemptRepository) CountPassedSince(since time.Time) (int64, error) {
	var count int64
	err := r.DB.Model(&model.QuizAttempt{}).
		Where("is_passed = ? AND created_at >= ?", true, since).
		Count(&count).Error
	return count, err
}

// IsDuplicateKeyErr 尝试序号唯一索引冲突，提交流程据此重读序号后重试
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if err == gorm.ErrDuplicatedKey {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}
