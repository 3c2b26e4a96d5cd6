package repository

import (
	"eco_mentor_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) Create(e *model.Enrollment) error {
	return r.DB.Create(e).Error
}

func (r *EnrollmentRepository) FindByUserAndCourse(userID, courseID uint) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EnrollmentRepository) FindByID(id uint) (*model.Enrollment, error) {
	var e model.Enrollment
	if err := r.DB.First(&e, id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EnrollmentRepository) ListByUser(userID uint) ([]model.Enrollment, error) {
	var es []model.Enrollment
	err := r.DB.Preload("Course").
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&es).Error
	return es, err
}

// UpdateProgress 回写聚合结果；首次达到100%时记录完成时间
func (r *EnrollmentRepository) UpdateProgress(id uint, progress int, completed bool) error {
	updates := map[string]interface{}{
		"progress":  progress,
		"completed": completed,
	}
	if completed {
		updates["completed_at"] = time.Now()
	}
	return r.DB.Model(&model.Enrollment{}).
		Where("id = ?", id).
		Where("completed = ? OR completed_at IS NULL", false).
		Updates(updates).Error
}

func (r *EnrollmentRepository) CountByCourse(courseID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Enrollment{}).Where("course_id = ?", courseID).Count(&count).Error
	return count, err
}

func (r *EnrollmentRepository) CountCompletedByCourse(courseID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Enrollment{}).
		Where("course_id = ? AND completed = ?", courseID, true).
		Count(&count).Error
	return count, err
}

func (r *EnrollmentRepository) CountCompleted() (int64, error) {
	var count int64
	err := r.DB.Model(&model.Enrollment{}).Where("completed = ?", true).Count(&count).Error
	return count, err
}

func (r *EnrollmentRepository) Count() (int64, error) {
	var count int64
	err := r.DB.Model(&model.Enrollment{}).Count(&count).Error
	return count, err
}

// ListCompletedForAutoIssue 自动签发扫描：已完成、课程开启自动签发、尚无证书
func (r *EnrollmentRepository) ListCompletedForAutoIssue(limit int) ([]model.Enrollment, error) {
	var es []model.Enrollment
	err := r.DB.
		Joins("JOIN courses ON courses.id = enrollments.course_id AND courses.auto_issue_certificate = ?", true).
		Where("enrollments.completed = ?", true).
		Where("NOT EXISTS (SELECT 1 FROM certificates WHERE certificates.enrollment_id = enrollments.id AND certificates.deleted_at IS NULL)").
		Limit(limit).
		Find(&es).Error
	return es, err
}
