package repository

import (
	"eco_mentor_backend/internal/model"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) FindByUserAndLesson(userID, lessonID uint) (*model.ProgressRecord, error) {
	var record model.ProgressRecord
	err := r.DB.Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *ProgressRepository) Create(record *model.ProgressRecord) error {
	return r.DB.Create(record).Error
}

func (r *ProgressRepository) Update(record *model.ProgressRecord) error {
	return r.DB.Save(record).Error
}

// CountPassedByUserAndCourse 进度聚合的分子：该课程下已通过的课时数
func (r *ProgressRepository) CountPassedByUserAndCourse(userID, courseID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.ProgressRecord{}).
		Where("user_id = ? AND course_id = ? AND is_passed = ?", userID, courseID, true).
		Count(&count).Error
	return count, err
}

func (r *ProgressRepository) ListByUserAndCourse(userID, courseID uint) ([]model.ProgressRecord, error) {
	var records []model.ProgressRecord
	err := r.DB.Where("user_id = ? AND course_id = ?", userID, courseID).
		Find(&records).Error
	return records, err
}
