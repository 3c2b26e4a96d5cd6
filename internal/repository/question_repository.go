package repository

import (
	"eco_mentor_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) Create(q *model.QuizQuestion) error {
	return r.DB.Create(q).Error
}

func (r *QuestionRepository) FindByID(id uint) (*model.QuizQuestion, error) {
	var q model.QuizQuestion
	if err := r.DB.First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuestionRepository) ListByLesson(lessonID uint) ([]model.QuizQuestion, error) {
	var qs []model.QuizQuestion
	err := r.DB.Where("lesson_id = ?", lessonID).
		Order("`order` ASC, id ASC").
		Find(&qs).Error
	return qs, err
}

func (r *QuestionRepository) CountByLesson(lessonID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.QuizQuestion{}).
		Where("lesson_id = ?", lessonID).
		Count(&count).Error
	return count, err
}

// Replace 替换式编辑：旧题软删除，新题插入，同一事务内完成
func (r *QuestionRepository) Replace(oldID uint, q *model.QuizQuestion) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.QuizQuestion{}, oldID).Error; err != nil {
			return err
		}
		return tx.Create(q).Error
	})
}

func (r *QuestionRepository) Delete(id uint) error {
	return r.DB.Delete(&model.QuizQuestion{}, id).Error
}
