package model

import (
	"encoding/json"
	"time"
)

// QuizQuestion 课时测验题目。编辑采用替换式：旧行软删除、新行插入，
// 保证已产生的答题记录引用的题目内容不被原地篡改。
// swagger:model QuizQuestion
type QuizQuestion struct {
	BaseModel
	LessonID uint `gorm:"index;type:bigint unsigned" json:"lessonId"`
	// 冗余课程ID，便于作者端按课程管理题库
	CourseID uint            `gorm:"index;type:bigint unsigned" json:"courseId"`
	Prompt   string          `gorm:"type:text;not null" json:"prompt"`
	Options  json.RawMessage `gorm:"type:json" json:"options"`
	// 正确选项键，如 "a"
	Answer string `gorm:"size:255;not null" json:"-"`
	Order  int    `gorm:"default:0" json:"order"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

// QuizAttempt 答题台账，仅追加。唯一索引保证同一 (用户, 课时) 的
// 尝试序号严格递增且无重复；唯一的后续修改是在重试次数耗尽时
// 给最后一次尝试盖上锁定截止时间。
// swagger:model QuizAttempt
type QuizAttempt struct {
	BaseModel
	UserID   uint `gorm:"uniqueIndex:idx_user_lesson_attempt;type:bigint unsigned" json:"userId"`
	LessonID uint `gorm:"uniqueIndex:idx_user_lesson_attempt;type:bigint unsigned" json:"lessonId"`
	// 冗余课程ID，便于按课程聚合
	CourseID      uint       `gorm:"index;type:bigint unsigned" json:"courseId"`
	Score         int        `gorm:"not null" json:"score"`
	IsPassed      bool       `gorm:"default:false" json:"isPassed"`
	AttemptNumber int        `gorm:"uniqueIndex:idx_user_lesson_attempt;not null" json:"attemptNumber"`
	LockedUntil   *time.Time `json:"lockedUntil,omitempty"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}
