package model

import "time"

// ProgressRecord 每个 (用户, 课时) 最多一行，记录该课时的最佳通过情况。
// 一旦记录为通过，后续失败的尝试不会把它降级（取最好成绩）。
// swagger:model ProgressRecord
type ProgressRecord struct {
	BaseModel
	UserID   uint `gorm:"uniqueIndex:idx_user_lesson;type:bigint unsigned" json:"userId"`
	LessonID uint `gorm:"uniqueIndex:idx_user_lesson;type:bigint unsigned" json:"lessonId"`
	// 冗余课程ID，聚合进度时按课程过滤
	CourseID    uint      `gorm:"index;type:bigint unsigned" json:"courseId"`
	Score       int       `gorm:"default:0" json:"score"`
	IsPassed    bool      `gorm:"default:false" json:"isPassed"`
	CompletedAt time.Time `json:"completedAt"`
}

func (ProgressRecord) TableName() string {
	return "progress_records"
}

// Enrollment 每个 (用户, 课程) 一行，缓存聚合后的完成百分比。
// progress == round(100 * 已通过课时数 / 课程总课时数)，Completed == (progress == 100)。
// swagger:model Enrollment
type Enrollment struct {
	BaseModel
	UserID      uint       `gorm:"uniqueIndex:idx_user_course;type:bigint unsigned" json:"userId"`
	CourseID    uint       `gorm:"uniqueIndex:idx_user_course;type:bigint unsigned" json:"courseId"`
	Progress    int        `gorm:"default:0" json:"progress"`
	Completed   bool       `gorm:"default:false" json:"completed"`
	EnrolledAt  time.Time  `json:"enrolledAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Course      *Course    `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
