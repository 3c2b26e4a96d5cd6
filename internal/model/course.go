package model

type CourseStatus string

const (
	CourseDraft     CourseStatus = "draft"
	CoursePublished CourseStatus = "published"
	CourseArchived  CourseStatus = "archived"
)

// swagger:model Course
type Course struct {
	BaseModel
	Title       string       `gorm:"size:255;not null" json:"title"`
	Slug        string       `gorm:"size:255;uniqueIndex" json:"slug"`
	Description string       `gorm:"type:text" json:"description"`
	CoverImage  string       `gorm:"size:255" json:"coverImage"`
	Status      CourseStatus `gorm:"type:varchar(20);default:'draft';index" json:"status"`
	AuthorID    uint         `gorm:"index;type:bigint unsigned" json:"authorId"`
	// 课程完成后是否自动签发证书（定时任务扫描）
	AutoIssueCertificate bool           `gorm:"default:false" json:"autoIssueCertificate"`
	Modules              []CourseModule `gorm:"foreignKey:CourseID" json:"modules,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// swagger:model CourseModule
type CourseModule struct {
	BaseModel
	CourseID uint     `gorm:"index;type:bigint unsigned" json:"courseId"`
	Title    string   `gorm:"size:255;not null" json:"title"`
	Order    int      `gorm:"default:0" json:"order"`
	Lessons  []Lesson `gorm:"foreignKey:ModuleID" json:"lessons,omitempty"`
}

func (CourseModule) TableName() string {
	return "course_modules"
}

// swagger:model Lesson
type Lesson struct {
	BaseModel
	ModuleID uint `gorm:"index;type:bigint unsigned" json:"moduleId"`
	// 冗余课程ID，便于按课程统计课时与进度
	CourseID uint   `gorm:"index;type:bigint unsigned" json:"courseId"`
	Title    string `gorm:"size:255;not null" json:"title"`
	Content  string `gorm:"type:text" json:"content"`
	VideoURL string `gorm:"size:255" json:"videoUrl"`
	Order    int    `gorm:"default:0" json:"order"`
	Duration int    `gorm:"default:0" json:"duration"`
}

func (Lesson) TableName() string {
	return "lessons"
}
