package model

// Course groups ordered lessons and an optional quiz
// swagger:model Course
type Course struct {
	BaseModel
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Category    string `gorm:"size:100" json:"category"`
	TeacherID   uint   `gorm:"index;type:bigint unsigned" json:"teacherId"`
	// 课程总时长（分钟），由已发布课时时长与测验开销汇总得出
	DurationMinutes int  `gorm:"default:0" json:"durationMinutes"`
	Published       bool `gorm:"default:false" json:"published"`

	Lessons []Lesson `gorm:"foreignKey:CourseID" json:"lessons,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}
