package model

// Lesson is an ordered content unit within a course. A lesson may carry
// any combination of video, document and text content; its canonical
// duration is resolved from that composition on every create/update.
// swagger:model Lesson
type Lesson struct {
	BaseModel
	CourseID    uint   `gorm:"index;type:bigint unsigned;not null" json:"courseId"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Content     string `gorm:"type:text" json:"content"`
	VideoURL    string `gorm:"size:500" json:"videoUrl"`
	DocumentURL string `gorm:"size:500" json:"documentUrl"`
	// 课时时长（分钟），内容变更时重新解析
	DurationMinutes int  `gorm:"default:0" json:"durationMinutes"`
	Published       bool `gorm:"default:true" json:"published"`
	Order           int  `gorm:"default:0" json:"order"`
}

func (Lesson) TableName() string {
	return "lessons"
}
