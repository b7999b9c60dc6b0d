package model

import "time"

// LessonProgress records a learner's progress through a single lesson.
// One row per (user, lesson); created on first activity, updated after.
// swagger:model LessonProgress
type LessonProgress struct {
	BaseModel
	UserID   uint `gorm:"index:idx_user_lesson,unique;type:bigint unsigned;not null" json:"userId"`
	LessonID uint `gorm:"index:idx_user_lesson,unique;type:bigint unsigned;not null" json:"lessonId"`
	// 冗余课程ID，方便按课程聚合查询
	CourseID    uint       `gorm:"index;type:bigint unsigned;not null" json:"courseId"`
	Progress    int        `gorm:"default:0" json:"progress"` // 0-100
	IsCompleted bool       `gorm:"default:false" json:"isCompleted"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func (LessonProgress) TableName() string {
	return "user_progress"
}
