package model

import "gorm.io/datatypes"

// Quiz is a course's final test. At most one quiz per course; when
// published it becomes a mandatory component of course completion.
// swagger:model Quiz
type Quiz struct {
	BaseModel
	CourseID          uint   `gorm:"uniqueIndex;type:bigint unsigned;not null" json:"courseId"`
	Title             string `gorm:"size:255;not null" json:"title"`
	PassingPercentage int    `gorm:"default:60" json:"passingPercentage"` // 0-100
	Published         bool   `gorm:"default:true" json:"published"`

	Questions []QuizQuestion `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// swagger:model QuizQuestion
type QuizQuestion struct {
	BaseModel
	QuizID  uint           `gorm:"index;type:bigint unsigned;not null" json:"quizId"`
	Content string         `gorm:"type:text;not null" json:"content"`
	Options datatypes.JSON `gorm:"type:json" json:"options"`
	// 标准答案，仅教师端可见
	CorrectAnswer string `gorm:"size:500;not null" json:"-"`
	Points        int    `gorm:"default:1" json:"points"`
	Order         int    `gorm:"default:0" json:"order"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}
