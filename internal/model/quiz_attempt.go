package model

import (
	"time"

	"gorm.io/datatypes"
)

// QuizAttempt is one graded submission. Rows are append-only: a learner
// may attempt a quiz any number of times and every attempt is kept.
// swagger:model QuizAttempt
type QuizAttempt struct {
	BaseModel
	UserID           uint           `gorm:"index;type:bigint unsigned;not null" json:"userId"`
	QuizID           uint           `gorm:"index;type:bigint unsigned;not null" json:"quizId"`
	CourseID         uint           `gorm:"index;type:bigint unsigned;not null" json:"courseId"`
	Score            int            `gorm:"not null" json:"score"` // 0-100
	CorrectAnswers   int            `gorm:"not null" json:"correctAnswers"`
	TotalQuestions   int            `gorm:"not null" json:"totalQuestions"`
	IsPassed         bool           `gorm:"default:false" json:"isPassed"`
	Answers          datatypes.JSON `gorm:"type:json" json:"answers"`
	TimeTakenSeconds int            `gorm:"default:0" json:"timeTakenSeconds"`
	CompletedAt      time.Time      `json:"completedAt"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}
