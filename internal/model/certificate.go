package model

import "time"

// Certificate is the uniquely numbered proof of course completion.
// The unique index on (user_id, course_id) is what makes issuance
// idempotent under concurrent triggers: the losing insert hits the
// constraint and falls back to reading the winner's row.
// swagger:model Certificate
type Certificate struct {
	BaseModel
	UserID            uint      `gorm:"index:idx_user_course,unique;type:bigint unsigned;not null" json:"userId"`
	CourseID          uint      `gorm:"index:idx_user_course,unique;type:bigint unsigned;not null" json:"courseId"`
	QuizID            *uint     `gorm:"type:bigint unsigned" json:"quizId,omitempty"`
	CertificateNumber string    `gorm:"size:64;uniqueIndex;not null" json:"certificateNumber"`
	PDFURL            string    `gorm:"column:pdf_url;size:500" json:"pdfUrl"`
	IssuedAt          time.Time `json:"issuedAt"`
	// 渲染成功后写入；为空表示PDF待渲染（后台定时重试）
	PDFRenderedAt *time.Time `gorm:"column:pdf_rendered_at" json:"pdfRenderedAt,omitempty"`
}

func (Certificate) TableName() string {
	return "certificates"
}
