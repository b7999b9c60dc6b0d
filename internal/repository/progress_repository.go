package repository

import (
	"lms_backend/internal/model"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) FindByUserAndLesson(userID, lessonID uint) (*model.LessonProgress, error) {
	var progress model.LessonProgress
	err := r.DB.Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&progress).Error
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *ProgressRepository) Create(progress *model.LessonProgress) error {
	return r.DB.Create(progress).Error
}

func (r *ProgressRepository) Save(progress *model.LessonProgress) error {
	return r.DB.Save(progress).Error
}

func (r *ProgressRepository) ListByUserAndCourse(userID, courseID uint) ([]model.LessonProgress, error) {
	var rows []model.LessonProgress
	err := r.DB.Where("user_id = ? AND course_id = ?", userID, courseID).Find(&rows).Error
	return rows, err
}

// CountCompleted counts the learner's completed lessons among the
// course's currently published lessons. The join keeps unpublished or
// since-deleted lessons out of the completion math.
func (r *ProgressRepository) CountCompleted(userID, courseID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.LessonProgress{}).
		Joins("JOIN lessons ON lessons.id = user_progress.lesson_id AND lessons.deleted_at IS NULL").
		Where("user_progress.user_id = ? AND user_progress.course_id = ? AND user_progress.is_completed = ? AND lessons.published = ?",
			userID, courseID, true, true).
		Count(&count).Error
	return count, err
}
