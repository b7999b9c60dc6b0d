package service

import (
	"context"
	"errors"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CompletionThreshold is the progress percentage at which a lesson
// counts as completed even without an explicit completed flag.
const CompletionThreshold = 90

type ProgressStore interface {
	FindByUserAndLesson(userID, lessonID uint) (*model.LessonProgress, error)
	Create(progress *model.LessonProgress) error
	Save(progress *model.LessonProgress) error
	ListByUserAndCourse(userID, courseID uint) ([]model.LessonProgress, error)
	CountCompleted(userID, courseID uint) (int64, error)
}

type LessonStore interface {
	FindByID(id uint) (*model.Lesson, error)
	ListPublishedByCourse(courseID uint) ([]model.Lesson, error)
	CountPublished(courseID uint) (int64, error)
}

type ProgressService struct {
	Progress   ProgressStore
	Lessons    LessonStore
	Completion *CompletionService
}

func NewProgressService(progress ProgressStore, lessons LessonStore, completion *CompletionService) *ProgressService {
	return &ProgressService{
		Progress:   progress,
		Lessons:    lessons,
		Completion: completion,
	}
}

// SaveProgress upserts the learner's progress on a lesson. Progress is
// clamped to [0,100]; a lesson is completed when explicitly flagged or
// when progress reaches the threshold. Re-submitting the same state is a
// no-op. A false→true completion transition feeds the completion
// evaluator, which may issue a certificate as a side effect.
func (s *ProgressService) SaveProgress(ctx context.Context, userID, lessonID uint, progress int, completed bool) (*model.LessonProgress, error) {
	lesson, err := s.Lessons.FindByID(lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}

	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	isCompleted := completed || progress >= CompletionThreshold

	row, err := s.Progress.FindByUserAndLesson(userID, lessonID)
	switch {
	case err == nil:
		// 相同状态重复提交：幂等，不触发任何副作用
		if row.Progress == progress && row.IsCompleted == isCompleted {
			return row, nil
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = &model.LessonProgress{
			UserID:   userID,
			LessonID: lessonID,
			CourseID: lesson.CourseID,
		}
		if err := s.Progress.Create(row); err != nil {
			if !errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, err
			}
			// 并发首写撞到 idx_user_lesson，回读已有行继续更新
			row, err = s.Progress.FindByUserAndLesson(userID, lessonID)
			if err != nil {
				return nil, err
			}
			if row.Progress == progress && row.IsCompleted == isCompleted {
				return row, nil
			}
		}
	default:
		return nil, err
	}

	wasCompleted := row.IsCompleted
	row.Progress = progress
	row.IsCompleted = isCompleted
	if isCompleted && row.CompletedAt == nil {
		now := time.Now()
		row.CompletedAt = &now
	}

	if err := s.Progress.Save(row); err != nil {
		return nil, err
	}

	// 进度已变化，课程进度缓存立即失效
	s.Completion.InvalidateCache(ctx, userID, lesson.CourseID)

	if !wasCompleted && isCompleted {
		if _, err := s.Completion.HandleCompletionEvent(ctx, userID, lesson.CourseID); err != nil {
			// 完成状态已持久化，签发失败只记录，由后台重试兜底
			logger.Log.Error("completion evaluation after lesson completion failed",
				zap.Uint("userID", userID),
				zap.Uint("courseID", lesson.CourseID),
				zap.Error(err))
		}
	}

	return row, nil
}
