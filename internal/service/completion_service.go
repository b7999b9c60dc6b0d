package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"lms_backend/internal/model"
	"lms_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// QuizTimeOverheadMinutes is the fixed allowance added to a course's
// displayed duration when the course has a quiz.
const QuizTimeOverheadMinutes = 10

const progressCacheTTL = 30 * time.Second

// ProgressCache holds serialized course progress payloads for a short
// window. Every progress, quiz or certificate write must delete the
// affected key so reads observe their own writes.
type ProgressCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type redisProgressCache struct {
	rdb *redis.Client
}

func (c *redisProgressCache) Get(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, key).Result()
}

func (c *redisProgressCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *redisProgressCache) Del(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

type QuizStore interface {
	FindByID(id uint) (*model.Quiz, error)
	FindByCourse(courseID uint) (*model.Quiz, error)
	CreateAttempt(attempt *model.QuizAttempt) error
	ListAttempts(userID, quizID uint) ([]model.QuizAttempt, error)
	HasPassedAttempt(userID, quizID uint) (bool, error)
	BestScore(userID, quizID uint) (int, error)
}

// CourseCompletionSummary is the completion determination for one
// (learner, course) pair.
type CourseCompletionSummary struct {
	TotalComponents     int  `json:"totalComponents"`
	CompletedComponents int  `json:"completedComponents"`
	OverallProgress     int  `json:"overallProgress"`
	CourseCompleted     bool `json:"courseCompleted"`
}

// LessonProgressView is one lesson's progress line in the course
// progress payload.
type LessonProgressView struct {
	LessonID    uint   `json:"lessonId"`
	Title       string `json:"title"`
	Progress    int    `json:"progress"`
	IsCompleted bool   `json:"isCompleted"`
}

type QuizProgressView struct {
	QuizID    uint `json:"quizId"`
	Attempts  int  `json:"attempts"`
	BestScore int  `json:"bestScore"`
	Passed    bool `json:"passed"`
}

type CourseProgressPayload struct {
	LessonProgress []LessonProgressView    `json:"lessonProgress"`
	QuizProgress   *QuizProgressView       `json:"quizProgress,omitempty"`
	Summary        CourseCompletionSummary `json:"summary"`
}

// CompletionService combines lesson progress and quiz attempts into the
// course-completion determination. Completion is the AND of all
// published lessons being complete and, when a published quiz exists,
// that quiz having at least one passing attempt.
type CompletionService struct {
	Lessons      LessonStore
	Progress     ProgressStore
	Quizzes      QuizStore
	Certificates *CertificateService
	Cache        ProgressCache
}

func NewCompletionService(lessons LessonStore, progress ProgressStore, quizzes QuizStore, certs *CertificateService, rdb *redis.Client) *CompletionService {
	s := &CompletionService{
		Lessons:      lessons,
		Progress:     progress,
		Quizzes:      quizzes,
		Certificates: certs,
	}
	if rdb != nil {
		s.Cache = &redisProgressCache{rdb: rdb}
	}
	return s
}

// publishedQuiz returns the course's quiz when one exists and is
// published, else nil.
func (s *CompletionService) publishedQuiz(courseID uint) (*model.Quiz, error) {
	quiz, err := s.Quizzes.FindByCourse(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !quiz.Published {
		return nil, nil
	}
	return quiz, nil
}

// Evaluate computes the completion summary for a learner and course.
// An empty course (no published lessons, no quiz) is never complete.
func (s *CompletionService) Evaluate(userID, courseID uint) (*CourseCompletionSummary, error) {
	lessonCount, err := s.Lessons.CountPublished(courseID)
	if err != nil {
		return nil, err
	}

	completedLessons, err := s.Progress.CountCompleted(userID, courseID)
	if err != nil {
		return nil, err
	}

	quiz, err := s.publishedQuiz(courseID)
	if err != nil {
		return nil, err
	}

	total := int(lessonCount)
	completed := int(completedLessons)
	if quiz != nil {
		total++
		passed, err := s.Quizzes.HasPassedAttempt(userID, quiz.ID)
		if err != nil {
			return nil, err
		}
		if passed {
			completed++
		}
	}

	summary := &CourseCompletionSummary{
		TotalComponents:     total,
		CompletedComponents: completed,
	}
	if total > 0 {
		summary.OverallProgress = int(math.Round(float64(completed) / float64(total) * 100))
		summary.CourseCompleted = completed == total
	}
	return summary, nil
}

// HandleCompletionEvent re-evaluates the course after a progress or quiz
// event and, when the course is complete, asks the issuer for a
// certificate. The issuer is idempotent, so re-entering after completion
// is a safe no-op that returns the already-issued certificate.
func (s *CompletionService) HandleCompletionEvent(ctx context.Context, userID, courseID uint) (*model.Certificate, error) {
	s.InvalidateCache(ctx, userID, courseID)

	summary, err := s.Evaluate(userID, courseID)
	if err != nil {
		return nil, err
	}
	if !summary.CourseCompleted {
		return nil, nil
	}

	var quizID *uint
	if quiz, err := s.publishedQuiz(courseID); err == nil && quiz != nil {
		quizID = &quiz.ID
	}

	return s.Certificates.Issue(ctx, userID, courseID, quizID)
}

// CourseProgress assembles the full progress payload for the GET
// endpoint, cached in redis for a short window.
func (s *CompletionService) CourseProgress(ctx context.Context, userID, courseID uint) (*CourseProgressPayload, error) {
	cacheKey := progressCacheKey(userID, courseID)
	if s.Cache != nil {
		if val, err := s.Cache.Get(ctx, cacheKey); err == nil {
			var payload CourseProgressPayload
			if err := json.Unmarshal([]byte(val), &payload); err == nil {
				return &payload, nil
			}
		}
	}

	lessons, err := s.Lessons.ListPublishedByCourse(courseID)
	if err != nil {
		return nil, err
	}
	rows, err := s.Progress.ListByUserAndCourse(userID, courseID)
	if err != nil {
		return nil, err
	}

	byLesson := make(map[uint]*model.LessonProgress, len(rows))
	for i := range rows {
		byLesson[rows[i].LessonID] = &rows[i]
	}

	payload := &CourseProgressPayload{
		LessonProgress: make([]LessonProgressView, 0, len(lessons)),
	}
	for _, lesson := range lessons {
		view := LessonProgressView{LessonID: lesson.ID, Title: lesson.Title}
		if row, ok := byLesson[lesson.ID]; ok {
			view.Progress = row.Progress
			view.IsCompleted = row.IsCompleted
		}
		payload.LessonProgress = append(payload.LessonProgress, view)
	}

	if quiz, err := s.publishedQuiz(courseID); err == nil && quiz != nil {
		attempts, err := s.Quizzes.ListAttempts(userID, quiz.ID)
		if err != nil {
			return nil, err
		}
		best, err := s.Quizzes.BestScore(userID, quiz.ID)
		if err != nil {
			return nil, err
		}
		passed := false
		for _, a := range attempts {
			if a.IsPassed {
				passed = true
				break
			}
		}
		payload.QuizProgress = &QuizProgressView{
			QuizID:    quiz.ID,
			Attempts:  len(attempts),
			BestScore: best,
			Passed:    passed,
		}
	}

	summary, err := s.Evaluate(userID, courseID)
	if err != nil {
		return nil, err
	}
	payload.Summary = *summary

	if s.Cache != nil {
		if data, err := json.Marshal(payload); err == nil {
			if err := s.Cache.Set(ctx, cacheKey, string(data), progressCacheTTL); err != nil {
				logger.Log.Warn("progress cache write failed", zap.Error(err))
			}
		}
	}

	return payload, nil
}

func (s *CompletionService) InvalidateCache(ctx context.Context, userID, courseID uint) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Del(ctx, progressCacheKey(userID, courseID)); err != nil {
		logger.Log.Warn("progress cache invalidation failed", zap.Error(err))
	}
}

func progressCacheKey(userID, courseID uint) string {
	return fmt.Sprintf("course_progress:%d:%d", userID, courseID)
}
