package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CourseDurationRecalculator re-aggregates a course's displayed duration;
// adding or removing a quiz changes the fixed quiz overhead.
type CourseDurationRecalculator interface {
	RecalculateCourseDuration(courseID uint) error
}

// QuizAdminStore adds the mutating operations the quiz service needs on
// top of the read-side QuizStore.
type QuizAdminStore interface {
	QuizStore
	CreateWithQuestions(quiz *model.Quiz, questions []model.QuizQuestion) error
	Delete(id uint) error
}

type QuizService struct {
	Quizzes    QuizAdminStore
	Courses    CourseStore
	Completion *CompletionService
	Durations  CourseDurationRecalculator
}

func NewQuizService(quizzes QuizAdminStore, courses CourseStore, completion *CompletionService, durations CourseDurationRecalculator) *QuizService {
	return &QuizService{
		Quizzes:    quizzes,
		Courses:    courses,
		Completion: completion,
		Durations:  durations,
	}
}

type QuizQuestionReq struct {
	Content       string          `json:"content" binding:"required"`
	Options       json.RawMessage `json:"options"`
	CorrectAnswer string          `json:"correctAnswer" binding:"required"`
	Points        int             `json:"points"`
	Order         int             `json:"order"`
}

type QuizReq struct {
	Title             string            `json:"title" binding:"required"`
	PassingPercentage *int              `json:"passingPercentage"`
	Published         *bool             `json:"published"`
	Questions         []QuizQuestionReq `json:"questions" binding:"required,min=1"`
}

// CreateQuiz attaches the course's single quiz. The unique index on
// course_id rejects a second quiz for the same course.
func (s *QuizService) CreateQuiz(courseID uint, req QuizReq) (*model.Quiz, error) {
	if _, err := s.Courses.FindByID(courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}

	quiz := &model.Quiz{
		CourseID:          courseID,
		Title:             req.Title,
		PassingPercentage: 60,
		Published:         true,
	}
	if req.PassingPercentage != nil {
		if *req.PassingPercentage < 0 || *req.PassingPercentage > 100 {
			return nil, errors.New("passing percentage must be between 0 and 100")
		}
		quiz.PassingPercentage = *req.PassingPercentage
	}
	if req.Published != nil {
		quiz.Published = *req.Published
	}

	questions := make([]model.QuizQuestion, 0, len(req.Questions))
	for i, q := range req.Questions {
		points := q.Points
		if points < 1 {
			points = 1
		}
		order := q.Order
		if order == 0 {
			order = i + 1
		}
		questions = append(questions, model.QuizQuestion{
			Content:       q.Content,
			Options:       datatypes.JSON(q.Options),
			CorrectAnswer: q.CorrectAnswer,
			Points:        points,
			Order:         order,
		})
	}

	if err := s.Quizzes.CreateWithQuestions(quiz, questions); err != nil {
		return nil, err
	}

	if err := s.Durations.RecalculateCourseDuration(courseID); err != nil {
		logger.Log.Error("course duration recalculation after quiz create failed",
			zap.Uint("courseID", courseID), zap.Error(err))
	}

	return quiz, nil
}

func (s *QuizService) DeleteQuiz(quizID uint) error {
	quiz, err := s.Quizzes.FindByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrQuizNotFound
		}
		return err
	}
	if err := s.Quizzes.Delete(quizID); err != nil {
		return err
	}
	if err := s.Durations.RecalculateCourseDuration(quiz.CourseID); err != nil {
		logger.Log.Error("course duration recalculation after quiz delete failed",
			zap.Uint("courseID", quiz.CourseID), zap.Error(err))
	}
	return nil
}

func (s *QuizService) GetQuiz(quizID uint) (*model.Quiz, error) {
	quiz, err := s.Quizzes.FindByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) GetQuizByCourse(courseID uint) (*model.Quiz, error) {
	quiz, err := s.Quizzes.FindByCourse(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}
	return quiz, nil
}

// SubmitResult is the graded outcome returned to the learner.
type SubmitResult struct {
	Score          int   `json:"score"`
	CorrectAnswers int   `json:"correctAnswers"`
	TotalQuestions int   `json:"totalQuestions"`
	Passed         bool  `json:"passed"`
	CertificateID  *uint `json:"certificateId,omitempty"`
	AttemptID      uint  `json:"attemptId"`
}

// Submit grades the learner's answers against the stored answer key and
// persists an immutable attempt row regardless of outcome. A passing
// attempt feeds the completion evaluator, which may issue a certificate.
func (s *QuizService) Submit(ctx context.Context, userID, quizID uint, answers map[uint]string, timeTakenSeconds int) (*SubmitResult, error) {
	quiz, err := s.Quizzes.FindByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}
	if !quiz.Published {
		return nil, util.ErrQuizNotPublished
	}

	earned, total := 0, 0
	correct := 0
	for _, q := range quiz.Questions {
		total += q.Points
		if AnswersMatch(answers[q.ID], q.CorrectAnswer) {
			earned += q.Points
			correct++
		}
	}

	score := 0
	passed := false
	if total > 0 {
		score = int(math.Round(float64(earned) / float64(total) * 100))
		passed = score >= quiz.PassingPercentage
	}

	rawAnswers, _ := json.Marshal(answers)
	attempt := &model.QuizAttempt{
		UserID:           userID,
		QuizID:           quiz.ID,
		CourseID:         quiz.CourseID,
		Score:            score,
		CorrectAnswers:   correct,
		TotalQuestions:   len(quiz.Questions),
		IsPassed:         passed,
		Answers:          datatypes.JSON(rawAnswers),
		TimeTakenSeconds: timeTakenSeconds,
		CompletedAt:      time.Now(),
	}
	if err := s.Quizzes.CreateAttempt(attempt); err != nil {
		return nil, err
	}

	monitoring.QuizAttempts.WithLabelValues(strconv.FormatBool(passed)).Inc()

	result := &SubmitResult{
		Score:          score,
		CorrectAnswers: correct,
		TotalQuestions: len(quiz.Questions),
		Passed:         passed,
		AttemptID:      attempt.ID,
	}

	if passed {
		cert, err := s.Completion.HandleCompletionEvent(ctx, userID, quiz.CourseID)
		if err != nil {
			// 成绩已落库，签发失败只记录
			logger.Log.Error("completion evaluation after quiz pass failed",
				zap.Uint("userID", userID),
				zap.Uint("courseID", quiz.CourseID),
				zap.Error(err))
		} else if cert != nil {
			result.CertificateID = &cert.ID
		}
	} else {
		s.Completion.InvalidateCache(ctx, userID, quiz.CourseID)
	}

	return result, nil
}

// AnswersMatch is the single answer comparator used everywhere: both
// sides are normalized (case folded, whitespace collapsed) and, when
// both parse as numbers, compared numerically so "80" matches "80.0".
func AnswersMatch(given, expected string) bool {
	ng, ne := NormalizeAnswer(given), NormalizeAnswer(expected)
	if ng == ne {
		return ng != ""
	}

	fg, errG := strconv.ParseFloat(ng, 64)
	fe, errE := strconv.ParseFloat(ne, 64)
	if errG == nil && errE == nil {
		return math.Abs(fg-fe) < 1e-9
	}
	return false
}

// NormalizeAnswer lowercases, trims, and collapses internal whitespace.
func NormalizeAnswer(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
