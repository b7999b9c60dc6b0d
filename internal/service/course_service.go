package service

import (
	"errors"

	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CourseService struct {
	Courses *repository.CourseRepository
	Lessons *repository.LessonRepository
	Quizzes *repository.QuizRepository
	Probe   VideoProbe
	Config  *config.Config
}

func NewCourseService(courses *repository.CourseRepository, lessons *repository.LessonRepository, quizzes *repository.QuizRepository, probe VideoProbe, cfg *config.Config) *CourseService {
	return &CourseService{
		Courses: courses,
		Lessons: lessons,
		Quizzes: quizzes,
		Probe:   probe,
		Config:  cfg,
	}
}

type CourseReq struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Published   *bool  `json:"published"`
}

func (s *CourseService) CreateCourse(teacherID uint, req CourseReq) (*model.Course, error) {
	course := &model.Course{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		TeacherID:   teacherID,
	}
	if req.Published != nil {
		course.Published = *req.Published
	}
	if err := s.Courses.Create(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) GetCourse(id uint) (*model.Course, error) {
	course, err := s.Courses.FindByIDWithLessons(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	return course, nil
}

func (s *CourseService) UpdateCourse(id uint, req CourseReq) (*model.Course, error) {
	course, err := s.Courses.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}

	course.Title = req.Title
	course.Description = req.Description
	course.Category = req.Category
	if req.Published != nil {
		course.Published = *req.Published
	}

	if err := s.Courses.Update(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) ListCourses(page, limit int) ([]model.Course, int64, error) {
	return s.Courses.List(page, limit)
}

func (s *CourseService) DeleteCourse(id uint) error {
	if _, err := s.Courses.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrCourseNotFound
		}
		return err
	}
	return s.Courses.Delete(id)
}

type LessonReq struct {
	Title       string `json:"title" binding:"required"`
	Content     string `json:"content"`
	VideoURL    string `json:"videoUrl"`
	DocumentURL string `json:"documentUrl"`
	// 手动时长（分钟）；部分内容组合下必填
	DurationMinutes *int  `json:"durationMinutes"`
	Published       *bool `json:"published"`
	Order           int   `json:"order"`
}

// resolveLessonDuration runs the probe and the duration decision table
// for the lesson's content composition.
func (s *CourseService) resolveLessonDuration(req LessonReq) (int, error) {
	in := DurationInput{
		HasVideo:           req.VideoURL != "",
		HasDocument:        req.DocumentURL != "",
		HasSubstantialText: HasSubstantialText(req.Content),
		ExternalPlatform:   IsExternalPlatformURL(req.VideoURL),
		ManualMinutes:      req.DurationMinutes,
		DefaultMinutes:     s.Config.Video.DefaultDurationMinutes,
	}
	if in.HasVideo && !in.ExternalPlatform {
		in.ProbedMinutes = s.Probe.Probe(req.VideoURL)
	}
	return ResolveDuration(in)
}

// CreateLesson resolves the lesson's canonical duration from its content
// composition and re-aggregates the course's displayed duration.
func (s *CourseService) CreateLesson(courseID uint, req LessonReq) (*model.Lesson, error) {
	if _, err := s.Courses.FindByID(courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}

	minutes, err := s.resolveLessonDuration(req)
	if err != nil {
		return nil, err
	}

	lesson := &model.Lesson{
		CourseID:        courseID,
		Title:           req.Title,
		Content:         req.Content,
		VideoURL:        req.VideoURL,
		DocumentURL:     req.DocumentURL,
		DurationMinutes: minutes,
		Published:       true,
		Order:           req.Order,
	}
	if req.Published != nil {
		lesson.Published = *req.Published
	}

	if err := s.Lessons.Create(lesson); err != nil {
		return nil, err
	}

	s.recalcAfterLessonChange(courseID)
	return lesson, nil
}

// UpdateLesson re-resolves duration whenever the content composition
// changed or a new manual duration was supplied.
func (s *CourseService) UpdateLesson(lessonID uint, req LessonReq) (*model.Lesson, error) {
	lesson, err := s.Lessons.FindByID(lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}

	contentChanged := lesson.Content != req.Content ||
		lesson.VideoURL != req.VideoURL ||
		lesson.DocumentURL != req.DocumentURL

	lesson.Title = req.Title
	lesson.Content = req.Content
	lesson.VideoURL = req.VideoURL
	lesson.DocumentURL = req.DocumentURL
	lesson.Order = req.Order
	if req.Published != nil {
		lesson.Published = *req.Published
	}

	if contentChanged || req.DurationMinutes != nil {
		minutes, err := s.resolveLessonDuration(req)
		if err != nil {
			return nil, err
		}
		lesson.DurationMinutes = minutes
	}

	if err := s.Lessons.Update(lesson); err != nil {
		return nil, err
	}

	s.recalcAfterLessonChange(lesson.CourseID)
	return lesson, nil
}

func (s *CourseService) DeleteLesson(lessonID uint) error {
	lesson, err := s.Lessons.FindByID(lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrLessonNotFound
		}
		return err
	}
	if err := s.Lessons.Delete(lessonID); err != nil {
		return err
	}
	s.recalcAfterLessonChange(lesson.CourseID)
	return nil
}

func (s *CourseService) ListLessons(courseID uint) ([]model.Lesson, error) {
	return s.Lessons.ListByCourse(courseID)
}

func (s *CourseService) recalcAfterLessonChange(courseID uint) {
	if err := s.RecalculateCourseDuration(courseID); err != nil {
		logger.Log.Error("course duration recalculation failed",
			zap.Uint("courseID", courseID), zap.Error(err))
	}
}

// RecalculateCourseDuration sums published lesson durations plus the
// fixed quiz overhead and persists the result on the course.
func (s *CourseService) RecalculateCourseDuration(courseID uint) error {
	total, err := s.Lessons.SumPublishedDuration(courseID)
	if err != nil {
		return err
	}

	if _, err := s.Quizzes.FindByCourse(courseID); err == nil {
		total += QuizTimeOverheadMinutes
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return s.Courses.UpdateDuration(courseID, total)
}
