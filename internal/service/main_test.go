package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

// ---------------- in-memory fakes for the engine's store interfaces ----------------

type fakeLessonStore struct {
	lessons map[uint]*model.Lesson
}

func newFakeLessonStore() *fakeLessonStore {
	return &fakeLessonStore{lessons: map[uint]*model.Lesson{}}
}

func (s *fakeLessonStore) add(l *model.Lesson) *model.Lesson {
	s.lessons[l.ID] = l
	return l
}

func (s *fakeLessonStore) FindByID(id uint) (*model.Lesson, error) {
	l, ok := s.lessons[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return l, nil
}

func (s *fakeLessonStore) ListPublishedByCourse(courseID uint) ([]model.Lesson, error) {
	var out []model.Lesson
	for _, l := range s.lessons {
		if l.CourseID == courseID && l.Published {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s *fakeLessonStore) CountPublished(courseID uint) (int64, error) {
	var n int64
	for _, l := range s.lessons {
		if l.CourseID == courseID && l.Published {
			n++
		}
	}
	return n, nil
}

type fakeProgressStore struct {
	rows      map[string]*model.LessonProgress
	nextID    uint
	saveCalls int
	// 模拟并发首写：Create 前另一请求已落行，当前请求撞唯一索引
	conflictOnCreate *model.LessonProgress
}

func newFakeProgressStore() *fakeProgressStore {
	return &fakeProgressStore{rows: map[string]*model.LessonProgress{}, nextID: 1}
}

func progressKey(userID, lessonID uint) string {
	return fmt.Sprintf("%d/%d", userID, lessonID)
}

func (s *fakeProgressStore) FindByUserAndLesson(userID, lessonID uint) (*model.LessonProgress, error) {
	row, ok := s.rows[progressKey(userID, lessonID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return row, nil
}

func (s *fakeProgressStore) Create(progress *model.LessonProgress) error {
	if s.conflictOnCreate != nil {
		winner := s.conflictOnCreate
		s.conflictOnCreate = nil
		winner.ID = s.nextID
		s.nextID++
		s.rows[progressKey(winner.UserID, winner.LessonID)] = winner
		return gorm.ErrDuplicatedKey
	}
	progress.ID = s.nextID
	s.nextID++
	s.rows[progressKey(progress.UserID, progress.LessonID)] = progress
	return nil
}

func (s *fakeProgressStore) Save(progress *model.LessonProgress) error {
	s.saveCalls++
	s.rows[progressKey(progress.UserID, progress.LessonID)] = progress
	return nil
}

func (s *fakeProgressStore) ListByUserAndCourse(userID, courseID uint) ([]model.LessonProgress, error) {
	var out []model.LessonProgress
	for _, row := range s.rows {
		if row.UserID == userID && row.CourseID == courseID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (s *fakeProgressStore) CountCompleted(userID, courseID uint) (int64, error) {
	var n int64
	for _, row := range s.rows {
		if row.UserID == userID && row.CourseID == courseID && row.IsCompleted {
			n++
		}
	}
	return n, nil
}

type fakeQuizStore struct {
	quizzes  map[uint]*model.Quiz
	attempts []model.QuizAttempt
	nextID   uint
}

func newFakeQuizStore() *fakeQuizStore {
	return &fakeQuizStore{quizzes: map[uint]*model.Quiz{}, nextID: 1}
}

func (s *fakeQuizStore) add(q *model.Quiz) *model.Quiz {
	s.quizzes[q.ID] = q
	return q
}

func (s *fakeQuizStore) FindByID(id uint) (*model.Quiz, error) {
	q, ok := s.quizzes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return q, nil
}

func (s *fakeQuizStore) FindByCourse(courseID uint) (*model.Quiz, error) {
	for _, q := range s.quizzes {
		if q.CourseID == courseID {
			return q, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeQuizStore) CreateWithQuestions(quiz *model.Quiz, questions []model.QuizQuestion) error {
	if _, err := s.FindByCourse(quiz.CourseID); err == nil {
		return gorm.ErrDuplicatedKey
	}
	quiz.ID = s.nextID
	s.nextID++
	for i := range questions {
		questions[i].ID = s.nextID
		s.nextID++
		questions[i].QuizID = quiz.ID
	}
	quiz.Questions = questions
	s.quizzes[quiz.ID] = quiz
	return nil
}

func (s *fakeQuizStore) Delete(id uint) error {
	if _, ok := s.quizzes[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(s.quizzes, id)
	return nil
}

func (s *fakeQuizStore) CreateAttempt(attempt *model.QuizAttempt) error {
	attempt.ID = s.nextID
	s.nextID++
	s.attempts = append(s.attempts, *attempt)
	return nil
}

func (s *fakeQuizStore) ListAttempts(userID, quizID uint) ([]model.QuizAttempt, error) {
	var out []model.QuizAttempt
	for _, a := range s.attempts {
		if a.UserID == userID && a.QuizID == quizID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeQuizStore) HasPassedAttempt(userID, quizID uint) (bool, error) {
	for _, a := range s.attempts {
		if a.UserID == userID && a.QuizID == quizID && a.IsPassed {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeQuizStore) BestScore(userID, quizID uint) (int, error) {
	best := 0
	for _, a := range s.attempts {
		if a.UserID == userID && a.QuizID == quizID && a.Score > best {
			best = a.Score
		}
	}
	return best, nil
}

type fakeCertificateStore struct {
	certs  map[uint]*model.Certificate
	nextID uint
	// 注入并发竞争：Create 返回唯一键冲突前先落一条赢家记录
	duplicateOnCreate bool
}

func newFakeCertificateStore() *fakeCertificateStore {
	return &fakeCertificateStore{certs: map[uint]*model.Certificate{}, nextID: 1}
}

func (s *fakeCertificateStore) Create(cert *model.Certificate) error {
	for _, c := range s.certs {
		if c.UserID == cert.UserID && c.CourseID == cert.CourseID {
			return gorm.ErrDuplicatedKey
		}
	}
	if s.duplicateOnCreate {
		winner := *cert
		winner.ID = s.nextID
		winner.CertificateNumber = "CERT-WINNER"
		s.nextID++
		s.certs[winner.ID] = &winner
		return gorm.ErrDuplicatedKey
	}
	cert.ID = s.nextID
	s.nextID++
	s.certs[cert.ID] = cert
	return nil
}

func (s *fakeCertificateStore) FindByUserAndCourse(userID, courseID uint) (*model.Certificate, error) {
	for _, c := range s.certs {
		if c.UserID == userID && c.CourseID == courseID {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeCertificateStore) FindByID(id uint) (*model.Certificate, error) {
	c, ok := s.certs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (s *fakeCertificateStore) FindByNumber(number string) (*model.Certificate, error) {
	for _, c := range s.certs {
		if c.CertificateNumber == number {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeCertificateStore) ListByUser(userID uint) ([]model.Certificate, error) {
	var out []model.Certificate
	for _, c := range s.certs {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *fakeCertificateStore) ListPendingRender(limit int) ([]model.Certificate, error) {
	var out []model.Certificate
	for _, c := range s.certs {
		if c.PDFRenderedAt == nil {
			out = append(out, *c)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeCertificateStore) MarkRendered(certID uint, pdfURL string, renderedAt time.Time) error {
	c, ok := s.certs[certID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.PDFURL = pdfURL
	t := renderedAt
	c.PDFRenderedAt = &t
	return nil
}

type fakeUserStore struct {
	users map[uint]*model.User
}

func (s *fakeUserStore) FindByID(id uint) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

type fakeCourseStore struct {
	courses map[uint]*model.Course
}

func (s *fakeCourseStore) FindByID(id uint) (*model.Course, error) {
	c, ok := s.courses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

type fakeBlobStore struct {
	objects map[string][]byte
	// 注入存储故障，验证渲染失败不影响签发
	failUploads bool
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}}
}

func (s *fakeBlobStore) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	if s.failUploads {
		return "", errors.New("storage unavailable")
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	s.objects[filename] = data
	return "/uploads/" + filename, nil
}

func (s *fakeBlobStore) Open(ctx context.Context, filename string) (io.ReadCloser, error) {
	data, ok := s.objects[filename]
	if !ok {
		return nil, errors.New("object not found: " + filename)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type fakeProgressCache struct {
	entries map[string]string
	dels    []string
}

func newFakeProgressCache() *fakeProgressCache {
	return &fakeProgressCache{entries: map[string]string{}}
}

func (c *fakeProgressCache) Get(ctx context.Context, key string) (string, error) {
	v, ok := c.entries[key]
	if !ok {
		return "", errors.New("cache miss")
	}
	return v, nil
}

func (c *fakeProgressCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.entries[key] = value
	return nil
}

func (c *fakeProgressCache) Del(ctx context.Context, key string) error {
	delete(c.entries, key)
	c.dels = append(c.dels, key)
	return nil
}

// ---------------- assembled engine for scenario tests ----------------

type testEngine struct {
	lessons     *fakeLessonStore
	progress    *fakeProgressStore
	quizzes     *fakeQuizStore
	certs       *fakeCertificateStore
	blobs       *fakeBlobStore
	users       *fakeUserStore
	courses     *fakeCourseStore
	cache       *fakeProgressCache
	cfg         *config.Config
	progressSvc *ProgressService
	completion  *CompletionService
	quizSvc     *QuizService
	certSvc     *CertificateService
}

func newTestEngine() *testEngine {
	e := &testEngine{
		lessons:  newFakeLessonStore(),
		progress: newFakeProgressStore(),
		quizzes:  newFakeQuizStore(),
		certs:    newFakeCertificateStore(),
		blobs:    newFakeBlobStore(),
		users: &fakeUserStore{users: map[uint]*model.User{
			1: {BaseModel: model.BaseModel{ID: 1}, Name: "Ada Lovelace", Email: "ada@example.com", Role: model.Student},
		}},
		courses: &fakeCourseStore{courses: map[uint]*model.Course{
			10: {BaseModel: model.BaseModel{ID: 10}, Title: "Go基础", Category: "编程", Published: true},
		}},
		cfg: &config.Config{
			Certificate: config.CertificateConfig{
				IssuerName:           "LMS Academy",
				RenderTimeoutSeconds: 5,
				RetryIntervalMinutes: 1,
			},
			Video: config.VideoConfig{
				ProbeTimeoutSeconds:    5,
				DefaultDurationMinutes: 30,
			},
		},
	}

	e.certSvc = NewCertificateService(e.certs, e.users, e.courses, e.blobs, e.cfg)
	e.completion = NewCompletionService(e.lessons, e.progress, e.quizzes, e.certSvc, nil)
	e.cache = newFakeProgressCache()
	e.completion.Cache = e.cache
	e.progressSvc = NewProgressService(e.progress, e.lessons, e.completion)
	e.quizSvc = NewQuizService(e.quizzes, e.courses, e.completion, noopRecalc{})
	return e
}

type noopRecalc struct{}

func (noopRecalc) RecalculateCourseDuration(courseID uint) error { return nil }
