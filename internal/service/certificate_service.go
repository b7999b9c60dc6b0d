package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CertificateStore interface {
	Create(cert *model.Certificate) error
	FindByUserAndCourse(userID, courseID uint) (*model.Certificate, error)
	FindByID(id uint) (*model.Certificate, error)
	FindByNumber(number string) (*model.Certificate, error)
	ListByUser(userID uint) ([]model.Certificate, error)
	ListPendingRender(limit int) ([]model.Certificate, error)
	MarkRendered(certID uint, pdfURL string, renderedAt time.Time) error
}

type UserStore interface {
	FindByID(id uint) (*model.User, error)
}

type CourseStore interface {
	FindByID(id uint) (*model.Course, error)
}

// BlobStore abstracts PDF artifact persistence; StorageService satisfies
// it with local disk, MinIO or OSS behind it.
type BlobStore interface {
	Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error)
	Open(ctx context.Context, filename string) (io.ReadCloser, error)
}

// CertificateService issues certificates exactly once per
// (learner, course) pair and renders their PDF artifacts.
type CertificateService struct {
	Certs   CertificateStore
	Users   UserStore
	Courses CourseStore
	Blobs   BlobStore
	Config  *config.Config
}

func NewCertificateService(certs CertificateStore, users UserStore, courses CourseStore, blobs BlobStore, cfg *config.Config) *CertificateService {
	return &CertificateService{
		Certs:   certs,
		Users:   users,
		Courses: courses,
		Blobs:   blobs,
		Config:  cfg,
	}
}

// Issue returns the (learner, course) certificate, creating it when
// absent. Idempotent and race-safe: there is no application-level lock;
// when two triggers race, both insert and the loser's insert is rejected
// by the unique index, after which it reads the winner's row. The PDF is
// rendered after the row exists; render failure never unwinds issuance.
func (s *CertificateService) Issue(ctx context.Context, userID, courseID uint, quizID *uint) (*model.Certificate, error) {
	if existing, err := s.Certs.FindByUserAndCourse(userID, courseID); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cert := &model.Certificate{
		UserID:            userID,
		CourseID:          courseID,
		QuizID:            quizID,
		CertificateNumber: util.NewCertificateNumber(),
		IssuedAt:          time.Now(),
	}

	if err := s.Certs.Create(cert); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 并发签发竞争失败，读取赢家的记录
			return s.Certs.FindByUserAndCourse(userID, courseID)
		}
		return nil, err
	}

	monitoring.CertificatesIssued.Inc()
	logger.Log.Info("certificate issued",
		zap.Uint("userID", userID),
		zap.Uint("courseID", courseID),
		zap.String("number", cert.CertificateNumber))

	if err := s.renderAndStore(ctx, cert); err != nil {
		monitoring.CertificateRenderFailures.Inc()
		logger.Log.Error("certificate PDF render failed, will retry in background",
			zap.String("number", cert.CertificateNumber), zap.Error(err))
	}

	return cert, nil
}

// renderAndStore renders the PDF bounded by the configured timeout and
// uploads it. On success the row is marked rendered; otherwise the row
// stays pending and the retry ticker picks it up.
func (s *CertificateService) renderAndStore(ctx context.Context, cert *model.Certificate) error {
	timeout := time.Duration(s.Config.Certificate.RenderTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	user, err := s.Users.FindByID(cert.UserID)
	if err != nil {
		return fmt.Errorf("load learner: %w", err)
	}
	course, err := s.Courses.FindByID(cert.CourseID)
	if err != nil {
		return fmt.Errorf("load course: %w", err)
	}

	pdfBytes, err := RenderCertificatePDF(CertificateData{
		LearnerName:       user.Name,
		CourseTitle:       course.Title,
		CourseCategory:    course.Category,
		CertificateNumber: cert.CertificateNumber,
		IssuerName:        s.Config.Certificate.IssuerName,
		IssuedAt:          cert.IssuedAt,
	})
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	filename := certificateObjectName(cert.CertificateNumber)
	url, err := s.Blobs.Upload(ctx, filename, bytes.NewReader(pdfBytes), int64(len(pdfBytes)), util.MimePDF)
	if err != nil {
		return fmt.Errorf("store certificate PDF: %w", err)
	}

	now := time.Now()
	if err := s.Certs.MarkRendered(cert.ID, url, now); err != nil {
		return err
	}
	cert.PDFURL = url
	cert.PDFRenderedAt = &now
	return nil
}

// RetryPendingRenders re-renders certificates whose PDF never made it to
// storage. Called from the app's background ticker.
func (s *CertificateService) RetryPendingRenders(ctx context.Context) {
	pending, err := s.Certs.ListPendingRender(20)
	if err != nil {
		logger.Log.Error("list pending certificate renders failed", zap.Error(err))
		return
	}
	for i := range pending {
		if err := s.renderAndStore(ctx, &pending[i]); err != nil {
			monitoring.CertificateRenderFailures.Inc()
			logger.Log.Error("certificate PDF render retry failed",
				zap.String("number", pending[i].CertificateNumber), zap.Error(err))
		}
	}
}

// GetForUser fetches a certificate, restricting learners to their own.
func (s *CertificateService) GetForUser(certID, userID uint, role model.UserRole) (*model.Certificate, error) {
	cert, err := s.Certs.FindByID(certID)
	if err != nil {
		return nil, err
	}
	if cert.UserID != userID && role != model.Admin && role != model.Teacher {
		return nil, util.ErrPermissionDenied
	}
	return cert, nil
}

// OpenPDF streams the stored artifact. A certificate whose render is
// still pending gets one synchronous render attempt before failing.
func (s *CertificateService) OpenPDF(ctx context.Context, cert *model.Certificate) (io.ReadCloser, error) {
	if cert.PDFRenderedAt == nil {
		if err := s.renderAndStore(ctx, cert); err != nil {
			return nil, err
		}
	}
	return s.Blobs.Open(ctx, certificateObjectName(cert.CertificateNumber))
}

func (s *CertificateService) VerifyByNumber(number string) (*model.Certificate, error) {
	return s.Certs.FindByNumber(number)
}

func (s *CertificateService) ListForUser(userID uint) ([]model.Certificate, error) {
	return s.Certs.ListByUser(userID)
}

func certificateObjectName(number string) string {
	return "certificates/" + number + ".pdf"
}
