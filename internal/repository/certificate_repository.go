package repository

import (
	"time"

	"lms_backend/internal/model"

	"gorm.io/gorm"
)

type CertificateRepository struct {
	DB *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{DB: db}
}

// Create inserts a certificate row. When the (user, course) pair already
// exists the unique index rejects the insert and gorm reports
// ErrDuplicatedKey; callers translate that into the fetch-existing path.
func (r *CertificateRepository) Create(cert *model.Certificate) error {
	return r.DB.Create(cert).Error
}

func (r *CertificateRepository) FindByUserAndCourse(userID, courseID uint) (*model.Certificate, error) {
	var cert model.Certificate
	err := r.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&cert).Error
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *CertificateRepository) FindByID(id uint) (*model.Certificate, error) {
	var cert model.Certificate
	err := r.DB.First(&cert, id).Error
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *CertificateRepository) FindByNumber(number string) (*model.Certificate, error) {
	var cert model.Certificate
	err := r.DB.Where("certificate_number = ?", number).First(&cert).Error
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *CertificateRepository) ListByUser(userID uint) ([]model.Certificate, error) {
	var certs []model.Certificate
	err := r.DB.Where("user_id = ?", userID).Order("id DESC").Find(&certs).Error
	return certs, err
}

// ListPendingRender returns certificates whose PDF never rendered,
// picked up by the background retry ticker.
func (r *CertificateRepository) ListPendingRender(limit int) ([]model.Certificate, error) {
	var certs []model.Certificate
	err := r.DB.Where("pdf_rendered_at IS NULL").Limit(limit).Find(&certs).Error
	return certs, err
}

func (r *CertificateRepository) MarkRendered(certID uint, pdfURL string, renderedAt time.Time) error {
	return r.DB.Model(&model.Certificate{}).Where("id = ?", certID).
		Updates(map[string]interface{}{
			"pdf_url":         pdfURL,
			"pdf_rendered_at": renderedAt,
		}).Error
}
