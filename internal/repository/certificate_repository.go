package repository

import (
	"eco_mentor_backend/internal/model"

	"gorm.io/gorm"
)

type CertificateRepository struct {
	DB *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{DB: db}
}

func (r *CertificateRepository) Create(cert *model.Certificate) error {
	return r.DB.Create(cert).Error
}

func (r *CertificateRepository) Update(cert *model.Certificate) error {
	return r.DB.Save(cert).Error
}

func (r *CertificateRepository) FindByID(id string) (*model.Certificate, error) {
	var cert model.Certificate
	err := r.DB.Where("id = ?", id).First(&cert).Error
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *CertificateRepository) FindByVerifyCode(code string) (*model.Certificate, error) {
	var cert model.Certificate
	err := r.DB.Where("verify_code = ?", code).First(&cert).Error
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *CertificateRepository) ExistsForEnrollment(enrollmentID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Certificate{}).
		Where("enrollment_id = ?", enrollmentID).
		Count(&count).Error
	return count > 0, err
}

func (r *CertificateRepository) ListByUser(userID uint) ([]model.Certificate, error) {
	var certs []model.Certificate
	err := r.DB.Where("user_id = ?", userID).
		Order("issued_at DESC").
		Find(&certs).Error
	return certs, err
}

func (r *CertificateRepository) Count() (int64, error) {
	var count int64
	err := r.DB.Model(&model.Certificate{}).Count(&count).Error
	return count, err
}
