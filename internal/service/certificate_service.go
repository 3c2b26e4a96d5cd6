package service

import (
	"bytes"
	"context"
	"eco_mentor_backend/internal/config"
	"eco_mentor_backend/internal/model"
	"eco_mentor_backend/internal/repository"
	"eco_mentor_backend/internal/util"
	"eco_mentor_backend/pkg/logger"
	"eco_mentor_backend/pkg/monitoring"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Minter 证书上链协作方。铸造失败不影响证书本身的签发。
type Minter interface {
	Mint(ctx context.Context, cert *model.Certificate) (string, error)
}

// noopMinter 未启用上链时的空实现
type noopMinter struct{}

func (noopMinter) Mint(ctx context.Context, cert *model.Certificate) (string, error) {
	return "", nil
}

// httpMinter 调用协作方 HTTP 接口铸造，返回交易哈希
type httpMinter struct {
	endpoint string
	client   *http.Client
}

func (m *httpMinter) Mint(ctx context.Context, cert *model.Certificate) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"certificateId": cert.ID,
		"serialNumber":  cert.SerialNumber,
		"verifyCode":    cert.VerifyCode,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint+"/mint", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("minter returned status %d", resp.StatusCode)
	}

	var out struct {
		TxHash string `json:"txHash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.TxHash, nil
}

func NewMinter(cfg *config.BlockchainConfig) Minter {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return noopMinter{}
	}
	return &httpMinter{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type CertificateService struct {
	CertRepo       *repository.CertificateRepository
	EnrollmentRepo *repository.EnrollmentRepository
	CourseRepo     *repository.CourseRepository
	UserRepo       *repository.UserRepository
	Storage        *StorageService
	Minter         Minter
	Cfg            *config.Config
}

func NewCertificateService(
	certRepo *repository.CertificateRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	courseRepo *repository.CourseRepository,
	userRepo *repository.UserRepository,
	storage *StorageService,
	minter Minter,
	cfg *config.Config,
) *CertificateService {
	return &CertificateService{
		CertRepo:       certRepo,
		EnrollmentRepo: enrollmentRepo,
		CourseRepo:     courseRepo,
		UserRepo:       userRepo,
		Storage:        storage,
		Minter:         minter,
		Cfg:            cfg,
	}
}

// IssueByAdmin 管理员手动给已完成的报名签发证书
func (s *CertificateService) IssueByAdmin(ctx context.Context, adminID, enrollmentID uint) (*model.Certificate, error) {
	enrollment, err := s.EnrollmentRepo.FindByID(enrollmentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrEnrollmentNotFound
		}
		return nil, err
	}
	return s.issue(ctx, enrollment, adminID, "manual")
}

// ProcessAutoIssuance 定时扫描：已完成且课程开启自动签发、尚无证书的报名
func (s *CertificateService) ProcessAutoIssuance(ctx context.Context) {
	enrollments, err := s.EnrollmentRepo.ListCompletedForAutoIssue(100)
	if err != nil {
		logger.Log.Error("auto issuance scan failed", zap.Error(err))
		return
	}

	for i := range enrollments {
		if _, err := s.issue(ctx, &enrollments[i], 0, "auto"); err != nil {
			logger.Log.Error("auto certificate issuance failed",
				zap.Uint("enrollmentId", enrollments[i].ID),
				zap.Error(err))
		}
	}
}

func (s *CertificateService) issue(ctx context.Context, enrollment *model.Enrollment, issuedBy uint, mode string) (*model.Certificate, error) {
	if !enrollment.Completed {
		return nil, util.ErrCourseNotCompleted
	}

	exists, err := s.CertRepo.ExistsForEnrollment(enrollment.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, util.ErrCertificateIssued
	}

	now := time.Now()
	cert := &model.Certificate{
		UserID:       enrollment.UserID,
		CourseID:     enrollment.CourseID,
		EnrollmentID: enrollment.ID,
		SerialNumber: fmt.Sprintf("ECO-%s-%d", now.Format("20060102"), enrollment.ID),
		VerifyCode:   strings.ReplaceAll(uuid.New().String(), "-", ""),
		IssuedBy:     issuedBy,
		IssuedAt:     now,
	}

	if url, err := s.writeManifest(ctx, cert, enrollment); err != nil {
		logger.Log.Warn("certificate manifest upload failed", zap.Error(err))
	} else {
		cert.AssetURL = url
	}

	if err := s.CertRepo.Create(cert); err != nil {
		if repository.IsDuplicateKeyErr(err) {
			return nil, util.ErrCertificateIssued
		}
		return nil, err
	}

	// 铸造是尽力而为：失败只记日志，回执后补
	if txHash, err := s.Minter.Mint(ctx, cert); err != nil {
		logger.Log.Warn("certificate mint failed",
			zap.String("certificateId", cert.ID),
			zap.Error(err))
	} else if txHash != "" {
		mintedAt := time.Now()
		cert.MintTxHash = txHash
		cert.MintedAt = &mintedAt
		if err := s.CertRepo.Update(cert); err != nil {
			logger.Log.Warn("certificate mint receipt save failed", zap.Error(err))
		}
	}

	monitoring.CertificateIssuedCounter.WithLabelValues(mode).Inc()
	return cert, nil
}

// writeManifest 证书清单文件，随证书一起归档
func (s *CertificateService) writeManifest(ctx context.Context, cert *model.Certificate, enrollment *model.Enrollment) (string, error) {
	manifest := map[string]interface{}{
		"serialNumber": cert.SerialNumber,
		"verifyCode":   cert.VerifyCode,
		"userId":       enrollment.UserID,
		"courseId":     enrollment.CourseID,
		"completedAt":  enrollment.CompletedAt,
		"issuedAt":     cert.IssuedAt.Format(util.TimeFormat),
	}

	if user, err := s.UserRepo.FindByID(enrollment.UserID); err == nil {
		manifest["userName"] = user.Name
	}
	if course, err := s.CourseRepo.FindByID(enrollment.CourseID); err == nil {
		manifest["courseTitle"] = course.Title
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("certificates/%s.json", cert.SerialNumber)
	return s.Storage.Upload(ctx, filename, bytes.NewReader(data), int64(len(data)), "application/json")
}

type CertificateVerification struct {
	Valid        bool   `json:"valid"`
	SerialNumber string `json:"serialNumber,omitempty"`
	UserName     string `json:"userName,omitempty"`
	CourseTitle  string `json:"courseTitle,omitempty"`
	IssuedAt     string `json:"issuedAt,omitempty"`
	MintTxHash   string `json:"mintTxHash,omitempty"`
}

// Verify 公开核验接口：按核验码查证书，不要求登录
func (s *CertificateService) Verify(code string) (*CertificateVerification, error) {
	cert, err := s.CertRepo.FindByVerifyCode(code)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrCertificateNotFound
		}
		return nil, err
	}

	out := &CertificateVerification{
		Valid:        true,
		SerialNumber: cert.SerialNumber,
		IssuedAt:     cert.IssuedAt.Format(util.TimeFormat),
		MintTxHash:   cert.MintTxHash,
	}
	if user, err := s.UserRepo.FindByID(cert.UserID); err == nil {
		out.UserName = user.Name
	}
	if course, err := s.CourseRepo.FindByID(cert.CourseID); err == nil {
		out.CourseTitle = course.Title
	}
	return out, nil
}

func (s *CertificateService) ListByUser(userID uint) ([]model.Certificate, error) {
	return s.CertRepo.ListByUser(userID)
}
