package service

import (
	"eco_mentor_backend/internal/model"
	"eco_mentor_backend/internal/repository"
	"time"
)

type DashboardService struct {
	UserRepo       *repository.UserRepository
	CourseRepo     *repository.CourseRepository
	EnrollmentRepo *repository.EnrollmentRepository
	AttemptRepo    *repository.AttemptRepository
	CertRepo       *repository.CertificateRepository
}

func NewDashboardService(
	userRepo *repository.UserRepository,
	courseRepo *repository.CourseRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	attemptRepo *repository.AttemptRepository,
	certRepo *repository.CertificateRepository,
) *DashboardService {
	return &DashboardService{
		UserRepo:       userRepo,
		CourseRepo:     courseRepo,
		EnrollmentRepo: enrollmentRepo,
		AttemptRepo:    attemptRepo,
		CertRepo:       certRepo,
	}
}

type StudentDashboard struct {
	Enrollments      []model.Enrollment  `json:"enrollments"`
	CompletedCourses int                 `json:"completedCourses"`
	RecentAttempts   []model.QuizAttempt `json:"recentAttempts"`
	Certificates     []model.Certificate `json:"certificates"`
}

func (s *DashboardService) StudentOverview(userID uint) (*StudentDashboard, error) {
	enrollments, err := s.EnrollmentRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	completed := 0
	for _, e := range enrollments {
		if e.Completed {
			completed++
		}
	}

	attempts, err := s.AttemptRepo.RecentByUser(userID, 10)
	if err != nil {
		return nil, err
	}

	certs, err := s.CertRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	return &StudentDashboard{
		Enrollments:      enrollments,
		CompletedCourses: completed,
		RecentAttempts:   attempts,
		Certificates:     certs,
	}, nil
}

type AdminOverview struct {
	TotalStudents        int64 `json:"totalStudents"`
	TotalInstructors     int64 `json:"totalInstructors"`
	TotalCourses         int64 `json:"totalCourses"`
	PublishedCourses     int64 `json:"publishedCourses"`
	TotalEnrollments     int64 `json:"totalEnrollments"`
	CompletedEnrollments int64 `json:"completedEnrollments"`
	TotalAttempts        int64 `json:"totalAttempts"`
	PassedThisWeek       int64 `json:"passedThisWeek"`
	TotalCertificates    int64 `json:"totalCertificates"`
}

func (s *DashboardService) AdminStats() (*AdminOverview, error) {
	out := &AdminOverview{}
	var err error

	if out.TotalStudents, err = s.UserRepo.CountByRole(model.Student); err != nil {
		return nil, err
	}
	if out.TotalInstructors, err = s.UserRepo.CountByRole(model.Instructor); err != nil {
		return nil, err
	}
	if out.TotalCourses, err = s.CourseRepo.Count(); err != nil {
		return nil, err
	}
	if out.PublishedCourses, err = s.CourseRepo.CountByStatus(model.CoursePublished); err != nil {
		return nil, err
	}
	if out.TotalEnrollments, err = s.EnrollmentRepo.Count(); err != nil {
		return nil, err
	}
	if out.CompletedEnrollments, err = s.EnrollmentRepo.CountCompleted(); err != nil {
		return nil, err
	}
	if out.TotalAttempts, err = s.AttemptRepo.Count(); err != nil {
		return nil, err
	}
	if out.PassedThisWeek, err = s.AttemptRepo.CountPassedSince(time.Now().AddDate(0, 0, -7)); err != nil {
		return nil, err
	}
	if out.TotalCertificates, err = s.CertRepo.Count(); err != nil {
		return nil, err
	}

	return out, nil
}

type CourseStats struct {
	Enrollments int64 `json:"enrollments"`
	Completed   int64 `json:"completed"`
	Attempts    int64 `json:"attempts"`
}

// CourseOverview 讲师侧单课程统计
func (s *DashboardService) CourseOverview(courseID uint) (*CourseStats, error) {
	out := &CourseStats{}
	var err error

	if out.Enrollments, err = s.EnrollmentRepo.CountByCourse(courseID); err != nil {
		return nil, err
	}
	if out.Completed, err = s.EnrollmentRepo.CountCompletedByCourse(courseID); err != nil {
		return nil, err
	}
	if out.Attempts, err = s.AttemptRepo.CountByCourse(courseID); err != nil {
		return nil, err
	}
	return out, nil
}
