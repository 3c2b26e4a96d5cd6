package util

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUserNotFound         = errors.New("用户不存在")
	ErrEmailRegistered      = errors.New("该邮箱已被注册")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrCourseNotFound       = errors.New("course not found")
	ErrCourseNotPublished   = errors.New("course not published")
	ErrLessonNotFound       = errors.New("lesson not found")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrQuizNotFound         = errors.New("no quiz found for this lesson")
	ErrNotEnrolled          = errors.New("not enrolled in this course")
	ErrAlreadyEnrolled      = errors.New("already enrolled in this course")
	ErrSubmitInProgress     = errors.New("another submission for this lesson is in progress")
	ErrCourseNotCompleted   = errors.New("course not completed yet")
	ErrCertificateIssued    = errors.New("certificate already issued for this enrollment")
	ErrCertificateNotFound  = errors.New("certificate not found")
	ErrEnrollmentNotFound   = errors.New("enrollment not found")
	ErrMissingAnswerPayload = errors.New("answers payload is required")
)

// QuizLockedError 冷却期内的提交被拒绝，携带解锁时间用于提示
type QuizLockedError struct {
	Until time.Time
}

func (e *QuizLockedError) Error() string {
	return "locked until " + e.Until.Format(TimeFormat)
}

// MaxAttemptsError 本次提交恰好耗尽重试次数并触发锁定
type MaxAttemptsError struct {
	RetryAfter time.Duration
}

func (e *MaxAttemptsError) Error() string {
	return fmt.Sprintf("maximum attempts reached, retry after %d hours", int(e.RetryAfter.Hours()))
}
