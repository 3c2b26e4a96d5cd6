package service

import (
	"context"
	"eco_mentor_backend/internal/config"
	"eco_mentor_backend/internal/model"
	"eco_mentor_backend/internal/repository"
	"eco_mentor_backend/internal/util"
	"eco_mentor_backend/pkg/logger"
	"eco_mentor_backend/pkg/monitoring"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type QuizService struct {
	QuestionRepo   *repository.QuestionRepository
	AttemptRepo    *repository.AttemptRepository
	ProgressRepo   *repository.ProgressRepository
	EnrollmentRepo *repository.EnrollmentRepository
	CourseRepo     *repository.CourseRepository
	Redis          *redis.Client

	// 测验策略支持热更新，读写都走快照
	policyMu sync.RWMutex
	policy   config.QuizConfig
}

func NewQuizService(
	questionRepo *repository.QuestionRepository,
	attemptRepo *repository.AttemptRepository,
	progressRepo *repository.ProgressRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	courseRepo *repository.CourseRepository,
	cfg *config.Config,
	rdb *redis.Client,
) *QuizService {
	return &QuizService{
		QuestionRepo:   questionRepo,
		AttemptRepo:    attemptRepo,
		ProgressRepo:   progressRepo,
		EnrollmentRepo: enrollmentRepo,
		CourseRepo:     courseRepo,
		Redis:          rdb,
		policy:         cfg.Quiz,
	}
}

// ApplyPolicy 配置热更新入口，替换整个策略快照
func (s *QuizService) ApplyPolicy(policy config.QuizConfig) {
	s.policyMu.Lock()
	s.policy = policy
	s.policyMu.Unlock()
}

func (s *QuizService) quizPolicy() config.QuizConfig {
	s.policyMu.RLock()
	defer s.policyMu.RUnlock()
	return s.policy
}

type QuizSubmission struct {
	Answers map[uint]string `json:"answers"` // questionID -> 选项键
}

type QuizResult struct {
	Score    int  `json:"score"`
	IsPassed bool `json:"isPassed"`
}

// ScoreAnswers 纯打分：score = round(100 * 答对数 / 题目数)。
// 未作答的题按答错计。调用方必须保证题目数大于0。
func ScoreAnswers(questions []model.QuizQuestion, answers map[uint]string, passThreshold int) (int, bool) {
	correct := 0
	for _, q := range questions {
		ans, ok := answers[q.ID]
		if !ok {
			continue
		}
		if strings.TrimSpace(strings.ToLower(ans)) == strings.TrimSpace(strings.ToLower(q.Answer)) {
			correct++
		}
	}

	score := (100*correct + len(questions)/2) / len(questions)
	return score, score >= passThreshold
}

// gateDecision 尝试策略状态机的判定结果
type gateDecision struct {
	locked     bool
	lockUntil  time.Time
	stampID    uint // 非0表示本次判定触发锁定，需要把截止时间盖到这条尝试上
	stampUntil time.Time
}

// evaluateGate 每个 (用户, 课时) 的状态机：Open 可答题，Locked 冷却中。
// attempts 为最近的至多 MaxAttempts 次尝试（倒序）。
func (s *QuizService) evaluateGate(attempts []model.QuizAttempt, now time.Time) gateDecision {
	policy := s.quizPolicy()
	maxAttempts := policy.MaxAttempts
	cooldown := time.Duration(policy.CooldownHours) * time.Hour

	if len(attempts) == 0 {
		return gateDecision{}
	}

	// Locked：最近一次尝试带有未过期的锁定时间
	latest := attempts[0]
	if latest.LockedUntil != nil && latest.LockedUntil.After(now) {
		return gateDecision{locked: true, lockUntil: *latest.LockedUntil}
	}

	// Locked -> Open：最近一次尝试上的锁定已过期，冷却视为已服满，
	// 不会因同一批失败尝试再次触发锁定
	if latest.LockedUntil != nil {
		return gateDecision{}
	}

	// Open -> Locked：计数窗口内攒满尝试且全部失败
	if len(attempts) >= maxAttempts {
		anyPassed := false
		for _, a := range attempts {
			if a.IsPassed {
				anyPassed = true
				break
			}
		}
		if !anyPassed {
			until := now.Add(cooldown)
			return gateDecision{
				locked:     true,
				lockUntil:  until,
				stampID:    latest.ID,
				stampUntil: until,
			}
		}
	}

	return gateDecision{}
}

// SubmitQuiz 提交流程：策略检查 -> 打分 -> 台账追加 -> 通过则聚合进度。
// 同一 (用户, 课时) 的并发提交先用 Redis 锁串行化，唯一索引冲突重试兜底。
func (s *QuizService) SubmitQuiz(ctx context.Context, userID, lessonID uint, submission QuizSubmission) (*QuizResult, error) {
	if submission.Answers == nil {
		return nil, util.ErrMissingAnswerPayload
	}

	lesson, err := s.CourseRepo.FindLessonByID(lessonID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}

	enrollment, err := s.EnrollmentRepo.FindByUserAndCourse(userID, lesson.CourseID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrNotEnrolled
		}
		return nil, err
	}

	questions, err := s.QuestionRepo.ListByLesson(lessonID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, util.ErrQuizNotFound
	}

	unlock, err := s.acquireSubmitLock(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := time.Now()
	policy := s.quizPolicy()
	attempts, err := s.AttemptRepo.RecentByUserAndLesson(userID, lessonID, policy.MaxAttempts)
	if err != nil {
		return nil, err
	}

	decision := s.evaluateGate(attempts, now)
	if decision.locked {
		if decision.stampID != 0 {
			// 耗尽重试即触发锁定，截止时间盖到最后一次尝试上。
			// 这是被拒绝的请求里唯一会发生的写入。
			if err := s.AttemptRepo.StampLockout(decision.stampID, decision.stampUntil); err != nil {
				return nil, err
			}
			monitoring.QuizSubmissionCounter.WithLabelValues("locked").Inc()
			return nil, &util.MaxAttemptsError{RetryAfter: time.Duration(policy.CooldownHours) * time.Hour}
		}
		monitoring.QuizSubmissionCounter.WithLabelValues("locked").Inc()
		return nil, &util.QuizLockedError{Until: decision.lockUntil}
	}

	score, passed := ScoreAnswers(questions, submission.Answers, policy.PassThreshold)

	// 策略放行后台账追加无条件执行，失败的尝试同样入账
	if err := s.appendAttempt(userID, lessonID, lesson.CourseID, score, passed); err != nil {
		return nil, err
	}

	if passed {
		if err := s.aggregateProgress(userID, lesson, enrollment, score, now); err != nil {
			return nil, err
		}
		monitoring.QuizSubmissionCounter.WithLabelValues("passed").Inc()
	} else {
		monitoring.QuizSubmissionCounter.WithLabelValues("failed").Inc()
	}

	return &QuizResult{Score: score, IsPassed: passed}, nil
}

// appendAttempt 按下一个序号追加台账，唯一索引冲突时重读序号再试
func (s *QuizService) appendAttempt(userID, lessonID, courseID uint, score int, passed bool) error {
	const maxRetries = 3

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		max, err := s.AttemptRepo.MaxAttemptNumber(userID, lessonID)
		if err != nil {
			return err
		}

		attempt := &model.QuizAttempt{
			UserID:        userID,
			LessonID:      lessonID,
			CourseID:      courseID,
			Score:         score,
			IsPassed:      passed,
			AttemptNumber: max + 1,
		}

		err = s.AttemptRepo.Create(attempt)
		if err == nil {
			return nil
		}
		if !repository.IsDuplicateKeyErr(err) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// aggregateProgress 通过后全量重算：不做增量计数，换取强一致
func (s *QuizService) aggregateProgress(userID uint, lesson *model.Lesson, enrollment *model.Enrollment, score int, now time.Time) error {
	if err := s.upsertProgressRecord(userID, lesson, score, now); err != nil {
		return err
	}

	totalLessons, err := s.CourseRepo.CountLessonsByCourse(lesson.CourseID)
	if err != nil {
		return err
	}
	if totalLessons == 0 {
		// 课程没有任何课时属于作者侧数据缺口，进度保持不动
		logger.Log.Warn("course has no lessons, skip progress aggregation",
			zap.Uint("courseId", lesson.CourseID))
		return nil
	}

	passedCount, err := s.ProgressRepo.CountPassedByUserAndCourse(userID, lesson.CourseID)
	if err != nil {
		return err
	}

	progress := int((100*passedCount + totalLessons/2) / totalLessons)
	if progress > 100 {
		progress = 100
	}

	return s.EnrollmentRepo.UpdateProgress(enrollment.ID, progress, progress == 100)
}

// upsertProgressRecord 每课时一行，取最好成绩：已通过的记录不会被降级
func (s *QuizService) upsertProgressRecord(userID uint, lesson *model.Lesson, score int, now time.Time) error {
	record, err := s.ProgressRepo.FindByUserAndLesson(userID, lesson.ID)
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return err
		}
		return s.ProgressRepo.Create(&model.ProgressRecord{
			UserID:      userID,
			LessonID:    lesson.ID,
			CourseID:    lesson.CourseID,
			Score:       score,
			IsPassed:    true,
			CompletedAt: now,
		})
	}

	if score <= record.Score && record.IsPassed {
		return nil
	}
	if score > record.Score {
		record.Score = score
	}
	record.IsPassed = true
	record.CompletedAt = now
	return s.ProgressRepo.Update(record)
}

const submitLockKeyPrefix = "quiz_submit_lock:"

// acquireSubmitLock 每个 (用户, 课时) 一把 Redis 锁。未配置 Redis 时退化为
// 仅靠尝试序号唯一索引兜底（单实例部署下足够）。
func (s *QuizService) acquireSubmitLock(ctx context.Context, userID, lessonID uint) (func(), error) {
	if s.Redis == nil {
		return func() {}, nil
	}

	key := fmt.Sprintf("%s%d:%d", submitLockKeyPrefix, userID, lessonID)
	ok, err := s.Redis.SetNX(ctx, key, 1, 10*time.Second).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrSubmitInProgress
	}

	return func() {
		s.Redis.Del(context.Background(), key)
	}, nil
}

type StudentQuizQuestion struct {
	ID      uint            `json:"id"`
	Prompt  string          `json:"prompt"`
	Options json.RawMessage `json:"options"`
	Order   int             `json:"order"`
}

// GetLessonQuiz 学生端题目列表，不含答案键
func (s *QuizService) GetLessonQuiz(userID, lessonID uint) ([]StudentQuizQuestion, error) {
	lesson, err := s.CourseRepo.FindLessonByID(lessonID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}

	if _, err := s.EnrollmentRepo.FindByUserAndCourse(userID, lesson.CourseID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrNotEnrolled
		}
		return nil, err
	}

	questions, err := s.QuestionRepo.ListByLesson(lessonID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, util.ErrQuizNotFound
	}

	out := make([]StudentQuizQuestion, len(questions))
	for i, q := range questions {
		out[i] = StudentQuizQuestion{
			ID:      q.ID,
			Prompt:  q.Prompt,
			Options: q.Options,
			Order:   q.Order,
		}
	}
	return out, nil
}

// ListAttempts 学生查看自己的答题台账
func (s *QuizService) ListAttempts(userID, lessonID uint) ([]model.QuizAttempt, error) {
	return s.AttemptRepo.ListByUserAndLesson(userID, lessonID)
}
