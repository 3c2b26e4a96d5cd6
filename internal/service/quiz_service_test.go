package service

import (
	"context"
	"eco_mentor_backend/internal/config"
	"eco_mentor_backend/internal/model"
	"eco_mentor_backend/internal/repository"
	"eco_mentor_backend/internal/util"
	"eco_mentor_backend/pkg/database"
	"eco_mentor_backend/pkg/logger"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	logger.Log = zap.NewNop()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func testQuizConfig() *config.Config {
	return &config.Config{
		Quiz: config.QuizConfig{
			PassThreshold: 70,
			MaxAttempts:   3,
			CooldownHours: 8,
		},
	}
}

type quizFixture struct {
	svc        *QuizService
	db         *gorm.DB
	user       *model.User
	course     *model.Course
	lessons    []model.Lesson
	enrollment *model.Enrollment
}

// newQuizFixture 建一门已发布课程并报名：每个课时带同样数量的题目，正确答案均为 "a"
func newQuizFixture(t *testing.T, lessonCount, questionsPerLesson int) *quizFixture {
	t.Helper()
	db := newTestDB(t)

	user := &model.User{Name: "学生甲", Email: "student@example.com", Password: "x", Role: model.Student}
	require.NoError(t, db.Create(user).Error)

	course := &model.Course{Title: "垃圾分类入门", Status: model.CoursePublished, AuthorID: 99}
	require.NoError(t, db.Create(course).Error)

	courseModule := &model.CourseModule{CourseID: course.ID, Title: "第一单元"}
	require.NoError(t, db.Create(courseModule).Error)

	var lessons []model.Lesson
	for i := 0; i < lessonCount; i++ {
		lesson := model.Lesson{
			ModuleID: courseModule.ID,
			CourseID: course.ID,
			Title:    fmt.Sprintf("课时%d", i+1),
			Order:    i,
		}
		require.NoError(t, db.Create(&lesson).Error)
		for j := 0; j < questionsPerLesson; j++ {
			q := model.QuizQuestion{
				LessonID: lesson.ID,
				CourseID: course.ID,
				Prompt:   fmt.Sprintf("问题%d", j+1),
				Options:  json.RawMessage(`{"a":"对","b":"错"}`),
				Answer:   "a",
				Order:    j,
			}
			require.NoError(t, db.Create(&q).Error)
		}
		lessons = append(lessons, lesson)
	}

	enrollment := &model.Enrollment{UserID: user.ID, CourseID: course.ID, EnrolledAt: time.Now()}
	require.NoError(t, db.Create(enrollment).Error)

	svc := NewQuizService(
		repository.NewQuestionRepository(db),
		repository.NewAttemptRepository(db),
		repository.NewProgressRepository(db),
		repository.NewEnrollmentRepository(db),
		repository.NewCourseRepository(db),
		testQuizConfig(),
		nil,
	)

	return &quizFixture{svc: svc, db: db, user: user, course: course, lessons: lessons, enrollment: enrollment}
}

// answersFor 前 correct 道题答对，其余答错
func (f *quizFixture) answersFor(t *testing.T, lessonID uint, correct int) map[uint]string {
	t.Helper()
	var questions []model.QuizQuestion
	require.NoError(t, f.db.Where("lesson_id = ?", lessonID).Order("`order` ASC").Find(&questions).Error)

	answers := make(map[uint]string, len(questions))
	for i, q := range questions {
		if i < correct {
			answers[q.ID] = "a"
		} else {
			answers[q.ID] = "b"
		}
	}
	return answers
}

func (f *quizFixture) submit(t *testing.T, lessonID uint, correct int) (*QuizResult, error) {
	t.Helper()
	return f.svc.SubmitQuiz(context.Background(), f.user.ID, lessonID, QuizSubmission{
		Answers: f.answersFor(t, lessonID, correct),
	})
}

func TestScoreAnswers(t *testing.T) {
	questions := make([]model.QuizQuestion, 3)
	for i := range questions {
		questions[i] = model.QuizQuestion{BaseModel: model.BaseModel{ID: uint(i + 1)}, Answer: "a"}
	}

	tests := []struct {
		name       string
		answers    map[uint]string
		wantScore  int
		wantPassed bool
	}{
		{"全对", map[uint]string{1: "a", 2: "a", 3: "a"}, 100, true},
		{"三分之二对", map[uint]string{1: "a", 2: "a", 3: "b"}, 67, false},
		{"三分之一对", map[uint]string{1: "a", 2: "b", 3: "b"}, 33, false},
		{"全错", map[uint]string{1: "b", 2: "b", 3: "b"}, 0, false},
		{"未作答按错计", map[uint]string{1: "a"}, 33, false},
		{"空提交", map[uint]string{}, 0, false},
		{"答案比对忽略大小写与空白", map[uint]string{1: " A ", 2: "a", 3: "a"}, 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, passed := ScoreAnswers(questions, tt.answers, 70)
			assert.Equal(t, tt.wantScore, score)
			assert.Equal(t, tt.wantPassed, passed)
		})
	}
}

func TestScoreAnswersPassBoundary(t *testing.T) {
	// 10题，及格线70：7对=70分过，6对=60分不过
	questions := make([]model.QuizQuestion, 10)
	answers := make(map[uint]string)
	for i := range questions {
		questions[i] = model.QuizQuestion{BaseModel: model.BaseModel{ID: uint(i + 1)}, Answer: "a"}
	}

	for i := 0; i < 7; i++ {
		answers[uint(i+1)] = "a"
	}
	score, passed := ScoreAnswers(questions, answers, 70)
	assert.Equal(t, 70, score)
	assert.True(t, passed)

	delete(answers, 7)
	score, passed = ScoreAnswers(questions, answers, 70)
	assert.Equal(t, 60, score)
	assert.False(t, passed)
}

func TestSubmitQuizRequiresAnswers(t *testing.T) {
	f := newQuizFixture(t, 1, 2)
	_, err := f.svc.SubmitQuiz(context.Background(), f.user.ID, f.lessons[0].ID, QuizSubmission{})
	assert.ErrorIs(t, err, util.ErrMissingAnswerPayload)
}

func TestSubmitQuizLessonWithoutQuestions(t *testing.T) {
	f := newQuizFixture(t, 1, 0)
	_, err := f.svc.SubmitQuiz(context.Background(), f.user.ID, f.lessons[0].ID, QuizSubmission{
		Answers: map[uint]string{},
	})
	assert.ErrorIs(t, err, util.ErrQuizNotFound)
}

func TestSubmitQuizUnknownLesson(t *testing.T) {
	f := newQuizFixture(t, 1, 2)
	_, err := f.svc.SubmitQuiz(context.Background(), f.user.ID, 9999, QuizSubmission{
		Answers: map[uint]string{},
	})
	assert.ErrorIs(t, err, util.ErrLessonNotFound)
}

func TestSubmitQuizNotEnrolled(t *testing.T) {
	f := newQuizFixture(t, 1, 2)

	other := &model.User{Name: "路人", Email: "other@example.com", Password: "x", Role: model.Student}
	require.NoError(t, f.db.Create(other).Error)

	_, err := f.svc.SubmitQuiz(context.Background(), other.ID, f.lessons[0].ID, QuizSubmission{
		Answers: map[uint]string{},
	})
	assert.ErrorIs(t, err, util.ErrNotEnrolled)
}

func TestAttemptNumbersAreSequential(t *testing.T) {
	f := newQuizFixture(t, 1, 4)
	lessonID := f.lessons[0].ID

	// 两次失败一次通过：序号必须是1、2、3
	for _, correct := range []int{1, 2, 4} {
		_, err := f.submit(t, lessonID, correct)
		require.NoError(t, err)
	}

	attempts, err := f.svc.ListAttempts(f.user.ID, lessonID)
	require.NoError(t, err)
	require.Len(t, attempts, 3)
	for i, a := range attempts {
		assert.Equal(t, i+1, a.AttemptNumber)
	}
	assert.False(t, attempts[0].IsPassed)
	assert.False(t, attempts[1].IsPassed)
	assert.True(t, attempts[2].IsPassed)
}

func TestLockoutAfterMaxFailedAttempts(t *testing.T) {
	f := newQuizFixture(t, 1, 4)
	lessonID := f.lessons[0].ID

	// 前三次失败本身是允许的
	for i := 0; i < 3; i++ {
		result, err := f.submit(t, lessonID, 0)
		require.NoError(t, err)
		assert.False(t, result.IsPassed)
	}

	// 第四次触发锁定
	before := time.Now()
	_, err := f.submit(t, lessonID, 4)
	var maxErr *util.MaxAttemptsError
	require.True(t, errors.As(err, &maxErr))
	assert.Equal(t, 8*time.Hour, maxErr.RetryAfter)

	// 锁定截止时间盖在最后一次尝试上
	attempts, err := f.svc.ListAttempts(f.user.ID, lessonID)
	require.NoError(t, err)
	require.Len(t, attempts, 3)
	last := attempts[2]
	require.NotNil(t, last.LockedUntil)
	assert.WithinDuration(t, before.Add(8*time.Hour), *last.LockedUntil, time.Minute)

	// 冷却期内继续提交被拒绝，且不再新增台账
	_, err = f.submit(t, lessonID, 4)
	var lockedErr *util.QuizLockedError
	require.True(t, errors.As(err, &lockedErr))
	assert.True(t, lockedErr.Until.After(time.Now()))

	attempts, err = f.svc.ListAttempts(f.user.ID, lessonID)
	require.NoError(t, err)
	assert.Len(t, attempts, 3)
}

func TestLockoutExpiryReopensGate(t *testing.T) {
	f := newQuizFixture(t, 1, 4)
	lessonID := f.lessons[0].ID

	for i := 0; i < 3; i++ {
		_, err := f.submit(t, lessonID, 0)
		require.NoError(t, err)
	}
	_, err := f.submit(t, lessonID, 4)
	var maxErr *util.MaxAttemptsError
	require.True(t, errors.As(err, &maxErr))

	// 把锁定截止时间拨到过去，模拟冷却服满
	expired := time.Now().Add(-time.Minute)
	require.NoError(t, f.db.Model(&model.QuizAttempt{}).
		Where("user_id = ? AND lesson_id = ?", f.user.ID, lessonID).
		Where("locked_until IS NOT NULL").
		Update("locked_until", expired).Error)

	// 同一批失败尝试不会再次触发锁定
	result, err := f.submit(t, lessonID, 4)
	require.NoError(t, err)
	assert.True(t, result.IsPassed)
	assert.Equal(t, 100, result.Score)

	attempts, err := f.svc.ListAttempts(f.user.ID, lessonID)
	require.NoError(t, err)
	assert.Len(t, attempts, 4)
	assert.Equal(t, 4, attempts[3].AttemptNumber)
}

func TestPassWithinWindowPreventsLockout(t *testing.T) {
	f := newQuizFixture(t, 1, 4)
	lessonID := f.lessons[0].ID

	// 失败、失败、通过：计数窗口里有通过记录，不触发锁定
	for _, correct := range []int{0, 1, 4} {
		_, err := f.submit(t, lessonID, correct)
		require.NoError(t, err)
	}

	result, err := f.submit(t, lessonID, 0)
	require.NoError(t, err)
	assert.False(t, result.IsPassed)
}

func TestProgressAggregationAndCompletion(t *testing.T) {
	f := newQuizFixture(t, 2, 4)

	// 通过第一个课时：2个课时过了1个 => 50%
	result, err := f.submit(t, f.lessons[0].ID, 4)
	require.NoError(t, err)
	assert.True(t, result.IsPassed)

	var e model.Enrollment
	require.NoError(t, f.db.First(&e, f.enrollment.ID).Error)
	assert.Equal(t, 50, e.Progress)
	assert.False(t, e.Completed)
	assert.Nil(t, e.CompletedAt)

	// 通过第二个课时 => 100%，完成时间落盘
	result, err = f.submit(t, f.lessons[1].ID, 3)
	require.NoError(t, err)
	assert.True(t, result.IsPassed)
	assert.Equal(t, 75, result.Score)

	require.NoError(t, f.db.First(&e, f.enrollment.ID).Error)
	assert.Equal(t, 100, e.Progress)
	assert.True(t, e.Completed)
	require.NotNil(t, e.CompletedAt)
}

func TestFailedAttemptDoesNotTouchProgress(t *testing.T) {
	f := newQuizFixture(t, 2, 4)
	lessonID := f.lessons[0].ID

	_, err := f.submit(t, lessonID, 4)
	require.NoError(t, err)

	// 通过之后再失败一次：进度与课时记录都保持通过状态
	result, err := f.submit(t, lessonID, 1)
	require.NoError(t, err)
	assert.False(t, result.IsPassed)

	var e model.Enrollment
	require.NoError(t, f.db.First(&e, f.enrollment.ID).Error)
	assert.Equal(t, 50, e.Progress)

	var record model.ProgressRecord
	require.NoError(t, f.db.Where("user_id = ? AND lesson_id = ?", f.user.ID, lessonID).First(&record).Error)
	assert.True(t, record.IsPassed)
	assert.Equal(t, 100, record.Score)
}

func TestProgressRecordKeepsBestScore(t *testing.T) {
	f := newQuizFixture(t, 1, 4)
	lessonID := f.lessons[0].ID

	_, err := f.submit(t, lessonID, 3) // 75分通过
	require.NoError(t, err)

	_, err = f.submit(t, lessonID, 4) // 100分，刷新最好成绩
	require.NoError(t, err)

	var record model.ProgressRecord
	require.NoError(t, f.db.Where("user_id = ? AND lesson_id = ?", f.user.ID, lessonID).First(&record).Error)
	assert.Equal(t, 100, record.Score)

	// 每个 (用户, 课时) 仅一行
	var count int64
	require.NoError(t, f.db.Model(&model.ProgressRecord{}).
		Where("user_id = ? AND lesson_id = ?", f.user.ID, lessonID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetLessonQuizHidesAnswers(t *testing.T) {
	f := newQuizFixture(t, 1, 3)

	questions, err := f.svc.GetLessonQuiz(f.user.ID, f.lessons[0].ID)
	require.NoError(t, err)
	require.Len(t, questions, 3)

	data, err := json.Marshal(questions)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"answer"`)
	assert.Contains(t, string(data), `"prompt"`)
}

func TestEvaluateGateStateMachine(t *testing.T) {
	f := newQuizFixture(t, 1, 1)
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	t.Run("无历史尝试放行", func(t *testing.T) {
		d := f.svc.evaluateGate(nil, now)
		assert.False(t, d.locked)
	})

	t.Run("未满次数放行", func(t *testing.T) {
		d := f.svc.evaluateGate([]model.QuizAttempt{
			{AttemptNumber: 2}, {AttemptNumber: 1},
		}, now)
		assert.False(t, d.locked)
	})

	t.Run("攒满失败触发锁定并标记", func(t *testing.T) {
		d := f.svc.evaluateGate([]model.QuizAttempt{
			{BaseModel: model.BaseModel{ID: 3}, AttemptNumber: 3},
			{BaseModel: model.BaseModel{ID: 2}, AttemptNumber: 2},
			{BaseModel: model.BaseModel{ID: 1}, AttemptNumber: 1},
		}, now)
		assert.True(t, d.locked)
		assert.Equal(t, uint(3), d.stampID)
		assert.WithinDuration(t, now.Add(8*time.Hour), d.stampUntil, time.Second)
	})

	t.Run("窗口内有通过不锁定", func(t *testing.T) {
		d := f.svc.evaluateGate([]model.QuizAttempt{
			{AttemptNumber: 3},
			{AttemptNumber: 2, IsPassed: true},
			{AttemptNumber: 1},
		}, now)
		assert.False(t, d.locked)
	})

	t.Run("锁定未过期拒绝", func(t *testing.T) {
		d := f.svc.evaluateGate([]model.QuizAttempt{
			{AttemptNumber: 3, LockedUntil: &future},
			{AttemptNumber: 2},
			{AttemptNumber: 1},
		}, now)
		assert.True(t, d.locked)
		assert.Equal(t, uint(0), d.stampID)
		assert.Equal(t, future, d.lockUntil)
	})

	t.Run("锁定已过期放行", func(t *testing.T) {
		d := f.svc.evaluateGate([]model.QuizAttempt{
			{AttemptNumber: 3, LockedUntil: &past},
			{AttemptNumber: 2},
			{AttemptNumber: 1},
		}, now)
		assert.False(t, d.locked)
	})
}

func TestApplyPolicyTakesEffect(t *testing.T) {
	f := newQuizFixture(t, 1, 2)
	lessonID := f.lessons[0].ID

	// 默认及格线70：答对一半只有50分
	result, err := f.submit(t, lessonID, 1)
	require.NoError(t, err)
	assert.Equal(t, 50, result.Score)
	assert.False(t, result.IsPassed)

	// 热更新降低及格线后，同样的答卷通过
	f.svc.ApplyPolicy(config.QuizConfig{PassThreshold: 50, MaxAttempts: 3, CooldownHours: 8})

	result, err = f.submit(t, lessonID, 1)
	require.NoError(t, err)
	assert.Equal(t, 50, result.Score)
	assert.True(t, result.IsPassed)
}

func TestApplyPolicyConcurrentWithSubmit(t *testing.T) {
	f := newQuizFixture(t, 1, 2)
	lessonID := f.lessons[0].ID

	// 热更新与提交并发执行，-race 下必须干净
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			f.svc.ApplyPolicy(config.QuizConfig{
				PassThreshold: 50 + i%30,
				MaxAttempts:   3,
				CooldownHours: 8,
			})
		}
	}()

	// 全对的答卷在任何及格线下都通过，不会触发锁定
	for i := 0; i < 5; i++ {
		result, err := f.submit(t, lessonID, 2)
		require.NoError(t, err)
		assert.True(t, result.IsPassed)
	}
	<-done
}

func TestAppendAttemptRetriesOnConflict(t *testing.T) {
	f := newQuizFixture(t, 1, 2)
	lessonID := f.lessons[0].ID

	// 并发提交会在读号与写入之间插队。用写入回调在同一事务里
	// 抢先占用即将写入的序号，逼出唯一索引冲突
	injected := false
	err := f.db.Callback().Create().Before("gorm:create").Register("steal_attempt_number", func(tx *gorm.DB) {
		attempt, ok := tx.Statement.Dest.(*model.QuizAttempt)
		if !ok || injected {
			return
		}
		injected = true
		now := time.Now()
		tx.Session(&gorm.Session{NewDB: true}).Exec(
			"INSERT INTO quiz_attempts (created_at, updated_at, user_id, lesson_id, course_id, score, is_passed, attempt_number) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			now, now, attempt.UserID, attempt.LessonID, attempt.CourseID, 40, false, attempt.AttemptNumber,
		)
	})
	require.NoError(t, err)
	defer f.db.Callback().Create().Remove("steal_attempt_number")

	// 第一次写入撞唯一索引，重读序号后的重试必须成功
	result, err := f.submit(t, lessonID, 2)
	require.NoError(t, err)
	assert.True(t, result.IsPassed)
	assert.True(t, injected)

	// 冲突的事务整体回滚，台账里只有重试成功的那一行
	attempts, err := f.svc.ListAttempts(f.user.ID, lessonID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, 1, attempts[0].AttemptNumber)
	assert.Equal(t, 100, attempts[0].Score)
}

func TestSubmitLockRejectsConcurrentRequest(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	f := newQuizFixture(t, 1, 2)
	f.svc.Redis = rdb
	lessonID := f.lessons[0].ID
	key := fmt.Sprintf("%s%d:%d", submitLockKeyPrefix, f.user.ID, lessonID)

	// 另一个请求已持有提交锁
	require.NoError(t, mr.Set(key, "1"))
	mr.SetTTL(key, 10*time.Second)

	_, err := f.submit(t, lessonID, 2)
	assert.ErrorIs(t, err, util.ErrSubmitInProgress)

	// 被拒绝的提交不写台账
	attempts, err := f.svc.ListAttempts(f.user.ID, lessonID)
	require.NoError(t, err)
	assert.Empty(t, attempts)

	// 锁释放后提交成功，完成时自己的锁也被删掉
	mr.Del(key)
	result, err := f.submit(t, lessonID, 2)
	require.NoError(t, err)
	assert.True(t, result.IsPassed)
	assert.False(t, mr.Exists(key))
}

func TestTwoLessonEndToEnd(t *testing.T) {
	f := newQuizFixture(t, 2, 4)

	// 课时1：先挂一次再通过
	result, err := f.submit(t, f.lessons[0].ID, 1)
	require.NoError(t, err)
	assert.False(t, result.IsPassed)

	result, err = f.submit(t, f.lessons[0].ID, 3)
	require.NoError(t, err)
	assert.True(t, result.IsPassed)

	var e model.Enrollment
	require.NoError(t, f.db.First(&e, f.enrollment.ID).Error)
	assert.Equal(t, 50, e.Progress)

	// 课时2：一次通过，课程完成
	result, err = f.submit(t, f.lessons[1].ID, 4)
	require.NoError(t, err)
	assert.True(t, result.IsPassed)

	require.NoError(t, f.db.First(&e, f.enrollment.ID).Error)
	assert.Equal(t, 100, e.Progress)
	assert.True(t, e.Completed)

	// 台账总量与序号核对
	var attempts []model.QuizAttempt
	require.NoError(t, f.db.Where("user_id = ?", f.user.ID).Order("id ASC").Find(&attempts).Error)
	assert.Len(t, attempts, 3)
}
