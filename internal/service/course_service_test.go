package service

import (
	"context"
	"eco_mentor_backend/internal/model"
	"eco_mentor_backend/internal/repository"
	"eco_mentor_backend/internal/util"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newCourseService(db *gorm.DB) *CourseService {
	return NewCourseService(
		repository.NewCourseRepository(db),
		repository.NewQuestionRepository(db),
		testQuizConfig(),
		nil,
	)
}

func strPtr(s string) *string { return &s }

func TestCreateCourseDefaultsToDraft(t *testing.T) {
	db := newTestDB(t)
	svc := newCourseService(db)

	course, err := svc.CreateCourse(1, CourseReq{Title: strPtr("堆肥实践")})
	require.NoError(t, err)
	assert.Equal(t, model.CourseDraft, course.Status)
	assert.Equal(t, uint(1), course.AuthorID)

	// 草稿不出现在目录里
	catalog, err := svc.ListPublished(context.Background())
	require.NoError(t, err)
	assert.Empty(t, catalog)

	status := string(model.CoursePublished)
	_, err = svc.UpdateCourse(course.ID, CourseReq{Status: &status})
	require.NoError(t, err)

	catalog, err = svc.ListPublished(context.Background())
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	assert.Equal(t, "堆肥实践", catalog[0].Title)
}

func TestGetCourseOrdersModulesAndLessons(t *testing.T) {
	db := newTestDB(t)
	svc := newCourseService(db)

	course := &model.Course{Title: "水资源保护", Slug: "water", Status: model.CoursePublished}
	require.NoError(t, db.Create(course).Error)

	// 乱序入库，读取时按 order 字段排序
	m2 := &model.CourseModule{CourseID: course.ID, Title: "第二单元", Order: 2}
	m1 := &model.CourseModule{CourseID: course.ID, Title: "第一单元", Order: 1}
	require.NoError(t, db.Create(m2).Error)
	require.NoError(t, db.Create(m1).Error)

	for i, order := range []int{3, 1, 2} {
		lesson := model.Lesson{
			ModuleID: m1.ID,
			CourseID: course.ID,
			Title:    fmt.Sprintf("课时%d", i+1),
			Order:    order,
		}
		require.NoError(t, db.Create(&lesson).Error)
	}

	got, err := svc.GetCourse(course.ID)
	require.NoError(t, err)
	require.Len(t, got.Modules, 2)
	assert.Equal(t, "第一单元", got.Modules[0].Title)
	assert.Equal(t, "第二单元", got.Modules[1].Title)

	require.Len(t, got.Modules[0].Lessons, 3)
	for i, lesson := range got.Modules[0].Lessons {
		assert.Equal(t, i+1, lesson.Order)
	}
}

func TestReplaceQuestionKeepsLedgerIntact(t *testing.T) {
	f := newQuizFixture(t, 1, 2)
	svc := newCourseService(f.db)
	lessonID := f.lessons[0].ID

	// 先产生一条答题记录
	_, err := f.submit(t, lessonID, 2)
	require.NoError(t, err)

	questions, err := svc.ListQuestions(lessonID)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	oldID := questions[0].ID

	replaced, err := svc.ReplaceQuestion(oldID, QuestionReq{
		Prompt:  "修订后的问题",
		Options: json.RawMessage(`{"a":"是","b":"否"}`),
		Answer:  "b",
		Order:   0,
	})
	require.NoError(t, err)
	assert.NotEqual(t, oldID, replaced.ID)
	assert.Equal(t, lessonID, replaced.LessonID)

	// 题目数量不变，旧题软删除
	questions, err = svc.ListQuestions(lessonID)
	require.NoError(t, err)
	assert.Len(t, questions, 2)
	for _, q := range questions {
		assert.NotEqual(t, oldID, q.ID)
	}

	// 历史台账不受编辑影响
	attempts, err := f.svc.ListAttempts(f.user.ID, lessonID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.True(t, attempts[0].IsPassed)

	_, err = svc.ReplaceQuestion(9999, QuestionReq{
		Prompt:  "x",
		Options: json.RawMessage(`{}`),
		Answer:  "a",
	})
	assert.ErrorIs(t, err, util.ErrQuestionNotFound)
}

func TestCreateQuestionDenormalizesCourseID(t *testing.T) {
	f := newQuizFixture(t, 1, 0)
	svc := newCourseService(f.db)

	q, err := svc.CreateQuestion(f.lessons[0].ID, QuestionReq{
		Prompt:  "回收标志含义",
		Options: json.RawMessage(`{"a":"可回收","b":"有害"}`),
		Answer:  "a",
	})
	require.NoError(t, err)
	assert.Equal(t, f.course.ID, q.CourseID)

	_, err = svc.CreateQuestion(9999, QuestionReq{
		Prompt:  "x",
		Options: json.RawMessage(`{}`),
		Answer:  "a",
	})
	assert.ErrorIs(t, err, util.ErrLessonNotFound)
}
