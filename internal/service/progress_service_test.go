package service

import (
	"context"
	"testing"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveProgressClampsRange(t *testing.T) {
	e := newTestEngine()
	e.lessons.add(&model.Lesson{BaseModel: model.BaseModel{ID: 100}, CourseID: 10, Title: "第一课", Published: true})

	row, err := e.progressSvc.SaveProgress(context.Background(), 1, 100, -20, false)
	require.NoError(t, err)
	assert.Equal(t, 0, row.Progress)
	assert.False(t, row.IsCompleted)

	row, err = e.progressSvc.SaveProgress(context.Background(), 1, 100, 250, false)
	require.NoError(t, err)
	assert.Equal(t, 100, row.Progress)
	assert.True(t, row.IsCompleted)
}

func TestSaveProgressCompletionThreshold(t *testing.T) {
	e := newTestEngine()
	e.lessons.add(&model.Lesson{BaseModel: model.BaseModel{ID: 100}, CourseID: 10, Published: true})

	row, err := e.progressSvc.SaveProgress(context.Background(), 1, 100, 89, false)
	require.NoError(t, err)
	assert.False(t, row.IsCompleted)
	assert.Nil(t, row.CompletedAt)

	row, err = e.progressSvc.SaveProgress(context.Background(), 1, 100, 90, false)
	require.NoError(t, err)
	assert.True(t, row.IsCompleted)
	require.NotNil(t, row.CompletedAt)
}

func TestSaveProgressExplicitCompletionBeatsLowPercent(t *testing.T) {
	e := newTestEngine()
	e.lessons.add(&model.Lesson{BaseModel: model.BaseModel{ID: 100}, CourseID: 10, Published: true})

	row, err := e.progressSvc.SaveProgress(context.Background(), 1, 100, 40, true)
	require.NoError(t, err)
	assert.Equal(t, 40, row.Progress)
	assert.True(t, row.IsCompleted)
}

func TestSaveProgressIdempotentResubmit(t *testing.T) {
	e := newTestEngine()
	e.lessons.add(&model.Lesson{BaseModel: model.BaseModel{ID: 100}, CourseID: 10, Published: true})

	_, err := e.progressSvc.SaveProgress(context.Background(), 1, 100, 95, false)
	require.NoError(t, err)
	savesAfterFirst := e.progress.saveCalls

	// 相同状态重复提交不再写库，也不重复触发完成事件
	certsAfterFirst := len(e.certs.certs)
	_, err = e.progressSvc.SaveProgress(context.Background(), 1, 100, 95, false)
	require.NoError(t, err)
	assert.Equal(t, savesAfterFirst, e.progress.saveCalls)
	assert.Equal(t, certsAfterFirst, len(e.certs.certs))
}

func TestSaveProgressInvalidatesCourseCache(t *testing.T) {
	e := newTestEngine()
	e.lessons.add(&model.Lesson{BaseModel: model.BaseModel{ID: 100}, CourseID: 10, Published: true})

	_, err := e.progressSvc.SaveProgress(context.Background(), 1, 100, 10, false)
	require.NoError(t, err)

	// 缓存了旧的课程进度
	payload, err := e.completion.CourseProgress(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, payload.LessonProgress[0].Progress)
	assert.Contains(t, e.cache.entries, "course_progress:1:10")

	// 未跨过完成阈值的普通进度更新也必须让缓存失效
	_, err = e.progressSvc.SaveProgress(context.Background(), 1, 100, 50, false)
	require.NoError(t, err)
	assert.NotContains(t, e.cache.entries, "course_progress:1:10")
	assert.Contains(t, e.cache.dels, "course_progress:1:10")

	payload, err = e.completion.CourseProgress(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 50, payload.LessonProgress[0].Progress)
}

func TestSaveProgressConcurrentFirstWriteFallsBackToUpdate(t *testing.T) {
	e := newTestEngine()
	e.lessons.add(&model.Lesson{BaseModel: model.BaseModel{ID: 100}, CourseID: 10, Published: true})

	// 另一并发请求抢先落行，本次 Create 撞唯一索引后回读更新
	e.progress.conflictOnCreate = &model.LessonProgress{
		UserID:   1,
		LessonID: 100,
		CourseID: 10,
		Progress: 20,
	}

	row, err := e.progressSvc.SaveProgress(context.Background(), 1, 100, 60, false)
	require.NoError(t, err)
	assert.Equal(t, 60, row.Progress)
	assert.False(t, row.IsCompleted)

	stored, err := e.progress.FindByUserAndLesson(1, 100)
	require.NoError(t, err)
	assert.Equal(t, 60, stored.Progress)
}

func TestSaveProgressUnknownLesson(t *testing.T) {
	e := newTestEngine()

	_, err := e.progressSvc.SaveProgress(context.Background(), 1, 404, 50, false)
	assert.ErrorIs(t, err, util.ErrLessonNotFound)
}

func TestSaveProgressCompletionTransitionIssuesCertificate(t *testing.T) {
	e := newTestEngine()
	e.lessons.add(&model.Lesson{BaseModel: model.BaseModel{ID: 100}, CourseID: 10, Published: true})
	e.lessons.add(&model.Lesson{BaseModel: model.BaseModel{ID: 101}, CourseID: 10, Published: true})

	_, err := e.progressSvc.SaveProgress(context.Background(), 1, 100, 100, false)
	require.NoError(t, err)
	assert.Empty(t, e.certs.certs, "course not yet complete")

	_, err = e.progressSvc.SaveProgress(context.Background(), 1, 101, 100, false)
	require.NoError(t, err)

	cert, err := e.certs.FindByUserAndCourse(1, 10)
	require.NoError(t, err)
	assert.Contains(t, cert.CertificateNumber, "CERT-")
	require.NotNil(t, cert.PDFRenderedAt)
	assert.NotEmpty(t, e.blobs.objects, "PDF artifact stored")
}

func TestSaveProgressUnpublishedLessonsDoNotGate(t *testing.T) {
	e := newTestEngine()
	e.lessons.add(&model.Lesson{BaseModel: model.BaseModel{ID: 100}, CourseID: 10, Published: true})
	e.lessons.add(&model.Lesson{BaseModel: model.BaseModel{ID: 101}, CourseID: 10, Published: false})

	_, err := e.progressSvc.SaveProgress(context.Background(), 1, 100, 100, false)
	require.NoError(t, err)

	// 未发布课时不参与完成判定，完成唯一已发布课时即结课
	_, err = e.certs.FindByUserAndCourse(1, 10)
	assert.NoError(t, err)
}
