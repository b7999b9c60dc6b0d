package service

import (
	"context"
	"encoding/json"
	"testing"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAnswer(t *testing.T) {
	assert.Equal(t, "paris", NormalizeAnswer("  Paris "))
	assert.Equal(t, "the go language", NormalizeAnswer("The   Go\tLanguage"))
	assert.Equal(t, "", NormalizeAnswer("   "))
}

func TestAnswersMatch(t *testing.T) {
	tests := []struct {
		given    string
		expected string
		want     bool
	}{
		{"Paris", "paris", true},
		{"  goroutine  ", "goroutine", true},
		{"the  go language", "The Go Language", true},
		{"80", "80.0", true},
		{"80.00", "80", true},
		{"81", "80", false},
		{"london", "paris", false},
		{"", "", false},
		{"", "paris", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AnswersMatch(tt.given, tt.expected),
			"AnswersMatch(%q, %q)", tt.given, tt.expected)
	}
}

func TestCreateQuizOnePerCourse(t *testing.T) {
	e := newTestEngine()

	req := QuizReq{
		Title: "结课测验",
		Questions: []QuizQuestionReq{
			{Content: "1+1=?", CorrectAnswer: "2"},
		},
	}

	quiz, err := e.quizSvc.CreateQuiz(10, req)
	require.NoError(t, err)
	assert.Equal(t, 60, quiz.PassingPercentage, "default passing percentage")
	assert.True(t, quiz.Published)
	assert.Equal(t, 1, quiz.Questions[0].Points, "points default to 1")
	assert.Equal(t, 1, quiz.Questions[0].Order)

	_, err = e.quizSvc.CreateQuiz(10, req)
	assert.Error(t, err, "second quiz for the same course is rejected")
}

func TestCreateQuizValidatesCourseAndThreshold(t *testing.T) {
	e := newTestEngine()

	req := QuizReq{Title: "t", Questions: []QuizQuestionReq{{Content: "q", CorrectAnswer: "a"}}}

	_, err := e.quizSvc.CreateQuiz(404, req)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)

	bad := req
	bad.PassingPercentage = intPtr(101)
	_, err = e.quizSvc.CreateQuiz(10, bad)
	assert.Error(t, err)
}

func TestSubmitGrading(t *testing.T) {
	e := newTestEngine()
	quiz := e.quizzes.add(&model.Quiz{
		BaseModel:         model.BaseModel{ID: 200},
		CourseID:          10,
		PassingPercentage: 60,
		Published:         true,
		Questions: []model.QuizQuestion{
			{BaseModel: model.BaseModel{ID: 201}, Content: "q1", CorrectAnswer: "alpha", Points: 3},
			{BaseModel: model.BaseModel{ID: 202}, Content: "q2", CorrectAnswer: "beta", Points: 1},
			{BaseModel: model.BaseModel{ID: 203}, Content: "q3", CorrectAnswer: "42", Points: 1},
		},
	})

	// 3+1 of 5 points, round(4/5*100) = 80
	result, err := e.quizSvc.Submit(context.Background(), 1, quiz.ID, map[uint]string{
		201: " ALPHA ",
		202: "wrong",
		203: "42.0",
	}, 90)
	require.NoError(t, err)
	assert.Equal(t, 80, result.Score)
	assert.Equal(t, 2, result.CorrectAnswers)
	assert.Equal(t, 3, result.TotalQuestions)
	assert.True(t, result.Passed)

	// 答卷不可变：记录保留原始答案
	attempts, err := e.quizzes.ListAttempts(1, quiz.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	var recorded map[uint]string
	require.NoError(t, json.Unmarshal(attempts[0].Answers, &recorded))
	assert.Equal(t, " ALPHA ", recorded[201])
	assert.Equal(t, 90, attempts[0].TimeTakenSeconds)
}

func TestSubmitFailingAttemptIsKept(t *testing.T) {
	e := newTestEngine()
	quiz := e.quizzes.add(&model.Quiz{
		BaseModel:         model.BaseModel{ID: 200},
		CourseID:          10,
		PassingPercentage: 60,
		Published:         true,
		Questions: []model.QuizQuestion{
			{BaseModel: model.BaseModel{ID: 201}, Content: "q1", CorrectAnswer: "alpha", Points: 1},
			{BaseModel: model.BaseModel{ID: 202}, Content: "q2", CorrectAnswer: "beta", Points: 1},
		},
	})

	result, err := e.quizSvc.Submit(context.Background(), 1, quiz.ID, map[uint]string{201: "alpha"}, 30)
	require.NoError(t, err)
	assert.Equal(t, 50, result.Score)
	assert.False(t, result.Passed)
	assert.Nil(t, result.CertificateID)

	// 多次尝试全部保留
	result, err = e.quizSvc.Submit(context.Background(), 1, quiz.ID, map[uint]string{201: "alpha", 202: "beta"}, 30)
	require.NoError(t, err)
	assert.True(t, result.Passed)

	attempts, err := e.quizzes.ListAttempts(1, quiz.ID)
	require.NoError(t, err)
	assert.Len(t, attempts, 2)
}

func TestSubmitZeroPointQuiz(t *testing.T) {
	e := newTestEngine()
	quiz := e.quizzes.add(&model.Quiz{
		BaseModel:         model.BaseModel{ID: 200},
		CourseID:          10,
		PassingPercentage: 60,
		Published:         true,
	})

	result, err := e.quizSvc.Submit(context.Background(), 1, quiz.ID, map[uint]string{}, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Score)
	assert.False(t, result.Passed)
}

func TestSubmitRejectsUnpublishedQuiz(t *testing.T) {
	e := newTestEngine()
	quiz := e.quizzes.add(&model.Quiz{BaseModel: model.BaseModel{ID: 200}, CourseID: 10, Published: false})

	_, err := e.quizSvc.Submit(context.Background(), 1, quiz.ID, map[uint]string{}, 5)
	assert.ErrorIs(t, err, util.ErrQuizNotPublished)

	_, err = e.quizSvc.Submit(context.Background(), 1, 404, map[uint]string{}, 5)
	assert.ErrorIs(t, err, util.ErrQuizNotFound)
}

func TestDeleteQuiz(t *testing.T) {
	e := newTestEngine()
	quiz := e.quizzes.add(&model.Quiz{BaseModel: model.BaseModel{ID: 200}, CourseID: 10, Published: true})

	require.NoError(t, e.quizSvc.DeleteQuiz(quiz.ID))
	assert.ErrorIs(t, e.quizSvc.DeleteQuiz(quiz.ID), util.ErrQuizNotFound)
}
