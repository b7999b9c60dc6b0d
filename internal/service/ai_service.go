package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lms_backend/internal/config"
)

// AIService drafts quiz questions from lesson text through an
// OpenAI-compatible chat completion API. It is an opaque collaborator:
// its output is a draft for the teacher to review, never a correctness
// dependency of the engine.
type AIService struct {
	Config *config.Config
	client *http.Client
}

func NewAIService(cfg *config.Config) *AIService {
	return &AIService{
		Config: cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type AIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message AIChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// DraftQuestion is one generated question, pending teacher review.
type DraftQuestion struct {
	Content       string   `json:"content"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Points        int      `json:"points"`
}

var ErrAINotConfigured = errors.New("AI question generation is not configured")

// GenerateQuestions asks the model for count multiple-choice questions
// grounded in the given lesson content.
func (s *AIService) GenerateQuestions(ctx context.Context, content string, count int) ([]DraftQuestion, error) {
	if s.Config.AI.BaseURL == "" || s.Config.AI.APIKey == "" {
		return nil, ErrAINotConfigured
	}
	if count < 1 {
		count = 5
	}
	if count > 20 {
		count = 20
	}

	prompt := fmt.Sprintf(
		"根据以下课程内容出 %d 道单选题。只输出一个JSON数组，每个元素形如 "+
			`{"content":"题干","options":["A","B","C","D"],"correctAnswer":"正确选项原文","points":1}`+
			"，不要输出任何其他文字。\n\n课程内容:\n%s", count, content)

	reqBody := map[string]interface{}{
		"model": s.Config.AI.Model,
		"messages": []AIChatMessage{
			{Role: "system", Content: "你是一个教育平台的出题助手，只输出合法JSON。"},
			{Role: "user", Content: prompt},
		},
	}
	jsonData, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Config.AI.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.Config.AI.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("AI API error (status %d): %s", resp.StatusCode, string(body))
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, err
	}
	if completion.Error != nil {
		return nil, errors.New(completion.Error.Message)
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("AI API returned no choices")
	}

	return parseDraftQuestions(completion.Choices[0].Message.Content)
}

// parseDraftQuestions tolerates the model wrapping its JSON in a
// markdown code fence.
func parseDraftQuestions(raw string) ([]DraftQuestion, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	}

	var questions []DraftQuestion
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &questions); err != nil {
		return nil, fmt.Errorf("parse generated questions: %w", err)
	}

	for i := range questions {
		if questions[i].Points < 1 {
			questions[i].Points = 1
		}
	}
	return questions, nil
}
