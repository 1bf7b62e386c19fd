package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pavelanni/gradeboard/internal/llm/prompts"
	"github.com/pavelanni/gradeboard/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	variant prompts.PromptVariant
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName, variant string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		variant: prompts.PromptVariant(variant),
	}
}

// Ping verifies the LLM endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.api.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("LLM ping: %w", err)
	}
	return nil
}

// VerifyAnswers sends the extracted student work (and optional answer key)
// to the LLM and returns per-question grading outcomes. A response that does
// not parse as a question array is not an error: it comes back as an invalid
// QuestionSet carrying the raw text, so the submission can still be stored
// and reviewed by hand.
func (c *Client) VerifyAnswers(ctx context.Context, answerKey, studentWork string) (model.QuestionSet, string, error) {
	prompt, err := prompts.BuildVerifyPrompt(c.variant, answerKey, studentWork)
	if err != nil {
		return model.QuestionSet{}, "", fmt.Errorf("build verify prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return model.QuestionSet{}, "", fmt.Errorf("LLM verify API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return model.QuestionSet{}, "", fmt.Errorf("LLM returned no choices")
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	slog.Debug("LLM verify response", "raw", raw)

	set := model.DecodeQuestionSet(extractJSONArray(raw))
	if !set.Valid {
		slog.Warn("LLM verify response did not parse as question array", "length", len(raw))
		set = model.QuestionSet{Raw: raw}
	}
	return set, raw, nil
}

// GeneratePractice asks the LLM for practice problems on one topic. Missed
// questions, when provided, steer generation toward similar problems.
func (c *Client) GeneratePractice(ctx context.Context, topic, difficulty string, count int, missed []model.QuestionResult) ([]model.PracticeProblem, error) {
	prompt, err := prompts.BuildPracticePrompt(topic, difficulty, count, missed)
	if err != nil {
		return nil, fmt.Errorf("build practice prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM practice API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)

	var problems []model.PracticeProblem
	if err := json.Unmarshal([]byte(extractJSONArray(raw)), &problems); err != nil {
		return nil, fmt.Errorf("parse practice response: %w (raw: %s)", err, raw)
	}
	return problems, nil
}

// extractJSONArray pulls the outermost JSON array out of a response that may
// be wrapped in prose or code fences. Returns the input unchanged when no
// array brackets are present.
func extractJSONArray(s string) string {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
