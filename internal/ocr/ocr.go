// Package ocr extracts text from test images through a vision-capable
// model on an OpenAI-compatible endpoint.
package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const extractPrompt = `Transcribe this student's math assignment exactly as written.
Keep the question numbering and layout. Include every answer the student wrote,
even when it looks wrong or is crossed out. Output plain text only.`

// Client wraps an OpenAI-compatible API client for image transcription.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new OCR client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// ExtractText transcribes a student's assignment image. The image is sent
// inline as a base64 data URL.
func (c *Client) ExtractText(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("empty image")
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: extractPrompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL(image),
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("OCR API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OCR returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("OCR returned empty transcription")
	}
	return text, nil
}

func dataURL(image []byte) string {
	mime := http.DetectContentType(image)
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(image)
}
