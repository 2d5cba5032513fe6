package asr

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// WhisperClient 封装 OpenAI Whisper 转写接口。
type WhisperClient struct {
	client *openai.Client
	model  string
}

// NewWhisperClient returns a Whisper-backed Transcriber.
func NewWhisperClient(apiKey, model string) (*WhisperClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("缺少 OpenAI API Key，无法进行语音识别")
	}
	if model == "" {
		model = openai.Whisper1
	}

	return &WhisperClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// Transcribe uploads the clip and returns the transcript text.
func (c *WhisperClient) Transcribe(ctx context.Context, audioPath string) (string, error) {
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.model,
		FilePath: audioPath,
	})
	if err != nil {
		return "", fmt.Errorf("whisper 转写失败: %w", err)
	}

	return strings.TrimSpace(resp.Text), nil
}
