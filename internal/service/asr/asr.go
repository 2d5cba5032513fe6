package asr

import (
	"context"
	"fmt"
)

// Transcriber 抽象语音转写能力，便于测试与在提供商之间切换。
// 具体实现只在启动时根据配置选择一次。
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// ProviderError carries the numeric business code a provider returned
// alongside its message, so callers can branch on the code instead of
// matching error text.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("asr provider error [%d]: %s", e.Code, e.Message)
}

// Options 汇总两种转写提供商所需的全部凭据与参数。
type Options struct {
	Provider string

	BaiduAppID     string
	BaiduAPIKey    string
	BaiduSecretKey string

	OpenAIAPIKey string
	WhisperModel string

	SampleRate int
}

// New selects the configured transcription provider.
func New(opts Options) (Transcriber, error) {
	switch opts.Provider {
	case "baidu":
		return NewBaiduClient(opts.BaiduAppID, opts.BaiduAPIKey, opts.BaiduSecretKey, opts.SampleRate)
	case "openai":
		return NewWhisperClient(opts.OpenAIAPIKey, opts.WhisperModel)
	default:
		return nil, fmt.Errorf("unknown ASR provider: %q", opts.Provider)
	}
}
