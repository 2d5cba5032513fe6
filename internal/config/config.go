package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	Audio  AudioConfig
	ASR    ASRConfig
	LLM    LLMConfig
	TTS    TTSConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	audio, err := loadAudioConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		Audio:  audio,
		ASR:    loadASRConfig(),
		LLM:    loadLLMConfig(),
		TTS:    loadTTSConfig(),
	}, nil
}

// Validate 校验启动所必需的凭据，缺失时返回明确错误。
func (c *Config) Validate() error {
	hasBaidu := c.ASR.BaiduAppID != "" && c.ASR.BaiduAPIKey != "" && c.ASR.BaiduSecretKey != ""
	hasOpenAI := c.ASR.OpenAIAPIKey != ""

	if c.ASR.Provider == "baidu" && !hasBaidu {
		return fmt.Errorf("未设置百度语音识别所需的 BAIDU_APP_ID / BAIDU_API_KEY / BAIDU_SECRET_KEY")
	}
	if c.ASR.Provider == "openai" && !hasOpenAI {
		return fmt.Errorf("未设置 OPENAI_API_KEY")
	}
	if !hasBaidu && !hasOpenAI {
		return fmt.Errorf("至少提供百度或 OpenAI 的 ASR 凭据")
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("未设置 LLM_API_KEY（DeepSeek）")
	}
	return nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8000"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8000" 或 "127.0.0.1:8000"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AudioConfig 描述音频处理相关的路径与参数。
type AudioConfig struct {
	FFmpegPath string
	SampleRate int
	TmpDir     string
	StaticDir  string
}

// ModelsDir 返回角色模型目录。
func (c AudioConfig) ModelsDir() string {
	return filepath.Join(c.StaticDir, "models")
}

// StaticTmpDir 返回合成音频的公开输出目录。
func (c AudioConfig) StaticTmpDir() string {
	return filepath.Join(c.StaticDir, "tmp")
}

func loadAudioConfig() (AudioConfig, error) {
	sampleRate := 16000
	if override, err := parseOptionalIntEnv("AUDIO_SAMPLE_RATE"); err != nil {
		return AudioConfig{}, err
	} else if override != nil {
		sampleRate = *override
	}

	return AudioConfig{
		FFmpegPath: getEnvOrDefault("FFMPEG_PATH", "ffmpeg"),
		SampleRate: sampleRate,
		TmpDir:     getEnvOrDefault("AUDIO_TMP_DIR", "tmp"),
		StaticDir:  getEnvOrDefault("STATIC_DIR", "static"),
	}, nil
}

// ASRConfig 描述语音识别提供商配置。
type ASRConfig struct {
	Provider string

	BaiduAppID     string
	BaiduAPIKey    string
	BaiduSecretKey string

	OpenAIAPIKey string
	WhisperModel string
}

func loadASRConfig() ASRConfig {
	return ASRConfig{
		Provider:       strings.ToLower(getEnvOrDefault("ASR_PROVIDER", "baidu")),
		BaiduAppID:     strings.TrimSpace(os.Getenv("BAIDU_APP_ID")),
		BaiduAPIKey:    strings.TrimSpace(os.Getenv("BAIDU_API_KEY")),
		BaiduSecretKey: strings.TrimSpace(os.Getenv("BAIDU_SECRET_KEY")),
		OpenAIAPIKey:   strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		WhisperModel:   getEnvOrDefault("WHISPER_MODEL", "whisper-1"),
	}
}

// LLMConfig 描述大模型相关配置，默认指向 DeepSeek 的 OpenAI 兼容接口。
type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float64
	MaxTokens   *int
}

// NewChatModel 使用配置创建一个模型实例。
func (c LLMConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("缺少 LLM_API_KEY，无法创建聊天模型")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     strings.TrimSuffix(c.BaseURL, "/"),
		APIKey:      c.APIKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadLLMConfig() LLMConfig {
	cfg := LLMConfig{
		APIKey:  strings.TrimSpace(os.Getenv("LLM_API_KEY")),
		BaseURL: getEnvOrDefault("LLM_BASE_URL", "https://api.deepseek.com"),
		Model:   getEnvOrDefault("LLM_MODEL", "deepseek-chat"),
	}

	temperature := 0.7
	maxTokens := 150
	cfg.Temperature = &temperature
	cfg.MaxTokens = &maxTokens

	if override, err := parseOptionalFloatEnv("LLM_TEMPERATURE"); err == nil && override != nil {
		cfg.Temperature = override
	}
	if override, err := parseOptionalIntEnv("LLM_MAX_TOKENS"); err == nil && override != nil {
		cfg.MaxTokens = override
	}

	return cfg
}

// TTSConfig 描述 GPT-SoVITS 服务配置。
type TTSConfig struct {
	APIURL  string
	Timeout int
}

func loadTTSConfig() TTSConfig {
	timeoutSeconds := 60
	if override, err := parseOptionalIntEnv("TTS_TIMEOUT"); err == nil && override != nil {
		timeoutSeconds = *override
	}

	return TTSConfig{
		APIURL:  getEnvOrDefault("TTS_API_URL", "http://127.0.0.1:9880"),
		Timeout: timeoutSeconds,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
