package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nekotachi/cyber-idol/backend/internal/model/character"
)

// Client 调用本地 GPT-SoVITS api_v2 服务进行语音合成。
// 权重切换接口是 GET，合成接口是 POST /tts。
type Client struct {
	apiURL     string
	presets    character.Store
	httpClient *http.Client

	// 记录当前加载的模型路径，避免重复切换。
	mu                sync.Mutex
	currentGPTPath    string
	currentSoVITSPath string
}

// NewClient returns a synthesis client bound to the given preset store.
func NewClient(apiURL string, presets character.Store, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		presets:    presets,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type ttsRequest struct {
	Text         string `json:"text"`
	TextLang     string `json:"text_lang"`
	RefAudioPath string `json:"ref_audio_path"`
	PromptText   string `json:"prompt_text"`
	PromptLang   string `json:"prompt_lang"`
	MediaType    string `json:"media_type"`
}

// Speak synthesizes cleanText with the character's voice and the emotion's
// reference clip, returning the audio bytes. Any failure returns an error;
// the caller degrades to a text-only reply.
func (c *Client) Speak(ctx context.Context, text, characterID, emotion string) ([]byte, error) {
	preset, ok := c.presets.FindByID(characterID)
	if !ok {
		return nil, fmt.Errorf("角色 %s 未找到", characterID)
	}

	if preset.GPTPath != "" || preset.SoVITSPath != "" {
		c.switchModel(ctx, preset.GPTPath, preset.SoVITSPath)
	}

	ref, ok := c.resolveEmotion(preset, emotion)
	if !ok {
		return nil, fmt.Errorf("角色 %s 没有任何可用情绪音频", characterID)
	}

	payload := ttsRequest{
		Text:         text,
		TextLang:     "zh",
		RefAudioPath: ref.RefAudioPath,
		PromptText:   ref.RefText,
		PromptLang:   ref.Lang,
		MediaType:    "wav",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/tts", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("TTS 请求异常: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("TTS 生成失败: %d - %s", resp.StatusCode, string(detail))
	}

	return io.ReadAll(resp.Body)
}

// resolveEmotion 按 请求情绪 → 预设默认情绪 → 任意首个情绪 的顺序兜底。
func (c *Client) resolveEmotion(preset character.Preset, emotion string) (character.EmotionRef, bool) {
	if ref, ok := preset.Emotions[emotion]; ok {
		return ref, true
	}

	defaultKey := preset.DefaultEmotion
	if defaultKey == "" {
		defaultKey = "neutral"
	}
	if ref, ok := preset.Emotions[defaultKey]; ok {
		log.Printf("[tts] 情绪 [%s] 未找到，回退 [%s]", emotion, defaultKey)
		return ref, true
	}

	for key, ref := range preset.Emotions {
		log.Printf("[tts] 无默认情绪可用，使用首个 [%s]", key)
		return ref, true
	}

	return character.EmotionRef{}, false
}

// switchModel 懒切换 GPT 与 SoVITS 权重；失败只记录日志，不阻断合成。
func (c *Client) switchModel(ctx context.Context, gptPath, sovitsPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gptPath != "" && gptPath != c.currentGPTPath {
		if err := c.setWeights(ctx, "/set_gpt_weights", gptPath); err != nil {
			log.Printf("[tts] 切换 GPT 模型失败: %v", err)
		} else {
			c.currentGPTPath = gptPath
		}
	}

	if sovitsPath != "" && sovitsPath != c.currentSoVITSPath {
		if err := c.setWeights(ctx, "/set_sovits_weights", sovitsPath); err != nil {
			log.Printf("[tts] 切换 SoVITS 模型失败: %v", err)
		} else {
			c.currentSoVITSPath = sovitsPath
		}
	}
}

func (c *Client) setWeights(ctx context.Context, endpoint, weightsPath string) error {
	params := url.Values{}
	params.Set("weights_path", weightsPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
