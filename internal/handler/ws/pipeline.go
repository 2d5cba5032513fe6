package ws

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nekotachi/cyber-idol/backend/internal/analysis/emotion"
	"github.com/nekotachi/cyber-idol/backend/internal/model/chat"
	"github.com/nekotachi/cyber-idol/backend/internal/service/asr"
)

// fallbackReply 在 LLM 调用失败时顶替回复，保证本轮继续走完合成。
const fallbackReply = "[neutral] 思考出现了一点问题..."

// suppressedASRCode 对应百度"无有效识别结果"的业务码；
// 该错误只记日志，不向客户端发送 error 事件。
const suppressedASRCode = 3307

// runAudioTurn 执行音频入口的完整一轮：落盘、转码、转写、进入共享续段。
// 本轮产生的临时文件在任何退出路径上都会被清理。
func (h *Handler) runAudioTurn(ctx context.Context, conn *websocket.Conn, state *sessionState, audio []byte) {
	turnID := uuid.NewString()
	rawPath := filepath.Join(h.audioCfg.TmpDir, "audio_"+turnID+".webm")
	wavPath := filepath.Join(h.audioCfg.TmpDir, "audio_"+turnID+".wav")
	defer h.cleanupFiles(rawPath, wavPath)

	transcript, err := h.transcribeClip(ctx, audio, rawPath, wavPath)
	if err != nil {
		log.Printf("[ws] 处理音频失败: %v", err)

		var providerErr *asr.ProviderError
		if errors.As(err, &providerErr) && providerErr.Code == suppressedASRCode {
			return
		}
		h.sendError(conn, "无法识别语音")
		return
	}

	log.Printf("[ws] 识别结果: %s", transcript)
	h.send(conn, transcriptEvent{Type: "transcript", Text: transcript})

	if transcript == "" {
		return
	}

	h.runTextTurn(ctx, conn, state, transcript)
}

// transcribeClip 将原始片段写入临时文件，转码为目标采样率的单声道 WAV 并转写。
func (h *Handler) transcribeClip(ctx context.Context, audio []byte, rawPath, wavPath string) (string, error) {
	if err := os.WriteFile(rawPath, audio, 0o600); err != nil {
		return "", err
	}

	if err := h.transcoder.ToWAV(ctx, rawPath, wavPath, h.audioCfg.SampleRate); err != nil {
		return "", err
	}

	return h.transcriber.Transcribe(ctx, wavPath)
}

// runTextTurn 是两条入口共用的续段：生成回复、解析情绪、合成并发送终态事件。
// 只有合成成功的回合才会写入共享对话记忆。
func (h *Handler) runTextTurn(ctx context.Context, conn *websocket.Conn, state *sessionState, transcript string) {
	preset, _ := h.presets.FindByID(state.characterID)

	systemPrompt, history := h.memory.Snapshot()
	history = append(history, chat.Message{Role: chat.RoleUser, Content: transcript})

	rawReply, err := h.generator.Generate(ctx, transcript, history, preset, systemPrompt)
	if err != nil {
		log.Printf("[ws] LLM 调用失败: %v", err)
		rawReply = fallbackReply
	}

	emotionKey, cleanText := emotion.Extract(rawReply)
	log.Printf("[ws] LLM 原始: %s | 清洗后: [%s] %s", rawReply, emotionKey, cleanText)

	audio, err := h.synthesizer.Speak(ctx, cleanText, state.characterID, emotionKey)
	if err != nil || len(audio) == 0 {
		if err != nil {
			log.Printf("[ws] TTS 生成失败: %v", err)
		} else {
			log.Printf("[ws] TTS 未返回音频")
		}
		h.send(conn, ttsEvent{Type: "tts", URL: nil, Text: cleanText, Emotion: emotionKey})
		return
	}

	filename := "audio_" + uuid.NewString() + ".wav"
	outPath := filepath.Join(h.audioCfg.StaticTmpDir(), filename)
	if err := os.WriteFile(outPath, audio, 0o644); err != nil {
		log.Printf("[ws] 写入合成音频失败: %v", err)
		h.send(conn, ttsEvent{Type: "tts", URL: nil, Text: cleanText, Emotion: emotionKey})
		return
	}

	audioURL := "/static/tmp/" + filename
	h.send(conn, ttsEvent{Type: "tts", URL: &audioURL, Text: cleanText, Emotion: emotionKey})

	h.memory.AppendExchange(transcript, cleanText)
}

// cleanupFiles 尽力删除本轮的临时文件，失败只记录日志。
func (h *Handler) cleanupFiles(paths ...string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("[ws] 无法删除临时文件 %s: %v", path, err)
		}
	}
}
