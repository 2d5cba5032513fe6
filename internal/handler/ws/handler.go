package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/nekotachi/cyber-idol/backend/internal/config"
	"github.com/nekotachi/cyber-idol/backend/internal/model/character"
	"github.com/nekotachi/cyber-idol/backend/internal/model/chat"
	chatservice "github.com/nekotachi/cyber-idol/backend/internal/service/chat"
)

// defaultCharacterID 是新连接的初始角色，不存在时回退到首个已配置角色。
const defaultCharacterID = "robin"

// Transcriber 语音转写协作方。
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Generator 回复生成协作方。
type Generator interface {
	Generate(ctx context.Context, userText string, history []chat.Message, preset character.Preset, systemPrompt string) (string, error)
}

// Synthesizer 语音合成协作方。
type Synthesizer interface {
	Speak(ctx context.Context, text, characterID, emotion string) ([]byte, error)
}

// Transcoder 音频转码协作方。
type Transcoder interface {
	ToWAV(ctx context.Context, sourcePath, targetPath string, sampleRate int) error
}

// Handler 处理 /ws/chat 上的语音对话会话。
type Handler struct {
	transcriber Transcriber
	generator   Generator
	synthesizer Synthesizer
	transcoder  Transcoder
	presets     character.Store
	memory      *chatservice.Memory
	audioCfg    config.AudioConfig
	upgrader    websocket.Upgrader
}

// NewHandler wires the turn pipeline's collaborators.
func NewHandler(
	transcriber Transcriber,
	generator Generator,
	synthesizer Synthesizer,
	transcoder Transcoder,
	presets character.Store,
	memory *chatservice.Memory,
	audioCfg config.AudioConfig,
) *Handler {
	return &Handler{
		transcriber: transcriber,
		generator:   generator,
		synthesizer: synthesizer,
		transcoder:  transcoder,
		presets:     presets,
		memory:      memory,
		audioCfg:    audioCfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由。
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/chat", h.handleChat)
}

// inboundFrame 是文本帧的结构；所有字段都可选。
type inboundFrame struct {
	CharacterID  string `json:"character_id"`
	SystemPrompt string `json:"system_prompt"`
	Type         string `json:"type"`
	TextInput    string `json:"text_input"`
}

type infoEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type transcriptEvent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type ttsEvent struct {
	Type    string  `json:"type"`
	URL     *string `json:"url"`
	Text    string  `json:"text"`
	Emotion string  `json:"emotion"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// sessionState 是会话内唯一的可变状态。
type sessionState struct {
	characterID string
}

// handleChat 处理一条 WebSocket 连接的完整生命周期。
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[ws] WebSocket 客户端已连接")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	go h.pingLoop(ctx, conn)

	state := &sessionState{characterID: defaultCharacterID}
	if _, ok := h.presets.FindByID(state.characterID); !ok {
		if list := h.presets.List(); len(list) > 0 {
			state.characterID = list[0].ID
		}
	}

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[ws] read error: %v", err)
			} else {
				log.Printf("[ws] WebSocket 连接断开")
			}
			return
		}

		conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		switch messageType {
		case websocket.TextMessage:
			h.handleControlFrame(ctx, conn, state, data)
		case websocket.BinaryMessage:
			h.runAudioTurn(ctx, conn, state, data)
		}
	}
}

// handleControlFrame 处理结构化文本帧：切换角色、更新人设或文本输入。
// 无法解析的帧按协议静默忽略。
func (h *Handler) handleControlFrame(ctx context.Context, conn *websocket.Conn, state *sessionState, data []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return
	}

	if frame.CharacterID != "" {
		if _, ok := h.presets.FindByID(frame.CharacterID); ok {
			state.characterID = frame.CharacterID
			h.send(conn, infoEvent{Type: "info", Message: "角色已切换为 " + state.characterID})
		}
	}

	if frame.SystemPrompt != "" {
		h.memory.SetPersona(frame.SystemPrompt)
		log.Printf("[ws] 人设全局更新，对话历史已清空")
		h.send(conn, infoEvent{Type: "info", Message: "人设已更新成功！"})
		// 人设更新帧不再触发后续处理。
		return
	}

	if frame.TextInput != "" {
		h.runTextTurn(ctx, conn, state, strings.TrimSpace(frame.TextInput))
	}
}

func (h *Handler) send(conn *websocket.Conn, event any) {
	if err := conn.WriteJSON(event); err != nil {
		log.Printf("[ws] write failed: %v", err)
	}
}

func (h *Handler) sendError(conn *websocket.Conn, message string) {
	h.send(conn, errorEvent{Type: "error", Message: message})
}

// pingLoop 定期发送ping消息。
func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
