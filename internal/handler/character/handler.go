package character

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/nekotachi/cyber-idol/backend/internal/model/character"
)

// Handler 提供角色清单相关的只读HTTP接口。
type Handler struct {
	presets   character.Store
	staticDir string
}

// New 创建角色处理器。
func New(presets character.Store, staticDir string) *Handler {
	return &Handler{
		presets:   presets,
		staticDir: staticDir,
	}
}

// RegisterRoutes 注册角色相关的路由。
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/characters", h.handleListCharacters)
	r.Get("/models", h.handleListModels)
}

type characterSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// handleListCharacters 返回 {id, name} 形式的角色简表。
func (h *Handler) handleListCharacters(w http.ResponseWriter, r *http.Request) {
	presets := h.presets.List()

	summaries := make([]characterSummary, 0, len(presets))
	for _, preset := range presets {
		summaries = append(summaries, characterSummary{ID: preset.ID, Name: preset.Name})
	}

	h.respondJSON(w, http.StatusOK, summaries)
}

type modelSummary struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	AvailableEmotions []string `json:"available_emotions"`
}

// handleListModels 返回 models 清单；优先读取 manifest.json，
// 不存在或损坏时用 presets 构造简表。
func (h *Handler) handleListModels(w http.ResponseWriter, r *http.Request) {
	manifestPath := filepath.Join(h.staticDir, "models", "manifest.json")
	if data, err := os.ReadFile(manifestPath); err == nil {
		var manifest []map[string]any
		if unmarshalErr := json.Unmarshal(data, &manifest); unmarshalErr == nil {
			h.respondJSON(w, http.StatusOK, manifest)
			return
		} else {
			log.Printf("[character] 读取 manifest.json 失败: %v", unmarshalErr)
		}
	}

	presets := h.presets.List()
	summaries := make([]modelSummary, 0, len(presets))
	for _, preset := range presets {
		emotions := preset.AvailableEmotions
		if emotions == nil {
			emotions = []string{}
		}
		summaries = append(summaries, modelSummary{
			ID:                preset.ID,
			Name:              preset.Name,
			AvailableEmotions: emotions,
		})
	}

	h.respondJSON(w, http.StatusOK, summaries)
}

// respondJSON 发送JSON响应。
func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
