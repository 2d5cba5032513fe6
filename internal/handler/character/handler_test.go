package character

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/nekotachi/cyber-idol/backend/internal/model/character"
)

func newTestRouter(t *testing.T, presets []character.Preset, staticDir string) *chi.Mux {
	t.Helper()

	handler := New(character.NewMemoryStore(presets), staticDir)
	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router
}

func TestListCharacters(t *testing.T) {
	router := newTestRouter(t, []character.Preset{
		{ID: "robin", Name: "罗宾"},
		{ID: "luna", Name: "露娜"},
	}, t.TempDir())

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/characters", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", recorder.Code)
	}

	var summaries []map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("unmarshal err: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 characters, got %d", len(summaries))
	}
	if summaries[0]["id"] != "robin" || summaries[0]["name"] != "罗宾" {
		t.Fatalf("unexpected summary %v", summaries[0])
	}
}

func TestListModelsPrefersManifest(t *testing.T) {
	staticDir := t.TempDir()
	modelsDir := filepath.Join(staticDir, "models")
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		t.Fatalf("MkdirAll err: %v", err)
	}
	manifest := `[{"id": "robin", "name": "罗宾", "gpt_filename": "robin.ckpt"}]`
	if err := os.WriteFile(filepath.Join(modelsDir, "manifest.json"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("WriteFile err: %v", err)
	}

	router := newTestRouter(t, nil, staticDir)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/models", nil))

	var payload []map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal err: %v", err)
	}
	if len(payload) != 1 || payload[0]["gpt_filename"] != "robin.ckpt" {
		t.Fatalf("expected manifest passthrough, got %v", payload)
	}
}

func TestListModelsFallsBackToPresets(t *testing.T) {
	router := newTestRouter(t, []character.Preset{
		{ID: "robin", Name: "罗宾", AvailableEmotions: []string{"neutral", "happy"}},
	}, t.TempDir())

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/models", nil))

	var payload []map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal err: %v", err)
	}
	if len(payload) != 1 {
		t.Fatalf("expected 1 model summary, got %d", len(payload))
	}
	emotions, ok := payload[0]["available_emotions"].([]any)
	if !ok || len(emotions) != 2 {
		t.Fatalf("unexpected available_emotions %v", payload[0]["available_emotions"])
	}
}
