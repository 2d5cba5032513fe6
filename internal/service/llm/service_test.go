package llm

import (
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/nekotachi/cyber-idol/backend/internal/model/character"
	"github.com/nekotachi/cyber-idol/backend/internal/model/chat"
)

func TestBuildSystemPromptAppendsEmotionHint(t *testing.T) {
	preset := character.Preset{AvailableEmotions: []string{"neutral", "happy"}}

	prompt := buildSystemPrompt("你是一个管家", preset)
	if !strings.HasPrefix(prompt, "你是一个管家") {
		t.Fatalf("expected persona prefix, got %q", prompt)
	}
	if !strings.Contains(prompt, "happy") {
		t.Fatalf("expected available emotions in prompt, got %q", prompt)
	}
}

func TestBuildSystemPromptDefaults(t *testing.T) {
	prompt := buildSystemPrompt("", character.Preset{})
	if !strings.HasPrefix(prompt, DefaultSystemPrompt) {
		t.Fatalf("expected default persona, got %q", prompt)
	}
	if !strings.Contains(prompt, "neutral") {
		t.Fatalf("expected neutral fallback emotion hint, got %q", prompt)
	}
}

func TestBuildHistoryMessagesRoleMapping(t *testing.T) {
	history := buildHistoryMessages([]chat.Message{
		{Role: chat.RoleUser, Content: "你好"},
		{Role: chat.RoleAssistant, Content: "[happy] 你好喵"},
		{Role: "system", Content: "should be skipped"},
	})

	if len(history) != 2 {
		t.Fatalf("expected 2 mapped messages, got %d", len(history))
	}
	if history[0].Role != schema.User || history[0].Content != "你好" {
		t.Fatalf("unexpected user message: %+v", history[0])
	}
	if history[1].Role != schema.Assistant || history[1].Content != "[happy] 你好喵" {
		t.Fatalf("unexpected assistant message: %+v", history[1])
	}
}

func TestBuildHistoryMessagesEmpty(t *testing.T) {
	if got := buildHistoryMessages(nil); got != nil {
		t.Fatalf("expected nil for empty history, got %v", got)
	}
}
