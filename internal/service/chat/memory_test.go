package chat

import (
	"testing"

	"github.com/nekotachi/cyber-idol/backend/internal/model/chat"
)

func TestAppendExchangeOrdering(t *testing.T) {
	memory := NewMemory("default prompt")
	memory.AppendExchange("你好", "[happy] 你好喵")

	_, history := memory.Snapshot()
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	if history[0].Role != chat.RoleUser || history[0].Content != "你好" {
		t.Fatalf("unexpected user record: %+v", history[0])
	}
	if history[1].Role != chat.RoleAssistant || history[1].Content != "[happy] 你好喵" {
		t.Fatalf("unexpected assistant record: %+v", history[1])
	}
}

func TestSetPersonaClearsHistory(t *testing.T) {
	memory := NewMemory("default prompt")
	memory.AppendExchange("hi", "hello")
	memory.AppendExchange("再见", "拜拜")

	memory.SetPersona("新的人设")

	prompt, history := memory.Snapshot()
	if prompt != "新的人设" {
		t.Fatalf("expected updated prompt, got %q", prompt)
	}
	if len(history) != 0 {
		t.Fatalf("expected cleared history, got %d messages", len(history))
	}
}

func TestSnapshotReturnsCopy(t *testing.T) {
	memory := NewMemory("prompt")
	memory.AppendExchange("a", "b")

	_, history := memory.Snapshot()
	history[0].Content = "mutated"

	_, fresh := memory.Snapshot()
	if fresh[0].Content != "a" {
		t.Fatalf("snapshot leaked internal state: %q", fresh[0].Content)
	}
}

func TestLenCountsMessages(t *testing.T) {
	memory := NewMemory("prompt")
	if memory.Len() != 0 {
		t.Fatalf("expected empty memory")
	}

	memory.AppendExchange("a", "b")
	if memory.Len() != 2 {
		t.Fatalf("expected 2 messages, got %d", memory.Len())
	}
}
