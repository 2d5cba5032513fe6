package chat

import (
	"sync"

	"github.com/nekotachi/cyber-idol/backend/internal/model/chat"
)

// Memory holds the process-wide persona prompt and turn history.
//
// The state is deliberately shared across every websocket session: a persona
// update from one client clears history for all of them, and completed turns
// from concurrent sessions interleave into one conversation. The single mutex
// is the serialization point that keeps those interleavings from losing
// updates.
type Memory struct {
	mu      sync.Mutex
	prompt  string
	history []chat.Message
}

// NewMemory returns a Memory seeded with the given persona prompt.
func NewMemory(defaultPrompt string) *Memory {
	return &Memory{prompt: defaultPrompt}
}

// Snapshot returns the current persona prompt and a copy of the history.
func (m *Memory) Snapshot() (string, []chat.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := make([]chat.Message, len(m.history))
	copy(history, m.history)
	return m.prompt, history
}

// SetPersona replaces the persona prompt and clears the whole history.
func (m *Memory) SetPersona(prompt string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompt = prompt
	m.history = m.history[:0]
}

// AppendExchange records one completed turn: the user message followed by the
// assistant reply, in that order.
func (m *Memory) AppendExchange(userText, assistantText string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history,
		chat.Message{Role: chat.RoleUser, Content: userText},
		chat.Message{Role: chat.RoleAssistant, Content: assistantText},
	)
}

// Len reports the number of stored messages.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history)
}
