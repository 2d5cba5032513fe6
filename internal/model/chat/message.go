package chat

// 对话角色，与 LLM 接口的 role 字段保持一致。
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message 记录一轮对话中的单条发言。
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
