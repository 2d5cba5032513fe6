package llm

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/nekotachi/cyber-idol/backend/internal/config"
	"github.com/nekotachi/cyber-idol/backend/internal/model/character"
	"github.com/nekotachi/cyber-idol/backend/internal/model/chat"
)

// DefaultSystemPrompt 是未收到人设更新时使用的默认人设。
const DefaultSystemPrompt = "你是一只猫娘风格的虚拟助手“赛博酱”，亲和、可爱、会倾听，但不过度卖萌。" +
	"说话规则：" +
	"1) 每句话开头必须带情绪标签之一：[happy]/[sad]/[angry]/[neutral]/[surprised]/[fear]，结合语境挑选。" +
	"2) 每一句话末尾加上“喵”。" +
	"3) 口语化、简短，像和朋友聊天，能给出轻量建议/陪伴，不长篇大论。" +
	"4) 遇到不确定的问题要诚实说明。"

// idleReply 在用户输入为空时直接返回，不触发模型调用。
const idleReply = "[neutral] 诶？你在发呆吗？"

// Service encapsulates persona-conditioned reply generation.
type Service struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewService builds the prompt/model chain from configuration.
func NewService(ctx context.Context, cfg config.LLMConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{chain: runnable}, nil
}

// Generate produces the raw reply text for one user utterance.
func (s *Service) Generate(ctx context.Context, userText string, history []chat.Message, preset character.Preset, systemPrompt string) (string, error) {
	if strings.TrimSpace(userText) == "" {
		return idleReply, nil
	}

	input := map[string]any{
		"system":  buildSystemPrompt(systemPrompt, preset),
		"history": buildHistoryMessages(history),
		"query":   userText,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run chat chain: %w", err)
	}

	log.Printf("[llm] generated reply length=%d", len(response.Content))
	return strings.TrimSpace(response.Content), nil
}

// buildSystemPrompt 拼接人设与当前音色支持的情绪标签说明。
func buildSystemPrompt(systemPrompt string, preset character.Preset) string {
	base := systemPrompt
	if base == "" {
		base = DefaultSystemPrompt
	}

	available := preset.AvailableEmotions
	if len(available) == 0 {
		available = []string{"neutral"}
	}

	var builder strings.Builder
	builder.WriteString(base)
	builder.WriteString(fmt.Sprintf(
		"\n(系统提示：当前音色支持的情绪标签为：%v。请务必只使用列表中的情绪。如果不确定，请使用 [neutral]。)",
		available,
	))
	return builder.String()
}

func buildHistoryMessages(messages []chat.Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}

	return history
}
