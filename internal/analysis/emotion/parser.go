package emotion

import (
	"regexp"
	"strings"
)

// Neutral 是情绪标签缺失或无法识别时的兜底值。
const Neutral = "neutral"

// Placeholder 在回复清洗后为空时作为 TTS 输入，保证下游永远拿到非空文本。
const Placeholder = "..."

var tagPattern = regexp.MustCompile(`\[(.*?)\]`)

// Extract 从 LLM 原始回复中取出开头的情绪标签并返回清洗后的文本。
// 取首个 [tag] 的内容作为情绪；文本中所有 [tag] 都会被移除。
// 任何情况下返回的 clean 都非空。
func Extract(raw string) (emotion, clean string) {
	if raw == "" {
		return Neutral, Placeholder
	}

	emotion = Neutral
	if match := tagPattern.FindStringSubmatch(raw); match != nil {
		emotion = match[1]
	}

	clean = strings.TrimSpace(tagPattern.ReplaceAllString(raw, ""))
	if clean == "" {
		// 标签剥离后没有剩余文本，视为无效回复整体兜底。
		return Neutral, Placeholder
	}

	return emotion, clean
}
