package chatui

import "strings"

var emojiRules = []struct {
	emoji    string
	keywords []string
}{
	{"📝", []string{"summary", "summarize", "总结"}},
	{"📋", []string{"plan", "outline", "大纲", "规划"}},
	{"💡", []string{"idea", "brainstorm", "想法", "creative"}},
	{"📚", []string{"example", "案例", "例子"}},
	{"🪜", []string{"steps", "步骤", "how to"}},
}

// AssistantEmoji picks the badge shown next to an assistant message.
// index is the message's position in the conversation.
func AssistantEmoji(content string, index int) string {
	if index == 0 {
		return "👋"
	}

	text := strings.ToLower(content)
	for _, rule := range emojiRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.emoji
			}
		}
	}
	return "💬"
}
