package agent

import (
	"strings"

	"memchat/internal/domain"
)

// Section headers of a composed prompt.
const (
	headerHistory    = "Previous conversation:"
	headerMemories   = "User memories:"
	headerReferences = "Related SQL Queries:"
	prefixCurrent    = "Current message: "
)

// PromptInput is everything that goes into one model request.
type PromptInput struct {
	SystemPrompt      string
	History           []domain.Message
	Memories          []string
	References        []string
	IncludeReferences bool // telecom variant
	Message           string
}

// Compose renders the request text. Sections are separated by a blank line and
// keep their header even when empty; the user message is never truncated.
func Compose(in PromptInput) string {
	sections := make([]string, 0, 5)

	if sp := strings.TrimRight(in.SystemPrompt, "\n"); sp != "" {
		sections = append(sections, sp)
	}

	lines := make([]string, len(in.History))
	for i, m := range in.History {
		lines[i] = string(m.Role) + ": " + m.Content
	}
	sections = append(sections, headerHistory+"\n"+strings.Join(lines, "\n"))
	sections = append(sections, headerMemories+"\n"+strings.Join(in.Memories, "\n"))

	if in.IncludeReferences {
		sections = append(sections, headerReferences+"\n"+strings.Join(in.References, "\n"))
	}

	sections = append(sections, prefixCurrent+in.Message)
	return strings.Join(sections, "\n\n") + "\n"
}

// lastMessages returns the trailing n messages of msgs, or all of them.
func lastMessages(msgs []domain.Message, n int) []domain.Message {
	if n > 0 && len(msgs) > n {
		return msgs[len(msgs)-n:]
	}
	return msgs
}
