package core

import (
	"clinic-assistant/internal/llm"
	"clinic-assistant/pkg"
)

// BuildContext assembles the ordered message list for a completion request:
// the fixed system instruction first, then at most limit of the newest prior
// turns in ascending chronological order, then the new utterance tagged as a
// user message. Any stored role other than "user" maps to "assistant".
//
// Input validation (blank utterance, unknown patient) is a boundary concern
// and happens in the HTTP layer before this is called.
func BuildContext(system string, prior []pkg.ChatTurn, utterance string, limit int) []llm.Message {
	if limit > 0 && len(prior) > limit {
		prior = prior[len(prior)-limit:]
	}

	messages := make([]llm.Message, 0, len(prior)+2)
	messages = append(messages, llm.Message{Role: "system", Content: system})
	for _, turn := range prior {
		role := "assistant"
		if turn.Role == pkg.RoleUser {
			role = "user"
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content})
	}
	return append(messages, llm.Message{Role: "user", Content: utterance})
}
