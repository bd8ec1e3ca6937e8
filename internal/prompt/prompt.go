// Package prompt turns a conversation into the plain-text prompt handed to
// the engine.
package prompt

import (
	"strings"

	"ggufchat/internal/persona"
	"ggufchat/pkg/types"
)

// AssistantCue ends every prompt so the engine continues as the assistant.
const AssistantCue = "Assistant: "

// Assemble builds the prompt for msgs. With roleplay on, the persona's
// instructions come first, followed by a blank line. Each message is written
// as "<Label>: <content>\n\n" in order; messages with unknown roles are
// skipped. The result always ends with AssistantCue.
func Assemble(msgs []types.Message, roleplay bool, personaID string) string {
	var b strings.Builder
	if roleplay && personaID != "" {
		b.WriteString(persona.Instructions(personaID))
		b.WriteString("\n\n")
	}
	for _, m := range msgs {
		label := m.Role.Label()
		if label == "" {
			continue
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}
	b.WriteString(AssistantCue)
	return b.String()
}
