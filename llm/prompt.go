package llm

import (
	"strings"

	"vocalia_back/personas"
)

// Prompt is the exact payload handed to the language model provider: the
// persona instruction on the system channel and the framed user text on the
// content channel.
type Prompt struct {
	SystemInstruction string
	Content           string
}

// BuildPrompt frames the user text as a style-following directive so the model
// cannot conflate it with the instruction channel. Callers must validate that
// userText is non-empty before building.
func BuildPrompt(userText string, persona personas.Persona) Prompt {
	return Prompt{
		SystemInstruction: persona.Instruction,
		Content:           "User: " + strings.TrimSpace(userText) + "\nRespond in the style described.",
	}
}
