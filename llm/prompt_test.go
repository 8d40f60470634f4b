package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vocalia_back/personas"
)

func TestBuildPromptFramesUserText(t *testing.T) {
	persona := personas.Persona{Key: "tutor", Instruction: "Teach gently."}

	prompt := BuildPrompt("explain recursion", persona)

	assert.Equal(t, "Teach gently.", prompt.SystemInstruction)
	assert.Equal(t, "User: explain recursion\nRespond in the style described.", prompt.Content)
}

func TestBuildPromptTrimsUserText(t *testing.T) {
	persona := personas.NewRegistry().Resolve(personas.DefaultKey)

	prompt := BuildPrompt("  hello there \n", persona)

	assert.Equal(t, persona.Instruction, prompt.SystemInstruction)
	assert.Equal(t, "User: hello there\nRespond in the style described.", prompt.Content)
}
