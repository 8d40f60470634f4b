package personas

import (
	"sort"
	"strings"
)

// DefaultKey is the persona used whenever a request names no persona or an
// unknown one.
const DefaultKey = "default"

// Persona describes a named reply style. Instruction is handed to the language
// model as its system instruction; VoiceID, when set, selects the synthesizer
// voice.
type Persona struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	Instruction string `json:"-"`
	VoiceID     string `json:"voice_id,omitempty"`
}

// Registry holds the fixed persona table. It is populated once at startup and
// never mutated afterwards, so concurrent reads need no synchronization.
type Registry struct {
	table map[string]Persona
}

// NewRegistry builds the registry from the built-in persona table.
func NewRegistry() *Registry {
	table := make(map[string]Persona, len(builtinPersonas))
	for _, persona := range builtinPersonas {
		table[strings.ToLower(persona.Key)] = persona
	}
	return &Registry{table: table}
}

// Resolve maps a persona key to its definition. The key is case-folded before
// lookup; empty or unknown keys fall back to the default persona. Resolve
// never fails.
func (r *Registry) Resolve(key string) Persona {
	if r == nil || len(r.table) == 0 {
		return fallbackPersona
	}

	folded := strings.ToLower(strings.TrimSpace(key))
	if folded != "" {
		if persona, ok := r.table[folded]; ok {
			return persona
		}
	}

	if persona, ok := r.table[DefaultKey]; ok {
		return persona
	}
	return fallbackPersona
}

// All returns the persona table sorted by key.
func (r *Registry) All() []Persona {
	if r == nil {
		return nil
	}
	out := make([]Persona, 0, len(r.table))
	for _, persona := range r.table {
		out = append(out, persona)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// fallbackPersona backs Resolve when the table itself is somehow empty.
var fallbackPersona = Persona{
	Key:         DefaultKey,
	DisplayName: "Assistant",
	Instruction: "You are a helpful AI assistant.",
}

var builtinPersonas = []Persona{
	{
		Key:         DefaultKey,
		DisplayName: "Assistant",
		Instruction: "You are a helpful AI assistant.",
	},
	{
		Key:         "tutor",
		DisplayName: "Tutor",
		Instruction: "You are a patient, encouraging tutor. Explain concepts step by step in plain language, check the learner's understanding with short follow-up questions, and never make them feel bad for not knowing something. Keep answers focused and concrete, with one small example where it helps.",
		VoiceID:     "nova",
	},
	{
		Key:         "friend",
		DisplayName: "Friend",
		Instruction: "You are a close, easygoing friend. Reply casually and warmly, like a text message conversation. Use everyday words, react to what was said before giving advice, and keep things light unless the topic is serious.",
		VoiceID:     "onyx",
	},
	{
		Key:         "motivator",
		DisplayName: "Motivator",
		Instruction: "You are an energetic motivational coach. Be upbeat and direct, acknowledge the effort behind the question, and end with one actionable push the listener can do today. Keep the energy high without being dismissive of real difficulties.",
		VoiceID:     "shimmer",
	},
}
