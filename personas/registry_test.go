package personas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveKnownKeysCaseInsensitive(t *testing.T) {
	registry := NewRegistry()

	for _, key := range []string{"tutor", "Tutor", "TUTOR", "  tutor  "} {
		persona := registry.Resolve(key)
		assert.Equal(t, "tutor", persona.Key)
		assert.Equal(t, registry.Resolve("tutor").Instruction, persona.Instruction)
	}
}

func TestResolveUnknownKeyFallsBackToDefault(t *testing.T) {
	registry := NewRegistry()

	for _, key := range []string{"wizard", "", "   ", "DEFAULT"} {
		persona := registry.Resolve(key)
		assert.Equal(t, DefaultKey, persona.Key, "key %q", key)
		assert.NotEmpty(t, persona.Instruction)
	}
}

func TestResolveOnNilRegistryNeverFails(t *testing.T) {
	var registry *Registry

	persona := registry.Resolve("tutor")
	assert.Equal(t, DefaultKey, persona.Key)
	assert.NotEmpty(t, persona.Instruction)
}

func TestBuiltinTableIntegrity(t *testing.T) {
	registry := NewRegistry()
	all := registry.All()

	require.NotEmpty(t, all)

	keys := make(map[string]struct{}, len(all))
	for _, persona := range all {
		assert.NotEmpty(t, persona.Key)
		assert.NotEmpty(t, persona.DisplayName)
		assert.NotEmpty(t, persona.Instruction)

		_, dup := keys[persona.Key]
		assert.False(t, dup, "duplicate persona key %q", persona.Key)
		keys[persona.Key] = struct{}{}
	}

	_, hasDefault := keys[DefaultKey]
	assert.True(t, hasDefault)
}
