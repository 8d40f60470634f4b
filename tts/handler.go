package tts

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Module struct {
	client *Client
	store  *SpeechStore
}

// RegisterRoutes initialises the synthesizer and mounts the voice catalog
// endpoint under /tts.
func RegisterRoutes(router *gin.Engine) (*Module, error) {
	client, err := NewClientFromEnv()
	if err != nil {
		return nil, err
	}

	store, err := NewSpeechStoreFromEnv(client)
	if err != nil {
		return nil, err
	}

	module := &Module{client: client, store: store}

	group := router.Group("/tts")
	group.GET("/voices", module.handleVoices)

	return module, nil
}

func (m *Module) Enabled() bool {
	return m != nil && m.client.Enabled()
}

// AudioDir exposes the output directory so main can mount the static route.
func (m *Module) AudioDir() string {
	if m == nil {
		return defaultAudioDir
	}
	return m.store.AudioDir()
}

// Synthesize renders text to speech and returns the stored filename.
func (m *Module) Synthesize(ctx context.Context, text, voiceID string) (string, error) {
	if m == nil || m.store == nil {
		return "", ErrDisabled
	}
	return m.store.Synthesize(ctx, text, voiceID)
}

func (m *Module) handleVoices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"enabled":       m.Enabled(),
		"default_voice": m.client.DefaultVoiceID(),
		"voices":        m.client.Voices(),
	})
}
