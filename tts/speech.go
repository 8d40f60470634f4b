package tts

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"vocalia_back/storage"
)

const defaultAudioDir = "static/audio"

// synthClient is the slice of Client the store needs; tests substitute it.
type synthClient interface {
	Enabled() bool
	DefaultVoiceID() string
	Synthesize(ctx context.Context, req SpeechRequest) (*SpeechResult, error)
}

// SpeechStore turns reply text into a persisted audio asset and hands back the
// bare filename. Callers compose the public URL by joining the audio route
// prefix with that filename; the store never exposes full paths.
type SpeechStore struct {
	client synthClient
	dir    string
	mirror *storage.AudioStorage
	reuse  *reuseCache
}

// NewSpeechStoreFromEnv builds the store around the given provider client.
// AUDIO_DIR overrides the output directory; it is created if absent.
func NewSpeechStoreFromEnv(client *Client) (*SpeechStore, error) {
	dir := strings.TrimSpace(os.Getenv("AUDIO_DIR"))
	if dir == "" {
		dir = defaultAudioDir
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("tts: create audio directory %q: %w", dir, err)
	}

	mirror, err := storage.NewAudioStorageFromEnv()
	if err != nil {
		return nil, err
	}

	return &SpeechStore{
		client: client,
		dir:    dir,
		mirror: mirror,
		reuse:  newReuseCacheFromEnv(),
	}, nil
}

// AudioDir returns the directory generated audio files are written to.
func (s *SpeechStore) AudioDir() string {
	if s == nil {
		return defaultAudioDir
	}
	return s.dir
}

// Synthesize produces speech for the given text and stores it under a
// collision-resistant filename. Provider failures propagate to the caller;
// there is no placeholder-audio fallback.
func (s *SpeechStore) Synthesize(ctx context.Context, text, voiceID string) (string, error) {
	if s == nil || s.client == nil {
		return "", ErrDisabled
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrEmptyText
	}

	voice := strings.TrimSpace(voiceID)
	if voice == "" {
		voice = s.client.DefaultVoiceID()
	}

	if filename, ok := s.reuse.lookup(ctx, trimmed, voice); ok {
		if _, err := os.Stat(filepath.Join(s.dir, filename)); err == nil {
			return filename, nil
		}
	}

	result, err := s.client.Synthesize(ctx, SpeechRequest{Text: trimmed, VoiceID: voice})
	if err != nil {
		return "", err
	}

	// Another request may have removed the directory between startup and now.
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("tts: create audio directory %q: %w", s.dir, err)
	}

	filename := uuid.NewString() + mimeToExtension(result.MimeType)
	target := filepath.Join(s.dir, filename)
	if err := os.WriteFile(target, result.Audio, 0o644); err != nil {
		return "", fmt.Errorf("tts: write audio file: %w", err)
	}

	if s.mirror != nil {
		if err := s.mirror.Put(ctx, filename, result.Audio, result.MimeType); err != nil {
			log.Printf("tts: mirror audio object %q failed: %v", filename, err)
		}
	}

	s.reuse.store(ctx, trimmed, voice, filename)

	return filename, nil
}
