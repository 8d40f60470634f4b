package tts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSynthClient struct {
	result *SpeechResult
	err    error
	calls  []SpeechRequest
}

func (f *fakeSynthClient) Enabled() bool          { return true }
func (f *fakeSynthClient) DefaultVoiceID() string { return "nova" }

func (f *fakeSynthClient) Synthesize(ctx context.Context, req SpeechRequest) (*SpeechResult, error) {
	f.calls = append(f.calls, req)
	return f.result, f.err
}

func TestSynthesizeWritesFileAndReturnsBareFilename(t *testing.T) {
	dir := t.TempDir()
	client := &fakeSynthClient{result: &SpeechResult{
		VoiceID:  "nova",
		Audio:    []byte("fake-mp3-bytes"),
		MimeType: "audio/mpeg",
	}}
	store := &SpeechStore{client: client, dir: dir}

	filename, err := store.Synthesize(context.Background(), "hello world", "")
	require.NoError(t, err)

	assert.NotContains(t, filename, string(os.PathSeparator), "must be a bare filename")
	assert.True(t, len(filename) > len(".mp3"))
	assert.Equal(t, ".mp3", filepath.Ext(filename))

	data, err := os.ReadFile(filepath.Join(dir, filename))
	require.NoError(t, err)
	assert.Equal(t, []byte("fake-mp3-bytes"), data)
}

func TestSynthesizeUsesDefaultVoiceWhenUnset(t *testing.T) {
	client := &fakeSynthClient{result: &SpeechResult{Audio: []byte("x"), MimeType: "audio/mpeg"}}
	store := &SpeechStore{client: client, dir: t.TempDir()}

	_, err := store.Synthesize(context.Background(), "hello", "")
	require.NoError(t, err)

	require.Len(t, client.calls, 1)
	assert.Equal(t, "nova", client.calls[0].VoiceID)
}

func TestSynthesizeRejectsEmptyTextWithoutProviderCall(t *testing.T) {
	client := &fakeSynthClient{result: &SpeechResult{Audio: []byte("x")}}
	store := &SpeechStore{client: client, dir: t.TempDir()}

	_, err := store.Synthesize(context.Background(), "   \t\n", "nova")
	assert.ErrorIs(t, err, ErrEmptyText)
	assert.Empty(t, client.calls)
}

func TestSynthesizePropagatesProviderFailure(t *testing.T) {
	client := &fakeSynthClient{err: errors.New("voice service down")}
	store := &SpeechStore{client: client, dir: t.TempDir()}

	_, err := store.Synthesize(context.Background(), "hello", "nova")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "voice service down")
}

func TestSynthesizeIsIdempotentOverExistingDirectory(t *testing.T) {
	dir := t.TempDir()
	client := &fakeSynthClient{result: &SpeechResult{Audio: []byte("x"), MimeType: "audio/mpeg"}}
	store := &SpeechStore{client: client, dir: dir}

	first, err := store.Synthesize(context.Background(), "one", "nova")
	require.NoError(t, err)

	second, err := store.Synthesize(context.Background(), "two", "nova")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "filenames must not collide")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "existing files must survive subsequent runs")
}

func TestMimeToExtension(t *testing.T) {
	assert.Equal(t, ".mp3", mimeToExtension("audio/mpeg"))
	assert.Equal(t, ".wav", mimeToExtension("audio/wav"))
	assert.Equal(t, ".mp3", mimeToExtension(""))
	assert.Equal(t, ".mp3", mimeToExtension("application/octet-stream"))
}
