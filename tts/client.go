package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

var (
	ErrDisabled  = errors.New("tts: service disabled")
	ErrEmptyText = errors.New("tts: text cannot be empty")
)

// Client routes synthesis requests to the configured provider drivers. It is
// read-only after construction.
type Client struct {
	httpClient      *http.Client
	openai          *openaiDriver
	cosy            *cosyVoiceDriver
	voices          []VoiceOption
	voiceIndex      map[string]string
	defaultVoice    string
	defaultProvider string
	enabled         bool
}

// NewClientFromEnv constructs the client and its provider drivers from
// environment variables. A driver without an API key stays disabled.
func NewClientFromEnv() (*Client, error) {
	httpClient := &http.Client{Timeout: 45 * time.Second}

	client := &Client{httpClient: httpClient}
	client.openai = newOpenAIDriverFromEnv(httpClient)
	client.cosy = newCosyVoiceDriverFromEnv()

	client.bootstrapVoiceCatalog()

	return client, nil
}

func (c *Client) Enabled() bool {
	return c != nil && c.enabled
}

func (c *Client) DefaultVoiceID() string {
	if c == nil {
		return ""
	}
	return c.defaultVoice
}

func (c *Client) Voices() []VoiceOption {
	if c == nil {
		return nil
	}
	out := make([]VoiceOption, len(c.voices))
	copy(out, c.voices)
	return out
}

// Synthesize dispatches a single synthesis attempt to the driver owning the
// requested voice, falling back to the default voice when none is given. One
// attempt per call; retry policy belongs to the deployment, not here.
func (c *Client) Synthesize(ctx context.Context, req SpeechRequest) (*SpeechResult, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}

	voiceID := strings.TrimSpace(req.VoiceID)
	if voiceID == "" {
		voiceID = c.defaultVoice
	}
	req.VoiceID = voiceID

	provider := c.defaultProvider
	if mapped, ok := c.voiceIndex[strings.ToLower(voiceID)]; ok {
		provider = mapped
	}

	switch provider {
	case "openai-speech":
		if !c.openai.Enabled() {
			return nil, ErrDisabled
		}
		return c.openai.Synthesize(ctx, req)
	case "aliyun-cosyvoice":
		if !c.cosy.Enabled() {
			return nil, ErrDisabled
		}
		return c.cosy.Synthesize(ctx, req)
	default:
		return nil, fmt.Errorf("tts: unsupported provider %q", provider)
	}
}

func (c *Client) bootstrapVoiceCatalog() {
	if c == nil {
		return
	}

	aggregated := make([]VoiceOption, 0, 16)
	if c.openai != nil {
		aggregated = append(aggregated, c.openai.voiceCatalog()...)
	}
	if c.cosy != nil {
		aggregated = append(aggregated, c.cosy.voiceCatalog()...)
	}

	voiceIndex := make(map[string]string, len(aggregated))
	for _, voice := range aggregated {
		id := strings.ToLower(strings.TrimSpace(voice.ID))
		if id == "" {
			continue
		}
		voiceIndex[id] = NormalizeProviderID(voice.Provider)
	}

	c.voices = aggregated
	c.voiceIndex = voiceIndex

	switch {
	case c.openai.Enabled():
		c.defaultProvider = c.openai.ProviderID()
		c.defaultVoice = c.openai.DefaultVoiceID()
		c.enabled = true
	case c.cosy.Enabled():
		c.defaultProvider = c.cosy.ProviderID()
		c.defaultVoice = c.cosy.DefaultVoiceID()
		c.enabled = true
	}

	if requested := strings.TrimSpace(os.Getenv("TTS_DEFAULT_VOICE")); requested != "" {
		if provider, ok := voiceIndex[strings.ToLower(requested)]; ok {
			c.defaultVoice = requested
			c.defaultProvider = provider
		}
	}
}

// openaiDriver speaks the OpenAI-compatible /audio/speech endpoint.
type openaiDriver struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	model          string
	defaultVoice   string
	responseFormat string
	providerID     string
	enabled        bool
}

func newOpenAIDriverFromEnv(httpClient *http.Client) *openaiDriver {
	baseURL := strings.TrimSpace(firstNonEmpty(
		os.Getenv("TTS_OPENAI_API_BASE_URL"),
		os.Getenv("TTS_API_BASE_URL"),
	))
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	apiKey := strings.TrimSpace(firstNonEmpty(
		os.Getenv("TTS_OPENAI_API_KEY"),
		os.Getenv("TTS_API_KEY"),
	))

	model := strings.TrimSpace(firstNonEmpty(
		os.Getenv("TTS_OPENAI_MODEL_ID"),
		os.Getenv("TTS_MODEL_ID"),
	))
	if model == "" {
		model = "tts-1"
	}

	responseFormat := strings.TrimSpace(os.Getenv("TTS_RESPONSE_FORMAT"))
	if responseFormat == "" {
		responseFormat = "mp3"
	}

	defaultVoice := strings.TrimSpace(os.Getenv("TTS_OPENAI_DEFAULT_VOICE"))
	if defaultVoice == "" {
		defaultVoice = "nova"
	}

	return &openaiDriver{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		model:          model,
		defaultVoice:   defaultVoice,
		responseFormat: responseFormat,
		providerID:     "openai-speech",
		enabled:        apiKey != "",
	}
}

func (d *openaiDriver) ProviderID() string {
	if d == nil {
		return "openai-speech"
	}
	return d.providerID
}

func (d *openaiDriver) Enabled() bool {
	return d != nil && d.enabled
}

func (d *openaiDriver) DefaultVoiceID() string {
	if d == nil {
		return ""
	}
	return d.defaultVoice
}

func (d *openaiDriver) voiceCatalog() []VoiceOption {
	ids := []struct{ id, name string }{
		{"alloy", "Alloy"},
		{"echo", "Echo"},
		{"fable", "Fable"},
		{"onyx", "Onyx"},
		{"nova", "Nova"},
		{"shimmer", "Shimmer"},
	}
	voices := make([]VoiceOption, 0, len(ids))
	for _, entry := range ids {
		voices = append(voices, VoiceOption{
			ID:       entry.id,
			Name:     entry.name,
			Provider: d.ProviderID(),
			Language: "en",
		})
	}
	return voices
}

type openaiSpeechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format,omitempty"`
}

func (d *openaiDriver) Synthesize(ctx context.Context, req SpeechRequest) (*SpeechResult, error) {
	if d == nil || !d.Enabled() {
		return nil, ErrDisabled
	}

	textValue := strings.TrimSpace(req.Text)
	if textValue == "" {
		return nil, ErrEmptyText
	}

	voiceID := strings.TrimSpace(req.VoiceID)
	if voiceID == "" {
		voiceID = d.defaultVoice
	}

	format := strings.TrimSpace(req.Format)
	if format == "" {
		format = d.responseFormat
	}

	body, err := json.Marshal(openaiSpeechRequest{
		Model:          d.model,
		Input:          textValue,
		Voice:          voiceID,
		ResponseFormat: format,
	})
	if err != nil {
		return nil, fmt.Errorf("tts: encode request: %w", err)
	}

	endpoint := d.baseURL + "/audio/speech"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tts: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+d.apiKey)

	client := d.httpClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tts: execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("tts: remote error %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts: read response: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("tts: provider returned no audio")
	}

	mime := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if mime == "" {
		mime = encodingToMime(format)
	}
	if mime == "" {
		mime = "audio/mpeg"
	}

	return &SpeechResult{
		VoiceID:  voiceID,
		Audio:    audio,
		MimeType: mime,
		Provider: d.ProviderID(),
	}, nil
}

// NormalizeProviderID folds provider aliases onto their canonical identifiers.
func NormalizeProviderID(value string) string {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	switch trimmed {
	case "", "openai", "openai-speech", "openai_speech":
		return "openai-speech"
	case "aliyun", "ali", "aliyun-cosyvoice", "aliyun_cosyvoice", "cosyvoice", "cosy-voice":
		return "aliyun-cosyvoice"
	default:
		return trimmed
	}
}

func encodingToMime(encoding string) string {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "mp3", "mpeg", "audio/mpeg":
		return "audio/mpeg"
	case "wav", "wave", "audio/wav":
		return "audio/wav"
	case "opus", "audio/opus":
		return "audio/opus"
	case "aac", "audio/aac":
		return "audio/aac"
	default:
		return ""
	}
}

func mimeToExtension(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "audio/wav", "audio/wave":
		return ".wav"
	case "audio/opus":
		return ".opus"
	case "audio/aac":
		return ".aac"
	default:
		return ".mp3"
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
