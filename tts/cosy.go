package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// cosyVoiceDriver synthesizes speech over the DashScope CosyVoice duplex
// websocket protocol.
type cosyVoiceDriver struct {
	endpoint     string
	apiKey       string
	workspace    string
	model        string
	defaultVoice string
	format       string
	sampleRate   int
	timeout      time.Duration
	providerID   string
	enabled      bool
}

func newCosyVoiceDriverFromEnv() *cosyVoiceDriver {
	endpoint := strings.TrimSpace(firstNonEmpty(
		os.Getenv("COSYVOICE_WS_URL"),
		os.Getenv("TTS_COSYVOICE_WS_URL"),
	))
	if endpoint == "" {
		endpoint = "wss://dashscope.aliyuncs.com/api-ws/v1/inference"
	}

	apiKey := strings.TrimSpace(firstNonEmpty(
		os.Getenv("COSYVOICE_API_KEY"),
		os.Getenv("DASHSCOPE_API_KEY"),
	))

	model := strings.TrimSpace(os.Getenv("COSYVOICE_MODEL"))
	if model == "" {
		model = "cosyvoice-v1"
	}

	defaultVoice := strings.TrimSpace(os.Getenv("COSYVOICE_DEFAULT_VOICE"))
	if defaultVoice == "" {
		defaultVoice = "longxiaochun"
	}

	format := strings.TrimSpace(os.Getenv("COSYVOICE_FORMAT"))
	if format == "" {
		format = "mp3"
	}

	sampleRate := 22050
	if raw := strings.TrimSpace(os.Getenv("COSYVOICE_SAMPLE_RATE")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			sampleRate = parsed
		}
	}

	return &cosyVoiceDriver{
		endpoint:     endpoint,
		apiKey:       apiKey,
		workspace:    strings.TrimSpace(os.Getenv("COSYVOICE_WORKSPACE")),
		model:        model,
		defaultVoice: defaultVoice,
		format:       format,
		sampleRate:   sampleRate,
		timeout:      75 * time.Second,
		providerID:   "aliyun-cosyvoice",
		enabled:      apiKey != "",
	}
}

func (d *cosyVoiceDriver) ProviderID() string {
	if d == nil {
		return "aliyun-cosyvoice"
	}
	return d.providerID
}

func (d *cosyVoiceDriver) Enabled() bool {
	return d != nil && d.enabled
}

func (d *cosyVoiceDriver) DefaultVoiceID() string {
	if d == nil {
		return ""
	}
	return d.defaultVoice
}

func (d *cosyVoiceDriver) voiceCatalog() []VoiceOption {
	ids := []struct{ id, name string }{
		{"longwan", "Longwan"},
		{"longcheng", "Longcheng"},
		{"longxiaochun", "Longxiaochun"},
		{"longxiaobai", "Longxiaobai"},
		{"loongstella", "Stella"},
	}
	voices := make([]VoiceOption, 0, len(ids))
	for _, entry := range ids {
		voices = append(voices, VoiceOption{
			ID:       entry.id,
			Name:     entry.name,
			Provider: d.ProviderID(),
			Language: "zh-CN",
		})
	}
	return voices
}

func (d *cosyVoiceDriver) Synthesize(ctx context.Context, req SpeechRequest) (*SpeechResult, error) {
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
		format = d.format
	}

	header := http.Header{}
	header.Set("Authorization", "bearer "+d.apiKey)
	header.Set("User-Agent", "vocalia-cosyvoice-client/1.0")
	if d.workspace != "" {
		header.Set("X-DashScope-WorkSpace", d.workspace)
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 8 * time.Second,
	}

	conn, resp, err := dialer.DialContext(ctx, d.endpoint, header)
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			resp.Body.Close()
			if len(body) > 0 {
				return nil, fmt.Errorf("tts: cosyvoice connect failed: %v (%s)", err, strings.TrimSpace(string(body)))
			}
		}
		return nil, fmt.Errorf("tts: cosyvoice connect failed: %w", err)
	}
	defer conn.Close()

	taskID := uuid.NewString()

	runPayload := map[string]any{
		"header": map[string]any{
			"action":    "run-task",
			"task_id":   taskID,
			"streaming": "duplex",
		},
		"payload": map[string]any{
			"task_group": "audio",
			"task":       "tts",
			"function":   "SpeechSynthesizer",
			"model":      d.model,
			"parameters": map[string]any{
				"text_type":   "PlainText",
				"voice":       voiceID,
				"format":      strings.ToLower(format),
				"sample_rate": d.sampleRate,
			},
			"input": map[string]any{},
		},
	}

	if err := conn.WriteJSON(runPayload); err != nil {
		return nil, fmt.Errorf("tts: cosyvoice run-task failed: %w", err)
	}

	audioBuf := &bytes.Buffer{}

	if err := d.waitForEvent(ctx, conn, taskID, "task-started", audioBuf); err != nil {
		return nil, err
	}

	continuePayload := map[string]any{
		"header": map[string]any{
			"action":    "continue-task",
			"task_id":   taskID,
			"streaming": "duplex",
		},
		"payload": map[string]any{
			"input": map[string]any{"text": textValue},
		},
	}
	if err := conn.WriteJSON(continuePayload); err != nil {
		return nil, fmt.Errorf("tts: cosyvoice continue-task failed: %w", err)
	}

	finishPayload := map[string]any{
		"header": map[string]any{
			"action":    "finish-task",
			"task_id":   taskID,
			"streaming": "duplex",
		},
		"payload": map[string]any{
			"input": map[string]any{},
		},
	}
	if err := conn.WriteJSON(finishPayload); err != nil {
		return nil, fmt.Errorf("tts: cosyvoice finish-task failed: %w", err)
	}

	if err := d.waitForEvent(ctx, conn, taskID, "task-finished", audioBuf); err != nil {
		return nil, err
	}

	audioBytes := audioBuf.Bytes()
	if len(audioBytes) == 0 {
		return nil, errors.New("tts: cosyvoice returned empty audio")
	}

	mime := encodingToMime(format)
	if mime == "" {
		mime = "audio/mpeg"
	}

	return &SpeechResult{
		VoiceID:  voiceID,
		Audio:    audioBytes,
		MimeType: mime,
		Provider: d.ProviderID(),
	}, nil
}

type cosyVoiceEvent struct {
	Header struct {
		TaskID       string `json:"task_id"`
		Event        string `json:"event"`
		ErrorCode    string `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"header"`
}

// waitForEvent drains websocket frames until the target event arrives,
// accumulating binary frames into audioBuf along the way.
func (d *cosyVoiceDriver) waitForEvent(ctx context.Context, conn *websocket.Conn, taskID, target string, audioBuf *bytes.Buffer) error {
	target = strings.ToLower(strings.TrimSpace(target))
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.timeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(d.timeout))
		}
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("tts: cosyvoice read failed: %w", err)
		}
		if msgType == websocket.BinaryMessage {
			if len(data) > 0 && audioBuf != nil {
				audioBuf.Write(data)
			}
			continue
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var event cosyVoiceEvent
		if err := json.Unmarshal(data, &event); err != nil {
			log.Printf("tts: cosyvoice parse event failed: %v", err)
			continue
		}
		if taskID != "" && event.Header.TaskID != "" && !strings.EqualFold(event.Header.TaskID, taskID) {
			continue
		}

		switch strings.ToLower(strings.TrimSpace(event.Header.Event)) {
		case "task-failed":
			message := strings.TrimSpace(event.Header.ErrorMessage)
			if message == "" {
				message = "unknown error"
			}
			return fmt.Errorf("tts: cosyvoice task failed: %s (%s)", message, event.Header.ErrorCode)
		case target:
			return nil
		}
	}
}
