package llm

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

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	defaultModelID = "gemini-2.5-flash"
)

// GenerationConfig carries the fixed sampling policy applied to every call.
type GenerationConfig struct {
	Temperature     float64
	MaxOutputTokens int
}

// DefaultGenerationConfig is the policy used for all conversation turns,
// constant across requests and personas.
var DefaultGenerationConfig = GenerationConfig{
	Temperature:     0.7,
	MaxOutputTokens: 200,
}

// ChatClient wraps the HTTP calls to an OpenAI-compatible chat completions API.
type ChatClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	modelID    string
}

// NewChatClientFromEnv constructs a ChatClient using environment variables.
//
// Expected variables:
//   - LLM_API_KEY: required API key for the provider
//   - LLM_BASE_URL: optional override for the API base URL (defaults to defaultBaseURL)
//   - LLM_MODEL_ID: optional override for the target model (defaults to defaultModelID)
func NewChatClientFromEnv() (*ChatClient, error) {
	apiKey := strings.TrimSpace(os.Getenv("LLM_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("llm: LLM_API_KEY environment variable is required")
	}

	baseURL := strings.TrimSpace(os.Getenv("LLM_BASE_URL"))
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("llm: invalid base URL %q", baseURL)
	}

	modelID := strings.TrimSpace(os.Getenv("LLM_MODEL_ID"))
	if modelID == "" {
		modelID = defaultModelID
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}

	return &ChatClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		modelID:    modelID,
	}, nil
}

// chatCompletionMessage matches the API payload structure for messages.
type chatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionRequest represents the request body sent to the model.
type chatCompletionRequest struct {
	Model       string                  `json:"model"`
	Temperature float64                 `json:"temperature"`
	MaxTokens   int                     `json:"max_tokens"`
	Messages    []chatCompletionMessage `json:"messages"`
}

// chatCompletionResponse captures the subset of fields we consume.
type chatCompletionResponse struct {
	Choices []struct {
		Message chatCompletionMessage `json:"message"`
	} `json:"choices"`
}

// Generate issues a single-turn chat completion with the given system
// instruction and returns the trimmed reply text. One attempt per call; no
// retries.
func (c *ChatClient) Generate(ctx context.Context, content, systemInstruction string, config GenerationConfig) (string, error) {
	if c == nil {
		return "", errors.New("llm: client is nil")
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", errors.New("llm: content cannot be empty")
	}

	payload := chatCompletionRequest{
		Model:       c.modelID,
		Temperature: config.Temperature,
		MaxTokens:   config.MaxOutputTokens,
		Messages:    make([]chatCompletionMessage, 0, 2),
	}
	if instruction := strings.TrimSpace(systemInstruction); instruction != "" {
		payload.Messages = append(payload.Messages, chatCompletionMessage{Role: "system", Content: instruction})
	}
	payload.Messages = append(payload.Messages, chatCompletionMessage{Role: "user", Content: trimmed})

	body := &bytes.Buffer{}
	if err := json.NewEncoder(body).Encode(payload); err != nil {
		return "", fmt.Errorf("llm: encode request: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("llm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("llm: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	var decoded chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}

	if len(decoded.Choices) == 0 {
		return "", errors.New("llm: response contains no choices")
	}

	return strings.TrimSpace(decoded.Choices[0].Message.Content), nil
}
