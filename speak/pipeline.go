package speak

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"vocalia_back/llm"
	"vocalia_back/personas"
)

// AudioRoutePrefix is the public route generated audio files are served
// under; filenames returned by the synthesizer are joined onto it verbatim.
const AudioRoutePrefix = "/audio/"

const (
	defaultWorkerCount    = 4
	defaultRequestTimeout = 60 * time.Second
)

// ErrNoMessage marks a request that carried no usable text. It is the only
// client-side rejection the pipeline produces.
var ErrNoMessage = errors.New("speak: no message received")

// Replier produces the model's reply for a prompt. Implementations never
// fail: provider breakage degrades to an apology string.
type Replier interface {
	Reply(ctx context.Context, prompt llm.Prompt) string
}

// Synthesizer renders reply text to a stored audio file and returns its bare
// filename.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) (string, error)
}

// Result is the successful outcome of one conversation turn.
type Result struct {
	Persona  string `json:"persona"`
	Text     string `json:"text"`
	AudioURL string `json:"audio_url"`
}

// Pipeline runs one conversation turn: validate, resolve the persona, obtain
// a reply, synthesize speech, assemble the response. The two provider calls
// are funneled through a bounded worker gate so a burst of requests cannot
// pile unlimited concurrent calls onto the providers.
type Pipeline struct {
	registry *personas.Registry
	replier  Replier
	synth    Synthesizer
	workers  chan struct{}
	timeout  time.Duration
}

// NewPipelineFromEnv wires the pipeline with SPEAK_WORKERS (default 4) slots
// and a SPEAK_TIMEOUT_SECONDS (default 60) budget spanning both provider
// calls.
func NewPipelineFromEnv(registry *personas.Registry, replier Replier, synth Synthesizer) *Pipeline {
	workers := defaultWorkerCount
	if raw := strings.TrimSpace(os.Getenv("SPEAK_WORKERS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			workers = parsed
		}
	}

	timeout := defaultRequestTimeout
	if raw := strings.TrimSpace(os.Getenv("SPEAK_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}

	return &Pipeline{
		registry: registry,
		replier:  replier,
		synth:    synth,
		workers:  make(chan struct{}, workers),
		timeout:  timeout,
	}
}

// Run executes one conversation turn. Empty or whitespace-only text returns
// ErrNoMessage before any provider is contacted. A language-model failure
// never aborts the turn (the replier degrades to an apology); a synthesis
// failure does.
func (p *Pipeline) Run(ctx context.Context, text, personaKey string) (*Result, error) {
	if p == nil {
		return nil, errors.New("speak: pipeline not configured")
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrNoMessage
	}

	persona := p.registry.Resolve(personaKey)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	release, err := p.acquireWorker(ctx)
	if err != nil {
		return nil, fmt.Errorf("speak: acquire worker: %w", err)
	}
	defer release()

	prompt := llm.BuildPrompt(trimmed, persona)
	reply := p.replier.Reply(ctx, prompt)

	filename, err := p.synth.Synthesize(ctx, reply, persona.VoiceID)
	if err != nil {
		return nil, fmt.Errorf("speak: synthesize reply: %w", err)
	}

	return &Result{
		Persona:  persona.Key,
		Text:     reply,
		AudioURL: AudioRoutePrefix + filename,
	}, nil
}

// acquireWorker blocks until a worker slot frees up or the request deadline
// passes. Both provider calls for one turn run inside a single slot since
// they are strictly sequential.
func (p *Pipeline) acquireWorker(ctx context.Context) (func(), error) {
	select {
	case p.workers <- struct{}{}:
		return func() { <-p.workers }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
