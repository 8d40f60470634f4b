package speak

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocalia_back/llm"
	"vocalia_back/personas"
)

type stubReplier struct {
	mu      sync.Mutex
	replies func(prompt llm.Prompt) string
	calls   int
}

func (s *stubReplier) Reply(ctx context.Context, prompt llm.Prompt) string {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.replies != nil {
		return s.replies(prompt)
	}
	return "stub reply"
}

type stubSynth struct {
	mu       sync.Mutex
	err      error
	delay    time.Duration
	voices   []string
	inflight int32
	peak     int32
	counter  int
}

func (s *stubSynth) Synthesize(ctx context.Context, text, voiceID string) (string, error) {
	current := atomic.AddInt32(&s.inflight, 1)
	defer atomic.AddInt32(&s.inflight, -1)
	for {
		peak := atomic.LoadInt32(&s.peak)
		if current <= peak || atomic.CompareAndSwapInt32(&s.peak, peak, current) {
			break
		}
	}

	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return "", s.err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.voices = append(s.voices, voiceID)
	s.counter++
	return fmt.Sprintf("clip-%d.mp3", s.counter), nil
}

func newTestPipeline(replier Replier, synth Synthesizer, workers int) *Pipeline {
	return &Pipeline{
		registry: personas.NewRegistry(),
		replier:  replier,
		synth:    synth,
		workers:  make(chan struct{}, workers),
		timeout:  5 * time.Second,
	}
}

func TestRunProducesPersonaTextAndAudioURL(t *testing.T) {
	replier := &stubReplier{replies: func(llm.Prompt) string { return "hello there" }}
	synth := &stubSynth{}
	pipeline := newTestPipeline(replier, synth, 2)

	result, err := pipeline.Run(context.Background(), "hi", "tutor")
	require.NoError(t, err)

	assert.Equal(t, "tutor", result.Persona)
	assert.Equal(t, "hello there", result.Text)
	assert.Equal(t, "/audio/clip-1.mp3", result.AudioURL)

	require.Len(t, synth.voices, 1)
	assert.Equal(t, "nova", synth.voices[0], "tutor persona selects its configured voice")
}

func TestRunRejectsWhitespaceOnlyTextBeforeProviders(t *testing.T) {
	replier := &stubReplier{}
	synth := &stubSynth{}
	pipeline := newTestPipeline(replier, synth, 2)

	_, err := pipeline.Run(context.Background(), "   \t\n ", "tutor")
	assert.ErrorIs(t, err, ErrNoMessage)
	assert.Zero(t, replier.calls)
	assert.Empty(t, synth.voices)
}

func TestRunFallsBackToDefaultPersonaForUnknownKey(t *testing.T) {
	replier := &stubReplier{}
	synth := &stubSynth{}
	pipeline := newTestPipeline(replier, synth, 2)

	result, err := pipeline.Run(context.Background(), "hi", "wizard")
	require.NoError(t, err)
	assert.Equal(t, personas.DefaultKey, result.Persona)
}

func TestRunPropagatesSynthesisFailure(t *testing.T) {
	replier := &stubReplier{}
	synth := &stubSynth{err: errors.New("voice service down")}
	pipeline := newTestPipeline(replier, synth, 2)

	_, err := pipeline.Run(context.Background(), "hi", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "voice service down")
}

func TestRunKeepsConcurrentTurnsIsolated(t *testing.T) {
	replier := &stubReplier{replies: func(prompt llm.Prompt) string {
		// Echo the prompt so each result can be traced back to its input.
		return prompt.Content
	}}
	synth := &stubSynth{}
	pipeline := newTestPipeline(replier, synth, 4)

	const turns = 16
	results := make([]*Result, turns)
	errs := make([]error, turns)

	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = pipeline.Run(context.Background(), fmt.Sprintf("message-%d", i), "friend")
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, turns)
	for i := 0; i < turns; i++ {
		require.NoError(t, errs[i])
		assert.Contains(t, results[i].Text, fmt.Sprintf("message-%d", i), "reply must belong to its own request")
		assert.False(t, seen[results[i].AudioURL], "audio URLs must be unique per turn")
		seen[results[i].AudioURL] = true
	}
}

func TestRunBoundsProviderConcurrency(t *testing.T) {
	replier := &stubReplier{}
	synth := &stubSynth{delay: 20 * time.Millisecond}
	pipeline := newTestPipeline(replier, synth, 2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pipeline.Run(context.Background(), "hi", "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, synth.peak, int32(2), "worker gate must cap concurrent provider calls")
}

func TestRunFailsWhenDeadlineExpiresBeforeWorkerFrees(t *testing.T) {
	pipeline := newTestPipeline(&stubReplier{}, &stubSynth{}, 1)
	pipeline.timeout = 10 * time.Millisecond

	// Occupy the only slot.
	pipeline.workers <- struct{}{}

	_, err := pipeline.Run(context.Background(), "hi", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
