package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
)

const (
	apologyNoInput = "Sorry, I didn't receive any text to process. Please try again."
	apologyFormat  = "I'm sorry, something went wrong processing your request: %v"
)

// generator is the slice of ChatClient the responder needs; tests substitute it.
type generator interface {
	Generate(ctx context.Context, content, systemInstruction string, config GenerationConfig) (string, error)
}

// Responder applies the fail-open reply policy on top of the raw client: a
// broken provider call degrades to an apology string so the caller can keep
// going, and the user still gets an audible response.
type Responder struct {
	client generator
	config GenerationConfig
}

// NewResponder wraps the given client with the fixed generation policy.
func NewResponder(client *ChatClient) *Responder {
	return &Responder{client: client, config: DefaultGenerationConfig}
}

// Reply obtains the model's answer for the prompt. It never returns an error:
// empty content and provider failures both map to fixed apology texts, with
// the failure detail embedded and logged.
func (r *Responder) Reply(ctx context.Context, prompt Prompt) string {
	if strings.TrimSpace(prompt.Content) == "" {
		return apologyNoInput
	}
	if r == nil || r.client == nil {
		log.Printf("llm: responder not configured")
		return fmt.Sprintf(apologyFormat, "language model unavailable")
	}

	reply, err := r.client.Generate(ctx, prompt.Content, prompt.SystemInstruction, r.config)
	if err != nil {
		log.Printf("llm: generate failed: %v", err)
		return fmt.Sprintf(apologyFormat, err)
	}
	if reply == "" {
		log.Printf("llm: provider returned an empty reply")
		return fmt.Sprintf(apologyFormat, "empty reply from provider")
	}

	return reply
}
