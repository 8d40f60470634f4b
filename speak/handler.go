package speak

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"vocalia_back/authorization"
	"vocalia_back/personas"
)

const maxRequestBody = 64 << 10

type Module struct {
	pipeline *Pipeline
	guard    *authorization.Guard
}

type speakRequest struct {
	Text    string `json:"text"`
	Persona string `json:"persona"`
}

// RegisterRoutes mounts the conversation endpoint. The guard is optional:
// when present a valid token attributes the turn in the logs, but anonymous
// requests are always accepted.
func RegisterRoutes(router *gin.Engine, registry *personas.Registry, replier Replier, synth Synthesizer, guard *authorization.Guard) (*Module, error) {
	if registry == nil || replier == nil || synth == nil {
		return nil, errors.New("speak: registry, replier and synthesizer are required")
	}

	module := &Module{
		pipeline: NewPipelineFromEnv(registry, replier, synth),
		guard:    guard,
	}

	router.POST("/speak", module.handleSpeak)

	return module, nil
}

func (m *Module) handleSpeak(c *gin.Context) {
	// Anything a provider throws past the pipeline still gets a JSON reply.
	defer func() {
		if recovered := recover(); recovered != nil {
			log.Printf("speak: panic handling request: %v", recovered)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("internal server error: %v", recovered)})
		}
	}()

	req := parseRequest(c.Request.Body)

	if user, ok := m.guard.Identify(c); ok {
		log.Printf("speak: request from user %q persona=%q", user.Username, req.Persona)
	}

	result, err := m.pipeline.Run(c.Request.Context(), req.Text, req.Persona)
	if err != nil {
		if errors.Is(err, ErrNoMessage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no message received"})
			return
		}
		log.Printf("speak: pipeline failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to process request: %v", err)})
		return
	}

	c.JSON(http.StatusOK, result)
}

// parseRequest accepts either the JSON envelope {"text": ..., "persona": ...}
// or a raw text body, so plain curl and minimal clients keep working.
func parseRequest(body io.Reader) speakRequest {
	raw, err := io.ReadAll(io.LimitReader(body, maxRequestBody))
	if err != nil {
		return speakRequest{}
	}

	var req speakRequest
	if err := json.Unmarshal(raw, &req); err == nil {
		return req
	}

	return speakRequest{Text: strings.TrimSpace(string(raw))}
}
