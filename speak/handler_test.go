package speak

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocalia_back/llm"
	"vocalia_back/personas"
)

func newTestRouter(t *testing.T, replier Replier, synth Synthesizer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	module := &Module{pipeline: newTestPipeline(replier, synth, 2)}
	router.POST("/speak", module.handleSpeak)
	return router
}

func postSpeak(router *gin.Engine, body string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/speak", strings.NewReader(body))
	router.ServeHTTP(recorder, request)
	return recorder
}

func TestHandleSpeakReturnsEnvelope(t *testing.T) {
	replier := &stubReplier{replies: func(llm.Prompt) string { return "a reply" }}
	router := newTestRouter(t, replier, &stubSynth{})

	recorder := postSpeak(router, `{"text": "hello", "persona": "friend"}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	assert.Equal(t, "friend", payload["persona"])
	assert.Equal(t, "a reply", payload["text"])
	assert.Equal(t, "/audio/clip-1.mp3", payload["audio_url"])
}

func TestHandleSpeakAcceptsRawTextBody(t *testing.T) {
	replier := &stubReplier{replies: func(prompt llm.Prompt) string { return prompt.Content }}
	router := newTestRouter(t, replier, &stubSynth{})

	recorder := postSpeak(router, "just plain text")
	require.Equal(t, http.StatusOK, recorder.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	assert.Equal(t, personas.DefaultKey, payload["persona"])
	assert.Contains(t, payload["text"], "just plain text")
}

func TestHandleSpeakRejectsMissingText(t *testing.T) {
	replier := &stubReplier{}
	synth := &stubSynth{}
	router := newTestRouter(t, replier, synth)

	for _, body := range []string{"", "   ", `{"persona": "tutor"}`, `{"text": "  "}`} {
		recorder := postSpeak(router, body)
		assert.Equal(t, http.StatusBadRequest, recorder.Code, "body %q", body)
		assert.JSONEq(t, `{"error": "no message received"}`, recorder.Body.String())
	}
	assert.Zero(t, replier.calls)
	assert.Empty(t, synth.voices)
}

func TestHandleSpeakReportsSynthesisFailure(t *testing.T) {
	router := newTestRouter(t, &stubReplier{}, &stubSynth{err: assert.AnError})

	recorder := postSpeak(router, `{"text": "hello"}`)
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "failed to process request")
}

func TestHandleSpeakRecoversFromPanics(t *testing.T) {
	router := newTestRouter(t, &panickyReplier{}, &stubSynth{})

	recorder := postSpeak(router, `{"text": "hello"}`)
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "internal server error")
	assert.Contains(t, recorder.Body.String(), "provider blew up")
}

type panickyReplier struct{}

func (p *panickyReplier) Reply(ctx context.Context, prompt llm.Prompt) string {
	panic("provider blew up")
}
