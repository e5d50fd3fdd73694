package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ILLUVRSE/council/internal/config"
	"github.com/ILLUVRSE/council/internal/deliberation"
	"github.com/ILLUVRSE/council/internal/events"
	"github.com/ILLUVRSE/council/internal/models"
	"github.com/ILLUVRSE/council/internal/ratelimit"
	"github.com/ILLUVRSE/council/internal/registry"
)

type deliberatorFunc func(ctx context.Context, req deliberation.Request) (*models.DeliberationResult, error)

func (f deliberatorFunc) Run(ctx context.Context, req deliberation.Request) (*models.DeliberationResult, error) {
	return f(ctx, req)
}

type staticStats events.Stats

func (s staticStats) Stats() events.Stats { return events.Stats(s) }

// echoGenerator answers every call; reviews and answers alike parse as a score of 8.
type echoGenerator struct{}

func (echoGenerator) Generate(ctx context.Context, p models.Participant, messages []models.Message) (models.Completion, error) {
	return models.Completion{
		Content:   "Score: 8\nReasoning: answer from " + p.ID,
		LatencyMs: 100,
		Timestamp: time.Now().UTC(),
	}, nil
}

func testConfig() config.Config {
	return config.Config{
		DeliberationTimeout: 5 * time.Second,
		FastTimeout:         5 * time.Second,
		MaxBodyBytes:        4096,
	}
}

func newRouter(t *testing.T, svc Deliberator, stats EventStats) (http.Handler, *ratelimit.Limiter) {
	t.Helper()
	limiter := ratelimit.New(ratelimit.Config{Logger: log.New(io.Discard, "", 0)})
	return New(testConfig(), registry.Default(), svc, limiter, stats).Router(), limiter
}

func doRequest(router http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestDeliberationFastModeEndToEnd(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{Logger: log.New(io.Discard, "", 0)})
	orch, err := deliberation.New(registry.Default(), echoGenerator{}, limiter, deliberation.Config{Logger: log.New(io.Discard, "", 0)})
	require.NoError(t, err)
	router := New(testConfig(), registry.Default(), orch, limiter, nil).Router()

	rec := doRequest(router, http.MethodPost, "/deliberation", []byte(`{"query":"What is the capital of France?","mode":"fast"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res models.DeliberationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, models.StatusComplete, res.Status)
	assert.Nil(t, res.Chairman)
	assert.Empty(t, res.Reviews)
	require.Len(t, res.Responses, 1)
	assert.Equal(t, registry.FastParticipantID, res.Responses[0].ParticipantID)
	require.NotNil(t, res.FinalSynthesis)
	assert.Equal(t, res.Responses[0].Content, *res.FinalSynthesis)
	assert.Equal(t, 1, limiter.Usage(registry.FastParticipantID))
}

func TestDeliberationFullModeEndToEnd(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{Logger: log.New(io.Discard, "", 0)})
	orch, err := deliberation.New(registry.Default(), echoGenerator{}, limiter, deliberation.Config{Logger: log.New(io.Discard, "", 0)})
	require.NoError(t, err)
	router := New(testConfig(), registry.Default(), orch, limiter, nil).Router()

	body := []byte(`{"query":"Compare X and Y","activeParticipants":["groq-kimi-k2","nvidia-devstral-2","groq-qwen3-32b"]}`)
	rec := doRequest(router, http.MethodPost, "/deliberation", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res models.DeliberationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, models.ModeFull, res.Mode)
	assert.Len(t, res.Responses, 3)
	assert.Len(t, res.Reviews, 6)
	require.NotNil(t, res.Chairman)
	assert.Equal(t, "groq-qwen3-32b", res.Chairman.ParticipantID, "all tied, first in registry order wins")
	assert.Equal(t, 80, res.Chairman.ElevationLevel)
}

func TestDeliberationPassesRequestThrough(t *testing.T) {
	var got deliberation.Request
	svc := deliberatorFunc(func(ctx context.Context, req deliberation.Request) (*models.DeliberationResult, error) {
		got = req
		return &models.DeliberationResult{Status: models.StatusComplete}, nil
	})
	router, _ := newRouter(t, svc, nil)

	rec := doRequest(router, http.MethodPost, "/deliberation", []byte(`{"query":"hi","mode":"auto","activeParticipants":["a","b"]}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hi", got.Query)
	assert.Equal(t, models.ModeAuto, got.Mode)
	assert.Equal(t, []string{"a", "b"}, got.ActiveParticipants)
}

func TestDeliberationRejectsMalformedBodies(t *testing.T) {
	called := false
	svc := deliberatorFunc(func(ctx context.Context, req deliberation.Request) (*models.DeliberationResult, error) {
		called = true
		return nil, nil
	})
	router, _ := newRouter(t, svc, nil)

	for _, body := range []string{
		`{"query":5}`,
		`{"query":"hi","extra":true}`,
		`not json`,
		`{"query":"` + strings.Repeat("x", 5000) + `"}`,
	} {
		rec := doRequest(router, http.MethodPost, "/deliberation", []byte(body))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "COUNCIL_BAD_REQUEST", decodeBody(t, rec)["code"])
	}
	assert.False(t, called)
}

func TestDeliberationErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid query", &deliberation.Error{Err: deliberation.ErrInvalidQuery}, http.StatusBadRequest, "COUNCIL_BAD_REQUEST"},
		{"too few", &deliberation.Error{Err: deliberation.ErrInsufficientParticipants}, http.StatusBadRequest, "COUNCIL_INSUFFICIENT_PARTICIPANTS"},
		{"all failed", &deliberation.Error{
			Err:      deliberation.ErrAllParticipantsFailed,
			Failures: []deliberation.ParticipantFailure{{ParticipantID: "groq-kimi-k2", Error: "rate limit exceeded"}},
		}, http.StatusInternalServerError, "COUNCIL_ALL_PARTICIPANTS_FAILED"},
		{"no chairman", &deliberation.Error{Err: deliberation.ErrNoChairmanSelectable}, http.StatusInternalServerError, "COUNCIL_NO_CHAIRMAN"},
		{"synthesis", &deliberation.Error{Err: deliberation.ErrSynthesisFailed}, http.StatusInternalServerError, "COUNCIL_SYNTHESIS_FAILED"},
		{"unexpected", context.Canceled, http.StatusInternalServerError, "COUNCIL_INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := deliberatorFunc(func(ctx context.Context, req deliberation.Request) (*models.DeliberationResult, error) {
				return nil, tt.err
			})
			router, _ := newRouter(t, svc, nil)

			rec := doRequest(router, http.MethodPost, "/deliberation", []byte(`{"query":"Why?"}`))
			assert.Equal(t, tt.status, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, tt.code, body["code"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestAllFailedIncludesDetails(t *testing.T) {
	svc := deliberatorFunc(func(ctx context.Context, req deliberation.Request) (*models.DeliberationResult, error) {
		return nil, &deliberation.Error{
			Err:   deliberation.ErrAllParticipantsFailed,
			State: deliberation.StateDispatching,
			Failures: []deliberation.ParticipantFailure{
				{ParticipantID: "a", Error: "rate limit exceeded"},
				{ParticipantID: "b", Error: "model temporarily unavailable (status 503)"},
			},
		}
	})
	router, _ := newRouter(t, svc, nil)

	rec := doRequest(router, http.MethodPost, "/deliberation", []byte(`{"query":"Why?"}`))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body struct {
		Error   string                            `json:"error"`
		Details []deliberation.ParticipantFailure `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, deliberation.ErrAllParticipantsFailed.Error(), body.Error)
	require.Len(t, body.Details, 2)
	assert.Equal(t, "b", body.Details[1].ParticipantID)
}

func TestListParticipants(t *testing.T) {
	router, limiter := newRouter(t, nil, nil)
	limiter.Admit("nvidia-minimax-m2.1", 40)

	rec := doRequest(router, http.MethodGet, "/participants?provider=nvidia", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Participants []struct {
			ID          string `json:"id"`
			Provider    string `json:"provider"`
			WindowUsage int    `json:"windowUsage"`
		} `json:"participants"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Participants, 3)
	for _, p := range body.Participants {
		assert.Equal(t, "nvidia", p.Provider)
	}
	assert.Equal(t, "nvidia-minimax-m2.1", body.Participants[0].ID)
	assert.Equal(t, 1, body.Participants[0].WindowUsage)

	rec = doRequest(router, http.MethodGet, "/participants", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Participants, 8)

	rec = doRequest(router, http.MethodGet, "/participants?provider=gemini", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetParticipant(t *testing.T) {
	router, _ := newRouter(t, nil, nil)

	rec := doRequest(router, http.MethodGet, "/participants/groq-kimi-k2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "groq-kimi-k2", body["id"])
	assert.EqualValues(t, 10, body["rateLimitPerMinute"])

	rec = doRequest(router, http.MethodGet, "/participants/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "COUNCIL_NOT_FOUND", decodeBody(t, rec)["code"])
}

func TestHealth(t *testing.T) {
	router, _ := newRouter(t, nil, staticStats{Published: 3})

	rec := doRequest(router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.EqualValues(t, 8, body["participants"])
	ev, ok := body["events"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 3, ev["published"])

	router, _ = newRouter(t, nil, nil)
	body = decodeBody(t, doRequest(router, http.MethodGet, "/health", nil))
	assert.Equal(t, "disabled", body["events"])
}
