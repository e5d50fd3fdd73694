package provider

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ILLUVRSE/council/internal/models"
)

const (
	DefaultGroqBaseURL   = "https://api.groq.com/openai/v1"
	DefaultNvidiaBaseURL = "https://integrate.api.nvidia.com/v1"

	defaultTimeout = 60 * time.Second
	nvidiaSeed     = 42
)

// ClientConfig configures one OpenAI-compatible upstream.
type ClientConfig struct {
	Provider   models.Provider
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *log.Logger
}

// Client talks to a single OpenAI-compatible provider (Groq or NVIDIA NIM).
type Client struct {
	provider models.Provider
	api      *openai.Client
	timeout  time.Duration
	logger   *log.Logger
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s api key required", cfg.Provider)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		switch cfg.Provider {
		case models.ProviderGroq:
			baseURL = DefaultGroqBaseURL
		case models.ProviderNvidia:
			baseURL = DefaultNvidiaBaseURL
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stdout, fmt.Sprintf("[provider.%s] ", cfg.Provider), log.LstdFlags)
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	if cfg.HTTPClient != nil {
		apiCfg.HTTPClient = cfg.HTTPClient
	}

	return &Client{
		provider: cfg.Provider,
		api:      openai.NewClientWithConfig(apiCfg),
		timeout:  timeout,
		logger:   logger,
	}, nil
}

// Generate performs one non-streaming chat completion. Latency covers only the upstream call.
func (c *Client) Generate(ctx context.Context, p models.Participant, messages []models.Message) (models.Completion, error) {
	if p.Provider != c.provider {
		return models.Completion{}, fmt.Errorf("%w: %s is %s, client is %s", ErrProviderMismatch, p.ID, p.Provider, c.provider)
	}
	req := c.buildRequest(p, messages)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(callCtx, req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		c.logger.Printf("participant %s model %s failed after %dms: %v", p.ID, p.Model, latency, err)
		return models.Completion{}, sanitize(callCtx, p.ID, err)
	}
	if len(resp.Choices) == 0 {
		return models.Completion{}, &Error{ParticipantID: p.ID, Reason: "empty response", cause: ErrEmptyResponse}
	}

	return models.Completion{
		Content:    resp.Choices[0].Message.Content,
		LatencyMs:  latency,
		TokensUsed: resp.Usage.TotalTokens,
		Timestamp:  time.Now().UTC(),
	}, nil
}

func (c *Client) buildRequest(p models.Participant, messages []models.Message) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	req := openai.ChatCompletionRequest{
		Model:       p.Model,
		Messages:    msgs,
		Temperature: float32(p.Temperature),
		Stream:      false,
	}
	switch c.provider {
	case models.ProviderGroq:
		req.MaxCompletionTokens = p.MaxTokens
		req.TopP = 0.95
	case models.ProviderNvidia:
		req.MaxTokens = p.MaxTokens
		req.TopP = 0.9
		if strings.Contains(p.Model, "devstral") {
			req.TopP = 0.95
		}
		seed := nvidiaSeed
		req.Seed = &seed
	}
	return req
}

func sanitize(callCtx context.Context, participantID string, err error) error {
	out := &Error{ParticipantID: participantID, Reason: "request failed", cause: err}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded):
		out.Reason = "request timed out"
	case errors.Is(err, context.Canceled):
		out.Reason = "request cancelled"
	case errors.As(err, &apiErr):
		out.Status = apiErr.HTTPStatusCode
		out.Reason = fmt.Sprintf("model temporarily unavailable (status %d)", apiErr.HTTPStatusCode)
	case errors.As(err, &reqErr):
		out.Status = reqErr.HTTPStatusCode
		out.Reason = fmt.Sprintf("model temporarily unavailable (status %d)", reqErr.HTTPStatusCode)
	}
	return out
}
