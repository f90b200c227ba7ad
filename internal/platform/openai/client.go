package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/yungbote/lingua-backend/internal/observability"
	"github.com/yungbote/lingua-backend/internal/platform/httpx"
	"github.com/yungbote/lingua-backend/internal/platform/logger"
)

const (
	RoleSystem    = goopenai.ChatMessageRoleSystem
	RoleUser      = goopenai.ChatMessageRoleUser
	RoleAssistant = goopenai.ChatMessageRoleAssistant
)

type Message struct {
	Role    string
	Content string
}

// Client is the chat-completion client used by content generation.
type Client interface {
	// GenerateJSON sends system plus messages and returns the raw model output, which
	// the model is asked to format as a JSON object.
	GenerateJSON(ctx context.Context, system string, messages []Message) (string, error)
	Model() string
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float64
	Timeout     time.Duration
	MaxRetries  int
	MaxTokens   int
	// RetryBase is the first backoff delay; it doubles per attempt up to ten seconds.
	RetryBase time.Duration
}

// HTTPError is a non-2xx answer from the API.
type HTTPError struct {
	StatusCode int
	Err        error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %v", e.StatusCode, e.Err)
}

func (e *HTTPError) Unwrap() error { return e.Err }

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

var ErrEmptyResponse = errors.New("openai: empty response")

type client struct {
	log     *logger.Logger
	api     *goopenai.Client
	metrics *observability.Metrics

	model      string
	temp       *float64
	maxRetries int
	maxTokens  int
	retryBase  time.Duration
}

func NewClient(log *logger.Logger, cfg Config, metrics *observability.Metrics) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	apiCfg := goopenai.DefaultConfig(apiKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		apiCfg.BaseURL = base
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	apiCfg.HTTPClient = &http.Client{Timeout: timeout}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = goopenai.GPT4oMini
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	retryBase := cfg.RetryBase
	if retryBase <= 0 {
		retryBase = time.Second
	}

	return &client{
		log:        log.With("service", "OpenAIClient"),
		api:        goopenai.NewClientWithConfig(apiCfg),
		metrics:    metrics,
		model:      model,
		temp:       cfg.Temperature,
		maxRetries: maxRetries,
		maxTokens:  cfg.MaxTokens,
		retryBase:  retryBase,
	}, nil
}

func (c *client) Model() string { return c.model }

func (c *client) GenerateJSON(ctx context.Context, system string, messages []Message) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model:    c.model,
		Messages: buildMessages(system, messages),
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
		MaxCompletionTokens: c.maxTokens,
	}
	if c.temp != nil {
		req.Temperature = float32(*c.temp)
	}

	resp, err := c.createWithRetry(ctx, req)
	if err != nil && req.Temperature != 0 && isUnsupportedTemperature(err) {
		// Some models only accept the default temperature.
		c.log.Warn("model rejected temperature, retrying without it", "model", c.model)
		req.Temperature = 0
		resp, err = c.createWithRetry(ctx, req)
	}
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *client) createWithRetry(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error) {
	start := time.Now()
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return goopenai.ChatCompletionResponse{}, err
		}
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err == nil {
			c.metrics.ObserveLLMRequest(req.Model, "200", time.Since(start), resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
			return resp, nil
		}
		err = classify(err)
		if !httpx.IsRetryableError(err) || attempt >= c.maxRetries {
			c.metrics.ObserveLLMRequest(req.Model, statusLabel(err), time.Since(start), 0, 0)
			return goopenai.ChatCompletionResponse{}, fmt.Errorf("openai chat completion: %w", err)
		}
		sleepFor := httpx.Backoff(attempt, c.retryBase, 10*time.Second)
		c.log.Warn("OpenAI request retrying",
			"model", req.Model,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return goopenai.ChatCompletionResponse{}, err
		}
	}
}

func buildMessages(system string, messages []Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(messages)+1)
	if s := strings.TrimSpace(system); s != "" {
		out = append(out, goopenai.ChatCompletionMessage{Role: RoleSystem, Content: s})
	}
	for _, m := range messages {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		switch role {
		case RoleSystem, RoleAssistant:
		default:
			role = RoleUser
		}
		out = append(out, goopenai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

// classify lifts the SDK's error types into HTTPError so retry decisions can read the status.
func classify(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return &HTTPError{StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return &HTTPError{StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	return err
}

func statusLabel(err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return fmt.Sprintf("%d", httpErr.StatusCode)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "error"
}

func isUnsupportedTemperature(err error) bool {
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "temperature") {
		return false
	}
	for _, needle := range []string{"unsupported", "not supported", "does not support", "only the default", "unknown parameter"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
