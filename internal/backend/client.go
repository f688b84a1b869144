// Package backend talks to the LLM completion and vision endpoints over
// HTTP. The chat backend is selectable (openai, ollama, anthropic); vision
// calls are always served by the OpenAI-compatible endpoint because the
// wire format carries inline base64 image data.
package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"goutgle/internal/config"
	"goutgle/internal/session"
)

// ErrProvider marks completion/vision provider failures (network, auth,
// quota, malformed response). The orchestrator decides whether to downgrade
// it to a warning or treat it as terminal for the request.
var ErrProvider = errors.New("provider error")

const (
	defaultOpenAIModel = "gpt-4o"
	visionModel        = "gpt-4o"
	anthropicModel     = "claude-sonnet-4-20250514"
	anthropicMaxTokens = 1024
)

// Client issues completion and vision calls for the configured backend.
type Client struct {
	cfg        config.Config
	logger     *slog.Logger
	tracer     trace.Tracer
	meter      metric.Meter
	httpClient *http.Client

	// Endpoint overrides, settable in tests.
	OpenAIURL    string
	OllamaURL    string
	AnthropicURL string
}

// NewClient creates a Client. tracer and meter may be nil; the global
// (no-op when unconfigured) providers are used instead.
func NewClient(cfg config.Config, logger *slog.Logger, tracer trace.Tracer, meter metric.Meter) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = otel.Tracer("goutgle")
	}
	if meter == nil {
		meter = otel.Meter("goutgle")
	}
	return &Client{
		cfg:          cfg,
		logger:       logger,
		tracer:       tracer,
		meter:        meter,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		OpenAIURL:    "https://api.openai.com/v1/chat/completions",
		OllamaURL:    "http://localhost:11434",
		AnthropicURL: "https://api.anthropic.com/v1/messages",
	}
}

// Complete sends the ordered message list to the configured backend and
// returns the single completion text.
func (c *Client) Complete(ctx context.Context, messages []session.Message, temperature float64) (string, error) {
	switch c.cfg.Backend {
	case config.BackendOllama:
		return c.callOllama(ctx, messages, temperature)
	case config.BackendAnthropic:
		return c.callAnthropic(ctx, messages, temperature)
	case config.BackendOpenAI, "":
		return c.callOpenAI(ctx, messages, temperature)
	default:
		return "", fmt.Errorf("unknown backend: %s", c.cfg.Backend)
	}
}

// Describe sends one image plus a textual instruction to the vision
// endpoint and returns its free-text description. Temperature is pinned to
// zero so field extraction stays deterministic.
func (c *Client) Describe(ctx context.Context, image []byte, mimeType, instruction string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "vision_api_call")
	defer span.End()

	if c.cfg.OpenAIKey == "" {
		return "", fmt.Errorf("%w: OPENAI_API_KEY not set", ErrProvider)
	}

	dataURI := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))
	reqBody := OpenAIRequest{
		Model: visionModel,
		Messages: []OpenAIMessage{{
			Role: session.RoleUser,
			Content: []OpenAIContentPart{
				{Type: "text", Text: instruction},
				{Type: "image_url", ImageURL: &OpenAIImageURL{URL: dataURI}},
			},
		}},
		Temperature: 0,
	}

	var apiResp OpenAIResponse
	if err := c.post(ctx, c.OpenAIURL, openAIHeaders(c.cfg.OpenAIKey), reqBody, &apiResp); err != nil {
		return "", err
	}

	c.recordMetrics(ctx, apiResp.Usage)

	if len(apiResp.Choices) > 0 {
		return apiResp.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("%w: empty vision response", ErrProvider)
}

// callOpenAI calls the OpenAI API
func (c *Client) callOpenAI(ctx context.Context, messages []session.Message, temperature float64) (string, error) {
	ctx, span := c.tracer.Start(ctx, "openai_api_call")
	defer span.End()

	if c.cfg.OpenAIKey == "" {
		return "", fmt.Errorf("%w: OPENAI_API_KEY not set", ErrProvider)
	}

	reqMessages := make([]OpenAIMessage, len(messages))
	for i, msg := range messages {
		if len(msg.Parts) > 0 {
			parts := make([]OpenAIContentPart, len(msg.Parts))
			for j, p := range msg.Parts {
				if p.Type == "image_url" {
					parts[j] = OpenAIContentPart{Type: "image_url", ImageURL: &OpenAIImageURL{URL: p.ImageURL}}
				} else {
					parts[j] = OpenAIContentPart{Type: "text", Text: p.Text}
				}
			}
			reqMessages[i] = OpenAIMessage{Role: msg.Role, Content: parts}
			continue
		}
		reqMessages[i] = OpenAIMessage{Role: msg.Role, Content: msg.Content}
	}

	reqBody := OpenAIRequest{
		Model:       defaultOpenAIModel,
		Messages:    reqMessages,
		Temperature: temperature,
	}

	var apiResp OpenAIResponse
	if err := c.post(ctx, c.OpenAIURL, openAIHeaders(c.cfg.OpenAIKey), reqBody, &apiResp); err != nil {
		return "", err
	}

	c.recordMetrics(ctx, apiResp.Usage)

	if len(apiResp.Choices) > 0 {
		return apiResp.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("%w: empty response from OpenAI", ErrProvider)
}

// callOllama calls the Ollama API
func (c *Client) callOllama(ctx context.Context, messages []session.Message, temperature float64) (string, error) {
	ctx, span := c.tracer.Start(ctx, "ollama_api_call")
	defer span.End()

	reqMessages := make([]map[string]string, len(messages))
	for i, msg := range messages {
		reqMessages[i] = map[string]string{
			"role":    msg.Role,
			"content": flattenContent(msg),
		}
	}

	reqBody := OllamaRequest{
		Model:    c.cfg.OllamaModel,
		Messages: reqMessages,
		Stream:   false,
		Options:  map[string]float64{"temperature": temperature},
	}

	var apiResp OllamaResponse
	headers := map[string]string{"content-type": "application/json"}
	if err := c.post(ctx, c.OllamaURL+"/api/chat", headers, reqBody, &apiResp); err != nil {
		return "", err
	}

	return apiResp.Message.Content, nil
}

// callAnthropic calls the Anthropic API
func (c *Client) callAnthropic(ctx context.Context, messages []session.Message, temperature float64) (string, error) {
	ctx, span := c.tracer.Start(ctx, "anthropic_api_call")
	defer span.End()

	if c.cfg.AnthropicKey == "" {
		return "", fmt.Errorf("%w: ANTHROPIC_API_KEY not set", ErrProvider)
	}

	// Anthropic takes the system turn as a top-level field.
	var system string
	reqMessages := make([]AnthropicMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == session.RoleSystem {
			system = msg.Content
			continue
		}
		reqMessages = append(reqMessages, AnthropicMessage{
			Role:    msg.Role,
			Content: flattenContent(msg),
		})
	}

	reqBody := AnthropicRequest{
		Model:       anthropicModel,
		MaxTokens:   anthropicMaxTokens,
		System:      system,
		Messages:    reqMessages,
		Temperature: temperature,
	}

	headers := map[string]string{
		"x-api-key":         c.cfg.AnthropicKey,
		"anthropic-version": "2023-06-01",
		"content-type":      "application/json",
	}

	var apiResp AnthropicResponse
	if err := c.post(ctx, c.AnthropicURL, headers, reqBody, &apiResp); err != nil {
		return "", err
	}

	c.recordMetrics(ctx, apiResp.Usage)

	for _, content := range apiResp.Content {
		if content.Type == "text" {
			return content.Text, nil
		}
	}
	return "", fmt.Errorf("%w: empty response from Anthropic", ErrProvider)
}

// ListOllamaModels fetches the list of available Ollama models
func (c *Client) ListOllamaModels(ctx context.Context) ([]OllamaModel, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.OllamaURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request (is Ollama running?): %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	var tagsResp OllamaTagsResponse
	if err := json.Unmarshal(body, &tagsResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return tagsResp.Models, nil
}

// post marshals reqBody, issues the request, and decodes into out. All
// transport and status failures are wrapped with ErrProvider.
func (c *Client) post(ctx context.Context, url string, headers map[string]string, reqBody, out interface{}) error {
	start := time.Now()

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to send request: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", ErrProvider, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: API error: %s - %s", ErrProvider, resp.Status, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: failed to unmarshal response: %v", ErrProvider, err)
	}

	duration := time.Since(start)
	histogram, err := c.meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
	)
	if err == nil {
		histogram.Record(ctx, float64(duration.Milliseconds()))
	}

	return nil
}

// recordMetrics records OpenTelemetry metrics from usage data
func (c *Client) recordMetrics(ctx context.Context, usage map[string]interface{}) {
	if usage == nil {
		return
	}

	for key, value := range usage {
		if intVal, ok := value.(float64); ok {
			counter, err := c.meter.Int64Counter(
				fmt.Sprintf("llm.usage.%s", key),
				metric.WithDescription(fmt.Sprintf("LLM usage metric: %s", key)),
			)
			if err != nil {
				c.logger.Warn("failed to create counter", "key", key, "error", err)
				continue
			}
			counter.Add(ctx, int64(intVal))
		}
	}
}

func openAIHeaders(apiKey string) map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + apiKey,
		"content-type":  "application/json",
	}
}

// flattenContent renders a message body as plain text for backends without
// multimodal support. Image parts are elided.
func flattenContent(msg session.Message) string {
	if len(msg.Parts) == 0 {
		return msg.Content
	}
	var out string
	for _, p := range msg.Parts {
		if p.Type == "text" {
			if out != "" {
				out += "\n"
			}
			out += p.Text
		}
	}
	return out
}
