package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultBaseURL     = "http://localhost:11434"
	DefaultModel       = "llama3"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000

	generatePath = "/api/generate"
)

// GenerateRequest is a single prompt for the backend.
type GenerateRequest struct {
	Prompt      string
	System      string
	Temperature float64
	MaxTokens   int
}

// NewRequest returns a request with the default sampling settings.
func NewRequest(prompt, system string) GenerateRequest {
	return GenerateRequest{Prompt: prompt, System: system, Temperature: DefaultTemperature, MaxTokens: DefaultMaxTokens}
}

// TextGenerator produces raw text for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// StructuredGenerator produces a JSON object for a prompt and output shape.
// Unparseable output is returned as the Extract sentinel, not as an error.
type StructuredGenerator interface {
	GenerateStructured(ctx context.Context, req GenerateRequest, format any) (map[string]any, error)
}

// Observer receives timing for each backend call.
type Observer interface {
	ObserveGeneration(model string, elapsed time.Duration, err error)
}

// BackendError reports a failed or non-success backend call.
type BackendError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *BackendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ollama API error: %v", e.Err)
	}
	return fmt.Sprintf("ollama API error (%d): %s", e.StatusCode, e.Body)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Client talks to an Ollama-compatible /api/generate endpoint.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *log.Logger
	observer   Observer
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the overall request timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithClientLogger overrides the client logger.
func WithClientLogger(l *log.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver records call durations.
func WithObserver(o Observer) ClientOption {
	return func(c *Client) { c.observer = o }
}

// NewClient builds a client for model served at baseURL.
func NewClient(baseURL, model string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{},
		logger:     log.New(os.Stderr, "[LLM] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the backend model name.
func (c *Client) Model() string { return c.model }

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type generatePayload struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	System  string          `json:"system,omitempty"`
	Options generateOptions `json:"options"`
	Stream  bool            `json:"stream"`
}

type generateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate sends one streaming request and concatenates the response deltas.
// Malformed stream lines are skipped.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (text string, err error) {
	ctx, span := otel.Tracer("agentea/llm").Start(ctx, "llm.generate")
	span.SetAttributes(attribute.String("llm.model", c.model), attribute.Int("llm.prompt_chars", len(req.Prompt)))
	start := time.Now()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if c.observer != nil {
			c.observer.ObserveGeneration(c.model, time.Since(start), err)
		}
	}()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	body, err := json.Marshal(generatePayload{
		Model:   c.model,
		Prompt:  req.Prompt,
		System:  req.System,
		Options: generateOptions{Temperature: req.Temperature, NumPredict: maxTokens},
		Stream:  true,
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &BackendError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return "", &BackendError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	return c.readStream(resp.Body), nil
}

func (c *Client) readStream(r io.Reader) string {
	var sb strings.Builder
	reader := bufio.NewReader(r)
	skipped := 0
	for {
		line, readErr := reader.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			var chunk generateChunk
			if !utf8.Valid(line) || json.Unmarshal(line, &chunk) != nil {
				skipped++
			} else {
				sb.WriteString(chunk.Response)
				if chunk.Done {
					break
				}
			}
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				c.logger.Printf("stream read stopped early: %v", readErr)
			}
			break
		}
	}
	if skipped > 0 {
		c.logger.Printf("skipped %d malformed stream lines", skipped)
	}
	return sb.String()
}

// GenerateStructured asks for a JSON object shaped like format and extracts it.
func (c *Client) GenerateStructured(ctx context.Context, req GenerateRequest, format any) (map[string]any, error) {
	return GenerateStructured(ctx, c, req, format)
}

// GenerateStructured runs the structured prompt flow on top of any TextGenerator.
func GenerateStructured(ctx context.Context, gen TextGenerator, req GenerateRequest, format any) (map[string]any, error) {
	prompt, err := FormatPrompt(req.Prompt, format)
	if err != nil {
		return nil, err
	}
	req.Prompt = prompt
	text, err := gen.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	return Extract(text), nil
}

// FormatPrompt appends an instruction that the answer must match format as JSON.
func FormatPrompt(prompt string, format any) (string, error) {
	if format == nil {
		return prompt, nil
	}
	shape, err := json.MarshalIndent(format, "", "  ")
	if err != nil {
		return "", fmt.Errorf("render output format: %w", err)
	}
	return prompt +
		"\nYour response must be a valid JSON object with the following structure:\n" +
		string(shape) +
		"\nEnsure your entire response can be parsed as JSON.", nil
}

var (
	_ TextGenerator       = (*Client)(nil)
	_ StructuredGenerator = (*Client)(nil)
)
