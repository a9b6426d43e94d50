// Package llm sends prompts to an Ollama-compatible generate endpoint.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/sloppy/aria/internal/logger"
)

const (
	DefaultEndpoint    = "http://localhost:11434"
	DefaultModel       = "llama3"
	DefaultTimeout     = 5 * time.Minute
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2500
)

var ErrEmptyPrompt = errors.New("empty prompt")

// StatusError reports a non-2xx response from the model endpoint.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("model endpoint returned %d", e.Code)
	}
	return fmt.Sprintf("model endpoint returned %d: %s", e.Code, e.Message)
}

type Options struct {
	Endpoint    string
	Model       string
	Timeout     time.Duration
	// Temperature is sent as given; 0 selects greedy decoding.
	Temperature float64
	MaxTokens   int
	RetryMax    int
	Logger      logrus.FieldLogger
}

type Client struct {
	endpoint string
	model    string
	timeout  time.Duration
	options  generateOptions
	http     *retryablehttp.Client
	log      logrus.FieldLogger
}

func NewClient(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	hc := retryablehttp.NewClient()
	hc.RetryMax = opts.RetryMax
	hc.RetryWaitMin = 500 * time.Millisecond
	hc.RetryWaitMax = 5 * time.Second
	hc.Logger = logger.Leveled{Log: opts.Logger}
	hc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		endpoint: strings.TrimRight(opts.Endpoint, "/"),
		model:    opts.Model,
		timeout:  opts.Timeout,
		options:  generateOptions{Temperature: opts.Temperature, NumPredict: opts.MaxTokens},
		http:     hc,
		log:      opts.Logger,
	}
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Query sends prompt and returns the generated text with surrounding
// whitespace removed. The whole exchange is bounded by the client timeout.
func (c *Client) Query(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Options: c.options,
	})
	if err != nil {
		return "", fmt.Errorf("encode generate request: %w", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", body)
	if err != nil {
		return "", fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read generate response: %w", err)
	}
	var decoded generateResponse
	decodeErr := json.Unmarshal(data, &decoded)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := decoded.Error
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return "", &StatusError{Code: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode generate response: %w", decodeErr)
	}
	if decoded.Error != "" {
		return "", fmt.Errorf("model error: %s", decoded.Error)
	}

	c.log.WithFields(logrus.Fields{
		"model":    c.model,
		"duration": time.Since(start),
	}).Debug("model query finished")
	return strings.TrimSpace(decoded.Response), nil
}
