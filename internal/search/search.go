// Package search queries a SearXNG-compatible JSON search endpoint.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/sloppy/aria/internal/logger"
)

const (
	DefaultEndpoint   = "http://localhost:8888"
	DefaultMaxResults = 10
	defaultTimeout    = 30 * time.Second
)

// ErrEmptyQuery is returned before any request is made.
var ErrEmptyQuery = errors.New("empty search query")

// Result is one search hit. Order is the provider's order.
type Result struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// StatusError reports a non-2xx response from the search endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("search endpoint returned %d", e.Code)
	}
	return fmt.Sprintf("search endpoint returned %d: %s", e.Code, e.Body)
}

type Options struct {
	Endpoint   string
	MaxResults int
	Timeout    time.Duration
	RetryMax   int
	Logger     logrus.FieldLogger
}

type Client struct {
	endpoint   string
	maxResults int
	http       *retryablehttp.Client
	log        logrus.FieldLogger
}

func NewClient(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.MaxResults == 0 {
		opts.MaxResults = DefaultMaxResults
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	hc := retryablehttp.NewClient()
	hc.HTTPClient.Timeout = opts.Timeout
	hc.RetryMax = opts.RetryMax
	hc.RetryWaitMin = 200 * time.Millisecond
	hc.RetryWaitMax = 2 * time.Second
	hc.Logger = logger.Leveled{Log: opts.Logger}
	hc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		endpoint:   strings.TrimRight(opts.Endpoint, "/"),
		maxResults: opts.MaxResults,
		http:       hc,
		log:        opts.Logger,
	}
}

type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search runs query against engine and returns at most MaxResults hits.
func (c *Client) Search(ctx context.Context, engine, query string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	if engine = strings.TrimSpace(engine); engine != "" {
		params.Set("engines", strings.ToLower(engine))
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]Result, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		if c.maxResults > 0 && len(results) == c.maxResults {
			break
		}
		results = append(results, Result{Title: r.Title, URL: r.URL, Description: r.Content})
	}
	c.log.WithFields(logrus.Fields{
		"engine":   engine,
		"results":  len(results),
		"duration": time.Since(start),
	}).Debug("search finished")
	return results, nil
}
