package raggate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client talks to a raggate gateway over HTTP.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a client for the gateway at baseURL, e.g.
// "http://localhost:8080". Options configure authentication and
// transport behavior.
func New(baseURL string, opts ...Option) *Client {
	cfg := clientConfig{timeout: defaultTimeout}
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.apiKey,
		httpClient: httpClient,
	}
}

// Search runs hybrid retrieval over the corpus.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	var res SearchResponse
	if err := c.post(ctx, "/tool/search", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Summarize generates a grounded summary of the given documents and
// returns it together with extracted citations.
func (c *Client) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error) {
	var res SummarizeResponse
	if err := c.post(ctx, "/tool/summarize", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Cite extracts citations for already generated text against a set of
// source documents.
func (c *Client) Cite(ctx context.Context, req CiteRequest) (*CiteResponse, error) {
	var res CiteResponse
	if err := c.post(ctx, "/tool/cite", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Compare contrasts two to five documents.
func (c *Client) Compare(ctx context.Context, req CompareRequest) (*CompareResponse, error) {
	var res CompareResponse
	if err := c.post(ctx, "/tool/compare", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Analyze extracts sentiment, entities, topics and insights from
// documents.
func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error) {
	var res AnalyzeResponse
	if err := c.post(ctx, "/tool/analyze", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Ingest submits a batch of documents for embedding and indexing.
func (c *Client) Ingest(ctx context.Context, req IngestRequest) (*IngestResponse, error) {
	var res IngestResponse
	if err := c.post(ctx, "/ingest", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Health reports gateway dependency status. A degraded gateway answers
// with HTTP 503 but still carries the health payload, so the response
// is returned either way; inspect res.Status to tell the cases apart.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpRes, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET /health: %w", err)
	}
	defer httpRes.Body.Close()

	if httpRes.StatusCode != http.StatusOK && httpRes.StatusCode != http.StatusServiceUnavailable {
		return nil, apiErrorFrom(httpRes)
	}

	var res HealthResponse
	if err := json.NewDecoder(httpRes.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &res, nil
}

func (c *Client) post(ctx context.Context, path string, reqBody, resBody any) error {
	return c.do(ctx, http.MethodPost, path, reqBody, resBody)
}

func (c *Client) do(ctx context.Context, method, path string, reqBody, resBody any) error {
	var body io.Reader
	if reqBody != nil {
		encoded, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return apiErrorFrom(res)
	}

	if resBody != nil {
		if err := json.NewDecoder(res.Body).Decode(resBody); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func apiErrorFrom(res *http.Response) *APIError {
	apiErr := &APIError{StatusCode: res.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<16))
	if err != nil {
		apiErr.Code = CodeInternalError
		apiErr.Message = "unreadable error response"
		return apiErr
	}

	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Code == "" {
		apiErr.Code = CodeInternalError
		apiErr.Message = strings.TrimSpace(string(raw))
		return apiErr
	}

	apiErr.Code = payload.Code
	apiErr.Message = payload.Message
	return apiErr
}
