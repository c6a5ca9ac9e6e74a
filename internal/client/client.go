// Package client provides an HTTP client for the Snap Search API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is an HTTP client for the Snap Search API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Config configures the client.
type Config struct {
	// BaseURL is the base URL of the API server.
	BaseURL string

	// APIKey is sent as X-API-Key when set.
	APIKey string

	// Timeout is the request timeout.
	Timeout time.Duration

	// MaxIdleConns controls the maximum number of idle (keep-alive)
	// connections across all hosts. Zero means no limit.
	MaxIdleConns int

	// MaxConnsPerHost limits the total number of connections per host.
	// Zero means no limit.
	MaxConnsPerHost int

	// IdleConnTimeout is the maximum amount of time an idle (keep-alive)
	// connection will remain idle before closing itself.
	IdleConnTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:         "http://localhost:8080",
		Timeout:         30 * time.Second,
		MaxIdleConns:    100,
		MaxConnsPerHost: 100,
		IdleConnTimeout: 90 * time.Second,
	}
}

// New creates a new API client. Zero config fields fall back to
// DefaultConfig values.
func New(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = def.MaxIdleConns
	}
	if cfg.MaxConnsPerHost == 0 {
		cfg.MaxConnsPerHost = def.MaxConnsPerHost
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = def.IdleConnTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxConnsPerHost / 5,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
	}
}

// Photo represents a photo record.
type Photo struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Title          string   `json:"title,omitempty"`
	Description    string   `json:"description,omitempty"`
	URL            string   `json:"url,omitempty"`
	TagNames       []string `json:"tag_names,omitempty"`
	Scenes         []string `json:"scenes,omitempty"`
	Objects        []string `json:"objects,omitempty"`
	Emotions       []string `json:"emotions,omitempty"`
	AIConfidence   *float64 `json:"ai_confidence,omitempty"`
	AnalysisStatus string   `json:"analysis_status"`
	TakenAt        string   `json:"taken_at,omitempty"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

// IngestRequest represents a request to register a photo.
type IngestRequest struct {
	Name        string   `json:"name"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	URL         string   `json:"url,omitempty"`
	ContentHash string   `json:"content_hash,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	TakenAt     string   `json:"taken_at,omitempty"`
}

// SearchRequest represents a search request.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// SearchResult represents a single ranked match.
type SearchResult struct {
	ID             string   `json:"id"`
	Name           string   `json:"name,omitempty"`
	Title          string   `json:"title,omitempty"`
	Description    string   `json:"description,omitempty"`
	TagNames       []string `json:"tag_names,omitempty"`
	TakenAt        string   `json:"taken_at,omitempty"`
	RelevanceScore float64  `json:"relevance_score"`
}

// DateRange is an inclusive time window resolved from a date phrase.
type DateRange struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// ParsedQuery is the structured interpretation of a search phrase.
type ParsedQuery struct {
	Keywords   []string   `json:"keywords"`
	Scenes     []string   `json:"scenes,omitempty"`
	Objects    []string   `json:"objects,omitempty"`
	Emotions   []string   `json:"emotions,omitempty"`
	DateRange  *DateRange `json:"date_range,omitempty"`
	Locations  []string   `json:"locations,omitempty"`
	Confidence float64    `json:"confidence"`
}

// SearchResponse represents a search response.
type SearchResponse struct {
	Query    string         `json:"query"`
	Parsed   *ParsedQuery   `json:"parsed,omitempty"`
	Results  []SearchResult `json:"results"`
	Total    int            `json:"total"`
	Metadata SearchMetadata `json:"metadata"`
}

// SearchMetadata contains search timing information.
type SearchMetadata struct {
	ParseTimeMs int64 `json:"parse_time_ms"`
	FetchTimeMs int64 `json:"fetch_time_ms"`
	RankTimeMs  int64 `json:"rank_time_ms"`
	TotalTimeMs int64 `json:"total_time_ms"`
	Candidates  int   `json:"candidates"`
}

// AnalysisStatus represents a photo's AI analysis state.
type AnalysisStatus struct {
	PhotoID    string   `json:"photo_id"`
	Status     string   `json:"status"`
	Scenes     []string `json:"scenes,omitempty"`
	Objects    []string `json:"objects,omitempty"`
	Emotions   []string `json:"emotions,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// APIError represents an API error response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Health checks if the API is healthy.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.get(ctx, "/v1/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Search runs a natural-language photo search.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	var resp SearchResponse
	if err := c.post(ctx, "/v1/search", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Parse returns the structured interpretation of a search phrase
// without running the search.
func (c *Client) Parse(ctx context.Context, phrase string) (*ParsedQuery, error) {
	var resp ParsedQuery
	if err := c.post(ctx, "/v1/search/parse", SearchRequest{Query: phrase}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Examples returns example search phrases the server understands.
func (c *Client) Examples(ctx context.Context) ([]string, error) {
	var resp struct {
		Examples []string `json:"examples"`
	}
	if err := c.get(ctx, "/v1/search/examples", &resp); err != nil {
		return nil, err
	}
	return resp.Examples, nil
}

// IngestPhoto registers a photo for search and queues AI analysis.
func (c *Client) IngestPhoto(ctx context.Context, req IngestRequest) (*Photo, error) {
	var photo Photo
	if err := c.post(ctx, "/v1/photos", req, &photo); err != nil {
		return nil, err
	}
	return &photo, nil
}

// GetPhoto returns a photo by ID.
func (c *Client) GetPhoto(ctx context.Context, id string) (*Photo, error) {
	var photo Photo
	if err := c.get(ctx, "/v1/photos/"+id, &photo); err != nil {
		return nil, err
	}
	return &photo, nil
}

// DeletePhoto removes a photo.
func (c *Client) DeletePhoto(ctx context.Context, id string) error {
	return c.delete(ctx, "/v1/photos/"+id)
}

// GetAnalysis returns the AI analysis state of a photo.
func (c *Client) GetAnalysis(ctx context.Context, id string) (*AnalysisStatus, error) {
	var status AnalysisStatus
	if err := c.get(ctx, "/v1/photos/"+id+"/analysis", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// get performs a GET request.
func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req, result)
}

// post performs a POST request.
func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.do(req, result)
}

// delete performs a DELETE request.
func (c *Client) delete(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.do(req, nil)
}

// do executes a request and decodes the response, unwrapping the
// data/meta envelope the server puts around /v1/* JSON bodies.
func (c *Client) do(req *http.Request, result interface{}) error {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr APIError
		if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Code == "" {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
		}
		return &apiErr
	}

	if result == nil || len(body) == 0 {
		return nil
	}

	// Wrapped responses carry the payload under "data".
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Data) > 0 {
		body = envelope.Data
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
