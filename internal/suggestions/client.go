package suggestions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrNoAPIKey is returned when no catalog key is configured.
	ErrNoAPIKey = errors.New("suggestion api key not configured")
	// ErrThrottled is returned when the outbound budget is exhausted.
	ErrThrottled = errors.New("suggestion requests throttled")
)

// Defaults for the ExerciseDB catalog.
const (
	DefaultBaseURL = "https://exercisedb.p.rapidapi.com/"
	DefaultHost    = "exercisedb.p.rapidapi.com"
	DefaultTimeout = 30 * time.Second
)

// ClientConfig configures the catalog client.
type ClientConfig struct {
	BaseURL       string
	APIKey        string
	Host          string
	Timeout       time.Duration
	RatePerMinute int
}

// Client calls the ExerciseDB REST API.
type Client struct {
	baseURL string
	apiKey  string
	host    string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient constructs a Client. A nil httpClient gets one with cfg.Timeout.
func NewClient(cfg ClientConfig, httpClient *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), cfg.RatePerMinute)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		host:    cfg.Host,
		http:    httpClient,
		limiter: limiter,
	}
}

// Fetch requests one page of exercises.
func (c *Client) Fetch(ctx context.Context, limit, offset int) ([]Suggestion, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if !c.limiter.Allow() {
		return nil, ErrThrottled
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/exercises?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", c.host)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("exercise catalog returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var dtos []exerciseDTO
	if err := json.NewDecoder(resp.Body).Decode(&dtos); err != nil {
		return nil, fmt.Errorf("decode exercises: %w", err)
	}

	out := make([]Suggestion, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, dto.toSuggestion())
	}
	return out, nil
}
