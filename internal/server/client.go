package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"linttrack/internal/errors"
	"linttrack/internal/logging"
)

const (
	// DefaultTimeout is the HTTP timeout for one issue download
	DefaultTimeout = 10 * time.Second

	// DefaultMaxBodySize is the maximum response body read from the server (10MB)
	DefaultMaxBodySize = 10 * 1024 * 1024

	issuesPath = "/api/issues"
)

// ClientConfig configures the remote client.
type ClientConfig struct {
	URL               string
	Token             string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// RemoteError is returned when the server answers with an error status.
type RemoteError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client downloads server issues over HTTP.
type Client struct {
	baseURL *url.URL
	token   string
	client  *http.Client
	limiter *rate.Limiter
	logger  *logging.Logger
}

// NewClient creates a client. A RequestsPerSecond of zero disables rate limiting.
func NewClient(cfg ClientConfig, logger *logging.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New(errors.ConfigInvalid, "server url is required", nil)
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, errors.New(errors.ConfigInvalid, "invalid server url", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		baseURL: u,
		token:   cfg.Token,
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
		logger:  logger,
	}, nil
}

type issuesResponse struct {
	Issues []ServerIssue `json:"issues"`
}

// DownloadIssues fetches the issues of one file. Failures to reach the server
// and error statuses are reported as DOWNLOAD_FAILED; any other failure keeps
// its own code.
func (c *Client) DownloadIssues(ctx context.Context, moduleKey, fileKey string) ([]ServerIssue, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, downloadFailed(moduleKey, fileKey, err)
	}

	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + issuesPath
	u.RawQuery = url.Values{"module": {moduleKey}, "file": {fileKey}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.New(errors.InternalError, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "linttrack/1.0")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, downloadFailed(moduleKey, fileKey, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, DefaultMaxBodySize))
	if err != nil {
		return nil, downloadFailed(moduleKey, fileKey, err)
	}

	if resp.StatusCode >= 400 {
		return nil, downloadFailed(moduleKey, fileKey, &RemoteError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(data)),
		})
	}

	var parsed issuesResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode server issues: %w", err)
	}

	for i := range parsed.Issues {
		if parsed.Issues[i].FileKey == "" {
			parsed.Issues[i].FileKey = fileKey
		}
	}

	c.logger.Debug("Downloaded server issues", map[string]interface{}{
		"module":     moduleKey,
		"file":       fileKey,
		"issues":     len(parsed.Issues),
		"durationMs": time.Since(start).Milliseconds(),
	})

	if parsed.Issues == nil {
		parsed.Issues = []ServerIssue{}
	}
	return parsed.Issues, nil
}

func downloadFailed(moduleKey, fileKey string, cause error) error {
	return errors.New(errors.DownloadFailed, "failed to download server issues", cause).WithDetails(map[string]interface{}{
		"module": moduleKey,
		"file":   fileKey,
	})
}
