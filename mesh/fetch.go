package mesh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultFetchTimeout is the default HTTP request timeout per file.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of attempts per file.
	DefaultMaxRetries = 3

	defaultBaseBackoff = 500 * time.Millisecond

	// maxResponseBytes limits a downloaded file to 200 MB.
	maxResponseBytes = 200 << 20
)

// errNotFound marks a 404 response, which is never retried.
var errNotFound = errors.New("not found")

// FetchOption configures FetchBuilding behavior.
type FetchOption func(*fetchConfig)

type fetchConfig struct {
	timeout     time.Duration
	maxRetries  int
	baseBackoff time.Duration
	client      *http.Client
}

func defaultFetchConfig() fetchConfig {
	return fetchConfig{
		timeout:     DefaultFetchTimeout,
		maxRetries:  DefaultMaxRetries,
		baseBackoff: defaultBaseBackoff,
	}
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) FetchOption {
	return func(c *fetchConfig) {
		c.timeout = d
	}
}

// WithMaxRetries sets the maximum number of attempts.
func WithMaxRetries(n int) FetchOption {
	return func(c *fetchConfig) {
		c.maxRetries = n
	}
}

// WithBaseBackoff sets the base delay for exponential backoff between retries.
func WithBaseBackoff(d time.Duration) FetchOption {
	return func(c *fetchConfig) {
		c.baseBackoff = d
	}
}

// WithHTTPClient overrides the default HTTP client (useful for testing).
func WithHTTPClient(client *http.Client) FetchOption {
	return func(c *fetchConfig) {
		c.client = client
	}
}

// FetchBuilding downloads <baseURL>/<name>.xyz into dir together with the
// optional <name>.xyzshape and <name>.json siblings, and returns the local
// path of the point file. The point file is parsed before it is written so a
// corrupt download never reaches the data directory.
func FetchBuilding(ctx context.Context, baseURL, name, dir string, opts ...FetchOption) (string, error) {
	if baseURL == "" {
		return "", fmt.Errorf("fetch building: base URL is empty")
	}
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("fetch building: invalid name %q", name)
	}

	cfg := defaultFetchConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	client := cfg.client
	if client == nil {
		client = &http.Client{Timeout: cfg.timeout}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}

	pointsPath := filepath.Join(dir, name+".xyz")
	for _, ext := range []string{".xyz", ".xyzshape", ".json"} {
		fileURL, err := url.JoinPath(baseURL, name+ext)
		if err != nil {
			return "", fmt.Errorf("fetch building: %w", err)
		}
		body, err := fetchWithRetry(ctx, client, fileURL, cfg)
		if errors.Is(err, errNotFound) && ext != ".xyz" {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("fetch building %s: %w", name, err)
		}
		if ext == ".xyz" {
			if _, err := readXYZ(bytes.NewReader(body), fileURL, DefaultReference); err != nil {
				return "", fmt.Errorf("fetch building %s: %w", name, err)
			}
		}
		if err := os.WriteFile(filepath.Join(dir, name+ext), body, 0o644); err != nil {
			return "", fmt.Errorf("write %s%s: %w", name, ext, err)
		}
	}
	return pointsPath, nil
}

func fetchWithRetry(ctx context.Context, client *http.Client, fileURL string, cfg fetchConfig) ([]byte, error) {
	var lastErr error
	for attempt := range cfg.maxRetries {
		if attempt > 0 {
			backoff := cfg.baseBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		body, err := doFetch(ctx, client, fileURL)
		if err == nil {
			return body, nil
		}
		if errors.Is(err, errNotFound) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all %d attempts failed: %w", cfg.maxRetries, lastErr)
}

// doFetch performs a single HTTP GET and returns the response body bytes.
func doFetch(ctx context.Context, client *http.Client, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s: %w", fileURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("HTTP GET %s: %w", fileURL, errNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP GET %s: status %d", fileURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", fileURL, err)
	}
	return body, nil
}
