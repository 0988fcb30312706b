package mem0

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/yungbote/ragchat-backend/internal/logger"
	"github.com/yungbote/ragchat-backend/internal/pkg/httpx"
)

// Client talks to the mem0 conversational memory service. All calls are
// scoped to the single memory user id configured at startup.
type Client interface {
	Add(ctx context.Context, messages []MemoryMessage) error
	Search(ctx context.Context, query string) ([]MemoryEntry, error)
}

type MemoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type MemoryEntry struct {
	ID     string  `json:"id"`
	Memory string  `json:"memory"`
	Score  float64 `json:"score"`
}

type client struct {
	log          *logger.Logger
	baseURL      string
	apiKey       string
	memoryUserID string
	httpClient   *http.Client
	maxRetries   int
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	apiKey := strings.TrimSpace(os.Getenv("MEM0_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing MEM0_API_KEY")
	}
	memoryUserID := strings.TrimSpace(os.Getenv("MEM0_USER_ID"))
	if memoryUserID == "" {
		return nil, fmt.Errorf("missing MEM0_USER_ID")
	}

	baseURL := strings.TrimSpace(os.Getenv("MEM0_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.mem0.ai"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	return &client{
		log:          log.With("client", "Mem0Client"),
		baseURL:      baseURL,
		apiKey:       apiKey,
		memoryUserID: memoryUserID,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		maxRetries:   2,
	}, nil
}

type mem0HTTPError struct {
	StatusCode int
	Body       string
}

func (e *mem0HTTPError) Error() string {
	return fmt.Sprintf("mem0 http %d: %s", e.StatusCode, e.Body)
}

func (e *mem0HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &mem0HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("mem0 decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}

		if !httpx.IsRetryableError(err) {
			return err
		}
		if attempt == c.maxRetries {
			return err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 10*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)

		c.log.Warn("mem0 request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		time.Sleep(sleepFor)
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}

type addRequest struct {
	Messages []MemoryMessage `json:"messages"`
	UserID   string          `json:"user_id"`
}

func (c *client) Add(ctx context.Context, messages []MemoryMessage) error {
	if len(messages) == 0 {
		return nil
	}
	req := addRequest{
		Messages: messages,
		UserID:   c.memoryUserID,
	}
	return c.do(ctx, "POST", "/v1/memories/", req, nil)
}

type searchRequest struct {
	Query  string `json:"query"`
	UserID string `json:"user_id"`
}

func (c *client) Search(ctx context.Context, query string) ([]MemoryEntry, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []MemoryEntry{}, nil
	}
	req := searchRequest{
		Query:  query,
		UserID: c.memoryUserID,
	}
	var out []MemoryEntry
	if err := c.do(ctx, "POST", "/v1/memories/search/", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}
