package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lshigami/Quolls/internal/dto"
)

// ErrAlreadySubmitted is the client-side face of the server's terminal-state
// guard. Callers should transition to the submitted view rather than treat it
// as a failure.
var ErrAlreadySubmitted = errors.New("attempt already submitted")

// ErrTransient marks save/export failures worth retrying via the heartbeat;
// the local cache holds the data in the meantime.
var ErrTransient = errors.New("transient request failure")

// Client speaks the attempt-engine HTTP contract with a bearer session token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) InitAttempt(ctx context.Context, testID uint) (*dto.InitAttemptResponse, error) {
	var resp dto.InitAttemptResponse
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/tests/%d/attempts/init", testID), nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Questions(ctx context.Context, testID uint) (*dto.QuestionsResponse, error) {
	var resp dto.QuestionsResponse
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/tests/%d/questions", testID), nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SaveProgress(ctx context.Context, testID, attemptID uint, req dto.SaveProgressRequest) error {
	var resp dto.SaveProgressResponse
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/v1/tests/%d/attempts/%d", testID, attemptID), req, &resp)
}

func (c *Client) Submit(ctx context.Context, testID, attemptID uint, req dto.SubmitRequest) (*dto.SubmitResponse, error) {
	var resp dto.SubmitResponse
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/tests/%d/attempts/%d/submit", testID, attemptID), req, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		// Network-level failures are retryable; the cache covers the gap.
		return fmt.Errorf("%s %s: %v: %w", method, path, err, ErrTransient)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding %s %s response: %w", method, path, err)
		}
		return nil
	case resp.StatusCode == http.StatusConflict:
		return ErrAlreadySubmitted
	case resp.StatusCode == http.StatusForbidden:
		var errResp dto.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		// Init reports a finished test as 403 rather than 409; it is still the
		// terminal-state guard, not a permission failure.
		if strings.Contains(strings.ToLower(errResp.Message), "completed") {
			return ErrAlreadySubmitted
		}
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, errResp.Message)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s %s: server returned %d: %w", method, path, resp.StatusCode, ErrTransient)
	default:
		var errResp dto.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, errResp.Message)
	}
}
